package domain

// Classify maps a personalized index onto the fixed risk bands. Total over
// any real input: values below the lowest floor are Low, values above the
// highest are Extreme. The health-sensitivity flag shifts every boundary
// down by the configured margin; nothing else about the bands is per-user.
func Classify(indexC float64, profile UserProfile, p Params) RiskLevel {
	var margin float64
	if profile.HealthSensitive {
		margin = p.HealthMarginC
	}

	switch {
	case indexC >= p.ExtremeFloorC-margin:
		return RiskExtreme
	case indexC >= p.HighFloorC-margin:
		return RiskHigh
	case indexC >= p.ModerateFloorC-margin:
		return RiskModerate
	default:
		return RiskLow
	}
}
