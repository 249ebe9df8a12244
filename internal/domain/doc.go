// Package domain models personalized heat-index computation and alerting.
//
// # Heat Index Model
//
// The baseline apparent temperature comes from the NWS Rothfusz regression,
// the empirical polynomial behind the published National Weather Service heat
// index tables. The regression is defined in °F and only meaningful at or
// above 80 °F (26.7 °C); below that threshold the index equals the ambient
// temperature and the personalization pipeline is inactive.
//
// All public values are in °C. The regression is evaluated in °F internally
// and converted back.
//
// # Personalization
//
// The personalized index is the baseline plus an ordered sequence of bounded
// adjustments:
//
//	activity        metabolic heat load, 0 to +3.0 °C (resting → vigorous)
//	clothing        insulation, 0 to +1.7 °C, capped so it cannot mask ambient
//	acclimatization physiological adaptation discount, 0 to −1.5 °C
//	wind            optional, 0 to −1.2 °C at the 4 m/s cap
//	solar           optional, 0 to +1.8 °C at full exposure
//
// The final value is clamped to [ambient, min(baseline + 6.7 °C, 82 °C)] so
// stacked adjustments can never drop below the ambient reading or run away
// above it. Coefficients live in [Params]; [DefaultParams] carries the
// operational values.
//
// # Risk Bands
//
// Classification maps the personalized index onto four ordered levels using
// half-open °C bands derived from the 90/103/125 °F operational buckets:
//
//	Low      < 32.2
//	Moderate [32.2, 39.4)
//	High     [39.4, 51.7)
//	Extreme  ≥ 51.7
//
// A health-sensitivity flag shifts every boundary down by a fixed configured
// margin. Per-user overrides never move the bands; they only change the alert
// trigger level, so risk levels stay comparable across users.
//
// # Alert State Machine
//
// Each (user, location) key carries one [AlertState] advanced by [Advance]:
// Normal → Alerting when the level reaches the trigger, Escalated while
// alerting if the level worsens past the alert's previous peak, Cleared with
// hysteresis (the clear level sits one band below the trigger), then a
// cooldown window during which no new alert may be raised. The state's Level
// always reflects the newest classified observation. Hysteresis and cooldown
// are the only defenses against a noisy index flapping near a boundary.
package domain
