// Command genmock generates a synthetic summer-day weather fixture plus a
// matching set of user profiles. The observations follow a sinusoidal daily
// temperature curve with inversely varying humidity, so replaying the fixture
// through the engine exercises the full raise-hold-clear alert cycle.
//
// Usage:
//
//	go run ./cmd/genmock \
//	  -out-observations data/mock/observations_260714.json \
//	  -out-profiles data/mock/profiles_260714.json
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/therealdaud/HealthShield/internal/domain"
)

var baseDate = time.Date(2026, time.July, 14, 0, 0, 0, 0, time.UTC)

// observationRecord mirrors the flat JSON published by station collectors.
type observationRecord struct {
	LocationID    string   `json:"location_id"`
	UnixTS        int64    `json:"ts"`
	TemperatureC  float64  `json:"temp_c"`
	Humidity      float64  `json:"rh_pct"`
	WindMPS       *float64 `json:"wind_mps,omitempty"`
	SolarExposure *float64 `json:"solar_pct,omitempty"`
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	obsOut := flag.String("out-observations", "", "output path for the observation fixture")
	profOut := flag.String("out-profiles", "", "output path for the profile fixture")
	locations := flag.String("locations", "tampa-usf-valet,orlando-depot,miami-port-yard", "comma-separated location ids")
	usersPerLocation := flag.Int("users-per-location", 4, "profiles generated per location")
	flag.Parse()

	if *obsOut == "" || *profOut == "" {
		flag.Usage()
		return fmt.Errorf("missing required flags: -out-observations, -out-profiles")
	}

	// Fixed seed keeps fixtures reproducible across runs.
	rng := rand.New(rand.NewSource(260714))

	locs := strings.Split(*locations, ",")
	var observations []observationRecord
	for _, loc := range locs {
		observations = append(observations, generateDay(strings.TrimSpace(loc), rng)...)
	}

	profiles := generateProfiles(locs, *usersPerLocation, rng)

	if err := writeJSON(*obsOut, observations); err != nil {
		return fmt.Errorf("writing observation fixture: %w", err)
	}
	log.Printf("wrote %d observations: %s", len(observations), *obsOut)

	if err := writeJSON(*profOut, profiles); err != nil {
		return fmt.Errorf("writing profile fixture: %w", err)
	}
	log.Printf("wrote %d profiles: %s", len(profiles), *profOut)

	printStats(observations)
	return nil
}

// generateDay emits one observation every 15 minutes for 24 hours. The
// temperature runs 24-39C peaking near 14:00; relative humidity runs the
// inverse, 40% at peak heat up to 85% overnight.
func generateDay(locationID string, rng *rand.Rand) []observationRecord {
	const interval = 15 * time.Minute
	records := make([]observationRecord, 0, 96)

	for at := baseDate; at.Before(baseDate.Add(24 * time.Hour)); at = at.Add(interval) {
		hours := at.Sub(baseDate).Hours()
		// Peak at 14:00: cosine with trough at 02:00.
		phase := math.Cos((hours - 14) / 24 * 2 * math.Pi)
		temp := 31.5 + 7.5*phase + rng.Float64() - 0.5
		humidity := 62.5 - 22.5*phase + 2*rng.Float64() - 1

		rec := observationRecord{
			LocationID:   locationID,
			UnixTS:       at.Unix(),
			TemperatureC: round1(temp),
			Humidity:     round1(humidity),
		}

		if wind := round1(1.5 + 2*rng.Float64()); wind > 0 {
			rec.WindMPS = &wind
		}
		if hours >= 7 && hours <= 19 {
			solar := round2(math.Sin((hours - 7) / 12 * math.Pi))
			rec.SolarExposure = &solar
		}
		records = append(records, rec)
	}
	return records
}

func generateProfiles(locations []string, perLocation int, rng *rand.Rand) []domain.UserProfile {
	activities := []domain.ActivityLevel{
		domain.ActivityResting, domain.ActivityLight, domain.ActivityModerate, domain.ActivityVigorous,
	}
	clothing := []domain.ClothingLevel{
		domain.ClothingLight, domain.ClothingNormal, domain.ClothingHeavy,
	}
	acclim := []domain.Acclimatization{
		domain.AcclimatizationNone, domain.AcclimatizationPartial, domain.AcclimatizationFull,
	}

	var profiles []domain.UserProfile
	n := 0
	for _, loc := range locations {
		loc = strings.TrimSpace(loc)
		for i := 0; i < perLocation; i++ {
			n++
			p := domain.UserProfile{
				UserID:          fmt.Sprintf("user-%03d", n),
				LocationID:      loc,
				Activity:        activities[rng.Intn(len(activities))],
				Clothing:        clothing[rng.Intn(len(clothing))],
				Acclimatization: acclim[rng.Intn(len(acclim))],
				HealthSensitive: rng.Intn(5) == 0,
			}
			if rng.Intn(4) == 0 {
				override := domain.RiskModerate
				p.TriggerOverride = &override
			}
			profiles = append(profiles, p)
		}
	}
	return profiles
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

func printStats(observations []observationRecord) {
	if len(observations) == 0 {
		return
	}
	minT, maxT := observations[0].TemperatureC, observations[0].TemperatureC
	for _, o := range observations {
		minT = math.Min(minT, o.TemperatureC)
		maxT = math.Max(maxT, o.TemperatureC)
	}
	log.Printf("temperature range: %.1fC to %.1fC", minT, maxT)
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }
func round2(v float64) float64 { return math.Round(v*100) / 100 }
