// Command simulate replays an observation fixture through the alert engine
// with in-memory stores and prints the resulting alert timeline. Useful for
// eyeballing threshold and cooldown behavior before touching a live topic.
//
// Usage:
//
//	go run ./cmd/simulate \
//	  -observations data/mock/observations_260714.json \
//	  -profiles data/mock/profiles_260714.json
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"sort"

	"github.com/therealdaud/HealthShield/internal/domain"
	"github.com/therealdaud/HealthShield/internal/engine"
	"github.com/therealdaud/HealthShield/internal/store"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	obsPath := flag.String("observations", "", "observation fixture path")
	profPath := flag.String("profiles", "", "profile fixture path")
	flag.Parse()

	if *obsPath == "" || *profPath == "" {
		flag.Usage()
		return fmt.Errorf("missing required flags: -observations, -profiles")
	}

	observations, err := loadObservations(*obsPath)
	if err != nil {
		return fmt.Errorf("loading observations: %w", err)
	}
	profiles, err := loadProfiles(*profPath)
	if err != nil {
		return fmt.Errorf("loading profiles: %w", err)
	}

	source := store.NewStaticProfileSource()
	for _, p := range profiles {
		source.Add(p)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	orch := engine.NewOrchestrator(store.NewMemoryStateStore(), domain.DefaultParams(), logger)
	ctx := context.Background()

	// Replay in timestamp order so the stale guard never trips.
	sort.Slice(observations, func(i, j int) bool {
		return observations[i].Timestamp.Before(observations[j].Timestamp)
	})

	counts := map[domain.AlertEventKind]int{}
	var entries, failures int
	for _, obs := range observations {
		subscribed, err := source.ProfilesForLocation(ctx, obs.LocationID)
		if err != nil || len(subscribed) == 0 {
			continue
		}
		batch := make([]engine.Entry, len(subscribed))
		for i, p := range subscribed {
			batch[i] = engine.Entry{Profile: p, Observation: obs}
		}

		outcomes := orch.Process(ctx, batch)
		for _, out := range outcomes {
			entries++
			if out.Err != nil {
				failures++
				continue
			}
			if out.Event == nil {
				continue
			}
			counts[out.Event.Kind]++
			fmt.Printf("%s  %-9s %-8s user=%s location=%s index=%.1fC\n",
				out.Event.Timestamp.Format("15:04"),
				out.Event.Kind,
				out.Event.Level,
				out.Key.UserID,
				out.Key.LocationID,
				out.Result.PersonalizedIndexC)
		}
		if err := orch.CommitStates(ctx, outcomes); err != nil {
			return fmt.Errorf("committing alert states: %w", err)
		}
	}

	fmt.Printf("\n%d observations, %d entries processed, %d failures\n", len(observations), entries, failures)
	fmt.Printf("events: %d raised, %d escalated, %d cleared\n",
		counts[domain.EventRaised], counts[domain.EventEscalated], counts[domain.EventCleared])
	return nil
}

func loadObservations(path string) ([]domain.WeatherObservation, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var records []json.RawMessage
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, err
	}

	observations := make([]domain.WeatherObservation, 0, len(records))
	for i, rec := range records {
		obs, err := domain.ParseRawObservation(domain.RawObservation{Value: rec})
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		observations = append(observations, obs)
	}
	return observations, nil
}

func loadProfiles(path string) ([]domain.UserProfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var profiles []domain.UserProfile
	if err := json.Unmarshal(data, &profiles); err != nil {
		return nil, err
	}
	return profiles, nil
}
