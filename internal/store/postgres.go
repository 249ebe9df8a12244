package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/therealdaud/HealthShield/internal/domain"
)

// PostgresStore serves user profiles and persists heat index results.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects a pool for the given DSN.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// Ping verifies database connectivity, for startup checks.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

const profilesQuery = `
SELECT user_id, location_id, activity, clothing, acclimatization, health_sensitive, trigger_override
FROM user_profiles
WHERE location_id = $1`

// ProfilesForLocation returns every profile subscribed to the location.
// Rows with an unparseable trigger override keep the default trigger rather
// than dropping the user.
func (s *PostgresStore) ProfilesForLocation(ctx context.Context, locationID string) ([]domain.UserProfile, error) {
	rows, err := s.pool.Query(ctx, profilesQuery, locationID)
	if err != nil {
		return nil, fmt.Errorf("query profiles for %s: %v: %w", locationID, err, domain.ErrStorageUnavailable)
	}
	defer rows.Close()

	var profiles []domain.UserProfile
	for rows.Next() {
		var (
			p        domain.UserProfile
			override *string
		)
		if err := rows.Scan(&p.UserID, &p.LocationID, &p.Activity, &p.Clothing, &p.Acclimatization, &p.HealthSensitive, &override); err != nil {
			return nil, fmt.Errorf("scan profile row: %v: %w", err, domain.ErrStorageUnavailable)
		}
		if override != nil {
			if level, err := domain.ParseRiskLevel(*override); err == nil {
				p.TriggerOverride = &level
			}
		}
		profiles = append(profiles, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate profile rows: %v: %w", err, domain.ErrStorageUnavailable)
	}
	return profiles, nil
}

const insertResult = `
INSERT INTO heat_index_results (id, user_id, location_id, observed_at, ambient_c, baseline_index_c, personalized_index_c, risk_level)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (id) DO NOTHING`

// SaveResults writes the batch in one round trip. Result IDs are
// deterministic, so replays collapse into no-ops instead of duplicate rows.
func (s *PostgresStore) SaveResults(ctx context.Context, results []domain.HeatIndexResult) error {
	if len(results) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, r := range results {
		batch.Queue(insertResult,
			r.ID(), r.UserID, r.LocationID, r.Timestamp,
			r.AmbientC, r.BaselineIndexC, r.PersonalizedIndexC, r.Risk.String())
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range results {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("insert result batch: %v: %w", err, domain.ErrStorageUnavailable)
		}
	}
	return nil
}
