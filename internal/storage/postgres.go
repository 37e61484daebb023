// Package storage persists incidents and crawler sources in Postgres and
// keeps the local processed-URL cache.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pth-in/cprn/internal/logger"
)

// SourceRef is one report backing an incident. An incident accumulates a
// SourceRef per outlet that covered it.
type SourceRef struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Incident is a persisted, deduplicated event.
type Incident struct {
	ID           int64
	Title        string
	IncidentDate time.Time
	Description  string
	Summary      string
	LocationRaw  string
	Sources      []SourceRef
	IsVerified   bool
	ImageURL     string
}

// CrawlerSource is a database-managed feed or social handle.
type CrawlerSource struct {
	ID          int64
	Name        string
	SourceType  string
	URLOrHandle string
}

// IncidentUpdate carries the fields a merge may change. Nil pointers leave
// the stored value alone.
type IncidentUpdate struct {
	Sources     []SourceRef
	ImageURL    *string
	Summary     *string
	Description *string
	LocationRaw *string
}

type Store struct {
	pool *pgxpool.Pool
}

// New connects to Postgres, verifies the connection, and ensures the schema
// exists.
func New(ctx context.Context, connString string) (*Store, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("creating pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	s := &Store{pool: pool}
	if err := s.initSchema(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}

	logger.Info("database connected")
	return s, nil
}

func (s *Store) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS incidents (
		id BIGSERIAL PRIMARY KEY,
		title TEXT NOT NULL,
		incident_date TIMESTAMPTZ NOT NULL,
		description TEXT,
		summary TEXT,
		location_raw TEXT,
		sources JSONB NOT NULL DEFAULT '[]'::jsonb,
		is_verified BOOLEAN NOT NULL DEFAULT FALSE,
		image_url TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_incidents_date ON incidents (incident_date);
	CREATE INDEX IF NOT EXISTS idx_incidents_sources ON incidents USING GIN (sources jsonb_path_ops);

	CREATE TABLE IF NOT EXISTS crawler_sources (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL,
		source_type TEXT NOT NULL,
		url_or_handle TEXT NOT NULL UNIQUE,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`

	_, err := s.pool.Exec(ctx, schema)
	return err
}

// ActiveSources returns enabled crawler sources, optionally filtered by type
// ("rss" or "social"). An empty sourceType returns all active sources.
func (s *Store) ActiveSources(ctx context.Context, sourceType string) ([]CrawlerSource, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, source_type, url_or_handle
		FROM crawler_sources
		WHERE is_active = TRUE AND ($1 = '' OR source_type = $1)
		ORDER BY id`, sourceType)
	if err != nil {
		return nil, fmt.Errorf("querying sources: %w", err)
	}
	defer rows.Close()

	var sources []CrawlerSource
	for rows.Next() {
		var src CrawlerSource
		if err := rows.Scan(&src.ID, &src.Name, &src.SourceType, &src.URLOrHandle); err != nil {
			return nil, fmt.Errorf("scanning source: %w", err)
		}
		sources = append(sources, src)
	}
	return sources, rows.Err()
}

// RecentIncidents returns incidents dated at or after since, newest first.
// This is the clustering candidate set.
func (s *Store) RecentIncidents(ctx context.Context, since time.Time) ([]Incident, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, title, incident_date,
		       COALESCE(description, ''), COALESCE(summary, ''),
		       COALESCE(location_raw, ''), sources, is_verified,
		       COALESCE(image_url, '')
		FROM incidents
		WHERE incident_date >= $1
		ORDER BY incident_date DESC`, since)
	if err != nil {
		return nil, fmt.Errorf("querying recent incidents: %w", err)
	}
	defer rows.Close()

	var incidents []Incident
	for rows.Next() {
		inc, err := scanIncident(rows)
		if err != nil {
			return nil, err
		}
		incidents = append(incidents, inc)
	}
	return incidents, rows.Err()
}

// FindBySourceURL returns the incident already carrying url as a source, or
// nil when none does. Matching uses JSONB containment so the GIN index on
// sources is used.
func (s *Store) FindBySourceURL(ctx context.Context, url string) (*Incident, error) {
	probe, err := json.Marshal([]map[string]string{{"url": url}})
	if err != nil {
		return nil, err
	}

	row := s.pool.QueryRow(ctx, `
		SELECT id, title, incident_date,
		       COALESCE(description, ''), COALESCE(summary, ''),
		       COALESCE(location_raw, ''), sources, is_verified,
		       COALESCE(image_url, '')
		FROM incidents
		WHERE sources @> $1::jsonb
		LIMIT 1`, string(probe))

	inc, err := scanIncident(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("finding incident by url: %w", err)
	}
	return &inc, nil
}

// InsertIncident stores one incident and returns its id.
func (s *Store) InsertIncident(ctx context.Context, inc *Incident) (int64, error) {
	sources, err := json.Marshal(inc.Sources)
	if err != nil {
		return 0, fmt.Errorf("encoding sources: %w", err)
	}

	var id int64
	err = s.pool.QueryRow(ctx, `
		INSERT INTO incidents (title, incident_date, description, summary,
			location_raw, sources, is_verified, image_url)
		VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), NULLIF($5, ''),
			$6::jsonb, $7, NULLIF($8, ''))
		RETURNING id`,
		inc.Title, inc.IncidentDate, inc.Description, inc.Summary,
		inc.LocationRaw, string(sources), inc.IsVerified, inc.ImageURL,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("inserting incident: %w", err)
	}
	return id, nil
}

// InsertIncidents stores a batch in one round trip. A failing row is logged
// and skipped; the ids of the inserted rows are returned.
func (s *Store) InsertIncidents(ctx context.Context, incidents []*Incident) ([]int64, error) {
	if len(incidents) == 0 {
		return nil, nil
	}

	batch := &pgx.Batch{}
	for _, inc := range incidents {
		sources, err := json.Marshal(inc.Sources)
		if err != nil {
			return nil, fmt.Errorf("encoding sources: %w", err)
		}
		batch.Queue(`
			INSERT INTO incidents (title, incident_date, description, summary,
				location_raw, sources, is_verified, image_url)
			VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), NULLIF($5, ''),
				$6::jsonb, $7, NULLIF($8, ''))
			RETURNING id`,
			inc.Title, inc.IncidentDate, inc.Description, inc.Summary,
			inc.LocationRaw, string(sources), inc.IsVerified, inc.ImageURL)
	}

	results := s.pool.SendBatch(ctx, batch)
	defer results.Close()

	var ids []int64
	for _, inc := range incidents {
		var id int64
		if err := results.QueryRow().Scan(&id); err != nil {
			logger.Error("batch insert row failed", "title", inc.Title, "error", err)
			continue
		}
		inc.ID = id
		ids = append(ids, id)
	}
	return ids, nil
}

// UpdateIncident applies a merge to an existing incident. Only the fields
// present in the update are written.
func (s *Store) UpdateIncident(ctx context.Context, id int64, upd IncidentUpdate) error {
	sets := []string{}
	args := []interface{}{}
	argN := 1

	if upd.Sources != nil {
		sources, err := json.Marshal(upd.Sources)
		if err != nil {
			return fmt.Errorf("encoding sources: %w", err)
		}
		sets = append(sets, fmt.Sprintf("sources = $%d::jsonb", argN))
		args = append(args, string(sources))
		argN++
	}
	if upd.ImageURL != nil {
		sets = append(sets, fmt.Sprintf("image_url = NULLIF($%d, '')", argN))
		args = append(args, *upd.ImageURL)
		argN++
	}
	if upd.Summary != nil {
		sets = append(sets, fmt.Sprintf("summary = NULLIF($%d, '')", argN))
		args = append(args, *upd.Summary)
		argN++
	}
	if upd.Description != nil {
		sets = append(sets, fmt.Sprintf("description = NULLIF($%d, '')", argN))
		args = append(args, *upd.Description)
		argN++
	}
	if upd.LocationRaw != nil {
		sets = append(sets, fmt.Sprintf("location_raw = NULLIF($%d, '')", argN))
		args = append(args, *upd.LocationRaw)
		argN++
	}

	if len(sets) == 0 {
		return nil
	}

	args = append(args, id)
	query := fmt.Sprintf("UPDATE incidents SET %s WHERE id = $%d", strings.Join(sets, ", "), argN)

	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("updating incident %d: %w", id, err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Store) Close() {
	s.pool.Close()
}

func scanIncident(row pgx.Row) (Incident, error) {
	var inc Incident
	var sources []byte
	err := row.Scan(&inc.ID, &inc.Title, &inc.IncidentDate, &inc.Description,
		&inc.Summary, &inc.LocationRaw, &sources, &inc.IsVerified, &inc.ImageURL)
	if err != nil {
		return inc, err
	}
	if len(sources) > 0 {
		if err := json.Unmarshal(sources, &inc.Sources); err != nil {
			return inc, fmt.Errorf("decoding sources: %w", err)
		}
	}
	return inc, nil
}
