package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/apexcost/riskengine/internal/engine"
	"github.com/apexcost/riskengine/internal/estimate"
)

// ErrRunNotFound is returned when a run id has no record.
var ErrRunNotFound = errors.New("run not found")

// RunRecord is one persisted simulation run.
type RunRecord struct {
	ID         string
	InputHash  string
	Seed       uint64
	Iterations int
	Estimate   estimate.Estimate
	Config     engine.Config
	ResultJSON []byte // canonical result serialization
	ResultHash string
	CreatedAt  time.Time
}

// NewRunID generates a time-sortable UUIDv7 run id.
// Panics if UUID generation fails (should never happen in practice).
func NewRunID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// WriteRun persists a completed run. ON CONFLICT(id) DO NOTHING keeps
// the ledger append-only and writes idempotent.
func (s *Store) WriteRun(ctx context.Context, rec RunRecord) error {
	estJSON, err := json.Marshal(rec.Estimate)
	if err != nil {
		return fmt.Errorf("write run: marshal estimate: %w", err)
	}
	cfgJSON, err := json.Marshal(rec.Config)
	if err != nil {
		return fmt.Errorf("write run: marshal config: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO runs
		(id, input_hash, seed, iterations, estimate, config, result, result_hash, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		rec.ID,
		rec.InputHash,
		strconv.FormatUint(rec.Seed, 10),
		rec.Iterations,
		string(estJSON),
		string(cfgJSON),
		string(rec.ResultJSON),
		rec.ResultHash,
		rec.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("write run: %w", err)
	}
	return nil
}

// ReadRun loads one run by id. Returns ErrRunNotFound when absent.
func (s *Store) ReadRun(ctx context.Context, id string) (RunRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, input_hash, seed, iterations, estimate, config, result, result_hash, created_at
		FROM runs WHERE id = ?
	`, id)
	return scanRun(row)
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, input_hash, seed, iterations, estimate, config, result, result_hash, created_at
		FROM runs ORDER BY created_at DESC, id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var recs []RunRecord
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (RunRecord, error) {
	var (
		rec        RunRecord
		seedStr    string
		estJSON    string
		cfgJSON    string
		resultJSON string
		createdAt  string
	)
	err := row.Scan(&rec.ID, &rec.InputHash, &seedStr, &rec.Iterations,
		&estJSON, &cfgJSON, &resultJSON, &rec.ResultHash, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return RunRecord{}, ErrRunNotFound
	}
	if err != nil {
		return RunRecord{}, fmt.Errorf("scan run: %w", err)
	}

	rec.Seed, err = strconv.ParseUint(seedStr, 10, 64)
	if err != nil {
		return RunRecord{}, fmt.Errorf("scan run %s: bad seed %q: %w", rec.ID, seedStr, err)
	}
	if err := json.Unmarshal([]byte(estJSON), &rec.Estimate); err != nil {
		return RunRecord{}, fmt.Errorf("scan run %s: estimate: %w", rec.ID, err)
	}
	if err := json.Unmarshal([]byte(cfgJSON), &rec.Config); err != nil {
		return RunRecord{}, fmt.Errorf("scan run %s: config: %w", rec.ID, err)
	}
	rec.ResultJSON = []byte(resultJSON)
	rec.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return RunRecord{}, fmt.Errorf("scan run %s: created_at: %w", rec.ID, err)
	}
	return rec, nil
}
