package store

import (
	"context"
	"fmt"

	"github.com/apexcost/riskengine/internal/engine"
)

// ReplayReport is the outcome of re-executing a stored run.
type ReplayReport struct {
	RunID        string
	Identical    bool
	StoredHash   string
	ReplayedHash string
}

// Replay re-executes a stored run from its persisted inputs and seed
// and compares result hashes byte for byte.
//
// The end-to-end audit invariant: any stored percentile must be exactly
// regenerable by replaying the same inputs and seed. A hash mismatch
// means either the stored record was tampered with or the engine's
// numeric behavior changed; both require investigation, neither is a
// tolerance question.
func (s *Store) Replay(ctx context.Context, id string) (*ReplayReport, error) {
	rec, err := s.ReadRun(ctx, id)
	if err != nil {
		return nil, err
	}

	cfg := rec.Config
	cfg.Seed = &rec.Seed
	res, err := engine.Run(ctx, &rec.Estimate, cfg)
	if err != nil {
		return nil, fmt.Errorf("replay run %s: %w", id, err)
	}

	hash, err := res.Hash()
	if err != nil {
		return nil, fmt.Errorf("replay run %s: %w", id, err)
	}

	return &ReplayReport{
		RunID:        id,
		Identical:    hash == rec.ResultHash,
		StoredHash:   rec.ResultHash,
		ReplayedHash: hash,
	}, nil
}
