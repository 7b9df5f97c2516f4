// Package store is the engine's replay-audit ledger.
//
// Every persisted run carries the canonical input hash, the seed, the
// canonical result JSON, and the result hash. Replaying a stored run
// means re-executing the simulation from its inputs and seed and
// comparing result hashes byte for byte; a mismatch is an audit
// failure, not a tolerance question.
//
// SQLite with WAL mode, single writer. The ledger is the engine's own
// audit surface, not the estimating platform's persistence schema.
package store
