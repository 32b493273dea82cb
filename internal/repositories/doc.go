// Package repositories provides the SQLite persistence layer for transfer
// jobs and source tokens.
//
// All writes go through a [UnitOfWork], a transaction-scoped pair of
// repositories with explicit Commit/Rollback. Orchestrators open one unit
// of work per step so every committed state is observable before the next
// provider call happens.
package repositories
