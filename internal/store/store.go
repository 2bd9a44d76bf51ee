// Package store defines the transaction journal of the simulator: an
// append-only mirror of executed orders kept for offline review.
// Implementations include in-memory (default), PostgreSQL, and a Redis
// read-through cache layered over either.
//
// The journal is write-behind: a session never restores its state from it.
package store

import (
	"context"

	"github.com/atmx/stockquest/internal/model"
)

// Journal is the persistence interface for executed transactions.
type Journal interface {
	// Append records one executed transaction for a session.
	Append(ctx context.Context, sessionID string, tx model.Transaction) error

	// List returns a session's transactions newest first. An unknown
	// session yields an empty list.
	List(ctx context.Context, sessionID string) ([]model.Transaction, error)
}
