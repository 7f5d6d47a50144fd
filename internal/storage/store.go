// Package storage persists the per-user daily timeline of readings and
// predictions that the serving engine queries for rolling-window features.
package storage

import (
	"github.com/phasecast/phasecast/internal/models"
)

// Store is the per-user history store. Writes for the same user are
// serialized by the implementation; writes for different users are
// independent.
type Store interface {
	// AppendOrUpdate upserts the entry keyed by (userID, date), fully
	// replacing any existing row, and prunes entries older than the
	// retention window as a side effect of the write.
	AppendOrUpdate(userID, date string, entry models.HistoryEntry) error

	// GetRecent returns at most limit entries in chronologically ascending
	// order, selecting the most-recent dates first. Fewer than limit entries
	// is not an error.
	GetRecent(userID string, limit int) ([]models.HistoryEntry, error)

	// Count returns the number of stored entries for the user.
	Count(userID string) (int, error)

	// DeleteUser removes every entry for the user and returns how many rows
	// were deleted. Irreversible.
	DeleteUser(userID string) (int64, error)

	// ListUsers returns the distinct user ids present in the store.
	ListUsers() ([]string, error)

	Close() error
}
