package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/phasecast/phasecast/internal/models"
)

// DefaultRetentionDays is how long entries are kept before pruning.
const DefaultRetentionDays = 30

const schema = `
CREATE TABLE IF NOT EXISTS user_data (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id TEXT NOT NULL,
    date TEXT NOT NULL,
    rmssd_mean REAL,
    wrist_temp_mean REAL,
    estrogen REAL,
    pdg REAL,
    lh REAL,
    stress_score_mean REAL,
    oxygen_ratio_mean REAL,
    day_in_study REAL,
    predicted_phase TEXT,
    confidence REAL,
    created_at TEXT NOT NULL,
    UNIQUE(user_id, date)
);

CREATE INDEX IF NOT EXISTS idx_user_date ON user_data(user_id, date DESC);
`

// SQLiteStore implements Store on a single SQLite database file.
type SQLiteStore struct {
	db            *sql.DB
	retentionDays int

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewSQLiteStore opens (creating if necessary) the database at path and
// ensures the schema exists.
func NewSQLiteStore(path string, retentionDays int) (*SQLiteStore, error) {
	if retentionDays <= 0 {
		retentionDays = DefaultRetentionDays
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStore{
		db:            db,
		retentionDays: retentionDays,
		locks:         make(map[string]*sync.Mutex),
	}, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// userLock returns the mutex serializing writes for one user. The write path
// is a read-modify-write sequence (upsert + prune), so same-user writes must
// not interleave; different users proceed in parallel.
func (s *SQLiteStore) userLock(userID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.locks[userID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[userID] = l
	}
	return l
}

// AppendOrUpdate upserts the entry for (userID, date) and prunes entries
// older than the retention window, both inside one transaction.
//
// Pruning is measured against wall-clock time at the moment of the write, not
// against the newest stored date. Backfilling a date older than the retention
// window therefore removes the row on its own write; that behavior is
// intentional and pinned by tests.
func (s *SQLiteStore) AppendOrUpdate(userID, date string, entry models.HistoryEntry) error {
	l := s.userLock(userID)
	l.Lock()
	defer l.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	createdAt := entry.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err = tx.Exec(`
		INSERT OR REPLACE INTO user_data (
			user_id, date, rmssd_mean, wrist_temp_mean, estrogen, pdg, lh,
			stress_score_mean, oxygen_ratio_mean, day_in_study,
			predicted_phase, confidence, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		userID, date,
		entry.RMSSDMean, entry.WristTempMean, entry.Estrogen, entry.PDG,
		nullFloat(entry.LH),
		entry.StressScoreMean, entry.OxygenRatioMean, entry.DayInStudy,
		nullString(entry.PredictedPhase), nullFloat(entry.Confidence),
		createdAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert entry: %w", err)
	}

	_, err = tx.Exec(
		`DELETE FROM user_data WHERE user_id = ? AND date < date('now', ?)`,
		userID, fmt.Sprintf("-%d days", s.retentionDays),
	)
	if err != nil {
		return fmt.Errorf("failed to prune old entries: %w", err)
	}

	return tx.Commit()
}

// GetRecent returns the limit most-recent entries in ascending date order.
func (s *SQLiteStore) GetRecent(userID string, limit int) ([]models.HistoryEntry, error) {
	rows, err := s.db.Query(`
		SELECT user_id, date, rmssd_mean, wrist_temp_mean, estrogen, pdg, lh,
		       stress_score_mean, oxygen_ratio_mean, day_in_study,
		       predicted_phase, confidence, created_at
		FROM user_data
		WHERE user_id = ?
		ORDER BY date DESC
		LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var entries []models.HistoryEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read history rows: %w", err)
	}

	// Rows come back newest first; callers want chronological order.
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}

	return entries, nil
}

// Count returns the number of stored entries for the user.
func (s *SQLiteStore) Count(userID string) (int, error) {
	var n int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM user_data WHERE user_id = ?`, userID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count entries: %w", err)
	}
	return n, nil
}

// DeleteUser removes all rows for the user and returns the number deleted.
func (s *SQLiteStore) DeleteUser(userID string) (int64, error) {
	l := s.userLock(userID)
	l.Lock()
	defer l.Unlock()

	res, err := s.db.Exec(`DELETE FROM user_data WHERE user_id = ?`, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete user data: %w", err)
	}
	return res.RowsAffected()
}

// ListUsers returns the distinct user ids present in the store.
func (s *SQLiteStore) ListUsers() ([]string, error) {
	rows, err := s.db.Query(`SELECT DISTINCT user_id FROM user_data ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan user id: %w", err)
		}
		users = append(users, id)
	}
	return users, rows.Err()
}

func scanEntry(rows *sql.Rows) (models.HistoryEntry, error) {
	var e models.HistoryEntry
	var lh, confidence sql.NullFloat64
	var phase sql.NullString
	var createdAt string

	err := rows.Scan(
		&e.UserID, &e.Date, &e.RMSSDMean, &e.WristTempMean, &e.Estrogen,
		&e.PDG, &lh, &e.StressScoreMean, &e.OxygenRatioMean, &e.DayInStudy,
		&phase, &confidence, &createdAt,
	)
	if err != nil {
		return models.HistoryEntry{}, fmt.Errorf("failed to scan entry: %w", err)
	}

	if lh.Valid {
		e.LH = &lh.Float64
	}
	if phase.Valid {
		e.PredictedPhase = &phase.String
	}
	if confidence.Valid {
		e.Confidence = &confidence.Float64
	}
	if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
		e.CreatedAt = t
	}

	return e, nil
}

func nullFloat(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullString(v *string) any {
	if v == nil {
		return nil
	}
	return *v
}
