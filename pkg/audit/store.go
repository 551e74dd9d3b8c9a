package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	_ "github.com/lib/pq"
)

const saveTimeout = 5 * time.Second

// Store writes events to the messages table of the audit database and
// reads them back.
type Store struct {
	db       *sql.DB
	hostname string
	procid   string
	now      func() time.Time
}

// Entry is a stored event. Data holds the structured data keyed by SD-ID.
type Entry struct {
	ID        int64
	Timestamp time.Time
	Severity  Severity
	MsgID     string
	Data      map[string]map[string]string
	Message   string
}

// Subject returns the subject parameters of the entry.
func (e Entry) Subject() map[string]string {
	return e.Data[SDIDSubject]
}

// NewStore opens the audit database at dbURL.
// Returns nil if dbURL is empty (audit DB disabled).
func NewStore(dbURL string) (*Store, error) {
	if dbURL == "" {
		return nil, nil
	}

	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		return nil, err
	}
	return NewStoreWithDB(db), nil
}

// NewStoreWithDB wraps an open connection, such as a sqlmock one.
func NewStoreWithDB(db *sql.DB) *Store {
	hostname, _ := os.Hostname()
	return &Store{
		db:       db,
		hostname: hostname,
		procid:   strconv.Itoa(os.Getpid()),
		now:      time.Now,
	}
}

// Close closes the database connection
func (s *Store) Close() error {
	if s != nil && s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Save persists an audit event. A nil store discards it.
func (s *Store) Save(event Event) error {
	if s == nil || s.db == nil {
		return nil
	}

	data, err := json.Marshal(event.StructuredData())
	if err != nil {
		return fmt.Errorf("encode structured data: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO messages (facility, severity, timestamp, hostname, appname, procid, msgid, sdata, message)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		event.Facility(),
		int(event.Severity()),
		s.now().UTC(),
		s.hostname,
		AppName,
		s.procid,
		event.MessageID(),
		data,
		event.Message(),
	)
	return err
}

// Recent returns up to limit entries, newest first. A non-empty msgid keeps
// only entries of that kind.
func (s *Store) Recent(ctx context.Context, msgid string, limit int) ([]Entry, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, timestamp, severity, msgid, sdata, message
		FROM messages
		WHERE appname = $1 AND ($2 = '' OR msgid = $2)
		ORDER BY timestamp DESC, id DESC
		LIMIT $3`,
		AppName, msgid, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e        Entry
			severity int
			data     []byte
		)
		if err := rows.Scan(&e.ID, &e.Timestamp, &severity, &e.MsgID, &data, &e.Message); err != nil {
			return nil, err
		}
		e.Severity = Severity(severity)
		if len(data) > 0 {
			if err := json.Unmarshal(data, &e.Data); err != nil {
				return nil, fmt.Errorf("decode structured data of message %d: %w", e.ID, err)
			}
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
