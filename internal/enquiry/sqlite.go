package enquiry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const localLayout = "2006-01-02 15:04:05"

var ErrNotFound = errors.New("enquiry: not found")

// SQLiteLog is an append-only enquiry log. Local timestamps are rendered
// in loc at insert time, the way the owners read them.
type SQLiteLog struct {
	db  *sql.DB
	loc *time.Location
}

var (
	_ Recorder = (*SQLiteLog)(nil)
	_ Reader   = (*SQLiteLog)(nil)
)

func NewSQLiteLog(dbPath string, loc *time.Location) (*SQLiteLog, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if loc == nil {
		loc = time.UTC
	}
	l := &SQLiteLog{db: db, loc: loc}
	if err := l.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return l, nil
}

func (l *SQLiteLog) initSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS enquiries (
		id TEXT PRIMARY KEY,
		ts_unix INTEGER NOT NULL,
		ts_utc TEXT NOT NULL,
		ts_local TEXT NOT NULL,
		wa_number TEXT NOT NULL,
		wa_name TEXT NOT NULL DEFAULT '',
		category TEXT NOT NULL,
		unit_id TEXT NOT NULL,
		title TEXT NOT NULL,
		description TEXT NOT NULL,
		reviewed INTEGER NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_enquiries_ts ON enquiries(ts_unix);
	`
	if _, err := l.db.Exec(query); err != nil {
		return fmt.Errorf("create enquiries table: %w", err)
	}
	return nil
}

func (l *SQLiteLog) Record(ctx context.Context, r Record) error {
	ts := r.TimestampUTC.UTC()
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO enquiries (id, ts_unix, ts_utc, ts_local, wa_number, wa_name, category, unit_id, title, description)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		uuid.NewString(),
		ts.UnixNano(),
		ts.Format(time.RFC3339),
		ts.In(l.loc).Format(localLayout),
		r.SubjectID,
		r.SubjectName,
		r.Category,
		r.ListingID,
		r.ListingTitle,
		r.ListingDescription,
	)
	if err != nil {
		return fmt.Errorf("insert enquiry: %w", err)
	}
	return nil
}

// Since returns entries at or after since, newest first.
func (l *SQLiteLog) Since(ctx context.Context, since time.Time) ([]Entry, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT id, ts_unix, ts_local, wa_number, wa_name, category, unit_id, title, description, reviewed
		FROM enquiries
		WHERE ts_unix >= ?
		ORDER BY ts_unix DESC`, since.UTC().UnixNano())
	if err != nil {
		return nil, fmt.Errorf("query enquiries: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e        Entry
			tsUnix   int64
			reviewed int
		)
		if err := rows.Scan(&e.ID, &tsUnix, &e.TimestampLocal, &e.SubjectID, &e.SubjectName,
			&e.Category, &e.ListingID, &e.ListingTitle, &e.ListingDescription, &reviewed); err != nil {
			return nil, fmt.Errorf("scan enquiry: %w", err)
		}
		e.TimestampUTC = time.Unix(0, tsUnix).UTC()
		e.Reviewed = reviewed != 0
		out = append(out, e)
	}
	return out, rows.Err()
}

func (l *SQLiteLog) MarkReviewed(ctx context.Context, id string) error {
	res, err := l.db.ExecContext(ctx, `UPDATE enquiries SET reviewed = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("mark reviewed: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark reviewed: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (l *SQLiteLog) Close() error {
	return l.db.Close()
}
