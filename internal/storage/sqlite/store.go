// Package sqlite provides a SQLite-backed roll log.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	sqlitemigrate "github.com/louisbranch/dicenotation/internal/platform/storage/sqlitemigrate"
	"github.com/louisbranch/dicenotation/internal/storage"
	"github.com/louisbranch/dicenotation/internal/storage/cursor"
	"github.com/louisbranch/dicenotation/internal/storage/sqlite/migrations"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

// DefaultListLimit caps ListRolls when the caller passes no limit.
const DefaultListLimit = 20

// MaxListLimit is the largest page ListRolls returns.
const MaxListLimit = 200

// Store persists roll records in SQLite.
type Store struct {
	sqlDB *sql.DB
	now   func() time.Time
}

var _ storage.RollLog = (*Store)(nil)

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens a SQLite roll log and applies embedded migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := sqlitemigrate.Apply(context.Background(), sqlDB, migrations.FS, ""); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB, now: time.Now}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// AppendRoll inserts one record. A missing ID or timestamp is filled in and
// the stored record is returned.
func (s *Store) AppendRoll(ctx context.Context, record storage.RollRecord) (storage.RollRecord, error) {
	if err := ctx.Err(); err != nil {
		return storage.RollRecord{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.RollRecord{}, fmt.Errorf("storage is not configured")
	}
	record.Expression = strings.TrimSpace(record.Expression)
	if record.Expression == "" {
		return storage.RollRecord{}, fmt.Errorf("expression is required")
	}
	if strings.TrimSpace(record.ID) == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = s.now()
	}
	record.CreatedAt = fromMillis(toMillis(record.CreatedAt))

	var passed sql.NullBool
	if record.Passed != nil {
		passed = sql.NullBool{Bool: *record.Passed, Valid: true}
	}

	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO rolls (
		   id,
		   expression,
		   value,
		   passed,
		   detail,
		   locale,
		   seed,
		   seed_source,
		   created_at
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID,
		record.Expression,
		record.Value,
		passed,
		record.Detail,
		record.Locale,
		record.Seed,
		record.SeedSource,
		toMillis(record.CreatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.RollRecord{}, storage.ErrAlreadyExists
		}
		return storage.RollRecord{}, fmt.Errorf("append roll: %w", err)
	}
	return record, nil
}

// GetRoll returns one record by ID.
func (s *Store) GetRoll(ctx context.Context, id string) (storage.RollRecord, error) {
	if err := ctx.Err(); err != nil {
		return storage.RollRecord{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.RollRecord{}, fmt.Errorf("storage is not configured")
	}
	row := s.sqlDB.QueryRowContext(ctx, selectRolls+` WHERE id = ?`, strings.TrimSpace(id))
	record, err := scanRoll(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.RollRecord{}, storage.ErrNotFound
		}
		return storage.RollRecord{}, fmt.Errorf("get roll: %w", err)
	}
	return record, nil
}

// ListRolls returns up to limit records, newest first.
func (s *Store) ListRolls(ctx context.Context, limit int) ([]storage.RollRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	if limit <= 0 {
		limit = DefaultListLimit
	}
	limit = min(limit, MaxListLimit)

	rows, err := s.sqlDB.QueryContext(ctx, selectRolls+` ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list rolls: %w", err)
	}
	defer rows.Close()

	records := make([]storage.RollRecord, 0, limit)
	for rows.Next() {
		record, err := scanRoll(rows)
		if err != nil {
			return nil, fmt.Errorf("scan roll: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rolls: %w", err)
	}
	return records, nil
}

// ListRollPage returns one page of records in insertion order, newest first.
func (s *Store) ListRollPage(ctx context.Context, req storage.RollPageRequest) (storage.RollPage, error) {
	if err := ctx.Err(); err != nil {
		return storage.RollPage{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.RollPage{}, fmt.Errorf("storage is not configured")
	}
	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = DefaultListLimit
	}
	pageSize = min(pageSize, MaxListLimit)
	filter := strings.TrimSpace(req.Expression)

	query := `SELECT rowid, ` + rollColumns + ` FROM rolls WHERE 1 = 1`
	var args []any
	if filter != "" {
		query += ` AND expression = ?`
		args = append(args, filter)
	}
	if token := strings.TrimSpace(req.PageToken); token != "" {
		c, err := cursor.Decode(token)
		if err != nil {
			return storage.RollPage{}, fmt.Errorf("%w: %v", storage.ErrInvalidPageToken, err)
		}
		if err := cursor.ValidateFilterHash(c, filter); err != nil {
			return storage.RollPage{}, fmt.Errorf("%w: %v", storage.ErrInvalidPageToken, err)
		}
		query += ` AND rowid < ?`
		args = append(args, int64(c.Seq))
	}
	query += ` ORDER BY rowid DESC LIMIT ?`
	args = append(args, pageSize+1)

	rows, err := s.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return storage.RollPage{}, fmt.Errorf("list roll page: %w", err)
	}
	defer rows.Close()

	page := storage.RollPage{Records: make([]storage.RollRecord, 0, pageSize)}
	var lastSeq int64
	for rows.Next() {
		var seq int64
		record, err := scanRoll(rows, &seq)
		if err != nil {
			return storage.RollPage{}, fmt.Errorf("scan roll: %w", err)
		}
		if len(page.Records) == pageSize {
			token, err := cursor.Encode(cursor.NewNextPageCursor(uint64(lastSeq), filter))
			if err != nil {
				return storage.RollPage{}, err
			}
			page.NextPageToken = token
			break
		}
		page.Records = append(page.Records, record)
		lastSeq = seq
	}
	if err := rows.Err(); err != nil {
		return storage.RollPage{}, fmt.Errorf("iterate rolls: %w", err)
	}
	return page, nil
}

const rollColumns = `id, expression, value, passed, detail, locale, seed, seed_source, created_at`

const selectRolls = `SELECT ` + rollColumns + ` FROM rolls`

type rowScanner interface {
	Scan(dest ...any) error
}

// scanRoll reads the roll columns after any leading columns in lead.
func scanRoll(row rowScanner, lead ...any) (storage.RollRecord, error) {
	var (
		record    storage.RollRecord
		passed    sql.NullBool
		createdAt int64
	)
	dest := append(lead,
		&record.ID,
		&record.Expression,
		&record.Value,
		&passed,
		&record.Detail,
		&record.Locale,
		&record.Seed,
		&record.SeedSource,
		&createdAt,
	)
	if err := row.Scan(dest...); err != nil {
		return storage.RollRecord{}, err
	}
	if passed.Valid {
		v := passed.Bool
		record.Passed = &v
	}
	record.CreatedAt = fromMillis(createdAt)
	return record, nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr *msqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	switch sqliteErr.Code() {
	case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
		return true
	default:
		return false
	}
}
