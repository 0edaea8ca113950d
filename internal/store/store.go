package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver
	"github.com/mattn/go-sqlite3"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrSessionEnded = errors.New("work session already ended")
)

type dialect int

const (
	dialectSQLite dialect = iota
	dialectPostgres
)

type Store struct {
	db      *sql.DB
	dialect dialect
}

// New opens the database named by dsn. postgres:// and postgresql:// URLs
// select PostgreSQL, anything else is treated as a SQLite path.
func New(dsn string) (*Store, error) {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return NewPostgresStore(dsn)
	}
	return NewSQLiteStore(dsn)
}

func NewSQLiteStore(dataSourceName string) (*Store, error) {
	db, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection serializes writers and keeps :memory: databases alive.
	db.SetMaxOpenConns(1)

	if err = db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err = db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}
	return open(db, dialectSQLite)
}

func NewPostgresStore(url string) (*Store, error) {
	db, err := sql.Open("pgx", url)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err = db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return open(db, dialectPostgres)
}

func open(db *sql.DB, d dialect) (*Store, error) {
	s := &Store{db: db, dialect: d}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) initSchema() error {
	idColumn, timeType := "INTEGER PRIMARY KEY AUTOINCREMENT", "DATETIME"
	if s.dialect == dialectPostgres {
		idColumn, timeType = "BIGSERIAL PRIMARY KEY", "TIMESTAMPTZ"
	}

	statements := []string{
		`CREATE TABLE IF NOT EXISTS users (
            id ` + idColumn + `,
            username TEXT UNIQUE NOT NULL,
            password TEXT NOT NULL,
            email TEXT NOT NULL DEFAULT '',
            name TEXT NOT NULL DEFAULT '',
            avatar TEXT
        )`,
		`CREATE TABLE IF NOT EXISTS projects (
            id ` + idColumn + `,
            name TEXT NOT NULL,
            description TEXT,
            type TEXT NOT NULL,
            user_id BIGINT NOT NULL,
            status TEXT NOT NULL DEFAULT 'active',
            progress INTEGER NOT NULL DEFAULT 0,
            deadline TEXT,
            ai_assistance_enabled BOOLEAN NOT NULL DEFAULT FALSE,
            created_at ` + timeType + ` NOT NULL,
            color_code TEXT NOT NULL,
            icon TEXT,
            files INTEGER NOT NULL DEFAULT 0,
            time_logged INTEGER NOT NULL DEFAULT 0
        )`,
		`CREATE INDEX IF NOT EXISTS idx_projects_user ON projects (user_id)`,
		`CREATE TABLE IF NOT EXISTS project_templates (
            id ` + idColumn + `,
            name TEXT NOT NULL,
            type TEXT NOT NULL,
            sections TEXT NOT NULL
        )`,
		`CREATE TABLE IF NOT EXISTS work_sessions (
            id ` + idColumn + `,
            user_id BIGINT NOT NULL,
            project_id BIGINT,
            start_time ` + timeType + ` NOT NULL,
            end_time ` + timeType + `,
            duration INTEGER,
            type TEXT NOT NULL,
            notes TEXT,
            is_flow_state BOOLEAN NOT NULL DEFAULT FALSE
        )`,
		// At most one active session per user.
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_work_sessions_active ON work_sessions (user_id) WHERE end_time IS NULL`,
		`CREATE INDEX IF NOT EXISTS idx_work_sessions_project ON work_sessions (project_id)`,
		`CREATE TABLE IF NOT EXISTS recommendations (
            id ` + idColumn + `,
            user_id BIGINT NOT NULL,
            type TEXT NOT NULL,
            title TEXT NOT NULL,
            description TEXT NOT NULL,
            icon TEXT NOT NULL,
            action_text TEXT NOT NULL,
            secondary_action_text TEXT,
            is_completed BOOLEAN NOT NULL DEFAULT FALSE,
            created_at ` + timeType + ` NOT NULL
        )`,
		`CREATE TABLE IF NOT EXISTS assistant_messages (
            id ` + idColumn + `,
            user_id BIGINT NOT NULL,
            project_id BIGINT,
            content TEXT NOT NULL,
            sender TEXT NOT NULL CHECK (sender IN ('user', 'assistant')),
            provider TEXT,
            timestamp ` + timeType + ` NOT NULL
        )`,
		`CREATE INDEX IF NOT EXISTS idx_assistant_messages_user ON assistant_messages (user_id, project_id, timestamp)`,
		`CREATE TABLE IF NOT EXISTS daily_analytics (
            id ` + idColumn + `,
            user_id BIGINT NOT NULL,
            date TEXT NOT NULL,
            focus_time INTEGER NOT NULL DEFAULT 0,
            flow_states INTEGER NOT NULL DEFAULT 0,
            productivity INTEGER NOT NULL DEFAULT 0
        )`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_daily_analytics_day ON daily_analytics (user_id, date)`,
		`CREATE TABLE IF NOT EXISTS project_files (
            id ` + idColumn + `,
            project_id BIGINT NOT NULL,
            user_id BIGINT NOT NULL,
            filename TEXT NOT NULL,
            content_type TEXT NOT NULL,
            size BIGINT NOT NULL,
            storage_path TEXT NOT NULL,
            uploaded_at ` + timeType + ` NOT NULL
        )`,
		`CREATE INDEX IF NOT EXISTS idx_project_files_project ON project_files (project_id)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// rebind rewrites ? placeholders to $n for PostgreSQL.
func (s *Store) rebind(query string) string {
	if s.dialect != dialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return false
}

func checkAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
