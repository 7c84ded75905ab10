package storage

import (
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store wraps a SQLite database holding the message vault.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) a SQLite database in dataDir and runs pending migrations.
// Pass ":memory:" as dataDir for an in-memory database (used by tests).
func Open(dataDir string) (*Store, error) {
	var dsn string
	if dataDir == ":memory:" {
		dsn = ":memory:"
	} else {
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		dsn = filepath.Join(dataDir, "sealbox.db")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	// Limit to single connection to avoid "database is locked" errors.
	db.SetMaxOpenConns(1)

	// Set busy timeout so concurrent access waits briefly instead of failing immediately.
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting journal mode: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate reads embedded SQL migration files and applies any that haven't been run yet.
func (s *Store) migrate() error {
	// Ensure schema_version table exists (bootstrap).
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	// Sort by filename to guarantee ascending order.
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		version, err := parseMigrationVersion(entry.Name())
		if err != nil {
			return err
		}

		// Check if already applied.
		var exists int
		if err := s.db.QueryRow("SELECT COUNT(*) FROM schema_version WHERE version = ?", version).Scan(&exists); err != nil {
			return fmt.Errorf("checking migration %d: %w", version, err)
		}
		if exists > 0 {
			continue
		}

		content, err := migrationsFS.ReadFile("migrations/" + entry.Name())
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", entry.Name(), err)
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("beginning transaction for migration %d: %w", version, err)
		}

		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback()
			return fmt.Errorf("applying migration %d: %w", version, err)
		}

		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", version); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration %d: %w", version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %d: %w", version, err)
		}
	}

	return nil
}

func parseMigrationVersion(filename string) (int, error) {
	var version int
	if _, err := fmt.Sscanf(filename, "%d_", &version); err != nil {
		return 0, fmt.Errorf("parsing migration version from %q: %w", filename, err)
	}
	return version, nil
}

// AppliedMigrations returns the list of applied migration versions in ascending order.
func (s *Store) AppliedMigrations() ([]int, error) {
	rows, err := s.db.Query("SELECT version FROM schema_version ORDER BY version ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var versions []int
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

const messageColumns = "id, type, payload, mime_type, note, duration, size, created_at, delivery_at, status, prep_context"

// SaveMessage persists a new message. CreatedAt and DeliveryAt must already
// be set by the caller; they are immutable once written.
func (s *Store) SaveMessage(m Message) error {
	status := m.Status
	if status == "" {
		status = StatusPending
	}
	_, err := s.db.Exec(`
		INSERT INTO messages (`+messageColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.Type, m.Payload, m.MimeType, m.Note, m.Duration, m.Size,
		m.CreatedAt.UTC().Format(time.RFC3339), m.DeliveryAt.UTC().Format(time.RFC3339),
		status, m.PrepContext,
	)
	return err
}

// GetMessage retrieves a single message by ID.
func (s *Store) GetMessage(id string) (Message, error) {
	row := s.db.QueryRow(`SELECT `+messageColumns+` FROM messages WHERE id = ?`, id)
	m, err := scanMessage(row)
	if err == sql.ErrNoRows {
		return Message{}, ErrNotFound
	}
	return m, err
}

// ListMessages returns all messages ordered by creation date descending
// (newest first). The vault is a personal timeline, not a delivery queue,
// so delivery date does not drive the ordering.
func (s *Store) ListMessages() ([]Message, error) {
	rows, err := s.db.Query(`SELECT ` + messageColumns + ` FROM messages ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, m)
	}
	return results, rows.Err()
}

// CountMessages returns the vault tallies at the given instant: total rows,
// pending (delivery still in the future), and ready (delivery elapsed, not
// yet viewed). A viewed message past its delivery date is counted in neither
// bucket.
func (s *Store) CountMessages(now time.Time) (total, pending, ready int, err error) {
	at := now.UTC().Format(time.RFC3339)
	err = s.db.QueryRow(`
		SELECT
			COUNT(*),
			COALESCE(SUM(delivery_at > ?), 0),
			COALESCE(SUM(delivery_at <= ? AND status != ?), 0)
		FROM messages`, at, at, StatusViewed,
	).Scan(&total, &pending, &ready)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("counting messages: %w", err)
	}
	return total, pending, ready, nil
}

// ViewMessage returns the message and transitions it to viewed, atomically.
// It fails with ErrNotFound if the id is absent and ErrNotReady if the
// delivery date has not elapsed at now. Viewing an already-viewed message
// succeeds and returns it again; the transition is idempotent and only ever
// moves forward.
func (s *Store) ViewMessage(id string, now time.Time) (Message, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return Message{}, fmt.Errorf("beginning view transaction: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRow(`SELECT `+messageColumns+` FROM messages WHERE id = ?`, id)
	m, err := scanMessage(row)
	if err == sql.ErrNoRows {
		return Message{}, ErrNotFound
	}
	if err != nil {
		return Message{}, err
	}

	if !m.Ready(now) {
		return Message{}, ErrNotReady
	}

	if m.Status != StatusViewed {
		if _, err := tx.Exec(`UPDATE messages SET status = ? WHERE id = ?`, StatusViewed, id); err != nil {
			return Message{}, fmt.Errorf("marking message viewed: %w", err)
		}
		m.Status = StatusViewed
	}

	if err := tx.Commit(); err != nil {
		return Message{}, fmt.Errorf("committing view: %w", err)
	}
	return m, nil
}

// DeleteMessage removes a message unconditionally, regardless of status.
// There is no soft-delete and no recovery.
func (s *Store) DeleteMessage(id string) error {
	res, err := s.db.Exec(`DELETE FROM messages WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMessage(row rowScanner) (Message, error) {
	var m Message
	var createdAt, deliveryAt string
	err := row.Scan(&m.ID, &m.Type, &m.Payload, &m.MimeType, &m.Note, &m.Duration,
		&m.Size, &createdAt, &deliveryAt, &m.Status, &m.PrepContext)
	if err != nil {
		return Message{}, err
	}
	if m.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return Message{}, fmt.Errorf("parsing created_at: %w", err)
	}
	if m.DeliveryAt, err = time.Parse(time.RFC3339, deliveryAt); err != nil {
		return Message{}, fmt.Errorf("parsing delivery_at: %w", err)
	}
	return m, nil
}
