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

// Store wraps a SQLite database holding generated profiles.
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
		dsn = filepath.Join(dataDir, "perfil.db")
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

const profileColumns = `id, auth_user_id, slug, display_name, username, email, pdf_text, profile_json, profile_html, created_at, updated_at`

// SaveProfile inserts a profile, or replaces the existing row for the same
// auth user while keeping its original id, slug, and created_at.
func (s *Store) SaveProfile(p Profile) error {
	now := time.Now().UTC().Format(time.RFC3339)
	created := now
	if !p.CreatedAt.IsZero() {
		created = p.CreatedAt.UTC().Format(time.RFC3339)
	}
	_, err := s.db.Exec(`
		INSERT INTO profiles (`+profileColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(auth_user_id) DO UPDATE SET
			display_name = excluded.display_name,
			username = excluded.username,
			email = excluded.email,
			pdf_text = excluded.pdf_text,
			profile_json = excluded.profile_json,
			profile_html = excluded.profile_html,
			updated_at = excluded.updated_at`,
		p.ID, p.AuthUserID, p.Slug, p.DisplayName, p.Username, p.Email,
		p.PDFText, p.ProfileJSON, p.ProfileHTML, created, now,
	)
	return err
}

// GetProfileByAuthID returns the profile owned by the given auth user.
func (s *Store) GetProfileByAuthID(authUserID string) (Profile, error) {
	return s.getProfile("auth_user_id", authUserID)
}

// GetProfileBySlug returns the profile published under the given slug.
func (s *Store) GetProfileBySlug(slug string) (Profile, error) {
	return s.getProfile("slug", slug)
}

func (s *Store) getProfile(column, value string) (Profile, error) {
	var p Profile
	var createdAt, updatedAt string
	err := s.db.QueryRow(
		`SELECT `+profileColumns+` FROM profiles WHERE `+column+` = ?`, value,
	).Scan(&p.ID, &p.AuthUserID, &p.Slug, &p.DisplayName, &p.Username, &p.Email,
		&p.PDFText, &p.ProfileJSON, &p.ProfileHTML, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return Profile{}, ErrNotFound
	}
	if err != nil {
		return Profile{}, err
	}
	if p.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return Profile{}, fmt.Errorf("parsing created_at: %w", err)
	}
	if p.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt); err != nil {
		return Profile{}, fmt.Errorf("parsing updated_at: %w", err)
	}
	return p, nil
}

// UpdateProfileJSON replaces the structured document for the given auth user.
func (s *Store) UpdateProfileJSON(authUserID, profileJSON string) error {
	return s.updateColumn(authUserID, "profile_json", profileJSON)
}

// UpdateProfileHTML replaces the rendered markup for the given auth user.
func (s *Store) UpdateProfileHTML(authUserID, profileHTML string) error {
	return s.updateColumn(authUserID, "profile_html", profileHTML)
}

func (s *Store) updateColumn(authUserID, column, value string) error {
	now := time.Now().UTC().Format(time.RFC3339)
	res, err := s.db.Exec(
		`UPDATE profiles SET `+column+` = ?, updated_at = ? WHERE auth_user_id = ?`,
		value, now, authUserID,
	)
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

// ListProfiles returns the most recently updated profiles.
func (s *Store) ListProfiles(limit int) ([]Profile, error) {
	rows, err := s.db.Query(
		`SELECT `+profileColumns+` FROM profiles ORDER BY updated_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []Profile
	for rows.Next() {
		var p Profile
		var createdAt, updatedAt string
		if err := rows.Scan(&p.ID, &p.AuthUserID, &p.Slug, &p.DisplayName, &p.Username, &p.Email,
			&p.PDFText, &p.ProfileJSON, &p.ProfileHTML, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		if p.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		if p.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt); err != nil {
			return nil, fmt.Errorf("parsing updated_at: %w", err)
		}
		results = append(results, p)
	}
	return results, rows.Err()
}
