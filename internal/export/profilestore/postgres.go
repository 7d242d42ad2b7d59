package profilestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/yapvoice/yap/internal/export"
)

// Schema is the SQL DDL for the export_profiles table. Execute it via
// [PostgresStore.Migrate] or apply it manually during deployment.
const Schema = `
CREATE TABLE IF NOT EXISTS export_profiles (
    id           TEXT PRIMARY KEY,
    name         TEXT NOT NULL,
    kind         TEXT NOT NULL,
    payload_mode TEXT NOT NULL DEFAULT '',
    url          TEXT NOT NULL DEFAULT '',
    method       TEXT NOT NULL DEFAULT '',
    headers      TEXT NOT NULL DEFAULT '',
    mode         TEXT NOT NULL DEFAULT '',
    gitlab_url   TEXT NOT NULL DEFAULT '',
    project_id   TEXT NOT NULL DEFAULT '',
    branch       TEXT NOT NULL DEFAULT '',
    file_path    TEXT NOT NULL DEFAULT '',
    file_format  TEXT NOT NULL DEFAULT '',
    token        TEXT NOT NULL DEFAULT '',
    webhook_url  TEXT NOT NULL DEFAULT '',
    extra        JSONB NOT NULL DEFAULT '{}',
    created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_export_profiles_kind ON export_profiles(kind);
`

// DB is the database interface used by [PostgresStore]. Both *pgxpool.Pool
// and *pgx.Conn satisfy this interface.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresStore is a [Store] backed by a PostgreSQL database. Legacy profile
// settings (the opaque extra blob) are serialised as JSONB.
type PostgresStore struct {
	db DB
}

// Compile-time interface check.
var _ Store = (*PostgresStore)(nil)

// NewPostgresStore creates a new [PostgresStore] that uses the given database
// connection or pool. The caller is responsible for calling
// [PostgresStore.Migrate] to ensure the schema exists before issuing queries.
func NewPostgresStore(db DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate executes the [Schema] DDL against the database, creating the
// export_profiles table and index if they do not already exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.db.Exec(ctx, Schema)
	if err != nil {
		return fmt.Errorf("profilestore: migrate: %w", err)
	}
	return nil
}

const profileColumns = `id, name, kind, payload_mode, url, method, headers,
       mode, gitlab_url, project_id, branch, file_path, file_format,
       token, webhook_url, extra`

// Add implements [Store.Add].
func (s *PostgresStore) Add(ctx context.Context, profile export.Profile) (export.Profile, error) {
	if profile.ID == "" {
		profile.ID = uuid.NewString()
	}
	if err := profile.Validate(); err != nil {
		return export.Profile{}, err
	}

	extraJSON, err := json.Marshal(emptyMap(profile.Extra))
	if err != nil {
		return export.Profile{}, fmt.Errorf("profilestore: marshal extra: %w", err)
	}

	const query = `
		INSERT INTO export_profiles (
			id, name, kind, payload_mode, url, method, headers,
			mode, gitlab_url, project_id, branch, file_path, file_format,
			token, webhook_url, extra
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)`

	_, err = s.db.Exec(ctx, query,
		profile.ID, profile.Name, string(profile.Kind), string(profile.PayloadMode),
		profile.URL, profile.Method, profile.Headers,
		string(profile.Mode), profile.GitLabURL, profile.ProjectID, profile.Branch,
		profile.FilePath, string(profile.FileFormat),
		profile.Token, profile.WebhookURL, extraJSON,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return export.Profile{}, ErrDuplicateID
		}
		return export.Profile{}, fmt.Errorf("profilestore: add: %w", err)
	}
	return profile, nil
}

// Get implements [Store.Get].
func (s *PostgresStore) Get(ctx context.Context, id string) (export.Profile, error) {
	const query = `SELECT ` + profileColumns + ` FROM export_profiles WHERE id = $1`

	profile, err := scanProfile(s.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return export.Profile{}, ErrNotFound
		}
		return export.Profile{}, fmt.Errorf("profilestore: get %q: %w", id, err)
	}
	return profile, nil
}

// List implements [Store.List].
func (s *PostgresStore) List(ctx context.Context, opts ListOptions) ([]export.Profile, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if opts.Kind == "" {
		const query = `SELECT ` + profileColumns + ` FROM export_profiles ORDER BY name`
		rows, err = s.db.Query(ctx, query)
	} else {
		const query = `SELECT ` + profileColumns + ` FROM export_profiles WHERE kind = $1 ORDER BY name`
		rows, err = s.db.Query(ctx, query, string(opts.Kind))
	}
	if err != nil {
		return nil, fmt.Errorf("profilestore: list: %w", err)
	}
	defer rows.Close()

	var profiles []export.Profile
	for rows.Next() {
		profile, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("profilestore: list scan: %w", err)
		}
		profiles = append(profiles, profile)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("profilestore: list: %w", err)
	}
	return profiles, nil
}

// Update implements [Store.Update].
func (s *PostgresStore) Update(ctx context.Context, profile export.Profile) error {
	if err := profile.Validate(); err != nil {
		return err
	}

	extraJSON, err := json.Marshal(emptyMap(profile.Extra))
	if err != nil {
		return fmt.Errorf("profilestore: marshal extra: %w", err)
	}

	const query = `
		UPDATE export_profiles SET
			name = $2, kind = $3, payload_mode = $4, url = $5, method = $6,
			headers = $7, mode = $8, gitlab_url = $9, project_id = $10,
			branch = $11, file_path = $12, file_format = $13, token = $14,
			webhook_url = $15, extra = $16, updated_at = now()
		WHERE id = $1`

	tag, err := s.db.Exec(ctx, query,
		profile.ID, profile.Name, string(profile.Kind), string(profile.PayloadMode),
		profile.URL, profile.Method, profile.Headers,
		string(profile.Mode), profile.GitLabURL, profile.ProjectID, profile.Branch,
		profile.FilePath, string(profile.FileFormat),
		profile.Token, profile.WebhookURL, extraJSON,
	)
	if err != nil {
		return fmt.Errorf("profilestore: update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Remove implements [Store.Remove].
func (s *PostgresStore) Remove(ctx context.Context, id string) error {
	const query = `DELETE FROM export_profiles WHERE id = $1`

	tag, err := s.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("profilestore: remove %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// scanProfile reads one export_profiles row. pgx.Row and pgx.Rows share the
// Scan signature.
func scanProfile(row interface{ Scan(dest ...any) error }) (export.Profile, error) {
	var (
		p         export.Profile
		extraJSON []byte
	)
	err := row.Scan(
		&p.ID, &p.Name, &p.Kind, &p.PayloadMode, &p.URL, &p.Method, &p.Headers,
		&p.Mode, &p.GitLabURL, &p.ProjectID, &p.Branch, &p.FilePath, &p.FileFormat,
		&p.Token, &p.WebhookURL, &extraJSON,
	)
	if err != nil {
		return export.Profile{}, err
	}
	if len(extraJSON) > 0 {
		if err := json.Unmarshal(extraJSON, &p.Extra); err != nil {
			return export.Profile{}, fmt.Errorf("unmarshal extra: %w", err)
		}
	}
	if len(p.Extra) == 0 {
		p.Extra = nil
	}
	return p, nil
}

// emptyMap returns m if non-nil, otherwise an empty non-nil map. This ensures
// JSON marshalling produces "{}" instead of "null".
func emptyMap(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}

// isDuplicateKeyError checks whether a PostgreSQL error is a unique-violation
// (SQLSTATE 23505).
func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
