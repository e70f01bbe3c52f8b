// Package postgres implements the app.Repository port on jackc/pgx.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hylla/ranka/internal/app"
	"github.com/hylla/ranka/internal/domain"
	"github.com/hylla/ranka/internal/ordering"
)

// Repository implements app.Repository on a postgres pool.
type Repository struct {
	pool *pgxpool.Pool
}

// Open connects to the database at dsn and migrates it.
func Open(ctx context.Context, dsn string) (*Repository, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("postgres dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	repo := &Repository{pool: pool}
	if err := repo.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return repo, nil
}

// Close releases the pool.
func (r *Repository) Close() error {
	r.pool.Close()
	return nil
}

// migrate applies the schema.
func (r *Repository) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS tasks (
			id TEXT PRIMARY KEY,
			status TEXT NOT NULL,
			position INTEGER NOT NULL,
			title TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			labels_json JSONB NOT NULL DEFAULT '[]',
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL,
			archived_at TIMESTAMPTZ
		);`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_status_position ON tasks(status, position);`,
		`CREATE TABLE IF NOT EXISTS labels (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			color TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS attachments (
			id TEXT PRIMARY KEY,
			task_id TEXT NOT NULL REFERENCES tasks(id),
			file_name TEXT NOT NULL,
			mime_type TEXT NOT NULL,
			file_size BIGINT NOT NULL DEFAULT 0,
			sha256 TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_attachments_task ON attachments(task_id);`,
		`CREATE INDEX IF NOT EXISTS idx_attachments_sha256 ON attachments(sha256);`,
	}
	for _, stmt := range stmts {
		if _, err := r.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// CreateTask creates a task row.
func (r *Repository) CreateTask(ctx context.Context, t domain.Task) error {
	labelsJSON, err := json.Marshal(t.Labels)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO tasks(id, status, position, title, description, labels_json, created_at, updated_at, archived_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, t.ID, t.Status, t.Position, t.Title, t.Description, labelsJSON, t.CreatedAt, t.UpdatedAt, t.ArchivedAt)
	return err
}

// UpdateTask updates a task row.
func (r *Repository) UpdateTask(ctx context.Context, t domain.Task) error {
	labelsJSON, err := json.Marshal(t.Labels)
	if err != nil {
		return err
	}
	tag, err := r.pool.Exec(ctx, `
		UPDATE tasks
		SET status = $1, position = $2, title = $3, description = $4, labels_json = $5, updated_at = $6, archived_at = $7
		WHERE id = $8
	`, t.Status, t.Position, t.Title, t.Description, labelsJSON, t.UpdatedAt, t.ArchivedAt, t.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return app.ErrNotFound
	}
	return nil
}

// GetTask returns one task row.
func (r *Repository) GetTask(ctx context.Context, id string) (domain.Task, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, status, position, title, description, labels_json, created_at, updated_at, archived_at
		FROM tasks
		WHERE id = $1
	`, id)
	return scanTask(row)
}

// ListTasks lists every task in board order.
func (r *Repository) ListTasks(ctx context.Context, includeArchived bool) ([]domain.Task, error) {
	query := `
		SELECT id, status, position, title, description, labels_json, created_at, updated_at, archived_at
		FROM tasks
	`
	if !includeArchived {
		query += ` WHERE archived_at IS NULL`
	}
	query += ` ORDER BY status ASC, position ASC, created_at DESC`
	return r.queryTasks(ctx, query)
}

// ListTasksByStatus lists one column in board order.
func (r *Repository) ListTasksByStatus(ctx context.Context, status string, includeArchived bool) ([]domain.Task, error) {
	query := `
		SELECT id, status, position, title, description, labels_json, created_at, updated_at, archived_at
		FROM tasks
		WHERE status = $1
	`
	if !includeArchived {
		query += ` AND archived_at IS NULL`
	}
	query += ` ORDER BY position ASC, created_at DESC`
	return r.queryTasks(ctx, query, status)
}

// DeleteTask removes a task row.
func (r *Repository) DeleteTask(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return app.ErrNotFound
	}
	return nil
}

// BulkUpdatePositions writes a rebalanced set of ordering keys in one
// transaction. Either every key lands or none do.
func (r *Repository) BulkUpdatePositions(ctx context.Context, placed []ordering.PlacedItem) error {
	if len(placed) == 0 {
		return nil
	}
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	now := time.Now().UTC()
	for _, p := range placed {
		tag, err := tx.Exec(ctx, `UPDATE tasks SET position = $1, updated_at = $2 WHERE id = $3`, p.Position, now, p.ID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return app.ErrNotFound
		}
	}
	return tx.Commit(ctx)
}

// CreateLabel creates a label row.
func (r *Repository) CreateLabel(ctx context.Context, l domain.Label) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO labels(id, name, color, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`, l.ID, l.Name, l.Color, l.CreatedAt, l.UpdatedAt)
	return err
}

// UpdateLabel updates a label row.
func (r *Repository) UpdateLabel(ctx context.Context, l domain.Label) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE labels SET name = $1, color = $2, updated_at = $3 WHERE id = $4
	`, l.Name, l.Color, l.UpdatedAt, l.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return app.ErrNotFound
	}
	return nil
}

// GetLabel returns one label row.
func (r *Repository) GetLabel(ctx context.Context, id string) (domain.Label, error) {
	var l domain.Label
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, color, created_at, updated_at FROM labels WHERE id = $1
	`, id).Scan(&l.ID, &l.Name, &l.Color, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Label{}, app.ErrNotFound
		}
		return domain.Label{}, err
	}
	return l, nil
}

// ListLabels lists the label catalog by name.
func (r *Repository) ListLabels(ctx context.Context) ([]domain.Label, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, color, created_at, updated_at FROM labels ORDER BY name ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.Label{}
	for rows.Next() {
		var l domain.Label
		if err := rows.Scan(&l.ID, &l.Name, &l.Color, &l.CreatedAt, &l.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// DeleteLabel removes a label row.
func (r *Repository) DeleteLabel(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM labels WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return app.ErrNotFound
	}
	return nil
}

// CreateAttachment creates an attachment row.
func (r *Repository) CreateAttachment(ctx context.Context, a domain.Attachment) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO attachments(id, task_id, file_name, mime_type, file_size, sha256, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, a.ID, a.TaskID, a.FileName, a.MimeType, a.FileSize, a.SHA256, a.CreatedAt)
	return err
}

// ListAttachmentsByTask lists a task's attachments oldest first.
func (r *Repository) ListAttachmentsByTask(ctx context.Context, taskID string) ([]domain.Attachment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, task_id, file_name, mime_type, file_size, sha256, created_at
		FROM attachments
		WHERE task_id = $1
		ORDER BY created_at ASC
	`, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.Attachment{}
	for rows.Next() {
		var a domain.Attachment
		if err := rows.Scan(&a.ID, &a.TaskID, &a.FileName, &a.MimeType, &a.FileSize, &a.SHA256, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// FindAttachmentBySHA256 returns the first attachment with the given hash.
func (r *Repository) FindAttachmentBySHA256(ctx context.Context, sha string) (domain.Attachment, error) {
	var a domain.Attachment
	err := r.pool.QueryRow(ctx, `
		SELECT id, task_id, file_name, mime_type, file_size, sha256, created_at
		FROM attachments
		WHERE sha256 = $1
		ORDER BY created_at ASC
		LIMIT 1
	`, sha).Scan(&a.ID, &a.TaskID, &a.FileName, &a.MimeType, &a.FileSize, &a.SHA256, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Attachment{}, app.ErrNotFound
		}
		return domain.Attachment{}, err
	}
	return a, nil
}

// DeleteAttachment removes an attachment row.
func (r *Repository) DeleteAttachment(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM attachments WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return app.ErrNotFound
	}
	return nil
}

// queryTasks runs a task query and scans the rows.
func (r *Repository) queryTasks(ctx context.Context, query string, args ...any) ([]domain.Task, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// rowScanner abstracts pgx.Row and pgx.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanTask handles scan task.
func scanTask(s rowScanner) (domain.Task, error) {
	var (
		t         domain.Task
		labelsRaw []byte
	)
	if err := s.Scan(&t.ID, &t.Status, &t.Position, &t.Title, &t.Description, &labelsRaw, &t.CreatedAt, &t.UpdatedAt, &t.ArchivedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Task{}, app.ErrNotFound
		}
		return domain.Task{}, err
	}
	if len(labelsRaw) == 0 {
		labelsRaw = []byte("[]")
	}
	if err := json.Unmarshal(labelsRaw, &t.Labels); err != nil {
		return domain.Task{}, fmt.Errorf("decode task labels_json: %w", err)
	}
	return t, nil
}
