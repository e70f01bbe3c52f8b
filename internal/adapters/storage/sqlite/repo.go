// Package sqlite implements the app.Repository port on modernc.org/sqlite.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hylla/ranka/internal/app"
	"github.com/hylla/ranka/internal/domain"
	"github.com/hylla/ranka/internal/ordering"
	_ "modernc.org/sqlite"
)

// driverName defines a package constant value.
const driverName = "sqlite"

// Repository implements app.Repository on a sqlite database.
type Repository struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and migrates it.
func Open(path string) (*Repository, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create sqlite dir: %w", err)
	}
	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	repo := &Repository{db: db}
	if err := repo.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

// Close closes the underlying database.
func (r *Repository) Close() error {
	return r.db.Close()
}

// migrate applies the schema.
func (r *Repository) migrate(ctx context.Context) error {
	stmts := []string{
		`PRAGMA foreign_keys = ON;`,
		`CREATE TABLE IF NOT EXISTS tasks (
			id TEXT PRIMARY KEY,
			status TEXT NOT NULL,
			position INTEGER NOT NULL,
			title TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			labels_json TEXT NOT NULL DEFAULT '[]',
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			archived_at TEXT
		);`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_status_position ON tasks(status, position);`,
		`CREATE TABLE IF NOT EXISTS labels (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			color TEXT NOT NULL,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS attachments (
			id TEXT PRIMARY KEY,
			task_id TEXT NOT NULL REFERENCES tasks(id),
			file_name TEXT NOT NULL,
			mime_type TEXT NOT NULL,
			file_size INTEGER NOT NULL DEFAULT 0,
			sha256 TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_attachments_task ON attachments(task_id);`,
		`CREATE INDEX IF NOT EXISTS idx_attachments_sha256 ON attachments(sha256);`,
	}
	for _, stmt := range stmts {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
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
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO tasks(id, status, position, title, description, labels_json, created_at, updated_at, archived_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, t.ID, t.Status, t.Position, t.Title, t.Description, string(labelsJSON), ts(t.CreatedAt), ts(t.UpdatedAt), nullableTS(t.ArchivedAt))
	return err
}

// UpdateTask updates a task row.
func (r *Repository) UpdateTask(ctx context.Context, t domain.Task) error {
	labelsJSON, err := json.Marshal(t.Labels)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE tasks
		SET status = ?, position = ?, title = ?, description = ?, labels_json = ?, updated_at = ?, archived_at = ?
		WHERE id = ?
	`, t.Status, t.Position, t.Title, t.Description, string(labelsJSON), ts(t.UpdatedAt), nullableTS(t.ArchivedAt), t.ID)
	if err != nil {
		return err
	}
	return translateNoRows(res)
}

// GetTask returns one task row.
func (r *Repository) GetTask(ctx context.Context, id string) (domain.Task, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, status, position, title, description, labels_json, created_at, updated_at, archived_at
		FROM tasks
		WHERE id = ?
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
		WHERE status = ?
	`
	if !includeArchived {
		query += ` AND archived_at IS NULL`
	}
	query += ` ORDER BY position ASC, created_at DESC`
	return r.queryTasks(ctx, query, status)
}

// DeleteTask removes a task row.
func (r *Repository) DeleteTask(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return translateNoRows(res)
}

// BulkUpdatePositions writes a rebalanced set of ordering keys in one
// transaction. Either every key lands or none do.
func (r *Repository) BulkUpdatePositions(ctx context.Context, placed []ordering.PlacedItem) error {
	if len(placed) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `UPDATE tasks SET position = ?, updated_at = ? WHERE id = ?`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := ts(time.Now())
	for _, p := range placed {
		res, err := stmt.ExecContext(ctx, p.Position, now, p.ID)
		if err != nil {
			return err
		}
		if err := translateNoRows(res); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// CreateLabel creates a label row.
func (r *Repository) CreateLabel(ctx context.Context, l domain.Label) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO labels(id, name, color, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`, l.ID, l.Name, l.Color, ts(l.CreatedAt), ts(l.UpdatedAt))
	return err
}

// UpdateLabel updates a label row.
func (r *Repository) UpdateLabel(ctx context.Context, l domain.Label) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE labels SET name = ?, color = ?, updated_at = ? WHERE id = ?
	`, l.Name, l.Color, ts(l.UpdatedAt), l.ID)
	if err != nil {
		return err
	}
	return translateNoRows(res)
}

// GetLabel returns one label row.
func (r *Repository) GetLabel(ctx context.Context, id string) (domain.Label, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, color, created_at, updated_at FROM labels WHERE id = ?
	`, id)
	var (
		l          domain.Label
		createdRaw string
		updatedRaw string
	)
	if err := row.Scan(&l.ID, &l.Name, &l.Color, &createdRaw, &updatedRaw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Label{}, app.ErrNotFound
		}
		return domain.Label{}, err
	}
	l.CreatedAt = parseTS(createdRaw)
	l.UpdatedAt = parseTS(updatedRaw)
	return l, nil
}

// ListLabels lists the label catalog by name.
func (r *Repository) ListLabels(ctx context.Context) ([]domain.Label, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, color, created_at, updated_at FROM labels ORDER BY name ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.Label{}
	for rows.Next() {
		var (
			l          domain.Label
			createdRaw string
			updatedRaw string
		)
		if err := rows.Scan(&l.ID, &l.Name, &l.Color, &createdRaw, &updatedRaw); err != nil {
			return nil, err
		}
		l.CreatedAt = parseTS(createdRaw)
		l.UpdatedAt = parseTS(updatedRaw)
		out = append(out, l)
	}
	return out, rows.Err()
}

// DeleteLabel removes a label row.
func (r *Repository) DeleteLabel(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM labels WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return translateNoRows(res)
}

// CreateAttachment creates an attachment row.
func (r *Repository) CreateAttachment(ctx context.Context, a domain.Attachment) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO attachments(id, task_id, file_name, mime_type, file_size, sha256, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, a.ID, a.TaskID, a.FileName, a.MimeType, a.FileSize, a.SHA256, ts(a.CreatedAt))
	return err
}

// ListAttachmentsByTask lists a task's attachments oldest first.
func (r *Repository) ListAttachmentsByTask(ctx context.Context, taskID string) ([]domain.Attachment, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, task_id, file_name, mime_type, file_size, sha256, created_at
		FROM attachments
		WHERE task_id = ?
		ORDER BY created_at ASC
	`, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.Attachment{}
	for rows.Next() {
		var (
			a          domain.Attachment
			createdRaw string
		)
		if err := rows.Scan(&a.ID, &a.TaskID, &a.FileName, &a.MimeType, &a.FileSize, &a.SHA256, &createdRaw); err != nil {
			return nil, err
		}
		a.CreatedAt = parseTS(createdRaw)
		out = append(out, a)
	}
	return out, rows.Err()
}

// FindAttachmentBySHA256 returns the first attachment with the given hash.
func (r *Repository) FindAttachmentBySHA256(ctx context.Context, sha string) (domain.Attachment, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, task_id, file_name, mime_type, file_size, sha256, created_at
		FROM attachments
		WHERE sha256 = ?
		ORDER BY created_at ASC
		LIMIT 1
	`, sha)
	var (
		a          domain.Attachment
		createdRaw string
	)
	if err := row.Scan(&a.ID, &a.TaskID, &a.FileName, &a.MimeType, &a.FileSize, &a.SHA256, &createdRaw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Attachment{}, app.ErrNotFound
		}
		return domain.Attachment{}, err
	}
	a.CreatedAt = parseTS(createdRaw)
	return a, nil
}

// DeleteAttachment removes an attachment row.
func (r *Repository) DeleteAttachment(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM attachments WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return translateNoRows(res)
}

// queryTasks runs a task query and scans the rows.
func (r *Repository) queryTasks(ctx context.Context, query string, args ...any) ([]domain.Task, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
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

// scanner abstracts sql.Row and sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// scanTask handles scan task.
func scanTask(s scanner) (domain.Task, error) {
	var (
		t          domain.Task
		labelsRaw  string
		createdRaw string
		updatedRaw string
		archived   sql.NullString
	)
	if err := s.Scan(&t.ID, &t.Status, &t.Position, &t.Title, &t.Description, &labelsRaw, &createdRaw, &updatedRaw, &archived); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Task{}, app.ErrNotFound
		}
		return domain.Task{}, err
	}
	if strings.TrimSpace(labelsRaw) == "" {
		labelsRaw = "[]"
	}
	if err := json.Unmarshal([]byte(labelsRaw), &t.Labels); err != nil {
		return domain.Task{}, fmt.Errorf("decode task labels_json: %w", err)
	}
	t.CreatedAt = parseTS(createdRaw)
	t.UpdatedAt = parseTS(updatedRaw)
	t.ArchivedAt = parseNullTS(archived)
	return t, nil
}

// translateNoRows handles translate no rows.
func translateNoRows(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return app.ErrNotFound
	}
	return nil
}

// ts handles ts.
func ts(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// nullableTS handles nullable ts.
func nullableTS(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339Nano)
}

// parseTS parses input into a normalized form.
func parseTS(v string) time.Time {
	parsed, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}
	}
	return parsed.UTC()
}

// parseNullTS parses input into a normalized form.
func parseNullTS(v sql.NullString) *time.Time {
	if !v.Valid || strings.TrimSpace(v.String) == "" {
		return nil
	}
	parsed := parseTS(v.String)
	return &parsed
}
