package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *PostgresStore) BeginTx(ctx context.Context) (*Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	return &Tx{tx: tx}, nil
}

func (s *PostgresStore) CreateUser(ctx context.Context, user User) (User, error) {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO users (email, display_name, password_hash)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`, user.Email, user.DisplayName, user.PasswordHash).Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		return User{}, fmt.Errorf("insert user: %w", err)
	}
	return user, nil
}

func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (User, error) {
	var user User
	err := s.db.QueryRowContext(ctx, `
		SELECT id, email, display_name, password_hash, created_at
		FROM users WHERE email=$1
	`, email).Scan(&user.ID, &user.Email, &user.DisplayName, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		return User{}, err
	}
	return user, nil
}

func (s *PostgresStore) GetUserByID(ctx context.Context, id int64) (User, error) {
	var user User
	err := s.db.QueryRowContext(ctx, `
		SELECT id, email, display_name, password_hash, created_at
		FROM users WHERE id=$1
	`, id).Scan(&user.ID, &user.Email, &user.DisplayName, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		return User{}, err
	}
	return user, nil
}

func (s *PostgresStore) ListTemplates(ctx context.Context) ([]Template, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, uri FROM templates ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	defer rows.Close()

	items := make([]Template, 0)
	for rows.Next() {
		var t Template
		if err := rows.Scan(&t.ID, &t.Name, &t.URI); err != nil {
			return nil, fmt.Errorf("scan template: %w", err)
		}
		items = append(items, t)
	}
	return items, rows.Err()
}

func (s *PostgresStore) GetTemplate(ctx context.Context, id int64) (Template, error) {
	var t Template
	err := s.db.QueryRowContext(ctx, `SELECT id, name, uri FROM templates WHERE id=$1`, id).Scan(&t.ID, &t.Name, &t.URI)
	if err != nil {
		return Template{}, err
	}
	return t, nil
}

func (s *PostgresStore) ListResumes(ctx context.Context, userID int64) ([]Resume, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, name, template_id, revision, display_name, email, phone, location, links, created_at, updated_at
		FROM resumes
		WHERE user_id=$1
		ORDER BY updated_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list resumes: %w", err)
	}
	defer rows.Close()

	items := make([]Resume, 0)
	for rows.Next() {
		resume, err := scanResume(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, resume)
	}
	return items, rows.Err()
}

func (s *PostgresStore) CreateResume(ctx context.Context, resume Resume) (Resume, error) {
	links, err := json.Marshal(linksOrEmpty(resume.Links))
	if err != nil {
		return Resume{}, fmt.Errorf("marshal links: %w", err)
	}
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO resumes (user_id, name, template_id, display_name, email, phone, location, links)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, revision, created_at, updated_at
	`, resume.UserID, resume.Name, resume.TemplateID, resume.DisplayName, resume.Email, resume.Phone, resume.Location, links).
		Scan(&resume.ID, &resume.Revision, &resume.CreatedAt, &resume.UpdatedAt)
	if err != nil {
		return Resume{}, fmt.Errorf("insert resume: %w", err)
	}
	return resume, nil
}

// DeleteResume removes a resume and, through FK cascades, its sections,
// items, and override rows. Returns sql.ErrNoRows when unowned or missing.
func (s *PostgresStore) DeleteResume(ctx context.Context, resumeID, userID int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM resumes WHERE id=$1 AND user_id=$2`, resumeID, userID)
	if err != nil {
		return fmt.Errorf("delete resume: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete resume result: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (s *PostgresStore) SaveRenderJob(ctx context.Context, job RenderJob) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO render_jobs (id, user_id, resume_id, status, location, error)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET status=EXCLUDED.status, location=EXCLUDED.location, error=EXCLUDED.error, updated_at=NOW()
	`, job.ID, job.UserID, job.ResumeID, job.Status, job.Location, job.Error)
	if err != nil {
		return fmt.Errorf("save render job: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetRenderJob(ctx context.Context, jobID string, userID int64) (RenderJob, error) {
	var job RenderJob
	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, resume_id, status, location, error, created_at, updated_at
		FROM render_jobs
		WHERE id=$1 AND user_id=$2
	`, jobID, userID).Scan(&job.ID, &job.UserID, &job.ResumeID, &job.Status, &job.Location, &job.Error, &job.CreatedAt, &job.UpdatedAt)
	if err != nil {
		return RenderJob{}, err
	}
	return job, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanResume(row rowScanner) (Resume, error) {
	var resume Resume
	var links []byte
	err := row.Scan(&resume.ID, &resume.UserID, &resume.Name, &resume.TemplateID, &resume.Revision,
		&resume.DisplayName, &resume.Email, &resume.Phone, &resume.Location, &links,
		&resume.CreatedAt, &resume.UpdatedAt)
	if err != nil {
		return Resume{}, err
	}
	if len(links) > 0 {
		if err := json.Unmarshal(links, &resume.Links); err != nil {
			return Resume{}, fmt.Errorf("unmarshal resume links: %w", err)
		}
	}
	return resume, nil
}

func linksOrEmpty(links []string) []string {
	if links == nil {
		return []string{}
	}
	return links
}
