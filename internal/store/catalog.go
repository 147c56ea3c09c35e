package store

import (
	"context"
	"database/sql"
	"fmt"
)

// Catalog CRUD: owner-scoped educations, experiences, projects, and skills.
// Bullet lists and skill associations are replaced wholesale on update.

func (s *PostgresStore) ListEducations(ctx context.Context, userID int64) ([]Education, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, school, degree, major, location, start_date, end_date, gpa, summary
		FROM educations WHERE user_id=$1 ORDER BY start_date DESC, id
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list educations: %w", err)
	}
	defer rows.Close()

	items := make([]Education, 0)
	for rows.Next() {
		var e Education
		if err := rows.Scan(&e.ID, &e.UserID, &e.School, &e.Degree, &e.Major, &e.Location, &e.StartDate, &e.EndDate, &e.GPA, &e.Summary); err != nil {
			return nil, fmt.Errorf("scan education: %w", err)
		}
		items = append(items, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range items {
		bullets, err := s.listCatalogBullets(ctx, s.db, "education", items[i].ID)
		if err != nil {
			return nil, err
		}
		items[i].Bullets = bullets
	}
	return items, nil
}

func (s *PostgresStore) GetEducation(ctx context.Context, id, userID int64) (Education, error) {
	var e Education
	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, school, degree, major, location, start_date, end_date, gpa, summary
		FROM educations WHERE id=$1 AND user_id=$2
	`, id, userID).Scan(&e.ID, &e.UserID, &e.School, &e.Degree, &e.Major, &e.Location, &e.StartDate, &e.EndDate, &e.GPA, &e.Summary)
	if err != nil {
		return Education{}, err
	}
	e.Bullets, err = s.listCatalogBullets(ctx, s.db, "education", e.ID)
	if err != nil {
		return Education{}, err
	}
	return e, nil
}

func (s *PostgresStore) CreateEducation(ctx context.Context, e Education) (Education, error) {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO educations (user_id, school, degree, major, location, start_date, end_date, gpa, summary)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`, e.UserID, e.School, e.Degree, e.Major, e.Location, e.StartDate, e.EndDate, e.GPA, e.Summary).Scan(&e.ID)
	if err != nil {
		return Education{}, fmt.Errorf("insert education: %w", err)
	}
	if err := s.replaceCatalogBullets(ctx, s.db, "education", e.ID, e.Bullets); err != nil {
		return Education{}, err
	}
	return e, nil
}

func (s *PostgresStore) UpdateEducation(ctx context.Context, e Education) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE educations
		SET school=$1, degree=$2, major=$3, location=$4, start_date=$5, end_date=$6, gpa=$7, summary=$8
		WHERE id=$9 AND user_id=$10
	`, e.School, e.Degree, e.Major, e.Location, e.StartDate, e.EndDate, e.GPA, e.Summary, e.ID, e.UserID)
	if err != nil {
		return fmt.Errorf("update education: %w", err)
	}
	if err := requireAffected(res); err != nil {
		return err
	}
	return s.replaceCatalogBullets(ctx, s.db, "education", e.ID, e.Bullets)
}

func (s *PostgresStore) DeleteEducation(ctx context.Context, id, userID int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM educations WHERE id=$1 AND user_id=$2`, id, userID)
	if err != nil {
		return fmt.Errorf("delete education: %w", err)
	}
	if err := requireAffected(res); err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `DELETE FROM catalog_bullets WHERE parent_kind='education' AND parent_id=$1`, id)
	if err != nil {
		return fmt.Errorf("delete education bullets: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListExperiences(ctx context.Context, userID int64) ([]Experience, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, role, company, location, start_date, end_date, summary
		FROM experiences WHERE user_id=$1 ORDER BY start_date DESC, id
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list experiences: %w", err)
	}
	defer rows.Close()

	items := make([]Experience, 0)
	for rows.Next() {
		var e Experience
		if err := rows.Scan(&e.ID, &e.UserID, &e.Role, &e.Company, &e.Location, &e.StartDate, &e.EndDate, &e.Summary); err != nil {
			return nil, fmt.Errorf("scan experience: %w", err)
		}
		items = append(items, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range items {
		if err := s.loadExperienceRelations(ctx, &items[i]); err != nil {
			return nil, err
		}
	}
	return items, nil
}

func (s *PostgresStore) GetExperience(ctx context.Context, id, userID int64) (Experience, error) {
	var e Experience
	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, role, company, location, start_date, end_date, summary
		FROM experiences WHERE id=$1 AND user_id=$2
	`, id, userID).Scan(&e.ID, &e.UserID, &e.Role, &e.Company, &e.Location, &e.StartDate, &e.EndDate, &e.Summary)
	if err != nil {
		return Experience{}, err
	}
	if err := s.loadExperienceRelations(ctx, &e); err != nil {
		return Experience{}, err
	}
	return e, nil
}

func (s *PostgresStore) loadExperienceRelations(ctx context.Context, e *Experience) error {
	bullets, err := s.listCatalogBullets(ctx, s.db, "experience", e.ID)
	if err != nil {
		return err
	}
	e.Bullets = bullets
	e.SkillIDs, err = s.listAssocSkills(ctx, `SELECT skill_id FROM experience_skills WHERE experience_id=$1 ORDER BY skill_id`, e.ID)
	return err
}

func (s *PostgresStore) CreateExperience(ctx context.Context, e Experience) (Experience, error) {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO experiences (user_id, role, company, location, start_date, end_date, summary)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`, e.UserID, e.Role, e.Company, e.Location, e.StartDate, e.EndDate, e.Summary).Scan(&e.ID)
	if err != nil {
		return Experience{}, fmt.Errorf("insert experience: %w", err)
	}
	if err := s.replaceCatalogBullets(ctx, s.db, "experience", e.ID, e.Bullets); err != nil {
		return Experience{}, err
	}
	if err := s.replaceAssocSkills(ctx, "experience_skills", "experience_id", e.ID, e.SkillIDs); err != nil {
		return Experience{}, err
	}
	return e, nil
}

func (s *PostgresStore) UpdateExperience(ctx context.Context, e Experience) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE experiences
		SET role=$1, company=$2, location=$3, start_date=$4, end_date=$5, summary=$6
		WHERE id=$7 AND user_id=$8
	`, e.Role, e.Company, e.Location, e.StartDate, e.EndDate, e.Summary, e.ID, e.UserID)
	if err != nil {
		return fmt.Errorf("update experience: %w", err)
	}
	if err := requireAffected(res); err != nil {
		return err
	}
	if err := s.replaceCatalogBullets(ctx, s.db, "experience", e.ID, e.Bullets); err != nil {
		return err
	}
	return s.replaceAssocSkills(ctx, "experience_skills", "experience_id", e.ID, e.SkillIDs)
}

func (s *PostgresStore) DeleteExperience(ctx context.Context, id, userID int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM experiences WHERE id=$1 AND user_id=$2`, id, userID)
	if err != nil {
		return fmt.Errorf("delete experience: %w", err)
	}
	if err := requireAffected(res); err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `DELETE FROM catalog_bullets WHERE parent_kind='experience' AND parent_id=$1`, id)
	if err != nil {
		return fmt.Errorf("delete experience bullets: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListProjects(ctx context.Context, userID int64) ([]Project, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, title, role, location, start_date, end_date, summary
		FROM projects WHERE user_id=$1 ORDER BY start_date DESC, id
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	items := make([]Project, 0)
	for rows.Next() {
		var p Project
		if err := rows.Scan(&p.ID, &p.UserID, &p.Title, &p.Role, &p.Location, &p.StartDate, &p.EndDate, &p.Summary); err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		items = append(items, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range items {
		if err := s.loadProjectRelations(ctx, &items[i]); err != nil {
			return nil, err
		}
	}
	return items, nil
}

func (s *PostgresStore) GetProject(ctx context.Context, id, userID int64) (Project, error) {
	var p Project
	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, title, role, location, start_date, end_date, summary
		FROM projects WHERE id=$1 AND user_id=$2
	`, id, userID).Scan(&p.ID, &p.UserID, &p.Title, &p.Role, &p.Location, &p.StartDate, &p.EndDate, &p.Summary)
	if err != nil {
		return Project{}, err
	}
	if err := s.loadProjectRelations(ctx, &p); err != nil {
		return Project{}, err
	}
	return p, nil
}

func (s *PostgresStore) loadProjectRelations(ctx context.Context, p *Project) error {
	bullets, err := s.listCatalogBullets(ctx, s.db, "project", p.ID)
	if err != nil {
		return err
	}
	p.Bullets = bullets
	p.SkillIDs, err = s.listAssocSkills(ctx, `SELECT skill_id FROM project_skills WHERE project_id=$1 ORDER BY skill_id`, p.ID)
	return err
}

func (s *PostgresStore) CreateProject(ctx context.Context, p Project) (Project, error) {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO projects (user_id, title, role, location, start_date, end_date, summary)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`, p.UserID, p.Title, p.Role, p.Location, p.StartDate, p.EndDate, p.Summary).Scan(&p.ID)
	if err != nil {
		return Project{}, fmt.Errorf("insert project: %w", err)
	}
	if err := s.replaceCatalogBullets(ctx, s.db, "project", p.ID, p.Bullets); err != nil {
		return Project{}, err
	}
	if err := s.replaceAssocSkills(ctx, "project_skills", "project_id", p.ID, p.SkillIDs); err != nil {
		return Project{}, err
	}
	return p, nil
}

func (s *PostgresStore) UpdateProject(ctx context.Context, p Project) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE projects
		SET title=$1, role=$2, location=$3, start_date=$4, end_date=$5, summary=$6
		WHERE id=$7 AND user_id=$8
	`, p.Title, p.Role, p.Location, p.StartDate, p.EndDate, p.Summary, p.ID, p.UserID)
	if err != nil {
		return fmt.Errorf("update project: %w", err)
	}
	if err := requireAffected(res); err != nil {
		return err
	}
	if err := s.replaceCatalogBullets(ctx, s.db, "project", p.ID, p.Bullets); err != nil {
		return err
	}
	return s.replaceAssocSkills(ctx, "project_skills", "project_id", p.ID, p.SkillIDs)
}

func (s *PostgresStore) DeleteProject(ctx context.Context, id, userID int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM projects WHERE id=$1 AND user_id=$2`, id, userID)
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	if err := requireAffected(res); err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `DELETE FROM catalog_bullets WHERE parent_kind='project' AND parent_id=$1`, id)
	if err != nil {
		return fmt.Errorf("delete project bullets: %w", err)
	}
	return nil
}

// ListSkills returns the user's own skills plus global ones, in name order.
// Name order is for determinism only; callers must not rely on it.
func (s *PostgresStore) ListSkills(ctx context.Context, userID int64) ([]Skill, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, name, category
		FROM skills WHERE user_id=$1 OR user_id IS NULL
		ORDER BY name, id
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list skills: %w", err)
	}
	defer rows.Close()

	items := make([]Skill, 0)
	for rows.Next() {
		var sk Skill
		if err := rows.Scan(&sk.ID, &sk.UserID, &sk.Name, &sk.Category); err != nil {
			return nil, fmt.Errorf("scan skill: %w", err)
		}
		items = append(items, sk)
	}
	return items, rows.Err()
}

func (s *PostgresStore) CreateSkill(ctx context.Context, sk Skill) (Skill, error) {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO skills (user_id, name, category)
		VALUES ($1, $2, $3)
		RETURNING id
	`, sk.UserID, sk.Name, sk.Category).Scan(&sk.ID)
	if err != nil {
		return Skill{}, fmt.Errorf("insert skill: %w", err)
	}
	return sk, nil
}

func (s *PostgresStore) DeleteSkill(ctx context.Context, id, userID int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM skills WHERE id=$1 AND user_id=$2`, id, userID)
	if err != nil {
		return fmt.Errorf("delete skill: %w", err)
	}
	return requireAffected(res)
}

type execQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *PostgresStore) listCatalogBullets(ctx context.Context, q execQuerier, kind string, parentID int64) ([]string, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT content FROM catalog_bullets
		WHERE parent_kind=$1 AND parent_id=$2
		ORDER BY display_order
	`, kind, parentID)
	if err != nil {
		return nil, fmt.Errorf("list %s bullets: %w", kind, err)
	}
	defer rows.Close()

	bullets := make([]string, 0)
	for rows.Next() {
		var content string
		if err := rows.Scan(&content); err != nil {
			return nil, fmt.Errorf("scan bullet: %w", err)
		}
		bullets = append(bullets, content)
	}
	return bullets, rows.Err()
}

func (s *PostgresStore) replaceCatalogBullets(ctx context.Context, q execQuerier, kind string, parentID int64, bullets []string) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM catalog_bullets WHERE parent_kind=$1 AND parent_id=$2`, kind, parentID); err != nil {
		return fmt.Errorf("clear %s bullets: %w", kind, err)
	}
	for i, content := range bullets {
		if _, err := q.ExecContext(ctx, `
			INSERT INTO catalog_bullets (parent_kind, parent_id, display_order, content)
			VALUES ($1, $2, $3, $4)
		`, kind, parentID, i, content); err != nil {
			return fmt.Errorf("insert %s bullet: %w", kind, err)
		}
	}
	return nil
}

func (s *PostgresStore) listAssocSkills(ctx context.Context, query string, parentID int64) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, query, parentID)
	if err != nil {
		return nil, fmt.Errorf("list skill links: %w", err)
	}
	defer rows.Close()

	ids := make([]int64, 0)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan skill link: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *PostgresStore) replaceAssocSkills(ctx context.Context, table, column string, parentID int64, skillIDs []int64) error {
	if _, err := s.db.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE %s=$1`, table, column), parentID); err != nil {
		return fmt.Errorf("clear %s: %w", table, err)
	}
	for _, skillID := range skillIDs {
		if _, err := s.db.ExecContext(ctx, fmt.Sprintf(`INSERT INTO %s (%s, skill_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`, table, column), parentID, skillID); err != nil {
			return fmt.Errorf("insert %s: %w", table, err)
		}
	}
	return nil
}

func requireAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
