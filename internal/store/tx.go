package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

// Tx is the transaction-scoped store surface the reconciler writes through.
// Every mutation of the document tree happens on a Tx so a failed
// reconciliation rolls back without partial section/item writes.
type Tx struct {
	tx *sql.Tx
}

func (t *Tx) Commit() error {
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (t *Tx) Rollback() error {
	return t.tx.Rollback()
}

func (t *Tx) GetResume(ctx context.Context, resumeID, userID int64) (Resume, error) {
	row := t.tx.QueryRowContext(ctx, `
		SELECT id, user_id, name, template_id, revision, display_name, email, phone, location, links, created_at, updated_at
		FROM resumes
		WHERE id=$1 AND user_id=$2
	`, resumeID, userID)
	return scanResume(row)
}

// GetResumeForUpdate locks the document row for the duration of a
// reconciliation so concurrent saves serialize. Plain reads go through
// GetResume and hold no lock.
func (t *Tx) GetResumeForUpdate(ctx context.Context, resumeID, userID int64) (Resume, error) {
	row := t.tx.QueryRowContext(ctx, `
		SELECT id, user_id, name, template_id, revision, display_name, email, phone, location, links, created_at, updated_at
		FROM resumes
		WHERE id=$1 AND user_id=$2
		FOR UPDATE
	`, resumeID, userID)
	return scanResume(row)
}

// UpdateResume writes the document scalars and bumps the revision counter.
func (t *Tx) UpdateResume(ctx context.Context, resume Resume) error {
	links, err := json.Marshal(linksOrEmpty(resume.Links))
	if err != nil {
		return fmt.Errorf("marshal links: %w", err)
	}
	_, err = t.tx.ExecContext(ctx, `
		UPDATE resumes
		SET name=$1, template_id=$2, display_name=$3, email=$4, phone=$5, location=$6, links=$7,
		    revision=revision+1, updated_at=NOW()
		WHERE id=$8 AND user_id=$9
	`, resume.Name, resume.TemplateID, resume.DisplayName, resume.Email, resume.Phone, resume.Location, links,
		resume.ID, resume.UserID)
	if err != nil {
		return fmt.Errorf("update resume: %w", err)
	}
	return nil
}

func (t *Tx) ListSections(ctx context.Context, resumeID, userID int64) ([]ResumeSection, error) {
	rows, err := t.tx.QueryContext(ctx, `
		SELECT id, resume_id, user_id, section_type, title, display_order
		FROM resume_sections
		WHERE resume_id=$1 AND user_id=$2
		ORDER BY display_order
	`, resumeID, userID)
	if err != nil {
		return nil, fmt.Errorf("list sections: %w", err)
	}
	defer rows.Close()

	items := make([]ResumeSection, 0)
	for rows.Next() {
		var sec ResumeSection
		if err := rows.Scan(&sec.ID, &sec.ResumeID, &sec.UserID, &sec.Type, &sec.Title, &sec.DisplayOrder); err != nil {
			return nil, fmt.Errorf("scan section: %w", err)
		}
		items = append(items, sec)
	}
	return items, rows.Err()
}

func (t *Tx) InsertSection(ctx context.Context, sec *ResumeSection) error {
	err := t.tx.QueryRowContext(ctx, `
		INSERT INTO resume_sections (resume_id, user_id, section_type, title, display_order)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, sec.ResumeID, sec.UserID, sec.Type, sec.Title, sec.DisplayOrder).Scan(&sec.ID)
	if err != nil {
		return fmt.Errorf("insert section: %w", err)
	}
	return nil
}

func (t *Tx) UpdateSection(ctx context.Context, sec ResumeSection) error {
	_, err := t.tx.ExecContext(ctx, `
		UPDATE resume_sections
		SET section_type=$1, title=$2, display_order=$3
		WHERE id=$4 AND user_id=$5
	`, sec.Type, sec.Title, sec.DisplayOrder, sec.ID, sec.UserID)
	if err != nil {
		return fmt.Errorf("update section: %w", err)
	}
	return nil
}

// DeleteSections removes orphan sections and everything under them. The
// child deletes are explicit rather than left to FK cascades so the write
// set of a reconciliation is fully visible in one place.
func (t *Tx) DeleteSections(ctx context.Context, ids []int64) error {
	for _, id := range ids {
		items, err := t.ListItems(ctx, id)
		if err != nil {
			return err
		}
		itemIDs := make([]int64, 0, len(items))
		for _, item := range items {
			itemIDs = append(itemIDs, item.ID)
		}
		if err := t.DeleteItems(ctx, itemIDs); err != nil {
			return err
		}
		if _, err := t.tx.ExecContext(ctx, `DELETE FROM resume_sections WHERE id=$1`, id); err != nil {
			return fmt.Errorf("delete section: %w", err)
		}
	}
	return nil
}

func (t *Tx) ListItems(ctx context.Context, sectionID int64) ([]ResumeItem, error) {
	rows, err := t.tx.QueryContext(ctx, `
		SELECT id, section_id, resume_id, user_id, display_order,
		       title, organization, start_date, end_date, location, description,
		       catalog_kind, catalog_id, field_overrides
		FROM resume_items
		WHERE section_id=$1
		ORDER BY display_order
	`, sectionID)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	items := make([]ResumeItem, 0)
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (t *Tx) InsertItem(ctx context.Context, item *ResumeItem) error {
	overrides, err := marshalOverrides(item.FieldOverrides)
	if err != nil {
		return err
	}
	err = t.tx.QueryRowContext(ctx, `
		INSERT INTO resume_items (section_id, resume_id, user_id, display_order,
			title, organization, start_date, end_date, location, description,
			catalog_kind, catalog_id, field_overrides)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id
	`, item.SectionID, item.ResumeID, item.UserID, item.DisplayOrder,
		item.Title, item.Organization, item.StartDate, item.EndDate, item.Location, item.Description,
		item.CatalogKind, item.CatalogID, overrides).Scan(&item.ID)
	if err != nil {
		return fmt.Errorf("insert item: %w", err)
	}
	return nil
}

func (t *Tx) UpdateItem(ctx context.Context, item ResumeItem) error {
	overrides, err := marshalOverrides(item.FieldOverrides)
	if err != nil {
		return err
	}
	_, err = t.tx.ExecContext(ctx, `
		UPDATE resume_items
		SET display_order=$1, title=$2, organization=$3, start_date=$4, end_date=$5,
		    location=$6, description=$7, catalog_kind=$8, catalog_id=$9, field_overrides=$10
		WHERE id=$11 AND user_id=$12
	`, item.DisplayOrder, item.Title, item.Organization, item.StartDate, item.EndDate,
		item.Location, item.Description, item.CatalogKind, item.CatalogID, overrides,
		item.ID, item.UserID)
	if err != nil {
		return fmt.Errorf("update item: %w", err)
	}
	return nil
}

func (t *Tx) DeleteItems(ctx context.Context, ids []int64) error {
	for _, id := range ids {
		if err := t.DeleteItemBullets(ctx, id); err != nil {
			return err
		}
		if err := t.DeleteItemSkills(ctx, id); err != nil {
			return err
		}
		if _, err := t.tx.ExecContext(ctx, `DELETE FROM resume_items WHERE id=$1`, id); err != nil {
			return fmt.Errorf("delete item: %w", err)
		}
	}
	return nil
}

func (t *Tx) ListItemBullets(ctx context.Context, itemID int64) ([]string, error) {
	rows, err := t.tx.QueryContext(ctx, `
		SELECT content FROM resume_item_bullets WHERE item_id=$1 ORDER BY display_order
	`, itemID)
	if err != nil {
		return nil, fmt.Errorf("list item bullets: %w", err)
	}
	defer rows.Close()

	bullets := make([]string, 0)
	for rows.Next() {
		var content string
		if err := rows.Scan(&content); err != nil {
			return nil, fmt.Errorf("scan item bullet: %w", err)
		}
		bullets = append(bullets, content)
	}
	return bullets, rows.Err()
}

// ReplaceItemBullets is delete-all-insert-submitted, never an incremental
// patch of individual rows.
func (t *Tx) ReplaceItemBullets(ctx context.Context, itemID int64, bullets []string) error {
	if err := t.DeleteItemBullets(ctx, itemID); err != nil {
		return err
	}
	for i, content := range bullets {
		if _, err := t.tx.ExecContext(ctx, `
			INSERT INTO resume_item_bullets (item_id, display_order, content)
			VALUES ($1, $2, $3)
		`, itemID, i, content); err != nil {
			return fmt.Errorf("insert item bullet: %w", err)
		}
	}
	return nil
}

func (t *Tx) DeleteItemBullets(ctx context.Context, itemID int64) error {
	if _, err := t.tx.ExecContext(ctx, `DELETE FROM resume_item_bullets WHERE item_id=$1`, itemID); err != nil {
		return fmt.Errorf("delete item bullets: %w", err)
	}
	return nil
}

func (t *Tx) ListItemSkillIDs(ctx context.Context, itemID int64) ([]int64, error) {
	rows, err := t.tx.QueryContext(ctx, `
		SELECT skill_id FROM resume_item_skills WHERE item_id=$1 ORDER BY skill_id
	`, itemID)
	if err != nil {
		return nil, fmt.Errorf("list item skills: %w", err)
	}
	defer rows.Close()

	ids := make([]int64, 0)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan item skill: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (t *Tx) ReplaceItemSkills(ctx context.Context, itemID int64, skillIDs []int64) error {
	if err := t.DeleteItemSkills(ctx, itemID); err != nil {
		return err
	}
	for _, skillID := range skillIDs {
		if _, err := t.tx.ExecContext(ctx, `
			INSERT INTO resume_item_skills (item_id, skill_id)
			VALUES ($1, $2)
			ON CONFLICT DO NOTHING
		`, itemID, skillID); err != nil {
			return fmt.Errorf("insert item skill: %w", err)
		}
	}
	return nil
}

func (t *Tx) DeleteItemSkills(ctx context.Context, itemID int64) error {
	if _, err := t.tx.ExecContext(ctx, `DELETE FROM resume_item_skills WHERE item_id=$1`, itemID); err != nil {
		return fmt.Errorf("delete item skills: %w", err)
	}
	return nil
}

// Catalog lookups inside the reconciliation transaction. Missing or unowned
// entities surface as sql.ErrNoRows; the reconciler maps that to a conflict.

func (t *Tx) GetEducation(ctx context.Context, id, userID int64) (Education, error) {
	var e Education
	err := t.tx.QueryRowContext(ctx, `
		SELECT id, user_id, school, degree, major, location, start_date, end_date, gpa, summary
		FROM educations WHERE id=$1 AND user_id=$2
	`, id, userID).Scan(&e.ID, &e.UserID, &e.School, &e.Degree, &e.Major, &e.Location, &e.StartDate, &e.EndDate, &e.GPA, &e.Summary)
	if err != nil {
		return Education{}, err
	}
	e.Bullets, err = t.catalogBullets(ctx, "education", e.ID)
	return e, err
}

func (t *Tx) GetExperience(ctx context.Context, id, userID int64) (Experience, error) {
	var e Experience
	err := t.tx.QueryRowContext(ctx, `
		SELECT id, user_id, role, company, location, start_date, end_date, summary
		FROM experiences WHERE id=$1 AND user_id=$2
	`, id, userID).Scan(&e.ID, &e.UserID, &e.Role, &e.Company, &e.Location, &e.StartDate, &e.EndDate, &e.Summary)
	if err != nil {
		return Experience{}, err
	}
	if e.Bullets, err = t.catalogBullets(ctx, "experience", e.ID); err != nil {
		return Experience{}, err
	}
	e.SkillIDs, err = t.assocSkills(ctx, `SELECT skill_id FROM experience_skills WHERE experience_id=$1 ORDER BY skill_id`, e.ID)
	return e, err
}

func (t *Tx) GetProject(ctx context.Context, id, userID int64) (Project, error) {
	var p Project
	err := t.tx.QueryRowContext(ctx, `
		SELECT id, user_id, title, role, location, start_date, end_date, summary
		FROM projects WHERE id=$1 AND user_id=$2
	`, id, userID).Scan(&p.ID, &p.UserID, &p.Title, &p.Role, &p.Location, &p.StartDate, &p.EndDate, &p.Summary)
	if err != nil {
		return Project{}, err
	}
	if p.Bullets, err = t.catalogBullets(ctx, "project", p.ID); err != nil {
		return Project{}, err
	}
	p.SkillIDs, err = t.assocSkills(ctx, `SELECT skill_id FROM project_skills WHERE project_id=$1 ORDER BY skill_id`, p.ID)
	return p, err
}

func (t *Tx) TemplateExists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := t.tx.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM templates WHERE id=$1)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check template: %w", err)
	}
	return exists, nil
}

// GetSkills resolves skill ids to rows in name order. Only global skills
// and the user's own are visible; anything else resolves to no row.
func (t *Tx) GetSkills(ctx context.Context, ids []int64, userID int64) ([]Skill, error) {
	skills := make([]Skill, 0, len(ids))
	for _, id := range ids {
		var sk Skill
		err := t.tx.QueryRowContext(ctx, `
			SELECT id, user_id, name, category FROM skills
			WHERE id=$1 AND (user_id IS NULL OR user_id=$2)
		`, id, userID).
			Scan(&sk.ID, &sk.UserID, &sk.Name, &sk.Category)
		if err == sql.ErrNoRows {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("get skill: %w", err)
		}
		skills = append(skills, sk)
	}
	sortSkillsByName(skills)
	return skills, nil
}

func sortSkillsByName(skills []Skill) {
	for i := 1; i < len(skills); i++ {
		for j := i; j > 0 && skills[j].Name < skills[j-1].Name; j-- {
			skills[j], skills[j-1] = skills[j-1], skills[j]
		}
	}
}

func (t *Tx) catalogBullets(ctx context.Context, kind string, parentID int64) ([]string, error) {
	rows, err := t.tx.QueryContext(ctx, `
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

func (t *Tx) assocSkills(ctx context.Context, query string, parentID int64) ([]int64, error) {
	rows, err := t.tx.QueryContext(ctx, query, parentID)
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

func scanItem(row rowScanner) (ResumeItem, error) {
	var item ResumeItem
	var overrides []byte
	err := row.Scan(&item.ID, &item.SectionID, &item.ResumeID, &item.UserID, &item.DisplayOrder,
		&item.Title, &item.Organization, &item.StartDate, &item.EndDate, &item.Location, &item.Description,
		&item.CatalogKind, &item.CatalogID, &overrides)
	if err != nil {
		return ResumeItem{}, fmt.Errorf("scan item: %w", err)
	}
	if len(overrides) > 0 {
		if err := json.Unmarshal(overrides, &item.FieldOverrides); err != nil {
			return ResumeItem{}, fmt.Errorf("unmarshal field overrides: %w", err)
		}
	}
	return item, nil
}

func marshalOverrides(overrides map[string]string) ([]byte, error) {
	if overrides == nil {
		overrides = map[string]string{}
	}
	data, err := json.Marshal(overrides)
	if err != nil {
		return nil, fmt.Errorf("marshal field overrides: %w", err)
	}
	return data, nil
}
