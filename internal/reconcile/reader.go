package reconcile

import (
	"context"
	"database/sql"
	"errors"

	"resumeforge/api/internal/store"
)

// LoadDocument eager-loads the full tree in display order with catalog
// overrides resolved. It serves both the plain read path and the return
// value of every reconciliation, so read and write shapes stay symmetric.
func LoadDocument(ctx context.Context, tx Store, resumeID, userID int64) (Document, error) {
	resume, err := tx.GetResume(ctx, resumeID, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Document{}, &NotFoundError{Resource: "resume"}
		}
		return Document{}, err
	}

	sections, err := tx.ListSections(ctx, resumeID, userID)
	if err != nil {
		return Document{}, err
	}

	doc := Document{
		ID:          resume.ID,
		Name:        resume.Name,
		TemplateID:  resume.TemplateID,
		Revision:    resume.Revision,
		DisplayName: resume.DisplayName,
		Email:       resume.Email,
		Phone:       resume.Phone,
		Location:    resume.Location,
		Links:       resume.Links,
		Sections:    make([]Section, 0, len(sections)),
	}
	if doc.Links == nil {
		doc.Links = []string{}
	}

	for _, sec := range sections {
		rows, err := tx.ListItems(ctx, sec.ID)
		if err != nil {
			return Document{}, err
		}
		section := Section{
			ID:           sec.ID,
			Type:         sec.Type,
			Title:        sec.Title,
			DisplayOrder: sec.DisplayOrder,
			Items:        make([]Item, 0, len(rows)),
		}
		for _, row := range rows {
			item, err := loadItem(ctx, tx, row)
			if err != nil {
				return Document{}, err
			}
			section.Items = append(section.Items, item)
		}
		doc.Sections = append(doc.Sections, section)
	}
	return doc, nil
}

func loadItem(ctx context.Context, tx Store, row store.ResumeItem) (Item, error) {
	item := Item{
		ID:           row.ID,
		DisplayOrder: row.DisplayOrder,
	}
	if row.CatalogKind == nil {
		item.Title = row.Title
		item.Organization = row.Organization
		item.StartDate = row.StartDate
		item.EndDate = row.EndDate
		item.Location = row.Location
		item.Description = row.Description
		return item, nil
	}

	ref := CatalogRef{Kind: CatalogKind(*row.CatalogKind), ID: *row.CatalogID}
	view, err := resolveCatalog(ctx, tx, ref, row.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Item{}, conflictErr("%s %d referenced by item %d is missing", ref.Kind, ref.ID, row.ID)
		}
		return Item{}, err
	}

	item.Catalog = &ref
	item.Fields = make(map[string]string, len(view.Fields))
	for name, value := range view.Fields {
		item.Fields[name] = value
	}
	for name, value := range row.FieldOverrides {
		item.Fields[name] = value
	}

	overrideBullets, err := tx.ListItemBullets(ctx, row.ID)
	if err != nil {
		return Item{}, err
	}
	if len(overrideBullets) > 0 {
		item.Bullets = overrideBullets
	} else {
		item.Bullets = view.Bullets
	}

	overrideSkills, err := tx.ListItemSkillIDs(ctx, row.ID)
	if err != nil {
		return Item{}, err
	}
	skillIDs := view.SkillIDs
	if len(overrideSkills) > 0 {
		skillIDs = overrideSkills
	}
	item.SkillIDs = skillIDs

	skills, err := tx.GetSkills(ctx, skillIDs, row.UserID)
	if err != nil {
		return Item{}, err
	}
	item.Skills = make([]SkillRef, 0, len(skills))
	for _, sk := range skills {
		item.Skills = append(item.Skills, SkillRef{ID: sk.ID, Name: sk.Name, Category: sk.Category})
	}
	return item, nil
}
