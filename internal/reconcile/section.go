package reconcile

import (
	"context"

	"resumeforge/api/internal/store"
)

// reconcileSections walks the submitted sections in order, resolving or
// creating each, then deletes persisted sections absent from the payload.
// Items are reconciled immediately after each section resolves so a fresh
// section has an id for its item foreign keys.
func (e *Engine) reconcileSections(ctx context.Context, tx Store, resume store.Resume, submitted []SectionPayload) error {
	existing, err := tx.ListSections(ctx, resume.ID, resume.UserID)
	if err != nil {
		return err
	}
	owned := make(map[int64]*store.ResumeSection, len(existing))
	for i := range existing {
		owned[existing[i].ID] = &existing[i]
	}

	processed := make(map[int64]struct{}, len(submitted))
	for i, payload := range submitted {
		section, resolved := resolveOrCreate(payload.ID, owned)
		if !resolved {
			section = &store.ResumeSection{
				ResumeID: resume.ID,
				UserID:   resume.UserID,
			}
		}
		section.Type = payload.Type
		section.Title = payload.Title
		section.DisplayOrder = i

		if resolved {
			if err := tx.UpdateSection(ctx, *section); err != nil {
				return err
			}
		} else if err := tx.InsertSection(ctx, section); err != nil {
			return err
		}

		if err := e.reconcileItems(ctx, tx, section, payload.Items); err != nil {
			return err
		}
		processed[section.ID] = struct{}{}
	}

	var orphans []int64
	for id := range owned {
		if _, ok := processed[id]; !ok {
			orphans = append(orphans, id)
		}
	}
	return tx.DeleteSections(ctx, orphans)
}

// validateSections runs before any write. Structural problems abort the
// whole save; silent partial application would let the client believe its
// full edit succeeded.
func (e *Engine) validateSections(sections []SectionPayload) error {
	seen := map[string]int{}
	for _, section := range sections {
		if !knownSectionType(section.Type) {
			return validationErr("unknown section type %q", section.Type)
		}
		seen[section.Type]++

		for _, item := range section.Items {
			if err := validateItem(item); err != nil {
				return err
			}
		}
	}

	if !e.StrictSections {
		return nil
	}
	for _, required := range RequiredSectionTypes {
		switch seen[required] {
		case 0:
			return validationErr("missing required section %q", required)
		case 1:
		default:
			return validationErr("duplicate section %q", required)
		}
	}
	if len(sections) != len(RequiredSectionTypes) {
		return validationErr("unexpected extra sections")
	}
	for _, section := range sections {
		if len(section.Items) == 0 {
			return validationErr("section %q has no items", section.Type)
		}
	}
	return nil
}

func validateItem(item ItemPayload) error {
	if item.Catalog != nil {
		// Linked items inherit their scalars; only the override dates need
		// to parse here. Catalog existence is checked at write time.
		for _, name := range []string{"start_date", "end_date"} {
			if value, ok := item.Fields[name]; ok {
				if _, err := NormalizeDate(value); err != nil {
					return err
				}
			}
		}
		return nil
	}

	missing := make([]string, 0, 5)
	if item.Title == "" {
		missing = append(missing, "title")
	}
	if item.Organization == "" {
		missing = append(missing, "organization")
	}
	if item.StartDate == "" {
		missing = append(missing, "startDate")
	}
	if item.Location == "" {
		missing = append(missing, "location")
	}
	if item.Description == "" {
		missing = append(missing, "description")
	}
	if len(missing) > 0 {
		return &ValidationError{Message: "missing required item fields", Details: missing}
	}
	if _, err := NormalizeDate(item.StartDate); err != nil {
		return err
	}
	if item.EndDate != nil {
		if _, err := NormalizeDate(*item.EndDate); err != nil {
			return err
		}
	}
	return nil
}
