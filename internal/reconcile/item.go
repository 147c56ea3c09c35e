package reconcile

import (
	"context"
	"database/sql"
	"errors"
	"log"

	"resumeforge/api/internal/store"
)

// reconcileItems applies the three-way diff for one section's items:
// submitted ids resolving to rows of this section are updated in place,
// everything else is created, and persisted rows absent from the payload
// are deleted. display_order is always the submission index.
func (e *Engine) reconcileItems(ctx context.Context, tx Store, section *store.ResumeSection, submitted []ItemPayload) error {
	existing, err := tx.ListItems(ctx, section.ID)
	if err != nil {
		return err
	}
	owned := make(map[int64]*store.ResumeItem, len(existing))
	for i := range existing {
		owned[existing[i].ID] = &existing[i]
	}

	processed := make(map[int64]struct{}, len(submitted))
	for i, payload := range submitted {
		item, resolved := resolveOrCreate(payload.ID, owned)
		if !resolved {
			item = &store.ResumeItem{
				SectionID: section.ID,
				ResumeID:  section.ResumeID,
				UserID:    section.UserID,
			}
		}
		item.DisplayOrder = i

		if payload.Catalog != nil {
			if err := e.applyLinked(ctx, tx, item, payload, resolved); err != nil {
				return err
			}
		} else {
			if err := e.applyDirect(ctx, tx, item, payload, resolved); err != nil {
				return err
			}
		}
		processed[item.ID] = struct{}{}
	}

	var orphans []int64
	for id := range owned {
		if _, ok := processed[id]; !ok {
			orphans = append(orphans, id)
		}
	}
	return tx.DeleteItems(ctx, orphans)
}

// applyDirect persists an item that owns its scalar fields outright.
func (e *Engine) applyDirect(ctx context.Context, tx Store, item *store.ResumeItem, payload ItemPayload, resolved bool) error {
	startDate, err := NormalizeDate(payload.StartDate)
	if err != nil {
		return err
	}
	item.Title = payload.Title
	item.Organization = payload.Organization
	item.StartDate = startDate
	item.EndDate = nil
	if payload.EndDate != nil {
		endDate, err := NormalizeDate(*payload.EndDate)
		if err != nil {
			return err
		}
		if endDate != "" {
			item.EndDate = &endDate
		}
	}
	item.Location = payload.Location
	item.Description = payload.Description

	// A previously linked item submitted without a catalog ref converts to
	// direct ownership; its override rows are dead weight.
	wasLinked := item.CatalogKind != nil
	item.CatalogKind = nil
	item.CatalogID = nil
	item.FieldOverrides = nil

	if !resolved {
		return tx.InsertItem(ctx, item)
	}
	if err := tx.UpdateItem(ctx, *item); err != nil {
		return err
	}
	if wasLinked {
		if err := tx.DeleteItemBullets(ctx, item.ID); err != nil {
			return err
		}
		if err := tx.DeleteItemSkills(ctx, item.ID); err != nil {
			return err
		}
	}
	return nil
}

// applyLinked persists an item that references a catalog entity, storing
// only the sparse deltas between the submission and the baseline.
func (e *Engine) applyLinked(ctx context.Context, tx Store, item *store.ResumeItem, payload ItemPayload, resolved bool) error {
	view, err := resolveCatalog(ctx, tx, *payload.Catalog, item.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return conflictErr("%s %d does not exist", payload.Catalog.Kind, payload.Catalog.ID)
		}
		return err
	}

	overrides, unknown, err := ResolveFieldOverrides(view.Fields, payload.Fields)
	if err != nil {
		return err
	}
	for _, name := range unknown {
		log.Printf("ignoring unknown override field %q for %s %d", name, payload.Catalog.Kind, payload.Catalog.ID)
	}

	kind := string(payload.Catalog.Kind)
	catalogID := payload.Catalog.ID
	item.CatalogKind = &kind
	item.CatalogID = &catalogID
	item.FieldOverrides = overrides
	item.Title = ""
	item.Organization = ""
	item.StartDate = ""
	item.EndDate = nil
	item.Location = ""
	item.Description = ""

	if !resolved {
		if err := tx.InsertItem(ctx, item); err != nil {
			return err
		}
	} else if err := tx.UpdateItem(ctx, *item); err != nil {
		return err
	}

	// Bullets and skills: equality with the baseline means "inherit", so
	// any stored overrides are pruned; divergence replaces them wholesale.
	if payload.Bullets == nil || BulletsEqual(payload.Bullets, view.Bullets) {
		if err := tx.DeleteItemBullets(ctx, item.ID); err != nil {
			return err
		}
	} else if err := tx.ReplaceItemBullets(ctx, item.ID, payload.Bullets); err != nil {
		return err
	}

	if payload.SkillIDs == nil {
		return tx.DeleteItemSkills(ctx, item.ID)
	}
	skillIDs, err := resolveSkillIDs(ctx, tx, item.UserID, item.ID, payload.SkillIDs)
	if err != nil {
		return err
	}
	if SkillSetsEqual(skillIDs, view.SkillIDs) {
		return tx.DeleteItemSkills(ctx, item.ID)
	}
	return tx.ReplaceItemSkills(ctx, item.ID, skillIDs)
}

// resolveSkillIDs keeps only ids that resolve to a skill visible to the
// user. Dangling and foreign references are logged and dropped, never
// persisted as override rows.
func resolveSkillIDs(ctx context.Context, tx Store, userID, itemID int64, ids []int64) ([]int64, error) {
	skills, err := tx.GetSkills(ctx, ids, userID)
	if err != nil {
		return nil, err
	}
	known := make(map[int64]struct{}, len(skills))
	for _, sk := range skills {
		known[sk.ID] = struct{}{}
	}
	kept := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := known[id]; !ok {
			log.Printf("ignoring unresolvable skill %d on item %d", id, itemID)
			continue
		}
		kept = append(kept, id)
	}
	return kept, nil
}
