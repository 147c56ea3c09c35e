package reconcile

import (
	"context"
	"time"

	"resumeforge/api/internal/store"
)

// CatalogView is the baseline an item's overrides are diffed against:
// the entity's comparable fields, its ordered bullets, and its skill set.
type CatalogView struct {
	Fields   map[string]string
	Bullets  []string
	SkillIDs []int64
}

// resolveCatalog is the single typed lookup per catalog variant.
func resolveCatalog(ctx context.Context, tx Store, ref CatalogRef, userID int64) (CatalogView, error) {
	switch ref.Kind {
	case CatalogEducation:
		e, err := tx.GetEducation(ctx, ref.ID, userID)
		if err != nil {
			return CatalogView{}, err
		}
		return educationView(e), nil
	case CatalogExperience:
		e, err := tx.GetExperience(ctx, ref.ID, userID)
		if err != nil {
			return CatalogView{}, err
		}
		return experienceView(e), nil
	case CatalogProject:
		p, err := tx.GetProject(ctx, ref.ID, userID)
		if err != nil {
			return CatalogView{}, err
		}
		return projectView(p), nil
	default:
		return CatalogView{}, validationErr("unknown catalog kind %q", ref.Kind)
	}
}

func educationView(e store.Education) CatalogView {
	return CatalogView{
		Fields: map[string]string{
			"school":     e.School,
			"degree":     e.Degree,
			"major":      e.Major,
			"location":   e.Location,
			"start_date": e.StartDate,
			"end_date":   deref(e.EndDate),
			"gpa":        deref(e.GPA),
			"summary":    e.Summary,
		},
		Bullets: e.Bullets,
	}
}

func experienceView(e store.Experience) CatalogView {
	return CatalogView{
		Fields: map[string]string{
			"role":       e.Role,
			"company":    e.Company,
			"location":   e.Location,
			"start_date": e.StartDate,
			"end_date":   deref(e.EndDate),
			"summary":    e.Summary,
		},
		Bullets:  e.Bullets,
		SkillIDs: e.SkillIDs,
	}
}

func projectView(p store.Project) CatalogView {
	return CatalogView{
		Fields: map[string]string{
			"title":      p.Title,
			"role":       p.Role,
			"location":   p.Location,
			"start_date": p.StartDate,
			"end_date":   deref(p.EndDate),
			"summary":    p.Summary,
		},
		Bullets:  p.Bullets,
		SkillIDs: p.SkillIDs,
	}
}

// ResolveFieldOverrides computes the minimal override map such that
// overlaying it on the catalog baseline reproduces the submission exactly.
// Equal fields produce no entry; fields outside the catalog schema are
// returned as unknown and must not be stored.
func ResolveFieldOverrides(catalog, submitted map[string]string) (map[string]string, []string, error) {
	overrides := map[string]string{}
	var unknown []string
	for name, value := range submitted {
		baseline, ok := catalog[name]
		if !ok {
			unknown = append(unknown, name)
			continue
		}
		if isDateField(name) {
			normalized, err := NormalizeDate(value)
			if err != nil {
				return nil, nil, validationErr("field %q: %v", name, err)
			}
			value = normalized
			if b, err := NormalizeDate(baseline); err == nil {
				baseline = b
			}
		}
		if value != baseline {
			overrides[name] = value
		}
	}
	return overrides, unknown, nil
}

// BulletsEqual compares bullet lists with order sensitivity: any length or
// positional mismatch means the whole override set is replaced.
func BulletsEqual(submitted, catalog []string) bool {
	if len(submitted) != len(catalog) {
		return false
	}
	for i := range submitted {
		if submitted[i] != catalog[i] {
			return false
		}
	}
	return true
}

// SkillSetsEqual compares skill references as unordered sets.
func SkillSetsEqual(a, b []int64) bool {
	if len(uniqueIDs(a)) != len(uniqueIDs(b)) {
		return false
	}
	set := uniqueIDs(a)
	for _, id := range b {
		if _, ok := set[id]; !ok {
			return false
		}
	}
	return true
}

func uniqueIDs(ids []int64) map[int64]struct{} {
	set := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006-01",
}

// NormalizeDate canonicalizes a date to YYYY-MM-DD. The empty string is
// preserved (an absent end date means open-ended).
func NormalizeDate(value string) (string, error) {
	if value == "" {
		return "", nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.Format("2006-01-02"), nil
		}
	}
	return "", validationErr("unparsable date %q", value)
}

func isDateField(name string) bool {
	return name == "start_date" || name == "end_date"
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
