package reconcile

import (
	"context"
	"database/sql"
	"sort"

	"resumeforge/api/internal/store"
)

// fakeTx is an in-memory Store for engine tests.
type fakeTx struct {
	nextID      int64
	lockedReads int

	resumes     map[int64]store.Resume
	sections    map[int64]store.ResumeSection
	items       map[int64]store.ResumeItem
	itemBullets map[int64][]string
	itemSkills  map[int64][]int64

	educations  map[int64]store.Education
	experiences map[int64]store.Experience
	projects    map[int64]store.Project
	skills      map[int64]store.Skill
	templates   map[int64]bool
}

func newFakeTx() *fakeTx {
	return &fakeTx{
		nextID:      100,
		resumes:     map[int64]store.Resume{},
		sections:    map[int64]store.ResumeSection{},
		items:       map[int64]store.ResumeItem{},
		itemBullets: map[int64][]string{},
		itemSkills:  map[int64][]int64{},
		educations:  map[int64]store.Education{},
		experiences: map[int64]store.Experience{},
		projects:    map[int64]store.Project{},
		skills:      map[int64]store.Skill{},
		templates:   map[int64]bool{},
	}
}

func (f *fakeTx) id() int64 {
	f.nextID++
	return f.nextID
}

func (f *fakeTx) GetResume(ctx context.Context, resumeID, userID int64) (store.Resume, error) {
	resume, ok := f.resumes[resumeID]
	if !ok || resume.UserID != userID {
		return store.Resume{}, sql.ErrNoRows
	}
	return resume, nil
}

func (f *fakeTx) GetResumeForUpdate(ctx context.Context, resumeID, userID int64) (store.Resume, error) {
	f.lockedReads++
	return f.GetResume(ctx, resumeID, userID)
}

func (f *fakeTx) UpdateResume(ctx context.Context, resume store.Resume) error {
	resume.Revision++
	f.resumes[resume.ID] = resume
	return nil
}

func (f *fakeTx) ListSections(ctx context.Context, resumeID, userID int64) ([]store.ResumeSection, error) {
	out := make([]store.ResumeSection, 0)
	for _, sec := range f.sections {
		if sec.ResumeID == resumeID && sec.UserID == userID {
			out = append(out, sec)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DisplayOrder != out[j].DisplayOrder {
			return out[i].DisplayOrder < out[j].DisplayOrder
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (f *fakeTx) InsertSection(ctx context.Context, sec *store.ResumeSection) error {
	sec.ID = f.id()
	f.sections[sec.ID] = *sec
	return nil
}

func (f *fakeTx) UpdateSection(ctx context.Context, sec store.ResumeSection) error {
	f.sections[sec.ID] = sec
	return nil
}

func (f *fakeTx) DeleteSections(ctx context.Context, ids []int64) error {
	for _, id := range ids {
		for itemID, item := range f.items {
			if item.SectionID == id {
				delete(f.items, itemID)
				delete(f.itemBullets, itemID)
				delete(f.itemSkills, itemID)
			}
		}
		delete(f.sections, id)
	}
	return nil
}

func (f *fakeTx) ListItems(ctx context.Context, sectionID int64) ([]store.ResumeItem, error) {
	out := make([]store.ResumeItem, 0)
	for _, item := range f.items {
		if item.SectionID == sectionID {
			out = append(out, item)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DisplayOrder != out[j].DisplayOrder {
			return out[i].DisplayOrder < out[j].DisplayOrder
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (f *fakeTx) InsertItem(ctx context.Context, item *store.ResumeItem) error {
	item.ID = f.id()
	f.items[item.ID] = *item
	return nil
}

func (f *fakeTx) UpdateItem(ctx context.Context, item store.ResumeItem) error {
	f.items[item.ID] = item
	return nil
}

func (f *fakeTx) DeleteItems(ctx context.Context, ids []int64) error {
	for _, id := range ids {
		delete(f.items, id)
		delete(f.itemBullets, id)
		delete(f.itemSkills, id)
	}
	return nil
}

func (f *fakeTx) ListItemBullets(ctx context.Context, itemID int64) ([]string, error) {
	return f.itemBullets[itemID], nil
}

func (f *fakeTx) ReplaceItemBullets(ctx context.Context, itemID int64, bullets []string) error {
	f.itemBullets[itemID] = append([]string(nil), bullets...)
	return nil
}

func (f *fakeTx) DeleteItemBullets(ctx context.Context, itemID int64) error {
	delete(f.itemBullets, itemID)
	return nil
}

func (f *fakeTx) ListItemSkillIDs(ctx context.Context, itemID int64) ([]int64, error) {
	return f.itemSkills[itemID], nil
}

func (f *fakeTx) ReplaceItemSkills(ctx context.Context, itemID int64, skillIDs []int64) error {
	f.itemSkills[itemID] = append([]int64(nil), skillIDs...)
	return nil
}

func (f *fakeTx) DeleteItemSkills(ctx context.Context, itemID int64) error {
	delete(f.itemSkills, itemID)
	return nil
}

func (f *fakeTx) GetEducation(ctx context.Context, id, userID int64) (store.Education, error) {
	e, ok := f.educations[id]
	if !ok || e.UserID != userID {
		return store.Education{}, sql.ErrNoRows
	}
	return e, nil
}

func (f *fakeTx) GetExperience(ctx context.Context, id, userID int64) (store.Experience, error) {
	e, ok := f.experiences[id]
	if !ok || e.UserID != userID {
		return store.Experience{}, sql.ErrNoRows
	}
	return e, nil
}

func (f *fakeTx) GetProject(ctx context.Context, id, userID int64) (store.Project, error) {
	p, ok := f.projects[id]
	if !ok || p.UserID != userID {
		return store.Project{}, sql.ErrNoRows
	}
	return p, nil
}

func (f *fakeTx) GetSkills(ctx context.Context, ids []int64, userID int64) ([]store.Skill, error) {
	out := make([]store.Skill, 0, len(ids))
	for _, id := range ids {
		sk, ok := f.skills[id]
		if !ok || (sk.UserID != nil && *sk.UserID != userID) {
			continue
		}
		out = append(out, sk)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (f *fakeTx) TemplateExists(ctx context.Context, id int64) (bool, error) {
	return f.templates[id], nil
}
