package app

import (
	"context"
	"database/sql"
	"sort"
	"time"

	"resumeforge/api/internal/store"
)

// fakeBackend is an in-memory stand-in for the Postgres store. It serves
// three surfaces at once: the service's data store, the password service's
// user store, and the reconciliation transaction (Commit and Rollback are
// no-ops, so every write is immediately visible).
type fakeBackend struct {
	nextID int64

	users       map[int64]store.User
	templates   map[int64]store.Template
	resumes     map[int64]store.Resume
	sections    map[int64]store.ResumeSection
	items       map[int64]store.ResumeItem
	itemBullets map[int64][]string
	itemSkills  map[int64][]int64
	educations  map[int64]store.Education
	experiences map[int64]store.Experience
	projects    map[int64]store.Project
	skills      map[int64]store.Skill
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		nextID:      100,
		users:       map[int64]store.User{},
		templates:   map[int64]store.Template{},
		resumes:     map[int64]store.Resume{},
		sections:    map[int64]store.ResumeSection{},
		items:       map[int64]store.ResumeItem{},
		itemBullets: map[int64][]string{},
		itemSkills:  map[int64][]int64{},
		educations:  map[int64]store.Education{},
		experiences: map[int64]store.Experience{},
		projects:    map[int64]store.Project{},
		skills:      map[int64]store.Skill{},
	}
}

func (f *fakeBackend) id() int64 {
	f.nextID++
	return f.nextID
}

func (f *fakeBackend) Ping(ctx context.Context) error { return nil }
func (f *fakeBackend) Commit() error                  { return nil }
func (f *fakeBackend) Rollback() error                { return nil }

func (f *fakeBackend) GetUserByID(ctx context.Context, id int64) (store.User, error) {
	user, ok := f.users[id]
	if !ok {
		return store.User{}, sql.ErrNoRows
	}
	return user, nil
}

func (f *fakeBackend) GetUserByEmail(ctx context.Context, email string) (store.User, error) {
	for _, user := range f.users {
		if user.Email == email {
			return user, nil
		}
	}
	return store.User{}, sql.ErrNoRows
}

func (f *fakeBackend) CreateUser(ctx context.Context, user store.User) (store.User, error) {
	user.ID = f.id()
	user.CreatedAt = time.Now()
	f.users[user.ID] = user
	return user, nil
}

func (f *fakeBackend) ListTemplates(ctx context.Context) ([]store.Template, error) {
	out := make([]store.Template, 0, len(f.templates))
	for _, tpl := range f.templates {
		out = append(out, tpl)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeBackend) GetTemplate(ctx context.Context, id int64) (store.Template, error) {
	tpl, ok := f.templates[id]
	if !ok {
		return store.Template{}, sql.ErrNoRows
	}
	return tpl, nil
}

func (f *fakeBackend) TemplateExists(ctx context.Context, id int64) (bool, error) {
	_, ok := f.templates[id]
	return ok, nil
}

func (f *fakeBackend) ListResumes(ctx context.Context, userID int64) ([]store.Resume, error) {
	out := make([]store.Resume, 0)
	for _, resume := range f.resumes {
		if resume.UserID == userID {
			out = append(out, resume)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeBackend) CreateResume(ctx context.Context, resume store.Resume) (store.Resume, error) {
	resume.ID = f.id()
	resume.CreatedAt = time.Now()
	resume.UpdatedAt = resume.CreatedAt
	f.resumes[resume.ID] = resume
	return resume, nil
}

func (f *fakeBackend) DeleteResume(ctx context.Context, resumeID, userID int64) error {
	resume, ok := f.resumes[resumeID]
	if !ok || resume.UserID != userID {
		return sql.ErrNoRows
	}
	for sectionID, sec := range f.sections {
		if sec.ResumeID == resumeID {
			_ = f.DeleteSections(ctx, []int64{sectionID})
		}
	}
	delete(f.resumes, resumeID)
	return nil
}

func (f *fakeBackend) GetResume(ctx context.Context, resumeID, userID int64) (store.Resume, error) {
	resume, ok := f.resumes[resumeID]
	if !ok || resume.UserID != userID {
		return store.Resume{}, sql.ErrNoRows
	}
	return resume, nil
}

func (f *fakeBackend) GetResumeForUpdate(ctx context.Context, resumeID, userID int64) (store.Resume, error) {
	return f.GetResume(ctx, resumeID, userID)
}

func (f *fakeBackend) UpdateResume(ctx context.Context, resume store.Resume) error {
	resume.Revision++
	resume.UpdatedAt = time.Now()
	f.resumes[resume.ID] = resume
	return nil
}

func (f *fakeBackend) ListSections(ctx context.Context, resumeID, userID int64) ([]store.ResumeSection, error) {
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

func (f *fakeBackend) InsertSection(ctx context.Context, sec *store.ResumeSection) error {
	sec.ID = f.id()
	f.sections[sec.ID] = *sec
	return nil
}

func (f *fakeBackend) UpdateSection(ctx context.Context, sec store.ResumeSection) error {
	f.sections[sec.ID] = sec
	return nil
}

func (f *fakeBackend) DeleteSections(ctx context.Context, ids []int64) error {
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

func (f *fakeBackend) ListItems(ctx context.Context, sectionID int64) ([]store.ResumeItem, error) {
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

func (f *fakeBackend) InsertItem(ctx context.Context, item *store.ResumeItem) error {
	item.ID = f.id()
	f.items[item.ID] = *item
	return nil
}

func (f *fakeBackend) UpdateItem(ctx context.Context, item store.ResumeItem) error {
	f.items[item.ID] = item
	return nil
}

func (f *fakeBackend) DeleteItems(ctx context.Context, ids []int64) error {
	for _, id := range ids {
		delete(f.items, id)
		delete(f.itemBullets, id)
		delete(f.itemSkills, id)
	}
	return nil
}

func (f *fakeBackend) ListItemBullets(ctx context.Context, itemID int64) ([]string, error) {
	return f.itemBullets[itemID], nil
}

func (f *fakeBackend) ReplaceItemBullets(ctx context.Context, itemID int64, bullets []string) error {
	f.itemBullets[itemID] = append([]string(nil), bullets...)
	return nil
}

func (f *fakeBackend) DeleteItemBullets(ctx context.Context, itemID int64) error {
	delete(f.itemBullets, itemID)
	return nil
}

func (f *fakeBackend) ListItemSkillIDs(ctx context.Context, itemID int64) ([]int64, error) {
	return f.itemSkills[itemID], nil
}

func (f *fakeBackend) ReplaceItemSkills(ctx context.Context, itemID int64, skillIDs []int64) error {
	f.itemSkills[itemID] = append([]int64(nil), skillIDs...)
	return nil
}

func (f *fakeBackend) DeleteItemSkills(ctx context.Context, itemID int64) error {
	delete(f.itemSkills, itemID)
	return nil
}

func (f *fakeBackend) ListEducations(ctx context.Context, userID int64) ([]store.Education, error) {
	out := make([]store.Education, 0)
	for _, e := range f.educations {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeBackend) GetEducation(ctx context.Context, id, userID int64) (store.Education, error) {
	e, ok := f.educations[id]
	if !ok || e.UserID != userID {
		return store.Education{}, sql.ErrNoRows
	}
	return e, nil
}

func (f *fakeBackend) CreateEducation(ctx context.Context, e store.Education) (store.Education, error) {
	e.ID = f.id()
	f.educations[e.ID] = e
	return e, nil
}

func (f *fakeBackend) UpdateEducation(ctx context.Context, e store.Education) error {
	existing, ok := f.educations[e.ID]
	if !ok || existing.UserID != e.UserID {
		return sql.ErrNoRows
	}
	f.educations[e.ID] = e
	return nil
}

func (f *fakeBackend) DeleteEducation(ctx context.Context, id, userID int64) error {
	e, ok := f.educations[id]
	if !ok || e.UserID != userID {
		return sql.ErrNoRows
	}
	delete(f.educations, id)
	return nil
}

func (f *fakeBackend) ListExperiences(ctx context.Context, userID int64) ([]store.Experience, error) {
	out := make([]store.Experience, 0)
	for _, e := range f.experiences {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeBackend) GetExperience(ctx context.Context, id, userID int64) (store.Experience, error) {
	e, ok := f.experiences[id]
	if !ok || e.UserID != userID {
		return store.Experience{}, sql.ErrNoRows
	}
	return e, nil
}

func (f *fakeBackend) CreateExperience(ctx context.Context, e store.Experience) (store.Experience, error) {
	e.ID = f.id()
	f.experiences[e.ID] = e
	return e, nil
}

func (f *fakeBackend) UpdateExperience(ctx context.Context, e store.Experience) error {
	existing, ok := f.experiences[e.ID]
	if !ok || existing.UserID != e.UserID {
		return sql.ErrNoRows
	}
	f.experiences[e.ID] = e
	return nil
}

func (f *fakeBackend) DeleteExperience(ctx context.Context, id, userID int64) error {
	e, ok := f.experiences[id]
	if !ok || e.UserID != userID {
		return sql.ErrNoRows
	}
	delete(f.experiences, id)
	return nil
}

func (f *fakeBackend) ListProjects(ctx context.Context, userID int64) ([]store.Project, error) {
	out := make([]store.Project, 0)
	for _, p := range f.projects {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeBackend) GetProject(ctx context.Context, id, userID int64) (store.Project, error) {
	p, ok := f.projects[id]
	if !ok || p.UserID != userID {
		return store.Project{}, sql.ErrNoRows
	}
	return p, nil
}

func (f *fakeBackend) CreateProject(ctx context.Context, p store.Project) (store.Project, error) {
	p.ID = f.id()
	f.projects[p.ID] = p
	return p, nil
}

func (f *fakeBackend) UpdateProject(ctx context.Context, p store.Project) error {
	existing, ok := f.projects[p.ID]
	if !ok || existing.UserID != p.UserID {
		return sql.ErrNoRows
	}
	f.projects[p.ID] = p
	return nil
}

func (f *fakeBackend) DeleteProject(ctx context.Context, id, userID int64) error {
	p, ok := f.projects[id]
	if !ok || p.UserID != userID {
		return sql.ErrNoRows
	}
	delete(f.projects, id)
	return nil
}

func (f *fakeBackend) ListSkills(ctx context.Context, userID int64) ([]store.Skill, error) {
	out := make([]store.Skill, 0)
	for _, sk := range f.skills {
		if sk.UserID == nil || *sk.UserID == userID {
			out = append(out, sk)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeBackend) CreateSkill(ctx context.Context, sk store.Skill) (store.Skill, error) {
	sk.ID = f.id()
	f.skills[sk.ID] = sk
	return sk, nil
}

func (f *fakeBackend) DeleteSkill(ctx context.Context, id, userID int64) error {
	sk, ok := f.skills[id]
	if !ok || sk.UserID == nil || *sk.UserID != userID {
		return sql.ErrNoRows
	}
	delete(f.skills, id)
	return nil
}

func (f *fakeBackend) GetSkills(ctx context.Context, ids []int64, userID int64) ([]store.Skill, error) {
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

// fakeSessions is an in-memory refresh session and revocation store.
type fakeSessions struct {
	refresh map[string]int64
	revoked map[string]bool
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{refresh: map[string]int64{}, revoked: map[string]bool{}}
}

func (f *fakeSessions) SaveRefreshSession(ctx context.Context, tokenHash string, userID int64, expiresAt time.Time) error {
	f.refresh[tokenHash] = userID
	return nil
}

func (f *fakeSessions) LookupRefreshSession(ctx context.Context, tokenHash string) (int64, error) {
	userID, ok := f.refresh[tokenHash]
	if !ok {
		return 0, sql.ErrNoRows
	}
	return userID, nil
}

func (f *fakeSessions) RevokeRefreshSession(ctx context.Context, tokenHash string) error {
	delete(f.refresh, tokenHash)
	return nil
}

func (f *fakeSessions) RevokeAccessToken(ctx context.Context, jti string, expiresAt time.Time) error {
	f.revoked[jti] = true
	return nil
}

func (f *fakeSessions) IsAccessTokenRevoked(ctx context.Context, jti string) (bool, error) {
	return f.revoked[jti], nil
}
