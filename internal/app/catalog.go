package app

import (
	"context"
	"strings"

	"resumeforge/api/internal/reconcile"
	"resumeforge/api/internal/store"
)

// Catalog writes funnel through here so dates are normalized once and the
// caller's response cache is dropped: linked resume items read catalog
// state at load time, so any catalog change can alter cached documents.

type EducationInput struct {
	School    string   `json:"school"`
	Degree    string   `json:"degree"`
	Major     string   `json:"major"`
	Location  string   `json:"location"`
	StartDate string   `json:"startDate"`
	EndDate   *string  `json:"endDate"`
	GPA       *string  `json:"gpa"`
	Summary   string   `json:"summary"`
	Bullets   []string `json:"bullets"`
}

type ExperienceInput struct {
	Role      string   `json:"role"`
	Company   string   `json:"company"`
	Location  string   `json:"location"`
	StartDate string   `json:"startDate"`
	EndDate   *string  `json:"endDate"`
	Summary   string   `json:"summary"`
	Bullets   []string `json:"bullets"`
	SkillIDs  []int64  `json:"skillIds"`
}

type ProjectInput struct {
	Title     string   `json:"title"`
	Role      string   `json:"role"`
	Location  string   `json:"location"`
	StartDate string   `json:"startDate"`
	EndDate   *string  `json:"endDate"`
	Summary   string   `json:"summary"`
	Bullets   []string `json:"bullets"`
	SkillIDs  []int64  `json:"skillIds"`
}

type SkillInput struct {
	Name     string `json:"name"`
	Category string `json:"category"`
}

func normalizeInputDates(startDate string, endDate *string) (string, *string, error) {
	start, err := reconcile.NormalizeDate(startDate)
	if err != nil {
		return "", nil, err
	}
	if endDate == nil {
		return start, nil, nil
	}
	end, err := reconcile.NormalizeDate(*endDate)
	if err != nil {
		return "", nil, err
	}
	return start, &end, nil
}

func requireFields(pairs map[string]string) error {
	missing := make([]string, 0, len(pairs))
	for name, value := range pairs {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return validationFailed("missing required fields", missing)
	}
	return nil
}

func (s *Service) ListEducations(ctx context.Context, session Session) ([]store.Education, error) {
	return s.store.ListEducations(ctx, session.UserID)
}

func (s *Service) CreateEducation(ctx context.Context, session Session, input EducationInput) (store.Education, error) {
	if err := requireFields(map[string]string{"school": input.School, "startDate": input.StartDate}); err != nil {
		return store.Education{}, err
	}
	start, end, err := normalizeInputDates(input.StartDate, input.EndDate)
	if err != nil {
		return store.Education{}, err
	}
	e, err := s.store.CreateEducation(ctx, store.Education{
		UserID:    session.UserID,
		School:    input.School,
		Degree:    input.Degree,
		Major:     input.Major,
		Location:  input.Location,
		StartDate: start,
		EndDate:   end,
		GPA:       input.GPA,
		Summary:   input.Summary,
		Bullets:   input.Bullets,
	})
	if err != nil {
		return store.Education{}, err
	}
	s.invalidateCache(ctx, session.UserID)
	return e, nil
}

func (s *Service) UpdateEducation(ctx context.Context, session Session, id int64, input EducationInput) (store.Education, error) {
	if err := requireFields(map[string]string{"school": input.School, "startDate": input.StartDate}); err != nil {
		return store.Education{}, err
	}
	start, end, err := normalizeInputDates(input.StartDate, input.EndDate)
	if err != nil {
		return store.Education{}, err
	}
	e := store.Education{
		ID:        id,
		UserID:    session.UserID,
		School:    input.School,
		Degree:    input.Degree,
		Major:     input.Major,
		Location:  input.Location,
		StartDate: start,
		EndDate:   end,
		GPA:       input.GPA,
		Summary:   input.Summary,
		Bullets:   input.Bullets,
	}
	if err := s.store.UpdateEducation(ctx, e); err != nil {
		return store.Education{}, err
	}
	s.invalidateCache(ctx, session.UserID)
	return e, nil
}

func (s *Service) DeleteEducation(ctx context.Context, session Session, id int64) error {
	if err := s.store.DeleteEducation(ctx, id, session.UserID); err != nil {
		return err
	}
	s.invalidateCache(ctx, session.UserID)
	return nil
}

func (s *Service) ListExperiences(ctx context.Context, session Session) ([]store.Experience, error) {
	return s.store.ListExperiences(ctx, session.UserID)
}

func (s *Service) CreateExperience(ctx context.Context, session Session, input ExperienceInput) (store.Experience, error) {
	if err := requireFields(map[string]string{"role": input.Role, "company": input.Company, "startDate": input.StartDate}); err != nil {
		return store.Experience{}, err
	}
	start, end, err := normalizeInputDates(input.StartDate, input.EndDate)
	if err != nil {
		return store.Experience{}, err
	}
	e, err := s.store.CreateExperience(ctx, store.Experience{
		UserID:    session.UserID,
		Role:      input.Role,
		Company:   input.Company,
		Location:  input.Location,
		StartDate: start,
		EndDate:   end,
		Summary:   input.Summary,
		Bullets:   input.Bullets,
		SkillIDs:  input.SkillIDs,
	})
	if err != nil {
		return store.Experience{}, err
	}
	s.invalidateCache(ctx, session.UserID)
	return e, nil
}

func (s *Service) UpdateExperience(ctx context.Context, session Session, id int64, input ExperienceInput) (store.Experience, error) {
	if err := requireFields(map[string]string{"role": input.Role, "company": input.Company, "startDate": input.StartDate}); err != nil {
		return store.Experience{}, err
	}
	start, end, err := normalizeInputDates(input.StartDate, input.EndDate)
	if err != nil {
		return store.Experience{}, err
	}
	e := store.Experience{
		ID:        id,
		UserID:    session.UserID,
		Role:      input.Role,
		Company:   input.Company,
		Location:  input.Location,
		StartDate: start,
		EndDate:   end,
		Summary:   input.Summary,
		Bullets:   input.Bullets,
		SkillIDs:  input.SkillIDs,
	}
	if err := s.store.UpdateExperience(ctx, e); err != nil {
		return store.Experience{}, err
	}
	s.invalidateCache(ctx, session.UserID)
	return e, nil
}

func (s *Service) DeleteExperience(ctx context.Context, session Session, id int64) error {
	if err := s.store.DeleteExperience(ctx, id, session.UserID); err != nil {
		return err
	}
	s.invalidateCache(ctx, session.UserID)
	return nil
}

func (s *Service) ListProjects(ctx context.Context, session Session) ([]store.Project, error) {
	return s.store.ListProjects(ctx, session.UserID)
}

func (s *Service) CreateProject(ctx context.Context, session Session, input ProjectInput) (store.Project, error) {
	if err := requireFields(map[string]string{"title": input.Title, "startDate": input.StartDate}); err != nil {
		return store.Project{}, err
	}
	start, end, err := normalizeInputDates(input.StartDate, input.EndDate)
	if err != nil {
		return store.Project{}, err
	}
	p, err := s.store.CreateProject(ctx, store.Project{
		UserID:    session.UserID,
		Title:     input.Title,
		Role:      input.Role,
		Location:  input.Location,
		StartDate: start,
		EndDate:   end,
		Summary:   input.Summary,
		Bullets:   input.Bullets,
		SkillIDs:  input.SkillIDs,
	})
	if err != nil {
		return store.Project{}, err
	}
	s.invalidateCache(ctx, session.UserID)
	return p, nil
}

func (s *Service) UpdateProject(ctx context.Context, session Session, id int64, input ProjectInput) (store.Project, error) {
	if err := requireFields(map[string]string{"title": input.Title, "startDate": input.StartDate}); err != nil {
		return store.Project{}, err
	}
	start, end, err := normalizeInputDates(input.StartDate, input.EndDate)
	if err != nil {
		return store.Project{}, err
	}
	p := store.Project{
		ID:        id,
		UserID:    session.UserID,
		Title:     input.Title,
		Role:      input.Role,
		Location:  input.Location,
		StartDate: start,
		EndDate:   end,
		Summary:   input.Summary,
		Bullets:   input.Bullets,
		SkillIDs:  input.SkillIDs,
	}
	if err := s.store.UpdateProject(ctx, p); err != nil {
		return store.Project{}, err
	}
	s.invalidateCache(ctx, session.UserID)
	return p, nil
}

func (s *Service) DeleteProject(ctx context.Context, session Session, id int64) error {
	if err := s.store.DeleteProject(ctx, id, session.UserID); err != nil {
		return err
	}
	s.invalidateCache(ctx, session.UserID)
	return nil
}

func (s *Service) ListSkills(ctx context.Context, session Session) ([]store.Skill, error) {
	return s.store.ListSkills(ctx, session.UserID)
}

func (s *Service) CreateSkill(ctx context.Context, session Session, input SkillInput) (store.Skill, error) {
	if err := requireFields(map[string]string{"name": input.Name}); err != nil {
		return store.Skill{}, err
	}
	userID := session.UserID
	sk, err := s.store.CreateSkill(ctx, store.Skill{
		UserID:   &userID,
		Name:     input.Name,
		Category: input.Category,
	})
	if err != nil {
		return store.Skill{}, err
	}
	s.invalidateCache(ctx, session.UserID)
	return sk, nil
}

func (s *Service) DeleteSkill(ctx context.Context, session Session, id int64) error {
	if err := s.store.DeleteSkill(ctx, id, session.UserID); err != nil {
		return err
	}
	s.invalidateCache(ctx, session.UserID)
	return nil
}
