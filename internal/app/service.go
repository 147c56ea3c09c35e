package app

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"resumeforge/api/internal/auth"
	"resumeforge/api/internal/authpw"
	"resumeforge/api/internal/config"
	"resumeforge/api/internal/reconcile"
	"resumeforge/api/internal/render"
	"resumeforge/api/internal/respcache"
	"resumeforge/api/internal/session"
	"resumeforge/api/internal/store"
)

type Session struct {
	Token        string
	RefreshToken string
	UserID       int64
	Email        string
	DisplayName  string
	JTI          string
	ExpiresAt    time.Time
}

// resumeTx is a transaction scoped to one reconciliation or read.
type resumeTx interface {
	reconcile.Store
	Commit() error
	Rollback() error
}

type dataStore interface {
	Ping(ctx context.Context) error
	GetUserByID(ctx context.Context, id int64) (store.User, error)
	ListTemplates(ctx context.Context) ([]store.Template, error)
	GetTemplate(ctx context.Context, id int64) (store.Template, error)
	ListResumes(ctx context.Context, userID int64) ([]store.Resume, error)
	CreateResume(ctx context.Context, resume store.Resume) (store.Resume, error)
	DeleteResume(ctx context.Context, resumeID, userID int64) error
	ListEducations(ctx context.Context, userID int64) ([]store.Education, error)
	GetEducation(ctx context.Context, id, userID int64) (store.Education, error)
	CreateEducation(ctx context.Context, e store.Education) (store.Education, error)
	UpdateEducation(ctx context.Context, e store.Education) error
	DeleteEducation(ctx context.Context, id, userID int64) error
	ListExperiences(ctx context.Context, userID int64) ([]store.Experience, error)
	GetExperience(ctx context.Context, id, userID int64) (store.Experience, error)
	CreateExperience(ctx context.Context, e store.Experience) (store.Experience, error)
	UpdateExperience(ctx context.Context, e store.Experience) error
	DeleteExperience(ctx context.Context, id, userID int64) error
	ListProjects(ctx context.Context, userID int64) ([]store.Project, error)
	GetProject(ctx context.Context, id, userID int64) (store.Project, error)
	CreateProject(ctx context.Context, p store.Project) (store.Project, error)
	UpdateProject(ctx context.Context, p store.Project) error
	DeleteProject(ctx context.Context, id, userID int64) error
	ListSkills(ctx context.Context, userID int64) ([]store.Skill, error)
	CreateSkill(ctx context.Context, sk store.Skill) (store.Skill, error)
	DeleteSkill(ctx context.Context, id, userID int64) error
}

type sessionStore interface {
	SaveRefreshSession(ctx context.Context, tokenHash string, userID int64, expiresAt time.Time) error
	LookupRefreshSession(ctx context.Context, tokenHash string) (int64, error)
	RevokeRefreshSession(ctx context.Context, tokenHash string) error
	RevokeAccessToken(ctx context.Context, jti string, expiresAt time.Time) error
	IsAccessTokenRevoked(ctx context.Context, jti string) (bool, error)
}

type responseCache interface {
	Get(ctx context.Context, userID int64, path string) ([]byte, bool, error)
	Put(ctx context.Context, userID int64, path string, body []byte) error
	Invalidate(ctx context.Context, userID int64) error
}

type renderService interface {
	Submit(ctx context.Context, userID int64, doc reconcile.Document, templateName string) (store.RenderJob, error)
	Status(ctx context.Context, jobID string, userID int64) (store.RenderJob, error)
}

type Service struct {
	cfg      config.Config
	store    dataStore
	sessions sessionStore
	cache    responseCache
	render   renderService
	auth     *authpw.Service
	engine   *reconcile.Engine
	beginTx  func(ctx context.Context) (resumeTx, error)
}

func New(cfg config.Config, dataStore *store.PostgresStore, sessions *session.RedisStore, cache *respcache.Cache, renderer *render.Service) *Service {
	svc := &Service{
		cfg:      cfg,
		store:    dataStore,
		sessions: sessions,
		auth:     authpw.NewService(dataStore),
		engine:   reconcile.NewEngine(cfg.StrictSections),
		beginTx: func(ctx context.Context) (resumeTx, error) {
			return dataStore.BeginTx(ctx)
		},
	}
	if cache != nil {
		svc.cache = cache
	}
	if renderer != nil {
		svc.render = renderer
	}
	return svc
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func (s *Service) SignUp(ctx context.Context, req authpw.SignUpRequest) (Session, error) {
	user, err := s.auth.SignUp(ctx, req)
	if err != nil {
		return Session{}, err
	}
	return s.issueSession(ctx, user)
}

func (s *Service) SignIn(ctx context.Context, req authpw.SignInRequest) (Session, error) {
	user, err := s.auth.SignIn(ctx, req)
	if err != nil {
		return Session{}, err
	}
	return s.issueSession(ctx, user)
}

func (s *Service) Refresh(ctx context.Context, refreshToken string) (Session, error) {
	tokenHash := auth.HashToken(refreshToken)
	userID, err := s.sessions.LookupRefreshSession(ctx, tokenHash)
	if err != nil {
		return Session{}, auth.ErrInvalidToken
	}
	if err := s.sessions.RevokeRefreshSession(ctx, tokenHash); err != nil {
		return Session{}, err
	}
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return Session{}, err
	}
	return s.issueSession(ctx, user)
}

func (s *Service) issueSession(ctx context.Context, user store.User) (Session, error) {
	now := time.Now()
	expiresAt := now.Add(s.cfg.AccessTTL)
	jti := randomID()

	token, err := auth.IssueToken([]byte(s.cfg.JWTSecret), auth.Claims{
		Sub:   user.ID,
		Email: user.Email,
		JTI:   jti,
		Exp:   expiresAt.Unix(),
	})
	if err != nil {
		return Session{}, err
	}

	refresh := randomID() + randomID()
	refreshExpires := now.Add(s.cfg.RefreshTTL)
	if err := s.sessions.SaveRefreshSession(ctx, auth.HashToken(refresh), user.ID, refreshExpires); err != nil {
		return Session{}, err
	}

	return Session{
		Token:        token,
		RefreshToken: refresh,
		UserID:       user.ID,
		Email:        user.Email,
		DisplayName:  user.DisplayName,
		JTI:          jti,
		ExpiresAt:    expiresAt,
	}, nil
}

func (s *Service) SessionFromToken(ctx context.Context, token string) (Session, error) {
	claims, err := auth.ParseToken([]byte(s.cfg.JWTSecret), token)
	if err != nil {
		return Session{}, err
	}
	revoked, err := s.sessions.IsAccessTokenRevoked(ctx, claims.JTI)
	if err != nil {
		return Session{}, err
	}
	if revoked {
		return Session{}, auth.ErrInvalidToken
	}

	user, err := s.store.GetUserByID(ctx, claims.Sub)
	if err != nil {
		return Session{}, err
	}

	return Session{
		Token:       token,
		UserID:      user.ID,
		Email:       user.Email,
		DisplayName: user.DisplayName,
		JTI:         claims.JTI,
		ExpiresAt:   time.Unix(claims.Exp, 0),
	}, nil
}

func (s *Service) Logout(ctx context.Context, session Session, refreshToken string) error {
	if session.JTI != "" {
		_ = s.sessions.RevokeAccessToken(ctx, session.JTI, session.ExpiresAt)
	}
	if refreshToken != "" {
		_ = s.sessions.RevokeRefreshSession(ctx, auth.HashToken(refreshToken))
	}
	return nil
}

func (s *Service) ListResumes(ctx context.Context, session Session) ([]map[string]any, error) {
	resumes, err := s.store.ListResumes(ctx, session.UserID)
	if err != nil {
		return nil, err
	}
	items := make([]map[string]any, 0, len(resumes))
	for _, resume := range resumes {
		items = append(items, map[string]any{
			"id":         resume.ID,
			"name":       resume.Name,
			"revision":   resume.Revision,
			"templateId": resume.TemplateID,
			"updatedAt":  resume.UpdatedAt.Format(time.RFC3339),
		})
	}
	return items, nil
}

// CreateResume creates a resume under a generated unique name and
// bootstraps one section per required type, each with a placeholder item,
// through the same reconciliation path a client save takes.
func (s *Service) CreateResume(ctx context.Context, session Session) (reconcile.Document, error) {
	existing, err := s.store.ListResumes(ctx, session.UserID)
	if err != nil {
		return reconcile.Document{}, err
	}
	taken := make(map[string]bool, len(existing))
	for _, resume := range existing {
		taken[resume.Name] = true
	}
	name := ""
	for n := 1; ; n++ {
		name = fmt.Sprintf("Resume %d", n)
		if !taken[name] {
			break
		}
	}

	resume, err := s.store.CreateResume(ctx, store.Resume{
		UserID:      session.UserID,
		Name:        name,
		DisplayName: session.DisplayName,
		Email:       session.Email,
	})
	if err != nil {
		return reconcile.Document{}, err
	}

	tx, err := s.beginTx(ctx)
	if err != nil {
		return reconcile.Document{}, err
	}
	doc, err := s.engine.Reconcile(ctx, tx, session.UserID, resume.ID, bootstrapPayload())
	if err != nil {
		_ = tx.Rollback()
		return reconcile.Document{}, err
	}
	if err := tx.Commit(); err != nil {
		return reconcile.Document{}, fmt.Errorf("commit bootstrap: %w", err)
	}
	s.invalidateCache(ctx, session.UserID)
	return doc, nil
}

func bootstrapPayload() reconcile.DocumentPayload {
	today := time.Now().Format("2006-01-02")
	placeholder := func(title string) []reconcile.ItemPayload {
		return []reconcile.ItemPayload{{
			Title:        title,
			Organization: "Organization",
			StartDate:    today,
			Location:     "Location",
			Description:  "Describe this entry.",
		}}
	}
	return reconcile.DocumentPayload{
		Sections: []reconcile.SectionPayload{
			{Type: reconcile.SectionEducation, Title: "Education", Items: placeholder("School")},
			{Type: reconcile.SectionExperience, Title: "Experience", Items: placeholder("Role")},
			{Type: reconcile.SectionProject, Title: "Projects", Items: placeholder("Project")},
			{Type: reconcile.SectionSkill, Title: "Skills", Items: placeholder("Skills")},
		},
	}
}

func (s *Service) GetResume(ctx context.Context, session Session, resumeID int64) (reconcile.Document, error) {
	tx, err := s.beginTx(ctx)
	if err != nil {
		return reconcile.Document{}, err
	}
	defer func() { _ = tx.Rollback() }()
	return reconcile.LoadDocument(ctx, tx, resumeID, session.UserID)
}

func (s *Service) SaveResume(ctx context.Context, session Session, resumeID int64, body []byte) (reconcile.Document, error) {
	if err := reconcile.ValidateSavePayload(body); err != nil {
		return reconcile.Document{}, err
	}
	var payload reconcile.DocumentPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return reconcile.Document{}, &reconcile.ValidationError{Message: "malformed payload"}
	}

	tx, err := s.beginTx(ctx)
	if err != nil {
		return reconcile.Document{}, err
	}
	doc, err := s.engine.Reconcile(ctx, tx, session.UserID, resumeID, payload)
	if err != nil {
		_ = tx.Rollback()
		return reconcile.Document{}, err
	}
	if err := tx.Commit(); err != nil {
		return reconcile.Document{}, fmt.Errorf("commit save: %w", err)
	}
	s.invalidateCache(ctx, session.UserID)
	return doc, nil
}

func (s *Service) DeleteResume(ctx context.Context, session Session, resumeID int64) error {
	if err := s.store.DeleteResume(ctx, resumeID, session.UserID); err != nil {
		return err
	}
	s.invalidateCache(ctx, session.UserID)
	return nil
}

func (s *Service) ListTemplates(ctx context.Context) ([]map[string]any, error) {
	templates, err := s.store.ListTemplates(ctx)
	if err != nil {
		return nil, err
	}
	items := make([]map[string]any, 0, len(templates))
	for _, tpl := range templates {
		items = append(items, map[string]any{
			"id":   tpl.ID,
			"name": tpl.Name,
			"uri":  tpl.URI,
		})
	}
	return items, nil
}

func (s *Service) RenderResume(ctx context.Context, session Session, resumeID int64) (store.RenderJob, error) {
	if s.render == nil {
		return store.RenderJob{}, renderUnavailable()
	}
	doc, err := s.GetResume(ctx, session, resumeID)
	if err != nil {
		return store.RenderJob{}, err
	}
	templateName := "classic"
	if doc.TemplateID != nil {
		tpl, err := s.store.GetTemplate(ctx, *doc.TemplateID)
		if err != nil {
			return store.RenderJob{}, err
		}
		templateName = tpl.Name
	}
	return s.render.Submit(ctx, session.UserID, doc, templateName)
}

func (s *Service) RenderStatus(ctx context.Context, session Session, jobID string) (store.RenderJob, error) {
	if s.render == nil {
		return store.RenderJob{}, renderUnavailable()
	}
	return s.render.Status(ctx, jobID, session.UserID)
}

func (s *Service) CachedResponse(ctx context.Context, session Session, path string) ([]byte, bool) {
	if s.cache == nil {
		return nil, false
	}
	body, ok, err := s.cache.Get(ctx, session.UserID, path)
	if err != nil {
		log.Printf("response cache get: %v", err)
		return nil, false
	}
	return body, ok
}

func (s *Service) StoreResponse(ctx context.Context, session Session, path string, body []byte) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Put(ctx, session.UserID, path, body); err != nil {
		log.Printf("response cache put: %v", err)
	}
}

func (s *Service) invalidateCache(ctx context.Context, userID int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, userID); err != nil {
		log.Printf("response cache invalidate: %v", err)
	}
}

func randomID() string {
	buf := make([]byte, 16)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}
