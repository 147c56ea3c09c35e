package store

import "time"

type User struct {
	ID           int64
	Email        string
	DisplayName  string
	PasswordHash string
	CreatedAt    time.Time
}

// Template identifies a render layout the PDF pipeline can apply.
type Template struct {
	ID   int64
	Name string
	URI  string
}

// Resume is the document root. Revision increments on every successful
// reconciliation and backs the optimistic concurrency check.
type Resume struct {
	ID          int64
	UserID      int64
	Name        string
	TemplateID  *int64
	Revision    int64
	DisplayName string
	Email       string
	Phone       string
	Location    string
	Links       []string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type ResumeSection struct {
	ID           int64
	ResumeID     int64
	UserID       int64
	Type         string
	Title        string
	DisplayOrder int
}

// ResumeItem is either direct (owns its scalar fields, CatalogKind nil) or
// linked (references a catalog entity and stores only sparse overrides).
type ResumeItem struct {
	ID           int64
	SectionID    int64
	ResumeID     int64
	UserID       int64
	DisplayOrder int

	Title        string
	Organization string
	StartDate    string
	EndDate      *string
	Location     string
	Description  string

	CatalogKind    *string
	CatalogID      *int64
	FieldOverrides map[string]string
}

// Catalog entities: owner-scoped source-of-truth records reusable across
// a user's resumes. Bullets are kept in display order.

type Education struct {
	ID        int64    `json:"id"`
	UserID    int64    `json:"userId"`
	School    string   `json:"school"`
	Degree    string   `json:"degree,omitempty"`
	Major     string   `json:"major,omitempty"`
	Location  string   `json:"location,omitempty"`
	StartDate string   `json:"startDate"`
	EndDate   *string  `json:"endDate,omitempty"`
	GPA       *string  `json:"gpa,omitempty"`
	Summary   string   `json:"summary,omitempty"`
	Bullets   []string `json:"bullets,omitempty"`
}

type Experience struct {
	ID        int64    `json:"id"`
	UserID    int64    `json:"userId"`
	Role      string   `json:"role"`
	Company   string   `json:"company"`
	Location  string   `json:"location,omitempty"`
	StartDate string   `json:"startDate"`
	EndDate   *string  `json:"endDate,omitempty"`
	Summary   string   `json:"summary,omitempty"`
	Bullets   []string `json:"bullets,omitempty"`
	SkillIDs  []int64  `json:"skillIds,omitempty"`
}

type Project struct {
	ID        int64    `json:"id"`
	UserID    int64    `json:"userId"`
	Title     string   `json:"title"`
	Role      string   `json:"role,omitempty"`
	Location  string   `json:"location,omitempty"`
	StartDate string   `json:"startDate"`
	EndDate   *string  `json:"endDate,omitempty"`
	Summary   string   `json:"summary,omitempty"`
	Bullets   []string `json:"bullets,omitempty"`
	SkillIDs  []int64  `json:"skillIds,omitempty"`
}

// Skill rows with a NULL user_id are global and visible to everyone.
type Skill struct {
	ID       int64  `json:"id"`
	UserID   *int64 `json:"userId,omitempty"`
	Name     string `json:"name"`
	Category string `json:"category,omitempty"`
}

type RenderJob struct {
	ID        string
	UserID    int64
	ResumeID  int64
	Status    string
	Location  string
	Error     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

const (
	RenderPending = "pending"
	RenderDone    = "done"
	RenderFailure = "failure"
)
