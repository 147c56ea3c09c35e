// Package reconcile implements the full-state save engine: it diffs a
// submitted document tree against persisted state and applies the minimal
// set of creates, updates, and deletes inside one transaction.
package reconcile

import (
	"context"
	"fmt"

	"resumeforge/api/internal/store"
)

// CatalogKind is the closed set of catalog entity variants an item can link to.
type CatalogKind string

const (
	CatalogEducation  CatalogKind = "education"
	CatalogExperience CatalogKind = "experience"
	CatalogProject    CatalogKind = "project"
)

// CatalogRef is a tagged reference into the catalog.
type CatalogRef struct {
	Kind CatalogKind `json:"kind"`
	ID   int64       `json:"id"`
}

const (
	SectionEducation  = "education"
	SectionExperience = "experience"
	SectionProject    = "project"
	SectionSkill      = "skill"
)

// RequiredSectionTypes is the enumeration strict mode checks against:
// exactly one section per type, none empty.
var RequiredSectionTypes = []string{SectionEducation, SectionExperience, SectionProject, SectionSkill}

func knownSectionType(t string) bool {
	for _, required := range RequiredSectionTypes {
		if t == required {
			return true
		}
	}
	return false
}

// DocumentPayload is the full desired state a client submits on save.
// Scalar fields are partial-update (nil means unchanged); the section tree
// is full-replace.
type DocumentPayload struct {
	Name        *string          `json:"name,omitempty"`
	DisplayName *string          `json:"displayName,omitempty"`
	Email       *string          `json:"email,omitempty"`
	Phone       *string          `json:"phone,omitempty"`
	Location    *string          `json:"location,omitempty"`
	Links       *[]string        `json:"links,omitempty"`
	TemplateID  *int64           `json:"templateId,omitempty"`
	Revision    *int64           `json:"revision,omitempty"`
	Sections    []SectionPayload `json:"sections"`
}

// SectionPayload carries a possibly-unreliable identifier: absent for new
// sections, an owned integer for existing ones, or any client-local token
// (treated as absent, never as an error).
type SectionPayload struct {
	ID    any           `json:"id,omitempty"`
	Type  string        `json:"type"`
	Title string        `json:"title"`
	Items []ItemPayload `json:"items"`
}

// ItemPayload is either direct (scalar fields set, Catalog nil) or linked
// (Catalog set; Fields/Bullets/SkillIDs express the desired resolved state
// and are diffed against the catalog baseline into sparse overrides).
type ItemPayload struct {
	ID           any               `json:"id,omitempty"`
	Title        string            `json:"title"`
	Organization string            `json:"organization"`
	StartDate    string            `json:"startDate"`
	EndDate      *string           `json:"endDate,omitempty"`
	Location     string            `json:"location"`
	Description  string            `json:"description"`
	Catalog      *CatalogRef       `json:"catalog,omitempty"`
	Fields       map[string]string `json:"fields,omitempty"`
	Bullets      []string          `json:"bullets,omitempty"`
	SkillIDs     []int64           `json:"skillIds,omitempty"`
}

// Document is the canonical read shape, returned by the Tree Reader and by
// every successful reconciliation. Resaving it unchanged is a no-op.
type Document struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	TemplateID  *int64    `json:"templateId,omitempty"`
	Revision    int64     `json:"revision"`
	DisplayName string    `json:"displayName"`
	Email       string    `json:"email"`
	Phone       string    `json:"phone"`
	Location    string    `json:"location"`
	Links       []string  `json:"links"`
	Sections    []Section `json:"sections"`
}

type Section struct {
	ID           int64  `json:"id"`
	Type         string `json:"type"`
	Title        string `json:"title"`
	DisplayOrder int    `json:"displayOrder"`
	Items        []Item `json:"items"`
}

type Item struct {
	ID           int64             `json:"id"`
	DisplayOrder int               `json:"displayOrder"`
	Title        string            `json:"title,omitempty"`
	Organization string            `json:"organization,omitempty"`
	StartDate    string            `json:"startDate,omitempty"`
	EndDate      *string           `json:"endDate,omitempty"`
	Location     string            `json:"location,omitempty"`
	Description  string            `json:"description,omitempty"`
	Catalog      *CatalogRef       `json:"catalog,omitempty"`
	Fields       map[string]string `json:"fields,omitempty"`
	Bullets      []string          `json:"bullets,omitempty"`
	SkillIDs     []int64           `json:"skillIds,omitempty"`
	Skills       []SkillRef        `json:"skills,omitempty"`
}

type SkillRef struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category,omitempty"`
}

// Store is the transaction-scoped persistence surface the engine operates
// through. store.Tx satisfies it; tests substitute an in-memory fake.
type Store interface {
	GetResume(ctx context.Context, resumeID, userID int64) (store.Resume, error)
	GetResumeForUpdate(ctx context.Context, resumeID, userID int64) (store.Resume, error)
	UpdateResume(ctx context.Context, resume store.Resume) error

	ListSections(ctx context.Context, resumeID, userID int64) ([]store.ResumeSection, error)
	InsertSection(ctx context.Context, sec *store.ResumeSection) error
	UpdateSection(ctx context.Context, sec store.ResumeSection) error
	DeleteSections(ctx context.Context, ids []int64) error

	ListItems(ctx context.Context, sectionID int64) ([]store.ResumeItem, error)
	InsertItem(ctx context.Context, item *store.ResumeItem) error
	UpdateItem(ctx context.Context, item store.ResumeItem) error
	DeleteItems(ctx context.Context, ids []int64) error

	ListItemBullets(ctx context.Context, itemID int64) ([]string, error)
	ReplaceItemBullets(ctx context.Context, itemID int64, bullets []string) error
	DeleteItemBullets(ctx context.Context, itemID int64) error
	ListItemSkillIDs(ctx context.Context, itemID int64) ([]int64, error)
	ReplaceItemSkills(ctx context.Context, itemID int64, skillIDs []int64) error
	DeleteItemSkills(ctx context.Context, itemID int64) error

	GetEducation(ctx context.Context, id, userID int64) (store.Education, error)
	GetExperience(ctx context.Context, id, userID int64) (store.Experience, error)
	GetProject(ctx context.Context, id, userID int64) (store.Project, error)
	GetSkills(ctx context.Context, ids []int64, userID int64) ([]store.Skill, error)
	TemplateExists(ctx context.Context, id int64) (bool, error)
}

// ValidationError aborts a reconciliation before any write.
type ValidationError struct {
	Message string
	Details any
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s", e.Message)
}

// NotFoundError covers missing and unowned alike, so ownership probing
// cannot distinguish "someone else's" from "nonexistent".
type NotFoundError struct {
	Resource string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found", e.Resource)
}

// ConflictError marks a dangling template or catalog reference, or a stale
// revision token; the caller can retry with corrected references.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("conflict: %s", e.Message)
}

func validationErr(format string, args ...any) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

func conflictErr(format string, args ...any) *ConflictError {
	return &ConflictError{Message: fmt.Sprintf(format, args...)}
}
