package reconcile

import (
	"context"
	"database/sql"
	"errors"
)

// Engine reconciles full-state save payloads against persisted documents.
type Engine struct {
	// StrictSections enforces section completeness: exactly one section per
	// required type, none empty.
	StrictSections bool
}

func NewEngine(strictSections bool) *Engine {
	return &Engine{StrictSections: strictSections}
}

// Reconcile is the save entry point. It validates the payload, applies the
// scalar partial-update, runs the section/item diff, and returns the
// canonical tree re-read through the same transaction. The caller owns
// commit and rollback; any error here must roll the transaction back.
func (e *Engine) Reconcile(ctx context.Context, tx Store, userID, resumeID int64, payload DocumentPayload) (Document, error) {
	if err := e.validateSections(payload.Sections); err != nil {
		return Document{}, err
	}

	// Locked read: concurrent saves of the same document serialize here.
	resume, err := tx.GetResumeForUpdate(ctx, resumeID, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Document{}, &NotFoundError{Resource: "resume"}
		}
		return Document{}, err
	}

	// Optimistic concurrency: a payload carrying a revision must match the
	// stored one. Payloads without a revision skip the check.
	if payload.Revision != nil && *payload.Revision != resume.Revision {
		return Document{}, conflictErr("resume revision %d is stale", *payload.Revision)
	}

	if payload.TemplateID != nil {
		exists, err := tx.TemplateExists(ctx, *payload.TemplateID)
		if err != nil {
			return Document{}, err
		}
		if !exists {
			return Document{}, conflictErr("template %d does not exist", *payload.TemplateID)
		}
		resume.TemplateID = payload.TemplateID
	}

	// Scalars are partial-update: absent fields stay as persisted.
	if payload.Name != nil {
		resume.Name = *payload.Name
	}
	if payload.DisplayName != nil {
		resume.DisplayName = *payload.DisplayName
	}
	if payload.Email != nil {
		resume.Email = *payload.Email
	}
	if payload.Phone != nil {
		resume.Phone = *payload.Phone
	}
	if payload.Location != nil {
		resume.Location = *payload.Location
	}
	if payload.Links != nil {
		resume.Links = *payload.Links
	}
	if err := tx.UpdateResume(ctx, resume); err != nil {
		return Document{}, err
	}

	if err := e.reconcileSections(ctx, tx, resume, payload.Sections); err != nil {
		return Document{}, err
	}

	return LoadDocument(ctx, tx, resumeID, userID)
}
