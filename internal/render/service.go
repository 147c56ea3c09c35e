// Package render turns resume documents into stored PDFs through an
// async job queue: submit returns immediately, clients poll for status.
package render

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"resumeforge/api/internal/reconcile"
	"resumeforge/api/internal/store"
)

// Renderer produces PDF bytes from resume HTML.
type Renderer interface {
	RenderPDF(ctx context.Context, html string) ([]byte, error)
}

// Uploader stores a rendered PDF and returns its location.
type Uploader interface {
	Upload(ctx context.Context, objectName string, data []byte) (string, error)
}

// JobStore persists job rows so status polls survive restarts.
type JobStore interface {
	SaveRenderJob(ctx context.Context, job store.RenderJob) error
	GetRenderJob(ctx context.Context, jobID string, userID int64) (store.RenderJob, error)
}

type renderJob struct {
	row      store.RenderJob
	doc      reconcile.Document
	template string
}

type Service struct {
	jobs     JobStore
	renderer Renderer
	uploader Uploader

	queue chan renderJob
	wg    sync.WaitGroup
}

func NewService(jobs JobStore, renderer Renderer, uploader Uploader) *Service {
	s := &Service{
		jobs:     jobs,
		renderer: renderer,
		uploader: uploader,
		queue:    make(chan renderJob, 16),
	}
	s.wg.Add(1)
	go s.worker()
	return s
}

// Close drains the queue and stops the worker.
func (s *Service) Close() {
	close(s.queue)
	s.wg.Wait()
}

// Submit persists a pending job and enqueues the render.
func (s *Service) Submit(ctx context.Context, userID int64, doc reconcile.Document, templateName string) (store.RenderJob, error) {
	row := store.RenderJob{
		ID:       uuid.NewString(),
		UserID:   userID,
		ResumeID: doc.ID,
		Status:   store.RenderPending,
	}
	if err := s.jobs.SaveRenderJob(ctx, row); err != nil {
		return store.RenderJob{}, err
	}
	s.queue <- renderJob{row: row, doc: doc, template: templateName}
	return row, nil
}

// Status returns the persisted state of a job owned by the user.
func (s *Service) Status(ctx context.Context, jobID string, userID int64) (store.RenderJob, error) {
	return s.jobs.GetRenderJob(ctx, jobID, userID)
}

func (s *Service) worker() {
	defer s.wg.Done()
	for job := range s.queue {
		s.process(job)
	}
}

func (s *Service) process(job renderJob) {
	// Jobs run detached from the submitting request.
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	location, err := s.render(ctx, job)
	row := job.row
	if err != nil {
		row.Status = store.RenderFailure
		row.Error = err.Error()
		log.Printf("render job %s failed: %v", row.ID, err)
	} else {
		row.Status = store.RenderDone
		row.Location = location
	}
	if err := s.jobs.SaveRenderJob(ctx, row); err != nil {
		log.Printf("render job %s: save state: %v", row.ID, err)
	}
}

func (s *Service) render(ctx context.Context, job renderJob) (string, error) {
	html, err := RenderResumeHTML(job.doc, job.template)
	if err != nil {
		return "", err
	}
	pdf, err := s.renderer.RenderPDF(ctx, html)
	if err != nil {
		return "", err
	}
	return s.uploader.Upload(ctx, job.row.ID+".pdf", pdf)
}
