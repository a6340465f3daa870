package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"trainingportal-backend/internal/domain"
	"trainingportal-backend/internal/logger"
	"trainingportal-backend/internal/render"
	"trainingportal-backend/internal/repository"
	"trainingportal-backend/internal/storage"
)

const maxPageSize = 100

type applicationService struct {
	repos    Repositories
	renderer render.Renderer
	store    storage.StorageInterface
	emailSvc EmailService
	notes    NotificationService
}

func NewApplicationService(
	repos Repositories,
	renderer render.Renderer,
	store storage.StorageInterface,
	emailSvc EmailService,
	notes NotificationService,
) ApplicationService {
	return &applicationService{
		repos:    repos,
		renderer: renderer,
		store:    store,
		emailSvc: emailSvc,
		notes:    notes,
	}
}

// GetApplication is open to administrators and the application owner.
func (s *applicationService) GetApplication(ctx context.Context, actor *domain.Actor, id int32) (*domain.ApplicationDetails, error) {
	if actor == nil {
		return nil, fmt.Errorf("%w: authentication required", ErrUnauthorized)
	}
	app, err := s.repos.Applications.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "application")
	}
	if !actor.IsAdmin() && app.OwnerID != actor.UserID {
		return nil, fmt.Errorf("%w: application belongs to another user", ErrUnauthorized)
	}

	details, err := loadDetails(ctx, s.repos, app)
	if err != nil {
		return nil, err
	}
	if err := loadBilling(ctx, s.repos, details); err != nil {
		return nil, err
	}
	return details, nil
}

func (s *applicationService) ListApplications(ctx context.Context, actor *domain.Actor, status domain.ApplicationStatus, page, pageSize int32) ([]domain.Application, int32, error) {
	if !actor.IsAdmin() {
		return nil, 0, fmt.Errorf("%w: only administrators can list applications", ErrUnauthorized)
	}
	switch status {
	case "", domain.ApplicationStatusPending, domain.ApplicationStatusApproved,
		domain.ApplicationStatusCompleted, domain.ApplicationStatusRejected:
	default:
		return nil, 0, fmt.Errorf("%w: unknown status %s", ErrValidation, status)
	}
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > maxPageSize {
		pageSize = 20
	}

	apps, total, err := s.repos.Applications.List(ctx, status, page, pageSize)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: list applications: %v", ErrUpstream, err)
	}
	return apps, total, nil
}

func (s *applicationService) RejectApplication(ctx context.Context, actor *domain.Actor, id int32, reason string) (*domain.Application, error) {
	log := logger.WithApplication(ctx, id)
	if !actor.IsAdmin() {
		return nil, fmt.Errorf("%w: only administrators can reject applications", ErrUnauthorized)
	}
	reason = strings.TrimSpace(reason)
	if len(reason) > 2000 {
		return nil, fmt.Errorf("%w: reason is too long", ErrValidation)
	}

	app, err := s.repos.Applications.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "application")
	}
	if app.Status != domain.ApplicationStatusPending {
		return nil, fmt.Errorf("%w: application is %s", ErrInvalidState, app.Status)
	}

	if err := s.repos.Applications.Reject(ctx, id, reason); err != nil {
		if errors.Is(err, repository.ErrStatusConflict) {
			return nil, fmt.Errorf("%w: application is no longer pending", ErrInvalidState)
		}
		return nil, fmt.Errorf("%w: reject application: %v", ErrUpstream, err)
	}
	app.Status = domain.ApplicationStatusRejected
	app.RejectionReason = reason
	log.Info("Application rejected", "rejected_by", actor.UserID)

	owner, err := s.repos.Users.GetByID(ctx, app.OwnerID)
	if err != nil || owner.Email == "" {
		log.Warn("Owner unavailable, rejection email skipped", "error", err)
		return app, nil
	}
	title := fmt.Sprintf("application #%d", app.ID)
	if session, err := s.repos.Training.GetSession(ctx, app.TrainingSessionID); err == nil && session.Title != "" {
		title = session.Title
	}
	if err := s.emailSvc.SendRejectionNotification(ctx, owner.Email, owner.Name, title, reason); err != nil {
		log.Error("Rejection email failed", "to", owner.Email, "error", err)
	}
	s.notes.Notify(ctx, owner.ID, app.ID, "Application not approved",
		fmt.Sprintf("Your application for %s was not approved.", title), map[string]string{"reason": reason})
	return app, nil
}

// RemoveParticipant is allowed for administrators and the owner while the
// application is pending or approved.
func (s *applicationService) RemoveParticipant(ctx context.Context, actor *domain.Actor, applicationID, participantID int32) error {
	if actor == nil {
		return fmt.Errorf("%w: authentication required", ErrUnauthorized)
	}
	app, err := s.repos.Applications.GetByID(ctx, applicationID)
	if err != nil {
		return notFound(err, "application")
	}
	if !actor.IsAdmin() && app.OwnerID != actor.UserID {
		return fmt.Errorf("%w: application belongs to another user", ErrUnauthorized)
	}
	if app.Status != domain.ApplicationStatusPending && app.Status != domain.ApplicationStatusApproved {
		return fmt.Errorf("%w: participants cannot be changed once the application is %s", ErrInvalidState, app.Status)
	}

	participant, err := s.repos.Applications.GetParticipant(ctx, participantID)
	if err != nil {
		return notFound(err, "participant")
	}
	if participant.ApplicationID != applicationID {
		return fmt.Errorf("participant %w on this application", ErrNotFound)
	}

	if err := s.repos.Applications.DeleteParticipant(ctx, applicationID, participantID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("participant %w", ErrNotFound)
		}
		return fmt.Errorf("%w: delete participant: %v", ErrUpstream, err)
	}
	logger.WithApplication(ctx, applicationID).Info("Participant removed", "participant_id", participantID, "removed_by", actor.UserID)
	return nil
}

// DeleteApplication removes the application and its records, then deletes the
// stored documents. Storage failures are logged only.
func (s *applicationService) DeleteApplication(ctx context.Context, actor *domain.Actor, id int32) error {
	if !actor.IsAdmin() {
		return fmt.Errorf("%w: only administrators can delete applications", ErrUnauthorized)
	}
	if _, err := s.repos.Applications.GetByID(ctx, id); err != nil {
		return notFound(err, "application")
	}
	docs, err := s.repos.Documents.ListByApplication(ctx, id)
	if err != nil {
		return fmt.Errorf("%w: list documents: %v", ErrUpstream, err)
	}

	if err := s.repos.Applications.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("application %w", ErrNotFound)
		}
		return fmt.Errorf("%w: delete application: %v", ErrUpstream, err)
	}
	logger.WithApplication(ctx, id).Info("Application deleted", "deleted_by", actor.UserID)

	seen := make(map[string]bool, len(docs))
	var keys []string
	for _, d := range docs {
		if d.StorageKey != "" && !seen[d.StorageKey] {
			seen[d.StorageKey] = true
			keys = append(keys, d.StorageKey)
		}
	}
	deleteObjects(ctx, s.store, keys)
	return nil
}

// PreviewDocument renders a document for the current state of the application
// without storing it. A receipt preview uses the latest payment.
func (s *applicationService) PreviewDocument(ctx context.Context, actor *domain.Actor, applicationID int32, tmpl render.Template) ([]byte, error) {
	if !actor.IsAdmin() {
		return nil, fmt.Errorf("%w: only administrators can preview documents", ErrUnauthorized)
	}
	app, err := s.repos.Applications.GetByID(ctx, applicationID)
	if err != nil {
		return nil, notFound(err, "application")
	}
	details, err := loadDetails(ctx, s.repos, app)
	if err != nil {
		return nil, err
	}
	if err := loadBilling(ctx, s.repos, details); err != nil {
		return nil, err
	}

	data := &render.Data{
		Details:  details,
		FeeCents: app.FeeCents,
		Message:  app.Message,
		Invoice:  details.Invoice,
	}
	if tmpl == render.TemplateReceipt {
		if len(details.Payments) == 0 {
			return nil, fmt.Errorf("%w: no payment recorded", ErrInvalidState)
		}
		data.Payment = &details.Payments[len(details.Payments)-1]
	}

	pdf, err := s.renderer.Render(ctx, tmpl, data)
	if err != nil {
		if errors.Is(err, render.ErrUnknownTemplate) {
			return nil, fmt.Errorf("template %w", ErrNotFound)
		}
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	return pdf, nil
}

// OpenDocument opens a stored document for administrators and the owner of
// the application it belongs to. Only keys recorded against the application
// are served.
func (s *applicationService) OpenDocument(ctx context.Context, actor *domain.Actor, key string) (io.ReadCloser, error) {
	if actor == nil {
		return nil, fmt.Errorf("%w: authentication required", ErrUnauthorized)
	}
	prefix, _, ok := strings.Cut(key, "-")
	id, err := strconv.ParseInt(prefix, 10, 32)
	if !ok || err != nil || id <= 0 {
		return nil, fmt.Errorf("document %w", ErrNotFound)
	}

	app, err := s.repos.Applications.GetByID(ctx, int32(id))
	if err != nil {
		return nil, notFound(err, "document")
	}
	if !actor.IsAdmin() && app.OwnerID != actor.UserID {
		return nil, fmt.Errorf("%w: document belongs to another user", ErrUnauthorized)
	}

	docs, err := s.repos.Documents.ListByApplication(ctx, app.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: list documents: %v", ErrUpstream, err)
	}
	recorded := false
	for _, d := range docs {
		if d.StorageKey == key {
			recorded = true
			break
		}
	}
	if !recorded {
		return nil, fmt.Errorf("document %w", ErrNotFound)
	}

	rc, err := s.store.ReadFile(ctx, key)
	if err != nil {
		if errors.Is(err, storage.ErrFileNotFound) {
			return nil, fmt.Errorf("document %w", ErrNotFound)
		}
		return nil, fmt.Errorf("%w: read document: %v", ErrUpstream, err)
	}
	return rc, nil
}
