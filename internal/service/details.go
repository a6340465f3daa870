package service

import (
	"context"
	"errors"
	"fmt"

	"trainingportal-backend/internal/domain"
	"trainingportal-backend/internal/logger"
	"trainingportal-backend/internal/render"
	"trainingportal-backend/internal/repository"
	"trainingportal-backend/internal/storage"
)

// loadDetails populates everything referenced by app. Owner and session are
// required; the other records may be absent.
func loadDetails(ctx context.Context, repos Repositories, app *domain.Application) (*domain.ApplicationDetails, error) {
	d := &domain.ApplicationDetails{Application: *app}

	owner, err := repos.Users.GetByID(ctx, app.OwnerID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%w: load owner: %v", ErrUpstream, err)
	}
	d.Owner = owner

	if app.CreatedByID != 0 && app.CreatedByID != app.OwnerID {
		submitter, err := repos.Users.GetByID(ctx, app.CreatedByID)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: load submitter: %v", ErrUpstream, err)
		}
		d.Submitter = submitter
	} else {
		d.Submitter = owner
	}

	if app.OrganizationID != nil {
		org, err := repos.Organizations.GetByID(ctx, *app.OrganizationID)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: load organization: %v", ErrUpstream, err)
		}
		d.Organization = org
	}

	session, err := repos.Training.GetSession(ctx, app.TrainingSessionID)
	if err != nil {
		return nil, notFound(err, "training session")
	}
	d.Session = session

	program, err := repos.Training.GetProgram(ctx, session.ProgramID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%w: load program: %v", ErrUpstream, err)
	}
	d.Program = program

	if d.Participants, err = repos.Applications.ListParticipants(ctx, app.ID); err != nil {
		return nil, fmt.Errorf("%w: load participants: %v", ErrUpstream, err)
	}
	return d, nil
}

// loadBilling adds invoice, documents and payments to d.
func loadBilling(ctx context.Context, repos Repositories, d *domain.ApplicationDetails) error {
	id := d.Application.ID

	inv, err := repos.Invoices.GetByApplication(ctx, id)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%w: load invoice: %v", ErrUpstream, err)
	}
	d.Invoice = inv

	if d.Documents, err = repos.Documents.ListByApplication(ctx, id); err != nil {
		return fmt.Errorf("%w: load documents: %v", ErrUpstream, err)
	}
	if d.Payments, err = repos.Payments.ListByApplication(ctx, id); err != nil {
		return fmt.Errorf("%w: load payments: %v", ErrUpstream, err)
	}
	return nil
}

// storageKey is the deterministic object key of an application's document.
func storageKey(applicationID int32, kind domain.DocumentKind) string {
	return fmt.Sprintf("%d-%s", applicationID, kind.StorageSuffix())
}

func documentFileName(applicationID int32, kind domain.DocumentKind) string {
	return storageKey(applicationID, kind) + ".pdf"
}

// emailRecipients returns the owner address and the submitter as CC when the
// submitter is a different person with an address on file.
func emailRecipients(d *domain.ApplicationDetails) (string, []string) {
	to := d.Owner.Email
	var cc []string
	if d.Submitter != nil && d.Submitter.Email != "" && d.Submitter.Email != to {
		cc = append(cc, d.Submitter.Email)
	}
	return to, cc
}

func sessionTitle(d *domain.ApplicationDetails) string {
	if d.Session != nil && d.Session.Title != "" {
		return d.Session.Title
	}
	if d.Program != nil {
		return d.Program.Title
	}
	return fmt.Sprintf("application #%d", d.Application.ID)
}

// renderedDocument is a generated PDF before it is stored.
type renderedDocument struct {
	template render.Template
	data     []byte
	url      string
	uploaded bool
}

func (r *renderedDocument) key(applicationID int32) string {
	return storageKey(applicationID, r.template.Kind())
}

func (r *renderedDocument) attachment(applicationID int32) Attachment {
	return Attachment{
		FileName:    documentFileName(applicationID, r.template.Kind()),
		ContentType: "application/pdf",
		Data:        r.data,
	}
}

// deleteObjects removes stored objects, logging failures.
func deleteObjects(ctx context.Context, store storage.StorageInterface, keys []string) {
	for _, key := range keys {
		if err := store.DeleteFile(ctx, key); err != nil {
			logger.ErrorContext(ctx, "Failed to delete stored document", "key", key, "error", err)
		}
	}
}
