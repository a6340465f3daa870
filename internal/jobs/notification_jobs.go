package jobs

import (
	"context"
	"fmt"
	"time"

	"trainingportal-backend/internal/domain"
	"trainingportal-backend/internal/logger"
	"trainingportal-backend/internal/utils"
)

const defaultReminderAfterDays = 3

// SendPaymentReminders emails owners of approved applications whose invoice
// has been outstanding longer than the configured grace period.
func (jr *JobRunner) SendPaymentReminders() {
	jr.runWithRecovery("SendPaymentReminders", func() {
		ctx := context.Background()

		days := jr.config.Scheduler.ReminderAfterDays
		if days <= 0 {
			days = defaultReminderAfterDays
		}
		cutoff := jr.now().UTC().Add(-time.Duration(days) * 24 * time.Hour)

		apps, err := jr.repos.Applications.ListAwaitingPayment(ctx, cutoff)
		if err != nil {
			logger.Error("Failed to query applications awaiting payment", "error", err)
			return
		}

		count := 0
		for i := range apps {
			if err := jr.remind(ctx, &apps[i]); err != nil {
				logger.Error("Failed to send payment reminder", "application_id", apps[i].ID, "error", err)
				continue
			}
			count++
		}

		logger.Info("Payment reminders sent", "count", count, "candidates", len(apps))
	})
}

func (jr *JobRunner) remind(ctx context.Context, app *domain.Application) error {
	owner, err := jr.repos.Users.GetByID(ctx, app.OwnerID)
	if err != nil {
		return fmt.Errorf("load owner: %w", err)
	}
	if owner.Email == "" {
		return fmt.Errorf("owner %d has no email address", owner.ID)
	}
	invoice, err := jr.repos.Invoices.GetByApplication(ctx, app.ID)
	if err != nil {
		return fmt.Errorf("load invoice: %w", err)
	}
	payments, err := jr.repos.Payments.ListByApplication(ctx, app.ID)
	if err != nil {
		return fmt.Errorf("load payments: %w", err)
	}

	title := fmt.Sprintf("application #%d", app.ID)
	if session, err := jr.repos.Training.GetSession(ctx, app.TrainingSessionID); err == nil {
		title = session.Title
	}

	var paid int64
	for _, p := range payments {
		if p.Currency == app.Currency {
			paid += p.AmountCents
		}
	}
	balance := app.FeeCents - paid
	if balance <= 0 {
		return nil
	}

	logger.Debug("Sending payment reminder", "application_id", app.ID, "email", owner.Email)
	return jr.email.SendPaymentReminder(ctx, owner.Email, owner.Name, title,
		utils.FormatMoney(balance, app.Currency), invoice.InvoiceLink)
}

// SendPendingDigest emails every administrator the number of applications
// still waiting for review.
func (jr *JobRunner) SendPendingDigest() {
	jr.runWithRecovery("SendPendingDigest", func() {
		ctx := context.Background()

		pending, err := jr.repos.Applications.CountByStatus(ctx, domain.ApplicationStatusPending)
		if err != nil {
			logger.Error("Failed to count pending applications", "error", err)
			return
		}
		if pending == 0 {
			logger.Info("No pending applications, digest skipped")
			return
		}

		admins, err := jr.repos.Users.ListByRole(ctx, domain.RoleAdmin)
		if err != nil {
			logger.Error("Failed to list administrators", "error", err)
			return
		}

		subject := fmt.Sprintf("%d application(s) awaiting review", pending)
		body := fmt.Sprintf(`There are %d training application(s) waiting for approval as of %s.

Please review them in the admin portal.`, pending, jr.now().UTC().Format("02 Jan 2006"))

		sent := 0
		for _, admin := range admins {
			if admin.Email == "" {
				continue
			}
			if err := jr.email.SendAdminNotification(ctx, admin.Email, subject, body); err != nil {
				logger.Error("Failed to send pending digest", "admin_id", admin.ID, "error", err)
				continue
			}
			sent++
		}
		logger.Info("Pending digest sent", "pending", pending, "admins", sent)
	})
}
