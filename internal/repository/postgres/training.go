package postgres

import (
	"context"
	"database/sql"

	"trainingportal-backend/internal/domain"
	"trainingportal-backend/internal/repository"
)

type trainingRepository struct {
	db *sql.DB
}

func NewTrainingRepository(db *sql.DB) repository.TrainingRepository {
	return &trainingRepository{db: db}
}

func (r *trainingRepository) GetSession(ctx context.Context, id int32) (*domain.TrainingSession, error) {
	s := &domain.TrainingSession{}
	query := `SELECT id, program_id, title, COALESCE(venue, ''), start_date, end_date FROM training_sessions WHERE id = $1`
	err := r.db.QueryRowContext(ctx, query, id).Scan(&s.ID, &s.ProgramID, &s.Title, &s.Venue, &s.StartDate, &s.EndDate)
	if err != nil {
		return nil, notFound(err)
	}

	feeQuery := `SELECT currency, delivery_mode, amount_cents, COALESCE(gateway_service_id, '')
	             FROM session_fees WHERE session_id = $1 ORDER BY currency, delivery_mode`
	rows, err := r.db.QueryContext(ctx, feeQuery, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var f domain.SessionFee
		if err := rows.Scan(&f.Currency, &f.DeliveryMode, &f.AmountCents, &f.GatewayServiceID); err != nil {
			return nil, err
		}
		s.Fees = append(s.Fees, f)
	}
	return s, rows.Err()
}

func (r *trainingRepository) GetProgram(ctx context.Context, id int32) (*domain.Program, error) {
	p := &domain.Program{}
	query := `SELECT id, code, title, COALESCE(description, '') FROM programs WHERE id = $1`
	err := r.db.QueryRowContext(ctx, query, id).Scan(&p.ID, &p.Code, &p.Title, &p.Description)
	if err != nil {
		return nil, notFound(err)
	}
	return p, nil
}
