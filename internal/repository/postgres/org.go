package postgres

import (
	"context"
	"database/sql"
	"time"

	"trainingportal-backend/internal/domain"
	"trainingportal-backend/internal/repository"
)

type organizationRepository struct {
	db *sql.DB
}

func NewOrganizationRepository(db *sql.DB) repository.OrganizationRepository {
	return &organizationRepository{db: db}
}

func (r *organizationRepository) GetByID(ctx context.Context, id int32) (*domain.Organization, error) {
	o := &domain.Organization{}
	query := `SELECT id, name, COALESCE(email, ''), COALESCE(phone, ''), COALESCE(address, ''), created_on FROM organizations WHERE id = $1`
	var createdOn time.Time
	err := r.db.QueryRowContext(ctx, query, id).Scan(&o.ID, &o.Name, &o.Email, &o.Phone, &o.Address, &createdOn)
	if err != nil {
		return nil, notFound(err)
	}
	o.CreatedOn = createdOn.Format("2006-01-02")
	return o, nil
}
