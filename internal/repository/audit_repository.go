package repository

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5/pgxpool"

	"mediavault/internal/ids"
	"mediavault/internal/models"
)

type AuditRepository struct {
	pool *pgxpool.Pool
}

func NewAuditRepository(pool *pgxpool.Pool) *AuditRepository {
	return &AuditRepository{pool: pool}
}

func (r *AuditRepository) Append(ctx context.Context, event models.AuditEvent) error {
	if event.ID == "" {
		event.ID = ids.New()
	}

	var details []byte
	if event.Details != nil {
		encoded, err := json.Marshal(event.Details)
		if err != nil {
			return err
		}
		details = encoded
	}

	const query = `
		INSERT INTO audit_events (id, type, job_id, class, message, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
	`
	_, err := r.pool.Exec(ctx, query,
		event.ID,
		event.Type,
		event.JobID,
		event.Class,
		event.Message,
		details,
	)
	return err
}
