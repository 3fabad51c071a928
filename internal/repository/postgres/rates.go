package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/septivank/rent-manager/internal/domain"
	"github.com/septivank/rent-manager/internal/repository"
)

type rates struct {
	tx pgx.Tx
}

func (r rates) Append(ctx context.Context, rec domain.RateRecord) (domain.RateRecord, error) {
	query := `
		INSERT INTO rate_records (owner_id, meter_type, rate_per_unit, effective_from)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`

	err := r.tx.QueryRow(ctx, query, rec.OwnerID, rec.MeterType, rec.RatePerUnit, rec.EffectiveFrom).Scan(&rec.ID, &rec.CreatedAt)
	if err != nil {
		return domain.RateRecord{}, fmt.Errorf("failed to insert rate record: %w", err)
	}
	return rec, nil
}

func (r rates) Current(ctx context.Context, ownerID int64, meter domain.MeterType) (domain.RateRecord, error) {
	history, err := r.history(ctx, ownerID, meter, 1)
	if err != nil {
		return domain.RateRecord{}, err
	}
	if len(history) == 0 {
		return domain.RateRecord{}, repository.ErrRateNotFound
	}
	return history[0], nil
}

func (r rates) History(ctx context.Context, ownerID int64, meter domain.MeterType) ([]domain.RateRecord, error) {
	return r.history(ctx, ownerID, meter, 0)
}

func (r rates) history(ctx context.Context, ownerID int64, meter domain.MeterType, limit int) ([]domain.RateRecord, error) {
	query := `
		SELECT id, owner_id, meter_type, rate_per_unit, effective_from, created_at
		FROM rate_records
		WHERE owner_id = $1 AND meter_type = $2
		ORDER BY effective_from DESC, id DESC
		LIMIT NULLIF($3, 0)
	`

	rows, err := r.tx.Query(ctx, query, ownerID, meter, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query rate records: %w", err)
	}
	defer rows.Close()

	var out []domain.RateRecord
	for rows.Next() {
		var rec domain.RateRecord
		if err := rows.Scan(&rec.ID, &rec.OwnerID, &rec.MeterType, &rec.RatePerUnit, &rec.EffectiveFrom, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan rate record: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return out, nil
}
