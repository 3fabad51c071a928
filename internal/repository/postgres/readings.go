package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/septivank/rent-manager/internal/domain"
	"github.com/septivank/rent-manager/internal/repository"
)

const readingColumns = `id, tenant_id, meter_type, value, reading_at, image_path, processed, created_at`

type readings struct {
	tx pgx.Tx
}

func scanReading(row pgx.Row) (domain.Reading, error) {
	var rd domain.Reading
	err := row.Scan(
		&rd.ID,
		&rd.TenantID,
		&rd.MeterType,
		&rd.Value,
		&rd.Timestamp,
		&rd.ImagePath,
		&rd.Processed,
		&rd.CreatedAt,
	)
	return rd, err
}

func (r readings) Append(ctx context.Context, rd domain.Reading) (domain.Reading, error) {
	query := `
		INSERT INTO meter_readings (tenant_id, meter_type, value, reading_at, image_path, processed)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`

	err := r.tx.QueryRow(ctx, query,
		rd.TenantID,
		rd.MeterType,
		rd.Value,
		rd.Timestamp,
		rd.ImagePath,
		rd.Processed,
	).Scan(&rd.ID, &rd.CreatedAt)
	if err != nil {
		return domain.Reading{}, fmt.Errorf("failed to insert meter reading: %w", err)
	}
	return rd, nil
}

func (r readings) one(ctx context.Context, query string, args ...any) (domain.Reading, error) {
	rd, err := scanReading(r.tx.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Reading{}, repository.ErrReadingNotFound
	}
	if err != nil {
		return domain.Reading{}, fmt.Errorf("failed to query reading: %w", err)
	}
	return rd, nil
}

func (r readings) Latest(ctx context.Context, tenantID int64, meter domain.MeterType) (domain.Reading, error) {
	query := `
		SELECT ` + readingColumns + `
		FROM meter_readings
		WHERE tenant_id = $1 AND meter_type = $2
		ORDER BY reading_at DESC, id DESC
		LIMIT 1
	`
	return r.one(ctx, query, tenantID, meter)
}

func (r readings) PreviousBefore(ctx context.Context, tenantID int64, meter domain.MeterType, ts time.Time) (domain.Reading, error) {
	query := `
		SELECT ` + readingColumns + `
		FROM meter_readings
		WHERE tenant_id = $1 AND meter_type = $2 AND reading_at < $3
		ORDER BY reading_at DESC, id ASC
		LIMIT 1
	`
	return r.one(ctx, query, tenantID, meter, ts)
}

func (r readings) list(ctx context.Context, query string, args ...any) ([]domain.Reading, error) {
	rows, err := r.tx.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query readings: %w", err)
	}
	defer rows.Close()

	var out []domain.Reading
	for rows.Next() {
		rd, err := scanReading(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reading: %w", err)
		}
		out = append(out, rd)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return out, nil
}

// ListByTenant returns readings newest first. An empty meter matches both meters;
// limit <= 0 means no limit.
func (r readings) ListByTenant(ctx context.Context, tenantID int64, meter domain.MeterType, limit int) ([]domain.Reading, error) {
	query := `
		SELECT ` + readingColumns + `
		FROM meter_readings
		WHERE tenant_id = $1 AND ($2 = '' OR meter_type = $2)
		ORDER BY reading_at DESC, id DESC
		LIMIT NULLIF($3, 0)
	`
	return r.list(ctx, query, tenantID, string(meter), max(limit, 0))
}

func (r readings) ListByOwner(ctx context.Context, ownerID int64) ([]domain.Reading, error) {
	query := `
		SELECT r.id, r.tenant_id, r.meter_type, r.value, r.reading_at, r.image_path, r.processed, r.created_at
		FROM meter_readings r
		JOIN accounts a ON a.id = r.tenant_id
		WHERE a.owner_id = $1
		ORDER BY r.reading_at DESC, r.id DESC
	`
	return r.list(ctx, query, ownerID)
}
