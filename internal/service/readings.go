package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/septivank/rent-manager/internal/anomaly"
	"github.com/septivank/rent-manager/internal/blob"
	"github.com/septivank/rent-manager/internal/domain"
	"github.com/septivank/rent-manager/internal/logging"
	"github.com/septivank/rent-manager/internal/metrics"
	"github.com/septivank/rent-manager/internal/mq"
	"github.com/septivank/rent-manager/internal/readings"
	"github.com/septivank/rent-manager/internal/repository"
	"github.com/septivank/rent-manager/internal/validator"
)

// Reading sources, used as a metrics label.
const (
	SourceHTTP = "http"
	SourceAMQP = "amqp"
	SourceSeed = "seed"
)

// Upload is an evidence image attached to a reading.
type Upload struct {
	Filename    string
	ContentType string
	Body        io.Reader
}

// SubmittedReading is an accepted reading and the plausibility flag raised for it, if any.
type SubmittedReading struct {
	Reading domain.Reading
	Flag    *anomaly.Finding
}

// SubmitReading appends a validated reading for tenant. Implausible readings are
// flagged and still accepted.
func (s *Service) SubmitReading(ctx context.Context, tenant domain.Tenant, sub readings.Submission, source string) (SubmittedReading, error) {
	var out SubmittedReading
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		flag, err := s.inspect(ctx, tx, tenant.ID, sub.Meter, sub.Value)
		if err != nil {
			return err
		}
		out.Flag = flag
		out.Reading, err = s.readings.Submit(ctx, tx, tenant, sub)
		return err
	})
	if err != nil {
		return SubmittedReading{}, err
	}

	r := out.Reading
	logger := s.log(ctx).With(
		zap.Int64("reading_id", r.ID),
		zap.Int64("tenant_id", tenant.ID),
		zap.String("meter_type", string(r.MeterType)),
	)
	metrics.ReadingsSubmittedTotal.WithLabelValues(string(r.MeterType), source).Inc()
	if out.Flag != nil {
		metrics.ReadingFlagsTotal.WithLabelValues(string(r.MeterType), string(out.Flag.Flag)).Inc()
		logger.Warn("reading flagged", zap.String("flag", string(out.Flag.Flag)), zap.String("reason", out.Flag.Reason))
	}
	logger.Info("reading submitted", zap.Float64("value", r.Value))

	s.publish(ctx, mq.NewEvent(mq.EventReadingSubmitted, readingEvent(r, out.Flag)))
	return out, nil
}

// inspect compares value with the meter's latest reading. Nothing is flagged for a first reading.
func (s *Service) inspect(ctx context.Context, tx repository.Tx, tenantID int64, meter domain.MeterType, value float64) (*anomaly.Finding, error) {
	if s.detector == nil {
		return nil, nil
	}
	latest, err := s.readings.Latest(ctx, tx, tenantID, meter)
	if err != nil || latest == nil {
		return nil, err
	}
	deltas, err := s.readings.RecentDeltas(ctx, tx, tenantID, meter, anomalyWindow)
	if err != nil {
		return nil, err
	}
	finding, flagged := s.detector.DetectAnomaly(value-latest.Value, deltas)
	if !flagged {
		return nil, nil
	}
	return &finding, nil
}

// UploadReading validates raw form input, stores the optional evidence image
// and submits the reading.
func (s *Service) UploadReading(ctx context.Context, tenant domain.Tenant, in validator.ReadingInput, image *Upload) (SubmittedReading, error) {
	now := s.now().UTC()
	parsed, err := s.validator.ValidateReading(in, now)
	if err != nil {
		return SubmittedReading{}, err
	}

	sub := readings.Submission{Meter: parsed.Meter, Value: parsed.Value, Timestamp: parsed.Timestamp}
	if image != nil {
		key := blob.Key(tenant.TenantCode, tenant.ID, string(parsed.Meter), now, image.Filename)
		sub.ImagePath, err = s.blobs.Put(ctx, key, image.Body, image.ContentType)
		if err != nil {
			s.log(ctx).Error("failed to store reading image", zap.Error(err), zap.String("key", key))
			return SubmittedReading{}, fmt.Errorf("failed to store reading image: %w", err)
		}
	}

	return s.SubmitReading(ctx, tenant, sub, SourceHTTP)
}

// OpenReadingImage streams a stored evidence image. Tenants see their own
// images; owners see their tenants' images.
func (s *Service) OpenReadingImage(ctx context.Context, acct domain.Account, path string) (io.ReadCloser, error) {
	code, _, _ := strings.Cut(path, "/")
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		tenant, err := tx.Accounts().FindByTenantCode(ctx, code)
		if err != nil {
			return err
		}
		switch a := acct.(type) {
		case domain.Tenant:
			if a.ID != tenant.ID {
				return domain.Unauthorized("image belongs to another tenant")
			}
		case domain.Owner:
			if !tenant.BelongsTo(a) {
				return domain.Unauthorized("image belongs to another owner's tenant")
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	rc, err := s.blobs.Open(ctx, path)
	if errors.Is(err, blob.ErrNotFound) {
		return nil, domain.NotFound("image_not_found", "image not found")
	}
	return rc, err
}

// IngestMessage is a reading submitted through the ingest queue
type IngestMessage struct {
	RequestID  string    `json:"request_id"`
	TenantCode string    `json:"tenant_code"`
	MeterType  string    `json:"meter_type"`
	Value      string    `json:"value"`
	Date       string    `json:"date"`
	ImagePath  string    `json:"image_path"`
	ReceivedAt time.Time `json:"received_at"`
}

// ProcessReadingMessage handles one ingest queue message. Returning an error
// sends the message to the DLQ.
func (s *Service) ProcessReadingMessage(ctx context.Context, body []byte) error {
	var msg IngestMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return fmt.Errorf("failed to unmarshal message: %w", err)
	}

	reqLogger := logging.WithRequestID(s.logger, msg.RequestID)
	ctx = logging.WithLogger(ctx, reqLogger)
	reqLogger.Info("processing message",
		zap.String("tenant_code", msg.TenantCode),
		zap.String("meter_type", msg.MeterType),
	)

	receivedAt := msg.ReceivedAt
	if receivedAt.IsZero() {
		receivedAt = s.now()
	}
	parsed, err := s.validator.ValidateReading(validator.ReadingInput{
		Meter: msg.MeterType,
		Value: msg.Value,
		Date:  msg.Date,
	}, receivedAt)
	if err != nil {
		reqLogger.Warn("invalid reading message", zap.Error(err))
		return err
	}

	var tenant domain.Tenant
	err = s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		tenant, err = tx.Accounts().FindByTenantCode(ctx, msg.TenantCode)
		return err
	})
	if err != nil {
		reqLogger.Warn("reading message for unknown tenant", zap.Error(err))
		return err
	}

	_, err = s.SubmitReading(ctx, tenant, readings.Submission{
		Meter:     parsed.Meter,
		Value:     parsed.Value,
		Timestamp: parsed.Timestamp,
		ImagePath: msg.ImagePath,
	}, SourceAMQP)
	return err
}

// OwnerReading is a reading of one of the owner's tenants.
type OwnerReading struct {
	Reading    domain.Reading
	TenantCode string
	TenantName string
}

// OwnerReadings lists readings across the owner's tenants, newest first.
func (s *Service) OwnerReadings(ctx context.Context, owner domain.Owner) ([]OwnerReading, error) {
	var out []OwnerReading
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		tenants, err := s.roster.Members(ctx, tx, owner)
		if err != nil {
			return err
		}
		byID := make(map[int64]domain.Tenant, len(tenants))
		for _, t := range tenants {
			byID[t.ID] = t
		}

		list, err := tx.Readings().ListByOwner(ctx, owner.ID)
		if err != nil {
			return err
		}
		out = make([]OwnerReading, 0, len(list))
		for _, r := range list {
			t := byID[r.TenantID]
			out = append(out, OwnerReading{Reading: r, TenantCode: t.TenantCode, TenantName: t.Name})
		}
		return nil
	})
	return out, err
}

type readingPayload struct {
	ReadingID int64     `json:"reading_id"`
	TenantID  int64     `json:"tenant_id"`
	MeterType string    `json:"meter_type"`
	Value     float64   `json:"value"`
	Timestamp time.Time `json:"timestamp"`
	Flag      string    `json:"flag,omitempty"`
	Reason    string    `json:"flag_reason,omitempty"`
}

func readingEvent(r domain.Reading, flag *anomaly.Finding) readingPayload {
	p := readingPayload{
		ReadingID: r.ID,
		TenantID:  r.TenantID,
		MeterType: string(r.MeterType),
		Value:     r.Value,
		Timestamp: r.Timestamp,
	}
	if flag != nil {
		p.Flag = string(flag.Flag)
		p.Reason = flag.Reason
	}
	return p
}
