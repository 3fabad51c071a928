package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"math"
	"net/mail"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/septivank/rent-manager/internal/auth"
	"github.com/septivank/rent-manager/internal/domain"
	mailer "github.com/septivank/rent-manager/internal/mail"
	"github.com/septivank/rent-manager/internal/readings"
	"github.com/septivank/rent-manager/internal/repository"
)

// MaxResetAttempts is how many wrong codes retire a reset code.
const MaxResetAttempts = 5

// ResetRequestedMessage is returned for every reset request, whether or not the email is known.
const ResetRequestedMessage = "If an account exists with this email, you will receive a password reset code"

var (
	ErrInvalidCredentials = &domain.Error{Kind: domain.ErrUnauthorized, Code: "invalid_credentials", Message: "invalid credentials"}
	ErrInvalidResetCode   = domain.Invalid("otp", "invalid or expired code")
	ErrResetDelivery      = &domain.Error{Kind: domain.ErrExternalProvider, Code: "email_delivery_failed", Message: "failed to send password reset code"}
)

// Session is the result of a successful login.
type Session struct {
	Token     string
	ExpiresAt time.Time
	Account   domain.Account
}

// RegisterOwner creates an owner account.
func (s *Service) RegisterOwner(ctx context.Context, name, email, password string) (domain.Owner, error) {
	fields := domain.FieldErrors{}
	name, email = strings.TrimSpace(name), strings.TrimSpace(email)
	if name == "" {
		fields.Add("name", "is required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		fields.Add("email", "must be a valid email address")
	}
	if password == "" {
		fields.Add("password", "is required")
	}
	if err := fields.Err(); err != nil {
		return domain.Owner{}, err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return domain.Owner{}, err
	}

	var owner domain.Owner
	err = s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		if _, err := tx.Accounts().FindByEmail(ctx, email); err == nil {
			return repository.ErrEmailTaken
		} else if !errors.Is(err, domain.ErrNotFound) {
			return err
		}
		owner, err = tx.Accounts().CreateOwner(ctx, domain.Owner{Name: name, Email: email, PasswordHash: hash})
		return err
	})
	if err != nil {
		return domain.Owner{}, err
	}

	s.log(ctx).Info("owner registered", zap.Int64("owner_id", owner.ID))
	return owner, nil
}

// Login accepts a tenant code or an owner email as identifier.
func (s *Service) Login(ctx context.Context, identifier, password string) (Session, error) {
	identifier = strings.TrimSpace(identifier)
	fields := domain.FieldErrors{}
	if identifier == "" {
		fields.Add("tenant_id", "is required")
	}
	if password == "" {
		fields.Add("password", "is required")
	}
	if err := fields.Err(); err != nil {
		return Session{}, err
	}

	var acct domain.Account
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		tenant, err := tx.Accounts().FindByTenantCode(ctx, identifier)
		if err == nil {
			acct = tenant
			return nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return err
		}
		acct, err = tx.Accounts().FindByEmail(ctx, identifier)
		return err
	})
	if errors.Is(err, domain.ErrNotFound) {
		return Session{}, ErrInvalidCredentials
	}
	if err != nil {
		return Session{}, err
	}
	if !auth.CheckPassword(acct, password) {
		return Session{}, ErrInvalidCredentials
	}

	token, exp, err := s.tokens.Issue(acct)
	if err != nil {
		return Session{}, err
	}
	return Session{Token: token, ExpiresAt: exp, Account: acct}, nil
}

// ChangePassword replaces acct's password after checking the current one.
func (s *Service) ChangePassword(ctx context.Context, acct domain.Account, current, next string) error {
	fields := domain.FieldErrors{}
	if current == "" {
		fields.Add("current_password", "is required")
	}
	if next == "" {
		fields.Add("new_password", "is required")
	}
	if err := fields.Err(); err != nil {
		return err
	}
	if !auth.CheckPassword(acct, current) {
		return &domain.Error{Kind: domain.ErrUnauthorized, Code: "invalid_credentials", Message: "current password is incorrect"}
	}

	hash, err := auth.HashPassword(next)
	if err != nil {
		return err
	}
	err = s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		return tx.Accounts().UpdatePasswordHash(ctx, acct.AccountID(), hash)
	})
	if err != nil {
		return err
	}

	s.log(ctx).Info("password changed", zap.Int64("account_id", acct.AccountID()))
	return nil
}

// NewTenant is what an owner enters to register a tenant.
type NewTenant struct {
	Name                      string
	Email                     string
	RentAmount                float64
	InitialElectricityReading float64
	InitialWaterReading       float64
}

// RegisteredTenant carries the generated password. It is never stored in plain text.
type RegisteredTenant struct {
	Tenant   domain.Tenant
	Password string
}

// RegisterTenant creates a tenant with a unique code, a generated password and
// one seed reading per meter.
func (s *Service) RegisterTenant(ctx context.Context, owner domain.Owner, in NewTenant) (RegisteredTenant, error) {
	fields := domain.FieldErrors{}
	in.Name, in.Email = strings.TrimSpace(in.Name), strings.TrimSpace(in.Email)
	if in.Name == "" {
		fields.Add("name", "is required")
	}
	if in.Email != "" {
		if _, err := mail.ParseAddress(in.Email); err != nil {
			fields.Add("email", "must be a valid email address")
		}
	}
	checkAmount(fields, "rent_amount", in.RentAmount)
	checkAmount(fields, "initial_electricity_reading", in.InitialElectricityReading)
	checkAmount(fields, "initial_water_reading", in.InitialWaterReading)
	if err := fields.Err(); err != nil {
		return RegisteredTenant{}, err
	}

	password, err := s.secrets.TenantPassword()
	if err != nil {
		return RegisteredTenant{}, err
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return RegisteredTenant{}, err
	}

	var tenant domain.Tenant
	err = s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		if in.Email != "" {
			if _, err := tx.Accounts().FindByEmail(ctx, in.Email); err == nil {
				return repository.ErrEmailTaken
			} else if !errors.Is(err, domain.ErrNotFound) {
				return err
			}
		}

		code, err := s.uniqueTenantCode(ctx, tx)
		if err != nil {
			return err
		}
		tenant, err = tx.Accounts().CreateTenant(ctx, domain.Tenant{
			OwnerID:      owner.ID,
			TenantCode:   code,
			Name:         in.Name,
			Email:        in.Email,
			RentAmount:   in.RentAmount,
			PasswordHash: hash,
		})
		if err != nil {
			return err
		}

		seeds := map[domain.MeterType]float64{
			domain.MeterElectricity: in.InitialElectricityReading,
			domain.MeterWater:       in.InitialWaterReading,
		}
		for _, meter := range domain.MeterTypes {
			_, err := s.readings.Submit(ctx, tx, tenant, readings.Submission{
				Meter:     meter,
				Value:     seeds[meter],
				ImagePath: domain.SeedImagePath,
				Processed: true,
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return RegisteredTenant{}, err
	}

	s.log(ctx).Info("tenant registered",
		zap.Int64("owner_id", owner.ID),
		zap.Int64("tenant_id", tenant.ID),
		zap.String("tenant_code", tenant.TenantCode),
	)
	return RegisteredTenant{Tenant: tenant, Password: password}, nil
}

func checkAmount(fields domain.FieldErrors, name string, v float64) {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		fields.Add(name, "must be a non-negative number")
	}
}

func (s *Service) uniqueTenantCode(ctx context.Context, tx repository.Tx) (string, error) {
	for range tenantCodeAttempts {
		code, err := s.secrets.TenantCode()
		if err != nil {
			return "", err
		}
		_, err = tx.Accounts().FindByTenantCode(ctx, code)
		if errors.Is(err, domain.ErrNotFound) {
			return code, nil
		}
		if err != nil {
			return "", err
		}
	}
	return "", repository.ErrTenantCodeTaken
}

// DeleteTenant removes one of owner's tenants and everything the tenant owns.
func (s *Service) DeleteTenant(ctx context.Context, owner domain.Owner, tenantID int64) error {
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		if _, err := s.roster.Tenant(ctx, tx, owner, tenantID); err != nil {
			return err
		}
		return tx.Accounts().DeleteTenant(ctx, tenantID)
	})
	if err != nil {
		return err
	}

	s.log(ctx).Info("tenant deleted", zap.Int64("owner_id", owner.ID), zap.Int64("tenant_id", tenantID))
	return nil
}

// Tenants lists owner's roster.
func (s *Service) Tenants(ctx context.Context, owner domain.Owner) ([]domain.Tenant, error) {
	var out []domain.Tenant
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		var err error
		out, err = s.roster.Members(ctx, tx, owner)
		return err
	})
	return out, err
}

// OwnerPayment is a payment together with the tenant it charges.
type OwnerPayment struct {
	Payment    domain.Payment
	TenantCode string
	TenantName string
}

type OwnerDashboard struct {
	TotalTenants      int
	TotalRent         float64
	CompletedPayments int
	RecentPayments    []OwnerPayment
}

// OwnerDashboard summarises owner's roster and its latest payments.
func (s *Service) OwnerDashboard(ctx context.Context, owner domain.Owner) (OwnerDashboard, error) {
	var dash OwnerDashboard
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		tenants, err := s.roster.Members(ctx, tx, owner)
		if err != nil {
			return err
		}
		dash.TotalTenants = len(tenants)
		for _, t := range tenants {
			dash.TotalRent += t.RentAmount
		}

		if dash.CompletedPayments, err = tx.Payments().CountByOwner(ctx, owner.ID, domain.PaymentCompleted); err != nil {
			return err
		}
		dash.RecentPayments, err = s.ownerPayments(ctx, tx, owner, tenants, recentPaymentsLimit)
		return err
	})
	return dash, err
}

// OwnerPayments lists every payment of owner's tenants, newest first.
func (s *Service) OwnerPayments(ctx context.Context, owner domain.Owner) ([]OwnerPayment, error) {
	var out []OwnerPayment
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		tenants, err := s.roster.Members(ctx, tx, owner)
		if err != nil {
			return err
		}
		out, err = s.ownerPayments(ctx, tx, owner, tenants, 0)
		return err
	})
	return out, err
}

func (s *Service) ownerPayments(ctx context.Context, tx repository.Tx, owner domain.Owner, tenants []domain.Tenant, limit int) ([]OwnerPayment, error) {
	byID := make(map[int64]domain.Tenant, len(tenants))
	for _, t := range tenants {
		byID[t.ID] = t
	}

	list, err := tx.Payments().ListByOwner(ctx, owner.ID, limit)
	if err != nil {
		return nil, err
	}
	out := make([]OwnerPayment, 0, len(list))
	for _, p := range list {
		t := byID[p.TenantID]
		out = append(out, OwnerPayment{Payment: p, TenantCode: t.TenantCode, TenantName: t.Name})
	}
	return out, nil
}

// RequestPasswordReset issues a one-time code and emails it. Unknown emails
// get the same answer as known ones.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) (string, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return "", domain.Invalid("email", "is required")
	}

	var acct domain.Account
	var code domain.ResetCode
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		var err error
		acct, err = tx.Accounts().FindByEmail(ctx, email)
		if err != nil {
			return err
		}
		otp, err := s.secrets.ResetCode()
		if err != nil {
			return err
		}
		now := s.now().UTC().Truncate(time.Microsecond)
		code, err = tx.ResetCodes().Create(ctx, domain.ResetCode{
			AccountID: acct.AccountID(),
			Email:     email,
			Code:      otp,
			CreatedAt: now,
			ExpiresAt: now.Add(s.resetCodeTTL),
		})
		return err
	})
	if errors.Is(err, domain.ErrNotFound) {
		return ResetRequestedMessage, nil
	}
	if err != nil {
		return "", err
	}

	msg, err := mailer.ResetCodeMessage(email, acct.DisplayName(), code.Code, s.resetCodeTTL)
	if err == nil {
		err = s.mailer.Send(ctx, msg)
	}
	if err != nil {
		s.log(ctx).Error("failed to send password reset email", zap.Error(err), zap.Int64("account_id", acct.AccountID()))
		return "", ErrResetDelivery
	}

	s.log(ctx).Info("password reset code issued", zap.Int64("account_id", acct.AccountID()))
	return ResetRequestedMessage, nil
}

// ResetPassword redeems the most recent unused code issued for email.
func (s *Service) ResetPassword(ctx context.Context, email, otp, newPassword string) error {
	email = strings.TrimSpace(email)
	fields := domain.FieldErrors{}
	if email == "" {
		fields.Add("email", "is required")
	}
	if otp == "" {
		fields.Add("otp", "is required")
	}
	if newPassword == "" {
		fields.Add("new_password", "is required")
	}
	if err := fields.Err(); err != nil {
		return err
	}

	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		return err
	}

	var (
		accountID int64
		rejected  bool
	)
	err = s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		code, err := tx.ResetCodes().LatestUnused(ctx, email)
		if errors.Is(err, domain.ErrNotFound) {
			return ErrInvalidResetCode
		}
		if err != nil {
			return err
		}
		if !code.Valid(s.now()) {
			return ErrInvalidResetCode
		}
		if subtle.ConstantTimeCompare([]byte(code.Code), []byte(otp)) != 1 {
			// committed so the attempt counts
			rejected = true
			code, err = tx.ResetCodes().RecordFailedAttempt(ctx, code.ID, MaxResetAttempts)
			if err == nil && code.Used {
				s.log(ctx).Warn("password reset code retired after repeated failures", zap.Int64("account_id", code.AccountID))
			}
			return err
		}

		acct, err := tx.Accounts().FindByEmail(ctx, email)
		if err != nil {
			return err
		}
		accountID = acct.AccountID()
		if err := tx.Accounts().UpdatePasswordHash(ctx, accountID, hash); err != nil {
			return err
		}
		return tx.ResetCodes().MarkUsed(ctx, code.ID)
	})
	if err != nil {
		return err
	}
	if rejected {
		return ErrInvalidResetCode
	}

	s.log(ctx).Info("password reset", zap.Int64("account_id", accountID))
	return nil
}
