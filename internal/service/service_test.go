package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/septivank/rent-manager/internal/anomaly"
	"github.com/septivank/rent-manager/internal/auth"
	"github.com/septivank/rent-manager/internal/blob"
	"github.com/septivank/rent-manager/internal/charge"
	"github.com/septivank/rent-manager/internal/domain"
	"github.com/septivank/rent-manager/internal/mail"
	"github.com/septivank/rent-manager/internal/maintenance"
	"github.com/septivank/rent-manager/internal/mq"
	"github.com/septivank/rent-manager/internal/payments"
	"github.com/septivank/rent-manager/internal/rates"
	"github.com/septivank/rent-manager/internal/readings"
	"github.com/septivank/rent-manager/internal/repository/memory"
	"github.com/septivank/rent-manager/internal/roster"
	"github.com/septivank/rent-manager/internal/secrets"
	"github.com/septivank/rent-manager/internal/validator"
)

type fakeProvider struct {
	err error
}

func (f *fakeProvider) CreateIntent(context.Context, charge.Request) (charge.Intent, error) {
	if f.err != nil {
		return charge.Intent{}, f.err
	}
	return charge.Intent{ID: "pi_test", ClientSecret: "pi_test_secret"}, nil
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []mail.Message
	err  error
}

func (m *fakeMailer) Send(_ context.Context, msg mail.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []mq.Event
}

func (p *recordingPublisher) Publish(_ context.Context, ev mq.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, ev := range p.events {
		out = append(out, ev.Type)
	}
	return out
}

type harness struct {
	svc      *Service
	provider *fakeProvider
	mailer   *fakeMailer
	events   *recordingPublisher
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		provider: &fakeProvider{},
		mailer:   &fakeMailer{},
		events:   &recordingPublisher{},
	}
	h.svc = New(Deps{
		Store:        memory.New(),
		Rates:        rates.NewRegistry(),
		Readings:     readings.NewLedger(),
		Payments:     payments.NewLedger(h.provider, "inr", "RENT"),
		Roster:       roster.New(),
		Maintenance:  maintenance.NewService(),
		Validator:    validator.NewValidator(10080),
		Detector:     anomaly.NewDetector(3.0, 3),
		Tokens:       auth.NewTokenIssuer("test-secret", time.Hour, "rent-manager"),
		Secrets:      secrets.NewSeeded(42),
		Mailer:       h.mailer,
		Blobs:        blob.NewLocalStore(t.TempDir()),
		Events:       h.events,
		ResetCodeTTL: 15 * time.Minute,
		Logger:       zap.NewNop(),
	})
	return h
}

func (h *harness) owner(t *testing.T, email string) domain.Owner {
	t.Helper()
	o, err := h.svc.RegisterOwner(context.Background(), "Owner "+email, email, "owner-pass")
	require.NoError(t, err)
	return o
}

func (h *harness) tenant(t *testing.T, owner domain.Owner, rent, elec, water float64) domain.Tenant {
	t.Helper()
	reg, err := h.svc.RegisterTenant(context.Background(), owner, NewTenant{
		Name:                      "Tenant",
		RentAmount:                rent,
		InitialElectricityReading: elec,
		InitialWaterReading:       water,
	})
	require.NoError(t, err)
	return reg.Tenant
}

func (h *harness) read(t *testing.T, tenant domain.Tenant, meter domain.MeterType, value float64, offset time.Duration) SubmittedReading {
	t.Helper()
	out, err := h.svc.SubmitReading(context.Background(), tenant, readings.Submission{
		Meter:     meter,
		Value:     value,
		Timestamp: time.Now().Add(offset),
	}, SourceHTTP)
	require.NoError(t, err)
	return out
}

func resetCodeFrom(t *testing.T, msg mail.Message) string {
	t.Helper()
	for _, line := range strings.Split(msg.Text, "\n") {
		if after, ok := strings.CutPrefix(line, "Your password reset code is: "); ok {
			code := strings.TrimSpace(after)
			require.Len(t, code, 6)
			return code
		}
	}
	t.Fatalf("no reset code in %q", msg.Text)
	return ""
}

func TestComputeBill_ElectricityAndSharedWater(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	owner := h.owner(t, "owner@example.com")

	tenant := h.tenant(t, owner, 5000, 100, 500)
	h.tenant(t, owner, 4000, 0, 0)
	h.tenant(t, owner, 4000, 0, 0)

	_, err := h.svc.SetRate(ctx, owner, "electricity", 8, time.Time{})
	require.NoError(t, err)
	_, err = h.svc.SetRate(ctx, owner, "water", 5, time.Time{})
	require.NoError(t, err)

	h.read(t, tenant, domain.MeterElectricity, 150, time.Hour)
	h.read(t, tenant, domain.MeterWater, 540, time.Hour)

	bill, err := h.svc.ComputeBill(ctx, tenant)
	require.NoError(t, err)
	require.Equal(t, 400.0, bill.Breakdown.Electricity)
	require.Equal(t, 50.0, bill.Breakdown.Water)
	require.Equal(t, 5450.0, bill.Breakdown.Total)
	require.Equal(t, 3, bill.TenantCount)
	require.Equal(t, 4, bill.Breakdown.WaterDivisor)
	require.NotNil(t, bill.Period)

	again, err := h.svc.ComputeBill(ctx, tenant)
	require.NoError(t, err)
	require.Equal(t, bill, again)
}

func TestComputeBill_SeedOnlyIsRentOnly(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	owner := h.owner(t, "owner@example.com")
	tenant := h.tenant(t, owner, 3200, 10, 20)

	_, err := h.svc.SetRate(ctx, owner, "electricity", 8, time.Time{})
	require.NoError(t, err)

	bill, err := h.svc.ComputeBill(ctx, tenant)
	require.NoError(t, err)
	require.Zero(t, bill.Breakdown.Electricity)
	require.Zero(t, bill.Breakdown.Water)
	require.Equal(t, 3200.0, bill.Breakdown.Total)
}

func TestComputeBill_WaterFallsBackToElectricityRate(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	owner := h.owner(t, "owner@example.com")
	tenant := h.tenant(t, owner, 1000, 0, 0)

	_, err := h.svc.SetRate(ctx, owner, "electricity", 2, time.Time{})
	require.NoError(t, err)
	h.read(t, tenant, domain.MeterWater, 30, time.Hour)

	bill, err := h.svc.ComputeBill(ctx, tenant)
	require.NoError(t, err)
	// 30 units shared by tenant and owner at the electricity rate
	require.Equal(t, 30.0, bill.Breakdown.Water)
}

func TestDashboard(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	owner := h.owner(t, "owner@example.com")
	tenant := h.tenant(t, owner, 1000.004, 100, 0)

	_, err := h.svc.SetRate(ctx, owner, "electricity", 1.333, time.Time{})
	require.NoError(t, err)
	h.read(t, tenant, domain.MeterElectricity, 101, time.Hour)

	dash, err := h.svc.Dashboard(ctx, tenant)
	require.NoError(t, err)
	require.Len(t, dash.Meters, 2)
	require.Equal(t, domain.MeterElectricity, dash.Meters[0].Meter)
	require.NotNil(t, dash.Meters[0].Consumption)
	require.Equal(t, 1.0, *dash.Meters[0].Consumption)
	require.Nil(t, dash.CurrentPayment)
	require.Empty(t, dash.RecentPayments)

	display := dash.Bill.Display()
	require.Equal(t, 1000.0, display.Rent)
	require.Equal(t, 1.33, display.Electricity)
	require.Equal(t, 1001.34, display.Total)

	_, err = h.svc.CreateCharge(ctx, tenant, "cash")
	require.NoError(t, err)

	dash, err = h.svc.Dashboard(ctx, tenant)
	require.NoError(t, err)
	require.NotNil(t, dash.CurrentPayment)
	require.Len(t, dash.RecentPayments, 1)
}

func TestCreateCharge_PeriodGuardAndTransitions(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	owner := h.owner(t, "owner@example.com")
	other := h.owner(t, "other@example.com")
	tenant := h.tenant(t, owner, 2500, 0, 0)

	first, err := h.svc.CreateCharge(ctx, tenant, "bank_transfer")
	require.NoError(t, err)
	require.Equal(t, domain.PaymentPending, first.Payment.Status)
	require.True(t, strings.HasPrefix(first.Reference, "RENT"))

	_, err = h.svc.CreateCharge(ctx, tenant, "cash")
	require.ErrorIs(t, err, domain.ErrState)
	require.Equal(t, "period_already_charged", domain.Code(err))

	_, err = h.svc.TransitionPayment(ctx, other, first.Payment.ID, "reject")
	require.ErrorIs(t, err, domain.ErrNotFound)

	rejected, err := h.svc.TransitionPayment(ctx, owner, first.Payment.ID, "reject")
	require.NoError(t, err)
	require.Equal(t, domain.PaymentRejected, rejected.Status)

	_, err = h.svc.TransitionPayment(ctx, owner, first.Payment.ID, "complete")
	require.ErrorIs(t, err, domain.ErrState)

	second, err := h.svc.CreateCharge(ctx, tenant, "card")
	require.NoError(t, err)
	require.Equal(t, "pi_test", second.Reference)
	require.Equal(t, "pi_test_secret", second.ClientSecret)

	completed, err := h.svc.TransitionPayment(ctx, owner, second.Payment.ID, "complete")
	require.NoError(t, err)
	require.Equal(t, domain.PaymentCompleted, completed.Status)

	_, err = h.svc.TransitionPayment(ctx, owner, second.Payment.ID, "refund")
	require.ErrorIs(t, err, domain.ErrValidation)

	require.Equal(t, []string{
		mq.EventPaymentCreated,
		mq.EventPaymentRejected,
		mq.EventPaymentCreated,
		mq.EventPaymentCompleted,
	}, h.events.types())

	dash, err := h.svc.OwnerDashboard(ctx, owner)
	require.NoError(t, err)
	require.Equal(t, 1, dash.TotalTenants)
	require.Equal(t, 2500.0, dash.TotalRent)
	require.Equal(t, 1, dash.CompletedPayments)
	require.Len(t, dash.RecentPayments, 2)
}

func TestCreateCharge_ProviderFailureLeavesNoPayment(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	owner := h.owner(t, "owner@example.com")
	tenant := h.tenant(t, owner, 2500, 0, 0)

	h.provider.err = errors.New("card network down")
	_, err := h.svc.CreateCharge(ctx, tenant, "card")
	require.ErrorIs(t, err, domain.ErrExternalProvider)
	var de *domain.Error
	require.ErrorAs(t, err, &de)
	require.NotContains(t, de.Message, "card network down")

	list, err := h.svc.OwnerPayments(ctx, owner)
	require.NoError(t, err)
	require.Empty(t, list)

	h.provider.err = nil
	handle, err := h.svc.CreateCharge(ctx, tenant, "card")
	require.NoError(t, err)
	require.Equal(t, "pi_test", handle.Reference)
	require.Equal(t, "pi_test", handle.Payment.ExternalReference)
	require.Equal(t, "pi_test_secret", handle.ClientSecret)
}

func TestSubmitReading_FlagsDecreaseButAccepts(t *testing.T) {
	h := newHarness(t)
	owner := h.owner(t, "owner@example.com")
	tenant := h.tenant(t, owner, 1000, 200, 0)

	out := h.read(t, tenant, domain.MeterElectricity, 150, time.Hour)
	require.NotNil(t, out.Flag)
	require.Equal(t, anomaly.FlagDecrease, out.Flag.Flag)
	require.NotZero(t, out.Reading.ID)

	bill, err := h.svc.ComputeBill(context.Background(), tenant)
	require.NoError(t, err)
	require.NotNil(t, bill.Breakdown.ElectricityConsumption)
	require.Equal(t, -50.0, *bill.Breakdown.ElectricityConsumption)

	require.Equal(t, []string{mq.EventReadingSubmitted}, h.events.types())
	payload := h.events.events[0].Payload.(readingPayload)
	require.Equal(t, "decrease", payload.Flag)
}

func TestUploadReading_StoresImage(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	owner := h.owner(t, "owner@example.com")
	tenant := h.tenant(t, owner, 1000, 0, 0)

	out, err := h.svc.UploadReading(ctx, tenant, validator.ReadingInput{Meter: "water", Value: "12.5"},
		&Upload{Filename: "meter.jpg", ContentType: "image/jpeg", Body: strings.NewReader("jpeg")})
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(out.Reading.ImagePath, tenant.TenantCode+"/"))

	rc, err := h.svc.OpenReadingImage(ctx, owner, out.Reading.ImagePath)
	require.NoError(t, err)
	rc.Close()

	other := h.owner(t, "other@example.com")
	_, err = h.svc.OpenReadingImage(ctx, other, out.Reading.ImagePath)
	require.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = h.svc.UploadReading(ctx, tenant, validator.ReadingInput{Meter: "gas", Value: "x"}, nil)
	require.ErrorIs(t, err, domain.ErrValidation)

	list, err := h.svc.OwnerReadings(ctx, owner)
	require.NoError(t, err)
	require.Len(t, list, 3)
	require.Equal(t, out.Reading.ID, list[0].Reading.ID)
	require.Equal(t, tenant.TenantCode, list[0].TenantCode)
}

func TestProcessReadingMessage(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	owner := h.owner(t, "owner@example.com")
	tenant := h.tenant(t, owner, 1000, 0, 0)

	body, err := json.Marshal(IngestMessage{
		RequestID:  "req-1",
		TenantCode: tenant.TenantCode,
		MeterType:  "electricity",
		Value:      "[42]",
		ImagePath:  "uploaded/elsewhere.jpg",
	})
	require.NoError(t, err)
	require.NoError(t, h.svc.ProcessReadingMessage(ctx, body))

	bill, err := h.svc.ComputeBill(ctx, tenant)
	require.NoError(t, err)
	require.Equal(t, 42.0, bill.Electricity.Latest.Value)
	require.Equal(t, "uploaded/elsewhere.jpg", bill.Electricity.Latest.ImagePath)

	unknown, _ := json.Marshal(IngestMessage{TenantCode: "nope", MeterType: "water", Value: "1"})
	require.ErrorIs(t, h.svc.ProcessReadingMessage(ctx, unknown), domain.ErrNotFound)

	invalid, _ := json.Marshal(IngestMessage{TenantCode: tenant.TenantCode, MeterType: "water", Value: "-1"})
	require.ErrorIs(t, h.svc.ProcessReadingMessage(ctx, invalid), domain.ErrValidation)

	require.Error(t, h.svc.ProcessReadingMessage(ctx, []byte("{")))
}

func TestAccounts_LoginAndPasswords(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	owner := h.owner(t, "owner@example.com")

	_, err := h.svc.RegisterOwner(ctx, "Dup", "OWNER@example.com", "x")
	require.ErrorIs(t, err, domain.ErrConflict)

	reg, err := h.svc.RegisterTenant(ctx, owner, NewTenant{Name: "Asha", RentAmount: 1200})
	require.NoError(t, err)
	require.Len(t, reg.Tenant.TenantCode, 6)
	require.Len(t, reg.Password, 8)

	sess, err := h.svc.Login(ctx, reg.Tenant.TenantCode, reg.Password)
	require.NoError(t, err)
	require.Equal(t, domain.RoleTenant, sess.Account.Role())

	claims, err := h.svc.tokens.Verify(sess.Token)
	require.NoError(t, err)
	acct, err := h.svc.Authenticate(ctx, claims)
	require.NoError(t, err)
	require.Equal(t, reg.Tenant.ID, acct.AccountID())

	_, err = h.svc.Login(ctx, "owner@example.com", "wrong")
	require.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = h.svc.Login(ctx, "000000x", "whatever")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	sess, err = h.svc.Login(ctx, "owner@example.com", "owner-pass")
	require.NoError(t, err)

	err = h.svc.ChangePassword(ctx, sess.Account, "wrong", "next")
	require.ErrorIs(t, err, domain.ErrUnauthorized)
	require.NoError(t, h.svc.ChangePassword(ctx, sess.Account, "owner-pass", "next-pass"))

	_, err = h.svc.Login(ctx, "owner@example.com", "next-pass")
	require.NoError(t, err)
}

func TestAuthenticate_DeletedTenant(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	owner := h.owner(t, "owner@example.com")
	other := h.owner(t, "other@example.com")
	tenant := h.tenant(t, owner, 1000, 0, 0)

	require.ErrorIs(t, h.svc.DeleteTenant(ctx, other, tenant.ID), domain.ErrNotFound)
	require.NoError(t, h.svc.DeleteTenant(ctx, owner, tenant.ID))

	_, err := h.svc.Authenticate(ctx, auth.Claims{AccountID: tenant.ID, Role: domain.RoleTenant})
	require.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = h.svc.Authenticate(ctx, auth.Claims{AccountID: owner.ID, Role: domain.RoleTenant})
	require.ErrorIs(t, err, domain.ErrUnauthorized)

	tenants, err := h.svc.Tenants(ctx, owner)
	require.NoError(t, err)
	require.Empty(t, tenants)
}

func TestPasswordReset(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.owner(t, "owner@example.com")

	msg, err := h.svc.RequestPasswordReset(ctx, "nobody@example.com")
	require.NoError(t, err)
	require.Equal(t, ResetRequestedMessage, msg)
	require.Empty(t, h.mailer.sent)

	msg, err = h.svc.RequestPasswordReset(ctx, "owner@example.com")
	require.NoError(t, err)
	require.Equal(t, ResetRequestedMessage, msg)
	require.Len(t, h.mailer.sent, 1)

	code := resetCodeFrom(t, h.mailer.sent[0])

	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}
	err = h.svc.ResetPassword(ctx, "owner@example.com", wrong, "fresh-pass")
	require.ErrorIs(t, err, domain.ErrValidation)

	require.NoError(t, h.svc.ResetPassword(ctx, "owner@example.com", code, "fresh-pass"))
	_, err = h.svc.Login(ctx, "owner@example.com", "fresh-pass")
	require.NoError(t, err)

	err = h.svc.ResetPassword(ctx, "owner@example.com", code, "again")
	require.ErrorIs(t, err, domain.ErrValidation)
}

func TestPasswordReset_RetiresCodeAfterRepeatedFailures(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.owner(t, "owner@example.com")

	_, err := h.svc.RequestPasswordReset(ctx, "owner@example.com")
	require.NoError(t, err)
	code := resetCodeFrom(t, h.mailer.sent[0])

	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}
	for i := 0; i < MaxResetAttempts; i++ {
		err = h.svc.ResetPassword(ctx, "owner@example.com", wrong, "guessed")
		require.ErrorIs(t, err, domain.ErrValidation, "attempt %d", i+1)
	}

	err = h.svc.ResetPassword(ctx, "owner@example.com", code, "fresh-pass")
	require.ErrorIs(t, err, domain.ErrValidation)
	_, err = h.svc.Login(ctx, "owner@example.com", "fresh-pass")
	require.Error(t, err)

	_, err = h.svc.RequestPasswordReset(ctx, "owner@example.com")
	require.NoError(t, err)
	require.NoError(t, h.svc.ResetPassword(ctx, "owner@example.com", resetCodeFrom(t, h.mailer.sent[1]), "fresh-pass"))
}

func TestPasswordReset_ExpiredAndDeliveryFailure(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.owner(t, "owner@example.com")

	h.mailer.err = errors.New("smtp: 554 relay denied")
	_, err := h.svc.RequestPasswordReset(ctx, "owner@example.com")
	require.ErrorIs(t, err, ErrResetDelivery)
	require.NotContains(t, err.Error(), "relay denied")

	h.mailer.err = nil
	_, err = h.svc.RequestPasswordReset(ctx, "owner@example.com")
	require.NoError(t, err)
	code := resetCodeFrom(t, h.mailer.sent[0])

	h.svc.now = func() time.Time { return time.Now().Add(time.Hour) }
	err = h.svc.ResetPassword(ctx, "owner@example.com", code, "late")
	require.ErrorIs(t, err, domain.ErrValidation)
}

func TestMaintenanceWorkflow(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	owner := h.owner(t, "owner@example.com")
	tenant := h.tenant(t, owner, 1000, 0, 0)

	req, err := h.svc.OpenMaintenanceRequest(ctx, tenant, maintenance.NewRequest{Title: "Leak", Description: "Bathroom", Priority: "medium"})
	require.NoError(t, err)

	_, err = h.svc.TransitionMaintenanceRequest(ctx, tenant, req.ID, "approve")
	require.ErrorIs(t, err, domain.ErrState)

	for _, action := range []string{"start", "complete"} {
		_, err = h.svc.TransitionMaintenanceRequest(ctx, tenant, req.ID, action)
		require.ErrorIs(t, err, domain.ErrValidation, action)
	}

	advance := func(st domain.MaintenanceStatus) {
		t.Helper()
		req, err = h.svc.OverrideMaintenanceRequest(ctx, owner, req.ID, maintenance.Override{Status: &st})
		require.NoError(t, err)
		require.Equal(t, st, req.Status)
	}
	advance(domain.MaintenanceInProgress)
	advance(domain.MaintenanceCompleted)

	req, err = h.svc.TransitionMaintenanceRequest(ctx, tenant, req.ID, "reject")
	require.NoError(t, err)
	require.Equal(t, domain.MaintenanceInProgress, req.Status)

	advance(domain.MaintenanceCompleted)
	req, err = h.svc.TransitionMaintenanceRequest(ctx, tenant, req.ID, "approve")
	require.NoError(t, err)
	require.Equal(t, domain.MaintenanceClosed, req.Status)

	notes := "checked again"
	status := domain.MaintenanceInProgress
	req, err = h.svc.OverrideMaintenanceRequest(ctx, owner, req.ID, maintenance.Override{Status: &status, OwnerNotes: &notes})
	require.NoError(t, err)
	require.Equal(t, domain.MaintenanceInProgress, req.Status)

	list, err := h.svc.OwnerMaintenanceRequests(ctx, owner)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, notes, list[0].Request.OwnerNotes)

	changes := 0
	for _, typ := range h.events.types() {
		if typ == mq.EventMaintenanceStatusChanged {
			changes++
		}
	}
	require.Equal(t, 6, changes)
}

func TestSetRate_Validation(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	owner := h.owner(t, "owner@example.com")

	_, err := h.svc.SetRate(ctx, owner, "gas", 2, time.Time{})
	require.ErrorIs(t, err, domain.ErrValidation)
	_, err = h.svc.SetRate(ctx, owner, "water", 0, time.Time{})
	require.ErrorIs(t, err, domain.ErrValidation)

	_, err = h.svc.CurrentRate(ctx, owner, "water")
	require.ErrorIs(t, err, domain.ErrNotFound)

	_, err = h.svc.SetRate(ctx, owner, " Water ", 4.5, time.Time{})
	require.NoError(t, err)
	rec, err := h.svc.CurrentRate(ctx, owner, "water")
	require.NoError(t, err)
	require.Equal(t, 4.5, rec.RatePerUnit)
}
