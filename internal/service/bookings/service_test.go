package bookings

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/SMC-ConsultationService/internal/domain"
	"github.com/m04kA/SMC-ConsultationService/internal/infra/storage/memory"
	"github.com/m04kA/SMC-ConsultationService/internal/service/bookings/models"
	calendarService "github.com/m04kA/SMC-ConsultationService/internal/service/calendar"
	"github.com/m04kA/SMC-ConsultationService/pkg/clock"
	"github.com/m04kA/SMC-ConsultationService/pkg/keylock"
	"github.com/m04kA/SMC-ConsultationService/pkg/logger"
	"github.com/m04kA/SMC-ConsultationService/pkg/ptr"
	"github.com/m04kA/SMC-ConsultationService/pkg/simpletxmanager"
	"github.com/m04kA/SMC-ConsultationService/pkg/types"
)

const (
	providerID = int64(7)
	clientID   = int64(42)
	adminID    = int64(1)
)

// 2024-06-01 is a Saturday
func at(day, hour, minute int) time.Time {
	return time.Date(2024, 6, day, hour, minute, 0, 0, time.UTC)
}

type notification struct {
	event         domain.NotificationEvent
	appointmentID int64
	payment       *domain.Payment
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []notification
}

func (n *recordingNotifier) Notify(_ context.Context, event domain.NotificationEvent, appt *domain.Appointment, payment *domain.Payment) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, notification{event: event, appointmentID: appt.ID, payment: payment})
	return nil
}

func (n *recordingNotifier) count(event domain.NotificationEvent) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	c := 0
	for _, e := range n.events {
		if e.event == event {
			c++
		}
	}
	return c
}

func (n *recordingNotifier) last() notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.events[len(n.events)-1]
}

type fakeRefunds struct {
	mu    sync.Mutex
	calls []int64
}

func (f *fakeRefunds) RecordRefund(_ context.Context, appt *domain.Appointment) (*domain.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, appt.ID)
	return &domain.Payment{
		ID:                1000 + appt.ID,
		AppointmentID:     appt.ID,
		Amount:            80,
		Currency:          "EUR",
		Status:            domain.PaymentRefundPending,
		RefundOfPaymentID: ptr.Ptr(int64(1)),
	}, nil
}

type fixture struct {
	clock    *clock.Fake
	store    *memory.Store
	calendar *calendarService.Service
	notifier *recordingNotifier
	refunds  *fakeRefunds
	service  *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clk := clock.NewFake(at(1, 8, 0))
	store := memory.NewStore(clk.Now)
	txManager := simpletxmanager.NewTransactionManager(store)
	log := logger.NewNop()

	calendar := calendarService.NewService(store.Schedule, store.Appointments, txManager, keylock.New(), clk, time.UTC, log)
	_, err := calendar.CreatePattern(context.Background(), &domain.RecurringPattern{
		ProviderID:          providerID,
		Weekday:             time.Saturday,
		StartTimeOfDay:      types.TimeString("09:00"),
		EndTimeOfDay:        types.TimeString("18:00"),
		SlotDurationMinutes: 30,
		EffectiveFrom:       at(1, 0, 0),
	})
	require.NoError(t, err)

	notifier := &recordingNotifier{}
	refunds := &fakeRefunds{}
	svc := NewService(store.Appointments, calendar, refunds, notifier, txManager, clk, nil, Policy{
		MeetingBaseURL: "https://meet.example.com/",
	}, log)

	return &fixture{clock: clk, store: store, calendar: calendar, notifier: notifier, refunds: refunds, service: svc}
}

func (f *fixture) book(t *testing.T, start time.Time, typ domain.AppointmentType) *domain.Appointment {
	t.Helper()
	appt, err := f.service.CreateBooking(context.Background(), &models.CreateBookingRequest{
		ClientID:   clientID,
		ProviderID: providerID,
		StartTime:  start,
		EndTime:    start.Add(time.Duration(typ.DurationMinutes()) * time.Minute),
		Type:       typ,
	})
	require.NoError(t, err)
	return appt
}

func (f *fixture) confirm(t *testing.T, appt *domain.Appointment) *domain.Appointment {
	t.Helper()
	confirmed, err := f.service.ConfirmPayment(context.Background(), appt.ID, domain.PaymentResult{
		PaymentID:   1,
		Amount:      80,
		Currency:    "EUR",
		CompletedAt: f.clock.Now(),
	})
	require.NoError(t, err)
	return confirmed
}

func client() domain.Actor { return domain.Actor{UserID: clientID} }
func admin() domain.Actor  { return domain.Actor{UserID: adminID, IsAdmin: true} }

func TestCreateBooking_OverlappingRequestRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first := f.book(t, at(1, 10, 0), domain.TypeInitialConsultation)
	assert.Equal(t, domain.StatusPendingPayment, first.Status)
	assert.False(t, first.IsPaid)
	assert.NotZero(t, first.SlotID)

	_, err := f.service.CreateBooking(ctx, &models.CreateBookingRequest{
		ClientID:   clientID + 1,
		ProviderID: providerID,
		StartTime:  at(1, 10, 15),
		EndTime:    at(1, 10, 45),
		Type:       domain.TypeFollowUp,
	})
	assert.ErrorIs(t, err, ErrSlotUnavailable)

	assert.Equal(t, 1, f.notifier.count(domain.EventBookingCreated))
}

func TestCreateBooking_InvalidInput(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.CreateBooking(context.Background(), &models.CreateBookingRequest{
		ClientID:   clientID,
		ProviderID: providerID,
		StartTime:  at(1, 11, 0),
		EndTime:    at(1, 10, 0),
		Type:       domain.TypeFollowUp,
	})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestCreateBooking_ConcurrentRequestsExactlyOneSucceeds(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	const workers = 20
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		conflicts int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			start := at(1, 14, 0).Add(time.Duration(i%3) * 10 * time.Minute)
			_, err := f.service.CreateBooking(ctx, &models.CreateBookingRequest{
				ClientID:   int64(100 + i),
				ProviderID: providerID,
				StartTime:  start,
				EndTime:    start.Add(30 * time.Minute),
				Type:       domain.TypeFollowUp,
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case assert.ErrorIs(t, err, ErrSlotUnavailable):
				conflicts++
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, workers-1, conflicts)
}

func TestConfirmPayment_ConfirmsOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	appt := f.book(t, at(1, 10, 0), domain.TypeInitialConsultation)

	confirmed := f.confirm(t, appt)
	assert.Equal(t, domain.StatusConfirmed, confirmed.Status)
	assert.True(t, confirmed.IsPaid)
	require.NotNil(t, confirmed.MeetingURL)
	assert.Regexp(t, `^https://meet\.example\.com/[0-9a-f-]{36}$`, *confirmed.MeetingURL)
	assert.Greater(t, confirmed.Version, appt.Version)

	again, err := f.service.ConfirmPayment(ctx, appt.ID, domain.PaymentResult{PaymentID: 2, CompletedAt: f.clock.Now()})
	assert.ErrorIs(t, err, ErrAlreadyPaid)
	require.NotNil(t, again)
	assert.True(t, again.IsPaid)
}

func TestConfirmPayment_AfterDeadlineExpiresBooking(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	appt := f.book(t, at(1, 10, 0), domain.TypeInitialConsultation)

	f.clock.Advance(31 * time.Minute)

	expired, err := f.service.ConfirmPayment(ctx, appt.ID, domain.PaymentResult{PaymentID: 1, CompletedAt: f.clock.Now()})
	assert.ErrorIs(t, err, ErrBookingExpired)
	require.NotNil(t, expired)
	assert.Equal(t, domain.StatusCancelled, expired.Status)
	assert.True(t, expired.IsPaid)
	assert.Equal(t, []int64{appt.ID}, f.refunds.calls)

	free, err := f.calendar.IsFree(ctx, providerID, at(1, 10, 0), at(1, 10, 30))
	require.NoError(t, err)
	assert.True(t, free)
}

func TestConfirmPayment_CancelledBookingFlaggedPaid(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	appt := f.book(t, at(1, 10, 0), domain.TypeFollowUp)

	_, err := f.service.Cancel(ctx, appt.ID, &models.CancelAppointmentRequest{Actor: client()})
	require.NoError(t, err)

	paid, err := f.service.ConfirmPayment(ctx, appt.ID, domain.PaymentResult{PaymentID: 1, CompletedAt: f.clock.Now()})
	assert.ErrorIs(t, err, ErrBookingExpired)
	require.NotNil(t, paid)
	assert.Equal(t, domain.StatusCancelled, paid.Status)
	assert.True(t, paid.IsPaid)
}

func TestCancel_ConfirmedWithinWindow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// starts in 9.5 hours
	appt := f.confirm(t, f.book(t, at(1, 17, 30), domain.TypeFollowUp))

	_, err := f.service.Cancel(ctx, appt.ID, &models.CancelAppointmentRequest{Actor: client()})
	assert.ErrorIs(t, err, ErrCancellationWindowClosed)

	cancelled, err := f.service.Cancel(ctx, appt.ID, &models.CancelAppointmentRequest{
		Actor:              admin(),
		CancellationReason: "provider unavailable",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, cancelled.Status)
	assert.True(t, cancelled.CancelledByAdmin)
	require.NotNil(t, cancelled.CancellationReason)
	assert.Equal(t, "provider unavailable", *cancelled.CancellationReason)
	assert.Equal(t, []int64{appt.ID}, f.refunds.calls)

	free, err := f.calendar.IsFree(ctx, providerID, at(1, 17, 30), at(1, 18, 0))
	require.NoError(t, err)
	assert.True(t, free)

	last := f.notifier.last()
	assert.Equal(t, domain.EventCancelled, last.event)
	require.NotNil(t, last.payment)
	assert.True(t, last.payment.IsRefund())
}

func TestCancel_ClientPendingBooking(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	appt := f.book(t, at(1, 11, 0), domain.TypeFollowUp)

	_, err := f.service.Cancel(ctx, appt.ID, &models.CancelAppointmentRequest{Actor: domain.Actor{UserID: clientID + 1}})
	assert.ErrorIs(t, err, ErrAccessDenied)

	cancelled, err := f.service.Cancel(ctx, appt.ID, &models.CancelAppointmentRequest{Actor: client()})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, cancelled.Status)
	assert.False(t, cancelled.CancelledByAdmin)
	assert.Empty(t, f.refunds.calls)

	_, err = f.service.Cancel(ctx, appt.ID, &models.CancelAppointmentRequest{Actor: client()})
	assert.ErrorIs(t, err, ErrAlreadyCancelled)

	_, err = f.service.Cancel(ctx, 9999, &models.CancelAppointmentRequest{Actor: admin()})
	assert.ErrorIs(t, err, ErrAppointmentNotFound)
}

func TestGetByID_ExpiresOverduePayment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	appt := f.book(t, at(1, 10, 0), domain.TypeFollowUp)

	f.clock.Advance(29 * time.Minute)
	resp, err := f.service.GetByID(ctx, appt.ID, client())
	require.NoError(t, err)
	assert.Equal(t, string(domain.StatusPendingPayment), resp.Status)

	f.clock.Advance(2 * time.Minute)
	resp, err = f.service.GetByID(ctx, appt.ID, client())
	require.NoError(t, err)
	assert.Equal(t, string(domain.StatusCancelled), resp.Status)

	free, err := f.calendar.IsFree(ctx, providerID, at(1, 10, 0), at(1, 10, 30))
	require.NoError(t, err)
	assert.True(t, free)

	_, err = f.service.GetByID(ctx, appt.ID, domain.Actor{UserID: clientID + 1})
	assert.ErrorIs(t, err, ErrAccessDenied)
}

func TestExpirePending(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.book(t, at(1, 10, 0), domain.TypeFollowUp)
	f.book(t, at(1, 11, 0), domain.TypeFollowUp)

	expired, err := f.service.ExpirePending(ctx)
	require.NoError(t, err)
	assert.Zero(t, expired)

	f.clock.Advance(45 * time.Minute)
	expired, err = f.service.ExpirePending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, expired)
	assert.Equal(t, 2, f.notifier.count(domain.EventCancelled))

	expired, err = f.service.ExpirePending(ctx)
	require.NoError(t, err)
	assert.Zero(t, expired)
}

func TestCompleteFinished(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	appt := f.confirm(t, f.book(t, at(1, 10, 0), domain.TypeFollowUp))

	f.clock.Set(at(1, 10, 30))
	completed, err := f.service.CompleteFinished(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, completed)

	got, err := f.store.Appointments.GetByID(ctx, appt.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, got.Status)
	assert.NotNil(t, got.CompletedAt)

	_, err = f.service.Cancel(ctx, appt.ID, &models.CancelAppointmentRequest{Actor: admin()})
	assert.ErrorIs(t, err, ErrCannotCancel)
}

func TestSendReminders_Once(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.confirm(t, f.book(t, at(1, 17, 30), domain.TypeFollowUp))
	f.book(t, at(1, 16, 0), domain.TypeFollowUp)

	sent, err := f.service.SendReminders(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, sent)

	sent, err = f.service.SendReminders(ctx)
	require.NoError(t, err)
	assert.Zero(t, sent)
	assert.Equal(t, 1, f.notifier.count(domain.EventReminderDue))
}

func TestListByClient_StatusFilterSeesLazyTransitions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.book(t, at(1, 10, 0), domain.TypeFollowUp)
	f.confirm(t, f.book(t, at(1, 12, 0), domain.TypeFollowUp))

	f.clock.Advance(time.Hour)

	resp, err := f.service.ListByClient(ctx, &models.GetClientAppointmentsRequest{
		Actor:    client(),
		ClientID: clientID,
		Status:   ptr.Ptr(string(domain.StatusCancelled)),
	})
	require.NoError(t, err)
	require.Len(t, resp.Appointments, 1)
	assert.Equal(t, "10:00", resp.Appointments[0].StartTime[11:16])

	_, err = f.service.ListByClient(ctx, &models.GetClientAppointmentsRequest{Actor: client(), ClientID: clientID + 1})
	assert.ErrorIs(t, err, ErrAccessDenied)

	_, err = f.service.ListByClient(ctx, &models.GetClientAppointmentsRequest{
		Actor:    client(),
		ClientID: clientID,
		Status:   ptr.Ptr("unknown"),
	})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestListAll_FiltersByProvider(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.book(t, at(1, 10, 0), domain.TypeFollowUp)
	f.book(t, at(1, 11, 0), domain.TypeComprehensiveConsultation)

	resp, err := f.service.ListAll(ctx, &models.ListAppointmentsRequest{ProviderID: ptr.Ptr(providerID)})
	require.NoError(t, err)
	require.Len(t, resp.Appointments, 2)
	assert.Equal(t, 60, resp.Appointments[1].DurationMinutes)

	resp, err = f.service.ListAll(ctx, &models.ListAppointmentsRequest{ProviderID: ptr.Ptr(providerID + 1)})
	require.NoError(t, err)
	assert.Empty(t, resp.Appointments)
}

func TestUpdateNotes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	appt := f.book(t, at(1, 10, 0), domain.TypeInitialConsultation)

	resp, err := f.service.UpdateNotes(ctx, appt.ID, &models.UpdateAppointmentRequest{
		Actor:     client(),
		UserNotes: ptr.Ptr("please call first"),
	})
	require.NoError(t, err)
	require.NotNil(t, resp.UserNotes)
	assert.Equal(t, "please call first", *resp.UserNotes)
	assert.Equal(t, string(domain.StatusPendingPayment), resp.Status)
	assert.Equal(t, appt.Version+1, resp.Version)

	_, err = f.service.UpdateNotes(ctx, appt.ID, &models.UpdateAppointmentRequest{
		Actor:      client(),
		AdminNotes: ptr.Ptr("vip"),
	})
	assert.ErrorIs(t, err, ErrAccessDenied)

	_, err = f.service.UpdateNotes(ctx, appt.ID, &models.UpdateAppointmentRequest{
		Actor:     domain.Actor{UserID: clientID + 1},
		UserNotes: ptr.Ptr("not mine"),
	})
	assert.ErrorIs(t, err, ErrAccessDenied)

	_, err = f.service.UpdateNotes(ctx, appt.ID, &models.UpdateAppointmentRequest{Actor: client()})
	assert.ErrorIs(t, err, ErrInvalidInput)

	long := make([]rune, domain.MaxNotesLength+1)
	for i := range long {
		long[i] = 'x'
	}
	_, err = f.service.UpdateNotes(ctx, appt.ID, &models.UpdateAppointmentRequest{
		Actor:     client(),
		UserNotes: ptr.Ptr(string(long)),
	})
	assert.ErrorIs(t, err, ErrInvalidInput)

	adminResp, err := f.service.UpdateNotes(ctx, appt.ID, &models.UpdateAppointmentRequest{
		Actor:      admin(),
		AdminNotes: ptr.Ptr("vip"),
	})
	require.NoError(t, err)
	require.NotNil(t, adminResp.AdminNotes)
	assert.Equal(t, "vip", *adminResp.AdminNotes)
	require.NotNil(t, adminResp.UserNotes, "user notes are kept")

	clientView, err := f.service.GetByID(ctx, appt.ID, client())
	require.NoError(t, err)
	assert.Nil(t, clientView.AdminNotes, "admin notes are hidden from the client")
	assert.NotNil(t, clientView.UserNotes)
}

func TestUpdateNotes_ClosedAppointment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	appt := f.book(t, at(1, 10, 0), domain.TypeInitialConsultation)

	_, err := f.service.Cancel(ctx, appt.ID, &models.CancelAppointmentRequest{Actor: admin()})
	require.NoError(t, err)

	_, err = f.service.UpdateNotes(ctx, appt.ID, &models.UpdateAppointmentRequest{
		Actor:     client(),
		UserNotes: ptr.Ptr("too late"),
	})
	assert.ErrorIs(t, err, ErrCannotUpdate)

	resp, err := f.service.UpdateNotes(ctx, appt.ID, &models.UpdateAppointmentRequest{
		Actor:      admin(),
		AdminNotes: ptr.Ptr("client asked to rebook"),
	})
	require.NoError(t, err)
	assert.Equal(t, string(domain.StatusCancelled), resp.Status)

	_, err = f.service.UpdateNotes(ctx, 12345, &models.UpdateAppointmentRequest{Actor: admin(), AdminNotes: ptr.Ptr("x")})
	assert.ErrorIs(t, err, ErrAppointmentNotFound)
}
