package usecase_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	domainErrors "github.com/francisco-dev-ao/loja356-25-sub001/internal/domain/errors"
	"github.com/francisco-dev-ao/loja356-25-sub001/internal/domain/model"
	"github.com/francisco-dev-ao/loja356-25-sub001/internal/usecase"
)

var testWindow = model.ExpiryPolicy{Pending: 15 * time.Minute, Processing: 24 * time.Hour}

type reconFixture struct {
	store    *memStore
	notifier *recordingNotifier
	service  *usecase.ReconciliationService
}

func newReconFixture() *reconFixture {
	store := newMemStore()
	notifier := &recordingNotifier{}
	return &reconFixture{
		store:    store,
		notifier: notifier,
		service:  usecase.NewReconciliationService(store, store, notifier, testWindow, zap.NewNop()),
	}
}

func (f *reconFixture) pendingSession(reference, orderID string) {
	f.store.addOrder(orderID, model.OrderPaymentPending)
	f.store.addSession(reference, orderID, decimal.NewFromInt(912000), model.SessionStatusPending, time.Now())
}

func TestReconciliation_DuplicateAcceptsNotifyOnce(t *testing.T) {
	f := newReconFixture()
	f.pendingSession("ORD1-AH-AAAA", "ORD-1")
	ctx := context.Background()

	first, err := f.service.Apply(ctx, "ORD1-AH-AAAA", usecase.SignalAccepted, usecase.SourceWebhook, "")
	require.NoError(t, err)
	assert.Equal(t, usecase.VerdictTransition, first.Verdict)
	completedAt := *f.store.session("ORD1-AH-AAAA").CompletedAt
	orderUpdatedAt := f.store.order("ORD-1").UpdatedAt

	for i := 0; i < 4; i++ {
		res, err := f.service.Apply(ctx, "ORD1-AH-AAAA", usecase.SignalAccepted, usecase.SourceWebhook, "")
		require.NoError(t, err)
		assert.Equal(t, usecase.VerdictDuplicate, res.Verdict)
	}

	transitions, orderWrites := f.store.counts()
	assert.Equal(t, 1, transitions)
	assert.Equal(t, 1, orderWrites)
	assert.Equal(t, 1, f.notifier.count())
	assert.Equal(t, completedAt, *f.store.session("ORD1-AH-AAAA").CompletedAt)
	assert.Equal(t, orderUpdatedAt, f.store.order("ORD-1").UpdatedAt)

	order := f.store.order("ORD-1")
	assert.Equal(t, model.OrderPaymentPaid, order.PaymentStatus)
	assert.Equal(t, model.OrderStatusConfirmed, order.Status)
	assert.NotNil(t, order.PaidAt)
}

func TestReconciliation_ConcurrentSignals(t *testing.T) {
	f := newReconFixture()
	f.pendingSession("RACE-AH-0001", "ORD-RACE")
	ctx := context.Background()

	const workers = 25
	var wg sync.WaitGroup
	verdicts := make(chan usecase.Verdict, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		source := []usecase.Source{usecase.SourceWebhook, usecase.SourcePoll, usecase.SourceManual}[i%3]
		go func(source usecase.Source) {
			defer wg.Done()
			res, err := f.service.Apply(ctx, "RACE-AH-0001", usecase.SignalAccepted, source, "")
			if assert.NoError(t, err) {
				verdicts <- res.Verdict
			}
		}(source)
	}
	wg.Wait()
	close(verdicts)

	counts := map[usecase.Verdict]int{}
	for v := range verdicts {
		counts[v]++
	}
	assert.Equal(t, 1, counts[usecase.VerdictTransition])
	assert.Equal(t, workers-1, counts[usecase.VerdictDuplicate])
	assert.Equal(t, 1, f.notifier.count())
	assert.Equal(t, model.SessionStatusCompleted, f.store.session("RACE-AH-0001").Status)
}

func TestReconciliation_StaleCancelAfterAccept(t *testing.T) {
	f := newReconFixture()
	f.pendingSession("ORD2-AH-BBBB", "ORD-2")
	ctx := context.Background()

	_, err := f.service.Apply(ctx, "ORD2-AH-BBBB", usecase.SignalAccepted, usecase.SourceWebhook, "")
	require.NoError(t, err)

	res, err := f.service.Apply(ctx, "ORD2-AH-BBBB", usecase.SignalCancelled, usecase.SourceWebhook, "late cancel")
	require.NoError(t, err)

	assert.Equal(t, usecase.VerdictAnomaly, res.Verdict)
	assert.True(t, res.NeedsReview)
	session := f.store.session("ORD2-AH-BBBB")
	assert.Equal(t, model.SessionStatusCompleted, session.Status)
	assert.True(t, session.NeedsReview)
	assert.Equal(t, model.OrderPaymentPaid, f.store.order("ORD-2").PaymentStatus)
}

func TestReconciliation_AcceptAfterExpiry(t *testing.T) {
	f := newReconFixture()
	f.store.addOrder("ORD-3", model.OrderPaymentPending)
	f.store.addSession("ORD3-AH-CCCC", "ORD-3", decimal.NewFromInt(100), model.SessionStatusPending, time.Now().Add(-time.Hour))
	ctx := context.Background()

	expired, err := f.service.Apply(ctx, "ORD3-AH-CCCC", usecase.SignalExpiry, usecase.SourceSweep, "")
	require.NoError(t, err)
	assert.Equal(t, usecase.VerdictTransition, expired.Verdict)
	assert.Equal(t, model.SessionStatusExpired, expired.To)
	assert.Equal(t, model.OrderPaymentFailed, f.store.order("ORD-3").PaymentStatus)

	late, err := f.service.Apply(ctx, "ORD3-AH-CCCC", usecase.SignalAccepted, usecase.SourceWebhook, "")
	require.NoError(t, err)
	assert.Equal(t, usecase.VerdictAnomaly, late.Verdict)
	assert.Equal(t, model.SessionStatusExpired, f.store.session("ORD3-AH-CCCC").Status)
	assert.Equal(t, 0, f.notifier.count())
}

func TestReconciliation_DoublePayment(t *testing.T) {
	f := newReconFixture()
	f.store.addOrder("ORD-4", model.OrderPaymentPending)
	f.store.addSession("ORD4-AH-0001", "ORD-4", decimal.NewFromInt(50), model.SessionStatusPending, time.Now().Add(-2*time.Minute))
	f.store.addSession("ORD4-AH-0002", "ORD-4", decimal.NewFromInt(50), model.SessionStatusPending, time.Now())
	ctx := context.Background()

	_, err := f.service.Apply(ctx, "ORD4-AH-0001", usecase.SignalAccepted, usecase.SourceWebhook, "")
	require.NoError(t, err)

	second, err := f.service.Apply(ctx, "ORD4-AH-0002", usecase.SignalAccepted, usecase.SourceWebhook, "")
	require.NoError(t, err)

	assert.Equal(t, usecase.VerdictTransition, second.Verdict)
	assert.True(t, second.DoublePayment)
	assert.True(t, f.store.session("ORD4-AH-0002").NeedsReview)
	assert.Equal(t, model.SessionStatusCompleted, f.store.session("ORD4-AH-0002").Status)
	assert.Equal(t, 1, f.notifier.count())
}

func TestReconciliation_FailureKeepsPaidOrder(t *testing.T) {
	f := newReconFixture()
	f.store.addOrder("ORD-5", model.OrderPaymentPaid)
	f.store.addSession("ORD5-AH-0001", "ORD-5", decimal.NewFromInt(10), model.SessionStatusPending, time.Now())

	res, err := f.service.Apply(context.Background(), "ORD5-AH-0001", usecase.SignalDeclined, usecase.SourceWebhook, "card declined")
	require.NoError(t, err)

	assert.Equal(t, model.SessionStatusFailed, res.To)
	session := f.store.session("ORD5-AH-0001")
	require.NotNil(t, session.FailureReason)
	assert.Equal(t, "card declined", *session.FailureReason)
	assert.Equal(t, model.OrderPaymentPaid, f.store.order("ORD-5").PaymentStatus)
}

func TestReconciliation_NotifierErrorIsAbsorbed(t *testing.T) {
	f := newReconFixture()
	f.notifier.err = errors.New("redis down")
	f.pendingSession("ORD6-AH-0001", "ORD-6")

	res, err := f.service.Apply(context.Background(), "ORD6-AH-0001", usecase.SignalAccepted, usecase.SourcePoll, "")
	require.NoError(t, err)
	assert.Equal(t, usecase.VerdictTransition, res.Verdict)
	assert.Equal(t, model.OrderPaymentPaid, f.store.order("ORD-6").PaymentStatus)
	assert.Equal(t, 1, f.notifier.count())
}

func TestReconciliation_UnknownReference(t *testing.T) {
	f := newReconFixture()
	_, err := f.service.Apply(context.Background(), "NOPE", usecase.SignalAccepted, usecase.SourceManual, "")
	assert.ErrorIs(t, err, domainErrors.ErrSessionNotFound)
}

func TestReconciliation_ProcessingThenAccepted(t *testing.T) {
	f := newReconFixture()
	f.pendingSession("ORD7-AH-0001", "ORD-7")
	ctx := context.Background()

	res, err := f.service.Apply(ctx, "ORD7-AH-0001", usecase.SignalProcessing, usecase.SourceWebhook, "")
	require.NoError(t, err)
	assert.Equal(t, model.SessionStatusProcessing, res.To)
	assert.Nil(t, f.store.session("ORD7-AH-0001").CompletedAt)
	assert.Equal(t, model.OrderPaymentPending, f.store.order("ORD-7").PaymentStatus)

	res, err = f.service.Apply(ctx, "ORD7-AH-0001", usecase.SignalAccepted, usecase.SourceWebhook, "")
	require.NoError(t, err)
	assert.Equal(t, model.SessionStatusCompleted, res.To)
	assert.Equal(t, 1, f.notifier.count())
}
