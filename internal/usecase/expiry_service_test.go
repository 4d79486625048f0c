package usecase_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/francisco-dev-ao/loja356-25-sub001/internal/domain/model"
	"github.com/francisco-dev-ao/loja356-25-sub001/internal/usecase"
)

func TestExpiryService_Sweep(t *testing.T) {
	store := newMemStore()
	logger := zap.NewNop()
	recon := usecase.NewReconciliationService(store, store, &recordingNotifier{}, testWindow, logger)
	service := usecase.NewExpiryService(store, recon, 2, logger)

	old := time.Now().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		orderID := fmt.Sprintf("ORD-%d", i)
		store.addOrder(orderID, model.OrderPaymentPending)
		store.addSession(fmt.Sprintf("ORD%d-AH-OLD", i), orderID, decimal.NewFromInt(10), model.SessionStatusPending, old.Add(time.Duration(i)*time.Second))
	}
	store.addOrder("ORD-fresh", model.OrderPaymentPending)
	store.addSession("ORDF-AH-NEW", "ORD-fresh", decimal.NewFromInt(10), model.SessionStatusPending, time.Now())
	store.addOrder("ORD-proc", model.OrderPaymentPending)
	store.addSession("ORDP-AH-OLD", "ORD-proc", decimal.NewFromInt(10), model.SessionStatusProcessing, old)
	store.addOrder("ORD-stuck", model.OrderPaymentPending)
	store.addSession("ORDS-AH-OLD", "ORD-stuck", decimal.NewFromInt(10), model.SessionStatusProcessing, time.Now().Add(-25*time.Hour))

	summary, err := service.Sweep(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 6, summary.Expired)
	assert.Equal(t, 0, summary.Failed)
	for i := 0; i < 5; i++ {
		assert.Equal(t, model.SessionStatusExpired, store.session(fmt.Sprintf("ORD%d-AH-OLD", i)).Status)
		assert.Equal(t, model.OrderPaymentFailed, store.order(fmt.Sprintf("ORD-%d", i)).PaymentStatus)
	}
	assert.Equal(t, model.SessionStatusPending, store.session("ORDF-AH-NEW").Status)
	assert.Equal(t, model.SessionStatusProcessing, store.session("ORDP-AH-OLD").Status)
	assert.Equal(t, model.SessionStatusExpired, store.session("ORDS-AH-OLD").Status, "processing past its own window expires")
	assert.Equal(t, model.OrderPaymentFailed, store.order("ORD-stuck").PaymentStatus)

	// nothing left to do
	summary, err = service.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, usecase.SweepSummary{}, summary)
}

func TestExpiryService_ProcessingExpiryDisabled(t *testing.T) {
	store := newMemStore()
	logger := zap.NewNop()
	recon := usecase.NewReconciliationService(store, store, &recordingNotifier{}, model.ExpiryPolicy{Pending: 15 * time.Minute}, logger)
	service := usecase.NewExpiryService(store, recon, 10, logger)

	store.addOrder("ORD-stuck", model.OrderPaymentPending)
	store.addSession("ORDS-AH-OLD", "ORD-stuck", decimal.NewFromInt(10), model.SessionStatusProcessing, time.Now().Add(-72*time.Hour))

	summary, err := service.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Scanned)
	assert.Equal(t, model.SessionStatusProcessing, store.session("ORDS-AH-OLD").Status)
}

func TestExpiryService_CancelledContext(t *testing.T) {
	store := newMemStore()
	logger := zap.NewNop()
	recon := usecase.NewReconciliationService(store, store, &recordingNotifier{}, testWindow, logger)
	service := usecase.NewExpiryService(store, recon, 0, logger)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := service.Sweep(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
