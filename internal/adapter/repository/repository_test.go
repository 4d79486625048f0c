package repository_test

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	repo "github.com/francisco-dev-ao/loja356-25-sub001/internal/adapter/repository"
	"github.com/francisco-dev-ao/loja356-25-sub001/internal/config"
	domainErrors "github.com/francisco-dev-ao/loja356-25-sub001/internal/domain/errors"
	"github.com/francisco-dev-ao/loja356-25-sub001/internal/domain/model"
	"github.com/francisco-dev-ao/loja356-25-sub001/internal/domain/repository"
	"github.com/francisco-dev-ao/loja356-25-sub001/internal/infrastructure/database"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.NewConnection(&config.DatabaseConfig{
		Driver:       "sqlite",
		Path:         ":memory:",
		MaxOpenConns: 1,
	}, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db, true))
	t.Cleanup(func() { _ = database.Close(db, zap.NewNop()) })
	return db
}

func seedOrder(t *testing.T, db *gorm.DB, id string, status model.OrderPaymentStatus) {
	t.Helper()
	at := time.Now().Add(-time.Hour)
	require.NoError(t, db.Create(&model.Order{
		ID:            id,
		Status:        model.OrderStatusPending,
		PaymentStatus: status,
		CreatedAt:     at,
		UpdatedAt:     at,
	}).Error)
}

func seedSession(t *testing.T, sessions repository.PaymentSessionRepository, reference, orderID string, createdAt time.Time) {
	t.Helper()
	require.NoError(t, sessions.Create(context.Background(), &model.PaymentSession{
		Reference: reference,
		OrderID:   orderID,
		Amount:    decimal.NewFromInt(912000),
		Status:    model.SessionStatusPending,
		CreatedAt: createdAt,
	}))
}

func TestPaymentSessionRepository_CreateAndGet(t *testing.T) {
	db := newTestDB(t)
	sessions := repo.NewPaymentSessionRepository(db, zap.NewNop())
	ctx := context.Background()

	seedSession(t, sessions, "ORD1-AH-0001", "ORD-1", time.Now().Add(-time.Minute))
	seedSession(t, sessions, "ORD1-AH-0002", "ORD-1", time.Now())

	got, err := sessions.GetByReference(ctx, "ORD1-AH-0001")
	require.NoError(t, err)
	assert.Equal(t, "ORD-1", got.OrderID)
	assert.True(t, decimal.NewFromInt(912000).Equal(got.Amount))
	assert.Equal(t, model.SessionStatusPending, got.Status)

	latest, err := sessions.GetLatestByOrderID(ctx, "ORD-1")
	require.NoError(t, err)
	assert.Equal(t, "ORD1-AH-0002", latest.Reference)

	all, err := sessions.ListByOrderID(ctx, "ORD-1")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	err = sessions.Create(ctx, &model.PaymentSession{Reference: "ORD1-AH-0001", OrderID: "ORD-9", Amount: decimal.NewFromInt(1), Status: model.SessionStatusPending})
	assert.ErrorIs(t, err, domainErrors.ErrDuplicateReference)

	_, err = sessions.GetByReference(ctx, "missing")
	assert.ErrorIs(t, err, domainErrors.ErrSessionNotFound)
	_, err = sessions.GetLatestByOrderID(ctx, "ORD-404")
	assert.ErrorIs(t, err, domainErrors.ErrSessionNotFound)
}

func TestPaymentSessionRepository_RecordGatewayResult(t *testing.T) {
	db := newTestDB(t)
	sessions := repo.NewPaymentSessionRepository(db, zap.NewNop())
	store := repo.NewTransitionStore(db, zap.NewNop())
	ctx := context.Background()
	seedSession(t, sessions, "ORD1-AH-0001", "ORD-1", time.Now())

	token := "tok-123"
	err := sessions.RecordGatewayResult(ctx, "ORD1-AH-0001", repository.GatewayResult{
		Token:    &token,
		Raw:      model.JSONB{"id": token},
		Attempts: 2,
	})
	require.NoError(t, err)

	got, err := sessions.GetByReference(ctx, "ORD1-AH-0001")
	require.NoError(t, err)
	require.NotNil(t, got.GatewayToken)
	assert.Equal(t, token, *got.GatewayToken)
	assert.Equal(t, 2, got.Attempts)
	assert.Equal(t, token, got.RawGatewayResponse["id"])

	_, err = store.ApplyTransition(ctx, repository.SessionTransition{
		Reference: "ORD1-AH-0001",
		From:      model.SessionStatusPending,
		To:        model.SessionStatusFailed,
		Signal:    "declined",
		Source:    "webhook",
		At:        time.Now(),
	})
	require.NoError(t, err)

	err = sessions.RecordGatewayResult(ctx, "ORD1-AH-0001", repository.GatewayResult{Attempts: 3, FallbackUsed: true})
	assert.ErrorIs(t, err, domainErrors.ErrConcurrentTransition)

	err = sessions.RecordGatewayResult(ctx, "missing", repository.GatewayResult{})
	assert.ErrorIs(t, err, domainErrors.ErrSessionNotFound)
}

func TestPaymentSessionRepository_FlagAndExpirable(t *testing.T) {
	db := newTestDB(t)
	sessions := repo.NewPaymentSessionRepository(db, zap.NewNop())
	ctx := context.Background()

	now := time.Now()
	seedSession(t, sessions, "OLD-AH-0002", "ORD-2", now.Add(-20*time.Minute))
	seedSession(t, sessions, "OLD-AH-0001", "ORD-1", now.Add(-30*time.Minute))
	seedSession(t, sessions, "NEW-AH-0001", "ORD-3", now)
	seedSession(t, sessions, "PRC-AH-0001", "ORD-4", now.Add(-26*time.Hour))
	require.NoError(t, db.Model(&model.PaymentSession{}).
		Where("reference = ?", "PRC-AH-0001").
		Update("status", model.SessionStatusProcessing).Error)

	expirable, err := sessions.ListExpirable(ctx, model.SessionStatusPending, now.Add(-15*time.Minute), 10)
	require.NoError(t, err)
	require.Len(t, expirable, 2)
	assert.Equal(t, "OLD-AH-0001", expirable[0].Reference)
	assert.Equal(t, "OLD-AH-0002", expirable[1].Reference)

	limited, err := sessions.ListExpirable(ctx, model.SessionStatusPending, now.Add(-15*time.Minute), 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	processing, err := sessions.ListExpirable(ctx, model.SessionStatusProcessing, now.Add(-24*time.Hour), 10)
	require.NoError(t, err)
	require.Len(t, processing, 1)
	assert.Equal(t, "PRC-AH-0001", processing[0].Reference)

	processing, err = sessions.ListExpirable(ctx, model.SessionStatusProcessing, now.Add(-30*time.Hour), 10)
	require.NoError(t, err)
	assert.Empty(t, processing)

	require.NoError(t, sessions.FlagForReview(ctx, "NEW-AH-0001", "amount differs"))
	require.NoError(t, sessions.FlagForReview(ctx, "NEW-AH-0001", "paid twice"))
	got, err := sessions.GetByReference(ctx, "NEW-AH-0001")
	require.NoError(t, err)
	assert.True(t, got.NeedsReview)
	assert.Equal(t, model.SessionStatusPending, got.Status)
	require.NotNil(t, got.FailureReason)
	assert.Equal(t, "amount differs; paid twice", *got.FailureReason)

	assert.ErrorIs(t, sessions.FlagForReview(ctx, "missing", "x"), domainErrors.ErrSessionNotFound)
}

func completion(reference, orderID string, at time.Time) repository.SessionTransition {
	return repository.SessionTransition{
		Reference: reference,
		From:      model.SessionStatusPending,
		To:        model.SessionStatusCompleted,
		Signal:    "accepted",
		Source:    "webhook",
		At:        at,
		Order: &repository.OrderUpdate{
			OrderID:       orderID,
			Status:        model.OrderStatusConfirmed,
			PaymentStatus: model.OrderPaymentPaid,
			PaidAt:        &at,
			UnlessPaid:    true,
		},
	}
}

func TestTransitionStore_ApplyTransition(t *testing.T) {
	db := newTestDB(t)
	sessions := repo.NewPaymentSessionRepository(db, zap.NewNop())
	orders := repo.NewOrderRepository(db)
	store := repo.NewTransitionStore(db, zap.NewNop())
	ctx := context.Background()

	seedOrder(t, db, "ORD-1", model.OrderPaymentPending)
	seedSession(t, sessions, "ORD1-AH-0001", "ORD-1", time.Now())

	at := time.Now()
	result, err := store.ApplyTransition(ctx, completion("ORD1-AH-0001", "ORD-1", at))
	require.NoError(t, err)
	assert.Equal(t, repository.OrderUpdated, result.Order)

	s, err := sessions.GetByReference(ctx, "ORD1-AH-0001")
	require.NoError(t, err)
	assert.Equal(t, model.SessionStatusCompleted, s.Status)
	require.NotNil(t, s.CompletedAt)
	require.NotNil(t, s.LastSignal)
	assert.Equal(t, "accepted", *s.LastSignal)

	o, err := orders.GetByID(ctx, "ORD-1")
	require.NoError(t, err)
	assert.Equal(t, model.OrderPaymentPaid, o.PaymentStatus)
	assert.Equal(t, model.OrderStatusConfirmed, o.Status)
	require.NotNil(t, o.PaidAt)

	// the same transition again loses: the session is no longer pending
	_, err = store.ApplyTransition(ctx, completion("ORD1-AH-0001", "ORD-1", time.Now()))
	assert.ErrorIs(t, err, domainErrors.ErrConcurrentTransition)

	_, err = orders.GetByID(ctx, "ORD-404")
	assert.ErrorIs(t, err, domainErrors.ErrOrderNotFound)
}

func TestTransitionStore_OrderOutcomes(t *testing.T) {
	db := newTestDB(t)
	sessions := repo.NewPaymentSessionRepository(db, zap.NewNop())
	orders := repo.NewOrderRepository(db)
	store := repo.NewTransitionStore(db, zap.NewNop())
	ctx := context.Background()

	seedOrder(t, db, "ORD-PAID", model.OrderPaymentPaid)
	seedSession(t, sessions, "PAID-AH-0002", "ORD-PAID", time.Now())
	seedSession(t, sessions, "GONE-AH-0001", "ORD-GONE", time.Now())

	before, err := orders.GetByID(ctx, "ORD-PAID")
	require.NoError(t, err)

	result, err := store.ApplyTransition(ctx, completion("PAID-AH-0002", "ORD-PAID", time.Now()))
	require.NoError(t, err)
	assert.Equal(t, repository.OrderAlreadyPaid, result.Order)

	after, err := orders.GetByID(ctx, "ORD-PAID")
	require.NoError(t, err)
	assert.True(t, before.UpdatedAt.Equal(after.UpdatedAt))

	s, err := sessions.GetByReference(ctx, "PAID-AH-0002")
	require.NoError(t, err)
	assert.Equal(t, model.SessionStatusCompleted, s.Status)

	result, err = store.ApplyTransition(ctx, completion("GONE-AH-0001", "ORD-GONE", time.Now()))
	require.NoError(t, err)
	assert.Equal(t, repository.OrderMissing, result.Order)
}

func TestTransitionStore_ConcurrentWriters(t *testing.T) {
	db := newTestDB(t)
	sessions := repo.NewPaymentSessionRepository(db, zap.NewNop())
	store := repo.NewTransitionStore(db, zap.NewNop())

	seedOrder(t, db, "ORD-1", model.OrderPaymentPending)
	seedSession(t, sessions, "ORD1-AH-0001", "ORD-1", time.Now())

	const writers = 10
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.ApplyTransition(context.Background(), completion("ORD1-AH-0001", "ORD-1", time.Now()))
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				successes++
			} else if assert.ErrorIs(t, err, domainErrors.ErrConcurrentTransition) {
				conflicts++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, writers-1, conflicts)
}

func TestCallbackRecordRepository(t *testing.T) {
	db := newTestDB(t)
	records := repo.NewCallbackRecordRepository(db, zap.NewNop())
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	var ids []int64
	for i := 0; i < 3; i++ {
		rec := &model.CallbackRecord{
			RawPayload:  fmt.Sprintf(`{"reference":"ORD1-AH-0001","n":%d}`, i),
			ContentType: "application/json",
			SourceIP:    "10.0.0.1",
			ReceivedAt:  base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, records.Create(ctx, rec))
		assert.NotZero(t, rec.ID)
		assert.Equal(t, model.CallbackOutcomeReceived, rec.Outcome)
		ids = append(ids, rec.ID)
	}

	reference := "ORD1-AH-0001"
	for _, id := range ids {
		require.NoError(t, records.Finalize(ctx, id, repository.CallbackFinalization{
			Reference:           &reference,
			Amount:              decimal.NewNullDecimal(decimal.NewFromInt(912000)),
			AppliedSuccessfully: true,
			Outcome:             model.CallbackOutcomeApplied,
			FinalizedAt:         time.Now(),
		}))
	}

	err := records.Finalize(ctx, ids[0], repository.CallbackFinalization{Outcome: model.CallbackOutcomeError, FinalizedAt: time.Now()})
	assert.ErrorIs(t, err, domainErrors.ErrCallbackAlreadyFinalized)

	page, total, err := records.ListByReference(ctx, reference, 0, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, page, 2)
	assert.Equal(t, ids[2], page[0].ID)
	assert.Equal(t, ids[1], page[1].ID)
	assert.Equal(t, model.CallbackOutcomeApplied, page[0].Outcome)
	assert.True(t, page[0].ExtractedAmount.Valid)

	rest, _, err := records.ListByReference(ctx, reference, 2, 2)
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Equal(t, ids[0], rest[0].ID)
}

func TestCallbackRecordRepository_FitsOversizedFields(t *testing.T) {
	db := newTestDB(t)
	records := repo.NewCallbackRecordRepository(db, zap.NewNop())
	ctx := context.Background()

	rec := &model.CallbackRecord{
		RawPayload:  "{}",
		ContentType: "application/json; " + strings.Repeat("x", 300),
		UserAgent:   strings.Repeat("ü", 200),
		ReceivedAt:  time.Now(),
	}
	require.NoError(t, records.Create(ctx, rec))

	reference := strings.Repeat("R", 100)
	status := strings.Repeat("S", 100)
	signal := "accepted"
	require.NoError(t, records.Finalize(ctx, rec.ID, repository.CallbackFinalization{
		Reference:       &reference,
		ExtractedStatus: &status,
		Signal:          &signal,
		Amount:          decimal.NewNullDecimal(decimal.RequireFromString("99999999999999999999")),
		Outcome:         model.CallbackOutcomeUnmatched,
		FinalizedAt:     time.Now(),
	}))

	var stored model.CallbackRecord
	require.NoError(t, db.First(&stored, rec.ID).Error)
	assert.Len(t, stored.ContentType, 128)
	assert.LessOrEqual(t, len(stored.UserAgent), 255)
	assert.True(t, utf8.ValidString(stored.UserAgent))
	require.NotNil(t, stored.PaymentReference)
	assert.Len(t, *stored.PaymentReference, 64)
	require.NotNil(t, stored.ExtractedStatus)
	assert.Len(t, *stored.ExtractedStatus, 64)
	assert.Equal(t, "accepted", *stored.Signal)
	assert.False(t, stored.ExtractedAmount.Valid)
	require.NotNil(t, stored.Detail)
	assert.Contains(t, *stored.Detail, "amount out of range")
}
