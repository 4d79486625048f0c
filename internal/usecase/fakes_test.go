package usecase_test

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	domainErrors "github.com/francisco-dev-ao/loja356-25-sub001/internal/domain/errors"
	"github.com/francisco-dev-ao/loja356-25-sub001/internal/domain/model"
	"github.com/francisco-dev-ao/loja356-25-sub001/internal/domain/provider"
	"github.com/francisco-dev-ao/loja356-25-sub001/internal/domain/repository"
	"github.com/francisco-dev-ao/loja356-25-sub001/internal/usecase"
)

// memStore is an in-memory stand-in for the gorm repositories. It hands out
// copies so that concurrent callers race the same way they would on a database.
type memStore struct {
	mu       sync.Mutex
	sessions map[string]*model.PaymentSession
	orders   map[string]*model.Order
	records  []*model.CallbackRecord

	nextSessionID int64
	// duplicateCreates makes the next n Create calls collide
	duplicateCreates int
	createRecordErr  error
	// afterCreate runs once a callback record is stored
	afterCreate func()

	transitions int
	orderWrites int
}

func newMemStore() *memStore {
	return &memStore{
		sessions: make(map[string]*model.PaymentSession),
		orders:   make(map[string]*model.Order),
	}
}

func (m *memStore) addOrder(id string, status model.OrderPaymentStatus) *model.Order {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().Add(-time.Hour)
	o := &model.Order{ID: id, Status: model.OrderStatusPending, PaymentStatus: status, CreatedAt: now, UpdatedAt: now}
	m.orders[id] = o
	return o
}

func (m *memStore) addSession(reference, orderID string, amount decimal.Decimal, status model.SessionStatus, createdAt time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextSessionID++
	m.sessions[reference] = &model.PaymentSession{
		ID:        m.nextSessionID,
		Reference: reference,
		OrderID:   orderID,
		Amount:    amount,
		Status:    status,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
}

func (m *memStore) session(reference string) *model.PaymentSession {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := *m.sessions[reference]
	return &s
}

func (m *memStore) order(id string) *model.Order {
	m.mu.Lock()
	defer m.mu.Unlock()
	o := *m.orders[id]
	return &o
}

func (m *memStore) recordList() []model.CallbackRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.CallbackRecord, len(m.records))
	for i, r := range m.records {
		out[i] = *r
	}
	return out
}

func (m *memStore) counts() (transitions, orderWrites int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.transitions, m.orderWrites
}

// PaymentSessionRepository

func (m *memStore) Create(ctx context.Context, session *model.PaymentSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.duplicateCreates > 0 {
		m.duplicateCreates--
		return domainErrors.ErrDuplicateReference
	}
	if _, exists := m.sessions[session.Reference]; exists {
		return domainErrors.ErrDuplicateReference
	}
	m.nextSessionID++
	session.ID = m.nextSessionID
	stored := *session
	m.sessions[session.Reference] = &stored
	return nil
}

func (m *memStore) GetByReference(ctx context.Context, reference string) (*model.PaymentSession, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[reference]
	if !ok {
		return nil, domainErrors.ErrSessionNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *memStore) GetLatestByOrderID(ctx context.Context, orderID string) (*model.PaymentSession, error) {
	list, _ := m.ListByOrderID(ctx, orderID)
	if len(list) == 0 {
		return nil, domainErrors.ErrSessionNotFound
	}
	return list[0], nil
}

func (m *memStore) ListByOrderID(ctx context.Context, orderID string) ([]*model.PaymentSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.PaymentSession
	for _, s := range m.sessions {
		if s.OrderID == orderID {
			cp := *s
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (m *memStore) RecordGatewayResult(ctx context.Context, reference string, result repository.GatewayResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[reference]
	if !ok {
		return domainErrors.ErrSessionNotFound
	}
	if s.Status != model.SessionStatusPending {
		return domainErrors.ErrConcurrentTransition
	}
	s.GatewayToken = result.Token
	s.RawGatewayResponse = result.Raw
	s.Attempts = result.Attempts
	s.FallbackUsed = result.FallbackUsed
	return nil
}

func (m *memStore) FlagForReview(ctx context.Context, reference, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[reference]
	if !ok {
		return domainErrors.ErrSessionNotFound
	}
	s.NeedsReview = true
	return nil
}

func (m *memStore) ListExpirable(ctx context.Context, status model.SessionStatus, cutoff time.Time, limit int) ([]*model.PaymentSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.PaymentSession
	for _, s := range m.sessions {
		if s.Status == status && !s.CreatedAt.After(cutoff) {
			cp := *s
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// TransitionStore

func (m *memStore) ApplyTransition(ctx context.Context, t repository.SessionTransition) (repository.TransitionResult, error) {
	if err := ctx.Err(); err != nil {
		return repository.TransitionResult{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[t.Reference]
	if !ok || s.Status != t.From {
		return repository.TransitionResult{}, domainErrors.ErrConcurrentTransition
	}

	result := repository.TransitionResult{Order: repository.OrderUntouched}
	if t.Order != nil {
		o, ok := m.orders[t.Order.OrderID]
		switch {
		case !ok:
			result.Order = repository.OrderMissing
		case t.Order.UnlessPaid && o.PaymentStatus == model.OrderPaymentPaid:
			result.Order = repository.OrderAlreadyPaid
		default:
			o.Status = t.Order.Status
			o.PaymentStatus = t.Order.PaymentStatus
			if t.Order.PaidAt != nil {
				o.PaidAt = t.Order.PaidAt
			}
			o.UpdatedAt = t.At
			m.orderWrites++
			result.Order = repository.OrderUpdated
		}
	}

	s.Status = t.To
	s.UpdatedAt = t.At
	signal, source := t.Signal, t.Source
	s.LastSignal = &signal
	s.LastSignalSource = &source
	if t.To.IsTerminal() {
		at := t.At
		s.CompletedAt = &at
	}
	if t.FailureReason != nil {
		s.FailureReason = t.FailureReason
	}
	if t.NeedsReview {
		s.NeedsReview = true
	}
	m.transitions++
	return result, nil
}

// orderRepo exposes memStore as an OrderRepository
type orderRepo struct{ m *memStore }

func (r orderRepo) GetByID(ctx context.Context, orderID string) (*model.Order, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	o, ok := r.m.orders[orderID]
	if !ok {
		return nil, domainErrors.ErrOrderNotFound
	}
	cp := *o
	return &cp, nil
}

// recordRepo exposes memStore as a CallbackRecordRepository
type recordRepo struct{ m *memStore }

func (r recordRepo) Create(ctx context.Context, record *model.CallbackRecord) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.createRecordErr != nil {
		return r.m.createRecordErr
	}
	record.ID = int64(len(r.m.records) + 1)
	stored := *record
	r.m.records = append(r.m.records, &stored)
	if r.m.afterCreate != nil {
		r.m.afterCreate()
	}
	return nil
}

func (r recordRepo) Finalize(ctx context.Context, id int64, f repository.CallbackFinalization) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	rec := r.m.records[id-1]
	if rec.FinalizedAt != nil {
		return domainErrors.ErrCallbackAlreadyFinalized
	}
	rec.PaymentReference = f.Reference
	rec.TransactionID = f.TransactionID
	rec.ExtractedStatus = f.ExtractedStatus
	rec.Signal = f.Signal
	rec.ExtractedAmount = f.Amount
	rec.AppliedSuccessfully = f.AppliedSuccessfully
	rec.Outcome = f.Outcome
	rec.NeedsReview = f.NeedsReview
	rec.Detail = f.Detail
	at := f.FinalizedAt
	rec.FinalizedAt = &at
	return nil
}

func (r recordRepo) ListByReference(ctx context.Context, reference string, offset, limit int) ([]*model.CallbackRecord, int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var matched []*model.CallbackRecord
	for i := len(r.m.records) - 1; i >= 0; i-- {
		rec := r.m.records[i]
		if rec.PaymentReference != nil && *rec.PaymentReference == reference {
			cp := *rec
			matched = append(matched, &cp)
		}
	}
	total := int64(len(matched))
	if offset >= len(matched) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], total, nil
}

// recordingNotifier counts order-paid notifications
type recordingNotifier struct {
	mu     sync.Mutex
	events []usecase.OrderPaidEvent
	err    error
}

func (n *recordingNotifier) NotifyOrderPaid(ctx context.Context, event usecase.OrderPaidEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
	return n.err
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.events)
}

// MockGatewayClient is a mock implementation of provider.GatewayClient
type MockGatewayClient struct {
	mock.Mock
}

func (m *MockGatewayClient) CreateSession(ctx context.Context, req *provider.SessionRequest) (*provider.GatewayToken, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provider.GatewayToken), args.Error(1)
}

func (m *MockGatewayClient) GetProviderName() string {
	return "mock"
}
