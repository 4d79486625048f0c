// Package statuspoller는 주문 결제 상태 엔드포인트를 주기적으로 조회하는 클라이언트입니다.
// 상태가 paid 또는 failed가 되면 콜백을 한 번 호출하고 멈춥니다. 어떤 쓰기도 하지 않습니다.
package statuspoller

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const (
	statusPath = "/api/v1/orders/{orderId}/payment-status"

	DefaultInterval = 3 * time.Second
	DefaultTimeout  = 10 * time.Minute
)

// Status 상태 엔드포인트 응답
type Status struct {
	OrderID       string `json:"orderId"`
	PaymentStatus string `json:"paymentStatus"`
	Reference     string `json:"reference,omitempty"`
	SessionStatus string `json:"sessionStatus,omitempty"`
}

// Terminal paid 또는 failed이면 true
func (s Status) Terminal() bool {
	return s.PaymentStatus == "paid" || s.PaymentStatus == "failed"
}

// Outcome 감시 종료 사유
type Outcome string

const (
	OutcomeRunning   Outcome = "running"
	OutcomeTerminal  Outcome = "terminal"
	OutcomeTimedOut  Outcome = "timed_out"
	OutcomeCancelled Outcome = "cancelled"
)

// Options 감시 설정
type Options struct {
	// Interval 조회 간격 (기본 3초)
	Interval time.Duration
	// Timeout 이 시간 안에 종결 상태가 되지 않으면 timed_out으로 끝납니다. 음수이면 무제한
	Timeout time.Duration
	// OnTimeout 타임아웃 시 한 번 호출됩니다 (선택)
	OnTimeout func()
}

// Client 상태 엔드포인트 클라이언트
type Client struct {
	http   *resty.Client
	logger *zap.Logger
}

// NewClient baseURL의 결제 엔진을 조회하는 클라이언트를 생성합니다
func NewClient(baseURL string, requestTimeout time.Duration, logger *zap.Logger) *Client {
	if requestTimeout <= 0 {
		requestTimeout = 10 * time.Second
	}
	httpClient := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(requestTimeout).
		SetHeader("Accept", "application/json").
		SetLogger(logger.Sugar())

	return &Client{
		http:   httpClient,
		logger: logger,
	}
}

// Fetch 주문 상태를 한 번 조회합니다
func (c *Client) Fetch(ctx context.Context, orderID string) (*Status, error) {
	var status Status
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("orderId", orderID).
		SetResult(&status).
		Get(statusPath)
	if err != nil {
		return nil, fmt.Errorf("상태 조회 실패: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("상태 조회 실패: HTTP %d", resp.StatusCode())
	}
	return &status, nil
}

// Watch 하나의 주문에 대한 감시
type Watch struct {
	cancel context.CancelFunc
	done   chan struct{}

	mu      sync.Mutex
	outcome Outcome
}

// Cancel 감시를 중단합니다. 여러 번 호출해도 안전합니다.
func (w *Watch) Cancel() {
	w.cancel()
}

// Done 감시가 끝나면 닫힙니다
func (w *Watch) Done() <-chan struct{} {
	return w.done
}

// Outcome 종료 사유. 감시 중이면 running입니다.
func (w *Watch) Outcome() Outcome {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.outcome
}

func (w *Watch) finish(outcome Outcome) {
	w.mu.Lock()
	w.outcome = outcome
	w.mu.Unlock()
	close(w.done)
}

// Watch orderID를 종결 상태가 될 때까지 조회합니다. onTerminal은 정확히 한 번,
// 감시 고루틴에서 호출됩니다. 일시적인 조회 실패는 기록만 하고 계속 조회합니다.
func (c *Client) Watch(ctx context.Context, orderID string, onTerminal func(Status), opts Options) *Watch {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.Timeout == 0 {
		opts.Timeout = DefaultTimeout
	}

	ctx, cancel := context.WithCancel(ctx)
	w := &Watch{
		cancel:  cancel,
		done:    make(chan struct{}),
		outcome: OutcomeRunning,
	}

	go c.run(ctx, w, orderID, onTerminal, opts)
	return w
}

func (c *Client) run(ctx context.Context, w *Watch, orderID string, onTerminal func(Status), opts Options) {
	defer w.cancel()

	ticker := time.NewTicker(opts.Interval)
	defer ticker.Stop()

	var deadline <-chan time.Time
	if opts.Timeout > 0 {
		timer := time.NewTimer(opts.Timeout)
		defer timer.Stop()
		deadline = timer.C
	}

	logger := c.logger.With(zap.String("order_id", orderID))

	for {
		status, err := c.Fetch(ctx, orderID)
		switch {
		case ctx.Err() != nil:
			// 취소 이후 도착한 응답도 버립니다
			w.finish(OutcomeCancelled)
			return
		case err != nil:
			logger.Warn("상태 조회 실패, 계속 조회합니다", zap.Error(err))
		case status.Terminal():
			logger.Info("종결 상태 확인",
				zap.String("payment_status", status.PaymentStatus),
				zap.String("reference", status.Reference))
			if onTerminal != nil {
				onTerminal(*status)
			}
			w.finish(OutcomeTerminal)
			return
		}

		select {
		case <-ctx.Done():
			w.finish(OutcomeCancelled)
			return
		case <-deadline:
			logger.Warn("상태 감시 타임아웃", zap.Duration("timeout", opts.Timeout))
			if opts.OnTimeout != nil {
				opts.OnTimeout()
			}
			w.finish(OutcomeTimedOut)
			return
		case <-ticker.C:
		}
	}
}
