package payments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/sheelmorjaria/rdjcustoms-payments/pkg/db/models"
	"github.com/sheelmorjaria/rdjcustoms-payments/pkg/enums"
	pkgerrors "github.com/sheelmorjaria/rdjcustoms-payments/pkg/errors"
	"github.com/sheelmorjaria/rdjcustoms-payments/pkg/logger"
	"github.com/sheelmorjaria/rdjcustoms-payments/pkg/metrics"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// errConcurrentAdvance signals that a guarded update matched zero rows
// because another writer moved the row first.
var errConcurrentAdvance = errors.New("concurrent writer advanced payment state")

// Engine applies normalized provider events to payment state. All state
// transitions funnel through here; the guarded updates in the repository
// are the only concurrency control.
type Engine struct {
	repo     Repository
	tx       txRunner
	registry *Registry
	notifier Notifier
	logg     *logger.Logger
	metrics  *metrics.PaymentMetrics
	now      func() time.Time
}

// EngineParams carries the engine dependencies.
type EngineParams struct {
	Repo     Repository
	Tx       txRunner
	Registry *Registry
	Notifier Notifier
	Logger   *logger.Logger
	Metrics  *metrics.PaymentMetrics
	Now      func() time.Time
}

// NewEngine validates dependencies and builds the engine.
func NewEngine(p EngineParams) (*Engine, error) {
	if p.Repo == nil {
		return nil, fmt.Errorf("payments repository required")
	}
	if p.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if p.Registry == nil {
		return nil, fmt.Errorf("method registry required")
	}
	now := p.Now
	if now == nil {
		now = time.Now
	}
	return &Engine{
		repo:     p.Repo,
		tx:       p.Tx,
		registry: p.Registry,
		notifier: p.Notifier,
		logg:     p.Logger,
		metrics:  p.Metrics,
		now:      now,
	}, nil
}

// ApplyEvent resolves the event's payment, merges progress monotonically and
// transitions the order status atomically. Duplicate or stale deliveries
// succeed with Applied=false; a lost race against a concurrent writer is
// retried once and then reconciled against the stored state.
func (e *Engine) ApplyEvent(ctx context.Context, event Event) (Result, error) {
	if err := event.Validate(); err != nil {
		return Result{}, err
	}

	var result Result
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		lastErr = e.tx.WithTx(ctx, func(tx *gorm.DB) error {
			r, err := e.applyOnce(ctx, e.repo.WithTx(tx), event)
			if err != nil {
				return err
			}
			result = r
			return nil
		})
		if lastErr == nil {
			break
		}
		if !errors.Is(lastErr, errConcurrentAdvance) {
			return Result{}, lastErr
		}
	}
	if lastErr != nil {
		return e.reconcileRace(ctx, event)
	}

	if result.Applied {
		e.metrics.IncTransition(event.Method.String(), result.Status.String())
	}
	if result.Applied && result.Status == enums.PaymentStatusCompleted {
		e.notifyCompleted(ctx, event.Method, result)
	}
	return result, nil
}

func (e *Engine) applyOnce(ctx context.Context, repo Repository, event Event) (Result, error) {
	switch event.Method {
	case enums.PaymentMethodBitcoin:
		order, detail, err := repo.FindOrderByBitcoinAddress(ctx, event.LookupKey)
		if err != nil {
			return Result{}, mapResolveErr(err, "bitcoin payment")
		}
		return e.applyCrypto(ctx, repo, event, order, cryptoDetail{
			expiresAt:      detail.ExpiresAt,
			confirmations:  detail.Confirmations,
			amountReceived: detail.AmountReceived,
			amountRequired: detail.AmountBTC,
			merge: func(conf int, received decimal.Decimal, at time.Time) (bool, error) {
				return repo.MergeBitcoinProgress(ctx, detail.ID, conf, received, at)
			},
		})

	case enums.PaymentMethodMonero:
		order, detail, err := repo.FindOrderByMoneroInvoice(ctx, event.LookupKey)
		if err != nil {
			return Result{}, mapResolveErr(err, "monero payment")
		}
		return e.applyCrypto(ctx, repo, event, order, cryptoDetail{
			expiresAt:      detail.ExpiresAt,
			confirmations:  detail.Confirmations,
			amountReceived: detail.AmountReceived,
			amountRequired: detail.AmountXMR,
			merge: func(conf int, received decimal.Decimal, at time.Time) (bool, error) {
				return repo.MergeMoneroProgress(ctx, detail.ID, conf, received, at)
			},
		})

	case enums.PaymentMethodPayPal:
		order, detail, err := repo.FindOrderByPayPalOrderID(ctx, event.LookupKey)
		if err != nil {
			return Result{}, mapResolveErr(err, "paypal payment")
		}
		return e.applyPayPal(ctx, repo, event, order, detail)

	default:
		return Result{}, pkgerrors.New(pkgerrors.CodeValidation, "unknown payment method")
	}
}

// cryptoDetail abstracts the two address/invoice-monitored rails so the
// merge and threshold logic is written once.
type cryptoDetail struct {
	expiresAt      time.Time
	confirmations  int
	amountReceived decimal.Decimal
	amountRequired decimal.Decimal
	merge          func(conf int, received decimal.Decimal, at time.Time) (bool, error)
}

func (e *Engine) applyCrypto(ctx context.Context, repo Repository, event Event, order *models.Order, detail cryptoDetail) (Result, error) {
	if order.PaymentMethodType != event.Method {
		return Result{}, pkgerrors.New(pkgerrors.CodeConflict, "event targets a different payment method than the order's")
	}

	result := Result{OrderID: order.ID, OrderNumber: order.OrderNumber, Status: order.PaymentStatus}
	if order.PaymentStatus.IsTerminal() {
		return result, nil
	}

	newConf := detail.confirmations
	if event.Confirmations != nil && *event.Confirmations > newConf {
		newConf = *event.Confirmations
	}
	newReceived := detail.amountReceived
	if event.AmountReceived != nil && event.AmountReceived.GreaterThan(newReceived) {
		newReceived = *event.AmountReceived
	}
	counterAdvance := newConf > detail.confirmations || newReceived.GreaterThan(detail.amountReceived)

	methodCfg, _ := e.registry.Get(event.Method)
	now := e.now()

	candidate := order.PaymentStatus
	switch {
	case event.Kind == EventFailure:
		candidate = enums.PaymentStatusFailed
	case now.After(detail.expiresAt):
		candidate = enums.PaymentStatusExpired
	case newConf >= methodCfg.RequiredConfirmations && newReceived.GreaterThanOrEqual(detail.amountRequired):
		candidate = enums.PaymentStatusCompleted
	case newConf > 0 || newReceived.IsPositive():
		candidate = enums.PaymentStatusAwaitingConfirmation
	}

	statusChange := candidate != order.PaymentStatus
	if !statusChange && !counterAdvance {
		return result, nil
	}

	if counterAdvance {
		ok, err := detail.merge(newConf, newReceived, now)
		if err != nil {
			return Result{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "merge payment progress")
		}
		if !ok {
			return Result{}, errConcurrentAdvance
		}
	}
	if statusChange {
		ok, err := repo.UpdateOrderStatusIf(ctx, order.ID, candidate, enums.NonTerminalPaymentStatuses())
		if err != nil {
			return Result{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "transition payment status")
		}
		if !ok {
			return Result{}, errConcurrentAdvance
		}
	}

	result.Status = candidate
	result.Applied = true
	return result, nil
}

func (e *Engine) applyPayPal(ctx context.Context, repo Repository, event Event, order *models.Order, detail *models.PayPalPayment) (Result, error) {
	if order.PaymentMethodType != enums.PaymentMethodPayPal {
		return Result{}, pkgerrors.New(pkgerrors.CodeConflict, "event targets a different payment method than the order's")
	}

	result := Result{OrderID: order.ID, OrderNumber: order.OrderNumber, Status: order.PaymentStatus}
	if order.PaymentStatus.IsTerminal() {
		return result, nil
	}

	now := e.now()
	candidate := order.PaymentStatus
	switch {
	case event.Kind == EventFailure:
		candidate = enums.PaymentStatusFailed
	case now.After(detail.ExpiresAt):
		candidate = enums.PaymentStatusExpired
	case event.Kind == EventCapture:
		candidate = enums.PaymentStatusCompleted
	default:
		candidate = enums.PaymentStatusAwaitingConfirmation
	}

	if candidate == order.PaymentStatus {
		return result, nil
	}

	if candidate == enums.PaymentStatusCompleted {
		updates := map[string]any{"captured_at": now}
		if event.PayerID != "" {
			updates["payer_id"] = event.PayerID
		}
		if event.CaptureID != "" {
			updates["capture_id"] = event.CaptureID
		}
		if event.TransactionID != "" {
			updates["transaction_id"] = event.TransactionID
		}
		if err := repo.UpdatePayPalPayment(ctx, detail.ID, updates); err != nil {
			return Result{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record capture details")
		}
	}

	ok, err := repo.UpdateOrderStatusIf(ctx, order.ID, candidate, enums.NonTerminalPaymentStatuses())
	if err != nil {
		return Result{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "transition payment status")
	}
	if !ok {
		return Result{}, errConcurrentAdvance
	}

	result.Status = candidate
	result.Applied = true
	return result, nil
}

// reconcileRace runs after two lost races. If the stored state already
// subsumes the event's effect the delivery is a duplicate; otherwise the
// store is churning and the provider should redeliver.
func (e *Engine) reconcileRace(ctx context.Context, event Event) (Result, error) {
	var (
		order    *models.Order
		subsumed bool
	)
	switch event.Method {
	case enums.PaymentMethodBitcoin:
		o, d, err := e.repo.FindOrderByBitcoinAddress(ctx, event.LookupKey)
		if err != nil {
			return Result{}, mapResolveErr(err, "bitcoin payment")
		}
		order = o
		subsumed = cryptoEventSubsumed(event, d.Confirmations, d.AmountReceived, o.PaymentStatus)
	case enums.PaymentMethodMonero:
		o, d, err := e.repo.FindOrderByMoneroInvoice(ctx, event.LookupKey)
		if err != nil {
			return Result{}, mapResolveErr(err, "monero payment")
		}
		order = o
		subsumed = cryptoEventSubsumed(event, d.Confirmations, d.AmountReceived, o.PaymentStatus)
	case enums.PaymentMethodPayPal:
		o, _, err := e.repo.FindOrderByPayPalOrderID(ctx, event.LookupKey)
		if err != nil {
			return Result{}, mapResolveErr(err, "paypal payment")
		}
		order = o
		subsumed = o.PaymentStatus.IsTerminal() ||
			(event.Kind == EventProgress && o.PaymentStatus != enums.PaymentStatusPending)
	default:
		return Result{}, pkgerrors.New(pkgerrors.CodeValidation, "unknown payment method")
	}

	if !subsumed {
		return Result{}, pkgerrors.New(pkgerrors.CodeDependency, "payment state contention, retry delivery")
	}
	return Result{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		Status:      order.PaymentStatus,
		Applied:     false,
	}, nil
}

func cryptoEventSubsumed(event Event, confirmations int, received decimal.Decimal, status enums.PaymentStatus) bool {
	if status.IsTerminal() {
		return true
	}
	if event.Kind == EventFailure {
		return false
	}
	if event.Confirmations != nil && *event.Confirmations > confirmations {
		return false
	}
	if event.AmountReceived != nil && event.AmountReceived.GreaterThan(received) {
		return false
	}
	return true
}

func (e *Engine) notifyCompleted(ctx context.Context, method enums.PaymentMethodType, result Result) {
	if e.notifier == nil {
		return
	}
	event := CompletedEvent{
		OrderID:     result.OrderID,
		OrderNumber: result.OrderNumber,
		Method:      method,
		Status:      result.Status,
	}
	// best-effort dispatch after commit; the payment record is authoritative
	go func() {
		notifyCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		if err := e.notifier.PaymentCompleted(notifyCtx, event); err != nil && e.logg != nil {
			e.logg.Error(notifyCtx, fmt.Sprintf("publish payment completed for order %s", result.OrderID), err)
		}
	}()
}

func mapResolveErr(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, what+" not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load "+what)
}
