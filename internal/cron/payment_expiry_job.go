package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/sheelmorjaria/rdjcustoms-payments/pkg/enums"
	"github.com/sheelmorjaria/rdjcustoms-payments/pkg/logger"
	"github.com/sheelmorjaria/rdjcustoms-payments/pkg/metrics"
)

const expiryBatchSize = 200

// expiredPaymentStore is the slice of the payments repository the sweep uses.
type expiredPaymentStore interface {
	FindExpiredOrderIDs(ctx context.Context, method enums.PaymentMethodType, now time.Time, limit int) ([]uuid.UUID, error)
	UpdateOrderStatusIf(ctx context.Context, orderID uuid.UUID, status enums.PaymentStatus, allowed []enums.PaymentStatus) (bool, error)
}

// PaymentExpiryJobParams configure the expiry sweep.
type PaymentExpiryJobParams struct {
	Logger  *logger.Logger
	Store   expiredPaymentStore
	Metrics *metrics.PaymentMetrics
	Now     func() time.Time
}

// NewPaymentExpiryJob builds the job that settles lapsed payment windows.
// Reads already treat a lapsed window as expired; the sweep writes that
// state down so open payments do not accumulate.
func NewPaymentExpiryJob(params PaymentExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Store == nil {
		return nil, fmt.Errorf("payment store required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &paymentExpiryJob{
		logg:    params.Logger,
		store:   params.Store,
		metrics: params.Metrics,
		now:     now,
	}, nil
}

type paymentExpiryJob struct {
	logg    *logger.Logger
	store   expiredPaymentStore
	metrics *metrics.PaymentMetrics
	now     func() time.Time
}

func (j *paymentExpiryJob) Name() string { return "payment-expiry" }

func (j *paymentExpiryJob) Run(ctx context.Context) error {
	var errs []error
	for _, method := range []enums.PaymentMethodType{
		enums.PaymentMethodBitcoin,
		enums.PaymentMethodMonero,
		enums.PaymentMethodPayPal,
	} {
		if err := j.sweepMethod(ctx, method); err != nil {
			errs = append(errs, err)
		}
	}
	return multierr.Combine(errs...)
}

func (j *paymentExpiryJob) sweepMethod(ctx context.Context, method enums.PaymentMethodType) error {
	now := j.now().UTC()
	ids, err := j.store.FindExpiredOrderIDs(ctx, method, now, expiryBatchSize)
	if err != nil {
		return fmt.Errorf("query lapsed %s payments: %w", method, err)
	}

	expired := 0
	for _, id := range ids {
		ok, err := j.store.UpdateOrderStatusIf(ctx, id, enums.PaymentStatusExpired, enums.NonTerminalPaymentStatuses())
		if err != nil {
			return fmt.Errorf("expire order %s: %w", id, err)
		}
		// a losing race means a webhook settled the order first
		if ok {
			expired++
			if j.metrics != nil {
				j.metrics.IncTransition(method.String(), enums.PaymentStatusExpired.String())
			}
		}
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{"method": method.String(), "count": expired})
	j.logg.Info(logCtx, "payment expiry sweep complete")
	return nil
}
