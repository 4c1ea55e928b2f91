package bitcoin

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/sheelmorjaria/rdjcustoms-payments/internal/payments"
	"github.com/sheelmorjaria/rdjcustoms-payments/pkg/config"
	"github.com/sheelmorjaria/rdjcustoms-payments/pkg/db/models"
	"github.com/sheelmorjaria/rdjcustoms-payments/pkg/enums"
	pkgerrors "github.com/sheelmorjaria/rdjcustoms-payments/pkg/errors"
	"github.com/sheelmorjaria/rdjcustoms-payments/pkg/rates"
)

type stubRepo struct {
	payments.Repository

	order     *models.Order
	existing  *models.BitcoinPayment
	created   *models.BitcoinPayment
	createErr error
}

func (s *stubRepo) WithTx(tx *gorm.DB) payments.Repository { return s }

func (s *stubRepo) FindOrderByID(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	if s.order == nil || s.order.ID != orderID {
		return nil, gorm.ErrRecordNotFound
	}
	return s.order, nil
}

func (s *stubRepo) FindBitcoinPaymentByOrder(ctx context.Context, orderID uuid.UUID) (*models.BitcoinPayment, error) {
	if s.existing == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return s.existing, nil
}

func (s *stubRepo) CreateBitcoinPayment(ctx context.Context, payment *models.BitcoinPayment) error {
	if s.createErr != nil {
		return s.createErr
	}
	s.created = payment
	return nil
}

type stubTx struct{}

func (stubTx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error { return fn(nil) }

type stubAllocator struct {
	address string
}

func (s stubAllocator) NewAddress(ctx context.Context) (string, error) { return s.address, nil }

type stubRates struct {
	rate decimal.Decimal
}

func (s stubRates) GetRate(ctx context.Context, asset rates.Asset) (decimal.Decimal, error) {
	return s.rate, nil
}

func serviceRegistry() *payments.Registry {
	return payments.NewRegistry(config.PaymentsConfig{
		BitcoinEnabled:       true,
		BitcoinConfirmations: 2,
		BitcoinExpiry:        24 * time.Hour,
	})
}

func pendingOrder() *models.Order {
	return &models.Order{
		ID:                uuid.New(),
		OrderNumber:       "ORD-3003",
		TotalAmount:       decimal.RequireFromString("200.00"),
		Currency:          "GBP",
		PaymentMethodType: enums.PaymentMethodBitcoin,
		PaymentStatus:     enums.PaymentStatusPending,
	}
}

func newService(t *testing.T, repo *stubRepo, now time.Time) *Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Repo:     repo,
		Tx:       stubTx{},
		Provider: stubAllocator{address: "bc1q-fresh-address"},
		Rates:    stubRates{rate: decimal.RequireFromString("40000")},
		Registry: serviceRegistry(),
		Now:      func() time.Time { return now },
	})
	if err != nil {
		t.Fatalf("service setup: %v", err)
	}
	return svc
}

func TestInitiate_ComputesAmountAndExpiry(t *testing.T) {
	now := time.Now()
	repo := &stubRepo{order: pendingOrder()}
	svc := newService(t, repo, now)

	initiation, err := svc.Initiate(context.Background(), repo.order.ID)
	if err != nil {
		t.Fatalf("initiate: %v", err)
	}
	if initiation.Address != "bc1q-fresh-address" {
		t.Fatalf("unexpected address %s", initiation.Address)
	}
	if !initiation.CryptoAmount.Equal(decimal.RequireFromString("0.005")) {
		t.Fatalf("expected 0.005 BTC, got %s", initiation.CryptoAmount)
	}
	if !initiation.ExpiresAt.Equal(now.Add(24 * time.Hour)) {
		t.Fatalf("unexpected expiry %s", initiation.ExpiresAt)
	}
	if repo.created == nil || !repo.created.AmountBTC.Equal(initiation.CryptoAmount) {
		t.Fatal("detail row not persisted with computed amount")
	}
}

func TestInitiate_EligibilityChecks(t *testing.T) {
	now := time.Now()

	t.Run("unknown order", func(t *testing.T) {
		svc := newService(t, &stubRepo{}, now)
		_, err := svc.Initiate(context.Background(), uuid.New())
		if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
			t.Fatalf("expected not found, got %v", err)
		}
	})

	t.Run("method mismatch", func(t *testing.T) {
		order := pendingOrder()
		order.PaymentMethodType = enums.PaymentMethodMonero
		svc := newService(t, &stubRepo{order: order}, now)
		_, err := svc.Initiate(context.Background(), order.ID)
		if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeConflict {
			t.Fatalf("expected conflict, got %v", err)
		}
	})

	t.Run("not pending", func(t *testing.T) {
		order := pendingOrder()
		order.PaymentStatus = enums.PaymentStatusAwaitingConfirmation
		svc := newService(t, &stubRepo{order: order}, now)
		_, err := svc.Initiate(context.Background(), order.ID)
		if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
			t.Fatalf("expected state conflict, got %v", err)
		}
	})

	t.Run("already initialized", func(t *testing.T) {
		order := pendingOrder()
		svc := newService(t, &stubRepo{order: order, existing: &models.BitcoinPayment{OrderID: order.ID}}, now)
		_, err := svc.Initiate(context.Background(), order.ID)
		if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeConflict {
			t.Fatalf("expected conflict, got %v", err)
		}
	})
}

func TestInitiate_ConcurrentInsertLosesCleanly(t *testing.T) {
	now := time.Now()
	order := pendingOrder()
	repo := &stubRepo{
		order:     order,
		createErr: errors.New(`duplicate key value violates unique constraint "uq_bitcoin_payments_order_id"`),
	}
	svc := newService(t, repo, now)

	_, err := svc.Initiate(context.Background(), order.ID)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict on duplicate insert, got %v", err)
	}
}
