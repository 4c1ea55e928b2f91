package payments

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/sheelmorjaria/rdjcustoms-payments/pkg/db"
	"github.com/sheelmorjaria/rdjcustoms-payments/pkg/db/models"
	"github.com/sheelmorjaria/rdjcustoms-payments/pkg/enums"
)

func setupRepoTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	orders := `
CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  order_number TEXT NOT NULL UNIQUE,
  total_amount NUMERIC NOT NULL,
  currency TEXT NOT NULL DEFAULT 'GBP',
  payment_method_type TEXT NOT NULL,
  payment_method_name TEXT NOT NULL,
  payment_status TEXT NOT NULL DEFAULT 'pending',
  created_at DATETIME,
  updated_at DATETIME
);`
	bitcoinPayments := `
CREATE TABLE IF NOT EXISTS bitcoin_payments (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL UNIQUE,
  address TEXT NOT NULL UNIQUE,
  amount_btc NUMERIC NOT NULL,
  exchange_rate NUMERIC NOT NULL,
  expires_at DATETIME NOT NULL,
  confirmations INTEGER NOT NULL DEFAULT 0,
  amount_received_btc NUMERIC NOT NULL DEFAULT 0,
  last_update_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`
	moneroPayments := `
CREATE TABLE IF NOT EXISTS monero_payments (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL UNIQUE,
  invoice_id TEXT NOT NULL UNIQUE,
  address TEXT NOT NULL,
  amount_xmr NUMERIC NOT NULL,
  exchange_rate NUMERIC NOT NULL,
  expires_at DATETIME NOT NULL,
  confirmations INTEGER NOT NULL DEFAULT 0,
  amount_received_xmr NUMERIC NOT NULL DEFAULT 0,
  last_update_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`
	paypalPayments := `
CREATE TABLE IF NOT EXISTS paypal_payments (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL UNIQUE,
  paypal_order_id TEXT NOT NULL UNIQUE,
  payer_id TEXT,
  capture_id TEXT,
  transaction_id TEXT,
  approval_url TEXT NOT NULL,
  expires_at DATETIME NOT NULL,
  captured_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, conn.Exec(orders).Error)
	require.NoError(t, conn.Exec(bitcoinPayments).Error)
	require.NoError(t, conn.Exec(moneroPayments).Error)
	require.NoError(t, conn.Exec(paypalPayments).Error)
	return conn
}

func seedOrder(t *testing.T, conn *gorm.DB, number string, method enums.PaymentMethodType, status enums.PaymentStatus) *models.Order {
	t.Helper()

	order := &models.Order{
		ID:                uuid.New(),
		OrderNumber:       number,
		TotalAmount:       decimal.RequireFromString("150.00"),
		Currency:          "GBP",
		PaymentMethodType: method,
		PaymentMethodName: "Test Method",
		PaymentStatus:     status,
	}
	require.NoError(t, conn.Create(order).Error)
	return order
}

func seedBitcoinDetail(t *testing.T, conn *gorm.DB, order *models.Order, address string, expiresAt time.Time) *models.BitcoinPayment {
	t.Helper()

	detail := &models.BitcoinPayment{
		ID:             uuid.New(),
		OrderID:        order.ID,
		Address:        address,
		AmountBTC:      decimal.RequireFromString("0.005"),
		ExchangeRate:   decimal.RequireFromString("30000.00"),
		ExpiresAt:      expiresAt,
		Confirmations:  0,
		AmountReceived: decimal.Zero,
	}
	require.NoError(t, conn.Create(detail).Error)
	return detail
}

func TestRepositoryFindOrderByBitcoinAddress(t *testing.T) {
	conn := setupRepoTestDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	order := seedOrder(t, conn, "ORD-7001", enums.PaymentMethodBitcoin, enums.PaymentStatusPending)
	seedBitcoinDetail(t, conn, order, "bc1q-repo-addr", time.Now().Add(24*time.Hour))

	found, detail, err := repo.FindOrderByBitcoinAddress(ctx, "bc1q-repo-addr")
	require.NoError(t, err)
	assert.Equal(t, order.ID, found.ID)
	assert.Equal(t, order.ID, detail.OrderID)

	_, _, err = repo.FindOrderByBitcoinAddress(ctx, "bc1q-unknown")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRepositoryMergeBitcoinProgress(t *testing.T) {
	conn := setupRepoTestDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	order := seedOrder(t, conn, "ORD-7002", enums.PaymentMethodBitcoin, enums.PaymentStatusPending)
	detail := seedBitcoinDetail(t, conn, order, "bc1q-merge-addr", time.Now().Add(24*time.Hour))

	now := time.Now().UTC().Truncate(time.Second)
	applied, err := repo.MergeBitcoinProgress(ctx, detail.ID, 2, decimal.RequireFromString("0.003"), now)
	require.NoError(t, err)
	assert.True(t, applied)

	// A replayed callback carrying older counters must not shrink anything.
	applied, err = repo.MergeBitcoinProgress(ctx, detail.ID, 1, decimal.RequireFromString("0.001"), now.Add(time.Second))
	require.NoError(t, err)
	assert.False(t, applied)

	stored, err := repo.FindBitcoinPaymentByOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stored.Confirmations)
	assert.True(t, stored.AmountReceived.Equal(decimal.RequireFromString("0.003")),
		"amount_received_btc = %s", stored.AmountReceived)
}

func TestRepositoryUpdateOrderStatusIf(t *testing.T) {
	conn := setupRepoTestDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	order := seedOrder(t, conn, "ORD-7003", enums.PaymentMethodBitcoin, enums.PaymentStatusPending)

	moved, err := repo.UpdateOrderStatusIf(ctx, order.ID, enums.PaymentStatusAwaitingConfirmation, enums.NonTerminalPaymentStatuses())
	require.NoError(t, err)
	assert.True(t, moved)

	moved, err = repo.UpdateOrderStatusIf(ctx, order.ID, enums.PaymentStatusCompleted, []enums.PaymentStatus{enums.PaymentStatusPending})
	require.NoError(t, err)
	assert.False(t, moved, "guard must reject a transition whose precondition no longer holds")

	stored, err := repo.FindOrderByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusAwaitingConfirmation, stored.PaymentStatus)
}

func TestRepositoryFindExpiredOrderIDs(t *testing.T) {
	conn := setupRepoTestDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()
	now := time.Now().UTC()

	lapsed := seedOrder(t, conn, "ORD-7004", enums.PaymentMethodBitcoin, enums.PaymentStatusAwaitingConfirmation)
	seedBitcoinDetail(t, conn, lapsed, "bc1q-lapsed", now.Add(-time.Hour))

	settled := seedOrder(t, conn, "ORD-7005", enums.PaymentMethodBitcoin, enums.PaymentStatusCompleted)
	seedBitcoinDetail(t, conn, settled, "bc1q-settled", now.Add(-time.Hour))

	live := seedOrder(t, conn, "ORD-7006", enums.PaymentMethodBitcoin, enums.PaymentStatusPending)
	seedBitcoinDetail(t, conn, live, "bc1q-live", now.Add(time.Hour))

	ids, err := repo.FindExpiredOrderIDs(ctx, enums.PaymentMethodBitcoin, now, 50)
	require.NoError(t, err)
	require.Len(t, ids, 1)
	assert.Equal(t, lapsed.ID, ids[0])

	ids, err = repo.FindExpiredOrderIDs(ctx, enums.PaymentMethodType("card"), now, 50)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestRepositoryDuplicateDetailIsUniqueViolation(t *testing.T) {
	conn := setupRepoTestDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	order := seedOrder(t, conn, "ORD-7007", enums.PaymentMethodBitcoin, enums.PaymentStatusPending)
	seedBitcoinDetail(t, conn, order, "bc1q-dup", time.Now().Add(24*time.Hour))

	err := repo.CreateBitcoinPayment(ctx, &models.BitcoinPayment{
		ID:             uuid.New(),
		OrderID:        order.ID,
		Address:        "bc1q-dup-2",
		AmountBTC:      decimal.RequireFromString("0.005"),
		ExchangeRate:   decimal.RequireFromString("30000.00"),
		ExpiresAt:      time.Now().Add(24 * time.Hour),
		AmountReceived: decimal.Zero,
	})
	require.Error(t, err)
	assert.True(t, db.IsUniqueViolation(err, ""), "expected unique violation, got %v", err)
}
