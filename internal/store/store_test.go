package store

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"ecom-service/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewWithDB(sqlx.NewDb(db, "postgres")), mock
}

func TestMapErr(t *testing.T) {
	assert.Nil(t, mapErr(nil))
	assert.ErrorIs(t, mapErr(sql.ErrNoRows), ErrNotFound)
	assert.ErrorIs(t, mapErr(&pq.Error{Code: "23505", Constraint: "customers_email_key"}), ErrDuplicate)
	assert.ErrorIs(t, mapErr(&pq.Error{Code: "23503"}), ErrReferenced)
	assert.ErrorIs(t, mapErr(&pq.Error{Code: "23514"}), ErrConstraint)

	other := errors.New("boom")
	assert.Equal(t, other, mapErr(other))
}

func TestGetProductNotFound(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM products WHERE product_id = $1")).
		WithArgs(int64(42)).
		WillReturnError(sql.ErrNoRows)

	_, err := s.GetProduct(context.Background(), 42)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateOrder(t *testing.T) {
	s, mock := newMockStore(t)
	now := time.Now()
	customerID := int64(7)

	cols := []string{"order_id", "customer_id", "offline_customer_id", "address_id", "total_items", "subtotal",
		"discount_percent", "discount_amount", "delivery_charge", "tax_percent", "tax_amount", "total_amount",
		"channel", "payment_status", "fulfillment_status", "delivery_status", "delivery_method", "awb_number",
		"idempotency_key", "created_at", "updated_at"}

	mock.ExpectQuery("INSERT INTO orders").
		WillReturnRows(sqlmock.NewRows(cols).AddRow(
			101, customerID, nil, 3, 2, "1000.00", "0", "0", "0", "18", "180.00", "1180.00",
			"online", "pending", false, "placed", "shipping", nil, "key-1", now, now))

	key := "key-1"
	order := &models.Order{
		CustomerID:     &customerID,
		AddressID:      3,
		TotalItems:     2,
		Subtotal:       decimal.RequireFromString("1000"),
		TaxPercent:     decimal.NewFromInt(18),
		TaxAmount:      decimal.RequireFromString("180"),
		TotalAmount:    decimal.RequireFromString("1180"),
		Channel:        models.ChannelOnline,
		PaymentStatus:  models.PaymentPending,
		DeliveryStatus: models.DeliveryPlaced,
		DeliveryMethod: models.DeliveryShipping,
		IdempotencyKey: &key,
	}

	err := s.CreateOrder(context.Background(), order)
	require.NoError(t, err)
	assert.Equal(t, int64(101), order.ID)
	assert.Nil(t, order.OfflineCustomerID)
	assert.True(t, order.TotalAmount.Equal(decimal.RequireFromString("1180")))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetOrderByIdempotencyKeyMissing(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM orders WHERE idempotency_key = $1")).
		WithArgs("absent").
		WillReturnError(sql.ErrNoRows)

	order, err := s.GetOrderByIdempotencyKey(context.Background(), "absent")
	assert.NoError(t, err)
	assert.Nil(t, order)
}

func TestListOrdersFilter(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(
		"SELECT * FROM orders WHERE 1=1 AND delivery_status = $1 AND payment_status = $2 ORDER BY created_at DESC LIMIT $3 OFFSET $4")).
		WithArgs("placed", "paid", 20, 40).
		WillReturnRows(sqlmock.NewRows([]string{"order_id"}))

	_, err := s.ListOrders(context.Background(), OrderFilter{
		DeliveryStatus: "placed", PaymentStatus: "paid", Limit: 20, Offset: 40,
	})
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInTxRollsBackOnError(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM cart_items WHERE cart_id = $1")).
		WithArgs(int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectRollback()

	sentinel := errors.New("abort")
	err := s.InTx(context.Background(), func(q *Queries) error {
		if err := q.ClearCart(context.Background(), 5); err != nil {
			return err
		}
		return sentinel
	})

	assert.ErrorIs(t, err, sentinel)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInTxCommits(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE orders SET delivery_status = $1")).
		WithArgs("intransit", int64(9)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := s.InTx(context.Background(), func(q *Queries) error {
		return q.SetDeliveryStatus(context.Background(), 9, "intransit")
	})

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecNoRowsIsNotFound(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM hsn WHERE hsn_id = $1")).
		WithArgs(int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := s.DeleteHSN(context.Background(), 3)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSearchDeviceTransactionsWithoutTerms(t *testing.T) {
	s, mock := newMockStore(t)

	out, err := s.SearchDeviceTransactions(context.Background(), "", "")
	assert.NoError(t, err)
	assert.Empty(t, out)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListModelsByProductsExpandsIn(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM product_models WHERE product_id IN ($1, $2) ORDER BY model_id")).
		WithArgs(int64(1), int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"model_id", "product_id", "name", "description"}).
			AddRow(10, 1, "Default", "desc").
			AddRow(11, 2, "Pro", "desc"))

	out, err := s.ListModelsByProducts(context.Background(), []int64{1, 2})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "Pro", out[1].Name)
}

func TestDeleteCartItemsOnlyNamedLines(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM cart_items WHERE cart_id = $1 AND item_id IN ($2, $3)")).
		WithArgs(int64(3), int64(11), int64(12)).
		WillReturnResult(sqlmock.NewResult(0, 2))

	require.NoError(t, s.DeleteCartItems(context.Background(), 3, []int64{11, 12}))
	require.NoError(t, s.DeleteCartItems(context.Background(), 3, nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}
