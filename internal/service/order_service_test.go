package service

import (
	"context"
	"testing"

	"ecom-service/config"
	"ecom-service/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestComputeTotals(t *testing.T) {
	lines := []PricedLine{
		{UnitPrice: dec("1000"), Quantity: 2},
		{UnitPrice: dec("500"), Quantity: 1},
	}

	totals := ComputeTotals(lines, dec("10"), dec("18"), dec("50"))

	assert.Equal(t, 3, totals.TotalItems)
	assert.Equal(t, "2500.00", totals.Subtotal.StringFixed(2))
	assert.Equal(t, "250.00", totals.DiscountAmount.StringFixed(2))
	assert.Equal(t, "405.00", totals.TaxAmount.StringFixed(2))
	assert.Equal(t, "2705.00", totals.TotalAmount.StringFixed(2))
}

func TestComputeTotalsRoundsEachStep(t *testing.T) {
	lines := []PricedLine{{UnitPrice: dec("33.33"), Quantity: 3}}

	totals := ComputeTotals(lines, dec("12.5"), dec("18"), decimal.Zero)

	// 99.99 * 12.5% = 12.49875 -> 12.50; (99.99 - 12.50) * 18% = 15.7482 -> 15.75
	assert.Equal(t, "99.99", totals.Subtotal.StringFixed(2))
	assert.Equal(t, "12.50", totals.DiscountAmount.StringFixed(2))
	assert.Equal(t, "15.75", totals.TaxAmount.StringFixed(2))
	assert.Equal(t, "103.24", totals.TotalAmount.StringFixed(2))
}

func TestComputeTotalsEmpty(t *testing.T) {
	totals := ComputeTotals(nil, decimal.Zero, dec("18"), dec("40"))
	assert.Equal(t, 0, totals.TotalItems)
	assert.True(t, totals.Subtotal.IsZero())
	assert.Equal(t, "40.00", totals.TotalAmount.StringFixed(2))
}

func TestPercentOr(t *testing.T) {
	got, err := percentOr(nil, dec("18"), "tax_percent")
	require.NoError(t, err)
	assert.True(t, got.Equal(dec("18")))

	v := dec("5")
	got, err = percentOr(&v, dec("18"), "tax_percent")
	require.NoError(t, err)
	assert.True(t, got.Equal(v))

	for _, bad := range []string{"-1", "100.01"} {
		b := dec(bad)
		_, err = percentOr(&b, decimal.Zero, "discount_percent")
		assert.True(t, IsKind(err, KindInvalid), bad)
	}
}

func TestNormalizeDeliveryMethod(t *testing.T) {
	m, err := normalizeDeliveryMethod("")
	require.NoError(t, err)
	assert.Equal(t, "shipping", m)

	m, err = normalizeDeliveryMethod(" Pickup ")
	require.NoError(t, err)
	assert.Equal(t, "pickup", m)

	_, err = normalizeDeliveryMethod("drone")
	assert.True(t, IsKind(err, KindInvalid))
}

func TestPlaceOrderOfflineRequiresAdmin(t *testing.T) {
	s := NewOrderService(nil, nil, nil, config.BusinessConfig{DefaultTaxPercent: 18})
	offline := int64(3)

	_, err := s.PlaceOrder(context.Background(), Actor{CustomerID: 9}, PlaceOrderRequest{
		OfflineCustomerID: &offline,
		AddressID:         1,
		Items:             []OrderItemInput{{ProductID: 1, Quantity: 1}},
	}, "")

	assert.True(t, IsKind(err, KindForbidden))
}

func TestPlaceOrderValidatesInput(t *testing.T) {
	s := NewOrderService(nil, nil, nil, config.BusinessConfig{DefaultTaxPercent: 18})
	ctx := context.Background()

	_, err := s.PlaceOrder(ctx, Actor{CustomerID: 9}, PlaceOrderRequest{AddressID: 1}, "")
	assert.True(t, IsKind(err, KindInvalid))

	bad := dec("120")
	_, err = s.PlaceOrder(ctx, Actor{CustomerID: 1, IsAdmin: true}, PlaceOrderRequest{
		AddressID:       1,
		Items:           []OrderItemInput{{ProductID: 1, Quantity: 1}},
		DiscountPercent: &bad,
	}, "")
	assert.True(t, IsKind(err, KindInvalid))

	_, err = s.PlaceOrder(ctx, Actor{CustomerID: 1, IsAdmin: true}, PlaceOrderRequest{
		AddressID:     1,
		Items:         []OrderItemInput{{ProductID: 1, Quantity: 1}},
		PaymentStatus: "maybe",
	}, "")
	assert.True(t, IsKind(err, KindInvalid))
}

func TestDraftLockKey(t *testing.T) {
	customer, offline := int64(5), int64(6)
	assert.Equal(t, "checkout:customer:5", (&orderDraft{customerID: &customer}).lockKey())
	assert.Equal(t, "checkout:offline:6", (&orderDraft{offlineCustomerID: &offline}).lockKey())
}

func TestDraftScopedKey(t *testing.T) {
	customer, other, offline := int64(5), int64(7), int64(6)

	a := &orderDraft{customerID: &customer, idempotencyKey: "k1"}
	b := &orderDraft{customerID: &other, idempotencyKey: "k1"}
	assert.Equal(t, "customer:5:k1", a.scopedKey())
	assert.NotEqual(t, a.scopedKey(), b.scopedKey())
	assert.Equal(t, "offline:6:k1", (&orderDraft{offlineCustomerID: &offline, idempotencyKey: "k1"}).scopedKey())
	assert.Empty(t, (&orderDraft{customerID: &customer}).scopedKey())

	assert.True(t, a.owns(&models.Order{CustomerID: &customer}))
	assert.False(t, a.owns(&models.Order{CustomerID: &other}))
	assert.False(t, a.owns(&models.Order{OfflineCustomerID: &customer}))
}
