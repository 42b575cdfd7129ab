package models

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStockStatusFor(t *testing.T) {
	tests := []struct {
		qty, threshold int
		want           string
	}{
		{0, 10, StockOutOfStock},
		{1, 10, StockLow},
		{10, 10, StockLow},
		{11, 10, StockInStock},
		{0, 0, StockOutOfStock},
		{1, 0, StockInStock},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, StockStatusFor(tt.qty, tt.threshold), "qty=%d threshold=%d", tt.qty, tt.threshold)
	}
}

func TestRollupColors(t *testing.T) {
	colors := []ProductColor{
		{ID: 1, Price: decimal.RequireFromString("799.00"), StockQuantity: 3},
		{ID: 2, Price: decimal.RequireFromString("499.50"), OriginalPrice: decimal.NewNullDecimal(decimal.RequireFromString("650")), StockQuantity: 7},
		{ID: 3, Price: decimal.RequireFromString("499.50"), StockQuantity: 0},
	}

	r := RollupColors(colors)

	require.True(t, r.Price.Valid)
	assert.True(t, r.Price.Decimal.Equal(decimal.RequireFromString("499.5")))
	assert.True(t, r.OriginalPrice.Valid)
	assert.Equal(t, "650", r.OriginalPrice.Decimal.String())
	assert.Equal(t, 10, r.StockQuantity)
}

func TestRollupColorsEmpty(t *testing.T) {
	r := RollupColors(nil)

	assert.False(t, r.Price.Valid)
	assert.Zero(t, r.StockQuantity)

	data, err := json.Marshal(r)
	require.NoError(t, err)
	assert.JSONEq(t, `{"price":null,"original_price":null,"stock_quantity":0}`, string(data))
}

func TestDeliveryTransitions(t *testing.T) {
	assert.True(t, CanTransitionDelivery(DeliveryPlaced, DeliveryInTransit))
	assert.True(t, CanTransitionDelivery(DeliveryPlaced, DeliveryCancelled))
	assert.True(t, CanTransitionDelivery(DeliveryInTransit, DeliveryDelivered))
	assert.True(t, CanTransitionDelivery(DeliveryDelivered, DeliveryReturned))

	assert.False(t, CanTransitionDelivery(DeliveryDelivered, DeliveryCancelled))
	assert.False(t, CanTransitionDelivery(DeliveryCancelled, DeliveryPlaced))
	assert.False(t, CanTransitionDelivery(DeliveryReturned, DeliveryDelivered))
	assert.False(t, CanTransitionDelivery(DeliveryPlaced, DeliveryPlaced))
}

func TestPaymentTransitions(t *testing.T) {
	assert.True(t, CanTransitionPayment(PaymentPending, PaymentPaid))
	assert.True(t, CanTransitionPayment(PaymentFailed, PaymentPending))
	assert.True(t, CanTransitionPayment(PaymentPaid, PaymentRefunded))
	assert.False(t, CanTransitionPayment(PaymentRefunded, PaymentPaid))
	assert.False(t, CanTransitionPayment(PaymentPending, PaymentRefunded))
}

func TestParseInOut(t *testing.T) {
	for in, want := range map[string]int{
		"1": DeviceIn, "in": DeviceIn, " OUT ": DeviceOut, "2.0": DeviceOut, "Return": DeviceReturn, "3": DeviceReturn,
	} {
		got, ok := ParseInOut(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}

	_, ok := ParseInOut("4")
	assert.False(t, ok)
	_, ok = ParseInOut("")
	assert.False(t, ok)
}

func TestMoneyMarshalsAsNumber(t *testing.T) {
	c := ProductColor{ID: 1, Name: "Black", Price: decimal.RequireFromString("1299.99")}

	data, err := json.Marshal(c)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"price":1299.99`)
	assert.Contains(t, string(data), `"original_price":null`)
}
