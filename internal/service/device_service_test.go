package service

import (
	"context"
	"encoding/json"
	"regexp"
	"testing"
	"time"

	"ecom-service/internal/models"
	"ecom-service/internal/store"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (*store.Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return store.NewWithDB(sqlx.NewDb(db, "postgres")), mock
}

func ledger(inOut int, price string) models.DeviceTransaction {
	t := models.DeviceTransaction{DeviceSrNo: "SN-1", ModelName: "Router", InOut: inOut, CreateDate: time.Now()}
	if price != "" {
		t.Price = decimal.NewNullDecimal(decimal.RequireFromString(price))
	}
	return t
}

func TestSummarizeDevice(t *testing.T) {
	tests := []struct {
		name   string
		txns   []models.DeviceTransaction
		status string
	}{
		{"return wins", []models.DeviceTransaction{ledger(models.DeviceIn, "100"), ledger(models.DeviceOut, "150"), ledger(models.DeviceReturn, "")}, models.DeviceStatusReturn},
		{"sold", []models.DeviceTransaction{ledger(models.DeviceIn, "100"), ledger(models.DeviceOut, "150")}, models.DeviceStatusSold},
		{"in stock", []models.DeviceTransaction{ledger(models.DeviceIn, "100")}, models.DeviceStatusInStock},
		{"sold without in", []models.DeviceTransaction{ledger(models.DeviceOut, "150")}, models.DeviceStatusSoldWithoutIn},
		{"unknown", []models.DeviceTransaction{ledger(7, "")}, models.DeviceStatusUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := SummarizeDevice(tt.txns)
			assert.Equal(t, tt.status, st.Status)
			assert.Equal(t, "SN-1", st.DeviceSrNo)
			assert.Len(t, st.Transactions, len(tt.txns))
		})
	}
}

func TestSummarizeDeviceProfit(t *testing.T) {
	st := SummarizeDevice([]models.DeviceTransaction{ledger(models.DeviceIn, "1200.50"), ledger(models.DeviceOut, "1500")})
	require.True(t, st.Profit.Valid)
	assert.Equal(t, "299.50", st.Profit.Decimal.StringFixed(2))
	assert.Equal(t, "1200.50", st.InPrice.Decimal.StringFixed(2))

	noPrice := SummarizeDevice([]models.DeviceTransaction{ledger(models.DeviceIn, ""), ledger(models.DeviceOut, "1500")})
	assert.Equal(t, models.DeviceStatusSold, noPrice.Status)
	assert.False(t, noPrice.Profit.Valid)
}

func TestSummarizeDeviceDates(t *testing.T) {
	in := ledger(models.DeviceIn, "100")
	in.CreateDate = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	out := ledger(models.DeviceOut, "150")
	out.CreateDate = time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC)

	sold := SummarizeDevice([]models.DeviceTransaction{in, out})
	require.NotNil(t, sold.InDate)
	require.NotNil(t, sold.OutDate)
	assert.True(t, in.CreateDate.Equal(*sold.InDate))
	assert.True(t, out.CreateDate.Equal(*sold.OutDate))
	assert.Nil(t, sold.ReturnDetails)

	stocked := SummarizeDevice([]models.DeviceTransaction{in})
	require.NotNil(t, stocked.InDate)
	assert.Nil(t, stocked.OutDate)

	remarks := "screen cracked"
	ret := ledger(models.DeviceReturn, "")
	ret.CreateDate = time.Date(2024, 3, 9, 9, 30, 0, 0, time.UTC)
	ret.Remarks = &remarks

	returned := SummarizeDevice([]models.DeviceTransaction{in, out, ret})
	require.NotNil(t, returned.ReturnDetails)
	assert.True(t, ret.CreateDate.Equal(returned.ReturnDetails.Date))
	assert.Equal(t, &remarks, returned.ReturnDetails.Remarks)

	body, err := json.Marshal(returned)
	require.NoError(t, err)
	assert.Contains(t, string(body), `"return_details":{"date":"2024-03-09T09:30:00Z","remarks":"screen cracked"}`)
}

func TestInOutCodeUnmarshal(t *testing.T) {
	var in DeviceInput
	require.NoError(t, json.Unmarshal([]byte(`{"device_srno":"A","model_name":"B","in_out":2}`), &in))
	assert.Equal(t, InOutCode("2"), in.InOut)

	require.NoError(t, json.Unmarshal([]byte(`{"in_out":"return"}`), &in))
	code, ok := models.ParseInOut(string(in.InOut))
	assert.True(t, ok)
	assert.Equal(t, models.DeviceReturn, code)

	assert.Error(t, json.Unmarshal([]byte(`{"in_out":true}`), &in))
}

func TestDeviceAddValidates(t *testing.T) {
	s := NewDeviceService(nil)
	ctx := context.Background()

	_, err := s.Add(ctx, DeviceInput{ModelName: "Router"})
	assert.True(t, IsKind(err, KindInvalid))

	_, err = s.Add(ctx, DeviceInput{DeviceSrNo: "SN", ModelName: "Router", InOut: "sideways"})
	assert.True(t, IsKind(err, KindInvalid))
}

func TestDeviceSearchNotFound(t *testing.T) {
	st, mock := newMockStore(t)
	s := NewDeviceService(st)

	mock.ExpectQuery(regexp.QuoteMeta(
		"SELECT * FROM device_transactions WHERE device_srno = $1 OR sku_id = $2 ORDER BY create_date, auto_id")).
		WithArgs("SN-404", "SN-404").
		WillReturnRows(sqlmock.NewRows([]string{"auto_id", "device_srno"}))

	_, err := s.Search(context.Background(), " SN-404 ")
	assert.True(t, IsKind(err, KindNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())

	_, err = s.Search(context.Background(), "  ")
	assert.True(t, IsKind(err, KindInvalid))
}
