package store

import (
	"context"
	"strconv"
	"strings"

	"ecom-service/internal/models"
)

func (q *Queries) CreateDeviceTransaction(ctx context.Context, t *models.DeviceTransaction) error {
	return q.get(ctx, t, `
		INSERT INTO device_transactions (device_srno, model_name, sku_id, order_id, in_out, price, remarks)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING *`,
		t.DeviceSrNo, t.ModelName, t.SKUID, t.OrderID, t.InOut, t.Price, t.Remarks)
}

// ListDeviceTransactions returns all entries, or those of one serial number, newest first
func (q *Queries) ListDeviceTransactions(ctx context.Context, srno string) ([]models.DeviceTransaction, error) {
	out := []models.DeviceTransaction{}
	if srno == "" {
		err := q.sel(ctx, &out, "SELECT * FROM device_transactions ORDER BY create_date DESC, auto_id DESC")
		return out, err
	}
	err := q.sel(ctx, &out,
		"SELECT * FROM device_transactions WHERE device_srno = $1 ORDER BY create_date DESC, auto_id DESC", srno)
	return out, err
}

// SearchDeviceTransactions matches either serial number or SKU, oldest first
func (q *Queries) SearchDeviceTransactions(ctx context.Context, srno, sku string) ([]models.DeviceTransaction, error) {
	out := []models.DeviceTransaction{}
	var conds []string
	var args []interface{}
	if srno != "" {
		args = append(args, srno)
		conds = append(conds, "device_srno = $"+strconv.Itoa(len(args)))
	}
	if sku != "" {
		args = append(args, sku)
		conds = append(conds, "sku_id = $"+strconv.Itoa(len(args)))
	}
	if len(conds) == 0 {
		return out, nil
	}
	err := q.sel(ctx, &out,
		"SELECT * FROM device_transactions WHERE "+strings.Join(conds, " OR ")+" ORDER BY create_date, auto_id",
		args...)
	return out, err
}
