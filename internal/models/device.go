package models

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Ledger movement codes
const (
	DeviceIn     = 1
	DeviceOut    = 2
	DeviceReturn = 3
)

// Device statuses reported by a search
const (
	DeviceStatusReturn        = "RETURN"
	DeviceStatusSold          = "SOLD"
	DeviceStatusInStock       = "IN_STOCK"
	DeviceStatusSoldWithoutIn = "SOLD_WITHOUT_IN"
	DeviceStatusUnknown       = "UNKNOWN"
)

// DeviceTransaction is one serial-number movement in the device ledger
type DeviceTransaction struct {
	ID         int64               `db:"auto_id" json:"auto_id"`
	DeviceSrNo string              `db:"device_srno" json:"device_srno"`
	ModelName  string              `db:"model_name" json:"model_name"`
	SKUID      *string             `db:"sku_id" json:"sku_id"`
	OrderID    *string             `db:"order_id" json:"order_id"`
	InOut      int                 `db:"in_out" json:"in_out"`
	Price      decimal.NullDecimal `db:"price" json:"price"`
	Remarks    *string             `db:"remarks" json:"remarks"`
	CreateDate time.Time           `db:"create_date" json:"create_date"`
}

// ParseInOut accepts 1/2/3 or IN/OUT/RETURN in any case.
func ParseInOut(s string) (int, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "1", "IN":
		return DeviceIn, true
	case "2", "OUT":
		return DeviceOut, true
	case "3", "RETURN":
		return DeviceReturn, true
	}
	// spreadsheets hand numeric cells back as "1.0" and similar
	if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
		switch f {
		case 1:
			return DeviceIn, true
		case 2:
			return DeviceOut, true
		case 3:
			return DeviceReturn, true
		}
	}
	return 0, false
}

func InOutLabel(code int) string {
	switch code {
	case DeviceIn:
		return "IN"
	case DeviceOut:
		return "OUT"
	case DeviceReturn:
		return "RETURN"
	}
	return "UNKNOWN"
}

// DeviceStatus summarizes the ledger entries of a serial number or SKU
type DeviceStatus struct {
	DeviceSrNo    string              `json:"device_srno"`
	SKUID         *string             `json:"sku_id"`
	ModelName     string              `json:"model_name"`
	Status        string              `json:"status"`
	Message       string              `json:"message,omitempty"`
	InPrice       decimal.NullDecimal `json:"in_price"`
	OutPrice      decimal.NullDecimal `json:"out_price"`
	Profit        decimal.NullDecimal `json:"profit"`
	InDate        *time.Time          `json:"in_date,omitempty"`
	OutDate       *time.Time          `json:"out_date,omitempty"`
	ReturnDetails *ReturnDetails      `json:"return_details,omitempty"`
	Transactions  []DeviceTransaction `json:"transactions"`
}

// ReturnDetails describes the RETURN entry of a device
type ReturnDetails struct {
	Date    time.Time `json:"date"`
	Remarks *string   `json:"remarks"`
}
