package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"ecom-service/internal/importer"
	"ecom-service/internal/models"
	"ecom-service/internal/store"
	"ecom-service/internal/util"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// DeviceService maintains the serial-number ledger
type DeviceService struct {
	store  *store.Store
	logger *zap.Logger
}

func NewDeviceService(store *store.Store) *DeviceService {
	return &DeviceService{
		store:  store,
		logger: util.Named("devices"),
	}
}

// InOutCode accepts 1/2/3 as a number or string, or IN/OUT/RETURN
type InOutCode string

func (c *InOutCode) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*c = InOutCode(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("in_out must be a number or string: %w", err)
	}
	*c = InOutCode(n.String())
	return nil
}

type DeviceInput struct {
	DeviceSrNo string              `json:"device_srno"`
	ModelName  string              `json:"model_name"`
	SKUID      *string             `json:"sku_id"`
	OrderID    *string             `json:"order_id"`
	InOut      InOutCode           `json:"in_out"`
	Price      decimal.NullDecimal `json:"price"`
	Remarks    *string             `json:"remarks"`
}

// UploadResult reports how many ledger rows were stored
type UploadResult struct {
	Message     string              `json:"message"`
	Inserted    int                 `json:"inserted"`
	FailedRows  []importer.RowError `json:"failed_rows"`
	FailedCount int                 `json:"failed_count"`
	TotalRows   int                 `json:"total_rows"`
}

// Upload imports a CSV or XLSX ledger. Valid rows are inserted in one
// transaction; invalid rows are reported back.
func (s *DeviceService) Upload(ctx context.Context, filename string, r io.Reader) (*UploadResult, error) {
	ctx, span := util.StartSpan(ctx, "DeviceService.Upload")
	defer span.End()

	sheet, err := importer.ParseDevices(filename, r)
	if err != nil {
		if errors.Is(err, importer.ErrUnsupportedFormat) || errors.Is(err, importer.ErrEmptyFile) {
			return nil, Invalid("%s", err.Error())
		}
		return nil, &Error{Kind: KindInvalid, Message: "could not read the uploaded file", Err: err}
	}

	err = s.store.InTx(ctx, func(q *store.Queries) error {
		for i := range sheet.Transactions {
			if err := q.CreateDeviceTransaction(ctx, &sheet.Transactions[i]); err != nil {
				return storeErr(err, "device transaction")
			}
		}
		return nil
	})
	if err != nil {
		util.SpanError(span, err)
		return nil, err
	}

	util.DeviceRowsImportedTotal.WithLabelValues("inserted").Add(float64(len(sheet.Transactions)))
	util.DeviceRowsImportedTotal.WithLabelValues("failed").Add(float64(len(sheet.Failed)))
	s.logger.Info("Device ledger uploaded",
		zap.String("filename", filename),
		zap.Int("inserted", len(sheet.Transactions)),
		zap.Int("failed", len(sheet.Failed)))

	return &UploadResult{
		Message:     fmt.Sprintf("Successfully processed %d rows", len(sheet.Transactions)),
		Inserted:    len(sheet.Transactions),
		FailedRows:  orEmpty(sheet.Failed),
		FailedCount: len(sheet.Failed),
		TotalRows:   sheet.TotalRows,
	}, nil
}

// Search looks a term up as serial number or SKU and summarizes the
// matching entries.
func (s *DeviceService) Search(ctx context.Context, term string) (*models.DeviceStatus, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, Invalid("search term required")
	}
	txns, err := s.store.SearchDeviceTransactions(ctx, term, term)
	if err != nil {
		return nil, err
	}
	if len(txns) == 0 {
		return nil, NotFound("no transactions found")
	}
	return SummarizeDevice(txns), nil
}

// SummarizeDevice derives the device status from oldest-first entries.
// A RETURN wins, then IN+OUT (sold, with profit), then IN alone, then OUT alone.
func SummarizeDevice(txns []models.DeviceTransaction) *models.DeviceStatus {
	first := txns[0]
	st := &models.DeviceStatus{
		DeviceSrNo:   first.DeviceSrNo,
		SKUID:        first.SKUID,
		ModelName:    first.ModelName,
		Transactions: txns,
	}

	var in, out, ret *models.DeviceTransaction
	for i := range txns {
		t := &txns[i]
		switch {
		case t.InOut == models.DeviceIn && in == nil:
			in = t
		case t.InOut == models.DeviceOut && out == nil:
			out = t
		case t.InOut == models.DeviceReturn && ret == nil:
			ret = t
		}
	}

	switch {
	case ret != nil:
		st.Status = models.DeviceStatusReturn
		st.Message = "Return transaction"
		st.ReturnDetails = &models.ReturnDetails{Date: ret.CreateDate, Remarks: ret.Remarks}
	case in != nil && out != nil:
		st.Status = models.DeviceStatusSold
		st.InPrice, st.OutPrice = in.Price, out.Price
		st.InDate, st.OutDate = &in.CreateDate, &out.CreateDate
		if in.Price.Valid && out.Price.Valid {
			st.Profit = decimal.NullDecimal{Decimal: out.Price.Decimal.Sub(in.Price.Decimal), Valid: true}
		}
	case in != nil:
		st.Status = models.DeviceStatusInStock
		st.Message = "No OUT transaction found"
		st.InPrice = in.Price
		st.InDate = &in.CreateDate
	case out != nil:
		st.Status = models.DeviceStatusSoldWithoutIn
		st.Message = "No IN transaction found"
		st.OutPrice = out.Price
		st.OutDate = &out.CreateDate
	default:
		st.Status = models.DeviceStatusUnknown
		st.Message = "Unexpected transaction combination"
	}
	return st
}

// List returns all entries or those of one serial number, newest first
func (s *DeviceService) List(ctx context.Context, srno string) ([]models.DeviceTransaction, error) {
	return s.store.ListDeviceTransactions(ctx, strings.TrimSpace(srno))
}

func (s *DeviceService) Add(ctx context.Context, in DeviceInput) (*models.DeviceTransaction, error) {
	in.DeviceSrNo = strings.TrimSpace(in.DeviceSrNo)
	in.ModelName = strings.TrimSpace(in.ModelName)
	if in.DeviceSrNo == "" || in.ModelName == "" {
		return nil, Invalid("device_srno and model_name are required")
	}

	code := models.DeviceIn
	if in.InOut != "" {
		var ok bool
		if code, ok = models.ParseInOut(string(in.InOut)); !ok {
			return nil, Invalid("in_out must be 1/2/3 or IN/OUT/RETURN")
		}
	}

	t := &models.DeviceTransaction{
		DeviceSrNo: in.DeviceSrNo,
		ModelName:  in.ModelName,
		SKUID:      in.SKUID,
		OrderID:    in.OrderID,
		InOut:      code,
		Price:      in.Price,
		Remarks:    in.Remarks,
	}
	if err := s.store.CreateDeviceTransaction(ctx, t); err != nil {
		return nil, storeErr(err, "device transaction")
	}
	s.logger.Info("Device transaction added",
		zap.String("device_srno", t.DeviceSrNo),
		zap.String("in_out", models.InOutLabel(t.InOut)))
	return t, nil
}
