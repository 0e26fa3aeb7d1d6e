/*
Package sales records over-the-counter sales through the payment log.

PURPOSE:
  Schools sell admission forms and inventory (uniforms, books) at the same
  desk that collects fees. Those sales go through the same receipt sequence
  and the same append-only log, but they are not fee obligations: they carry
  their own payment kind, never enter a payable schedule, and never claim a
  ledger column.

  Form sales may predate the student record entirely, so they are keyed by
  payer name rather than admission number.
*/
package sales

import (
	"context"
	"strings"
	"time"

	"github.com/schoolworks/fee-engine/collect"
	"github.com/schoolworks/fee-engine/engine"
)

// Labels written into paidFor so receipts read naturally.
const (
	FormSaleLabel      = "Form Sale"
	InventorySaleLabel = "Inventory Sale"
)

type Service struct {
	recorder *collect.Recorder
}

func NewService(recorder *collect.Recorder) *Service {
	return &Service{recorder: recorder}
}

// =============================================================================
// FORM SALE
// =============================================================================

type FormSaleRequest struct {
	PayerName string
	Date      time.Time
	Amount    engine.Money
	Mode      string
	Remarks   string
}

// RecordFormSale sells an admission form to a walk-in payer.
func (s *Service) RecordFormSale(ctx context.Context, req FormSaleRequest) (engine.Payment, error) {
	if strings.TrimSpace(req.PayerName) == "" {
		return engine.Payment{}, &engine.ValidationError{Field: "payerName", Message: "required"}
	}
	return s.recorder.Record(ctx, collect.RecordRequest{
		PayerName: req.PayerName,
		Date:      req.Date,
		Paid:      req.Amount,
		PaidFor:   []string{FormSaleLabel},
		Mode:      req.Mode,
		Remarks:   req.Remarks,
		Kind:      engine.KindFormSale,
	})
}

// =============================================================================
// INVENTORY SALE
// =============================================================================

type SaleItem struct {
	Name      string
	Quantity  int
	UnitPrice engine.Money
}

func (i SaleItem) lineTotal() engine.Money {
	total := engine.Zero()
	for n := 0; n < i.Quantity; n++ {
		total = total.Add(i.UnitPrice)
	}
	return total
}

type InventorySaleRequest struct {
	AdmissionNo string
	Date        time.Time
	Items       []SaleItem
	Mode        string
	Remarks     string
}

// RecordInventorySale sells inventory items to an enrolled student. The item
// lines become the payment breakdown so the receipt itemizes what was sold.
func (s *Service) RecordInventorySale(ctx context.Context, req InventorySaleRequest) (engine.Payment, error) {
	if strings.TrimSpace(req.AdmissionNo) == "" {
		return engine.Payment{}, &engine.ValidationError{Field: "admissionNo", Message: "required"}
	}
	if len(req.Items) == 0 {
		return engine.Payment{}, &engine.ValidationError{Field: "items", Message: "at least one item required"}
	}

	total := engine.Zero()
	breakdown := make(map[string]engine.Money, len(req.Items))
	for _, item := range req.Items {
		if strings.TrimSpace(item.Name) == "" {
			return engine.Payment{}, &engine.ValidationError{Field: "items.name", Message: "required"}
		}
		if item.Quantity <= 0 {
			return engine.Payment{}, &engine.ValidationError{Field: "items.quantity", Message: "must be positive"}
		}
		if item.UnitPrice.IsNegative() {
			return engine.Payment{}, &engine.NegativeAmountError{Field: "items.unitPrice", Value: item.UnitPrice}
		}
		line := item.lineTotal()
		breakdown[item.Name] = breakdown[item.Name].Add(line)
		total = total.Add(line)
	}

	return s.recorder.Record(ctx, collect.RecordRequest{
		AdmissionNo: req.AdmissionNo,
		Date:        req.Date,
		Paid:        total,
		PaidFor:     []string{InventorySaleLabel},
		Breakdown:   breakdown,
		Mode:        req.Mode,
		Remarks:     req.Remarks,
		Kind:        engine.KindInventorySale,
	})
}
