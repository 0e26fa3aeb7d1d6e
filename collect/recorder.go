/*
Package collect records payments against the append-only log.

PURPOSE:
  The write side of fee collection. The engine package never mutates
  anything; this package owns the two mutations the system allows:

    Record: append a new POSTED payment with a fresh receipt number
    Cancel: flip an existing payment's status to CANCELLED

  Nothing is ever deleted and no stored amount is ever edited. A wrong
  payment is cancelled and re-entered, so the audit trail stays intact.

RECEIPT NUMBERS:
  Receipts render as PREFIX-NNNN (SCH-0042). The numeric part comes from
  the Store's counter, which must hand out each value exactly once even
  under concurrent collection. Gaps from abandoned records are acceptable;
  duplicates are not.

SEE ALSO:
  - engine/reconcile.go: the read side that reduces this log into dues
  - store/sqlite: durable Store implementation with a transactional counter
*/
package collect

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/schoolworks/fee-engine/engine"
)

// DefaultReceiptPrefix is used when the recorder is built without one.
const DefaultReceiptPrefix = "SCH"

// =============================================================================
// STORE CONTRACT
// =============================================================================

// Store is the persistence the recorder writes through. Implementations must
// make NextReceiptNo safe under concurrent callers.
type Store interface {
	AppendPayment(ctx context.Context, p engine.Payment) error
	Payment(ctx context.Context, id string) (engine.Payment, error)
	CancelPayment(ctx context.Context, id string) error
	PaymentsByStudent(ctx context.Context, admissionNo string) ([]engine.Payment, error)
	NextReceiptNo(ctx context.Context) (int64, error)
}

// =============================================================================
// RECORDER
// =============================================================================

type Recorder struct {
	store  Store
	prefix string
}

func NewRecorder(store Store, prefix string) *Recorder {
	if strings.TrimSpace(prefix) == "" {
		prefix = DefaultReceiptPrefix
	}
	return &Recorder{store: store, prefix: prefix}
}

// RecordRequest carries one payment as entered at the collection desk.
type RecordRequest struct {
	AdmissionNo string
	PayerName   string
	Date        time.Time
	Paid        engine.Money
	Discount    engine.Money
	PaidFor     []string
	Breakdown   map[string]engine.Money
	Mode        string
	Remarks     string
	Kind        engine.PaymentKind
}

func (r RecordRequest) validate() error {
	if r.Kind == "" || r.Kind == engine.KindSchedule {
		if strings.TrimSpace(r.AdmissionNo) == "" {
			return &engine.ValidationError{Field: "admissionNo", Message: "required"}
		}
	}
	if r.Date.IsZero() {
		return &engine.ValidationError{Field: "date", Message: "required"}
	}
	if r.Paid.IsNegative() {
		return &engine.NegativeAmountError{Field: "paid", Value: r.Paid}
	}
	if r.Discount.IsNegative() {
		return &engine.NegativeAmountError{Field: "discount", Value: r.Discount}
	}
	if !r.Paid.IsPositive() && !r.Discount.IsPositive() {
		return &engine.ValidationError{Field: "paid", Message: "payment must carry an amount or a discount"}
	}
	for head, amount := range r.Breakdown {
		if amount.IsNegative() {
			return &engine.NegativeAmountError{Field: "breakdown." + head, Value: amount}
		}
	}
	return nil
}

// Record validates the request, assigns an id and receipt number, and appends
// the payment as POSTED.
func (r *Recorder) Record(ctx context.Context, req RecordRequest) (engine.Payment, error) {
	if err := req.validate(); err != nil {
		return engine.Payment{}, err
	}

	seq, err := r.store.NextReceiptNo(ctx)
	if err != nil {
		return engine.Payment{}, fmt.Errorf("allocating receipt number: %w", err)
	}

	kind := req.Kind
	if kind == "" {
		kind = engine.KindSchedule
	}

	p := engine.Payment{
		ID:          uuid.NewString(),
		AdmissionNo: strings.TrimSpace(req.AdmissionNo),
		PayerName:   strings.TrimSpace(req.PayerName),
		Date:        req.Date,
		Paid:        req.Paid,
		Discount:    req.Discount,
		PaidFor:     req.PaidFor,
		Breakdown:   req.Breakdown,
		ReceiptNo:   FormatReceiptNo(r.prefix, seq),
		Mode:        req.Mode,
		Remarks:     req.Remarks,
		Status:      engine.PaymentPosted,
		Kind:        kind,
	}
	if err := r.store.AppendPayment(ctx, p); err != nil {
		return engine.Payment{}, fmt.Errorf("appending payment: %w", err)
	}
	return p, nil
}

// Cancel marks the payment CANCELLED. Cancelling twice is an error so the
// caller learns the record was already voided.
func (r *Recorder) Cancel(ctx context.Context, id string) error {
	p, err := r.store.Payment(ctx, id)
	if err != nil {
		return err
	}
	if p.Status == engine.PaymentCancelled {
		return fmt.Errorf("payment %s: %w", id, engine.ErrPaymentCancelled)
	}
	return r.store.CancelPayment(ctx, id)
}

// FormatReceiptNo renders the printed receipt number, zero-padded to four
// digits so receipts sort naturally in the register.
func FormatReceiptNo(prefix string, seq int64) string {
	return fmt.Sprintf("%s-%04d", prefix, seq)
}
