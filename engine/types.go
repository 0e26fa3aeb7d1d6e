/*
Package engine implements the fee due computation and reconciliation core.

PURPOSE:
  This package answers three questions for a school running on a configurable
  academic calendar:
    1. Which fee obligations does a student owe for the current session?
    2. How much of that obligation is satisfied by recorded payments?
    3. How does every payment map back to the specific obligation it pays?

KEY CONCEPTS IN THIS FILE (types.go):
  - Money: A decimal monetary amount (never float - figures must be bit-exact)
  - Student: The billing subject with admission type, class, category
  - Payment: An immutable record from the append-only collection log
  - LineItem: A single owed obligation, derived fresh on every computation

DESIGN PRINCIPLES:
  1. Purity: Every computation is input -> output over an in-memory snapshot.
     No I/O, no hidden state, safe to call concurrently from any read path.
  2. Precision: Uses decimal.Decimal to avoid floating-point drift.
  3. Derivation: Dues are never stored. They are recomputed from
     Student + FeeRule + FeeAmount + Payment + "today" on every call.
  4. Immutability: Payments are never edited; cancellation is a status flag.

SEE ALSO:
  - calendar.go: Academic calendar resolution and month slots
  - catalog.go:  Fee rules and the per-class amount table
  - policy.go:   Billing mode, due dates and proration
  - schedule.go: Payable schedule builder
  - reconcile.go: Due computation against the payment log
  - ledger.go:   Spreadsheet-style reconciliation view
*/
package engine

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// MONEY - Decimal monetary amount
// =============================================================================

type Money struct {
	Value decimal.Decimal
}

func NewMoney(v int64) Money {
	return Money{Value: decimal.NewFromInt(v)}
}

func NewMoneyFromFloat(v float64) Money {
	return Money{Value: decimal.NewFromFloat(v)}
}

func MoneyFromString(s string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, err
	}
	return Money{Value: d}, nil
}

// MustMoney parses s or returns zero. Intended for literals in tests and seeds.
func MustMoney(s string) Money {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}
	}
	return Money{Value: d}
}

func Zero() Money { return Money{Value: decimal.Zero} }

func (m Money) Add(o Money) Money      { return Money{Value: m.Value.Add(o.Value)} }
func (m Money) Sub(o Money) Money      { return Money{Value: m.Value.Sub(o.Value)} }
func (m Money) Neg() Money             { return Money{Value: m.Value.Neg()} }
func (m Money) IsZero() bool           { return m.Value.IsZero() }
func (m Money) IsNegative() bool       { return m.Value.IsNegative() }
func (m Money) IsPositive() bool       { return m.Value.IsPositive() }
func (m Money) Equal(o Money) bool     { return m.Value.Equal(o.Value) }
func (m Money) GreaterThan(o Money) bool { return m.Value.GreaterThan(o.Value) }
func (m Money) LessThan(o Money) bool  { return m.Value.LessThan(o.Value) }
func (m Money) String() string         { return m.Value.String() }

// Split divides m into n shares that sum back to m exactly. Shares are
// rounded to two places; the last share absorbs the rounding remainder so
// that conservation holds (a payment split across months must total the
// original paid amount).
func (m Money) Split(n int) []Money {
	if n <= 0 {
		return nil
	}
	shares := make([]Money, n)
	per := Money{Value: m.Value.Div(decimal.NewFromInt(int64(n))).Round(2)}
	rest := m
	for i := 0; i < n-1; i++ {
		shares[i] = per
		rest = rest.Sub(per)
	}
	shares[n-1] = rest
	return shares
}

// =============================================================================
// STUDENT - The billing subject
// =============================================================================

type AdmissionType string

const (
	AdmissionNew AdmissionType = "NEW"
	AdmissionOld AdmissionType = "OLD"
)

// DefaultCategory is assumed when a student record carries no category.
const DefaultCategory = "GENERAL"

// Student is the session-filtered billing subject. Identity fields are
// immutable here; enrollment workflows mutate them elsewhere.
type Student struct {
	AdmissionNo   string
	Name          string
	Class         string
	Section       string
	Category      string
	AdmissionType AdmissionType
	AdmissionDate time.Time // zero when unknown
	Session       string    // financial-year tag, e.g. "2025-26"

	// MonthlyFeeOverride, when positive, replaces the catalog amount for the
	// recurring tuition-like fee. Zero means no override.
	MonthlyFeeOverride Money
}

// EffectiveCategory returns the student's category, defaulting to GENERAL.
func (s Student) EffectiveCategory() string {
	if s.Category == "" {
		return DefaultCategory
	}
	return s.Category
}

// EffectiveAdmissionType defaults to NEW, matching the collection workflows
// that created historical records without the field.
func (s Student) EffectiveAdmissionType() AdmissionType {
	if s.AdmissionType == "" {
		return AdmissionNew
	}
	return s.AdmissionType
}

// =============================================================================
// PAYMENT - Append-only collection record
// =============================================================================

type PaymentStatus string

const (
	PaymentPosted    PaymentStatus = "POSTED"
	PaymentCancelled PaymentStatus = "CANCELLED"
)

// PaymentKind separates schedule-bearing collections from one-off sales.
// Form and inventory sales never enter the payable schedule; they share the
// receipt sequence and the payment log only.
type PaymentKind string

const (
	KindSchedule      PaymentKind = "SCHEDULE"
	KindFormSale      PaymentKind = "FORM_SALE"
	KindInventorySale PaymentKind = "INVENTORY_SALE"
)

// Payment is immutable once written, except for the CANCELLED status flag.
// Corrections are made by cancelling and re-recording, never by editing.
type Payment struct {
	ID          string
	AdmissionNo string
	PayerName   string // for form sales, where no student record exists
	Date        time.Time
	Paid        Money
	Discount    Money

	// PaidFor lists the month labels (or sale markers) this payment covers,
	// as entered at collection time. Free text; unknown labels are tolerated.
	PaidFor []string

	// Breakdown maps fee-head name to the amount allocated to that head.
	Breakdown map[string]Money

	ReceiptNo string
	Mode      string
	Remarks   string
	Status    PaymentStatus
	Kind      PaymentKind
}

// Counts reports whether the payment participates in due computation:
// non-cancelled and dated on/after the session start.
func (p Payment) Counts(sessionStart time.Time) bool {
	return p.Status != PaymentCancelled && !p.Date.Before(sessionStart)
}

// =============================================================================
// LINE ITEM - A single owed obligation (derived, never stored)
// =============================================================================

type LineItem struct {
	FeeHead string
	Slot    Slot
	Amount  Money

	// ViaFallback marks items matched through the amount-table fallback for a
	// stale rule class list. A compatibility path, not an error.
	ViaFallback bool
}

// Label renders the slot for display. The one-time slot keeps the wording the
// receipts have always used.
func (li LineItem) Label() string {
	if li.Slot.IsOneTime() {
		return "Admission (Joining Month)"
	}
	return li.Slot.Label()
}
