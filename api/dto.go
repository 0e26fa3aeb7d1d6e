/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

MONEY:
  Requests carry amounts as JSON numbers for client convenience; they are
  converted to decimal at the boundary and stay decimal everywhere inside.
  Responses render amounts back as numbers.

VALIDATION:
  Request structs carry go-playground/validator tags; handlers run the
  shared validator before touching domain logic.

SEE ALSO:
  - handlers.go: Uses these types
  - factory/rule.go: RuleJSON and AmountJSON types
*/
package api

import (
	"time"

	"github.com/schoolworks/fee-engine/engine"
)

// =============================================================================
// REQUEST TYPES
// =============================================================================

// CreateStudentRequest is the request to register or update a student.
type CreateStudentRequest struct {
	AdmissionNo   string  `json:"admissionNo" validate:"required"`
	Name          string  `json:"name" validate:"required"`
	Class         string  `json:"class" validate:"required"`
	Section       string  `json:"section,omitempty"`
	Category      string  `json:"category,omitempty"`
	AdmissionType string  `json:"admissionType,omitempty" validate:"omitempty,oneof=NEW OLD"`
	AdmissionDate string  `json:"admissionDate" validate:"required"`
	Session       string  `json:"session,omitempty"`
	MonthlyFee    float64 `json:"monthlyFee,omitempty" validate:"gte=0"`
}

// RecordPaymentRequest is the request to collect a fee payment.
type RecordPaymentRequest struct {
	Date      string             `json:"date" validate:"required"`
	Paid      float64            `json:"paid" validate:"gte=0"`
	Discount  float64            `json:"discount" validate:"gte=0"`
	PaidFor   []string           `json:"paidFor,omitempty"`
	Breakdown map[string]float64 `json:"feeBreakdown,omitempty"`
	Mode      string             `json:"mode,omitempty"`
	Remarks   string             `json:"remarks,omitempty"`
}

// FormSaleRequest is the request to sell an admission form.
type FormSaleRequest struct {
	PayerName string  `json:"payerName" validate:"required"`
	Date      string  `json:"date" validate:"required"`
	Amount    float64 `json:"amount" validate:"gt=0"`
	Mode      string  `json:"mode,omitempty"`
	Remarks   string  `json:"remarks,omitempty"`
}

// InventorySaleRequest is the request to sell inventory items.
type InventorySaleRequest struct {
	AdmissionNo string          `json:"admissionNo" validate:"required"`
	Date        string          `json:"date" validate:"required"`
	Items       []SaleItemInput `json:"items" validate:"required,min=1,dive"`
	Mode        string          `json:"mode,omitempty"`
	Remarks     string          `json:"remarks,omitempty"`
}

type SaleItemInput struct {
	Name      string  `json:"name" validate:"required"`
	Quantity  int     `json:"quantity" validate:"gt=0"`
	UnitPrice float64 `json:"unitPrice" validate:"gte=0"`
}

// LoadScenarioRequest selects a demo scenario.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id" validate:"required"`
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// StudentDTO represents a student in API responses.
type StudentDTO struct {
	AdmissionNo   string  `json:"admissionNo"`
	Name          string  `json:"name"`
	Class         string  `json:"class"`
	Section       string  `json:"section,omitempty"`
	Category      string  `json:"category"`
	AdmissionType string  `json:"admissionType"`
	AdmissionDate string  `json:"admissionDate,omitempty"`
	Session       string  `json:"session,omitempty"`
	MonthlyFee    float64 `json:"monthlyFee,omitempty"`
}

// LineItemDTO represents one owed obligation.
type LineItemDTO struct {
	FeeHead     string  `json:"feeHead"`
	Slot        string  `json:"slot"`
	Amount      float64 `json:"amount"`
	ViaFallback bool    `json:"viaFallback,omitempty"`
}

// PaymentDTO represents a payment in API responses.
type PaymentDTO struct {
	ID          string             `json:"id"`
	AdmissionNo string             `json:"admissionNo,omitempty"`
	PayerName   string             `json:"payerName,omitempty"`
	Date        string             `json:"date"`
	Paid        float64            `json:"paid"`
	Discount    float64            `json:"discount"`
	PaidFor     []string           `json:"paidFor,omitempty"`
	Breakdown   map[string]float64 `json:"feeBreakdown,omitempty"`
	ReceiptNo   string             `json:"receiptNo"`
	Mode        string             `json:"mode,omitempty"`
	Remarks     string             `json:"remarks,omitempty"`
	Status      string             `json:"status"`
	Kind        string             `json:"kind"`
}

// StatementDTO is the reconciled due view for one student.
type StatementDTO struct {
	Student       StudentDTO    `json:"student"`
	TotalPayable  float64       `json:"totalPayable"`
	TotalPaid     float64       `json:"totalPaid"`
	TotalDiscount float64       `json:"totalDiscount"`
	Due           float64       `json:"due"`
	LineItems     []LineItemDTO `json:"lineItems"`
	Payments      []PaymentDTO  `json:"payments"`
}

// DueReportRowDTO is one row of the school-wide due report.
type DueReportRowDTO struct {
	Student       StudentDTO `json:"student"`
	TotalPayable  float64    `json:"totalPayable"`
	TotalPaid     float64    `json:"totalPaid"`
	TotalDiscount float64    `json:"totalDiscount"`
	Due           float64    `json:"due"`
	LastPayment   string     `json:"lastPaymentDate,omitempty"`
}

// LedgerColumnDTO / LedgerRowDTO render the spreadsheet register.
type LedgerColumnDTO struct {
	Key   string `json:"key"`
	Title string `json:"title"`
	Kind  string `json:"kind"`
}

type LedgerCellEntryDTO struct {
	ReceiptNo string  `json:"receiptNo"`
	Amount    float64 `json:"amount"`
}

type LedgerRowDTO struct {
	Student   StudentDTO                      `json:"student"`
	Cells     map[string][]LedgerCellEntryDTO `json:"cells"`
	TotalPaid float64                         `json:"totalPaid"`
}

type LedgerDTO struct {
	Columns []LedgerColumnDTO `json:"columns"`
	Rows    []LedgerRowDTO    `json:"rows"`
}

// RuleDTO represents a fee rule with calendar slot labels.
type RuleDTO struct {
	ID             string   `json:"id"`
	Name           string   `json:"feeName"`
	Status         string   `json:"status"`
	AdmissionTypes []string `json:"admissionTypes"`
	Categories     []string `json:"studentCategories"`
	Classes        []string `json:"classes,omitempty"`
	Months         []string `json:"months"`
	Recurring      bool     `json:"isRecurring"`
	Priority       int      `json:"priority,omitempty"`
}

// SummaryDTO is the cached school-wide dues snapshot.
type SummaryDTO struct {
	Students      int     `json:"students"`
	TotalPayable  float64 `json:"totalPayable"`
	TotalPaid     float64 `json:"totalPaid"`
	TotalDiscount float64 `json:"totalDiscount"`
	TotalDue      float64 `json:"totalDue"`
	Defaulters    int     `json:"defaulters"`
	RefreshedAt   string  `json:"refreshedAt,omitempty"`
}

// ScenarioDTO represents a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toStudentDTO(s engine.Student) StudentDTO {
	dto := StudentDTO{
		AdmissionNo:   s.AdmissionNo,
		Name:          s.Name,
		Class:         s.Class,
		Section:       s.Section,
		Category:      s.EffectiveCategory(),
		AdmissionType: string(s.EffectiveAdmissionType()),
		Session:       s.Session,
	}
	if !s.AdmissionDate.IsZero() {
		dto.AdmissionDate = s.AdmissionDate.Format("2006-01-02")
	}
	if s.MonthlyFeeOverride.IsPositive() {
		dto.MonthlyFee = moneyToFloat(s.MonthlyFeeOverride)
	}
	return dto
}

func toLineItemDTO(li engine.LineItem) LineItemDTO {
	return LineItemDTO{
		FeeHead:     li.FeeHead,
		Slot:        li.Label(),
		Amount:      moneyToFloat(li.Amount),
		ViaFallback: li.ViaFallback,
	}
}

func toPaymentDTO(p engine.Payment) PaymentDTO {
	dto := PaymentDTO{
		ID:          p.ID,
		AdmissionNo: p.AdmissionNo,
		PayerName:   p.PayerName,
		Date:        p.Date.Format("2006-01-02"),
		Paid:        moneyToFloat(p.Paid),
		Discount:    moneyToFloat(p.Discount),
		PaidFor:     p.PaidFor,
		ReceiptNo:   p.ReceiptNo,
		Mode:        p.Mode,
		Remarks:     p.Remarks,
		Status:      string(p.Status),
		Kind:        string(p.Kind),
	}
	if len(p.Breakdown) > 0 {
		dto.Breakdown = make(map[string]float64, len(p.Breakdown))
		for head, amount := range p.Breakdown {
			dto.Breakdown[head] = moneyToFloat(amount)
		}
	}
	return dto
}

func toStatementDTO(s engine.Student, stmt engine.DueStatement) StatementDTO {
	items := make([]LineItemDTO, len(stmt.LineItems))
	for i, li := range stmt.LineItems {
		items[i] = toLineItemDTO(li)
	}
	payments := make([]PaymentDTO, len(stmt.Payments))
	for i, p := range stmt.Payments {
		payments[i] = toPaymentDTO(p)
	}
	return StatementDTO{
		Student:       toStudentDTO(s),
		TotalPayable:  moneyToFloat(stmt.TotalPayable),
		TotalPaid:     moneyToFloat(stmt.TotalPaid),
		TotalDiscount: moneyToFloat(stmt.TotalDiscount),
		Due:           moneyToFloat(stmt.Due),
		LineItems:     items,
		Payments:      payments,
	}
}

func toLedgerDTO(l engine.Ledger) LedgerDTO {
	columns := make([]LedgerColumnDTO, len(l.Columns))
	for i, c := range l.Columns {
		columns[i] = LedgerColumnDTO{Key: c.Key, Title: c.Title, Kind: string(c.Kind)}
	}
	rows := make([]LedgerRowDTO, len(l.Rows))
	for i, row := range l.Rows {
		cells := make(map[string][]LedgerCellEntryDTO, len(row.Cells))
		for key, cell := range row.Cells {
			entries := make([]LedgerCellEntryDTO, len(cell.Entries))
			for j, e := range cell.Entries {
				entries[j] = LedgerCellEntryDTO{ReceiptNo: e.ReceiptNo, Amount: moneyToFloat(e.Amount)}
			}
			cells[key] = entries
		}
		rows[i] = LedgerRowDTO{
			Student:   toStudentDTO(row.Student),
			Cells:     cells,
			TotalPaid: moneyToFloat(row.TotalPaid),
		}
	}
	return LedgerDTO{Columns: columns, Rows: rows}
}

func toRuleDTO(r engine.FeeRule) RuleDTO {
	types := make([]string, len(r.AdmissionTypes))
	for i, t := range r.AdmissionTypes {
		types[i] = string(t)
	}
	months := make([]string, len(r.Slots))
	for i, slot := range r.Slots {
		months[i] = slot.Label()
	}
	return RuleDTO{
		ID:             r.ID,
		Name:           r.Name,
		Status:         string(r.Status),
		AdmissionTypes: types,
		Categories:     r.Categories,
		Classes:        r.Classes,
		Months:         months,
		Recurring:      r.Recurring,
		Priority:       r.Priority,
	}
}

func moneyToFloat(m engine.Money) float64 {
	f, _ := m.Value.Float64()
	return f
}

func parseDate(s string) (time.Time, error) {
	return time.Parse("2006-01-02", s)
}
