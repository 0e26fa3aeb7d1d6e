/*
handlers.go - HTTP API handlers for the fee engine

PURPOSE:
  Exposes the fee computation and collection engine via REST API. Handles
  HTTP request/response, JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Students:
    GET    /api/students                         List all students
    POST   /api/students                         Register or update a student
    GET    /api/students/{admissionNo}           Get student details
    GET    /api/students/{admissionNo}/statement Due statement (schedule + reconciliation)
    GET    /api/students/{admissionNo}/payments  Payment history
    POST   /api/students/{admissionNo}/payments  Record a fee payment

  Payments:
    DELETE /api/payments/{id}                    Cancel a payment

  Fee catalog:
    GET    /api/fees/rules                       List fee rules
    POST   /api/fees/rules                       Create/update a fee rule
    GET    /api/fees/amounts                     List per-class amounts
    POST   /api/fees/amounts                     Price a rule for a class

  Settings:
    GET    /api/settings                         Fee configuration
    PUT    /api/settings                         Update fee configuration

  Reports:
    GET    /api/reports/dues                     School-wide due report
    GET    /api/reports/ledger                   Spreadsheet fee register
    GET    /api/reports/summary                  Cached dues summary

  Sales:
    POST   /api/sales/forms                      Sell an admission form
    POST   /api/sales/inventory                  Sell inventory items

  Scenarios:
    GET    /api/scenarios                        List demo scenarios
    POST   /api/scenarios/load                   Load a demo scenario

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Resource not found
  - 409: Conflict (duplicate receipt)
  - 500: Internal errors

SECURITY NOTE:
  Currently NO authentication or authorization. All endpoints are public.
  Front the server with the school's gateway in production.

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/schoolworks/fee-engine/collect"
	"github.com/schoolworks/fee-engine/engine"
	"github.com/schoolworks/fee-engine/factory"
	"github.com/schoolworks/fee-engine/sales"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Store is everything the API needs from persistence. Both store/memory and
// store/sqlite satisfy it.
type Store interface {
	collect.Store

	SaveStudent(ctx context.Context, s engine.Student) error
	Student(ctx context.Context, admissionNo string) (engine.Student, error)
	Students(ctx context.Context) ([]engine.Student, error)

	SaveRule(ctx context.Context, r engine.FeeRule) error
	Rules(ctx context.Context) ([]engine.FeeRule, error)
	SaveAmount(ctx context.Context, a engine.FeeAmount) error
	Amounts(ctx context.Context) ([]engine.FeeAmount, error)

	SaveConfig(ctx context.Context, cfg engine.Config) error
	Config(ctx context.Context) (engine.Config, error)

	Payments(ctx context.Context) ([]engine.Payment, error)
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store    Store
	Recorder *collect.Recorder
	Sales    *sales.Service

	// Now is the reference clock for due computation. Swappable in tests.
	Now func() time.Time

	validate        *validator.Validate
	currentScenario string
}

// NewHandler creates a new handler with the given store.
func NewHandler(store Store) *Handler {
	recorder := collect.NewRecorder(store, collect.DefaultReceiptPrefix)
	return &Handler{
		Store:    store,
		Recorder: recorder,
		Sales:    sales.NewService(recorder),
		Now:      time.Now,
		validate: validator.New(),
	}
}

// =============================================================================
// STUDENT HANDLERS
// =============================================================================

// ListStudents returns all students.
func (h *Handler) ListStudents(w http.ResponseWriter, r *http.Request) {
	students, err := h.Store.Students(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list students", err)
		return
	}
	dtos := make([]StudentDTO, len(students))
	for i, s := range students {
		dtos[i] = toStudentDTO(s)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetStudent returns a single student.
func (h *Handler) GetStudent(w http.ResponseWriter, r *http.Request) {
	s, err := h.Store.Student(r.Context(), chi.URLParam(r, "admissionNo"))
	if err != nil {
		writeDomainError(w, "Failed to get student", err)
		return
	}
	writeJSON(w, http.StatusOK, toStudentDTO(s))
}

// CreateStudent registers or updates a student.
func (h *Handler) CreateStudent(w http.ResponseWriter, r *http.Request) {
	var req CreateStudentRequest
	if !h.decode(w, r, &req) {
		return
	}

	admissionDate, err := parseDate(req.AdmissionDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid admissionDate format (use YYYY-MM-DD)", err)
		return
	}

	s := engine.Student{
		AdmissionNo:        req.AdmissionNo,
		Name:               req.Name,
		Class:              req.Class,
		Section:            req.Section,
		Category:           req.Category,
		AdmissionType:      engine.AdmissionType(req.AdmissionType),
		AdmissionDate:      admissionDate,
		Session:            req.Session,
		MonthlyFeeOverride: engine.NewMoneyFromFloat(req.MonthlyFee),
	}
	if err := h.Store.SaveStudent(r.Context(), s); err != nil {
		writeDomainError(w, "Failed to save student", err)
		return
	}
	writeJSON(w, http.StatusCreated, toStudentDTO(s))
}

// GetStatement returns the full due statement for a student.
func (h *Handler) GetStatement(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	s, err := h.Store.Student(ctx, chi.URLParam(r, "admissionNo"))
	if err != nil {
		writeDomainError(w, "Failed to get student", err)
		return
	}

	rules, table, cfg, err := h.loadCatalog(ctx)
	if err != nil {
		writeDomainError(w, "Failed to load fee catalog", err)
		return
	}
	payments, err := h.Store.PaymentsByStudent(ctx, s.AdmissionNo)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load payments", err)
		return
	}

	stmt, err := engine.ComputeStatement(s, rules, table, payments, cfg, h.Now())
	if err != nil {
		writeDomainError(w, "Failed to compute statement", err)
		return
	}
	writeJSON(w, http.StatusOK, toStatementDTO(s, stmt))
}

// =============================================================================
// PAYMENT HANDLERS
// =============================================================================

// ListPayments returns a student's payment history.
func (h *Handler) ListPayments(w http.ResponseWriter, r *http.Request) {
	payments, err := h.Store.PaymentsByStudent(r.Context(), chi.URLParam(r, "admissionNo"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load payments", err)
		return
	}
	dtos := make([]PaymentDTO, len(payments))
	for i, p := range payments {
		dtos[i] = toPaymentDTO(p)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// RecordPayment collects a fee payment for a student.
func (h *Handler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	admissionNo := chi.URLParam(r, "admissionNo")

	// The student must exist before money is taken against their account.
	if _, err := h.Store.Student(ctx, admissionNo); err != nil {
		writeDomainError(w, "Failed to get student", err)
		return
	}

	var req RecordPaymentRequest
	if !h.decode(w, r, &req) {
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date format (use YYYY-MM-DD)", err)
		return
	}

	var breakdown map[string]engine.Money
	if len(req.Breakdown) > 0 {
		breakdown = make(map[string]engine.Money, len(req.Breakdown))
		for head, amount := range req.Breakdown {
			breakdown[head] = engine.NewMoneyFromFloat(amount)
		}
	}

	p, err := h.Recorder.Record(ctx, collect.RecordRequest{
		AdmissionNo: admissionNo,
		Date:        date,
		Paid:        engine.NewMoneyFromFloat(req.Paid),
		Discount:    engine.NewMoneyFromFloat(req.Discount),
		PaidFor:     req.PaidFor,
		Breakdown:   breakdown,
		Mode:        req.Mode,
		Remarks:     req.Remarks,
		Kind:        engine.KindSchedule,
	})
	if err != nil {
		writeDomainError(w, "Failed to record payment", err)
		return
	}
	writeJSON(w, http.StatusCreated, toPaymentDTO(p))
}

// CancelPayment voids a payment. The record stays in the log.
func (h *Handler) CancelPayment(w http.ResponseWriter, r *http.Request) {
	if err := h.Recorder.Cancel(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeDomainError(w, "Failed to cancel payment", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}

// =============================================================================
// FEE CATALOG HANDLERS
// =============================================================================

// ListRules returns all fee rules with calendar slot labels.
func (h *Handler) ListRules(w http.ResponseWriter, r *http.Request) {
	rules, err := h.Store.Rules(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list fee rules", err)
		return
	}
	dtos := make([]RuleDTO, len(rules))
	for i, rule := range rules {
		dtos[i] = toRuleDTO(rule)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateRule creates or updates a fee rule from its JSON definition.
func (h *Handler) CreateRule(w http.ResponseWriter, r *http.Request) {
	var rj factory.RuleJSON
	if err := json.NewDecoder(r.Body).Decode(&rj); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	rule, err := factory.RuleFromJSON(rj)
	if err != nil {
		writeDomainError(w, "Invalid fee rule", err)
		return
	}
	if err := h.Store.SaveRule(r.Context(), rule); err != nil {
		writeDomainError(w, "Failed to save fee rule", err)
		return
	}
	writeJSON(w, http.StatusCreated, toRuleDTO(rule))
}

// ListAmounts returns all per-class fee amounts.
func (h *Handler) ListAmounts(w http.ResponseWriter, r *http.Request) {
	amounts, err := h.Store.Amounts(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list fee amounts", err)
		return
	}
	dtos := make([]factory.AmountJSON, len(amounts))
	for i, a := range amounts {
		dtos[i] = factory.AmountJSON{
			RuleID:        a.RuleID,
			ClassName:     a.ClassName,
			FinancialYear: a.FinancialYear,
			Amount:        moneyToFloat(a.Amount),
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateAmount prices a rule for a class.
func (h *Handler) CreateAmount(w http.ResponseWriter, r *http.Request) {
	var aj factory.AmountJSON
	if err := json.NewDecoder(r.Body).Decode(&aj); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	amount, err := factory.AmountFromJSON(aj)
	if err != nil {
		writeDomainError(w, "Invalid fee amount", err)
		return
	}
	if err := h.Store.SaveAmount(r.Context(), amount); err != nil {
		writeDomainError(w, "Failed to save fee amount", err)
		return
	}
	writeJSON(w, http.StatusCreated, aj)
}

// =============================================================================
// SETTINGS HANDLERS
// =============================================================================

// GetSettings returns the fee configuration.
func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.Store.Config(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load settings", err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

// UpdateSettings replaces the fee configuration.
func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var cfg engine.Config
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := h.Store.SaveConfig(r.Context(), cfg); err != nil {
		writeDomainError(w, "Invalid settings", err)
		return
	}
	writeJSON(w, http.StatusOK, cfg.Normalized())
}

// =============================================================================
// REPORT HANDLERS
// =============================================================================

// GetDueReport returns one row per student with their current due.
func (h *Handler) GetDueReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	rows, err := h.buildDueReport(ctx)
	if err != nil {
		writeDomainError(w, "Failed to build due report", err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (h *Handler) buildDueReport(ctx context.Context) ([]DueReportRowDTO, error) {
	students, err := h.Store.Students(ctx)
	if err != nil {
		return nil, err
	}
	rules, table, cfg, err := h.loadCatalog(ctx)
	if err != nil {
		return nil, err
	}
	payments, err := h.Store.Payments(ctx)
	if err != nil {
		return nil, err
	}

	today := h.Now()
	rows := make([]DueReportRowDTO, 0, len(students))
	for _, s := range students {
		stmt, err := engine.ComputeStatement(s, rules, table, payments, cfg, today)
		if err != nil {
			return nil, err
		}
		row := DueReportRowDTO{
			Student:       toStudentDTO(s),
			TotalPayable:  moneyToFloat(stmt.TotalPayable),
			TotalPaid:     moneyToFloat(stmt.TotalPaid),
			TotalDiscount: moneyToFloat(stmt.TotalDiscount),
			Due:           moneyToFloat(stmt.Due),
		}
		if last, ok := stmt.LastPayment(); ok {
			row.LastPayment = last.Date.Format("2006-01-02")
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// GetLedger returns the spreadsheet fee register.
func (h *Handler) GetLedger(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	students, err := h.Store.Students(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list students", err)
		return
	}
	rules, table, cfg, err := h.loadCatalog(ctx)
	if err != nil {
		writeDomainError(w, "Failed to load fee catalog", err)
		return
	}
	payments, err := h.Store.Payments(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load payments", err)
		return
	}

	ledger, err := engine.BuildLedger(students, rules, table, payments, cfg, h.Now())
	if err != nil {
		writeDomainError(w, "Failed to build ledger", err)
		return
	}
	writeJSON(w, http.StatusOK, toLedgerDTO(ledger))
}

// =============================================================================
// SALES HANDLERS
// =============================================================================

// SellForm records an admission form sale.
func (h *Handler) SellForm(w http.ResponseWriter, r *http.Request) {
	var req FormSaleRequest
	if !h.decode(w, r, &req) {
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date format (use YYYY-MM-DD)", err)
		return
	}
	p, err := h.Sales.RecordFormSale(r.Context(), sales.FormSaleRequest{
		PayerName: req.PayerName,
		Date:      date,
		Amount:    engine.NewMoneyFromFloat(req.Amount),
		Mode:      req.Mode,
		Remarks:   req.Remarks,
	})
	if err != nil {
		writeDomainError(w, "Failed to record form sale", err)
		return
	}
	writeJSON(w, http.StatusCreated, toPaymentDTO(p))
}

// SellInventory records an inventory sale.
func (h *Handler) SellInventory(w http.ResponseWriter, r *http.Request) {
	var req InventorySaleRequest
	if !h.decode(w, r, &req) {
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date format (use YYYY-MM-DD)", err)
		return
	}
	items := make([]sales.SaleItem, len(req.Items))
	for i, item := range req.Items {
		items[i] = sales.SaleItem{
			Name:      item.Name,
			Quantity:  item.Quantity,
			UnitPrice: engine.NewMoneyFromFloat(item.UnitPrice),
		}
	}
	p, err := h.Sales.RecordInventorySale(r.Context(), sales.InventorySaleRequest{
		AdmissionNo: req.AdmissionNo,
		Date:        date,
		Items:       items,
		Mode:        req.Mode,
		Remarks:     req.Remarks,
	})
	if err != nil {
		writeDomainError(w, "Failed to record inventory sale", err)
		return
	}
	writeJSON(w, http.StatusCreated, toPaymentDTO(p))
}

// =============================================================================
// SHARED HELPERS
// =============================================================================

// loadCatalog fetches the rule set, the amount table and the settings in one
// place so every read path sees a consistent trio.
func (h *Handler) loadCatalog(ctx context.Context) ([]engine.FeeRule, *engine.AmountTable, engine.Config, error) {
	rules, err := h.Store.Rules(ctx)
	if err != nil {
		return nil, nil, engine.Config{}, err
	}
	amounts, err := h.Store.Amounts(ctx)
	if err != nil {
		return nil, nil, engine.Config{}, err
	}
	table, err := engine.NewAmountTable(amounts)
	if err != nil {
		return nil, nil, engine.Config{}, err
	}
	cfg, err := h.Store.Config(ctx)
	if err != nil {
		return nil, nil, engine.Config{}, err
	}
	return rules, table, cfg, nil
}

// decode parses and validates a JSON request body. Writes the error response
// itself and reports whether the caller should proceed.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Validation failed", err)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps engine errors onto HTTP statuses.
func writeDomainError(w http.ResponseWriter, message string, err error) {
	switch {
	case engine.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	case errors.Is(err, engine.ErrDuplicateReceipt):
		writeError(w, http.StatusConflict, message, err)
	case engine.IsClientError(err):
		writeError(w, http.StatusBadRequest, message, err)
	default:
		writeError(w, http.StatusInternalServerError, message, err)
	}
}
