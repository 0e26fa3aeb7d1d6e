/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the store with realistic
	data for testing and demos. Each scenario creates students, fee rules,
	per-class amounts, settings, and payments that demonstrate specific
	billing behaviors.

AVAILABLE SCENARIOS:

	small-school:      A class of students mid-session with partial payments
	new-admission:     NEW student admitted near the cutoff boundary
	arrears-billing:   Same catalog billed in arrears

HOW SCENARIOS WORK:
 1. Create fee rules via factory JSON (the same path the admin UI uses)
 2. Price each rule per class
 3. Register students
 4. Record payments through the recorder so receipts sequence normally

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "small-school"}

NOTE:

	Scenarios write into the live store. Only use with a fresh store in
	development/demo environments.

SEE ALSO:
  - handlers.go: LoadScenario, ListScenarios handlers
  - factory/rule.go: Fee rule JSON definitions
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/schoolworks/fee-engine/collect"
	"github.com/schoolworks/fee-engine/engine"
	"github.com/schoolworks/fee-engine/factory"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "small-school",
		Name:        "Small School",
		Description: "One class mid-session: tuition, annual and admission fees with partial payments",
	},
	{
		ID:          "new-admission",
		Name:        "New Admission",
		Description: "Students admitted on either side of the cutoff date showing proration",
	},
	{
		ID:          "arrears-billing",
		Name:        "Arrears Billing",
		Description: "The same catalog billed in arrears: each month falls due the following month",
	},
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	if h.currentScenario == "" {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	for _, s := range scenarios {
		if s.ID == h.currentScenario {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusOK, ScenarioDTO{
		ID:          h.currentScenario,
		Name:        h.currentScenario,
		Description: "Currently loaded scenario",
	})
}

// LoadScenario loads a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ScenarioID string `json:"scenario_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	ctx := r.Context()
	var err error
	switch req.ScenarioID {
	case "small-school":
		err = loadSmallSchoolScenario(ctx, h)
	case "new-admission":
		err = loadNewAdmissionScenario(ctx, h)
	case "arrears-billing":
		err = loadArrearsBillingScenario(ctx, h)
	default:
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Unknown scenario: %s", req.ScenarioID), nil)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load scenario", err)
		return
	}

	h.currentScenario = req.ScenarioID
	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "scenario": req.ScenarioID})
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

func seedCatalog(ctx context.Context, h *Handler) error {
	ruleDefs := []string{
		`{
			"id": "tuition",
			"feeName": "Tuition Fee",
			"months": ["April","May","June","July","August","September","October","November","December","January","February","March"],
			"isRecurring": true
		}`,
		`{
			"id": "annual",
			"feeName": "Annual Fee",
			"months": ["Admission_month"],
			"priority": 2
		}`,
		`{
			"id": "admission",
			"feeName": "Admission Fee",
			"admissionTypes": ["NEW"],
			"months": ["Admission_month"],
			"priority": 1
		}`,
		`{
			"id": "exam-half-yearly",
			"feeName": "Half Yearly Exam Fee",
			"months": ["September"]
		}`,
	}
	for _, def := range ruleDefs {
		rule, err := factory.ParseRule(def)
		if err != nil {
			return err
		}
		if err := h.Store.SaveRule(ctx, rule); err != nil {
			return err
		}
	}

	amounts := []factory.AmountJSON{
		{RuleID: "tuition", ClassName: "Class 1", FinancialYear: "2025-26", Amount: 500},
		{RuleID: "annual", ClassName: "Class 1", FinancialYear: "2025-26", Amount: 1000},
		{RuleID: "admission", ClassName: "Class 1", FinancialYear: "2025-26", Amount: 300},
		{RuleID: "exam-half-yearly", ClassName: "Class 1", FinancialYear: "2025-26", Amount: 250},
	}
	for _, aj := range amounts {
		amount, err := factory.AmountFromJSON(aj)
		if err != nil {
			return err
		}
		if err := h.Store.SaveAmount(ctx, amount); err != nil {
			return err
		}
	}
	return nil
}

func seedStudent(ctx context.Context, h *Handler, admissionNo, name string, admType engine.AdmissionType, admitted time.Time) (engine.Student, error) {
	s := engine.Student{
		AdmissionNo:   admissionNo,
		Name:          name,
		Class:         "Class 1",
		Section:       "A",
		AdmissionType: admType,
		AdmissionDate: admitted,
		Session:       "2025-26",
	}
	return s, h.Store.SaveStudent(ctx, s)
}

func loadSmallSchoolScenario(ctx context.Context, h *Handler) error {
	if err := seedCatalog(ctx, h); err != nil {
		return err
	}
	if err := h.Store.SaveConfig(ctx, engine.DefaultConfig()); err != nil {
		return err
	}

	type seed struct {
		admissionNo string
		name        string
		paid        float64
		paidFor     []string
	}
	seeds := []seed{
		{"ADM-1001", "Asha Verma", 2500, []string{"April", "May", "June"}},
		{"ADM-1002", "Rohan Gupta", 1500, []string{"April", "May"}},
		{"ADM-1003", "Meera Iyer", 0, nil},
	}

	for _, sd := range seeds {
		s, err := seedStudent(ctx, h, sd.admissionNo, sd.name, engine.AdmissionOld, date(2023, time.April, 5))
		if err != nil {
			return err
		}
		if sd.paid > 0 {
			_, err = h.Recorder.Record(ctx, collect.RecordRequest{
				AdmissionNo: s.AdmissionNo,
				Date:        date(2025, time.June, 10),
				Paid:        engine.NewMoneyFromFloat(sd.paid),
				PaidFor:     sd.paidFor,
				Mode:        "CASH",
			})
			if err != nil {
				return err
			}
		}
	}
	return nil
}

func loadNewAdmissionScenario(ctx context.Context, h *Handler) error {
	if err := seedCatalog(ctx, h); err != nil {
		return err
	}
	if err := h.Store.SaveConfig(ctx, engine.DefaultConfig()); err != nil {
		return err
	}

	// One student each side of the cutoff (15th).
	if _, err := seedStudent(ctx, h, "ADM-2001", "Kiran Shah", engine.AdmissionNew, date(2025, time.June, 14)); err != nil {
		return err
	}
	if _, err := seedStudent(ctx, h, "ADM-2002", "Divya Nair", engine.AdmissionNew, date(2025, time.June, 18)); err != nil {
		return err
	}

	// The on-cutoff student paid admission + annual on joining day.
	_, err := h.Recorder.Record(ctx, collect.RecordRequest{
		AdmissionNo: "ADM-2001",
		Date:        date(2025, time.June, 14),
		Paid:        engine.NewMoneyFromFloat(1300),
		Breakdown: map[string]engine.Money{
			"Admission Fee": engine.NewMoneyFromFloat(300),
			"Annual Fee":    engine.NewMoneyFromFloat(1000),
		},
		Mode: "CASH",
	})
	return err
}

func loadArrearsBillingScenario(ctx context.Context, h *Handler) error {
	if err := seedCatalog(ctx, h); err != nil {
		return err
	}
	cfg := engine.DefaultConfig()
	cfg.FeeCollectionType = engine.BillingArrears
	if err := h.Store.SaveConfig(ctx, cfg); err != nil {
		return err
	}

	_, err := seedStudent(ctx, h, "ADM-3001", "Vikas Rao", engine.AdmissionOld, date(2024, time.April, 2))
	return err
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
