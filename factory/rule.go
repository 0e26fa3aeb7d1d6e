/*
Package factory provides JSON to Go fee-catalog conversion.

PURPOSE:
  Converts JSON fee definitions into engine.FeeRule, engine.FeeAmount and
  engine.Config values. This enables catalog configuration without code
  changes - the school office defines fee heads in JSON, and the factory
  creates the proper Go structs.

JSON SCHEMA (fee rule):
  {
    "id": "tuition",
    "feeName": "Tuition Fee",
    "status": "ACTIVE",
    "admissionTypes": ["NEW", "OLD"],
    "studentCategories": ["GENERAL"],
    "classes": ["Class 1", "Class 2"],
    "months": ["April", "May", "...", "March"],
    "isRecurring": true,
    "priority": 10
  }

  The months list uses the same labels the calendar produces, with the
  "Admission_month" sentinel accepted for the one-time slot. Unknown labels
  fail parsing: a rule that silently loses a slot bills the wrong total.

KEY FEATURES:
  - Validates JSON structure and slot labels
  - Sets sensible defaults (ACTIVE status, both admission types, GENERAL)
  - Parses settings JSON into a validated engine.Config

USAGE:
  rule, err := factory.ParseRule(jsonString)
  cfg, err := factory.ParseConfig(settingsJSON)

SEE ALSO:
  - engine/catalog.go: FeeRule and AmountTable definitions
  - engine/policy.go: Config definition and validation
*/
package factory

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/schoolworks/fee-engine/engine"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// RuleJSON is the JSON representation of a fee rule.
type RuleJSON struct {
	ID             string   `json:"id"`
	FeeName        string   `json:"feeName"`
	Status         string   `json:"status,omitempty"`
	AdmissionTypes []string `json:"admissionTypes,omitempty"`
	Categories     []string `json:"studentCategories,omitempty"`
	Classes        []string `json:"classes,omitempty"`
	Months         []string `json:"months"`
	IsRecurring    bool     `json:"isRecurring,omitempty"`
	Priority       int      `json:"priority,omitempty"`
}

// AmountJSON is the JSON representation of one priced class for a rule.
type AmountJSON struct {
	RuleID        string  `json:"feeRuleId"`
	ClassName     string  `json:"className"`
	FinancialYear string  `json:"financialYear,omitempty"`
	Amount        float64 `json:"amount"`
}

// =============================================================================
// RULE PARSING
// =============================================================================

// ParseRule converts a JSON fee rule definition into an engine.FeeRule.
func ParseRule(jsonStr string) (engine.FeeRule, error) {
	var rj RuleJSON
	if err := json.Unmarshal([]byte(jsonStr), &rj); err != nil {
		return engine.FeeRule{}, fmt.Errorf("parsing fee rule JSON: %w", err)
	}
	return RuleFromJSON(rj)
}

// RuleFromJSON builds the engine rule from an already-decoded definition.
func RuleFromJSON(rj RuleJSON) (engine.FeeRule, error) {
	if strings.TrimSpace(rj.ID) == "" {
		return engine.FeeRule{}, &engine.ValidationError{Field: "id", Message: "required"}
	}
	if strings.TrimSpace(rj.FeeName) == "" {
		return engine.FeeRule{}, &engine.ValidationError{Field: "feeName", Message: "required"}
	}
	if len(rj.Months) == 0 {
		return engine.FeeRule{}, &engine.ValidationError{Field: "months", Message: "at least one slot required"}
	}

	status, err := parseStatus(rj.Status)
	if err != nil {
		return engine.FeeRule{}, err
	}
	admissionTypes, err := parseAdmissionTypes(rj.AdmissionTypes)
	if err != nil {
		return engine.FeeRule{}, err
	}

	slots := make([]engine.Slot, 0, len(rj.Months))
	for _, label := range rj.Months {
		slot, ok := engine.ParseSlot(label)
		if !ok {
			return engine.FeeRule{}, &engine.ValidationError{
				Field:   "months",
				Message: fmt.Sprintf("unknown slot label %q", label),
			}
		}
		slots = append(slots, slot)
	}

	categories := rj.Categories
	if len(categories) == 0 {
		categories = []string{engine.DefaultCategory}
	}

	return engine.FeeRule{
		ID:             rj.ID,
		Name:           strings.TrimSpace(rj.FeeName),
		Status:         status,
		AdmissionTypes: admissionTypes,
		Categories:     categories,
		Classes:        rj.Classes,
		Slots:          slots,
		Priority:       rj.Priority,
		Recurring:      rj.IsRecurring,
	}, nil
}

// ParseAmount converts one JSON amount entry. Negative amounts are rejected
// later by engine.NewAmountTable; this keeps one validation home.
func ParseAmount(jsonStr string) (engine.FeeAmount, error) {
	var aj AmountJSON
	if err := json.Unmarshal([]byte(jsonStr), &aj); err != nil {
		return engine.FeeAmount{}, fmt.Errorf("parsing fee amount JSON: %w", err)
	}
	return AmountFromJSON(aj)
}

func AmountFromJSON(aj AmountJSON) (engine.FeeAmount, error) {
	if strings.TrimSpace(aj.RuleID) == "" {
		return engine.FeeAmount{}, &engine.ValidationError{Field: "feeRuleId", Message: "required"}
	}
	if strings.TrimSpace(aj.ClassName) == "" {
		return engine.FeeAmount{}, &engine.ValidationError{Field: "className", Message: "required"}
	}
	return engine.FeeAmount{
		RuleID:        aj.RuleID,
		ClassName:     aj.ClassName,
		FinancialYear: aj.FinancialYear,
		Amount:        engine.NewMoneyFromFloat(aj.Amount),
	}, nil
}

// =============================================================================
// SETTINGS PARSING
// =============================================================================

// ParseConfig decodes fee settings JSON, fills defaults for absent fields and
// validates the result.
func ParseConfig(jsonStr string) (engine.Config, error) {
	var cfg engine.Config
	if err := json.Unmarshal([]byte(jsonStr), &cfg); err != nil {
		return engine.Config{}, fmt.Errorf("parsing fee settings JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return engine.Config{}, err
	}
	return cfg.Normalized(), nil
}

// =============================================================================
// ENUM PARSING
// =============================================================================

func parseStatus(s string) (engine.RuleStatus, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "ACTIVE":
		return engine.RuleActive, nil
	case "INACTIVE":
		return engine.RuleInactive, nil
	default:
		return "", &engine.ValidationError{Field: "status", Message: fmt.Sprintf("unknown status %q", s)}
	}
}

func parseAdmissionTypes(raw []string) ([]engine.AdmissionType, error) {
	if len(raw) == 0 {
		return []engine.AdmissionType{engine.AdmissionNew, engine.AdmissionOld}, nil
	}
	out := make([]engine.AdmissionType, 0, len(raw))
	for _, t := range raw {
		switch strings.ToUpper(strings.TrimSpace(t)) {
		case "NEW":
			out = append(out, engine.AdmissionNew)
		case "OLD":
			out = append(out, engine.AdmissionOld)
		default:
			return nil, &engine.ValidationError{Field: "admissionTypes", Message: fmt.Sprintf("unknown admission type %q", t)}
		}
	}
	return out, nil
}
