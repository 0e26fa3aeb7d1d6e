package factory_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schoolworks/fee-engine/engine"
	"github.com/schoolworks/fee-engine/factory"
)

func TestParseRule_FullDefinition(t *testing.T) {
	jsonStr := `{
		"id": "tuition",
		"feeName": "Tuition Fee",
		"status": "ACTIVE",
		"admissionTypes": ["NEW", "OLD"],
		"studentCategories": ["GENERAL"],
		"classes": ["Class 1"],
		"months": ["April", "May"],
		"isRecurring": true,
		"priority": 10
	}`

	rule, err := factory.ParseRule(jsonStr)
	require.NoError(t, err)

	assert.Equal(t, "tuition", rule.ID)
	assert.Equal(t, engine.RuleActive, rule.Status)
	assert.True(t, rule.Recurring)
	require.Len(t, rule.Slots, 2)
	assert.Equal(t, time.April, rule.Slots[0].Month)
}

func TestParseRule_Defaults(t *testing.T) {
	// Status, admission types and categories all default when absent.
	rule, err := factory.ParseRule(`{"id": "annual", "feeName": "Annual Fee", "months": ["Admission_month"]}`)
	require.NoError(t, err)

	assert.Equal(t, engine.RuleActive, rule.Status)
	assert.ElementsMatch(t, []engine.AdmissionType{engine.AdmissionNew, engine.AdmissionOld}, rule.AdmissionTypes)
	assert.Equal(t, []string{engine.DefaultCategory}, rule.Categories)
	require.Len(t, rule.Slots, 1)
	assert.True(t, rule.Slots[0].IsOneTime())
}

func TestParseRule_Rejections(t *testing.T) {
	cases := map[string]string{
		"missing id":       `{"feeName": "X", "months": ["April"]}`,
		"missing name":     `{"id": "x", "months": ["April"]}`,
		"no slots":         `{"id": "x", "feeName": "X", "months": []}`,
		"unknown slot":     `{"id": "x", "feeName": "X", "months": ["Smarch"]}`,
		"unknown status":   `{"id": "x", "feeName": "X", "months": ["April"], "status": "PAUSED"}`,
		"unknown adm type": `{"id": "x", "feeName": "X", "months": ["April"], "admissionTypes": ["TRANSFER"]}`,
	}
	for name, jsonStr := range cases {
		_, err := factory.ParseRule(jsonStr)
		assert.ErrorIs(t, err, engine.ErrInvalidInput, name)
	}
}

func TestParseAmount(t *testing.T) {
	a, err := factory.ParseAmount(`{"feeRuleId": "tuition", "className": "Class 1", "financialYear": "2025-26", "amount": 500}`)
	require.NoError(t, err)
	assert.True(t, engine.NewMoney(500).Equal(a.Amount))

	_, err = factory.ParseAmount(`{"className": "Class 1", "amount": 500}`)
	assert.ErrorIs(t, err, engine.ErrInvalidInput)
}

func TestParseConfig(t *testing.T) {
	cfg, err := factory.ParseConfig(`{"academicYearStartMonth": "June", "feeCollectionType": "ARREARS"}`)
	require.NoError(t, err)

	// Explicit fields kept, absent fields defaulted.
	assert.Equal(t, "June", cfg.AcademicYearStartMonth)
	assert.Equal(t, engine.BillingArrears, cfg.FeeCollectionType)
	assert.Equal(t, 5, cfg.MonthlyFeeDueDate)
	assert.Equal(t, 15, cfg.AdmissionFeeCutoffDate)

	_, err = factory.ParseConfig(`{"monthlyFeeDueDate": 31}`)
	assert.ErrorIs(t, err, engine.ErrInvalidConfig)
}
