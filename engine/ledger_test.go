package engine_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schoolworks/fee-engine/engine"
)

// =============================================================================
// FIXTURES
// =============================================================================

func examRule(name string, m time.Month) engine.FeeRule {
	return engine.FeeRule{
		ID:             "exam-" + m.String(),
		Name:           name,
		Status:         engine.RuleActive,
		AdmissionTypes: []engine.AdmissionType{engine.AdmissionNew, engine.AdmissionOld},
		Categories:     []string{"GENERAL"},
		Classes:        []string{"Class 1"},
		Slots:          []engine.Slot{engine.MonthSlot(m)},
	}
}

func ledgerRules() []engine.FeeRule {
	return []engine.FeeRule{
		tuitionRule(),
		annualRule(),
		admissionRule(),
		examRule("Half Yearly Exam Fee", time.September),
	}
}

func columnKeys(l engine.Ledger) []string {
	keys := make([]string, 0, len(l.Columns))
	for _, c := range l.Columns {
		keys = append(keys, c.Key)
	}
	return keys
}

func buildLedger(t *testing.T, students []engine.Student, payments []engine.Payment) engine.Ledger {
	t.Helper()
	table := amounts(t, amt("tuition", "Class 1", 500))
	l, err := engine.BuildLedger(students, ledgerRules(), table, payments, engine.DefaultConfig(), date(2025, time.October, 1))
	require.NoError(t, err)
	return l
}

// =============================================================================
// COLUMN LAYOUT
// =============================================================================

func TestBuildLedger_ColumnLayout(t *testing.T) {
	// GIVEN: Two one-time heads, a September exam fee, and monthly tuition
	// THEN: One-time columns first, then months in academic order with the
	//       exam column inserted immediately before September

	l := buildLedger(t, nil, nil)
	keys := columnKeys(l)

	// 2 one-time + 1 exam + 12 months.
	require.Len(t, keys, 15)

	assert.Equal(t, "head:Admission Fee", keys[0])
	assert.Equal(t, "head:Annual Fee", keys[1])
	assert.Equal(t, "month:April", keys[2])

	// September sits at academic position 5; the exam column precedes it.
	assert.Equal(t, "head:Half Yearly Exam Fee", keys[7])
	assert.Equal(t, "month:September", keys[8])
	assert.Equal(t, "month:March", keys[14])
}

func TestBuildLedger_InactiveRulesGetNoColumn(t *testing.T) {
	rules := ledgerRules()
	rules[1].Status = engine.RuleInactive // Annual Fee

	table := amounts(t, amt("tuition", "Class 1", 500))
	l, err := engine.BuildLedger(nil, rules, table, nil, engine.DefaultConfig(), date(2025, time.October, 1))
	require.NoError(t, err)

	assert.NotContains(t, columnKeys(l), "head:Annual Fee")
}

// =============================================================================
// PAYMENT PLACEMENT
// =============================================================================

func TestBuildLedger_TwoMonthPayment_SplitsEvenlyAndSumsBack(t *testing.T) {
	// GIVEN: A 1000 payment covering April and May
	// THEN: 500 in each month cell, and the cells sum back to the payment

	s := oldStudent()
	p := payment(s.AdmissionNo, date(2025, time.May, 6), 1000)
	p.ReceiptNo = "SCH-0001"
	p.PaidFor = []string{"April", "May"}

	l := buildLedger(t, []engine.Student{s}, []engine.Payment{p})
	require.Len(t, l.Rows, 1)
	row := l.Rows[0]

	april := row.Cells["month:April"]
	may := row.Cells["month:May"]
	require.Len(t, april.Entries, 1)
	assert.Equal(t, "SCH-0001", april.Entries[0].ReceiptNo)
	assert.True(t, engine.NewMoney(500).Equal(april.Total()))
	assert.True(t, engine.NewMoney(500).Equal(may.Total()))
	assert.True(t, engine.NewMoney(1000).Equal(april.Total().Add(may.Total())))
	assert.True(t, engine.NewMoney(1000).Equal(row.TotalPaid))
}

func TestBuildLedger_ThreeWaySplit_LastShareAbsorbsRemainder(t *testing.T) {
	// 1000 over three months does not divide evenly; the cells must still
	// conserve the full amount.
	s := oldStudent()
	p := payment(s.AdmissionNo, date(2025, time.June, 6), 1000)
	p.ReceiptNo = "SCH-0002"
	p.PaidFor = []string{"April", "May", "June"}

	l := buildLedger(t, []engine.Student{s}, []engine.Payment{p})
	row := l.Rows[0]

	total := engine.Zero()
	for _, key := range []string{"month:April", "month:May", "month:June"} {
		total = total.Add(row.Cells[key].Total())
	}
	assert.True(t, engine.NewMoney(1000).Equal(total))
}

func TestBuildLedger_BreakdownRoutesToNamedColumns(t *testing.T) {
	// GIVEN: A payment whose breakdown names the annual and exam heads
	// THEN: Those amounts land in their own columns and the remainder is
	//       NOT smeared across month cells

	s := oldStudent()
	p := payment(s.AdmissionNo, date(2025, time.September, 10), 1800)
	p.ReceiptNo = "SCH-0003"
	p.PaidFor = []string{"September"}
	p.Breakdown = map[string]engine.Money{
		"Annual Fee":           engine.NewMoney(1000),
		"Half Yearly Exam Fee": engine.NewMoney(300),
	}

	l := buildLedger(t, []engine.Student{s}, []engine.Payment{p})
	row := l.Rows[0]

	assert.True(t, engine.NewMoney(1000).Equal(row.Cells["head:Annual Fee"].Total()))
	assert.True(t, engine.NewMoney(300).Equal(row.Cells["head:Half Yearly Exam Fee"].Total()))
	assert.Empty(t, row.Cells["month:September"].Entries)
	assert.True(t, engine.NewMoney(1800).Equal(row.TotalPaid))
}

func TestBuildLedger_UnknownPaidForLabel_LosesPlacementNotTotal(t *testing.T) {
	s := oldStudent()
	p := payment(s.AdmissionNo, date(2025, time.May, 6), 600)
	p.PaidFor = []string{"Smarch", "May"}

	l := buildLedger(t, []engine.Student{s}, []engine.Payment{p})
	row := l.Rows[0]

	// The full 600 lands on the one recognized month.
	assert.True(t, engine.NewMoney(600).Equal(row.Cells["month:May"].Total()))
	assert.True(t, engine.NewMoney(600).Equal(row.TotalPaid))
}

func TestBuildLedger_CancelledPaymentsExcluded(t *testing.T) {
	s := oldStudent()
	p := payment(s.AdmissionNo, date(2025, time.May, 6), 500)
	p.PaidFor = []string{"May"}
	p.Status = engine.PaymentCancelled

	l := buildLedger(t, []engine.Student{s}, []engine.Payment{p})
	row := l.Rows[0]

	assert.Empty(t, row.Cells["month:May"].Entries)
	assert.True(t, row.TotalPaid.IsZero())
}

func TestBuildLedger_SalePaymentsCountInTotalButGetNoCell(t *testing.T) {
	s := oldStudent()
	sale := payment(s.AdmissionNo, date(2025, time.May, 6), 150)
	sale.Kind = engine.KindFormSale
	sale.PaidFor = []string{"May"}

	l := buildLedger(t, []engine.Student{s}, []engine.Payment{sale})
	row := l.Rows[0]

	assert.Empty(t, row.Cells)
	assert.True(t, engine.NewMoney(150).Equal(row.TotalPaid))
}

func TestBuildLedger_RowsOnlyReadOwnPayments(t *testing.T) {
	a := oldStudent()
	b := newStudent()
	pa := payment(a.AdmissionNo, date(2025, time.April, 10), 500)
	pa.PaidFor = []string{"April"}

	l := buildLedger(t, []engine.Student{a, b}, []engine.Payment{pa})
	require.Len(t, l.Rows, 2)

	assert.True(t, engine.NewMoney(500).Equal(l.Rows[0].TotalPaid))
	assert.True(t, l.Rows[1].TotalPaid.IsZero())
}
