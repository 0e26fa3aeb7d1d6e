/*
ledger.go - Spreadsheet-style reconciliation view

PURPOSE:
  Builds the fee register an auditor reads: columns are fee obligations,
  rows are students, cells hold the receipt(s) and amount(s) that satisfied
  that obligation. Every cell traces back to source receipts.

COLUMN LAYOUT:
  {one-time fee heads} then the twelve months in academic order, with any
  month-scoped exam-fee head inserted as its own column immediately before
  its month. Remaining recurring heads fold into the month columns.

PAYMENT PLACEMENT:
  Named breakdown entries allocate to their matching one-time/exam columns.
  Whatever the named entries don't explain splits evenly across the month
  labels in the payment's paidFor field - but only when the breakdown names
  no one-time/exam head, so a specialty payment is never smeared into
  generic month cells.

FAILURE POLICY:
  A paidFor label outside the resolved calendar loses ledger placement and
  nothing else. Placement failure must never affect the financial total;
  that is ComputeDue's job and it does not read this view.
*/
package engine

import (
	"sort"
	"strings"
	"time"
)

// =============================================================================
// LEDGER MODEL
// =============================================================================

type ColumnKind string

const (
	ColumnOneTime ColumnKind = "ONE_TIME"
	ColumnExam    ColumnKind = "EXAM"
	ColumnMonth   ColumnKind = "MONTH"
)

type Column struct {
	Key   string // stable cell key
	Title string
	Kind  ColumnKind
	Month time.Month // the associated month for EXAM and MONTH columns
}

// CellEntry is one receipt's contribution to one obligation.
type CellEntry struct {
	ReceiptNo string
	Amount    Money
}

type Cell struct {
	Entries []CellEntry
}

func (c Cell) Total() Money {
	total := Zero()
	for _, e := range c.Entries {
		total = total.Add(e.Amount)
	}
	return total
}

type Row struct {
	Student   Student
	Cells     map[string]Cell // column key -> cell
	TotalPaid Money           // non-cancelled payments, whether placed or not
}

type Ledger struct {
	Columns []Column
	Rows    []Row
}

// =============================================================================
// LEDGER BUILDER
// =============================================================================

// BuildLedger assembles the register for a set of students. payments may be
// the raw school-wide log; rows pick their own records by admission number.
func BuildLedger(students []Student, rules []FeeRule, table *AmountTable, payments []Payment, cfg Config, today time.Time) (Ledger, error) {
	if err := cfg.Validate(); err != nil {
		return Ledger{}, err
	}
	cal := cfg.Calendar()
	columns := buildColumns(rules, cal)

	// Index the one-time/exam columns by lowercased title for breakdown
	// matching, and the month columns by month.
	specialByName := make(map[string]string)
	monthKey := make(map[time.Month]string)
	for _, col := range columns {
		switch col.Kind {
		case ColumnOneTime, ColumnExam:
			specialByName[strings.ToLower(col.Title)] = col.Key
		case ColumnMonth:
			monthKey[col.Month] = col.Key
		}
	}

	byStudent := make(map[string][]Payment)
	for _, p := range payments {
		byStudent[p.AdmissionNo] = append(byStudent[p.AdmissionNo], p)
	}

	rows := make([]Row, 0, len(students))
	for _, s := range students {
		row := Row{Student: s, Cells: make(map[string]Cell), TotalPaid: Zero()}
		for _, p := range byStudent[s.AdmissionNo] {
			if p.Status == PaymentCancelled {
				continue
			}
			row.TotalPaid = row.TotalPaid.Add(p.Paid)
			if p.Kind != KindSchedule && p.Kind != "" {
				// Form/inventory sales have no obligation column.
				continue
			}
			placePayment(&row, p, specialByName, monthKey)
		}
		rows = append(rows, row)
	}

	return Ledger{Columns: columns, Rows: rows}, nil
}

// placePayment allocates one payment's money into row cells.
func placePayment(row *Row, p Payment, specialByName map[string]string, monthKey map[time.Month]string) {
	allocated := Zero()
	hasSpecial := false

	heads := make([]string, 0, len(p.Breakdown))
	for head := range p.Breakdown {
		heads = append(heads, head)
	}
	sort.Strings(heads)

	for _, head := range heads {
		amount := p.Breakdown[head]
		if !amount.IsPositive() {
			continue
		}
		key, ok := specialByName[strings.ToLower(strings.TrimSpace(head))]
		if !ok {
			continue
		}
		addEntry(row, key, p.ReceiptNo, amount)
		allocated = allocated.Add(amount)
		hasSpecial = true
	}

	if hasSpecial {
		// A specialty payment: the remainder stays unplaced rather than being
		// misattributed into generic month cells.
		return
	}

	remainder := p.Paid.Sub(allocated)
	if !remainder.IsPositive() {
		return
	}

	var keys []string
	for _, label := range p.PaidFor {
		slot, ok := ParseSlot(label)
		if !ok || slot.IsOneTime() {
			continue // unknown label: skip placement, never the total
		}
		key, ok := monthKey[slot.Month]
		if !ok {
			continue
		}
		keys = append(keys, key)
	}
	if len(keys) == 0 {
		return
	}

	shares := remainder.Split(len(keys))
	for i, key := range keys {
		addEntry(row, key, p.ReceiptNo, shares[i])
	}
}

func addEntry(row *Row, key, receiptNo string, amount Money) {
	cell := row.Cells[key]
	cell.Entries = append(cell.Entries, CellEntry{ReceiptNo: receiptNo, Amount: amount})
	row.Cells[key] = cell
}

// =============================================================================
// COLUMN CONSTRUCTION
// =============================================================================

func buildColumns(rules []FeeRule, cal Calendar) []Column {
	var oneTime []FeeRule
	examByMonth := make(map[time.Month][]FeeRule)

	for _, r := range rules {
		if !r.Active() {
			continue
		}
		switch {
		case r.IsOneTimeOnly():
			oneTime = append(oneTime, r)
		case r.IsExamFee():
			if m, ok := r.FirstMonth(cal); ok {
				examByMonth[m] = append(examByMonth[m], r)
			}
		}
	}

	sort.SliceStable(oneTime, func(i, j int) bool {
		if oneTime[i].Priority != oneTime[j].Priority {
			return oneTime[i].Priority < oneTime[j].Priority
		}
		return oneTime[i].Name < oneTime[j].Name
	})

	var columns []Column
	for _, r := range oneTime {
		columns = append(columns, Column{
			Key:   "head:" + r.Name,
			Title: r.Name,
			Kind:  ColumnOneTime,
		})
	}
	for _, m := range cal.Months() {
		exams := examByMonth[m]
		sort.SliceStable(exams, func(i, j int) bool { return exams[i].Name < exams[j].Name })
		for _, r := range exams {
			columns = append(columns, Column{
				Key:   "head:" + r.Name,
				Title: r.Name,
				Kind:  ColumnExam,
				Month: m,
			})
		}
		columns = append(columns, Column{
			Key:   "month:" + m.String(),
			Title: m.String(),
			Kind:  ColumnMonth,
			Month: m,
		})
	}
	return columns
}
