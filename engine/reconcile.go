/*
reconcile.go - Due computation against the append-only payment log

PURPOSE:
  Reduces the payment log into the student's outstanding due:

      due = totalPayable - totalPaid - totalDiscount

  summed only over non-cancelled payments dated within the active session
  window. The reduction is pure: re-running it twice over the same inputs
  yields identical figures, and no stored record is ever mutated to produce
  a due. Cancelled payments stay in the log for audit; they simply stop
  counting.
*/
package engine

import (
	"sort"
	"time"
)

// DueStatement is the reconciled view for one student.
type DueStatement struct {
	TotalPayable  Money
	TotalPaid     Money
	TotalDiscount Money
	Due           Money

	LineItems []LineItem
	// Payments is the session-filtered history, newest first, cancelled
	// records included so the caller can render the full audit trail.
	Payments []Payment
}

// LastPayment returns the most recent counting payment, if any.
func (d DueStatement) LastPayment() (Payment, bool) {
	for _, p := range d.Payments {
		if p.Status != PaymentCancelled {
			return p, true
		}
	}
	return Payment{}, false
}

// ComputeDue reconciles the student's schedule against the payment log.
// payments may contain records for other students or sessions; both are
// filtered here so callers can hand over raw query results.
func ComputeDue(s Student, schedule []LineItem, payments []Payment, sessionStart time.Time) DueStatement {
	stmt := DueStatement{
		TotalPayable:  TotalPayable(schedule),
		TotalPaid:     Zero(),
		TotalDiscount: Zero(),
		LineItems:     schedule,
	}

	for _, p := range payments {
		if p.AdmissionNo != s.AdmissionNo {
			continue
		}
		if p.Date.Before(sessionStart) {
			continue
		}
		stmt.Payments = append(stmt.Payments, p)
		if p.Status == PaymentCancelled {
			continue
		}
		stmt.TotalPaid = stmt.TotalPaid.Add(p.Paid)
		stmt.TotalDiscount = stmt.TotalDiscount.Add(p.Discount)
	}

	sort.SliceStable(stmt.Payments, func(i, j int) bool {
		return stmt.Payments[i].Date.After(stmt.Payments[j].Date)
	})

	stmt.Due = stmt.TotalPayable.Sub(stmt.TotalPaid).Sub(stmt.TotalDiscount)
	return stmt
}

// ComputeStatement is the full read path: build the schedule, then reconcile.
func ComputeStatement(s Student, rules []FeeRule, table *AmountTable, payments []Payment, cfg Config, today time.Time) (DueStatement, error) {
	schedule, err := BuildSchedule(s, rules, table, cfg, today)
	if err != nil {
		return DueStatement{}, err
	}
	sess := cfg.Calendar().SessionFor(today)
	return ComputeDue(s, schedule, payments, sess.Start), nil
}
