/*
schedule.go - Payable schedule builder

PURPOSE:
  Evaluates the fee catalog against the academic calendar for one student
  and produces the ordered list of obligations that have fallen due as of
  "today". The schedule is derived fresh on every call - it is never
  persisted, so it can never go stale.

PER MATCHED RULE, PER SLOT:
  One-time slot:  due immediately for OLD students (once per session);
                  for NEW students once today has reached the admission date.
  Month slot:     attributed to its calendar year within the session, then
                  due iff today has reached the policy due date AND the month
                  is on/after the student's coverage start (a mid-year joiner
                  is never charged for months before they enrolled).

AMOUNTS:
  The catalog amount for (rule, class), or the student's personal override
  when the rule is the recurring tuition-like fee and the override is
  positive. No amount entry means the rule is skipped, not priced at zero.

ORDERING (display only, never affects totals):
  NEW students: the admission one-time fee first.
  OLD students: the annual one-time fee first, admission fee second.
  Everything else by month position relative to the academic start, then
  alphabetically by fee head.
*/
package engine

import (
	"sort"
	"strings"
	"time"
)

// BuildSchedule produces the student's owed line items as of today.
// Inputs are an already-fetched snapshot; the builder performs no I/O.
func BuildSchedule(s Student, rules []FeeRule, table *AmountTable, cfg Config, today time.Time) ([]LineItem, error) {
	if today.IsZero() {
		return nil, &ValidationError{Field: "today", Message: "zero reference date"}
	}
	if s.MonthlyFeeOverride.IsNegative() {
		return nil, &NegativeAmountError{Field: "monthlyFeeOverride", Value: s.MonthlyFeeOverride}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()

	cal := cfg.Calendar()
	sess := cal.SessionFor(today)
	coverage := cfg.CoverageStart(cal, s, sess)
	admType := s.EffectiveAdmissionType()

	var items []LineItem
	for _, rule := range rules {
		applies, viaFallback := RuleApplies(rule, s, table)
		if !applies {
			continue
		}
		amount, priced := table.Lookup(rule.ID, s.Class)
		if !priced {
			// Configuration gap: the rule does not price this class. Skip.
			continue
		}
		if rule.IsRecurringFee() && s.MonthlyFeeOverride.IsPositive() {
			amount = s.MonthlyFeeOverride
		}

		for _, slot := range rule.Slots {
			if !slotDue(slot, cfg, cal, sess, s, admType, coverage, today) {
				continue
			}
			items = append(items, LineItem{
				FeeHead:     rule.Name,
				Slot:        slot,
				Amount:      amount,
				ViaFallback: viaFallback,
			})
		}
	}

	sortSchedule(items, admType, cal)
	return items, nil
}

// slotDue decides whether a single (rule, slot) obligation has fallen due.
func slotDue(slot Slot, cfg Config, cal Calendar, sess Session, s Student, admType AdmissionType, coverage, today time.Time) bool {
	if slot.IsOneTime() {
		if admType == AdmissionOld {
			return true
		}
		// NEW: charged from the actual admission date, regardless of the
		// coverage start rule - admission fees follow admission, not tuition.
		return !s.AdmissionDate.IsZero() && !today.Before(s.AdmissionDate)
	}

	year := cal.YearFor(slot.Month, sess.StartYear)
	if today.Before(cfg.DueDate(year, slot.Month)) {
		return false
	}
	monthStart := time.Date(year, slot.Month, 1, 0, 0, 0, 0, time.UTC)
	return !monthStart.Before(coverage)
}

// =============================================================================
// ORDERING
// =============================================================================

func sortSchedule(items []LineItem, admType AdmissionType, cal Calendar) {
	sort.SliceStable(items, func(i, j int) bool {
		ri, rj := scheduleRank(items[i], admType, cal), scheduleRank(items[j], admType, cal)
		if ri != rj {
			return ri < rj
		}
		return items[i].FeeHead < items[j].FeeHead
	})
}

func scheduleRank(li LineItem, admType AdmissionType, cal Calendar) int {
	if li.Slot.IsOneTime() {
		head := strings.ToLower(li.FeeHead)
		isAdmission := strings.Contains(head, "admission")
		isAnnual := strings.Contains(head, "annual")
		if admType == AdmissionOld {
			switch {
			case isAnnual:
				return 0
			case isAdmission:
				return 1
			default:
				return 2
			}
		}
		if isAdmission {
			return 0
		}
		return 1
	}
	// Month items sort after one-time items, by academic position.
	return 10 + cal.Position(li.Slot.Month)
}

// TotalPayable sums a schedule. Exposed because callers display the figure
// next to the items and the two must always agree.
func TotalPayable(items []LineItem) Money {
	total := Zero()
	for _, li := range items {
		total = total.Add(li.Amount)
	}
	return total
}
