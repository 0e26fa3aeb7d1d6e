/*
catalog.go - Fee rules and the per-class amount table

PURPOSE:
  A FeeRule (fee head) declares WHO it applies to - admission types,
  student categories, classes - and WHEN it charges - a set of month
  slots, possibly including the one-time slot. The AmountTable prices
  each (rule, class) pair; a rule with no price for a class simply does
  not apply to students of that class.

TWO-STAGE CLASS MATCHING:
  Classes get renamed by administrators, and rule class lists go stale.
  Matching is therefore two explicit predicates:
    1. MatchesDeclaredClass - the rule's own class list (primary)
    2. MatchesByAmount      - an amount entry exists for the student's
                              class even though the list doesn't name it
                              (compatibility fallback, reported to the
                              caller so it can be logged)
  A rule with an empty class list never matches through the primary
  predicate; only a priced amount entry can rescue it.
*/
package engine

import (
	"strings"
	"time"
)

// =============================================================================
// FEE RULE - A named category of charge with applicability rules
// =============================================================================

type RuleStatus string

const (
	RuleActive   RuleStatus = "ACTIVE"
	RuleInactive RuleStatus = "INACTIVE"
)

type FeeRule struct {
	ID     string
	Name   string // fee-head name, e.g. "Tuition Fee"
	Status RuleStatus

	AdmissionTypes []AdmissionType
	Categories     []string // student categories, e.g. GENERAL, TRANSPORT
	Classes        []string
	Slots          []Slot

	Priority int // display priority only

	// Recurring explicitly tags this rule as the school's recurring
	// tuition-like fee, making the student-level override apply. When no
	// rule is tagged, the historical name heuristic decides.
	Recurring bool
}

func (r FeeRule) Active() bool { return r.Status == RuleActive }

func (r FeeRule) appliesToAdmission(t AdmissionType) bool {
	for _, at := range r.AdmissionTypes {
		if at == t {
			return true
		}
	}
	return false
}

func (r FeeRule) appliesToCategory(category string) bool {
	for _, c := range r.Categories {
		if strings.EqualFold(c, category) {
			return true
		}
	}
	return false
}

// IsRecurringFee reports whether the student's personal override applies to
// this rule. The name heuristic (tuition/tution/monthly, misspelling
// included) matches what years of production data rely on.
func (r FeeRule) IsRecurringFee() bool {
	if r.Recurring {
		return true
	}
	name := strings.ToLower(r.Name)
	return strings.Contains(name, "tuition") ||
		strings.Contains(name, "tution") ||
		strings.Contains(name, "monthly")
}

// IsExamFee reports whether this head gets its own ledger column next to its
// month instead of folding into the month cell.
func (r FeeRule) IsExamFee() bool {
	return strings.Contains(strings.ToLower(r.Name), "exam")
}

// IsOneTimeOnly reports whether the rule charges exclusively at admission.
func (r FeeRule) IsOneTimeOnly() bool {
	if len(r.Slots) == 0 {
		return false
	}
	for _, s := range r.Slots {
		if !s.IsOneTime() {
			return false
		}
	}
	return true
}

// FirstMonth returns the earliest month slot in academic order, if any.
func (r FeeRule) FirstMonth(cal Calendar) (time.Month, bool) {
	best, found := time.Month(0), false
	for _, s := range r.Slots {
		if s.IsOneTime() {
			continue
		}
		if !found || cal.Position(s.Month) < cal.Position(best) {
			best, found = s.Month, true
		}
	}
	return best, found
}

// =============================================================================
// AMOUNT TABLE - (rule, class) -> amount for the active financial year
// =============================================================================

// FeeAmount prices one rule for one class in one financial year.
type FeeAmount struct {
	RuleID        string
	ClassName     string
	FinancialYear string
	Amount        Money
}

type amountKey struct {
	ruleID string
	class  string
}

// AmountTable indexes FeeAmounts already filtered to the active financial
// year. At most one amount per (rule, class); a later duplicate wins, which
// matches how the settings screens overwrite entries.
type AmountTable struct {
	byKey map[amountKey]Money
}

// NewAmountTable builds the index, failing fast on negative amounts.
func NewAmountTable(amounts []FeeAmount) (*AmountTable, error) {
	t := &AmountTable{byKey: make(map[amountKey]Money, len(amounts))}
	for _, a := range amounts {
		if a.Amount.IsNegative() {
			return nil, &NegativeAmountError{Field: "feeAmount " + a.RuleID + "/" + a.ClassName, Value: a.Amount}
		}
		t.byKey[amountKey{ruleID: a.RuleID, class: NormalizeClass(a.ClassName)}] = a.Amount
	}
	return t, nil
}

// Lookup returns the amount pricing (rule, class). Zero amounts are treated
// as unpriced: a zero entry means the rule does not charge that class.
func (t *AmountTable) Lookup(ruleID, class string) (Money, bool) {
	amount, ok := t.byKey[amountKey{ruleID: ruleID, class: NormalizeClass(class)}]
	if !ok || amount.IsZero() {
		return Money{}, false
	}
	return amount, true
}

// NormalizeClass trims and collapses whitespace so "Class  1" and "Class 1"
// price identically. Class names are typed by hand in several screens.
func NormalizeClass(class string) string {
	return strings.Join(strings.Fields(class), " ")
}

// =============================================================================
// MATCHING - Two named, independently testable predicates
// =============================================================================

// MatchesDeclaredClass is the primary matcher: the rule's own class list.
func MatchesDeclaredClass(r FeeRule, class string) bool {
	want := NormalizeClass(class)
	if want == "" {
		return false
	}
	for _, c := range r.Classes {
		if NormalizeClass(c) == want {
			return true
		}
	}
	return false
}

// MatchesByAmount is the fallback matcher: a priced amount entry exists for
// the student's class even though the rule's class list is stale.
func MatchesByAmount(r FeeRule, class string, t *AmountTable) bool {
	if NormalizeClass(class) == "" {
		return false
	}
	_, ok := t.Lookup(r.ID, class)
	return ok
}

// RuleApplies combines status, admission-type, category and the two-stage
// class match. viaFallback reports a stale-class-list match.
func RuleApplies(r FeeRule, s Student, t *AmountTable) (applies bool, viaFallback bool) {
	if !r.Active() {
		return false, false
	}
	if !r.appliesToAdmission(s.EffectiveAdmissionType()) {
		return false, false
	}
	if !r.appliesToCategory(s.EffectiveCategory()) {
		return false, false
	}
	if MatchesDeclaredClass(r, s.Class) {
		return true, false
	}
	if MatchesByAmount(r, s.Class, t) {
		return true, true
	}
	return false, false
}
