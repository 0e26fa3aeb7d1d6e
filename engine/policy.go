/*
policy.go - Billing mode, due dates and new-admission proration

PURPOSE:
  Schools bill inconsistently: some in advance (April's fee due April 5th),
  some in arrears (April's fee due May 5th). Admission timing creates partial
  months that must not be billed in full. Both axes of variation live here as
  pure functions of (today, admissionDate, config) with no side effects, so
  each boundary can be tested on its own.

BILLING MODES:
  ADVANCE: a month's charge falls due on the configured day of that month.
  ARREARS: it falls due on the configured day of the FOLLOWING month
           (December wraps into January of the next year).

COVERAGE START (proration):
  OLD students, and NEW students admitted before the active session, are
  covered from the academic start month. NEW in-session admissions follow
  the configured start rule:
    ALWAYS_FROM_APRIL:     covered from the academic start regardless.
    FROM_ADMISSION_MONTH:  covered from the admission month when the
                           admission day is on or before the cutoff,
                           otherwise from the following month. A student
                           who joined on the 20th is not billed for that
                           month's tuition.
*/
package engine

import (
	"fmt"
	"time"
)

// =============================================================================
// CONFIGURATION
// =============================================================================

type BillingMode string

const (
	BillingAdvance BillingMode = "ADVANCE"
	BillingArrears BillingMode = "ARREARS"
)

type StartRule string

const (
	// StartAlwaysFromAcademicStart keeps the historical config value: schools
	// configured before the start month became adjustable stored "APRIL".
	StartAlwaysFromAcademicStart StartRule = "ALWAYS_FROM_APRIL"
	StartFromAdmissionMonth      StartRule = "FROM_ADMISSION_MONTH"
)

// Config is the school-wide fee settings document.
type Config struct {
	AcademicYearStartMonth string      `json:"academicYearStartMonth"`
	FeeCollectionType      BillingMode `json:"feeCollectionType"`
	MonthlyFeeDueDate      int         `json:"monthlyFeeDueDate"`
	AdmissionFeeStartRule  StartRule   `json:"admissionFeeStartRule"`
	AdmissionFeeCutoffDate int         `json:"admissionFeeCutoffDate"`
}

// DefaultConfig mirrors the defaults collection screens have always assumed.
func DefaultConfig() Config {
	return Config{
		AcademicYearStartMonth: "April",
		FeeCollectionType:      BillingAdvance,
		MonthlyFeeDueDate:      5,
		AdmissionFeeStartRule:  StartFromAdmissionMonth,
		AdmissionFeeCutoffDate: 15,
	}
}

// withDefaults fills unset fields. Unknown start-month names are left as-is;
// ResolveCalendar falls back to April for those.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.AcademicYearStartMonth == "" {
		c.AcademicYearStartMonth = d.AcademicYearStartMonth
	}
	if c.FeeCollectionType == "" {
		c.FeeCollectionType = d.FeeCollectionType
	}
	if c.MonthlyFeeDueDate == 0 {
		c.MonthlyFeeDueDate = d.MonthlyFeeDueDate
	}
	if c.AdmissionFeeStartRule == "" {
		c.AdmissionFeeStartRule = d.AdmissionFeeStartRule
	}
	if c.AdmissionFeeCutoffDate == 0 {
		c.AdmissionFeeCutoffDate = d.AdmissionFeeCutoffDate
	}
	return c
}

// Normalized returns the config with defaults filled for unset fields.
func (c Config) Normalized() Config { return c.withDefaults() }

// Validate fails fast on out-of-range settings. Day-of-month values are
// capped at 28 so due dates exist in every month.
func (c Config) Validate() error {
	c = c.withDefaults()
	if c.MonthlyFeeDueDate < 1 || c.MonthlyFeeDueDate > 28 {
		return fmt.Errorf("%w: monthlyFeeDueDate %d out of range 1-28", ErrInvalidConfig, c.MonthlyFeeDueDate)
	}
	if c.AdmissionFeeCutoffDate < 1 || c.AdmissionFeeCutoffDate > 28 {
		return fmt.Errorf("%w: admissionFeeCutoffDate %d out of range 1-28", ErrInvalidConfig, c.AdmissionFeeCutoffDate)
	}
	switch c.FeeCollectionType {
	case BillingAdvance, BillingArrears:
	default:
		return fmt.Errorf("%w: feeCollectionType %q", ErrInvalidConfig, c.FeeCollectionType)
	}
	switch c.AdmissionFeeStartRule {
	case StartAlwaysFromAcademicStart, StartFromAdmissionMonth:
	default:
		return fmt.Errorf("%w: admissionFeeStartRule %q", ErrInvalidConfig, c.AdmissionFeeStartRule)
	}
	return nil
}

// Calendar resolves the academic calendar for this configuration.
func (c Config) Calendar() Calendar {
	return ResolveCalendar(c.withDefaults().AcademicYearStartMonth)
}

// =============================================================================
// DUE DATE - When does a month's charge legally fall due?
// =============================================================================

// DueDate returns the date a given month's charge falls due.
func (c Config) DueDate(year int, m time.Month) time.Time {
	c = c.withDefaults()
	if c.FeeCollectionType == BillingArrears {
		m++
		if m > time.December {
			m = time.January
			year++
		}
	}
	return time.Date(year, m, c.MonthlyFeeDueDate, 0, 0, 0, 0, time.UTC)
}

// =============================================================================
// COVERAGE START - The first month a student can be billed for
// =============================================================================

// CoverageStart returns the first day of the first month the student's
// recurring charges cover within the session.
func (c Config) CoverageStart(cal Calendar, s Student, sess Session) time.Time {
	c = c.withDefaults()
	adm := s.AdmissionDate

	inSession := s.EffectiveAdmissionType() == AdmissionNew &&
		!adm.IsZero() && !adm.Before(sess.Start)
	if !inSession || c.AdmissionFeeStartRule == StartAlwaysFromAcademicStart {
		return sess.Start
	}

	// FROM_ADMISSION_MONTH with cutoff.
	year, month := adm.Year(), adm.Month()
	if adm.Day() > c.AdmissionFeeCutoffDate {
		month++
		if month > time.December {
			month = time.January
			year++
		}
	}
	return time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
}
