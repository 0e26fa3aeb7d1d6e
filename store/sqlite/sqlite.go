/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Durable persistence for the school records: students, the fee catalog,
  fee amounts, settings and the payment log. In production, the same
  patterns apply to PostgreSQL - only minor SQL dialect differences.

APPEND-ONLY ENFORCEMENT:
  The payments table permits exactly one UPDATE: flipping status to
  CANCELLED. Amounts, dates and breakdowns are never edited and rows are
  never deleted. Corrections happen by cancelling and re-entering.

KEY TABLES:
  students:     One row per admission number
  fee_rules:    Fee head definitions (stored as JSON, like a settings doc)
  fee_amounts:  Per-class pricing for each rule
  payments:     Append-only collection log
  settings:     Single-row fee configuration document
  counters:     Receipt sequence

RECEIPT COUNTER:
  NextReceiptNo increments the counter inside a write transaction. The DSN
  requests immediate transactions so two concurrent collectors serialize at
  BEGIN rather than failing at COMMIT, and the UNIQUE receipt_no constraint
  backstops the guarantee.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  multiple readers don't block and crash recovery improves.

USAGE:
  store, err := sqlite.New("./data/school.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - collect/recorder.go: the write path that feeds the payments table
  - store/memory: in-memory implementation for tests and demos
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/schoolworks/fee-engine/engine"
)

const receiptCounter = "receipt"

// Store implements the storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL&_txlock=immediate")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS students (
		admission_no TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		class TEXT NOT NULL,
		section TEXT,
		category TEXT,
		admission_type TEXT NOT NULL,
		admission_date TEXT,
		session TEXT,
		monthly_fee_override TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_students_class
		ON students(class);

	CREATE TABLE IF NOT EXISTS fee_rules (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		status TEXT NOT NULL,
		definition_json TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS fee_amounts (
		rule_id TEXT NOT NULL,
		class_name TEXT NOT NULL,
		financial_year TEXT,
		amount TEXT NOT NULL,
		PRIMARY KEY (rule_id, class_name)
	);

	-- Payments (append-only collection log)
	CREATE TABLE IF NOT EXISTS payments (
		id TEXT PRIMARY KEY,
		admission_no TEXT,
		payer_name TEXT,
		date TEXT NOT NULL,
		paid TEXT NOT NULL,
		discount TEXT NOT NULL,
		paid_for_json TEXT,
		breakdown_json TEXT,
		receipt_no TEXT NOT NULL UNIQUE,
		mode TEXT,
		remarks TEXT,
		status TEXT NOT NULL,
		kind TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	-- Hot path: per-student statements filter on admission_no and date
	CREATE INDEX IF NOT EXISTS idx_payments_admission_date
		ON payments(admission_no, date);
	CREATE INDEX IF NOT EXISTS idx_payments_status
		ON payments(status);

	-- Single-row settings document
	CREATE TABLE IF NOT EXISTS settings (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		config_json TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS counters (
		name TEXT PRIMARY KEY,
		value INTEGER NOT NULL
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// STUDENTS
// =============================================================================

func (s *Store) SaveStudent(ctx context.Context, st engine.Student) error {
	if strings.TrimSpace(st.AdmissionNo) == "" {
		return &engine.ValidationError{Field: "admissionNo", Message: "required"}
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO students
		(admission_no, name, class, section, category, admission_type, admission_date, session, monthly_fee_override)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(admission_no) DO UPDATE SET
			name = excluded.name,
			class = excluded.class,
			section = excluded.section,
			category = excluded.category,
			admission_type = excluded.admission_type,
			admission_date = excluded.admission_date,
			session = excluded.session,
			monthly_fee_override = excluded.monthly_fee_override
	`
	_, err := s.db.ExecContext(ctx, query,
		st.AdmissionNo,
		st.Name,
		st.Class,
		st.Section,
		st.Category,
		string(st.EffectiveAdmissionType()),
		formatDate(st.AdmissionDate),
		st.Session,
		moneyOrNull(st.MonthlyFeeOverride),
	)
	if err != nil {
		return fmt.Errorf("failed to save student: %w", err)
	}
	return nil
}

func (s *Store) Student(ctx context.Context, admissionNo string) (engine.Student, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT admission_no, name, class, section, category, admission_type, admission_date, session, monthly_fee_override
		FROM students WHERE admission_no = ?
	`, admissionNo)

	st, err := scanStudent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return engine.Student{}, fmt.Errorf("student %s: %w", admissionNo, engine.ErrStudentNotFound)
	}
	return st, err
}

func (s *Store) Students(ctx context.Context) ([]engine.Student, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT admission_no, name, class, section, category, admission_type, admission_date, session, monthly_fee_override
		FROM students ORDER BY admission_no
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query students: %w", err)
	}
	defer rows.Close()

	var students []engine.Student
	for rows.Next() {
		st, err := scanStudent(rows)
		if err != nil {
			return nil, err
		}
		students = append(students, st)
	}
	return students, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanStudent(row scanner) (engine.Student, error) {
	var (
		st            engine.Student
		section       sql.NullString
		category      sql.NullString
		admissionType string
		admissionDate sql.NullString
		session       sql.NullString
		override      sql.NullString
	)
	err := row.Scan(&st.AdmissionNo, &st.Name, &st.Class, &section, &category,
		&admissionType, &admissionDate, &session, &override)
	if err != nil {
		return st, err
	}
	st.Section = section.String
	st.Category = category.String
	st.AdmissionType = engine.AdmissionType(admissionType)
	st.Session = session.String
	if admissionDate.Valid && admissionDate.String != "" {
		st.AdmissionDate, _ = time.Parse(time.RFC3339, admissionDate.String)
	}
	if override.Valid && override.String != "" {
		m, err := engine.MoneyFromString(override.String)
		if err != nil {
			return st, fmt.Errorf("failed to parse fee override for %s: %w", st.AdmissionNo, err)
		}
		st.MonthlyFeeOverride = m
	}
	return st, nil
}

// =============================================================================
// FEE CATALOG
// =============================================================================

// SaveRule stores the full rule definition as JSON, the way the settings
// screens persist it, with the id/name/status columns for listing queries.
func (s *Store) SaveRule(ctx context.Context, r engine.FeeRule) error {
	if strings.TrimSpace(r.ID) == "" {
		return &engine.ValidationError{Field: "id", Message: "required"}
	}
	definition, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to encode fee rule: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO fee_rules (id, name, status, definition_json)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			status = excluded.status,
			definition_json = excluded.definition_json
	`, r.ID, r.Name, string(r.Status), string(definition))
	if err != nil {
		return fmt.Errorf("failed to save fee rule: %w", err)
	}
	return nil
}

func (s *Store) Rules(ctx context.Context) ([]engine.FeeRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `SELECT definition_json FROM fee_rules ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query fee rules: %w", err)
	}
	defer rows.Close()

	var rules []engine.FeeRule
	for rows.Next() {
		var definition string
		if err := rows.Scan(&definition); err != nil {
			return nil, err
		}
		var r engine.FeeRule
		if err := json.Unmarshal([]byte(definition), &r); err != nil {
			return nil, fmt.Errorf("failed to decode fee rule: %w", err)
		}
		rules = append(rules, r)
	}
	return rules, rows.Err()
}

func (s *Store) SaveAmount(ctx context.Context, a engine.FeeAmount) error {
	if a.Amount.IsNegative() {
		return &engine.NegativeAmountError{Field: "amount", Value: a.Amount}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO fee_amounts (rule_id, class_name, financial_year, amount)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(rule_id, class_name) DO UPDATE SET
			financial_year = excluded.financial_year,
			amount = excluded.amount
	`, a.RuleID, engine.NormalizeClass(a.ClassName), a.FinancialYear, a.Amount.String())
	if err != nil {
		return fmt.Errorf("failed to save fee amount: %w", err)
	}
	return nil
}

func (s *Store) Amounts(ctx context.Context) ([]engine.FeeAmount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT rule_id, class_name, financial_year, amount
		FROM fee_amounts ORDER BY rule_id, class_name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query fee amounts: %w", err)
	}
	defer rows.Close()

	var amounts []engine.FeeAmount
	for rows.Next() {
		var (
			a        engine.FeeAmount
			year     sql.NullString
			amount   string
		)
		if err := rows.Scan(&a.RuleID, &a.ClassName, &year, &amount); err != nil {
			return nil, err
		}
		a.FinancialYear = year.String
		m, err := engine.MoneyFromString(amount)
		if err != nil {
			return nil, fmt.Errorf("failed to parse amount for rule %s: %w", a.RuleID, err)
		}
		a.Amount = m
		amounts = append(amounts, a)
	}
	return amounts, rows.Err()
}

// =============================================================================
// SETTINGS
// =============================================================================

func (s *Store) SaveConfig(ctx context.Context, cfg engine.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	encoded, err := json.Marshal(cfg.Normalized())
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO settings (id, config_json) VALUES (1, ?)
		ON CONFLICT(id) DO UPDATE SET config_json = excluded.config_json
	`, string(encoded))
	if err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	return nil
}

func (s *Store) Config(ctx context.Context) (engine.Config, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var encoded string
	err := s.db.QueryRowContext(ctx, `SELECT config_json FROM settings WHERE id = 1`).Scan(&encoded)
	if errors.Is(err, sql.ErrNoRows) {
		return engine.DefaultConfig(), nil
	}
	if err != nil {
		return engine.Config{}, fmt.Errorf("failed to load settings: %w", err)
	}

	var cfg engine.Config
	if err := json.Unmarshal([]byte(encoded), &cfg); err != nil {
		return engine.Config{}, fmt.Errorf("failed to decode settings: %w", err)
	}
	return cfg.Normalized(), nil
}

// =============================================================================
// PAYMENT LOG (collect.Store)
// =============================================================================

// AppendPayment inserts a payment. There is no update path for payment rows
// other than CancelPayment's status flip.
func (s *Store) AppendPayment(ctx context.Context, p engine.Payment) error {
	paidFor, _ := json.Marshal(p.PaidFor)
	breakdown, err := encodeBreakdown(p.Breakdown)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO payments
		(id, admission_no, payer_name, date, paid, discount, paid_for_json,
		 breakdown_json, receipt_no, mode, remarks, status, kind, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = s.db.ExecContext(ctx, query,
		p.ID,
		p.AdmissionNo,
		p.PayerName,
		p.Date.UTC().Format(time.RFC3339),
		p.Paid.String(),
		p.Discount.String(),
		string(paidFor),
		breakdown,
		p.ReceiptNo,
		p.Mode,
		p.Remarks,
		string(p.Status),
		string(p.Kind),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return fmt.Errorf("receipt %s: %w", p.ReceiptNo, engine.ErrDuplicateReceipt)
		}
		return fmt.Errorf("failed to append payment: %w", err)
	}
	return nil
}

func (s *Store) Payment(ctx context.Context, id string) (engine.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, paymentQuery+` WHERE id = ?`, id)
	p, err := scanPayment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return engine.Payment{}, fmt.Errorf("payment %s: %w", id, engine.ErrPaymentNotFound)
	}
	return p, err
}

// CancelPayment flips status to CANCELLED. The WHERE clause makes the flip
// idempotence-hostile on purpose: a second cancel is reported, not absorbed.
func (s *Store) CancelPayment(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		UPDATE payments SET status = ? WHERE id = ? AND status != ?
	`, string(engine.PaymentCancelled), id, string(engine.PaymentCancelled))
	if err != nil {
		return fmt.Errorf("failed to cancel payment: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		var status string
		err := s.db.QueryRowContext(ctx, `SELECT status FROM payments WHERE id = ?`, id).Scan(&status)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("payment %s: %w", id, engine.ErrPaymentNotFound)
		}
		if err != nil {
			return err
		}
		return fmt.Errorf("payment %s: %w", id, engine.ErrPaymentCancelled)
	}
	return nil
}

func (s *Store) PaymentsByStudent(ctx context.Context, admissionNo string) ([]engine.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.queryPayments(ctx, paymentQuery+` WHERE admission_no = ? ORDER BY date, receipt_no`, admissionNo)
}

func (s *Store) Payments(ctx context.Context) ([]engine.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.queryPayments(ctx, paymentQuery+` ORDER BY date, receipt_no`)
}

// NextReceiptNo increments and returns the receipt counter. Runs inside a
// write transaction; the immediate tx lock serializes concurrent collectors.
func (s *Store) NextReceiptNo(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin counter transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO counters (name, value) VALUES (?, 0)
		ON CONFLICT(name) DO NOTHING
	`, receiptCounter); err != nil {
		return 0, fmt.Errorf("failed to seed receipt counter: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE counters SET value = value + 1 WHERE name = ?
	`, receiptCounter); err != nil {
		return 0, fmt.Errorf("failed to advance receipt counter: %w", err)
	}

	var value int64
	if err := tx.QueryRowContext(ctx, `SELECT value FROM counters WHERE name = ?`, receiptCounter).Scan(&value); err != nil {
		return 0, fmt.Errorf("failed to read receipt counter: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit receipt counter: %w", err)
	}
	return value, nil
}

const paymentQuery = `
	SELECT id, admission_no, payer_name, date, paid, discount, paid_for_json,
	       breakdown_json, receipt_no, mode, remarks, status, kind
	FROM payments`

func (s *Store) queryPayments(ctx context.Context, query string, args ...any) ([]engine.Payment, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query payments: %w", err)
	}
	defer rows.Close()

	var payments []engine.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

func scanPayment(row scanner) (engine.Payment, error) {
	var (
		p            engine.Payment
		admissionNo  sql.NullString
		payerName    sql.NullString
		date         string
		paid         string
		discount     string
		paidFor      sql.NullString
		breakdown    sql.NullString
		mode         sql.NullString
		remarks      sql.NullString
		status, kind string
	)
	err := row.Scan(&p.ID, &admissionNo, &payerName, &date, &paid, &discount,
		&paidFor, &breakdown, &p.ReceiptNo, &mode, &remarks, &status, &kind)
	if err != nil {
		return p, err
	}

	p.AdmissionNo = admissionNo.String
	p.PayerName = payerName.String
	p.Mode = mode.String
	p.Remarks = remarks.String
	p.Status = engine.PaymentStatus(status)
	p.Kind = engine.PaymentKind(kind)
	p.Date, _ = time.Parse(time.RFC3339, date)

	if p.Paid, err = engine.MoneyFromString(paid); err != nil {
		return p, fmt.Errorf("failed to parse paid for %s: %w", p.ID, err)
	}
	if p.Discount, err = engine.MoneyFromString(discount); err != nil {
		return p, fmt.Errorf("failed to parse discount for %s: %w", p.ID, err)
	}
	if paidFor.Valid && paidFor.String != "" {
		if err := json.Unmarshal([]byte(paidFor.String), &p.PaidFor); err != nil {
			return p, fmt.Errorf("failed to decode paidFor for %s: %w", p.ID, err)
		}
	}
	if breakdown.Valid && breakdown.String != "" {
		if p.Breakdown, err = decodeBreakdown(breakdown.String); err != nil {
			return p, fmt.Errorf("failed to decode breakdown for %s: %w", p.ID, err)
		}
	}
	return p, nil
}

// =============================================================================
// HELPERS
// =============================================================================

// Breakdowns persist as head -> decimal-string so the JSON survives without
// float drift.
func encodeBreakdown(b map[string]engine.Money) (string, error) {
	if len(b) == 0 {
		return "", nil
	}
	raw := make(map[string]string, len(b))
	for head, amount := range b {
		raw[head] = amount.String()
	}
	encoded, err := json.Marshal(raw)
	if err != nil {
		return "", fmt.Errorf("failed to encode breakdown: %w", err)
	}
	return string(encoded), nil
}

func decodeBreakdown(encoded string) (map[string]engine.Money, error) {
	var raw map[string]string
	if err := json.Unmarshal([]byte(encoded), &raw); err != nil {
		return nil, err
	}
	out := make(map[string]engine.Money, len(raw))
	for head, value := range raw {
		m, err := engine.MoneyFromString(value)
		if err != nil {
			return nil, err
		}
		out[head] = m
	}
	return out, nil
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func moneyOrNull(m engine.Money) sql.NullString {
	if m.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: m.String(), Valid: true}
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
