/*
Package memory provides an in-memory implementation of the storage interfaces.

PURPOSE:
  Backs tests, demo scenarios and single-process development runs. Mirrors
  the sqlite store's semantics exactly: append-only payments, cancellation
  as the single permitted status flip, and a receipt counter that hands out
  each value once.

  Not durable. Use store/sqlite for anything that must survive a restart.
*/
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/schoolworks/fee-engine/engine"
)

// Store keeps everything behind one mutex. Fine at school scale; the sqlite
// store carries the same interface for real deployments.
type Store struct {
	mu sync.RWMutex

	students map[string]engine.Student // keyed by admission number
	rules    map[string]engine.FeeRule // keyed by rule id
	amounts  map[string]engine.FeeAmount
	payments map[string]engine.Payment // keyed by payment id
	config   *engine.Config

	receiptCounter int64
}

func New() *Store {
	return &Store{
		students: make(map[string]engine.Student),
		rules:    make(map[string]engine.FeeRule),
		amounts:  make(map[string]engine.FeeAmount),
		payments: make(map[string]engine.Payment),
	}
}

// =============================================================================
// STUDENTS
// =============================================================================

func (s *Store) SaveStudent(_ context.Context, st engine.Student) error {
	if strings.TrimSpace(st.AdmissionNo) == "" {
		return &engine.ValidationError{Field: "admissionNo", Message: "required"}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.students[st.AdmissionNo] = st
	return nil
}

func (s *Store) Student(_ context.Context, admissionNo string) (engine.Student, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.students[admissionNo]
	if !ok {
		return engine.Student{}, fmt.Errorf("student %s: %w", admissionNo, engine.ErrStudentNotFound)
	}
	return st, nil
}

func (s *Store) Students(_ context.Context) ([]engine.Student, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]engine.Student, 0, len(s.students))
	for _, st := range s.students {
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AdmissionNo < out[j].AdmissionNo })
	return out, nil
}

// =============================================================================
// FEE CATALOG
// =============================================================================

func (s *Store) SaveRule(_ context.Context, r engine.FeeRule) error {
	if strings.TrimSpace(r.ID) == "" {
		return &engine.ValidationError{Field: "id", Message: "required"}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rules[r.ID] = r
	return nil
}

func (s *Store) Rules(_ context.Context) ([]engine.FeeRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]engine.FeeRule, 0, len(s.rules))
	for _, r := range s.rules {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) SaveAmount(_ context.Context, a engine.FeeAmount) error {
	if a.Amount.IsNegative() {
		return &engine.NegativeAmountError{Field: "amount", Value: a.Amount}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.amounts[amountKey(a)] = a
	return nil
}

func (s *Store) Amounts(_ context.Context) ([]engine.FeeAmount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]engine.FeeAmount, 0, len(s.amounts))
	for _, a := range s.amounts {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return amountKey(out[i]) < amountKey(out[j]) })
	return out, nil
}

func amountKey(a engine.FeeAmount) string {
	return a.RuleID + "|" + engine.NormalizeClass(a.ClassName)
}

// =============================================================================
// SETTINGS
// =============================================================================

func (s *Store) SaveConfig(_ context.Context, cfg engine.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	normalized := cfg.Normalized()
	s.config = &normalized
	return nil
}

// Config returns the stored settings, or the defaults when none were saved.
func (s *Store) Config(_ context.Context) (engine.Config, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.config == nil {
		return engine.DefaultConfig(), nil
	}
	return *s.config, nil
}

// =============================================================================
// PAYMENT LOG (collect.Store)
// =============================================================================

func (s *Store) AppendPayment(_ context.Context, p engine.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.payments[p.ID]; exists {
		return fmt.Errorf("payment %s already recorded: %w", p.ID, engine.ErrInvalidInput)
	}
	for _, existing := range s.payments {
		if existing.ReceiptNo == p.ReceiptNo {
			return fmt.Errorf("receipt %s: %w", p.ReceiptNo, engine.ErrDuplicateReceipt)
		}
	}
	s.payments[p.ID] = p
	return nil
}

func (s *Store) Payment(_ context.Context, id string) (engine.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.payments[id]
	if !ok {
		return engine.Payment{}, fmt.Errorf("payment %s: %w", id, engine.ErrPaymentNotFound)
	}
	return p, nil
}

func (s *Store) CancelPayment(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.payments[id]
	if !ok {
		return fmt.Errorf("payment %s: %w", id, engine.ErrPaymentNotFound)
	}
	if p.Status == engine.PaymentCancelled {
		return fmt.Errorf("payment %s: %w", id, engine.ErrPaymentCancelled)
	}
	p.Status = engine.PaymentCancelled
	s.payments[id] = p
	return nil
}

func (s *Store) PaymentsByStudent(_ context.Context, admissionNo string) ([]engine.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []engine.Payment
	for _, p := range s.payments {
		if p.AdmissionNo == admissionNo {
			out = append(out, p)
		}
	}
	sortPayments(out)
	return out, nil
}

func (s *Store) Payments(_ context.Context) ([]engine.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]engine.Payment, 0, len(s.payments))
	for _, p := range s.payments {
		out = append(out, p)
	}
	sortPayments(out)
	return out, nil
}

func (s *Store) NextReceiptNo(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.receiptCounter++
	return s.receiptCounter, nil
}

func sortPayments(ps []engine.Payment) {
	sort.Slice(ps, func(i, j int) bool {
		if !ps[i].Date.Equal(ps[j].Date) {
			return ps[i].Date.Before(ps[j].Date)
		}
		return ps[i].ReceiptNo < ps[j].ReceiptNo
	})
}
