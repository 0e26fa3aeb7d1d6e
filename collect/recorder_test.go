package collect_test

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schoolworks/fee-engine/collect"
	"github.com/schoolworks/fee-engine/engine"
)

// stubStore is a minimal in-memory Store for recorder tests.
type stubStore struct {
	mu       sync.Mutex
	payments map[string]engine.Payment
	counter  int64
}

func newStubStore() *stubStore {
	return &stubStore{payments: make(map[string]engine.Payment)}
}

func (s *stubStore) AppendPayment(_ context.Context, p engine.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payments[p.ID] = p
	return nil
}

func (s *stubStore) Payment(_ context.Context, id string) (engine.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.payments[id]
	if !ok {
		return engine.Payment{}, engine.ErrPaymentNotFound
	}
	return p, nil
}

func (s *stubStore) CancelPayment(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.payments[id]
	if !ok {
		return engine.ErrPaymentNotFound
	}
	p.Status = engine.PaymentCancelled
	s.payments[id] = p
	return nil
}

func (s *stubStore) PaymentsByStudent(_ context.Context, admissionNo string) ([]engine.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []engine.Payment
	for _, p := range s.payments {
		if p.AdmissionNo == admissionNo {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *stubStore) NextReceiptNo(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counter++
	return s.counter, nil
}

func validRequest() collect.RecordRequest {
	return collect.RecordRequest{
		AdmissionNo: "ADM-001",
		Date:        time.Date(2025, time.April, 4, 0, 0, 0, 0, time.UTC),
		Paid:        engine.NewMoney(500),
		PaidFor:     []string{"April"},
		Mode:        "CASH",
	}
}

// =============================================================================
// RECORD
// =============================================================================

func TestRecord_AssignsIDReceiptAndPostedStatus(t *testing.T) {
	// GIVEN: A fresh recorder with prefix SCH
	// WHEN: Recording a valid payment
	// THEN: The payment is appended POSTED with receipt SCH-0001

	store := newStubStore()
	rec := collect.NewRecorder(store, "SCH")

	p, err := rec.Record(context.Background(), validRequest())
	require.NoError(t, err)

	assert.NotEmpty(t, p.ID)
	assert.Equal(t, "SCH-0001", p.ReceiptNo)
	assert.Equal(t, engine.PaymentPosted, p.Status)
	assert.Equal(t, engine.KindSchedule, p.Kind)

	stored, err := store.Payment(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.ReceiptNo, stored.ReceiptNo)
}

func TestRecord_ReceiptNumbersAreSequential(t *testing.T) {
	rec := collect.NewRecorder(newStubStore(), "SCH")

	first, err := rec.Record(context.Background(), validRequest())
	require.NoError(t, err)
	second, err := rec.Record(context.Background(), validRequest())
	require.NoError(t, err)

	assert.Equal(t, "SCH-0001", first.ReceiptNo)
	assert.Equal(t, "SCH-0002", second.ReceiptNo)
}

func TestRecord_EmptyPrefixFallsBackToDefault(t *testing.T) {
	rec := collect.NewRecorder(newStubStore(), "  ")
	p, err := rec.Record(context.Background(), validRequest())
	require.NoError(t, err)
	assert.Equal(t, "SCH-0001", p.ReceiptNo)
}

func TestRecord_Validation(t *testing.T) {
	rec := collect.NewRecorder(newStubStore(), "SCH")
	ctx := context.Background()

	// Missing admission number on a schedule payment.
	req := validRequest()
	req.AdmissionNo = " "
	_, err := rec.Record(ctx, req)
	assert.ErrorIs(t, err, engine.ErrInvalidInput)

	// Zero date.
	req = validRequest()
	req.Date = time.Time{}
	_, err = rec.Record(ctx, req)
	assert.ErrorIs(t, err, engine.ErrInvalidInput)

	// Negative amount.
	req = validRequest()
	req.Paid = engine.NewMoney(-10)
	_, err = rec.Record(ctx, req)
	assert.ErrorIs(t, err, engine.ErrNegativeAmount)

	// Neither paid nor discount.
	req = validRequest()
	req.Paid = engine.Zero()
	_, err = rec.Record(ctx, req)
	assert.ErrorIs(t, err, engine.ErrInvalidInput)

	// Negative breakdown entry.
	req = validRequest()
	req.Breakdown = map[string]engine.Money{"Annual Fee": engine.NewMoney(-1)}
	_, err = rec.Record(ctx, req)
	assert.ErrorIs(t, err, engine.ErrNegativeAmount)
}

func TestRecord_DiscountOnlyPaymentAllowed(t *testing.T) {
	rec := collect.NewRecorder(newStubStore(), "SCH")

	req := validRequest()
	req.Paid = engine.Zero()
	req.Discount = engine.NewMoney(500)

	p, err := rec.Record(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, p.Paid.IsZero())
	assert.True(t, engine.NewMoney(500).Equal(p.Discount))
}

func TestRecord_FormSaleNeedsNoAdmissionNumber(t *testing.T) {
	rec := collect.NewRecorder(newStubStore(), "SCH")

	req := validRequest()
	req.AdmissionNo = ""
	req.PayerName = "Walk-in Parent"
	req.Kind = engine.KindFormSale

	p, err := rec.Record(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, engine.KindFormSale, p.Kind)
	assert.Equal(t, "Walk-in Parent", p.PayerName)
}

// =============================================================================
// CANCEL
// =============================================================================

func TestCancel_FlipsStatusOnce(t *testing.T) {
	store := newStubStore()
	rec := collect.NewRecorder(store, "SCH")
	ctx := context.Background()

	p, err := rec.Record(ctx, validRequest())
	require.NoError(t, err)

	require.NoError(t, rec.Cancel(ctx, p.ID))
	stored, err := store.Payment(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, engine.PaymentCancelled, stored.Status)

	// Cancelling a cancelled payment is an error.
	assert.ErrorIs(t, rec.Cancel(ctx, p.ID), engine.ErrPaymentCancelled)
}

func TestCancel_UnknownPayment(t *testing.T) {
	rec := collect.NewRecorder(newStubStore(), "SCH")
	assert.ErrorIs(t, rec.Cancel(context.Background(), "nope"), engine.ErrPaymentNotFound)
}

// =============================================================================
// CONCURRENCY
// =============================================================================

func TestRecord_ConcurrentReceiptNumbersUnique(t *testing.T) {
	// GIVEN: 50 goroutines recording at the same time
	// THEN: 50 distinct, gap-free receipt numbers

	rec := collect.NewRecorder(newStubStore(), "SCH")
	ctx := context.Background()

	const n = 50
	receipts := make([]string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p, err := rec.Record(ctx, validRequest())
			assert.NoError(t, err)
			receipts[i] = p.ReceiptNo
		}(i)
	}
	wg.Wait()

	sort.Strings(receipts)
	for i := 0; i < n; i++ {
		assert.Equal(t, collect.FormatReceiptNo("SCH", int64(i+1)), receipts[i])
	}
}
