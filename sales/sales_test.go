package sales_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schoolworks/fee-engine/collect"
	"github.com/schoolworks/fee-engine/engine"
	"github.com/schoolworks/fee-engine/sales"
)

type logStore struct {
	mu       sync.Mutex
	payments map[string]engine.Payment
	counter  int64
}

func newLogStore() *logStore { return &logStore{payments: make(map[string]engine.Payment)} }

func (s *logStore) AppendPayment(_ context.Context, p engine.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payments[p.ID] = p
	return nil
}

func (s *logStore) Payment(_ context.Context, id string) (engine.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.payments[id]
	if !ok {
		return engine.Payment{}, engine.ErrPaymentNotFound
	}
	return p, nil
}

func (s *logStore) CancelPayment(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.payments[id]
	p.Status = engine.PaymentCancelled
	s.payments[id] = p
	return nil
}

func (s *logStore) PaymentsByStudent(_ context.Context, admissionNo string) ([]engine.Payment, error) {
	return nil, nil
}

func (s *logStore) NextReceiptNo(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counter++
	return s.counter, nil
}

func newService() *sales.Service {
	return sales.NewService(collect.NewRecorder(newLogStore(), "SCH"))
}

func saleDate() time.Time { return time.Date(2025, time.May, 2, 0, 0, 0, 0, time.UTC) }

func TestRecordFormSale(t *testing.T) {
	// GIVEN: A walk-in payer buying an admission form
	// THEN: A FORM_SALE payment keyed by payer name, sharing the fee
	//       receipt sequence

	svc := newService()
	p, err := svc.RecordFormSale(context.Background(), sales.FormSaleRequest{
		PayerName: "Walk-in Parent",
		Date:      saleDate(),
		Amount:    engine.NewMoney(100),
		Mode:      "CASH",
	})
	require.NoError(t, err)

	assert.Equal(t, engine.KindFormSale, p.Kind)
	assert.Empty(t, p.AdmissionNo)
	assert.Equal(t, "Walk-in Parent", p.PayerName)
	assert.Equal(t, []string{sales.FormSaleLabel}, p.PaidFor)
	assert.Equal(t, "SCH-0001", p.ReceiptNo)
}

func TestRecordFormSale_RequiresPayerName(t *testing.T) {
	svc := newService()
	_, err := svc.RecordFormSale(context.Background(), sales.FormSaleRequest{
		Date:   saleDate(),
		Amount: engine.NewMoney(100),
	})
	assert.ErrorIs(t, err, engine.ErrInvalidInput)
}

func TestRecordInventorySale_ItemizesBreakdown(t *testing.T) {
	// GIVEN: Two uniforms at 350 and one tie at 80
	// THEN: Paid = 780 with a per-item breakdown

	svc := newService()
	p, err := svc.RecordInventorySale(context.Background(), sales.InventorySaleRequest{
		AdmissionNo: "ADM-001",
		Date:        saleDate(),
		Items: []sales.SaleItem{
			{Name: "Uniform", Quantity: 2, UnitPrice: engine.NewMoney(350)},
			{Name: "Tie", Quantity: 1, UnitPrice: engine.NewMoney(80)},
		},
		Mode: "UPI",
	})
	require.NoError(t, err)

	assert.Equal(t, engine.KindInventorySale, p.Kind)
	assert.True(t, engine.NewMoney(780).Equal(p.Paid))
	assert.True(t, engine.NewMoney(700).Equal(p.Breakdown["Uniform"]))
	assert.True(t, engine.NewMoney(80).Equal(p.Breakdown["Tie"]))
	assert.Equal(t, []string{sales.InventorySaleLabel}, p.PaidFor)
}

func TestRecordInventorySale_Validation(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	_, err := svc.RecordInventorySale(ctx, sales.InventorySaleRequest{Date: saleDate()})
	assert.ErrorIs(t, err, engine.ErrInvalidInput)

	_, err = svc.RecordInventorySale(ctx, sales.InventorySaleRequest{
		AdmissionNo: "ADM-001",
		Date:        saleDate(),
		Items:       []sales.SaleItem{{Name: "Uniform", Quantity: 0, UnitPrice: engine.NewMoney(350)}},
	})
	assert.ErrorIs(t, err, engine.ErrInvalidInput)

	_, err = svc.RecordInventorySale(ctx, sales.InventorySaleRequest{
		AdmissionNo: "ADM-001",
		Date:        saleDate(),
		Items:       []sales.SaleItem{{Name: "Uniform", Quantity: 1, UnitPrice: engine.NewMoney(-5)}},
	})
	assert.ErrorIs(t, err, engine.ErrNegativeAmount)
}
