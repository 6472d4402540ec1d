package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salesdash/internal/core"
)

type fakeStore struct {
	records map[int64]core.SalesRecord
	nextID  int64
	closed  bool
}

func newFakeStore() *fakeStore { return &fakeStore{records: map[int64]core.SalesRecord{}} }

func (f *fakeStore) AddSale(_ context.Context, r core.SalesRecord) (core.SalesRecord, error) {
	if err := r.Validate(); err != nil {
		return core.SalesRecord{}, err
	}
	f.nextID++
	r.ID = f.nextID
	f.records[r.ID] = r
	return r, nil
}

func (f *fakeStore) GetSale(_ context.Context, id int64) (core.SalesRecord, error) {
	r, ok := f.records[id]
	if !ok {
		return core.SalesRecord{}, core.ErrNotFound
	}
	return r, nil
}

func (f *fakeStore) SoftDeleteSale(_ context.Context, id int64) error {
	delete(f.records, id)
	return nil
}

func (f *fakeStore) Close() error {
	f.closed = true
	return nil
}

type fakePublisher struct {
	syncs   []int64
	deletes []string
	err     error
}

func (f *fakePublisher) PublishSaleSync(_ context.Context, id, version int64, year int) error {
	if f.err != nil {
		return f.err
	}
	f.syncs = append(f.syncs, id)
	return nil
}

func (f *fakePublisher) PublishSaleDelete(_ context.Context, id int64, year, month int, category string) error {
	if f.err != nil {
		return f.err
	}
	f.deletes = append(f.deletes, category)
	return nil
}

func (f *fakePublisher) Close() error { return errors.New("already closed") }

func validSale() core.SalesRecord {
	return core.SalesRecord{Year: 2024, Month: 5, Product: "Laptop", Category: "Electronics", Amount: 4800}
}

func TestSalesService_CreateAndDelete(t *testing.T) {
	store, pub := newFakeStore(), &fakePublisher{}
	svc := NewSalesService(store, pub, nil)
	ctx := context.Background()

	saved, err := svc.CreateSale(ctx, validSale())
	require.NoError(t, err)
	assert.Equal(t, int64(1), saved.ID)
	assert.Equal(t, []int64{1}, pub.syncs)

	deleted, err := svc.DeleteSale(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, deleted.Month)
	assert.Equal(t, []string{"Electronics"}, pub.deletes)

	_, err = svc.DeleteSale(ctx, saved.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestSalesService_PublishFailureDoesNotFailRequest(t *testing.T) {
	store := newFakeStore()
	svc := NewSalesService(store, &fakePublisher{err: errors.New("circuit breaker is open")}, nil)

	saved, err := svc.CreateSale(context.Background(), validSale())
	require.NoError(t, err)
	_, err = svc.DeleteSale(context.Background(), saved.ID)
	require.NoError(t, err)
	assert.Empty(t, store.records)
}

func TestSalesService_NoPublisher(t *testing.T) {
	svc := NewSalesService(newFakeStore(), nil, nil)
	_, err := svc.CreateSale(context.Background(), validSale())
	assert.NoError(t, err)
}

func TestSalesService_ValidationError(t *testing.T) {
	pub := &fakePublisher{}
	svc := NewSalesService(newFakeStore(), pub, nil)

	bad := validSale()
	bad.Month = 0
	_, err := svc.CreateSale(context.Background(), bad)
	assert.ErrorIs(t, err, core.ErrInvalidMonth)
	assert.Empty(t, pub.syncs)
}

func TestSalesService_Close(t *testing.T) {
	t.Run("nil components", func(t *testing.T) {
		svc := &SalesService{}
		assert.NoError(t, svc.Close())
	})

	t.Run("collects errors", func(t *testing.T) {
		store := newFakeStore()
		err := NewSalesService(store, &fakePublisher{}, nil).Close()
		require.Error(t, err)
		assert.True(t, store.closed)
		assert.True(t, strings.Contains(err.Error(), "amqp: already closed"))
	})
}

func TestSummaryService(t *testing.T) {
	svc := NewSummaryService(0)

	got, err := svc.Summarize("  Quarterly   review\n of sales ")
	require.NoError(t, err)
	assert.Equal(t, "Quarterly review of sales", got)

	long := strings.Repeat("a", 150)
	got, err = svc.Summarize(long)
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("a", 100)+"...", got)

	exact := strings.Repeat("é", 100)
	got, _ = svc.Summarize(exact)
	assert.Equal(t, exact, got, "text of exactly maxLen runes is kept whole")

	_, err = svc.Summarize(" \n\t")
	assert.ErrorIs(t, err, core.ErrEmptyText)
	assert.ErrorIs(t, err, core.ErrInvalidInput)

	short := NewSummaryService(5)
	got, _ = short.Summarize("hello world")
	assert.Equal(t, "hello...", got)
}
