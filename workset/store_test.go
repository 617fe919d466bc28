package workset

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"control-produccion/models"
)

func openMemory(t *testing.T) *BadgerStore {
	t.Helper()
	s, err := Open("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func sample() models.WorkingSet {
	return models.WorkingSet{
		SessionKey:    "k-1",
		OperatorID:    "op-1",
		ParentBatchID: "4019635",
		Capacity:      1200,
		Lines: []models.LineItem{
			{ID: "4019635-01", CutQty: 20, RealWidth: 30, Codes: models.CatalogCodes{SAP: "SAP-1"}},
			{ID: "4019635-02", CutQty: 10, RealWidth: 20},
		},
	}
}

func TestBadgerStore_SaveGetRetire(t *testing.T) {
	s := openMemory(t)
	ctx := context.Background()

	got, err := s.Get(ctx, "k-1")
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, s.Save(ctx, sample()))

	got, err = s.Get(ctx, "k-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "op-1", got.OperatorID)
	require.Len(t, got.Lines, 2)
	assert.Equal(t, "SAP-1", got.Lines[0].Codes.SAP)

	require.NoError(t, s.Retire(ctx, "k-1", 0))
	got, err = s.Get(ctx, "k-1")
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, s.Retire(ctx, "missing", 0))
	require.NoError(t, s.Retire(ctx, "missing", time.Hour))
}

func TestBadgerStore_RetireSealsWithTTL(t *testing.T) {
	s := openMemory(t)
	ctx := context.Background()
	require.NoError(t, s.Save(ctx, sample()))

	require.NoError(t, s.Retire(ctx, "k-1", time.Hour))

	got, err := s.Get(ctx, "k-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.Sealed)
	assert.Len(t, got.Lines, 2)

	err = s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key("k-1"))
		if err != nil {
			return err
		}
		assert.NotZero(t, item.ExpiresAt())
		return nil
	})
	require.NoError(t, err)
}

func TestBadgerStore_SaveRejectsEmptyKey(t *testing.T) {
	s := openMemory(t)
	assert.Error(t, s.Save(context.Background(), models.WorkingSet{}))
}

func TestBadgerStore_Update(t *testing.T) {
	s := openMemory(t)
	ctx := context.Background()
	require.NoError(t, s.Save(ctx, sample()))

	got, err := s.Update(ctx, "k-1", func(ws *models.WorkingSet) error {
		ws.Lines[0].CutQty = 42
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, got.Lines[0].CutQty)

	stored, err := s.Get(ctx, "k-1")
	require.NoError(t, err)
	assert.Equal(t, 42, stored.Lines[0].CutQty)

	boom := errors.New("refused")
	_, err = s.Update(ctx, "k-1", func(ws *models.WorkingSet) error {
		ws.Lines[0].CutQty = 0
		return boom
	})
	assert.ErrorIs(t, err, boom)

	stored, err = s.Get(ctx, "k-1")
	require.NoError(t, err)
	assert.Equal(t, 42, stored.Lines[0].CutQty, "failed update must not be written")

	_, err = s.Update(ctx, "missing", func(*models.WorkingSet) error { return nil })
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestBadgerStore_ConcurrentUpdates(t *testing.T) {
	s := openMemory(t)
	ctx := context.Background()
	require.NoError(t, s.Save(ctx, sample()))

	const n = 4
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Update(ctx, "k-1", func(ws *models.WorkingSet) error {
				ws.Lines[1].CutQty++
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	stored, err := s.Get(ctx, "k-1")
	require.NoError(t, err)
	assert.Equal(t, 10+n, stored.Lines[1].CutQty)
}

func TestBadgerStore_CanceledContext(t *testing.T) {
	s := openMemory(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Get(ctx, "k-1")
	assert.ErrorIs(t, err, context.Canceled)
}
