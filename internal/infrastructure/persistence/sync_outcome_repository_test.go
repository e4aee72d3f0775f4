package persistence

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/erp/syncbridge/internal/domain/integration"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupSyncResultTestDB(t *testing.T) *gorm.DB {
	path := filepath.Join(t.TempDir(), "sync_results.db")
	db, err := gorm.Open(sqlite.Open(sqliteDSN(path)), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	return db
}

// fixedClock returns a clock that advances one second per call
func fixedClock(start time.Time) func() time.Time {
	var mu sync.Mutex
	current := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t := current
		current = current.Add(time.Second)
		return t
	}
}

func newOutcome(billKey string, state integration.SyncState) *integration.SyncOutcome {
	outcome := &integration.SyncOutcome{
		BillKey:   billKey,
		ErpKey:    billKey,
		BillType:  2,
		SyncState: state,
		SyncMsg:   "Synced 1/1 details",
		ErrorCode: integration.ErrorCodeNone,
	}
	if state == integration.SyncStateFail {
		outcome.SyncMsg = "Errors: bad Qty for P1"
		outcome.ErrorCode = integration.ErrorCodeSyncFailed
	}
	return outcome
}

func TestSyncOutcomeRepository_AppendAndListRecent(t *testing.T) {
	db := setupSyncResultTestDB(t)
	start := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	repo := NewSyncOutcomeRepository(db, WithClock(fixedClock(start)))
	ctx := context.Background()

	first := newOutcome("BILL-1", integration.SyncStateSuccess)
	require.NoError(t, repo.Append(ctx, first))
	second := newOutcome("BILL-2", integration.SyncStateFail)
	require.NoError(t, repo.Append(ctx, second))

	assert.Equal(t, int64(1), first.ID)
	assert.Equal(t, int64(2), second.ID)
	assert.True(t, first.CreatedAt.Equal(start))
	assert.True(t, second.CreatedAt.After(first.CreatedAt))

	results, err := repo.ListRecent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, results, 2)

	// most recent first
	assert.Equal(t, "BILL-2", results[0].BillKey)
	assert.Equal(t, integration.SyncStateFail, results[0].SyncState)
	assert.Equal(t, integration.ErrorCodeSyncFailed, results[0].ErrorCode)
	assert.Equal(t, "Errors: bad Qty for P1", results[0].SyncMsg)

	assert.Equal(t, "BILL-1", results[1].BillKey)
	assert.Equal(t, "BILL-1", results[1].ErpKey)
	assert.Equal(t, integration.BillType(2), results[1].BillType)
	assert.Equal(t, integration.SyncStateSuccess, results[1].SyncState)
	assert.WithinDuration(t, start, results[1].CreatedAt, time.Millisecond)
}

func TestSyncOutcomeRepository_ListRecentLimits(t *testing.T) {
	db := setupSyncResultTestDB(t)
	repo := NewSyncOutcomeRepository(db)
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		require.NoError(t, repo.Append(ctx, newOutcome(fmt.Sprintf("BILL-%d", i), integration.SyncStateSuccess)))
	}

	t.Run("positive limit", func(t *testing.T) {
		results, err := repo.ListRecent(ctx, 2)
		require.NoError(t, err)
		require.Len(t, results, 2)
		assert.Equal(t, "BILL-5", results[0].BillKey)
		assert.Equal(t, "BILL-4", results[1].BillKey)
	})

	t.Run("non-positive limit uses default", func(t *testing.T) {
		results, err := repo.ListRecent(ctx, 0)
		require.NoError(t, err)
		assert.Len(t, results, 5)

		results, err = repo.ListRecent(ctx, -3)
		require.NoError(t, err)
		assert.Len(t, results, 5)
	})

	t.Run("large limit is capped", func(t *testing.T) {
		results, err := repo.ListRecent(ctx, 1_000_000)
		require.NoError(t, err)
		assert.Len(t, results, 5)
	})
}

func TestSyncOutcomeRepository_EmptyStore(t *testing.T) {
	repo := NewSyncOutcomeRepository(setupSyncResultTestDB(t))

	results, err := repo.ListRecent(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSyncOutcomeRepository_EnsureSchemaIdempotent(t *testing.T) {
	db := setupSyncResultTestDB(t)
	ctx := context.Background()

	repo := NewSyncOutcomeRepository(db)
	require.NoError(t, repo.Append(ctx, newOutcome("KEEP-ME", integration.SyncStateSuccess)))

	// A second repository over the same database must not destroy existing rows.
	other := NewSyncOutcomeRepository(db)
	require.NoError(t, other.EnsureSchema(ctx))
	require.NoError(t, other.EnsureSchema(ctx))

	results, err := other.ListRecent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "KEEP-ME", results[0].BillKey)
}

func TestSyncOutcomeRepository_SameBillTwice(t *testing.T) {
	repo := NewSyncOutcomeRepository(setupSyncResultTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Append(ctx, newOutcome("BILL-1", integration.SyncStateSuccess)))
	require.NoError(t, repo.Append(ctx, newOutcome("BILL-1", integration.SyncStateSuccess)))

	results, err := repo.ListRecent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, results[0].BillKey, results[1].BillKey)
	assert.NotEqual(t, results[0].ID, results[1].ID)
}

func TestSyncOutcomeRepository_ConcurrentAppends(t *testing.T) {
	repo := NewSyncOutcomeRepository(setupSyncResultTestDB(t))
	ctx := context.Background()

	const writers = 8
	const perWriter = 10

	var wg sync.WaitGroup
	errs := make(chan error, writers*perWriter)
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				errs <- repo.Append(ctx, newOutcome(fmt.Sprintf("W%d-%d", w, i), integration.SyncStateSuccess))
			}
		}(w)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	results, err := repo.ListRecent(ctx, integration.MaxListLimit)
	require.NoError(t, err)
	require.Len(t, results, writers*perWriter)

	for i := 1; i < len(results); i++ {
		assert.Greater(t, results[i-1].ID, results[i].ID)
		assert.False(t, results[i-1].CreatedAt.Before(results[i].CreatedAt))
	}
}

func TestSyncOutcomeRepository_StorageUnavailable(t *testing.T) {
	db := setupSyncResultTestDB(t)
	repo := NewSyncOutcomeRepository(db)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	err = repo.Append(context.Background(), newOutcome("BILL-1", integration.SyncStateSuccess))
	require.Error(t, err)
	assert.True(t, errors.Is(err, integration.ErrStorageUnavailable))

	var storageErr *integration.StorageError
	require.True(t, errors.As(err, &storageErr))
	assert.Equal(t, "init", storageErr.Op)

	_, err = repo.ListRecent(context.Background(), 10)
	assert.True(t, errors.Is(err, integration.ErrStorageUnavailable))
}

func TestSyncOutcomeRepository_DriverErrorsWrapped(t *testing.T) {
	tableExists := func(mock sqlmock.Sqlmock) {
		mock.ExpectQuery(`SELECT count\(\*\) FROM information_schema.tables`).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	}

	t.Run("insert failure", func(t *testing.T) {
		db, mock, mockDB := newMockDatabase(t)
		defer mockDB.Close()
		repo := NewSyncOutcomeRepository(db.DB)

		tableExists(mock)
		mock.ExpectQuery(`INSERT INTO "sync_results"`).
			WillReturnError(errors.New("connection reset by peer"))

		outcome := newOutcome("BILL-1", integration.SyncStateSuccess)
		err := repo.Append(context.Background(), outcome)

		var storageErr *integration.StorageError
		require.True(t, errors.As(err, &storageErr))
		assert.Equal(t, "append", storageErr.Op)
		assert.Contains(t, err.Error(), "connection reset by peer")
		assert.Zero(t, outcome.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("select failure", func(t *testing.T) {
		db, mock, mockDB := newMockDatabase(t)
		defer mockDB.Close()
		repo := NewSyncOutcomeRepository(db.DB)

		tableExists(mock)
		mock.ExpectQuery(`SELECT \* FROM "sync_results" ORDER BY id DESC`).
			WillReturnError(errors.New("canceling statement due to statement timeout"))

		_, err := repo.ListRecent(context.Background(), 5)

		var storageErr *integration.StorageError
		require.True(t, errors.As(err, &storageErr))
		assert.Equal(t, "list", storageErr.Op)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestSyncResultModel_Conversion(t *testing.T) {
	outcome := newOutcome("BILL-9", integration.SyncStateFail)
	model := SyncResultModelFromEntity(outcome)

	assert.Equal(t, "sync_results", model.TableName())
	assert.Zero(t, model.ID)
	assert.Equal(t, int32(2), model.SyncState)
	assert.Equal(t, int32(1001), model.ErrorCode)

	model.ID = 7
	back := model.ToEntity()
	assert.Equal(t, int64(7), back.ID)
	assert.Equal(t, outcome.SyncMsg, back.SyncMsg)
	assert.Equal(t, outcome.BillType, back.BillType)
}
