package integration

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	inventoryPG "github.com/ticketmesh/orderflow/internal/inventory/infrastructure/postgres"
	domainerrors "github.com/ticketmesh/orderflow/pkg/errors"
)

const inventoryMigrationsDir = "../../db/migrations/inventory"

func setupInventoryRepository(t *testing.T) (*inventoryPG.Repository, *pgxpool.Pool) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container-backed test in -short mode")
	}

	ctx := context.Background()
	env, err := Setup(ctx, false)
	require.NoError(t, err)
	t.Cleanup(func() { env.Teardown(ctx) })

	sqlDB, err := env.OpenAndMigrate(ctx, inventoryMigrationsDir)
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	pool, err := pgxpool.New(ctx, env.PGURL)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	_, err = pool.Exec(ctx, `INSERT INTO inventory_items (session_id, ticket_type_id, total_quantity, available_quantity) VALUES ($1, $2, $3, $3)`,
		"session-1", "ga", 10)
	require.NoError(t, err)

	return inventoryPG.NewRepository(slog.Default(), pool), pool
}

func TestHoldNeverOversells(t *testing.T) {
	repo, pool := setupInventoryRepository(t)
	ctx := context.Background()

	const attempts = 20
	const quantityEach = 1

	var accepted int64
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			holdID := "concurrent-hold-" + string(rune('a'+i))
			_, err := repo.Hold(ctx, "session-1", "ga", holdID, quantityEach, time.Now().Add(time.Minute))
			if err == nil {
				atomic.AddInt64(&accepted, 1)
			} else {
				assert.True(t, domainerrors.Is(err, domainerrors.KindInsufficientInventory))
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int64(10), accepted, "exactly the initial capacity of 10 holds should be accepted")

	var available int
	require.NoError(t, pool.QueryRow(ctx, `SELECT available_quantity FROM inventory_items WHERE session_id='session-1' AND ticket_type_id='ga'`).Scan(&available))
	assert.Equal(t, 0, available)
}

func TestHoldIsIdempotentOnRepeatedCall(t *testing.T) {
	repo, _ := setupInventoryRepository(t)
	ctx := context.Background()

	first, err := repo.Hold(ctx, "session-1", "ga", "hold-repeat", 3, time.Now().Add(time.Minute))
	require.NoError(t, err)
	assert.False(t, first.Duplicate)

	second, err := repo.Hold(ctx, "session-1", "ga", "hold-repeat", 3, time.Now().Add(time.Minute))
	require.NoError(t, err)
	assert.True(t, second.Duplicate)

	assert.Equal(t, first.Item.AvailableQuantity, second.Item.AvailableQuantity, "a replayed hold must not decrement inventory twice")
}

func TestReleaseThenCommitOnSameHoldIsRejected(t *testing.T) {
	repo, _ := setupInventoryRepository(t)
	ctx := context.Background()

	_, err := repo.Hold(ctx, "session-1", "ga", "hold-lifecycle", 2, time.Now().Add(time.Minute))
	require.NoError(t, err)

	_, err = repo.Release(ctx, "hold-lifecycle")
	require.NoError(t, err)

	_, err = repo.Commit(ctx, "hold-lifecycle")
	require.Error(t, err)
	assert.True(t, domainerrors.Is(err, domainerrors.KindInvalidStateTransition))
}

func TestCommitIsIdempotent(t *testing.T) {
	repo, _ := setupInventoryRepository(t)
	ctx := context.Background()

	_, err := repo.Hold(ctx, "session-1", "ga", "hold-commit-twice", 2, time.Now().Add(time.Minute))
	require.NoError(t, err)

	_, err = repo.Commit(ctx, "hold-commit-twice")
	require.NoError(t, err)

	_, err = repo.Commit(ctx, "hold-commit-twice")
	require.NoError(t, err, "committing an already-committed hold must be a no-op, not an error")
}
