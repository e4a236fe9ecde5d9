//go:build integration

package database_test

import (
	"context"
	"log"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/thereayou/cipherchat/internal/database"
	"github.com/thereayou/cipherchat/internal/models"
	"github.com/thereayou/cipherchat/internal/services"
	"github.com/thereayou/cipherchat/internal/testutil"
)

// Run with: go test -tags=integration -timeout 180s ./internal/database/...
func startPostgres(t *testing.T) *database.Database {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("chat"),
		postgres.WithUsername("chat"),
		postgres.WithPassword("chat"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err, "failed to start postgres container")
	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			log.Printf("failed to terminate postgres container: %v", err)
		}
	})

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := database.Connect(connStr, database.PoolConfig{MaxOpenConns: 20}, testutil.Logger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestPostgresConcurrentJoinsRespectCapacity(t *testing.T) {
	db := startPostgres(t)
	ctx := context.Background()
	dir := services.NewRoomDirectory(db, testutil.Logger())

	owner := testutil.User(t, db, "owner")
	room, err := dir.Create(ctx, services.CreateRoomInput{Name: "capacity", MaxMembers: 5}, owner.ID)
	require.NoError(t, err)

	joiners := make([]*models.User, 20)
	for i := range joiners {
		joiners[i] = testutil.User(t, db, "joiner"+string(rune('a'+i)))
	}

	var wg sync.WaitGroup
	for _, u := range joiners {
		wg.Add(1)
		go func(u *models.User) {
			defer wg.Done()
			_, _ = dir.Join(ctx, room, u.ID)
		}(u)
	}
	wg.Wait()

	members, err := dir.Members(ctx, room)
	require.NoError(t, err)
	assert.Len(t, members, 5)
}

func TestPostgresConcurrentSlugs(t *testing.T) {
	db := startPostgres(t)
	ctx := context.Background()
	dir := services.NewRoomDirectory(db, testutil.Logger())
	owner := testutil.User(t, db, "owner")

	const n = 4
	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		slugs = map[string]bool{}
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			room, err := dir.Create(ctx, services.CreateRoomInput{Name: "foo"}, owner.ID)
			if assert.NoError(t, err) {
				mu.Lock()
				slugs[room.Slug] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, slugs, n)
	assert.True(t, slugs["foo"])
	assert.True(t, slugs["foo-1"])
}

func TestPostgresDuplicateSlugIsTranslated(t *testing.T) {
	db := startPostgres(t)
	owner := testutil.User(t, db, "owner")

	room := &models.Room{Name: "x", Slug: "x", MaxMembers: 10, CreatedBy: owner.ID}
	require.NoError(t, db.CreateRoom(context.Background(), room))

	err := db.CreateRoom(context.Background(), &models.Room{Name: "x", Slug: "x", MaxMembers: 10, CreatedBy: owner.ID})
	assert.ErrorIs(t, err, database.ErrDuplicateSlug)
}
