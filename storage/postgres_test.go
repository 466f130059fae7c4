package storage_test

import (
	"context"
	"os"
	"testing"
	"time"

	"diceroom/domain"
	"diceroom/migrations"
	"diceroom/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

var repo *storage.PostgresRepo

func TestMain(m *testing.M) {
	ctx := context.Background()

	postgresContainer, err := postgres.Run(ctx,
		"postgres:16-alpine3.22",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testusername"),
		postgres.WithPassword("testpassword"),
		testcontainers.WithWaitStrategy(wait.ForLog("database system is ready to accept connections").WithOccurrence(2).WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		panic(err)
	}

	connString, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		panic(err)
	}

	if err := migrations.Migrate(connString); err != nil {
		panic(err)
	}

	repo, err = storage.NewPostgresRepo(ctx, connString)
	if err != nil {
		panic(err)
	}

	code := m.Run()

	repo.Close()
	postgresContainer.Terminate(ctx)
	os.Exit(code)
}

func TestPostgresRepo(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2026, 1, 2, 15, 4, 5, 0, time.UTC)

	t.Run("RecordRoll", func(t *testing.T) {
		err := repo.RecordRoll(ctx, domain.RollRecord{
			RoomID: "QUIxMg==", ClientID: "alice", Won: 3, Lost: 2, Accepted: true, RecordedAt: base,
		})
		assert.NoError(t, err)

		var count int
		err = repo.GetPool().QueryRow(ctx, "SELECT count(*) FROM roll_journal WHERE room_id = $1", "QUIxMg==").Scan(&count)
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})

	t.Run("ListRolls newest first", func(t *testing.T) {
		require.NoError(t, repo.RecordRoll(ctx, domain.RollRecord{
			RoomID: "QUIxMg==", ClientID: "bob", Won: 1, Lost: 6, Accepted: false, RecordedAt: base.Add(time.Second),
		}))
		require.NoError(t, repo.RecordRoll(ctx, domain.RollRecord{
			RoomID: "WlpaWg==", ClientID: "carol", Won: 4, Lost: 4, Accepted: true, RecordedAt: base.Add(2 * time.Second),
		}))

		rolls, err := repo.ListRolls(ctx, "QUIxMg==", 10)
		require.NoError(t, err)
		require.Len(t, rolls, 2)

		assert.Equal(t, "bob", rolls[0].ClientID)
		assert.False(t, rolls[0].Accepted)
		assert.Equal(t, 6, rolls[0].Lost)
		assert.True(t, rolls[0].RecordedAt.Equal(base.Add(time.Second)))

		assert.Equal(t, "alice", rolls[1].ClientID)
		assert.True(t, rolls[1].Accepted)
	})

	t.Run("ListRolls respects limit", func(t *testing.T) {
		rolls, err := repo.ListRolls(ctx, "QUIxMg==", 1)
		require.NoError(t, err)
		assert.Len(t, rolls, 1)
	})

	t.Run("ListRolls unknown room", func(t *testing.T) {
		rolls, err := repo.ListRolls(ctx, "MDAwMA==", 10)
		require.NoError(t, err)
		assert.Empty(t, rolls)
	})

	t.Run("canceled context is not wrapped", func(t *testing.T) {
		canceled, cancel := context.WithCancel(ctx)
		cancel()
		err := repo.RecordRoll(canceled, domain.RollRecord{RoomID: "x", ClientID: "y", RecordedAt: base})
		assert.ErrorIs(t, err, context.Canceled)
		assert.NotErrorIs(t, err, domain.ErrUnexpectedDatabase)
	})
}
