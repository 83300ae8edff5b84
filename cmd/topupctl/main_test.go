package main

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cryptotopup/internal/db"
	"cryptotopup/internal/repository"
)

func TestParseRange(t *testing.T) {
	now := time.Date(2024, 5, 20, 15, 30, 0, 0, time.UTC)

	tests := []struct {
		name      string
		from, to  string
		wantStart time.Time
		wantEnd   time.Time
		wantErr   bool
	}{
		{
			name:      "defaults",
			wantStart: time.Date(2024, 4, 20, 0, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2024, 5, 21, 0, 0, 0, 0, time.UTC),
		},
		{
			name:      "single day",
			from:      "2024-05-01",
			to:        "2024-05-01",
			wantStart: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC),
		},
		{name: "reversed", from: "2024-05-03", to: "2024-05-01", wantErr: true},
		{name: "bad from", from: "05/01/2024", wantErr: true},
		{name: "bad to", to: "tomorrow", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end, err := parseRange(tt.from, tt.to, now)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantStart, start)
			assert.Equal(t, tt.wantEnd, end)
		})
	}
}

func TestSeedUsers(t *testing.T) {
	gormDB, err := db.Open("sqlite", fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()))
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gormDB))
	t.Cleanup(func() {
		if sqlDB, err := gormDB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	repo := repository.NewUserRepository(gormDB)
	ctx := context.Background()

	users := []seedUser{
		{TelegramID: 100, Username: "alice"},
		{TelegramID: 200, Username: "bob", ReferrerTelegramID: 100},
		{TelegramID: 300, Username: "carol", ReferrerTelegramID: 999},
		{Username: "nobody"},
	}

	created, skipped, err := seedUsers(ctx, repo, users)
	require.NoError(t, err)
	assert.Equal(t, 3, created)
	assert.Equal(t, 1, skipped)

	alice, err := repo.FindByTelegramID(ctx, 100)
	require.NoError(t, err)
	bob, err := repo.FindByTelegramID(ctx, 200)
	require.NoError(t, err)
	require.NotNil(t, bob.ReferredByID)
	assert.Equal(t, alice.ID, *bob.ReferredByID)

	carol, err := repo.FindByTelegramID(ctx, 300)
	require.NoError(t, err)
	assert.Nil(t, carol.ReferredByID)

	created, skipped, err = seedUsers(ctx, repo, users[:2])
	require.NoError(t, err)
	assert.Equal(t, 0, created)
	assert.Equal(t, 2, skipped)
}
