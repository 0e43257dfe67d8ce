package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ganot/sitewatch/internal/domain/capture"
)

func TestRunRepository_RecordAndList(t *testing.T) {
	db := NewTestDB(t)
	repo := NewRunRepository(db)
	ctx := context.Background()

	base := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	runs := []capture.Run{
		{
			ID: "run-a", StartedAt: base, FinishedAt: base.Add(time.Minute),
			Total: 5, Completed: 5, Outcome: capture.OutcomeComplete,
		},
		{
			ID: "run-b", StartedAt: base.Add(time.Hour), FinishedAt: base.Add(time.Hour + time.Minute),
			Total: 5, Completed: 4, Errors: []string{"beta.test: timeout"},
			Outcome: capture.OutcomeDegraded,
		},
	}
	for i := range runs {
		require.NoError(t, repo.RecordRun(ctx, &runs[i]))
	}

	got, err := repo.ListRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)

	// Newest first
	require.Equal(t, "run-b", got[0].ID)
	require.Equal(t, []string{"beta.test: timeout"}, got[0].Errors)
	require.Equal(t, capture.OutcomeDegraded, got[0].Outcome)
	require.Equal(t, "run-a", got[1].ID)
	require.Empty(t, got[1].Errors)
}

func TestRunRepository_ListLimit(t *testing.T) {
	db := NewTestDB(t)
	repo := NewRunRepository(db)
	ctx := context.Background()

	base := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		run := capture.Run{
			ID:         string(rune('a' + i)),
			StartedAt:  base.Add(time.Duration(i) * time.Hour),
			FinishedAt: base.Add(time.Duration(i)*time.Hour + time.Minute),
			Total:      1, Completed: 1, Outcome: capture.OutcomeComplete,
		}
		require.NoError(t, repo.RecordRun(ctx, &run))
	}

	got, err := repo.ListRuns(ctx, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "e", got[0].ID)
}
