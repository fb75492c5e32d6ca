package tokens

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/helioview/portal/internal/common"
	"github.com/helioview/portal/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSweeper_SweepPurgesExpiredOnly(t *testing.T) {
	clock := newFakeClock(time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC))
	sessions := NewMemoryRepository(8 * time.Hour).WithNow(clock.Now)
	resets := NewMemoryRepository(time.Hour).WithNow(clock.Now)
	ctx := context.Background()

	staleSession, err := sessions.Issue(ctx, "jane@example.com")
	require.NoError(t, err)
	_, err = resets.Issue(ctx, "jane@example.com")
	require.NoError(t, err)

	clock.Advance(2 * time.Hour)
	freshSession, err := sessions.Issue(ctx, "john@example.com")
	require.NoError(t, err)

	clock.Advance(7 * time.Hour)

	var buf bytes.Buffer
	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(&buf, nil)))
	sweeper, err := NewSweeper("@every 1h", logger, sessions, resets)
	require.NoError(t, err)

	sweeper.sweep()

	_, err = sessions.Resolve(ctx, staleSession)
	require.ErrorIs(t, err, common.ErrorNotFound)
	_, err = sessions.Resolve(ctx, freshSession)
	require.NoError(t, err)

	assert.True(t, strings.Contains(buf.String(), "purged expired tokens"))
}

func TestNewSweeper_RejectsBadSchedule(t *testing.T) {
	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))
	_, err := NewSweeper("whenever", logger, NewMemoryRepository(time.Hour))
	require.Error(t, err)
}
