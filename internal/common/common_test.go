package common

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserError(t *testing.T) {
	err := NewUserError("could not delete account", ErrAccountInUse)
	assert.Equal(t, "could not delete account: account is referenced by transactions", err.Error())
	assert.ErrorIs(t, err, ErrAccountInUse)

	var userErr *UserError
	require.True(t, errors.As(err, &userErr))
	assert.Equal(t, "could not delete account", userErr.UserMessage)

	assert.Equal(t, "plain", NewUserError("plain", nil).Error())
}

func TestIsCancellation(t *testing.T) {
	assert.True(t, IsCancellation(context.Canceled))
	assert.True(t, IsCancellation(fmt.Errorf("wrapped: %w", context.DeadlineExceeded)))
	assert.False(t, IsCancellation(ErrNotFound))
}

func TestParseLevel(t *testing.T) {
	lvl, err := ParseLevel("DEBUG")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, lvl)

	_, err = ParseLevel("verbose")
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestSetupLoggerWithWriter(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var buf bytes.Buffer
	require.NoError(t, SetupLoggerWithWriter(&buf, slog.LevelInfo, "json"))
	ctx := context.Background()
	LogInfo(ctx, "report built", Fields{"accounts": 3})
	LogDebug(ctx, "hidden", nil)
	LogWarn(ctx, "rate missing", Fields{"pair": "USD/EUR"})
	LogError(ctx, errors.New("disk full"), "rollback failed", Fields{"version": 2})

	out := buf.String()
	assert.Contains(t, out, `"msg":"report built"`)
	assert.Contains(t, out, `"accounts":3`)
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"level":"WARN"`)
	assert.Contains(t, out, `"pair":"USD/EUR"`)
	assert.Contains(t, out, `"level":"ERROR"`)
	assert.Contains(t, out, `"error":"disk full"`)
	assert.Contains(t, out, `"version":2`)

	assert.ErrorIs(t, SetupLoggerWithWriter(&buf, slog.LevelInfo, "xml"), ErrInvalidConfig)
}
