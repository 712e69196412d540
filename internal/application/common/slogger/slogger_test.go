package slogger

import (
	"context"
	"testing"
	"time"

	"markupcheck/internal/application/common/logging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigure(t *testing.T) {
	t.Cleanup(func() { SetGlobalLogger(nil) })

	require.Error(t, Configure(logging.Config{Level: "LOUD", Format: "text", Output: "stderr"}))
	require.NoError(t, Configure(logging.Config{Level: "INFO", Format: "text", Output: "buffer"}))

	Debug(context.Background(), "hidden", nil)
	WithComponent("cli").Info(context.Background(), "visible", Field("path", "a.html"))

	out := logging.BufferedOutput(getLogger())
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "INFO cli: visible path=a.html")
}

func TestSetGlobalLogger(t *testing.T) {
	t.Cleanup(func() { SetGlobalLogger(nil) })

	logger, err := logging.NewApplicationLogger(logging.Config{Level: "DEBUG", Format: "json", Output: "buffer"})
	require.NoError(t, err)
	SetGlobalLogger(logger)

	WarnNoCtx("careful", nil)
	ErrorWithError(context.Background(), assert.AnError, "failed", nil)
	Performance(context.Background(), "scan", 1500*time.Millisecond, Field("path", "a.html"))

	out := logging.BufferedOutput(logger)
	assert.Contains(t, out, `"message":"careful"`)
	assert.Contains(t, out, assert.AnError.Error())
	assert.Contains(t, out, `"message":"Performance metrics for scan"`)
	assert.Contains(t, out, `"duration":"1.5s"`)
}

func TestDefaultLoggerIsLazilyCreated(t *testing.T) {
	SetGlobalLogger(nil)

	assert.NotNil(t, getLogger())
}
