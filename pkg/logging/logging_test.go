package logging_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/cocoaheadsnl/cloudsync/pkg/logging"
)

func TestNewLoggerFromConfig(t *testing.T) {
	originalLevel := zerolog.GlobalLevel()
	defer zerolog.SetGlobalLevel(originalLevel)

	buf := &bytes.Buffer{}
	logger := logging.NewLoggerFromConfig(&logging.Config{
		Level:  "warn",
		Format: "json",
		Writer: buf,
		Fields: map[string]any{"service": "cloudsync"},
	})

	logger.Info().Msg("hidden")
	logger.Warn().Msg("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
	assert.Contains(t, buf.String(), `"service":"cloudsync"`)
}

func TestContextFields(t *testing.T) {
	tl := logging.NewTestLogger(t)

	ctx := logging.WithLogger(context.Background(), tl.Logger)
	ctx = logging.WithRunID(ctx, "run-1")
	ctx = logging.WithStage(ctx, "jobs")
	ctx = logging.WithRecordType(ctx, "Job")

	logging.FromContext(ctx).Info().Msg("planned")

	assert.Equal(t, "run-1", logging.RunID(ctx))
	assert.True(t, tl.Contains(`"run_id":"run-1"`))
	assert.True(t, tl.Contains(`"stage":"jobs"`))
	assert.True(t, tl.Contains(`"record_type":"Job"`))
	assert.Len(t, tl.Lines(), 1)
}

func TestFromContextDefaults(t *testing.T) {
	assert.Same(t, logging.Default(), logging.FromContext(context.Background()))
	//nolint:staticcheck // nil context is handled explicitly
	assert.Same(t, logging.Default(), logging.FromContext(nil))
	assert.Empty(t, logging.RunID(context.Background()))
}

func TestCaptureLoggingForTest(t *testing.T) {
	tl := logging.CaptureLoggingForTest(t)
	logging.Warn().Str("key", "meetup_id").Msg("record missing key")
	assert.True(t, tl.Contains("record missing key"))
}
