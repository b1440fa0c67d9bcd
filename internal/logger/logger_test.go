package logger_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"docent-service/internal/logger"
)

func TestContextRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf).With().Str("req_id", "abc").Logger()

	ctx := logger.WithContext(context.Background(), log)
	reqLog := logger.FromContext(ctx)
	reqLog.Info().Msg("hello")

	assert.Contains(t, buf.String(), `"req_id":"abc"`)
}

func TestFromContextWithoutLogger(t *testing.T) {
	log := logger.FromContext(context.Background())
	assert.Equal(t, zerolog.Disabled, log.GetLevel())
}
