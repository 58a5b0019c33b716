package logger_test

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/movedesk/chatbot/core/logger"
)

func TestError(t *testing.T) {
	t.Parallel()

	err := errors.New("boom")
	attr := logger.Error(err)
	require.Equal(t, "error", attr.Key)
	assert.Equal(t, err, attr.Value.Any())

	assert.True(t, logger.Error(nil).Equal(slog.Attr{}))
}

func TestEmptyStringAttrs(t *testing.T) {
	t.Parallel()

	assert.True(t, logger.RequestID("").Equal(slog.Attr{}))
	assert.True(t, logger.SessionID("").Equal(slog.Attr{}))
	assert.True(t, logger.ConversationID("").Equal(slog.Attr{}))
	assert.True(t, logger.UserID("").Equal(slog.Attr{}))
}

func TestPopulatedAttrs(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "session_id", logger.SessionID("abc").Key)
	assert.Equal(t, "dependency", logger.Dependency("openai").Key)
	assert.Equal(t, "status_code", logger.StatusCode(200).Key)
	assert.Equal(t, int64(3), logger.RetryCount(3).Value.Int64())
}

func TestNew(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := logger.New(&buf, logger.Config{Level: "debug", Format: "text"})
	log.Debug("visible")
	assert.True(t, strings.Contains(buf.String(), "visible"))

	buf.Reset()
	log = logger.New(&buf, logger.Config{Level: "warn", Format: "json"})
	log.Info("filtered")
	assert.Empty(t, buf.String())

	require.NotNil(t, logger.NewDiscard())
}
