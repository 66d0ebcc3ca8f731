package requestid

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestNew(t *testing.T) {
	ctx, id := New(context.Background(), "")
	assert.NotEmpty(t, id)
	assert.Equal(t, id, FromContext(ctx))
}

func TestNew_KeepsIncoming(t *testing.T) {
	ctx, id := New(context.Background(), "edge-42")
	assert.Equal(t, "edge-42", id)
	assert.Equal(t, "edge-42", FromContext(ctx))

	_, id = New(context.Background(), strings.Repeat("x", 200))
	assert.NotEqual(t, strings.Repeat("x", 200), id)
}

func TestFromContext_Missing(t *testing.T) {
	id := FromContext(context.Background())
	assert.NotEmpty(t, id) // generates new UUID
}

func TestSessionID(t *testing.T) {
	assert.Empty(t, SessionID(context.Background()))
	ctx := WithSessionID(context.Background(), "sess-1")
	assert.Equal(t, "sess-1", SessionID(ctx))
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	base := zerolog.New(&buf)

	ctx := WithSessionID(WithRequestID(context.Background(), "req-1"), "sess-1")
	l := Logger(ctx, base)
	l.Info().Msg("hello")

	assert.Contains(t, buf.String(), `"request_id":"req-1"`)
	assert.Contains(t, buf.String(), `"session_id":"sess-1"`)
}
