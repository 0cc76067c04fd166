package logsink

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrEthical07/sessionkit"
)

func TestSendLogsMessage(t *testing.T) {
	var buf bytes.Buffer
	sink := New(slog.New(slog.NewJSONHandler(&buf, nil)), false)

	err := sink.Send(context.Background(), sessionkit.Message{
		Receiver: "ada@example.com",
		Subject:  "Account Recovery [ada]",
		Text:     "secret body",
	})
	require.NoError(t, err)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "ada@example.com", entry["receiver"])
	assert.Equal(t, "Account Recovery [ada]", entry["subject"])
	assert.NotContains(t, buf.String(), "secret body")
	assert.EqualValues(t, len("secret body"), entry["text_bytes"])
}

func TestSendShowsBodyWhenAsked(t *testing.T) {
	var buf bytes.Buffer
	sink := New(slog.New(slog.NewJSONHandler(&buf, nil)), true)

	require.NoError(t, sink.Send(context.Background(), sessionkit.Message{Receiver: "a@b.c", Text: "link"}))
	assert.Contains(t, buf.String(), `"text":"link"`)
}
