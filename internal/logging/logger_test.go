package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Run("json output", func(t *testing.T) {
		var buf bytes.Buffer
		logger, err := New(&buf, "debug", "json")
		require.NoError(t, err)

		logger.Debug().Str("entry", "EQ.xml").Msg("parsed")

		var line map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
		require.Equal(t, "parsed", line["message"])
		require.Equal(t, "EQ.xml", line["entry"])
	})

	t.Run("level filters", func(t *testing.T) {
		var buf bytes.Buffer
		logger, err := New(&buf, "warn", "json")
		require.NoError(t, err)

		logger.Info().Msg("hidden")
		require.Zero(t, buf.Len())
	})

	t.Run("auto on a buffer is json", func(t *testing.T) {
		var buf bytes.Buffer
		logger, err := New(&buf, "info", "auto")
		require.NoError(t, err)

		logger.Info().Msg("x")
		require.True(t, json.Valid(bytes.TrimSpace(buf.Bytes())))
	})

	t.Run("rejects unknown values", func(t *testing.T) {
		_, err := New(&bytes.Buffer{}, "loud", "json")
		require.Error(t, err)

		_, err = New(&bytes.Buffer{}, "info", "xml")
		require.Error(t, err)
	})
}

func TestWithRun(t *testing.T) {
	var buf bytes.Buffer
	previous := Logger
	t.Cleanup(func() { SetGlobalLogger(previous) })
	SetGlobalLogger(zerolog.New(&buf))

	ctx := WithRun(context.Background(), "run-1")
	Ctx(ctx).Info().Msg("hello")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	require.Equal(t, "run-1", line["run"])
}
