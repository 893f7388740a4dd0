package slogpretty

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"

	"github.com/iliyamo/table-reservation/internal/lib/logger/sl"
)

func TestPrettyHandler_WritesMessageAndAttrs(t *testing.T) {
	color.NoColor = true
	var buf bytes.Buffer
	opts := PrettyHandlerOptions{SlogOpts: &slog.HandlerOptions{Level: slog.LevelDebug}}
	log := slog.New(opts.NewPrettyHandler(&buf)).With(slog.String("op", "test"))

	log.Warn("counter already at zero", slog.Uint64("slot_id", 4), sl.Err(errors.New("drift")))

	out := buf.String()
	assert.Contains(t, out, "WARN:")
	assert.Contains(t, out, "counter already at zero")
	assert.Contains(t, out, `"slot_id": 4`)
	assert.Contains(t, out, `"op": "test"`)
	assert.Contains(t, out, `"error": "drift"`)
}
