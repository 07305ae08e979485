package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithWriter(t *testing.T) {
	tests := []struct {
		level     string
		debugSeen bool
	}{
		{"debug", true},
		{"info", false},
		{"", false},
		{"nonsense", false},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			log := NewWithWriter(&buf, tt.level, "ideas-feedback")

			log.Debug().Msg("debug line")
			log.Info().Str("idea_id", "photo_1").Msg("info line")

			lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
			if tt.debugSeen {
				require.Len(t, lines, 2)
			} else {
				require.Len(t, lines, 1)
			}

			var last map[string]any
			require.NoError(t, json.Unmarshal(lines[len(lines)-1], &last))
			assert.Equal(t, "ideas-feedback", last["service"])
			assert.Equal(t, "info", last["level"])
			assert.Equal(t, "photo_1", last["idea_id"])
			assert.Contains(t, last, "time")
		})
	}
}
