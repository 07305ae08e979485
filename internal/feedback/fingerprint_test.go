package feedback

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFingerprint(t *testing.T) {
	const ua = "Mozilla/5.0 (X11; Linux x86_64) Firefox/130.0"

	base := Fingerprint("salt", "203.0.113.7", ua)
	assert.Len(t, base, 16)
	assert.Regexp(t, `^[0-9a-f]{16}$`, base)

	t.Run("stable", func(t *testing.T) {
		assert.Equal(t, base, Fingerprint("salt", "203.0.113.7", ua))
	})
	t.Run("browser version ignored", func(t *testing.T) {
		assert.Equal(t, base, Fingerprint("salt", "203.0.113.7", "Mozilla/6.0 something else"))
	})
	t.Run("ip changes result", func(t *testing.T) {
		assert.NotEqual(t, base, Fingerprint("salt", "203.0.113.8", ua))
	})
	t.Run("salt changes result", func(t *testing.T) {
		assert.NotEqual(t, base, Fingerprint("pepper", "203.0.113.7", ua))
	})
	t.Run("agent family changes result", func(t *testing.T) {
		assert.NotEqual(t, base, Fingerprint("salt", "203.0.113.7", "curl/8.5.0"))
	})
	t.Run("empty agent", func(t *testing.T) {
		assert.Len(t, Fingerprint("salt", "203.0.113.7", ""), 16)
	})
}

func TestCoarseAgent(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Mozilla/5.0 (Macintosh)", "mozilla"},
		{"curl/8.5.0", "curl"},
		{"  Wget 1.21", "wget"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, coarseAgent(tt.in))
		})
	}
}
