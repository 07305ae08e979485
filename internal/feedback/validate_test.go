package feedback

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewValidator_SafeTextRegistered(t *testing.T) {
	v := newValidator()
	require.NotNil(t, v)

	tests := []struct {
		in string
		ok bool
	}{
		{"lovely light at dusk", true},
		{"1 < 2", true},
		{"<script>", false},
		{"bell\x07", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.NotPanics(t, func() {
				err := v.Var(tt.in, "safetext")
				assert.Equal(t, tt.ok, err == nil)
			})
		})
	}
}
