package diagnostics

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorKinds(t *testing.T) {
	cause := errors.New("bus stalled")
	err := Transport("spi.tx", cause)

	assert.ErrorIs(t, err, ErrTransport)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrEncoding)
	assert.Equal(t, "spi.tx: transport error: bus stalled", err.Error())

	wrapped := fmt.Errorf("tick 12: %w", err)
	var de *Error
	require.ErrorAs(t, wrapped, &de)
	assert.Equal(t, "spi.tx", de.Op)

	// already classified errors are not wrapped twice
	assert.Same(t, err, Transport("again", err))
	assert.NoError(t, Transport("noop", nil))
}

func TestConfigAndEncoding(t *testing.T) {
	err := Configf("layout.New", "declared %d pixels, shapes produce %d", 4, 6)
	assert.ErrorIs(t, err, ErrConfiguration)
	assert.Contains(t, err.Error(), "declared 4 pixels")

	err = Encodingf("encode", "got %d colors", 3)
	assert.ErrorIs(t, err, ErrEncoding)
}

func TestFromError(t *testing.T) {
	tests := []struct {
		err  error
		code string
		sev  Severity
	}{
		{nil, "PIPELINE.OK", Info},
		{ErrSimulationClosed, "SIM.CLOSED", Info},
		{Transport("write", errors.New("eio")), "LED.TRANSPORT", Err},
		{Encodingf("encode", "short"), "LED.ENCODING", Err},
		{Configf("new", "bad"), "CONFIG.INVALID", Err},
		{errors.New("other"), "PIPELINE.UNKNOWN", Err},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			d := FromError(tt.err)
			assert.Equal(t, tt.code, d.Code)
			assert.Equal(t, tt.sev, d.Severity)
		})
	}

	b, err := json.Marshal(FromError(ErrSimulationClosed))
	require.NoError(t, err)
	assert.Contains(t, string(b), `"code":"SIM.CLOSED"`)
}
