package common

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSilentLogger(t *testing.T) {
	logger := NewSilentLogger()
	require.NotNil(t, logger)

	assert.NotPanics(t, func() {
		logger.Info().Str("k", "v").Int("n", 1).Msg("dropped")
		logger.Error().Err(errors.New("boom")).Msg("dropped")
		logger.WithCorrelationID("req-1").Debug().Msg("dropped")
	})
}
