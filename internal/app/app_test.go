package app

import (
	"testing"

	"github.com/juggyai/juggy/internal/config"
	"github.com/juggyai/juggy/internal/log"
	"github.com/stretchr/testify/require"
)

func TestParserHTTPClient(t *testing.T) {
	t.Parallel()

	require.Nil(t, parserHTTPClient(&config.Config{}))
	require.Nil(t, parserHTTPClient(&config.Config{Options: &config.Options{}}))

	client := parserHTTPClient(&config.Config{Options: &config.Options{Debug: true}})
	require.NotNil(t, client)
	require.IsType(t, &log.HTTPRoundTripLogger{}, client.Transport)
}
