package database

import (
	"context"
	"testing"

	"github.com/sadwiik06/SocialFlow/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenSQLite(t *testing.T) {
	s, err := Open(context.Background(), config.DatabaseConfig{Driver: "sqlite", URL: ":memory:"}, false)
	require.NoError(t, err)
	defer s.Close()

	h := Check(context.Background(), s)
	assert.Equal(t, "ok", h.Status)
	assert.Empty(t, h.Error)
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), config.DatabaseConfig{Driver: "oracle"}, false)
	assert.Error(t, err)
}

func TestCheckClosedStore(t *testing.T) {
	s, err := Open(context.Background(), config.DatabaseConfig{Driver: "sqlite", URL: ":memory:"}, false)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	h := Check(context.Background(), s)
	assert.Equal(t, "unavailable", h.Status)
	assert.NotEmpty(t, h.Error)
}
