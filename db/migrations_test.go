package db

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Migrations(t *testing.T) {
	ms, err := Migrations()
	require.NoError(t, err)
	require.NotEmpty(t, ms)
	assert.Equal(t, "migrations/0001_broadcast_feed.up.sql", ms[0].Name)
	assert.True(t, strings.Contains(ms[0].SQL, "talktime.broadcast_feed"))
}
