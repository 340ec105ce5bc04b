package migrate

import (
	"testing"

	registrymigrate "github.com/botfront/authoring-service/internal/registry/migrate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTarget(t *testing.T) {
	v, err := parseTarget("latest")
	require.NoError(t, err)
	assert.Equal(t, registrymigrate.Latest, v)

	v, err = parseTarget("")
	require.NoError(t, err)
	assert.Equal(t, registrymigrate.Latest, v)

	v, err = parseTarget(" 7 ")
	require.NoError(t, err)
	assert.Equal(t, 7, v)

	_, err = parseTarget("-2")
	require.Error(t, err)
	_, err = parseTarget("v3")
	require.Error(t, err)
}
