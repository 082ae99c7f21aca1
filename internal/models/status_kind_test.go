package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusKindScan(t *testing.T) {
	var k StatusKind
	require.NoError(t, k.Scan("ready"))
	assert.Equal(t, StatusKindReady, k)
	assert.True(t, k.SetsIssuedAt())

	require.NoError(t, k.Scan([]byte("paid")))
	assert.True(t, k.SetsPaidAt())

	assert.Error(t, k.Scan("shipped"))
	assert.Error(t, k.Scan(nil))
	assert.Error(t, k.Scan(42))
}
