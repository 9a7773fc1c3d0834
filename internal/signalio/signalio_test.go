package signalio_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arobi-robotics/robotd/internal/signalio"
	_ "github.com/arobi-robotics/robotd/internal/signalio/dummy"
)

func TestLookupResolvesRegisteredPlugin(t *testing.T) {
	dev, err := signalio.Lookup("dummy")
	require.NoError(t, err)
	assert.NotNil(t, dev)
}

func TestLookupUnknownPluginErrors(t *testing.T) {
	_, err := signalio.Lookup("no-such-plugin")
	assert.Error(t, err)
}

func TestLookupReturnsFreshInstanceEachCall(t *testing.T) {
	a, err := signalio.Lookup("dummy")
	require.NoError(t, err)
	b, err := signalio.Lookup("dummy")
	require.NoError(t, err)
	assert.NotSame(t, a, b)
}
