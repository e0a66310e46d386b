package randx

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBase62(t *testing.T) {
	id, err := Base62("guest:", 16)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(id, "guest:"))
	assert.Len(t, id, len("guest:")+16)
	assert.True(t, IsBase62(strings.TrimPrefix(id, "guest:")))

	empty, err := Base62("p", 0)
	require.NoError(t, err)
	assert.Equal(t, "p", empty)
}

func TestBase62_Distinct(t *testing.T) {
	a, err := Base62("", 24)
	require.NoError(t, err)
	b, err := Base62("", 24)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestIsBase62(t *testing.T) {
	assert.True(t, IsBase62("aZ09"))
	assert.False(t, IsBase62(""))
	assert.False(t, IsBase62("abc-def"))
	assert.False(t, IsBase62("guest:abc"))
	assert.False(t, IsBase62("ä"))
}

func TestUUIDs(t *testing.T) {
	for _, gen := range []func() string{SocketID, MessageID} {
		id := gen()
		parsed, err := uuid.Parse(id)
		require.NoError(t, err)
		assert.Equal(t, uuid.Version(4), parsed.Version())
	}
	assert.NotEqual(t, SocketID(), SocketID())
}
