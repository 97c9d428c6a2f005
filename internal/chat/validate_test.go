package chat

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeNick(t *testing.T) {
	valid := map[string]string{
		"alice\n":                            "alice",
		"  Bob42\r\n":                        "Bob42",
		strings.Repeat("x", MaxNickLength): strings.Repeat("x", MaxNickLength),
	}
	for raw, want := range valid {
		got, err := NormalizeNick(raw)
		require.NoError(t, err, "raw %q", raw)
		require.Equal(t, want, got)
	}

	for _, raw := range []string{"\n", "   ", "bad-nick", "ünïcode", strings.Repeat("y", MaxNickLength+1)} {
		_, err := NormalizeNick(raw)
		require.ErrorIs(t, err, ErrInvalidNick, "raw %q", raw)
	}
}

func TestTerminatorHelpers(t *testing.T) {
	require.Equal(t, "hi", trimTerminator("hi\r\n"))
	require.Equal(t, "hi", trimTerminator("hi\n"))
	require.Equal(t, "hi", trimTerminator("hi"))
	require.Equal(t, "hi\n", withTerminator("hi"))
	require.Equal(t, "hi\r\n", withTerminator("hi\r\n"))
}
