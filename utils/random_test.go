package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateCode(t *testing.T) {
	code, err := GenerateCode(5)
	require.NoError(t, err)
	assert.Len(t, code, 10) // hex encoding doubles the byte count
	assert.Regexp(t, `^[0-9A-F]+$`, code)

	other, err := GenerateCode(5)
	require.NoError(t, err)
	assert.NotEqual(t, code, other)
}

func TestSessionTokens(t *testing.T) {
	token := NewSessionToken()
	assert.True(t, IsValidSessionToken(token))

	assert.NotEqual(t, token, NewSessionToken())

	invalid := []string{
		"",
		"sess_",
		"sess_SHOUTING0123456789abcdef0123456789abcdef",
		"nope_0123456789abcdef0123456789abcdef01234567",
		"sess_0123456789abcdef0123456789abcdef0123456", // one short
		token + "0",
	}
	for _, tok := range invalid {
		assert.False(t, IsValidSessionToken(tok), tok)
	}
}
