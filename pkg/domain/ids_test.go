package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "github.com/mohammad-issa2020/backend-7awell-sub001/pkg/domain-errors"
)

func TestNewSessionID(t *testing.T) {
	login := NewSessionID(FlowLogin)
	assert.True(t, strings.HasPrefix(login.String(), "vs_"))
	assert.Equal(t, FlowLogin, login.Flow())
	assert.Len(t, login.String(), 3+32)

	change := NewSessionID(FlowPhoneChange)
	assert.True(t, strings.HasPrefix(change.String(), "pc_"))
	assert.Equal(t, FlowPhoneChange, change.Flow())

	assert.NotEqual(t, NewSessionID(FlowLogin), NewSessionID(FlowLogin))
}

func TestParseSessionID(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		for _, flow := range []Flow{FlowLogin, FlowPhoneChange} {
			generated := NewSessionID(flow)
			parsed, err := ParseSessionID(generated.String())
			require.NoError(t, err)
			assert.Equal(t, generated, parsed)
			assert.Equal(t, flow, parsed.Flow())
		}
	})

	t.Run("rejects bad input", func(t *testing.T) {
		bad := []string{
			"",
			"vs_",
			"vs_short",
			"zz_00000000000000000000000000000000",
			"vs_zzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzz",
			"vs_000000000000000000000000000000000",
			"00000000000000000000000000000000",
		}
		for _, input := range bad {
			_, err := ParseSessionID(input)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput), "input %q must be rejected", input)
		}
	})
}

func TestParseAccountID(t *testing.T) {
	_, err := ParseAccountID("")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))

	_, err = ParseAccountID("not-a-uuid")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))

	parsed, err := ParseAccountID("0f8fad5b-d9cb-469f-a165-70867728950e")
	require.NoError(t, err)
	assert.Equal(t, "0f8fad5b-d9cb-469f-a165-70867728950e", parsed.String())
	assert.False(t, parsed.IsNil())
}

func TestIsNil(t *testing.T) {
	assert.True(t, SessionID("").IsNil())
	assert.False(t, NewSessionID(FlowLogin).IsNil())
	assert.True(t, AccountID{}.IsNil())
	assert.True(t, MethodID("").IsNil())
	assert.False(t, MethodID("m").IsNil())
}
