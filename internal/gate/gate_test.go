package gate

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFlagsOnlySetForward(t *testing.T) {
	rs := New()
	require.False(t, rs.AppliedOK)
	rs.MarkApplied()
	require.True(t, rs.AppliedOK)
	rs.MarkApplied()
	require.True(t, rs.AppliedOK)
}

func TestFailRecordsReason(t *testing.T) {
	rs := New()
	result := Fail(rs, GateValidation, "absolute path rejected")
	require.False(t, result.Passed)
	require.NotEmpty(t, rs.Errors)
	require.Equal(t, "validation", rs.Missing.FailureReason)
}

func TestRetryPayloadListsAllCategories(t *testing.T) {
	m := Missing{
		Functions:    []string{"handleClear"},
		CSSSelectors: []string{".header"},
	}
	payload := RetryPayload(m)
	require.Contains(t, payload, "handleClear")
	require.Contains(t, payload, ".header")
}

func TestMissingEmpty(t *testing.T) {
	require.True(t, Missing{}.Empty())
	require.False(t, Missing{Functions: []string{"x"}}.Empty())
}
