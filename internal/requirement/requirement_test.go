package requirement

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExtractStructuredSection(t *testing.T) {
	body := `Some intro text.

## Acceptance Criteria

- Add a 'Clear' button to the header
- Button clears the session state
* Also supports keyboard shortcut

## Out of Scope

- Backend changes
`
	reqs := Extract("Add clear button", body)
	require.Len(t, reqs, 3)
	require.Equal(t, "Add a 'Clear' button to the header", reqs[0].Text)
	require.True(t, reqs[0].Keywords["clear"])
	require.True(t, reqs[0].Keywords["button"])
	require.False(t, reqs[0].Keywords["a"])
}

func TestExtractCaseInsensitiveHeading(t *testing.T) {
	body := "### definition of done\n- [ ] Ship it\n- [x] Tests pass\n"
	reqs := Extract("", body)
	require.Len(t, reqs, 2)
}

func TestExtractFallsBackToFirst15Bullets(t *testing.T) {
	var body string
	for i := 0; i < 20; i++ {
		body += "- bullet number item\n"
	}
	reqs := Extract("", body)
	require.Len(t, reqs, 15)
}

func TestExtractEmptyInputYieldsEmptyList(t *testing.T) {
	reqs := Extract("", "")
	require.Empty(t, reqs)
}

func TestExtractDeterministicOrder(t *testing.T) {
	body := "## Requirements\n- first\n- second\n- third\n"
	reqs := Extract("", body)
	require.Equal(t, []string{"first", "second", "third"}, []string{reqs[0].Text, reqs[1].Text, reqs[2].Text})
}
