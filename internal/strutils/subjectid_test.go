package strutils_test

import (
	"strings"
	"testing"

	"github.com/Amund211/newsfeed/internal/strutils"
	"github.com/stretchr/testify/require"
)

func TestValidateSubjectID(t *testing.T) {
	t.Parallel()

	cases := []struct {
		input          string
		errorSubstring string
	}{
		{input: "1234"},
		{input: "user-42"},
		{input: "01234567-89ab-cdef-0123-456789abcdef"},
		{input: "søren"},
		{input: strings.Repeat("a", strutils.MAX_SUBJECT_ID_LENGTH)},
		{input: "", errorSubstring: "empty"},
		{input: strings.Repeat("a", strutils.MAX_SUBJECT_ID_LENGTH+1), errorSubstring: "too long"},
		{input: "1234:lock", errorSubstring: "key separator"},
		{input: ":", errorSubstring: "key separator"},
		{input: "12 34", errorSubstring: "whitespace"},
		{input: "1234\n", errorSubstring: "whitespace"},
		{input: "12\x0034", errorSubstring: "control"},
		{input: "12\xff34", errorSubstring: "utf-8"},
	}

	for _, c := range cases {
		t.Run(c.input, func(t *testing.T) {
			t.Parallel()

			err := strutils.ValidateSubjectID(c.input)
			if c.errorSubstring == "" {
				require.NoError(t, err)
				return
			}

			require.Error(t, err)
			require.Contains(t, err.Error(), c.errorSubstring)
		})
	}
}
