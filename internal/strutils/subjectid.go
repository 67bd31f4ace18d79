package strutils

import (
	"fmt"
	"unicode"
)

const MAX_SUBJECT_ID_LENGTH = 128

// Key separator used when deriving store keys from a subject id
const KEY_SEPARATOR = ':'

// Checks that a subject id can be embedded in a store key
//
// Subject ids must be non-empty, bounded in length and free of the key separator,
// whitespace and control characters. Without the separator restriction the lock key of
// one subject could equal the cache key of another.
func ValidateSubjectID(subjectID string) error {
	if subjectID == "" {
		return fmt.Errorf("subject id is empty")
	}

	if len(subjectID) > MAX_SUBJECT_ID_LENGTH {
		return fmt.Errorf("subject id is too long (%d > %d)", len(subjectID), MAX_SUBJECT_ID_LENGTH)
	}

	for _, char := range subjectID {
		if char == KEY_SEPARATOR {
			return fmt.Errorf("subject id contains key separator '%c'", KEY_SEPARATOR)
		}
		if unicode.IsSpace(char) || unicode.IsControl(char) {
			return fmt.Errorf("subject id contains whitespace or control characters")
		}
		if char == unicode.ReplacementChar {
			return fmt.Errorf("subject id is not valid utf-8")
		}
	}

	return nil
}
