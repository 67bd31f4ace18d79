package domain

import "errors"

var (
	ErrInvalidSubjectID       = errors.New("invalid subject id")
	ErrStoreUnavailable       = errors.New("store unavailable")
	ErrGenerationFailed       = errors.New("content generation failed")
	ErrTemporarilyUnavailable = errors.New("temporarily unavailable")
)
