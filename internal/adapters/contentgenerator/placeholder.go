package contentgenerator

import (
	"context"
	"fmt"
)

type placeholder struct{}

// Generator producing a fixed personalized greeting, for development and tooling
func NewPlaceholder() ContentGenerator {
	return placeholder{}
}

func (placeholder) Generate(ctx context.Context, subjectID string) ([]byte, error) {
	return []byte(fmt.Sprintf("personalized content for user %s", subjectID)), nil
}
