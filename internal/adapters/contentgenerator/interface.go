package contentgenerator

import "context"

type ContentGenerator interface {
	Generate(ctx context.Context, subjectID string) ([]byte, error)
}
