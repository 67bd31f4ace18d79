package domain

// A generated newsfeed for one subject.
//
// Content is opaque to everything except the generator that produced it.
type Newsfeed struct {
	SubjectID string
	Content   []byte
}
