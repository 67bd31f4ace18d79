package cache

const KEY_PREFIX = "newsfeed_content"

const LOCK_VALUE = "LOCK"

// Cache key for the generated content of a subject
func CacheKey(subjectID string) string {
	return KEY_PREFIX + ":" + subjectID
}

type subjectKeys struct {
	content string
	lock    string
	handoff string
	queue   string
}

func keysFor(subjectID string) subjectKeys {
	content := CacheKey(subjectID)
	return subjectKeys{
		content: content,
		lock:    content + ":lock",
		handoff: content + ":handoff",
		queue:   content + ":queue",
	}
}
