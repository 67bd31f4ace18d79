package reporting

import (
	"context"
	"maps"
	"time"
)

type metaContextKey struct{}

// Scope data attached to reported errors
type meta struct {
	tags      map[string]string
	extras    map[string]string
	userID    string
	startedAt time.Time
}

// Copy of the meta stored in ctx, safe to modify
func metaFromContext(ctx context.Context) meta {
	stored, ok := ctx.Value(metaContextKey{}).(meta)
	if !ok {
		return meta{
			tags:   map[string]string{},
			extras: map[string]string{},
		}
	}

	stored.tags = maps.Clone(stored.tags)
	stored.extras = maps.Clone(stored.extras)
	return stored
}

func updateMeta(ctx context.Context, update func(m *meta)) context.Context {
	m := metaFromContext(ctx)
	update(&m)
	return context.WithValue(ctx, metaContextKey{}, m)
}

func AddTagsToContext(ctx context.Context, tags map[string]string) context.Context {
	return updateMeta(ctx, func(m *meta) {
		maps.Copy(m.tags, tags)
	})
}

func AddExtrasToContext(ctx context.Context, extras map[string]string) context.Context {
	return updateMeta(ctx, func(m *meta) {
		maps.Copy(m.extras, extras)
	})
}

func SetUserIDInContext(ctx context.Context, userID string) context.Context {
	return updateMeta(ctx, func(m *meta) {
		m.userID = userID
	})
}

func setStartedAtInContext(ctx context.Context, startedAt time.Time) context.Context {
	return updateMeta(ctx, func(m *meta) {
		m.startedAt = startedAt
	})
}
