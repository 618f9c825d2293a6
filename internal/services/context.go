package services

import "context"

type contextKey string

const (
	requestIDKey contextKey = "request_id"
	userIDKey    contextKey = "user_id"
	categoryKey  contextKey = "category"
	itemIndexKey contextKey = "item_index"
)

// WithRequestID annotates context with a correlation identifier.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext extracts the correlation identifier if present.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(requestIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithUserID annotates context with the acting user.
func WithUserID(ctx context.Context, id int64) context.Context {
	if id <= 0 {
		return ctx
	}
	return context.WithValue(ctx, userIDKey, id)
}

// UserIDFromContext extracts the acting user if present.
func UserIDFromContext(ctx context.Context) (int64, bool) {
	v := ctx.Value(userIDKey)
	if v == nil {
		return 0, false
	}
	switch val := v.(type) {
	case int64:
		return val, true
	case int:
		return int64(val), true
	default:
		return 0, false
	}
}

// WithCategory annotates context with the transformation category label.
func WithCategory(ctx context.Context, category string) context.Context {
	if category == "" {
		return ctx
	}
	return context.WithValue(ctx, categoryKey, category)
}

// CategoryFromContext returns the category label if present.
func CategoryFromContext(ctx context.Context) (string, bool) {
	if str, ok := ctx.Value(categoryKey).(string); ok && str != "" {
		return str, true
	}
	return "", false
}

// WithItemIndex annotates context with the zero-based batch position.
func WithItemIndex(ctx context.Context, index int) context.Context {
	if index < 0 {
		return ctx
	}
	return context.WithValue(ctx, itemIndexKey, index)
}

// ItemIndexFromContext returns the batch position if present.
func ItemIndexFromContext(ctx context.Context) (int, bool) {
	if v, ok := ctx.Value(itemIndexKey).(int); ok {
		return v, true
	}
	return 0, false
}
