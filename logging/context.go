package logging

import "context"

type debugLogKeyType int

const debugLogKeyID = debugLogKeyType(0)

// EnableDebugMode returns a new context with debug logging enabled, used to
// trace a single replan attempt without raising the global log level.
func EnableDebugMode(ctx context.Context) context.Context {
	return context.WithValue(ctx, debugLogKeyID, true)
}

// IsDebugMode reports whether ctx has debug logging enabled.
func IsDebugMode(ctx context.Context) bool {
	v, _ := ctx.Value(debugLogKeyID).(bool)
	return v
}
