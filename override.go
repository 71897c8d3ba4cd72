package hazel

import "context"

// Override allows bypassing the decision engine for admin tools and
// tests, without modifying rule data. It is set per call via
// WithOverrideContext and only takes effect if the Engine was built with
// WithContextOverride.
//
// Context-based overrides are opt-in by design. Applications must
// explicitly enable WithContextOverride() when constructing the Engine
// so an accidental context value set by upstream middleware cannot
// silently bypass authorization. This makes the security boundary
// explicit: "this Engine respects context overrides."
type Override int

type overrideContextKey struct{}

var overrideKey = overrideContextKey{}

const (
	// OverrideUnset means no override is active: perform the normal
	// authorization query.
	OverrideUnset Override = iota
	// OverrideAllow bypasses the store and always returns Granted.
	OverrideAllow
	// OverrideDeny bypasses the store and always returns Denied.
	OverrideDeny
)

// WithOverrideContext returns a new context carrying the given override.
//
// The Engine does NOT automatically consult this value — applications
// must opt in via WithContextOverride() when constructing the Engine.
func WithOverrideContext(ctx context.Context, o Override) context.Context {
	return context.WithValue(ctx, overrideKey, o)
}

// OverrideFromContext retrieves the override set by WithOverrideContext,
// or OverrideUnset if none is present.
func OverrideFromContext(ctx context.Context) Override {
	if o, ok := ctx.Value(overrideKey).(Override); ok {
		return o
	}
	return OverrideUnset
}
