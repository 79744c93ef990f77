// Package deprecation is the process-wide facade for nagging users about
// features that are scheduled for removal.
//
// Usages are deduplicated by message text and surfaced according to the
// configured WarningMode. Suppression is scoped to a context: code running
// under WhileDisabled sees Enabled(ctx) == false, its callers do not.
package deprecation

import "context"

var handler = NewHandler()

type disabledKey struct{}

func Init(reporter UsageLocationReporter, mode WarningMode, broadcaster ProgressBroadcaster) {
	handler.Init(reporter, mode, broadcaster)
}

func Reset() {
	handler.Reset()
}

func ReportSuppressedDeprecations() {
	handler.ReportSuppressedDeprecations()
}

// DeprecationFailure returns a *FailureError when running in fail mode and
// anything deprecated was used.
func DeprecationFailure() error {
	return handler.DeprecationFailure()
}

// Default exposes the shared handler for inspection.
func Default() *Handler {
	return handler
}

// NagUserOfDeprecatedBehaviour emits
// "<behaviour> This behavior has been deprecated and is scheduled to be removed in artipub X."
func NagUserOfDeprecatedBehaviour(ctx context.Context, behaviour string) {
	if Enabled(ctx) {
		nagUserWith(Behaviour(behaviour).Build())
	}
}

func NagUserOfDeprecated(ctx context.Context, thing string) {
	NagUserWith(ctx, SpecificThing(thing))
}

func NagUserWith(ctx context.Context, b *MessageBuilder) {
	if Enabled(ctx) {
		nagUserWith(b.Build())
	}
}

func nagUserWith(msg Message) {
	handler.FeatureUsed(newFeatureUsage(msg))
}

// Enabled reports whether deprecation warnings are emitted for ctx.
func Enabled(ctx context.Context) bool {
	if ctx == nil {
		return true
	}
	disabled, _ := ctx.Value(disabledKey{}).(bool)
	return !disabled
}

// WhileDisabled runs fn with warnings suppressed for the context it receives.
func WhileDisabled(ctx context.Context, fn func(context.Context) error) error {
	return fn(disabled(ctx))
}

func WhileDisabledValue[T any](ctx context.Context, fn func(context.Context) (T, error)) (T, error) {
	return fn(disabled(ctx))
}

func disabled(ctx context.Context) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, disabledKey{}, true)
}
