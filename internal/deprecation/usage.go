package deprecation

import (
	"fmt"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

// FeatureUsage is one call site hitting a deprecated feature.
type FeatureUsage struct {
	Message  Message
	Location string
	At       time.Time

	pcs []uintptr
}

func (u FeatureUsage) FormattedMessage() string {
	return u.Message.String()
}

func newFeatureUsage(msg Message) FeatureUsage {
	pcs := make([]uintptr, 32)
	n := runtime.Callers(3, pcs)
	return FeatureUsage{Message: msg, At: time.Now(), pcs: pcs[:n]}
}

// UsageLocationReporter decorates a usage with where it came from.
type UsageLocationReporter interface {
	ApplyTo(usage FeatureUsage) FeatureUsage
}

// ProgressBroadcaster observes every usage, repeats included.
type ProgressBroadcaster interface {
	Progress(usage FeatureUsage)
}

type ProgressBroadcasterFunc func(FeatureUsage)

func (f ProgressBroadcasterFunc) Progress(usage FeatureUsage) { f(usage) }

// CallerReporter sets Location to the first frame outside this package.
type CallerReporter struct{}

func (CallerReporter) ApplyTo(usage FeatureUsage) FeatureUsage {
	if usage.Location != "" || len(usage.pcs) == 0 {
		return usage
	}
	frames := runtime.CallersFrames(usage.pcs)
	for {
		frame, more := frames.Next()
		if frame.Function != "" && !strings.Contains(frame.Function, "/internal/deprecation.") {
			usage.Location = fmt.Sprintf("%s:%d", filepath.Base(frame.File), frame.Line)
			return usage
		}
		if !more {
			return usage
		}
	}
}

type noopReporter struct{}

func (noopReporter) ApplyTo(usage FeatureUsage) FeatureUsage { return usage }

type noopBroadcaster struct{}

func (noopBroadcaster) Progress(FeatureUsage) {}
