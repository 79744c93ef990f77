package deprecation

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"artipub/internal/buildinfo"
	"artipub/internal/logging"
)

// FailureError is returned by DeprecationFailure when running in fail mode.
type FailureError struct {
	Distinct int
}

func (e *FailureError) Error() string {
	return fmt.Sprintf("Deprecated %s features were used in this run (%d distinct), making it incompatible with %s %s.",
		buildinfo.ToolName, e.Distinct, buildinfo.ToolName, buildinfo.NextMajor())
}

// Handler accumulates deprecation usages and decides what to show.
type Handler struct {
	mu          sync.Mutex
	logger      *zerolog.Logger
	mode        WarningMode
	reporter    UsageLocationReporter
	broadcaster ProgressBroadcaster
	seen        map[string]struct{}
	messages    []string
	usages      int
}

func NewHandler() *Handler {
	h := &Handler{}
	h.resetLocked()
	return h
}

func (h *Handler) Init(reporter UsageLocationReporter, mode WarningMode, broadcaster ProgressBroadcaster) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if reporter == nil {
		reporter = noopReporter{}
	}
	if broadcaster == nil {
		broadcaster = noopBroadcaster{}
	}
	if mode == "" {
		mode = DefaultWarningMode
	}
	h.reporter = reporter
	h.mode = mode
	h.broadcaster = broadcaster
}

// SetLogger pins the handler to l instead of the process-wide logger.
func (h *Handler) SetLogger(l zerolog.Logger) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.logger = &l
}

func (h *Handler) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.resetLocked()
}

func (h *Handler) resetLocked() {
	h.mode = DefaultWarningMode
	h.reporter = noopReporter{}
	h.broadcaster = noopBroadcaster{}
	h.seen = make(map[string]struct{})
	h.messages = nil
	h.usages = 0
}

// FeatureUsed records one usage. The reporter and broadcaster run without the
// handler lock held, so they may call back into the handler.
func (h *Handler) FeatureUsed(usage FeatureUsage) {
	h.mu.Lock()
	reporter, broadcaster := h.reporter, h.broadcaster
	h.mu.Unlock()

	usage = reporter.ApplyTo(usage)
	text := usage.FormattedMessage()

	h.mu.Lock()
	h.usages++
	if _, dup := h.seen[text]; !dup {
		h.seen[text] = struct{}{}
		h.messages = append(h.messages, text)
		if h.mode.ShouldDisplayMessages() {
			log := h.log()
			ev := log.Warn()
			if usage.Location != "" {
				ev = ev.Str("location", usage.Location)
			}
			ev.Msg(text)
		}
	}
	h.mu.Unlock()

	broadcaster.Progress(usage)
}

func (h *Handler) ReportSuppressedDeprecations() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.mode != WarningModeSummary || len(h.messages) == 0 {
		return
	}
	log := h.log()
	log.Warn().Int("distinct", len(h.messages)).Msgf(
		"Deprecated %s features were used in this run, making it incompatible with %s %s. "+
			"You can use '--warning-mode all' to show the individual deprecation warnings and determine if they come from your own project files.",
		buildinfo.ToolName, buildinfo.ToolName, buildinfo.NextMajor())
}

func (h *Handler) DeprecationFailure() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.mode != WarningModeFail || len(h.messages) == 0 {
		return nil
	}
	return &FailureError{Distinct: len(h.messages)}
}

// Messages returns the distinct messages seen since the last reset, in first-seen order.
func (h *Handler) Messages() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.messages...)
}

// Count returns every usage since the last reset, repeats included.
func (h *Handler) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.usages
}

func (h *Handler) Mode() WarningMode {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.mode
}

func (h *Handler) log() zerolog.Logger {
	if h.logger != nil {
		return *h.logger
	}
	return logging.L()
}
