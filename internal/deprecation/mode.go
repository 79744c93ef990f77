package deprecation

import (
	"fmt"
	"strings"
)

// WarningMode selects how deprecation usages are surfaced to the user.
type WarningMode string

const (
	WarningModeAll     WarningMode = "all"
	WarningModeSummary WarningMode = "summary"
	WarningModeNone    WarningMode = "none"
	WarningModeFail    WarningMode = "fail"
)

const DefaultWarningMode = WarningModeSummary

func ParseWarningMode(v string) (WarningMode, error) {
	switch mode := WarningMode(strings.ToLower(strings.TrimSpace(v))); mode {
	case WarningModeAll, WarningModeSummary, WarningModeNone, WarningModeFail:
		return mode, nil
	case "":
		return DefaultWarningMode, nil
	default:
		return "", fmt.Errorf("unknown warning mode %q (expected all, summary, none or fail)", v)
	}
}

// ShouldDisplayMessages reports whether each distinct usage is logged as it happens.
func (m WarningMode) ShouldDisplayMessages() bool {
	return m == WarningModeAll || m == WarningModeFail
}

func (m WarningMode) String() string {
	return string(m)
}
