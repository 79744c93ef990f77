package knownfail

import "fmt"

// SpecRecord captures how runSpec ended a spec.
type SpecRecord struct {
	Skips []string
	Fails []string
	Logs  []string
}

func RunSpecRecorded(name, leaf string, mode Mode, exp Expectation, body func()) *SpecRecord {
	rec := &SpecRecord{}
	runSpec(name, leaf, mode, exp, specOutcome{
		skip: func(message string) { rec.Skips = append(rec.Skips, message) },
		fail: func(message string) { rec.Fails = append(rec.Fails, message) },
		logf: func(format string, args ...any) { rec.Logs = append(rec.Logs, fmt.Sprintf(format, args...)) },
	}, body)
	return rec
}
