package knownfail

import (
	"fmt"
	"runtime"
	"strings"
	"sync"
	"testing"
)

// Run executes body against t, inverting its outcome when exp applies to the
// current execution mode.
func Run(t *testing.T, exp Expectation, body func(t testing.TB)) {
	t.Helper()
	run(t, CurrentMode(), exp, body)
}

func run(t testing.TB, mode Mode, exp Expectation, body func(t testing.TB)) {
	t.Helper()

	applies, err := Matches(t.Name(), mode, exp)
	if err != nil {
		t.Fatal(err)
		return
	}
	if !applies {
		body(t)
		return
	}
	if exp.Skip != DoNotSkip {
		t.Skip(skipMessage(exp))
		return
	}

	rec := &recorder{TB: t}
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer func() {
			if p := recover(); p != nil {
				rec.record(fmt.Sprintf("panic: %v", p))
				rec.Fail()
			}
		}()
		body(rec)
	}()
	<-done

	switch {
	case rec.Skipped():
		t.Skip(rec.output())
	case rec.Failed():
		t.Logf("failed as expected under %s (%s):\n%s", exp.Mode, exp.Because, rec.output())
	default:
		t.Fatal(passedMessage(t.Name(), exp))
	}
}

// recorder captures failures instead of reporting them to the real test.
// Everything else (Log, Cleanup, TempDir, ...) goes to the embedded TB.
type recorder struct {
	testing.TB

	mu      sync.Mutex
	failed  bool
	skipped bool
	lines   []string
}

func (r *recorder) record(line string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines = append(r.lines, strings.TrimRight(line, "\n"))
}

func (r *recorder) output() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return strings.Join(r.lines, "\n")
}

func (r *recorder) Fail() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failed = true
}

func (r *recorder) Failed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.failed
}

func (r *recorder) FailNow() {
	r.Fail()
	runtime.Goexit()
}

func (r *recorder) Error(args ...any) {
	r.record(fmt.Sprintln(args...))
	r.Fail()
}

func (r *recorder) Errorf(format string, args ...any) {
	r.record(fmt.Sprintf(format, args...))
	r.Fail()
}

func (r *recorder) Fatal(args ...any) {
	r.record(fmt.Sprintln(args...))
	r.FailNow()
}

func (r *recorder) Fatalf(format string, args ...any) {
	r.record(fmt.Sprintf(format, args...))
	r.FailNow()
}

func (r *recorder) Skip(args ...any) {
	r.record(fmt.Sprintln(args...))
	r.SkipNow()
}

func (r *recorder) Skipf(format string, args ...any) {
	r.record(fmt.Sprintf(format, args...))
	r.SkipNow()
}

func (r *recorder) SkipNow() {
	r.mu.Lock()
	r.skipped = true
	r.mu.Unlock()
	runtime.Goexit()
}

func (r *recorder) Skipped() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.skipped
}
