package knownfail

import (
	"fmt"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/ginkgo/v2/types"
	"github.com/onsi/gomega"
)

// RunSpec is the ginkgo counterpart of Run. body must report failures through
// gomega assertions: a direct ginkgo.Fail is registered with the suite before
// RunSpec can see it. Iterations are matched against the spec's leaf text
// (the It or Entry description).
func RunSpec(exp Expectation, body func()) {
	ginkgo.GinkgoHelper()

	report := ginkgo.CurrentSpecReport()
	runSpec(report.FullText(), report.LeafNodeText, CurrentMode(), exp, ginkgoOutcome, body)
}

// specOutcome is how runSpec ends the current spec.
type specOutcome struct {
	skip func(message string)
	fail func(message string)
	logf func(format string, args ...any)
}

var ginkgoOutcome = specOutcome{
	skip: func(message string) { ginkgo.Skip(message) },
	fail: func(message string) { ginkgo.Fail(message) },
	logf: func(format string, args ...any) { ginkgo.GinkgoWriter.Printf(format, args...) },
}

func runSpec(name, leaf string, mode Mode, exp Expectation, out specOutcome, body func()) {
	applies, err := matchesIteration(leaf, mode, exp)
	if err != nil {
		out.fail(err.Error())
		return
	}
	if !applies {
		body()
		return
	}
	if exp.Skip != DoNotSkip {
		out.skip(skipMessage(exp))
		return
	}

	failures := interceptFailures(body)
	if len(failures) == 0 {
		out.fail(passedMessage(name, exp))
		return
	}
	out.logf("failed as expected under %s (%s): %v\n", exp.Mode, exp.Because, failures)
}

// interceptFailures collects gomega failures and panics raised by body.
// Ginkgo's own Skip/Fail/AbortSuite panics keep propagating.
func interceptFailures(body func()) []string {
	var panicked []string
	failures := gomega.InterceptGomegaFailures(func() {
		defer func() {
			p := recover()
			if p == nil {
				return
			}
			if _, ok := p.(types.GinkgoError); ok {
				panic(p)
			}
			panicked = append(panicked, fmt.Sprintf("panic: %v", p))
		}()
		body()
	})
	return append(failures, panicked...)
}
