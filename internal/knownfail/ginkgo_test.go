package knownfail_test

import (
	"os"

	. "github.com/onsi/ginkgo/v2"
	"github.com/onsi/ginkgo/v2/types"
	. "github.com/onsi/gomega"

	"artipub/internal/knownfail"
)

var brokenUnderWorkflow = knownfail.Expectation{
	Mode:    knownfail.ModeWorkflow,
	Because: "credentials are resolved on the worker",
}

func setExecuter(mode knownfail.Mode) {
	previous, had := os.LookupEnv(knownfail.EnvExecuter)
	Expect(os.Setenv(knownfail.EnvExecuter, string(mode))).To(Succeed())
	DeferCleanup(func() {
		if had {
			_ = os.Setenv(knownfail.EnvExecuter, previous)
			return
		}
		_ = os.Unsetenv(knownfail.EnvExecuter)
	})
}

var _ = Describe("RunSpec outcomes", func() {
	It("runs the body normally when the mode does not match", func() {
		ran := false
		rec := knownfail.RunSpecRecorded("publish", "publish", knownfail.ModeEmbedded, brokenUnderWorkflow, func() {
			ran = true
		})
		Expect(ran).To(BeTrue())
		Expect(rec.Fails).To(BeEmpty())
		Expect(rec.Logs).To(BeEmpty())
	})

	It("turns an expected gomega failure into a pass", func() {
		rec := knownfail.RunSpecRecorded("publish", "publish", knownfail.ModeWorkflow, brokenUnderWorkflow, func() {
			Expect("releases/org/acme").To(Equal("snapshots/org/acme"))
		})
		Expect(rec.Fails).To(BeEmpty())
		Expect(rec.Skips).To(BeEmpty())
		Expect(rec.Logs).To(ConsistOf(ContainSubstring("failed as expected under workflow (credentials are resolved on the worker)")))
	})

	It("fails a body that unexpectedly passes", func() {
		rec := knownfail.RunSpecRecorded("Publishing full publish", "full publish", knownfail.ModeWorkflow, brokenUnderWorkflow, func() {})
		Expect(rec.Fails).To(ConsistOf(
			"Publishing full publish is expected to fail under workflow but passed; remove the known failure",
		))
		Expect(rec.Logs).To(BeEmpty())
	})

	DescribeTable("skips without running the body",
		func(kind knownfail.Skip, message string) {
			exp := brokenUnderWorkflow
			exp.Skip = kind
			ran := false
			rec := knownfail.RunSpecRecorded("publish", "publish", knownfail.ModeWorkflow, exp, func() { ran = true })
			Expect(ran).To(BeFalse())
			Expect(rec.Skips).To(Equal([]string{message}))
			Expect(rec.Fails).To(BeEmpty())
		},
		Entry("always", knownfail.Always, "skipped under workflow executer (always): credentials are resolved on the worker"),
		Entry("flaky", knownfail.Flaky, "skipped under workflow executer (flaky): credentials are resolved on the worker"),
		Entry("long timeout", knownfail.LongTimeout, "skipped under workflow executer (long-timeout): credentials are resolved on the worker"),
	)

	It("counts a panic after a failed assertion as the expected failure", func() {
		rec := knownfail.RunSpecRecorded("publish", "publish", knownfail.ModeWorkflow, brokenUnderWorkflow, func() {
			var puts []string
			Expect(puts).NotTo(BeEmpty())
			_ = puts[0]
		})
		Expect(rec.Fails).To(BeEmpty())
		Expect(rec.Logs).To(ConsistOf(SatisfyAll(
			ContainSubstring("to be empty"),
			ContainSubstring("panic: runtime error: index out of range"),
		)))
	})

	It("counts a bare panic as the expected failure", func() {
		rec := knownfail.RunSpecRecorded("publish", "publish", knownfail.ModeWorkflow, brokenUnderWorkflow, func() {
			panic("nil store")
		})
		Expect(rec.Fails).To(BeEmpty())
		Expect(rec.Logs).To(ConsistOf(ContainSubstring("panic: nil store")))
	})

	It("lets ginkgo's own control panics through", func() {
		signal := types.GinkgoError{Heading: "skip"}
		Expect(func() {
			knownfail.RunSpecRecorded("publish", "publish", knownfail.ModeWorkflow, brokenUnderWorkflow, func() {
				panic(signal)
			})
		}).To(PanicWith(signal))
	})

	It("reports an invalid iteration pattern", func() {
		exp := brokenUnderWorkflow
		exp.Iterations = []string{"("}
		ran := false
		rec := knownfail.RunSpecRecorded("publish", "publish", knownfail.ModeWorkflow, exp, func() { ran = true })
		Expect(ran).To(BeFalse())
		Expect(rec.Fails).To(ConsistOf(ContainSubstring(`invalid iteration pattern "("`)))
	})
})

var _ = Describe("RunSpec in a live suite", func() {
	BeforeEach(func() {
		setExecuter(knownfail.ModeForking)
	})

	It("passes when the body fails and then panics", func() {
		knownfail.RunSpec(knownfail.Expectation{Mode: knownfail.ModeForking, Because: "stub rejects the request"}, func() {
			var requests []string
			Expect(requests).NotTo(BeEmpty())
			_ = requests[0]
		})
	})

	DescribeTable("matches iterations against the leaf text",
		func(broken bool) {
			exp := knownfail.Expectation{Mode: knownfail.ModeForking, Iterations: []string{`^sha(256|512)$`}}
			knownfail.RunSpec(exp, func() {
				Expect(broken).To(BeFalse())
			})
		},
		Entry("sha256", true),
		Entry("md5", false),
	)
})
