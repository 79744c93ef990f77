package temporal

import (
	"context"
	"os"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/converter"
	"go.temporal.io/sdk/testsuite"

	"artipub/internal/checksum"
	"artipub/internal/domain"
	"artipub/internal/publish"
	"artipub/internal/storage"
)

type activityTrace struct {
	mu sync.Mutex

	startedOrder   []string
	completedOrder []string

	resolveIn    *ResolveCredentialsInput
	resolveOut   *ResolveCredentialsOutput
	artifactIns  []UploadArtifactInput
	descriptorIn *UploadDescriptorsInput
	metadataIn   *UpdateMetadataInput
	recordIn     *RecordResultInput
}

func (t *activityTrace) recordStarted(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.startedOrder = append(t.startedOrder, name)
}

func (t *activityTrace) recordCompleted(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.completedOrder = append(t.completedOrder, name)
}

var _ = Describe("PublishWorkflow blackbox happy path", func() {
	It("publishes artifacts, descriptors and metadata through the activities in order", func() {
		var suite testsuite.WorkflowTestSuite
		env := suite.NewTestWorkflowEnvironment()

		ledger := newFakeLedger()
		store := publish.NewMemoryStore()
		acts := &Activities{
			Ledger:       ledger,
			Repositories: []storage.Repository{releases()},
			Open:         memoryOpener(store),
		}

		dir, err := os.MkdirTemp("", "artipub-workflow-")
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(os.RemoveAll, dir)

		pub, err := samplePublication(dir)
		Expect(err).NotTo(HaveOccurred())

		trace := &activityTrace{}

		env.SetOnActivityStartedListener(func(info *activity.Info, _ context.Context, args converter.EncodedValues) {
			trace.recordStarted(info.ActivityType.Name)

			trace.mu.Lock()
			defer trace.mu.Unlock()
			switch info.ActivityType.Name {
			case "ResolveCredentialsActivity":
				var in ResolveCredentialsInput
				_ = args.Get(&in)
				trace.resolveIn = &in
			case "UploadArtifactActivity":
				var in UploadArtifactInput
				_ = args.Get(&in)
				trace.artifactIns = append(trace.artifactIns, in)
			case "UploadDescriptorsActivity":
				var in UploadDescriptorsInput
				_ = args.Get(&in)
				trace.descriptorIn = &in
			case "UpdateMetadataActivity":
				var in UpdateMetadataInput
				_ = args.Get(&in)
				trace.metadataIn = &in
			case "RecordResultActivity":
				var in RecordResultInput
				_ = args.Get(&in)
				trace.recordIn = &in
			}
		})

		env.SetOnActivityCompletedListener(func(info *activity.Info, result converter.EncodedValue, _ error) {
			trace.recordCompleted(info.ActivityType.Name)
			if info.ActivityType.Name == "ResolveCredentialsActivity" && result != nil && result.HasValue() {
				var out ResolveCredentialsOutput
				_ = result.Get(&out)
				trace.mu.Lock()
				trace.resolveOut = &out
				trace.mu.Unlock()
			}
		})

		env.RegisterWorkflow(PublishWorkflow)
		env.RegisterActivity(acts.ResolveCredentialsActivity)
		env.RegisterActivity(acts.UploadArtifactActivity)
		env.RegisterActivity(acts.UploadDescriptorsActivity)
		env.RegisterActivity(acts.UpdateMetadataActivity)
		env.RegisterActivity(acts.RecordResultActivity)

		env.ExecuteWorkflow(PublishWorkflow, WorkflowInput{
			PublicationID: "pub-blackbox-1",
			Repository:    "releases",
			Publication:   pub,
		})

		Expect(env.IsWorkflowCompleted()).To(BeTrue())
		Expect(env.GetWorkflowError()).NotTo(HaveOccurred())

		var result WorkflowResult
		Expect(env.GetWorkflowResult(&result)).To(Succeed())
		Expect(result.Status).To(Equal(domain.StatusPublished))
		Expect(result.PublicationID).To(Equal("pub-blackbox-1"))

		trace.mu.Lock()
		defer trace.mu.Unlock()

		expectedOrder := []string{
			"ResolveCredentialsActivity",
			"UploadArtifactActivity",
			"UploadArtifactActivity",
			"UploadDescriptorsActivity",
			"UpdateMetadataActivity",
			"RecordResultActivity",
		}
		Expect(trace.startedOrder).To(Equal(expectedOrder))
		Expect(trace.completedOrder).To(Equal(expectedOrder))

		Expect(trace.resolveIn).NotTo(BeNil())
		Expect(trace.resolveIn.Repository).To(Equal("releases"))
		Expect(trace.resolveOut).NotTo(BeNil())
		Expect(trace.resolveOut.Source).To(Equal("repository credentials in the project file"))
		Expect(trace.resolveOut.Algorithms).To(Equal(checksum.All))

		Expect(trace.artifactIns).To(HaveLen(2))
		Expect(trace.artifactIns[0].Artifact.Classifier).To(BeEmpty())
		Expect(trace.artifactIns[1].Artifact.Classifier).To(Equal("sources"))

		Expect(trace.descriptorIn).NotTo(BeNil())
		Expect(trace.descriptorIn.Files).To(HaveLen(2))

		Expect(trace.metadataIn).NotTo(BeNil())
		Expect(trace.metadataIn.Coordinates).To(Equal(pub.Coordinates))

		Expect(trace.recordIn).NotTo(BeNil())
		Expect(trace.recordIn.Error).To(BeEmpty())
		Expect(trace.recordIn.Files).To(HaveLen(5))

		Expect(store.Keys()).To(ContainElements(
			"releases/org/acme/lib/1.0/lib-1.0.jar",
			"releases/org/acme/lib/1.0/lib-1.0.jar.sha512",
			"releases/org/acme/lib/1.0/lib-1.0-sources.jar.md5",
			"releases/org/acme/lib/1.0/lib-1.0.pom.sha256",
			"releases/org/acme/lib/1.0/lib-1.0.module",
			"releases/org/acme/lib/maven-metadata.xml.sha1",
		))
		Expect(ledger.history("pub-blackbox-1")).To(Equal([]domain.PublicationStatus{
			domain.StatusUploading,
			domain.StatusPublished,
		}))
	})
})
