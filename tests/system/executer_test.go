package system_test

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/gexec"
	"go.temporal.io/sdk/testsuite"

	"artipub/internal/cli"
	"artipub/internal/domain"
	"artipub/internal/knownfail"
	"artipub/internal/project"
	"artipub/internal/storage"
	appTemporal "artipub/internal/temporal"
)

// invocation is one publish run, rendered as CLI arguments for the embedded
// and forking executers and handed to the workflow directly otherwise.
type invocation struct {
	project     string
	properties  []string
	warningMode string
}

func (i invocation) args() []string {
	args := []string{"publish", "--project", i.project, "--pretty=false"}
	for _, p := range i.properties {
		args = append(args, "--property", p)
	}
	if i.warningMode != "" {
		args = append(args, "--warning-mode", i.warningMode)
	}
	return args
}

type runResult struct {
	Stdout string
	Stderr string
	Err    error
}

func runPublish(inv invocation) runResult {
	GinkgoHelper()
	switch knownfail.CurrentMode() {
	case knownfail.ModeForking:
		return runForking(inv)
	case knownfail.ModeWorkflow:
		return runWorkflow(inv)
	default:
		return runEmbedded(inv)
	}
}

func runEmbedded(inv invocation) runResult {
	var stdout, stderr bytes.Buffer
	err := cli.Run(context.Background(), inv.args(), &stdout, &stderr)
	return runResult{Stdout: stdout.String(), Stderr: stderr.String(), Err: err}
}

func runForking(inv invocation) runResult {
	GinkgoHelper()
	Expect(artipubBinary).NotTo(BeEmpty(), "artipub binary was not built")

	cmd := exec.Command(artipubBinary, inv.args()...)
	session, err := gexec.Start(cmd, GinkgoWriter, GinkgoWriter)
	Expect(err).NotTo(HaveOccurred())
	Eventually(session, 30*time.Second).Should(gexec.Exit())

	res := runResult{
		Stdout: string(session.Out.Contents()),
		Stderr: string(session.Err.Contents()),
	}
	if code := session.ExitCode(); code != 0 {
		res.Err = fmt.Errorf("artipub exited with %d: %s", code, strings.TrimSpace(res.Stderr))
	}
	return res
}

func runWorkflow(inv invocation) runResult {
	GinkgoHelper()
	ctx := context.Background()

	overrides, err := project.ParseOverrides(inv.properties)
	if err != nil {
		return runResult{Err: err}
	}
	p, err := project.Load(ctx, inv.project, overrides)
	if err != nil {
		return runResult{Err: err}
	}
	repo, err := p.Repository("")
	if err != nil {
		return runResult{Err: err}
	}
	loc, err := storage.ParseURL(repo.URL)
	if err != nil {
		return runResult{Err: err}
	}

	var suite testsuite.WorkflowTestSuite
	env := suite.NewTestWorkflowEnvironment()
	acts := &appTemporal.Activities{
		Ledger:       &recordingLedger{},
		Repositories: p.Repositories,
		Open:         appTemporal.OpenMinio,
	}
	env.RegisterWorkflow(appTemporal.PublishWorkflow)
	env.RegisterActivity(acts.ResolveCredentialsActivity)
	env.RegisterActivity(acts.UploadArtifactActivity)
	env.RegisterActivity(acts.UploadDescriptorsActivity)
	env.RegisterActivity(acts.UpdateMetadataActivity)
	env.RegisterActivity(acts.RecordResultActivity)

	env.ExecuteWorkflow(appTemporal.PublishWorkflow, appTemporal.WorkflowInput{
		PublicationID: "system-" + p.Publication.Coordinates.Artifact,
		Repository:    repo.Name,
		Publication:   p.Publication,
	})
	Expect(env.IsWorkflowCompleted()).To(BeTrue())
	if err := env.GetWorkflowError(); err != nil {
		return runResult{Err: err}
	}

	var result appTemporal.WorkflowResult
	Expect(env.GetWorkflowResult(&result)).To(Succeed())

	var out strings.Builder
	fmt.Fprintf(&out, "Published %s to '%s' (s3://%s)\n", p.Publication.Coordinates, repo.Name, loc.Bucket)
	for _, key := range result.Keys {
		fmt.Fprintf(&out, "  %s\n", key)
	}
	return runResult{Stdout: out.String()}
}

type recordingLedger struct {
	mu       sync.Mutex
	statuses []domain.PublicationStatus
}

func (l *recordingLedger) MarkUploading(context.Context, string) error {
	return l.record(domain.StatusUploading)
}

func (l *recordingLedger) MarkPublished(context.Context, string, []domain.PublishedFile) error {
	return l.record(domain.StatusPublished)
}

func (l *recordingLedger) MarkFailed(context.Context, string, string) error {
	return l.record(domain.StatusFailed)
}

func (l *recordingLedger) InsertDeprecation(context.Context, domain.DeprecationRecord) error {
	return nil
}

func (l *recordingLedger) record(s domain.PublicationStatus) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.statuses = append(l.statuses, s)
	return nil
}

// setenv changes the process environment for the current spec. Forked
// binaries inherit it.
func setenv(key, value string) {
	previous, had := os.LookupEnv(key)
	Expect(os.Setenv(key, value)).To(Succeed())
	DeferCleanup(func() {
		if had {
			_ = os.Setenv(key, previous)
			return
		}
		_ = os.Unsetenv(key)
	})
}

func isolateCredentials() {
	home, err := os.MkdirTemp("", "artipub-home-")
	Expect(err).NotTo(HaveOccurred())
	DeferCleanup(os.RemoveAll, home)
	setenv("HOME", home)
	for _, key := range []string{
		"AWS_ACCESS_KEY_ID", "AWS_ACCESS_KEY", "AWS_SECRET_ACCESS_KEY", "AWS_SECRET_KEY", "AWS_SESSION_TOKEN",
		"AWS_PROFILE", "AWS_SHARED_CREDENTIALS_FILE",
		"MINIO_ROOT_USER", "MINIO_ROOT_PASSWORD", "MINIO_ACCESS_KEY", "MINIO_SECRET_KEY",
		"MINIO_ALIAS", "MINIO_SHARED_CREDENTIALS_FILE",
		"ARTIPUB_WARNING_MODE",
	} {
		setenv(key, "")
	}
}
