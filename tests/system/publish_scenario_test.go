package system_test

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"artipub/internal/checksum"
	"artipub/internal/knownfail"
	"artipub/internal/maven"
	"artipub/internal/s3stub"
)

const (
	bucket     = "acme-maven"
	versionDir = "acme-maven/releases/org/acme/widget/1.2.0/"
	metadata   = "acme-maven/releases/org/acme/widget/maven-metadata.xml"
)

type fixture struct {
	dir         string
	projectPath string
	jar         []byte
	stub        *s3stub.Server
}

type fixtureOptions struct {
	credentials bool
	extra       string
}

func newFixture(opts fixtureOptions) *fixture {
	GinkgoHelper()

	dir, err := os.MkdirTemp("", "artipub-system-")
	Expect(err).NotTo(HaveOccurred())
	DeferCleanup(os.RemoveAll, dir)

	f := &fixture{dir: dir, jar: []byte("PK\x03\x04 widget classes")}
	Expect(os.WriteFile(filepath.Join(dir, "widget.jar"), f.jar, 0o644)).To(Succeed())

	creds := ""
	if opts.credentials {
		creds = "    credentials:\n      accessKey: AKIASYSTEMTEST\n      secretKey: system-secret\n"
	}
	doc := fmt.Sprintf(`group: org.acme
name: widget
version: 1.2.0
description: Widgets for everyone
licenses:
  - name: Apache-2.0
    url: https://www.apache.org/licenses/LICENSE-2.0
dependencies:
  - group: org.slf4j
    artifact: slf4j-api
    version: 2.0.9
    scope: runtime
artifacts:
  - extension: jar
    path: widget.jar
repositories:
  - name: releases
    url: s3://%s/releases
    region: us-east-1
%s%s`, bucket, creds, opts.extra)
	f.projectPath = filepath.Join(dir, "artipub.yaml")
	Expect(os.WriteFile(f.projectPath, []byte(doc), 0o644)).To(Succeed())

	f.stub = s3stub.New(s3stub.Strict())
	DeferCleanup(f.stub.Close)
	return f
}

func (f *fixture) invocation() invocation {
	return invocation{
		project:    f.projectPath,
		properties: []string{"repository.releases.endpoint=" + f.stub.URL()},
	}
}

// expectPublish declares every request a publish of widget 1.2.0 makes, in
// upload order. existing is served as the current maven-metadata.xml; nil
// means the repository has never seen the artifact.
func (f *fixture) expectPublish(algos []checksum.Algorithm, existing []byte) {
	for _, name := range []string{"widget-1.2.0.jar", "widget-1.2.0.pom", "widget-1.2.0.module"} {
		f.expectWithSidecars(versionDir+name, algos)
	}
	if existing == nil {
		f.stub.ExpectGetMissing(metadata)
	} else {
		f.stub.ExpectGet(metadata, existing)
	}
	f.expectWithSidecars(metadata, algos)
}

func (f *fixture) expectWithSidecars(path string, algos []checksum.Algorithm) {
	f.stub.ExpectPut(path)
	for _, algo := range algos {
		f.stub.ExpectPut(path + algo.Extension())
	}
}

func (f *fixture) object(path string) []byte {
	GinkgoHelper()
	body, ok := f.stub.Object(path)
	Expect(ok).To(BeTrue(), "object %s was not uploaded", path)
	return body
}

func (f *fixture) expectSidecarsMatch(path string, algos []checksum.Algorithm) {
	GinkgoHelper()
	content := f.object(path)
	sums := checksum.ComputeBytes(content)
	for _, algo := range algos {
		sidecar := f.object(path + algo.Extension())
		Expect(strings.TrimSpace(string(sidecar))).To(Equal(sums[algo]), "%s of %s", algo, path)
		Expect(checksum.Verify(content, sidecar, algo)).To(Succeed())
	}
}

var _ = Describe("Publishing to an S3 repository", func() {
	It("uploads the jar, POM, module metadata and maven-metadata.xml with every checksum", func() {
		isolateCredentials()
		f := newFixture(fixtureOptions{credentials: true})
		f.expectPublish(checksum.All, nil)

		res := runPublish(f.invocation())
		Expect(res.Err).NotTo(HaveOccurred(), res.Stderr)
		Expect(f.stub.Verify()).To(Succeed())

		Expect(res.Stdout).To(ContainSubstring("Published org.acme:widget:1.2.0 to 'releases' (s3://acme-maven)"))
		Expect(res.Stdout).To(ContainSubstring("  releases/org/acme/widget/1.2.0/widget-1.2.0.jar.sha512"))

		By("checking the remote layout")
		Expect(f.object(versionDir + "widget-1.2.0.jar")).To(Equal(f.jar))
		for _, path := range []string{
			versionDir + "widget-1.2.0.jar",
			versionDir + "widget-1.2.0.pom",
			versionDir + "widget-1.2.0.module",
			metadata,
		} {
			f.expectSidecarsMatch(path, checksum.All)
		}

		By("checking the POM")
		pom := string(f.object(versionDir + "widget-1.2.0.pom"))
		Expect(pom).To(ContainSubstring("<groupId>org.acme</groupId>"))
		Expect(pom).To(ContainSubstring("<artifactId>widget</artifactId>"))
		Expect(pom).To(ContainSubstring("<version>1.2.0</version>"))
		Expect(pom).To(ContainSubstring("<description>Widgets for everyone</description>"))
		Expect(pom).To(ContainSubstring("<artifactId>slf4j-api</artifactId>"))
		Expect(pom).To(ContainSubstring(maven.ModuleMetadataMarker))

		By("checking the module metadata")
		module, err := maven.ParseModuleMetadata(f.object(versionDir + "widget-1.2.0.module"))
		Expect(err).NotTo(HaveOccurred())
		Expect(module.Component.Group).To(Equal("org.acme"))
		Expect(module.Component.Module).To(Equal("widget"))
		Expect(module.Component.Version).To(Equal("1.2.0"))

		By("checking maven-metadata.xml")
		md, err := maven.ParseMetadata(f.object(metadata))
		Expect(err).NotTo(HaveOccurred())
		Expect(md.Versioning.Versions).To(Equal([]string{"1.2.0"}))
		Expect(md.Versioning.Latest).To(Equal("1.2.0"))
		Expect(md.Versioning.Release).To(Equal("1.2.0"))
	})

	It("merges the new version into an existing maven-metadata.xml", func() {
		isolateCredentials()
		f := newFixture(fixtureOptions{credentials: true})
		existing := []byte(`<?xml version="1.0" encoding="UTF-8"?>
<metadata modelVersion="1.1.0">
  <groupId>org.acme</groupId>
  <artifactId>widget</artifactId>
  <versioning>
    <latest>1.1.0</latest>
    <release>1.1.0</release>
    <versions>
      <version>1.0.0</version>
      <version>1.1.0</version>
    </versions>
    <lastUpdated>20240101000000</lastUpdated>
  </versioning>
</metadata>
`)
		f.expectPublish(checksum.All, existing)

		res := runPublish(f.invocation())
		Expect(res.Err).NotTo(HaveOccurred(), res.Stderr)
		Expect(f.stub.Verify()).To(Succeed())

		md, err := maven.ParseMetadata(f.object(metadata))
		Expect(err).NotTo(HaveOccurred())
		Expect(md.Versioning.Versions).To(Equal([]string{"1.0.0", "1.1.0", "1.2.0"}))
		Expect(md.Versioning.Latest).To(Equal("1.2.0"))
		Expect(md.Versioning.LastUpdated).NotTo(Equal("20240101000000"))
		f.expectSidecarsMatch(metadata, checksum.All)
	})

	It("takes credentials from the environment when the project has none", func() {
		isolateCredentials()
		setenv("AWS_ACCESS_KEY_ID", "AKIAFROMENV")
		setenv("AWS_SECRET_ACCESS_KEY", "env-secret")
		f := newFixture(fixtureOptions{})
		f.expectPublish(checksum.All, nil)

		res := runPublish(f.invocation())
		Expect(res.Err).NotTo(HaveOccurred(), res.Stderr)
		Expect(f.stub.Verify()).To(Succeed())

		put := f.stub.Requests()[0]
		Expect(put.Header.Get("Authorization")).To(ContainSubstring("Credential=AKIAFROMENV/"))
	})

	It("fails before contacting the repository when no credentials resolve", func() {
		isolateCredentials()
		f := newFixture(fixtureOptions{})

		res := runPublish(f.invocation())
		Expect(res.Err).To(HaveOccurred())
		msg := res.Err.Error()
		Expect(msg).To(ContainSubstring("Could not resolve credentials for repository 'releases'."))
		Expect(msg).To(ContainSubstring("repository credentials in the project file"))
		Expect(msg).To(ContainSubstring("environment variables AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY"))
		Expect(msg).To(ContainSubstring("shared credentials file"))
		Expect(msg).To(ContainSubstring("MinIO client config"))

		Expect(f.stub.Requests()).To(BeEmpty())
		Expect(f.stub.Paths()).To(BeEmpty())
	})

	It("fails the run in fail warning mode after publishing SHA-1 checksums only", func() {
		knownfail.RunSpec(knownfail.Expectation{
			Mode:    knownfail.ModeWorkflow,
			Because: "the worker records deprecations in the ledger instead of failing the publication",
		}, func() {
			isolateCredentials()
			f := newFixture(fixtureOptions{credentials: true, extra: "sha1Only: true\n"})
			f.expectPublish([]checksum.Algorithm{checksum.SHA1}, nil)

			inv := f.invocation()
			inv.warningMode = "fail"
			res := runPublish(inv)

			Expect(f.stub.Verify()).To(Succeed())
			f.expectSidecarsMatch(versionDir+"widget-1.2.0.jar", []checksum.Algorithm{checksum.SHA1})
			Expect(res.Err).To(MatchError(ContainSubstring("Deprecated artipub features were used in this run (1 distinct)")))
		})
	})

	It("summarises suppressed deprecations at the end of the run", func() {
		knownfail.RunSpec(knownfail.Expectation{
			Mode:    knownfail.ModeWorkflow,
			Because: "the workflow executer has no console output",
			Skip:    knownfail.Always,
		}, func() {
			isolateCredentials()
			f := newFixture(fixtureOptions{credentials: true, extra: "legacyLayout: true\n"})
			f.expectPublish(checksum.All, nil)

			inv := f.invocation()
			inv.warningMode = "summary"
			res := runPublish(inv)

			Expect(res.Err).NotTo(HaveOccurred(), res.Stderr)
			Expect(f.stub.Verify()).To(Succeed())
			Expect(res.Stderr).To(ContainSubstring("'--warning-mode all'"))
			Expect(res.Stderr).NotTo(ContainSubstring("legacyLayout"))
		})
	})
})
