// Package credentials resolves the access keys used to publish to an S3
// repository. Sources are searched in a fixed order and every miss is kept so
// a failed resolution can tell the user exactly where it looked.
package credentials

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Explicit credentials as written in the project file.
type Explicit struct {
	AccessKey    string `json:"access_key,omitempty" yaml:"accessKey,omitempty"`
	SecretKey    string `json:"secret_key,omitempty" yaml:"secretKey,omitempty"`
	SessionToken string `json:"session_token,omitempty" yaml:"sessionToken,omitempty"`
}

func (e Explicit) IsZero() bool {
	return e.AccessKey == "" && e.SecretKey == ""
}

// Request names the repository and the optional hints used during resolution.
type Request struct {
	Repository string
	Explicit   Explicit
	// Profile selects the shared credentials file profile; AWS_PROFILE or
	// "default" when empty.
	Profile string
	// MinioAlias selects the alias in the MinIO client config; MINIO_ALIAS or
	// "s3" when empty.
	MinioAlias string
}

type Attempt struct {
	Source string
	Detail string
}

// ResolveError is the configuration-time failure raised when no source
// yields credentials.
type ResolveError struct {
	Repository string
	Attempts   []Attempt
}

func (e *ResolveError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Could not resolve credentials for repository '%s'.\n", e.Repository)
	b.WriteString("Searched in the following locations:\n")
	for _, a := range e.Attempts {
		fmt.Fprintf(&b, "  - %s: %s\n", a.Source, a.Detail)
	}
	b.WriteString("Provide credentials in the repository block of the project file, through AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY, or in a shared credentials file.")
	return b.String()
}

// Resolved carries the winning source next to the minio credentials.
type Resolved struct {
	Source string
	Value  credentials.Value
}

func (r Resolved) Credentials() *credentials.Credentials {
	return credentials.NewStaticV4(r.Value.AccessKeyID, r.Value.SecretAccessKey, r.Value.SessionToken)
}

type source struct {
	name     string
	retrieve func() (credentials.Value, error)
}

// Resolve walks the chain and returns the first complete key pair.
func Resolve(req Request) (Resolved, error) {
	attempts := make([]Attempt, 0, 5)
	for _, src := range chain(req) {
		v, err := src.retrieve()
		switch {
		case err != nil:
			attempts = append(attempts, Attempt{Source: src.name, Detail: describeError(err)})
		case v.AccessKeyID == "" || v.SecretAccessKey == "":
			attempts = append(attempts, Attempt{Source: src.name, Detail: "no access key and secret key found"})
		default:
			return Resolved{Source: src.name, Value: v}, nil
		}
	}
	return Resolved{}, &ResolveError{Repository: req.Repository, Attempts: attempts}
}

func chain(req Request) []source {
	awsFile := &credentials.FileAWSCredentials{Filename: sharedCredentialsFile(), Profile: profile(req.Profile)}
	mcFile := &credentials.FileMinioClient{Filename: minioConfigFile(), Alias: req.MinioAlias}

	return []source{
		{
			name: "repository credentials in the project file",
			retrieve: func() (credentials.Value, error) {
				return credentials.Value{
					AccessKeyID:     req.Explicit.AccessKey,
					SecretAccessKey: req.Explicit.SecretKey,
					SessionToken:    req.Explicit.SessionToken,
					SignerType:      credentials.SignatureV4,
				}, nil
			},
		},
		{
			name:     "environment variables AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY",
			retrieve: (&credentials.EnvAWS{}).Retrieve,
		},
		{
			name:     fmt.Sprintf("shared credentials file %s (profile '%s')", awsFile.Filename, awsFile.Profile),
			retrieve: awsFile.Retrieve,
		},
		{
			name:     "environment variables MINIO_ROOT_USER/MINIO_ROOT_PASSWORD and MINIO_ACCESS_KEY/MINIO_SECRET_KEY",
			retrieve: (&credentials.EnvMinio{}).Retrieve,
		},
		{
			name:     fmt.Sprintf("MinIO client config %s", mcFile.Filename),
			retrieve: mcFile.Retrieve,
		},
	}
}

func sharedCredentialsFile() string {
	if v := os.Getenv("AWS_SHARED_CREDENTIALS_FILE"); v != "" {
		return v
	}
	return filepath.Join(homeDir(), ".aws", "credentials")
}

func minioConfigFile() string {
	if v := os.Getenv("MINIO_SHARED_CREDENTIALS_FILE"); v != "" {
		return v
	}
	return filepath.Join(homeDir(), ".mc", "config.json")
}

func profile(p string) string {
	if p != "" {
		return p
	}
	if v := os.Getenv("AWS_PROFILE"); v != "" {
		return v
	}
	return "default"
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "~"
	}
	return home
}

func describeError(err error) string {
	if errors.Is(err, fs.ErrNotExist) || strings.Contains(err.Error(), "no such file or directory") {
		return "file does not exist"
	}
	return err.Error()
}
