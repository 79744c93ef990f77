package domain

import "errors"

var ErrInvalidCoordinates = errors.New("invalid coordinates")

type PublicationStatus string

const (
	StatusPending   PublicationStatus = "PENDING"
	StatusUploading PublicationStatus = "UPLOADING"
	StatusPublished PublicationStatus = "PUBLISHED"
	StatusFailed    PublicationStatus = "FAILED"
)

type DependencyScope string

const (
	ScopeCompile  DependencyScope = "compile"
	ScopeRuntime  DependencyScope = "runtime"
	ScopeProvided DependencyScope = "provided"
	ScopeTest     DependencyScope = "test"
)
