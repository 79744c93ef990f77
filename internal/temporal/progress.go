package temporal

import "artipub/internal/publish"

const ProgressQueryName = "progress"

type Stage string

const (
	StageResolvingCredentials Stage = "RESOLVING_CREDENTIALS"
	StageUploadingArtifacts   Stage = "UPLOADING_ARTIFACTS"
	StageUploadingDescriptors Stage = "UPLOADING_DESCRIPTORS"
	StageUpdatingMetadata     Stage = "UPDATING_METADATA"
	StagePublished            Stage = "PUBLISHED"
	StageFailed               Stage = "FAILED"
)

// Progress answers the progress query of a running PublishWorkflow.
type Progress struct {
	Stage Stage    `json:"stage"`
	Keys  []string `json:"keys"`
}

func (p *Progress) add(up publish.Upload) {
	p.Keys = append(p.Keys, up.Keys...)
}
