package temporal

import (
	"errors"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"artipub/internal/domain"
	"artipub/internal/maven"
	"artipub/internal/publish"
)

const PublishWorkflowName = "PublishWorkflow"

type WorkflowInput struct {
	PublicationID string
	Repository    string
	Publication   domain.Publication
}

type WorkflowResult struct {
	PublicationID string
	Status        domain.PublicationStatus
	Keys          []string
}

// PublishWorkflow runs the publishing steps as activities, in the order a
// local publish performs them, and records the outcome in the ledger.
func PublishWorkflow(ctx workflow.Context, input WorkflowInput) (WorkflowResult, error) {
	progress := Progress{Stage: StageResolvingCredentials}
	if err := workflow.SetQueryHandler(ctx, ProgressQueryName, func() (Progress, error) {
		return progress, nil
	}); err != nil {
		return WorkflowResult{}, err
	}

	pub := input.Publication
	var files []domain.PublishedFile

	fail := func(cause error) (WorkflowResult, error) {
		progress.Stage = StageFailed
		recordCtx := mustActivityContext(ctx, ActivityPolicyRecordResult)
		if err := workflow.ExecuteActivity(recordCtx, (*Activities).RecordResultActivity, RecordResultInput{
			PublicationID: input.PublicationID,
			Error:         failureReason(cause),
		}).Get(ctx, nil); err != nil {
			workflow.GetLogger(ctx).Error("record failed publication", "publication_id", input.PublicationID, "error", err)
		}
		return WorkflowResult{PublicationID: input.PublicationID, Status: domain.StatusFailed}, cause
	}

	if err := publish.Validate(pub); err != nil {
		return fail(temporal.NewNonRetryableApplicationError(err.Error(), errTypeInvalid, nil))
	}

	var resolved ResolveCredentialsOutput
	if err := workflow.ExecuteActivity(mustActivityContext(ctx, ActivityPolicyResolveCredentials), (*Activities).ResolveCredentialsActivity, ResolveCredentialsInput{
		PublicationID: input.PublicationID,
		Repository:    input.Repository,
		SHA1Only:      pub.SHA1Only,
	}).Get(ctx, &resolved); err != nil {
		return fail(err)
	}

	progress.Stage = StageUploadingArtifacts
	uploadCtx := mustActivityContext(ctx, ActivityPolicyUploadArtifact)
	byID := make(map[string]domain.PublishedFile, len(pub.Artifacts))
	for _, a := range pub.Artifacts {
		var up publish.Upload
		if err := workflow.ExecuteActivity(uploadCtx, (*Activities).UploadArtifactActivity, UploadArtifactInput{
			Repository:  input.Repository,
			Coordinates: pub.Coordinates,
			Artifact:    a,
			Algorithms:  resolved.Algorithms,
		}).Get(ctx, &up); err != nil {
			return fail(err)
		}
		progress.add(up)
		files = append(files, up.Files...)
		if len(up.Files) > 0 {
			byID[maven.ArtifactID(a)] = up.Files[0]
		}
	}

	progress.Stage = StageUploadingDescriptors
	var descriptors publish.Upload
	if err := workflow.ExecuteActivity(mustActivityContext(ctx, ActivityPolicyUploadDescriptors), (*Activities).UploadDescriptorsActivity, UploadDescriptorsInput{
		Repository:  input.Repository,
		Publication: pub,
		Files:       byID,
		Algorithms:  resolved.Algorithms,
	}).Get(ctx, &descriptors); err != nil {
		return fail(err)
	}
	progress.add(descriptors)
	files = append(files, descriptors.Files...)

	progress.Stage = StageUpdatingMetadata
	var metadata publish.Upload
	if err := workflow.ExecuteActivity(mustActivityContext(ctx, ActivityPolicyUpdateMetadata), (*Activities).UpdateMetadataActivity, UpdateMetadataInput{
		Repository:  input.Repository,
		Coordinates: pub.Coordinates,
		Algorithms:  resolved.Algorithms,
	}).Get(ctx, &metadata); err != nil {
		return fail(err)
	}
	progress.add(metadata)
	files = append(files, metadata.Files...)

	if err := workflow.ExecuteActivity(mustActivityContext(ctx, ActivityPolicyRecordResult), (*Activities).RecordResultActivity, RecordResultInput{
		PublicationID: input.PublicationID,
		Files:         files,
	}).Get(ctx, nil); err != nil {
		return WorkflowResult{}, err
	}

	progress.Stage = StagePublished
	return WorkflowResult{
		PublicationID: input.PublicationID,
		Status:        domain.StatusPublished,
		Keys:          progress.Keys,
	}, nil
}

// failureReason unwraps activity errors down to the application error
// message so the ledger stores what the user needs to read.
func failureReason(err error) string {
	var appErr *temporal.ApplicationError
	if errors.As(err, &appErr) {
		return appErr.Error()
	}
	return err.Error()
}
