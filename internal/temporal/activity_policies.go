package temporal

import (
	"fmt"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

const (
	ActivityPolicyResolveCredentials = "resolve_credentials"
	ActivityPolicyUploadArtifact     = "upload_artifact"
	ActivityPolicyUploadDescriptors  = "upload_descriptors"
	ActivityPolicyUpdateMetadata     = "update_metadata"
	ActivityPolicyRecordResult       = "record_result"
)

type activityPolicy struct {
	StartToCloseTimeout time.Duration
	RetryPolicy         temporal.RetryPolicy
}

var uploadRetry = temporal.RetryPolicy{
	InitialInterval:        1 * time.Second,
	BackoffCoefficient:     2,
	MaximumInterval:        30 * time.Second,
	MaximumAttempts:        5,
	NonRetryableErrorTypes: []string{errTypeCredentials, errTypeUnknownRepository, errTypeArtifactUnreadable, errTypeMalformedMetadata},
}

var activityPolicies = map[string]activityPolicy{
	ActivityPolicyResolveCredentials: {
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: temporal.RetryPolicy{
			MaximumAttempts: 1,
		},
	},
	ActivityPolicyUploadArtifact: {
		StartToCloseTimeout: 10 * time.Minute,
		RetryPolicy:         uploadRetry,
	},
	ActivityPolicyUploadDescriptors: {
		StartToCloseTimeout: 2 * time.Minute,
		RetryPolicy:         uploadRetry,
	},
	// Metadata is read, merged and rewritten; a retry re-reads the latest copy.
	ActivityPolicyUpdateMetadata: {
		StartToCloseTimeout: 2 * time.Minute,
		RetryPolicy:         uploadRetry,
	},
	ActivityPolicyRecordResult: {
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: temporal.RetryPolicy{
			InitialInterval:    1 * time.Second,
			BackoffCoefficient: 2,
			MaximumInterval:    10 * time.Second,
			MaximumAttempts:    3,
		},
	},
}

func ActivityOptionsFor(policyName string) (workflow.ActivityOptions, error) {
	policy, ok := activityPolicies[policyName]
	if !ok {
		return workflow.ActivityOptions{}, fmt.Errorf("unknown activity policy: %s", policyName)
	}

	retry := policy.RetryPolicy
	return workflow.ActivityOptions{
		StartToCloseTimeout: policy.StartToCloseTimeout,
		RetryPolicy:         &retry,
	}, nil
}

func mustActivityContext(ctx workflow.Context, policyName string) workflow.Context {
	ao, err := ActivityOptionsFor(policyName)
	if err != nil {
		panic(err)
	}
	return workflow.WithActivityOptions(ctx, ao)
}
