package fargate

import (
	"github.com/aws/aws-sdk-go-v2/aws"
	ecstypes "github.com/aws/aws-sdk-go-v2/service/ecs/types"
)

// Tag key constants for deployment metadata applied to all created AWS
// resources.
const (
	TagKeyApp       = "caravel:app"
	TagKeyApplyID   = "caravel:apply-id"
	TagKeyManagedBy = "caravel:managed-by"
)

// managedByValue identifies resources created by this tool.
const managedByValue = "caravel"

// buildResourceTags merges default deployment metadata tags with user-defined
// tags from the descriptor. User-defined tags take precedence over defaults
// when keys overlap.
func buildResourceTags(app, applyID string, userTags map[string]string) map[string]string {
	tags := make(map[string]string, len(userTags)+3)

	tags[TagKeyApp] = app
	tags[TagKeyApplyID] = applyID
	tags[TagKeyManagedBy] = managedByValue

	for k, v := range userTags {
		tags[k] = v
	}

	return tags
}

// ecsTags converts a tag map to the ECS SDK tag list, sorted by key for
// deterministic request bodies.
func ecsTags(tags map[string]string) []ecstypes.Tag {
	if len(tags) == 0 {
		return nil
	}
	out := make([]ecstypes.Tag, 0, len(tags))
	for _, k := range sortedKeys(tags) {
		out = append(out, ecstypes.Tag{
			Key:   aws.String(k),
			Value: aws.String(tags[k]),
		})
	}
	return out
}
