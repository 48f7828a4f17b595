package fargate

import (
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	ecstypes "github.com/aws/aws-sdk-go-v2/service/ecs/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildTaskDefinitionInput(t *testing.T) {
	d := testDescriptor()
	d.CPU = 512
	d.Memory = 1024
	d.Env = map[string]string{"MODEL": "small", "API_KEY": "secret"}
	d.TaskRoleARN = "arn:aws:iam::123456789012:role/chatbotTask"
	d.ResourceTags = buildResourceTags(d.App, "apply-1", nil)

	input := buildTaskDefinitionInput("chatbot-task", d)

	assert.Equal(t, "chatbot-task", aws.ToString(input.Family))
	assert.Equal(t, []ecstypes.Compatibility{ecstypes.CompatibilityFargate}, input.RequiresCompatibilities)
	assert.Equal(t, ecstypes.NetworkModeAwsvpc, input.NetworkMode)
	assert.Equal(t, "512", aws.ToString(input.Cpu))
	assert.Equal(t, "1024", aws.ToString(input.Memory))
	assert.Equal(t, d.ExecutionRoleARN, aws.ToString(input.ExecutionRoleArn))
	assert.Equal(t, d.TaskRoleARN, aws.ToString(input.TaskRoleArn))
	assert.NotEmpty(t, input.Tags)

	require.Len(t, input.ContainerDefinitions, 1)
	container := input.ContainerDefinitions[0]
	assert.Equal(t, containerName, aws.ToString(container.Name))
	assert.Equal(t, d.Image, aws.ToString(container.Image))
	assert.True(t, aws.ToBool(container.Essential))

	require.Len(t, container.PortMappings, 1)
	assert.Equal(t, d.ContainerPort, aws.ToInt32(container.PortMappings[0].ContainerPort))

	require.NotNil(t, container.LogConfiguration)
	assert.Equal(t, ecstypes.LogDriverAwslogs, container.LogConfiguration.LogDriver)
	assert.Equal(t, "/ecs/chatbot", container.LogConfiguration.Options["awslogs-group"])
	assert.Equal(t, d.Region, container.LogConfiguration.Options["awslogs-region"])

	// Environment is sorted by key for deterministic revisions.
	require.Len(t, container.Environment, 2)
	assert.Equal(t, "API_KEY", aws.ToString(container.Environment[0].Name))
	assert.Equal(t, "MODEL", aws.ToString(container.Environment[1].Name))
}

func TestBuildTaskDefinitionInputOmitsOptionalFields(t *testing.T) {
	d := testDescriptor()
	input := buildTaskDefinitionInput("chatbot-task", d)

	assert.Nil(t, input.TaskRoleArn)
	assert.Empty(t, input.Tags)
	assert.Empty(t, input.ContainerDefinitions[0].Environment)
}
