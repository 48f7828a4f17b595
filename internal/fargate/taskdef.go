package fargate

import (
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsecs "github.com/aws/aws-sdk-go-v2/service/ecs"
	ecstypes "github.com/aws/aws-sdk-go-v2/service/ecs/types"
)

// containerName is the name of the single container in the task definition.
const containerName = "app"

// buildTaskDefinitionInput builds the RegisterTaskDefinition request for the
// descriptor: one essential container, awsvpc networking, awslogs driver.
func buildTaskDefinitionInput(family string, d *Descriptor) *awsecs.RegisterTaskDefinitionInput {
	containerDef := ecstypes.ContainerDefinition{
		Name:        aws.String(containerName),
		Image:       aws.String(d.Image),
		Essential:   aws.Bool(true),
		Environment: taskEnvironment(d.Env),
		PortMappings: []ecstypes.PortMapping{
			{
				ContainerPort: aws.Int32(d.ContainerPort),
				Protocol:      ecstypes.TransportProtocolTcp,
			},
		},
		LogConfiguration: &ecstypes.LogConfiguration{
			LogDriver: ecstypes.LogDriverAwslogs,
			Options: map[string]string{
				"awslogs-group":         logGroupName(d),
				"awslogs-region":        d.Region,
				"awslogs-stream-prefix": d.App,
			},
		},
	}

	input := &awsecs.RegisterTaskDefinitionInput{
		Family:                  aws.String(family),
		RequiresCompatibilities: []ecstypes.Compatibility{ecstypes.CompatibilityFargate},
		NetworkMode:             ecstypes.NetworkModeAwsvpc,
		Cpu:                     aws.String(strconv.Itoa(int(d.CPU))),
		Memory:                  aws.String(strconv.Itoa(int(d.Memory))),
		ContainerDefinitions:    []ecstypes.ContainerDefinition{containerDef},
		ExecutionRoleArn:        aws.String(d.ExecutionRoleARN),
	}
	if d.TaskRoleARN != "" {
		input.TaskRoleArn = aws.String(d.TaskRoleARN)
	}
	if tags := ecsTags(d.ResourceTags); len(tags) > 0 {
		input.Tags = tags
	}
	return input
}

// taskEnvironment converts the env map to the SDK key/value list, sorted by
// key so repeated registrations produce identical revisions.
func taskEnvironment(env map[string]string) []ecstypes.KeyValuePair {
	if len(env) == 0 {
		return nil
	}
	out := make([]ecstypes.KeyValuePair, 0, len(env))
	for _, k := range sortedKeys(env) {
		out = append(out, ecstypes.KeyValuePair{
			Name:  aws.String(k),
			Value: aws.String(env[k]),
		})
	}
	return out
}
