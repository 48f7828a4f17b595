package fargate

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/aws/aws-sdk-go-v2/service/ecr"
	awsecs "github.com/aws/aws-sdk-go-v2/service/ecs"
	ecstypes "github.com/aws/aws-sdk-go-v2/service/ecs/types"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	log "github.com/sirupsen/logrus"
)

// realAWSClient implements awsClient, taskObserver, resourceDestroyer,
// resourceChecker, and metricsFetcher against the real AWS APIs.
type realAWSClient struct {
	ecs  *awsecs.Client
	ec2  *ec2.Client
	logs *cloudwatchlogs.Client
	ecr  *ecr.Client
	cw   *cloudwatch.Client
}

// newRealAWSClient builds a realAWSClient from the descriptor. Credentials
// are resolved via the standard aws-sdk-go-v2/config chain.
func newRealAWSClient(ctx context.Context, d *Descriptor) (*realAWSClient, error) {
	awsCfg, err := awscfg.LoadDefaultConfig(ctx, awscfg.WithRegion(d.Region))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	// Pre-flight check: verify the caller's AWS account matches the account
	// in the execution_role_arn to catch misconfigurations before any ECS
	// API calls are made.
	arnAccount := extractAccountFromARN(d.ExecutionRoleARN)
	if arnAccount != "" {
		identity, err := sts.NewFromConfig(awsCfg).GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
		if err != nil {
			return nil, fmt.Errorf("STS GetCallerIdentity: %w", err)
		}
		callerAccount := aws.ToString(identity.Account)
		if callerAccount != arnAccount {
			return nil, fmt.Errorf(
				"AWS caller account %s does not match execution_role_arn account %s;"+
					" check your AWS credentials or update the role ARN",
				callerAccount, arnAccount,
			)
		}
	}

	return &realAWSClient{
		ecs:  awsecs.NewFromConfig(awsCfg),
		ec2:  ec2.NewFromConfig(awsCfg),
		logs: cloudwatchlogs.NewFromConfig(awsCfg),
		ecr:  ecr.NewFromConfig(awsCfg),
		cw:   cloudwatch.NewFromConfig(awsCfg),
	}, nil
}

// Factory functions wired into NewDeployer.

func newRealAWSClientFactory(ctx context.Context, d *Descriptor) (awsClient, error) {
	return newRealAWSClient(ctx, d)
}

func newRealObserverFactory(ctx context.Context, d *Descriptor) (taskObserver, error) {
	return newRealAWSClient(ctx, d)
}

func newRealDestroyerFactory(ctx context.Context, d *Descriptor) (resourceDestroyer, error) {
	return newRealAWSClient(ctx, d)
}

func newRealCheckerFactory(ctx context.Context, d *Descriptor) (resourceChecker, error) {
	return newRealAWSClient(ctx, d)
}

func newRealMetricsFactory(ctx context.Context, d *Descriptor) (metricsFetcher, error) {
	return newRealAWSClient(ctx, d)
}

// ---------- error helpers ----------

// isAlreadyExists returns true if the error indicates the resource already
// exists (CloudWatch Logs and EC2 report this differently).
func isAlreadyExists(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "ResourceAlreadyExistsException") ||
		strings.Contains(msg, "InvalidGroup.Duplicate") ||
		strings.Contains(msg, "InvalidPermission.Duplicate")
}

// isNotFound returns true if the error indicates a missing resource.
func isNotFound(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "NotFoundException") ||
		strings.Contains(msg, "NotFound") ||
		strings.Contains(msg, "does not exist")
}

// ---------- awsClient implementation ----------

// EnsureLogGroup creates the CloudWatch log group if missing, sets the
// retention policy, and returns the group's ARN.
func (c *realAWSClient) EnsureLogGroup(ctx context.Context, name string, d *Descriptor) (string, error) {
	input := &cloudwatchlogs.CreateLogGroupInput{
		LogGroupName: aws.String(name),
	}
	if len(d.ResourceTags) > 0 {
		input.Tags = d.ResourceTags
	}
	_, err := c.logs.CreateLogGroup(ctx, input)
	if err != nil {
		if !isAlreadyExists(err) {
			return "", fmt.Errorf("CreateLogGroup %q: %w", name, err)
		}
		log.WithField("log_group", name).Info("log group already exists, adopting")
	}

	_, err = c.logs.PutRetentionPolicy(ctx, &cloudwatchlogs.PutRetentionPolicyInput{
		LogGroupName:    aws.String(name),
		RetentionInDays: aws.Int32(d.LogRetentionDays),
	})
	if err != nil {
		return "", fmt.Errorf("PutRetentionPolicy %q: %w", name, err)
	}

	return c.findLogGroupARN(ctx, name)
}

// findLogGroupARN resolves the log group's ARN via DescribeLogGroups.
func (c *realAWSClient) findLogGroupARN(ctx context.Context, name string) (string, error) {
	out, err := c.logs.DescribeLogGroups(ctx, &cloudwatchlogs.DescribeLogGroupsInput{
		LogGroupNamePrefix: aws.String(name),
	})
	if err != nil {
		return "", fmt.Errorf("DescribeLogGroups %q: %w", name, err)
	}
	for _, lg := range out.LogGroups {
		if aws.ToString(lg.LogGroupName) == name {
			return aws.ToString(lg.Arn), nil
		}
	}
	return "", fmt.Errorf("log group %q not found after create", name)
}

// EnsureSecurityGroup creates the managed security group and its ingress
// rules, adopting an existing group with the same name in the same VPC.
func (c *realAWSClient) EnsureSecurityGroup(ctx context.Context, name string, d *Descriptor) (string, error) {
	groupID, err := c.createSecurityGroup(ctx, name, d)
	if err != nil {
		return "", err
	}

	for _, perm := range ingressPermissions(d) {
		_, err := c.ec2.AuthorizeSecurityGroupIngress(ctx, &ec2.AuthorizeSecurityGroupIngressInput{
			GroupId:       aws.String(groupID),
			IpPermissions: []ec2types.IpPermission{perm},
		})
		if err != nil && !isAlreadyExists(err) {
			return groupID, fmt.Errorf("AuthorizeSecurityGroupIngress %q: %w", name, err)
		}
	}

	return groupID, nil
}

// createSecurityGroup creates the group or adopts an existing one by name.
func (c *realAWSClient) createSecurityGroup(ctx context.Context, name string, d *Descriptor) (string, error) {
	input := &ec2.CreateSecurityGroupInput{
		GroupName:   aws.String(name),
		Description: aws.String(fmt.Sprintf("Ingress for %s (managed by caravel)", d.App)),
		VpcId:       aws.String(d.VPCID),
	}
	if len(d.ResourceTags) > 0 {
		input.TagSpecifications = []ec2types.TagSpecification{{
			ResourceType: ec2types.ResourceTypeSecurityGroup,
			Tags:         ec2Tags(d.ResourceTags),
		}}
	}
	out, err := c.ec2.CreateSecurityGroup(ctx, input)
	if err != nil {
		if isAlreadyExists(err) {
			log.WithField("security_group", name).Info("security group already exists, adopting")
			return c.findSecurityGroupByName(ctx, name, d.VPCID)
		}
		return "", fmt.Errorf("CreateSecurityGroup %q: %w", name, err)
	}
	return aws.ToString(out.GroupId), nil
}

// findSecurityGroupByName looks up a security group by name within a VPC.
func (c *realAWSClient) findSecurityGroupByName(ctx context.Context, name, vpcID string) (string, error) {
	out, err := c.ec2.DescribeSecurityGroups(ctx, &ec2.DescribeSecurityGroupsInput{
		Filters: []ec2types.Filter{
			{Name: aws.String("group-name"), Values: []string{name}},
			{Name: aws.String("vpc-id"), Values: []string{vpcID}},
		},
	})
	if err != nil {
		return "", fmt.Errorf("DescribeSecurityGroups %q: %w", name, err)
	}
	if len(out.SecurityGroups) == 0 {
		return "", fmt.Errorf("security group %q not found in %s", name, vpcID)
	}
	return aws.ToString(out.SecurityGroups[0].GroupId), nil
}

// ingressPermissions builds the EC2 permissions for the descriptor: the
// container port plus any explicit ingress rules.
func ingressPermissions(d *Descriptor) []ec2types.IpPermission {
	rules := d.Ingress
	if len(rules) == 0 {
		rules = []IngressRule{{Port: d.ContainerPort, Protocol: "tcp", CIDR: openCIDR}}
	}
	perms := make([]ec2types.IpPermission, 0, len(rules))
	for _, r := range rules {
		proto := r.Protocol
		if proto == "" {
			proto = "tcp"
		}
		perms = append(perms, ec2types.IpPermission{
			IpProtocol: aws.String(proto),
			FromPort:   aws.Int32(r.Port),
			ToPort:     aws.Int32(r.Port),
			IpRanges: []ec2types.IpRange{{
				CidrIp:      aws.String(r.CIDR),
				Description: aws.String("managed by caravel"),
			}},
		})
	}
	return perms
}

// ec2Tags converts a tag map to the EC2 SDK tag list.
func ec2Tags(tags map[string]string) []ec2types.Tag {
	out := make([]ec2types.Tag, 0, len(tags))
	for _, k := range sortedKeys(tags) {
		out = append(out, ec2types.Tag{Key: aws.String(k), Value: aws.String(tags[k])})
	}
	return out
}

// EnsureCluster creates the ECS cluster, adopting an existing active one.
func (c *realAWSClient) EnsureCluster(ctx context.Context, name string, d *Descriptor) (string, error) {
	out, err := c.ecs.DescribeClusters(ctx, &awsecs.DescribeClustersInput{
		Clusters: []string{name},
	})
	if err == nil {
		for _, cl := range out.Clusters {
			if aws.ToString(cl.Status) == "ACTIVE" {
				log.WithField("cluster", name).Info("cluster already exists, adopting")
				return aws.ToString(cl.ClusterArn), nil
			}
		}
	}

	input := &awsecs.CreateClusterInput{
		ClusterName: aws.String(name),
	}
	if tags := ecsTags(d.ResourceTags); len(tags) > 0 {
		input.Tags = tags
	}
	created, err := c.ecs.CreateCluster(ctx, input)
	if err != nil {
		return "", fmt.Errorf("CreateCluster %q: %w", name, err)
	}
	return aws.ToString(created.Cluster.ClusterArn), nil
}

// RegisterTaskDefinition registers a new task definition revision. A fresh
// revision per apply is intentional: ECS keeps prior revisions for rollback.
func (c *realAWSClient) RegisterTaskDefinition(ctx context.Context, family string, d *Descriptor) (string, error) {
	out, err := c.ecs.RegisterTaskDefinition(ctx, buildTaskDefinitionInput(family, d))
	if err != nil {
		return "", fmt.Errorf("RegisterTaskDefinition %q: %w", family, err)
	}
	return aws.ToString(out.TaskDefinition.TaskDefinitionArn), nil
}

// EnsureService creates the ECS service, or updates the existing one to the
// new task definition revision and desired count.
func (c *realAWSClient) EnsureService(ctx context.Context, name string, d *Descriptor) (string, error) {
	existing, err := c.findActiveService(ctx, name, d)
	if err != nil {
		return "", err
	}
	if existing != "" {
		return c.updateService(ctx, name, existing, d)
	}
	return c.createService(ctx, name, d)
}

// findActiveService returns the ARN of an existing non-inactive service, or
// an empty string when the service must be created.
func (c *realAWSClient) findActiveService(ctx context.Context, name string, d *Descriptor) (string, error) {
	out, err := c.ecs.DescribeServices(ctx, &awsecs.DescribeServicesInput{
		Cluster:  aws.String(clusterName(d)),
		Services: []string{name},
	})
	if err != nil {
		if isNotFound(err) {
			return "", nil
		}
		return "", fmt.Errorf("DescribeServices %q: %w", name, err)
	}
	for _, svc := range out.Services {
		if aws.ToString(svc.Status) != "INACTIVE" {
			return aws.ToString(svc.ServiceArn), nil
		}
	}
	return "", nil
}

func (c *realAWSClient) createService(ctx context.Context, name string, d *Descriptor) (string, error) {
	input := &awsecs.CreateServiceInput{
		Cluster:              aws.String(clusterName(d)),
		ServiceName:          aws.String(name),
		TaskDefinition:       aws.String(d.TaskDefinitionARN),
		DesiredCount:         aws.Int32(d.DesiredCount),
		LaunchType:           ecstypes.LaunchTypeFargate,
		NetworkConfiguration: networkConfiguration(d),
	}
	if tags := ecsTags(d.ResourceTags); len(tags) > 0 {
		input.Tags = tags
	}
	out, err := c.ecs.CreateService(ctx, input)
	if err != nil {
		return "", fmt.Errorf("CreateService %q: %w", name, err)
	}
	return aws.ToString(out.Service.ServiceArn), nil
}

func (c *realAWSClient) updateService(ctx context.Context, name, arn string, d *Descriptor) (string, error) {
	log.WithField("service", name).Info("service already exists, updating")
	_, err := c.ecs.UpdateService(ctx, &awsecs.UpdateServiceInput{
		Cluster:        aws.String(clusterName(d)),
		Service:        aws.String(name),
		TaskDefinition: aws.String(d.TaskDefinitionARN),
		DesiredCount:   aws.Int32(d.DesiredCount),
	})
	if err != nil {
		return arn, fmt.Errorf("UpdateService %q: %w", name, err)
	}
	return arn, nil
}

// networkConfiguration builds the awsvpc configuration for the service from
// the descriptor's placement and the security group resolved during apply.
func networkConfiguration(d *Descriptor) *ecstypes.NetworkConfiguration {
	assignPublicIP := ecstypes.AssignPublicIpDisabled
	if d.AssignPublicIP {
		assignPublicIP = ecstypes.AssignPublicIpEnabled
	}
	sgs := d.SecurityGroups
	if len(sgs) == 0 && d.SecurityGroupID != "" {
		sgs = []string{d.SecurityGroupID}
	}
	return &ecstypes.NetworkConfiguration{
		AwsvpcConfiguration: &ecstypes.AwsVpcConfiguration{
			Subnets:        d.Subnets,
			SecurityGroups: sgs,
			AssignPublicIp: assignPublicIP,
		},
	}
}

// VerifyImageRepository checks that an ECR image reference points at an
// existing repository. Non-ECR references are not verifiable and return nil.
func (c *realAWSClient) VerifyImageRepository(ctx context.Context, d *Descriptor) error {
	if !ecrImageRE.MatchString(d.Image) {
		return nil
	}
	repo := ecrRepositoryName(d.Image)
	if repo == "" {
		return nil
	}
	_, err := c.ecr.DescribeRepositories(ctx, &ecr.DescribeRepositoriesInput{
		RepositoryNames: []string{repo},
	})
	if err != nil {
		if isNotFound(err) {
			return fmt.Errorf("ECR repository %q does not exist; push the image before applying", repo)
		}
		return fmt.Errorf("DescribeRepositories %q: %w", repo, err)
	}
	return nil
}

// ecrRepositoryName extracts the repository name from an ECR image URI,
// stripping the registry host and any tag or digest.
func ecrRepositoryName(image string) string {
	slash := strings.Index(image, "/")
	if slash < 0 {
		return ""
	}
	repo := image[slash+1:]
	if at := strings.Index(repo, "@"); at >= 0 {
		repo = repo[:at]
	}
	if colon := strings.Index(repo, ":"); colon >= 0 {
		repo = repo[:colon]
	}
	return repo
}

// ---------- taskObserver implementation ----------

// ObserveTasks lists the service's tasks and returns a point-in-time
// snapshot including network addresses.
func (c *realAWSClient) ObserveTasks(ctx context.Context, d *Descriptor) (*ClusterState, error) {
	cluster := clusterName(d)
	listed, err := c.ecs.ListTasks(ctx, &awsecs.ListTasksInput{
		Cluster:     aws.String(cluster),
		ServiceName: aws.String(serviceName(d)),
	})
	if err != nil {
		return nil, fmt.Errorf("ListTasks: %w", err)
	}
	snapshot := &ClusterState{ObservedAt: time.Now().UTC()}
	if len(listed.TaskArns) == 0 {
		return snapshot, nil
	}

	described, err := c.ecs.DescribeTasks(ctx, &awsecs.DescribeTasksInput{
		Cluster: aws.String(cluster),
		Tasks:   listed.TaskArns,
	})
	if err != nil {
		return nil, fmt.Errorf("DescribeTasks: %w", err)
	}

	for i := range described.Tasks {
		ts, err := c.observeTask(ctx, &described.Tasks[i])
		if err != nil {
			return nil, err
		}
		snapshot.Tasks = append(snapshot.Tasks, ts)
	}
	return snapshot, nil
}

// observeTask converts an ECS task into a TaskState, resolving the ENI's
// public IP when the task is running.
func (c *realAWSClient) observeTask(ctx context.Context, task *ecstypes.Task) (TaskState, error) {
	ts := TaskState{
		ARN:           aws.ToString(task.TaskArn),
		LastStatus:    aws.ToString(task.LastStatus),
		Health:        string(task.HealthStatus),
		StoppedReason: aws.ToString(task.StoppedReason),
	}
	if ts.LastStatus != taskStatusRunning {
		return ts, nil
	}

	eniID := extractENIID(task)
	if eniID == "" {
		return ts, nil
	}
	out, err := c.ec2.DescribeNetworkInterfaces(ctx, &ec2.DescribeNetworkInterfacesInput{
		NetworkInterfaceIds: []string{eniID},
	})
	if err != nil {
		return ts, fmt.Errorf("DescribeNetworkInterfaces %q: %w", eniID, err)
	}
	if len(out.NetworkInterfaces) > 0 {
		eni := out.NetworkInterfaces[0]
		ts.PrivateIP = aws.ToString(eni.PrivateIpAddress)
		if eni.Association != nil {
			ts.PublicIP = aws.ToString(eni.Association.PublicIp)
		}
	}
	return ts, nil
}

// extractENIID extracts the network interface ID from a Fargate task's ENI
// attachment.
func extractENIID(task *ecstypes.Task) string {
	for _, attachment := range task.Attachments {
		if aws.ToString(attachment.Type) != "ElasticNetworkInterface" {
			continue
		}
		for _, detail := range attachment.Details {
			if aws.ToString(detail.Name) == "networkInterfaceId" {
				return aws.ToString(detail.Value)
			}
		}
	}
	return ""
}

// ---------- resourceDestroyer implementation ----------

// DeleteResource deletes a single resource by type. Missing resources are
// treated as already deleted.
func (c *realAWSClient) DeleteResource(ctx context.Context, res ResourceState) error {
	switch res.Type {
	case ResTypeService:
		return c.deleteService(ctx, res)
	case ResTypeTaskDefinition:
		return c.deregisterTaskDefinition(ctx, res)
	case ResTypeCluster:
		return c.deleteCluster(ctx, res)
	case ResTypeSecurityGroup:
		return c.deleteSecurityGroup(ctx, res)
	case ResTypeLogGroup:
		return c.deleteLogGroup(ctx, res)
	default:
		return fmt.Errorf("unknown resource type %q", res.Type)
	}
}

// deleteService scales the service to zero and force-deletes it.
func (c *realAWSClient) deleteService(ctx context.Context, res ResourceState) error {
	cluster := res.Metadata["cluster"]
	_, err := c.ecs.UpdateService(ctx, &awsecs.UpdateServiceInput{
		Cluster:      aws.String(cluster),
		Service:      aws.String(res.Name),
		DesiredCount: aws.Int32(0),
	})
	if err != nil && !isNotFound(err) {
		return fmt.Errorf("UpdateService %q to zero: %w", res.Name, err)
	}
	_, err = c.ecs.DeleteService(ctx, &awsecs.DeleteServiceInput{
		Cluster: aws.String(cluster),
		Service: aws.String(res.Name),
		Force:   aws.Bool(true),
	})
	if err != nil && !isNotFound(err) {
		return fmt.Errorf("DeleteService %q: %w", res.Name, err)
	}
	return nil
}

func (c *realAWSClient) deregisterTaskDefinition(ctx context.Context, res ResourceState) error {
	ref := res.ARN
	if ref == "" {
		ref = res.Name
	}
	_, err := c.ecs.DeregisterTaskDefinition(ctx, &awsecs.DeregisterTaskDefinitionInput{
		TaskDefinition: aws.String(ref),
	})
	if err != nil && !isNotFound(err) {
		return fmt.Errorf("DeregisterTaskDefinition %q: %w", res.Name, err)
	}
	return nil
}

func (c *realAWSClient) deleteCluster(ctx context.Context, res ResourceState) error {
	_, err := c.ecs.DeleteCluster(ctx, &awsecs.DeleteClusterInput{
		Cluster: aws.String(res.Name),
	})
	if err != nil && !isNotFound(err) {
		return fmt.Errorf("DeleteCluster %q: %w", res.Name, err)
	}
	return nil
}

func (c *realAWSClient) deleteSecurityGroup(ctx context.Context, res ResourceState) error {
	groupID := res.Metadata["group_id"]
	if groupID == "" {
		return nil
	}
	_, err := c.ec2.DeleteSecurityGroup(ctx, &ec2.DeleteSecurityGroupInput{
		GroupId: aws.String(groupID),
	})
	if err != nil && !isNotFound(err) {
		return fmt.Errorf("DeleteSecurityGroup %q: %w", res.Name, err)
	}
	return nil
}

func (c *realAWSClient) deleteLogGroup(ctx context.Context, res ResourceState) error {
	_, err := c.logs.DeleteLogGroup(ctx, &cloudwatchlogs.DeleteLogGroupInput{
		LogGroupName: aws.String(res.Name),
	})
	if err != nil && !isNotFound(err) {
		return fmt.Errorf("DeleteLogGroup %q: %w", res.Name, err)
	}
	return nil
}

// ---------- resourceChecker implementation ----------

// CheckResource returns the health status of a single resource.
func (c *realAWSClient) CheckResource(ctx context.Context, res ResourceState) (string, error) {
	switch res.Type {
	case ResTypeService:
		return c.checkService(ctx, res)
	case ResTypeTaskDefinition:
		return c.checkTaskDefinition(ctx, res)
	case ResTypeCluster:
		return c.checkCluster(ctx, res)
	case ResTypeSecurityGroup:
		return c.checkSecurityGroup(ctx, res)
	case ResTypeLogGroup:
		return c.checkLogGroup(ctx, res)
	default:
		return StatusMissing, fmt.Errorf("unknown resource type %q", res.Type)
	}
}

func (c *realAWSClient) checkService(ctx context.Context, res ResourceState) (string, error) {
	out, err := c.ecs.DescribeServices(ctx, &awsecs.DescribeServicesInput{
		Cluster:  aws.String(res.Metadata["cluster"]),
		Services: []string{res.Name},
	})
	if err != nil {
		if isNotFound(err) {
			return StatusMissing, nil
		}
		return StatusUnhealthy, fmt.Errorf("DescribeServices %q: %w", res.Name, err)
	}
	for _, svc := range out.Services {
		if aws.ToString(svc.Status) != "ACTIVE" {
			return StatusUnhealthy, nil
		}
		if svc.RunningCount < svc.DesiredCount {
			return StatusUnhealthy, nil
		}
		return StatusHealthy, nil
	}
	return StatusMissing, nil
}

func (c *realAWSClient) checkTaskDefinition(ctx context.Context, res ResourceState) (string, error) {
	ref := res.ARN
	if ref == "" {
		ref = res.Name
	}
	out, err := c.ecs.DescribeTaskDefinition(ctx, &awsecs.DescribeTaskDefinitionInput{
		TaskDefinition: aws.String(ref),
	})
	if err != nil {
		if isNotFound(err) {
			return StatusMissing, nil
		}
		return StatusUnhealthy, fmt.Errorf("DescribeTaskDefinition %q: %w", res.Name, err)
	}
	if out.TaskDefinition.Status == ecstypes.TaskDefinitionStatusActive {
		return StatusHealthy, nil
	}
	return StatusUnhealthy, nil
}

func (c *realAWSClient) checkCluster(ctx context.Context, res ResourceState) (string, error) {
	out, err := c.ecs.DescribeClusters(ctx, &awsecs.DescribeClustersInput{
		Clusters: []string{res.Name},
	})
	if err != nil {
		return StatusUnhealthy, fmt.Errorf("DescribeClusters %q: %w", res.Name, err)
	}
	for _, cl := range out.Clusters {
		if aws.ToString(cl.Status) == "ACTIVE" {
			return StatusHealthy, nil
		}
		return StatusUnhealthy, nil
	}
	return StatusMissing, nil
}

func (c *realAWSClient) checkSecurityGroup(ctx context.Context, res ResourceState) (string, error) {
	groupID := res.Metadata["group_id"]
	if groupID == "" {
		return StatusMissing, nil
	}
	out, err := c.ec2.DescribeSecurityGroups(ctx, &ec2.DescribeSecurityGroupsInput{
		GroupIds: []string{groupID},
	})
	if err != nil {
		if isNotFound(err) {
			return StatusMissing, nil
		}
		return StatusUnhealthy, fmt.Errorf("DescribeSecurityGroups %q: %w", res.Name, err)
	}
	if len(out.SecurityGroups) > 0 {
		return StatusHealthy, nil
	}
	return StatusMissing, nil
}

func (c *realAWSClient) checkLogGroup(ctx context.Context, res ResourceState) (string, error) {
	out, err := c.logs.DescribeLogGroups(ctx, &cloudwatchlogs.DescribeLogGroupsInput{
		LogGroupNamePrefix: aws.String(res.Name),
	})
	if err != nil {
		return StatusUnhealthy, fmt.Errorf("DescribeLogGroups %q: %w", res.Name, err)
	}
	for _, lg := range out.LogGroups {
		if aws.ToString(lg.LogGroupName) == res.Name {
			return StatusHealthy, nil
		}
	}
	return StatusMissing, nil
}

// ---------- metricsFetcher implementation ----------

// metricsWindow is how far back ServiceUtilization looks.
const metricsWindow = 15 * time.Minute

// metricsPeriodSecs is the CloudWatch aggregation period.
const metricsPeriodSecs = 60

// ServiceUtilization fetches the service's average CPU and memory
// utilization over the recent metrics window.
func (c *realAWSClient) ServiceUtilization(ctx context.Context, d *Descriptor) (*ServiceMetrics, error) {
	end := time.Now().UTC()
	start := end.Add(-metricsWindow)

	dims := []cwtypes.Dimension{
		{Name: aws.String("ClusterName"), Value: aws.String(clusterName(d))},
		{Name: aws.String("ServiceName"), Value: aws.String(serviceName(d))},
	}
	query := func(id, metric string) cwtypes.MetricDataQuery {
		return cwtypes.MetricDataQuery{
			Id: aws.String(id),
			MetricStat: &cwtypes.MetricStat{
				Metric: &cwtypes.Metric{
					Namespace:  aws.String("AWS/ECS"),
					MetricName: aws.String(metric),
					Dimensions: dims,
				},
				Period: aws.Int32(metricsPeriodSecs),
				Stat:   aws.String("Average"),
			},
		}
	}

	out, err := c.cw.GetMetricData(ctx, &cloudwatch.GetMetricDataInput{
		StartTime: aws.Time(start),
		EndTime:   aws.Time(end),
		MetricDataQueries: []cwtypes.MetricDataQuery{
			query("cpu", "CPUUtilization"),
			query("mem", "MemoryUtilization"),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("GetMetricData: %w", err)
	}

	metrics := &ServiceMetrics{Window: metricsWindow}
	for _, r := range out.MetricDataResults {
		avg, ok := latestValue(r.Values)
		if !ok {
			continue
		}
		switch aws.ToString(r.Id) {
		case "cpu":
			metrics.CPUPercent = avg
			metrics.HasCPU = true
		case "mem":
			metrics.MemoryPercent = avg
			metrics.HasMemory = true
		}
	}
	return metrics, nil
}

// latestValue returns the first datapoint (CloudWatch returns newest first
// by default) and whether any datapoint exists.
func latestValue(values []float64) (float64, bool) {
	if len(values) == 0 {
		return 0, false
	}
	return values[0], true
}
