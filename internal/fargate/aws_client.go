package fargate

import "context"

// awsClient abstracts the AWS calls made by the convergence driver so tests
// can substitute a recording fake. Every Ensure method is idempotent: if the
// resource already exists it is adopted and its identifier returned.
type awsClient interface {
	EnsureLogGroup(ctx context.Context, name string, d *Descriptor) (arn string, err error)
	EnsureSecurityGroup(ctx context.Context, name string, d *Descriptor) (groupID string, err error)
	EnsureCluster(ctx context.Context, name string, d *Descriptor) (arn string, err error)
	RegisterTaskDefinition(ctx context.Context, family string, d *Descriptor) (arn string, err error)
	EnsureService(ctx context.Context, name string, d *Descriptor) (arn string, err error)
}

// taskObserver abstracts the read side: a point-in-time snapshot of the
// service's tasks and their network addresses.
type taskObserver interface {
	ObserveTasks(ctx context.Context, d *Descriptor) (*ClusterState, error)
}

// resourceDestroyer abstracts resource deletion for teardown.
type resourceDestroyer interface {
	// DeleteResource deletes a single resource. Already-deleted resources
	// return nil so destroy stays idempotent.
	DeleteResource(ctx context.Context, res ResourceState) error
}

// resourceChecker abstracts resource health checks.
type resourceChecker interface {
	// CheckResource returns the health status of a single resource:
	// "healthy", "unhealthy", or "missing".
	CheckResource(ctx context.Context, res ResourceState) (string, error)
}

// metricsFetcher abstracts CloudWatch utilization queries for the service.
type metricsFetcher interface {
	ServiceUtilization(ctx context.Context, d *Descriptor) (*ServiceMetrics, error)
}
