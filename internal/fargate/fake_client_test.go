package fargate

import (
	"context"
	"fmt"
	"time"
)

// fakeAWSClient is a recording fake for the convergence driver. It records
// every call in order and can be told to fail specific operations.
type fakeAWSClient struct {
	calls  []string
	failOn map[string]error
}

func newFakeAWSClient() *fakeAWSClient {
	return &fakeAWSClient{failOn: map[string]error{}}
}

func (f *fakeAWSClient) record(op, name string) error {
	f.calls = append(f.calls, op+":"+name)
	return f.failOn[op]
}

func (f *fakeAWSClient) EnsureLogGroup(_ context.Context, name string, _ *Descriptor) (string, error) {
	if err := f.record("EnsureLogGroup", name); err != nil {
		return "", err
	}
	return "arn:aws:logs:::log-group:" + name, nil
}

func (f *fakeAWSClient) EnsureSecurityGroup(_ context.Context, name string, _ *Descriptor) (string, error) {
	if err := f.record("EnsureSecurityGroup", name); err != nil {
		return "", err
	}
	return "sg-0123456789abcdef0", nil
}

func (f *fakeAWSClient) EnsureCluster(_ context.Context, name string, _ *Descriptor) (string, error) {
	if err := f.record("EnsureCluster", name); err != nil {
		return "", err
	}
	return "arn:aws:ecs:::cluster/" + name, nil
}

func (f *fakeAWSClient) RegisterTaskDefinition(_ context.Context, family string, _ *Descriptor) (string, error) {
	if err := f.record("RegisterTaskDefinition", family); err != nil {
		return "", err
	}
	return "arn:aws:ecs:::task-definition/" + family + ":1", nil
}

func (f *fakeAWSClient) EnsureService(_ context.Context, name string, _ *Descriptor) (string, error) {
	if err := f.record("EnsureService", name); err != nil {
		return "", err
	}
	return "arn:aws:ecs:::service/" + name, nil
}

// fakeObserver returns scripted snapshots, one per ObserveTasks call. The
// last snapshot repeats once the script is exhausted.
type fakeObserver struct {
	snapshots []*ClusterState
	err       error
	polls     int
}

func (f *fakeObserver) ObserveTasks(context.Context, *Descriptor) (*ClusterState, error) {
	f.polls++
	if f.err != nil {
		return nil, f.err
	}
	if len(f.snapshots) == 0 {
		return &ClusterState{ObservedAt: time.Now()}, nil
	}
	i := f.polls - 1
	if i >= len(f.snapshots) {
		i = len(f.snapshots) - 1
	}
	return f.snapshots[i], nil
}

// fakeDestroyer records deletions and can fail specific resource types.
type fakeDestroyer struct {
	deleted []string
	failOn  map[string]error
}

func newFakeDestroyer() *fakeDestroyer {
	return &fakeDestroyer{failOn: map[string]error{}}
}

func (f *fakeDestroyer) DeleteResource(_ context.Context, res ResourceState) error {
	f.deleted = append(f.deleted, res.Type+":"+res.Name)
	return f.failOn[res.Type]
}

// fakeChecker reports a fixed status per resource type.
type fakeChecker struct {
	statuses map[string]string
}

func (f *fakeChecker) CheckResource(_ context.Context, res ResourceState) (string, error) {
	if s, ok := f.statuses[res.Type]; ok {
		return s, nil
	}
	return StatusHealthy, nil
}

// fakeMetrics returns fixed utilization numbers.
type fakeMetrics struct {
	metrics *ServiceMetrics
	err     error
}

func (f *fakeMetrics) ServiceUtilization(context.Context, *Descriptor) (*ServiceMetrics, error) {
	return f.metrics, f.err
}

// runningSnapshot builds a snapshot with n running tasks carrying addresses.
func runningSnapshot(n int) *ClusterState {
	s := &ClusterState{ObservedAt: time.Now()}
	for i := 0; i < n; i++ {
		s.Tasks = append(s.Tasks, TaskState{
			ARN:        fmt.Sprintf("arn:aws:ecs:::task/%d", i),
			LastStatus: taskStatusRunning,
			PrivateIP:  fmt.Sprintf("10.0.0.%d", i+10),
			PublicIP:   fmt.Sprintf("54.0.0.%d", i+10),
		})
	}
	return s
}

// testDescriptor returns a minimal valid descriptor for tests.
func testDescriptor() *Descriptor {
	d := &Descriptor{
		App:              "chatbot",
		Region:           "us-east-1",
		Image:            "555555555555.dkr.ecr.us-east-1.amazonaws.com/chatbot:v1",
		ContainerPort:    8080,
		Subnets:          []string{"subnet-0a1b2c3d"},
		VPCID:            "vpc-0a1b2c3d",
		ExecutionRoleARN: "arn:aws:iam::555555555555:role/ecsTaskExecutionRole",
		AssignPublicIP:   true,
	}
	d.applyDefaults()
	return d
}

// testDeployer wires a Deployer to fakes and a temp-dir state store.
func testDeployer(statePath string, client *fakeAWSClient, observer *fakeObserver, destroyer *fakeDestroyer, checker *fakeChecker, metrics *fakeMetrics) *Deployer {
	return &Deployer{
		store: NewStateStore(statePath),
		newClient: func(context.Context, *Descriptor) (awsClient, error) {
			return client, nil
		},
		newObserver: func(context.Context, *Descriptor) (taskObserver, error) {
			return observer, nil
		},
		newDestroyer: func(context.Context, *Descriptor) (resourceDestroyer, error) {
			return destroyer, nil
		},
		newChecker: func(context.Context, *Descriptor) (resourceChecker, error) {
			return checker, nil
		},
		newMetrics: func(context.Context, *Descriptor) (metricsFetcher, error) {
			return metrics, nil
		},
	}
}
