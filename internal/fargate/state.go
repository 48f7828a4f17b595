package fargate

import "time"

// Resource type constants used across plan, apply, destroy, and status.
const (
	ResTypeLogGroup       = "log_group"
	ResTypeSecurityGroup  = "security_group"
	ResTypeCluster        = "cluster"
	ResTypeTaskDefinition = "task_definition"
	ResTypeService        = "service"
)

// Health status constants returned by resource checks.
const (
	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"
	StatusMissing   = "missing"
)

// DeploymentState records resources from previous applies. It is persisted
// as JSON by the state store and consumed by plan, destroy, and status.
type DeploymentState struct {
	Resources  []ResourceState `json:"resources"`
	App        string          `json:"app,omitempty"`
	Region     string          `json:"region,omitempty"`
	ApplyID    string          `json:"apply_id,omitempty"`
	DeployedAt string          `json:"deployed_at,omitempty"`
}

// ResourceState describes a single deployed resource.
type ResourceState struct {
	Type     string            `json:"type"`
	Name     string            `json:"name"`
	ARN      string            `json:"arn,omitempty"`
	Status   string            `json:"status,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// TaskState is the observed state of a single running (or stopped) task.
type TaskState struct {
	ARN           string
	LastStatus    string
	Health        string
	PrivateIP     string
	PublicIP      string
	StoppedReason string
}

// ClusterState is a read-only snapshot of the service's tasks, refreshed on
// each poll. It has no identity beyond the poll that produced it.
type ClusterState struct {
	Tasks      []TaskState
	ObservedAt time.Time
}

// RunningCount returns the number of tasks in RUNNING state.
func (s *ClusterState) RunningCount() int {
	n := 0
	for _, t := range s.Tasks {
		if t.LastStatus == taskStatusRunning {
			n++
		}
	}
	return n
}

// Task last-status values reported by ECS.
const (
	taskStatusRunning = "RUNNING"
	taskStatusStopped = "STOPPED"
)
