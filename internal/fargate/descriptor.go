// Package fargate implements the caravel deployment applier for AWS ECS
// Fargate: descriptor validation, resource convergence, and task polling.
package fargate

import (
	"fmt"
	"net"
	"regexp"
	"strings"
	"time"

	"github.com/ghodss/yaml"
)

// Default resource sizing applied when the descriptor leaves fields unset.
const (
	defaultCPU          = 256
	defaultMemory       = 512
	defaultDesiredCount = 1
	defaultLogRetention = 7
)

// Default polling behavior for the status reporter.
const (
	defaultWaitTimeout  = 5 * time.Minute
	defaultPollInterval = 5 * time.Second
)

// Port bounds for the exposed container port.
const (
	minPort = 1
	maxPort = 65535
)

// IngressRule describes a single security group ingress rule.
type IngressRule struct {
	Port     int32  `json:"port"`
	Protocol string `json:"protocol,omitempty"` // defaults to tcp
	CIDR     string `json:"cidr"`
}

// Descriptor is the declarative specification of a single Fargate deployment:
// one container image, one exposed port, and the surrounding network and
// compute placement. It is immutable once submitted for an apply cycle.
type Descriptor struct {
	App              string            `json:"app"`
	Region           string            `json:"region"`
	Image            string            `json:"image"`
	ContainerPort    int32             `json:"container_port"`
	CPU              int32             `json:"cpu,omitempty"`
	Memory           int32             `json:"memory,omitempty"`
	DesiredCount     int32             `json:"desired_count,omitempty"`
	Subnets          []string          `json:"subnets"`
	SecurityGroups   []string          `json:"security_groups,omitempty"`
	VPCID            string            `json:"vpc_id,omitempty"`
	Ingress          []IngressRule     `json:"ingress,omitempty"`
	ExecutionRoleARN string            `json:"execution_role_arn"`
	TaskRoleARN      string            `json:"task_role_arn,omitempty"`
	AssignPublicIP   bool              `json:"assign_public_ip,omitempty"`
	LogRetentionDays int32             `json:"log_retention_days,omitempty"`
	Env              map[string]string `json:"env,omitempty"`
	Tags             map[string]string `json:"tags,omitempty"`
	WaitTimeoutSecs  int32             `json:"wait_timeout_seconds,omitempty"`

	// ResourceTags is populated at apply-time by merging default app
	// metadata tags with user-defined tags. It is NOT serialized.
	ResourceTags map[string]string `json:"-"`

	// ApplyID identifies a single apply invocation. Populated at apply-time.
	// NOT serialized.
	ApplyID string `json:"-"`

	// ClusterARN, TaskDefinitionARN, and SecurityGroupID are populated by
	// earlier convergence steps so later steps can reference them. They are
	// transient, computed fields and NOT serialized.
	ClusterARN        string `json:"-"`
	TaskDefinitionARN string `json:"-"`
	SecurityGroupID   string `json:"-"`
}

var (
	regionRE  = regexp.MustCompile(`^[a-z]{2}(-[a-z]+)+-\d+$`)
	roleARNRE = regexp.MustCompile(`^arn:aws:iam::\d{12}:role/.+$`)
	subnetRE  = regexp.MustCompile(`^subnet-[0-9a-f]+$`)
	sgIDRE    = regexp.MustCompile(`^sg-[0-9a-f]+$`)
	vpcIDRE   = regexp.MustCompile(`^vpc-[0-9a-f]+$`)
)

// ParseDescriptor unmarshals a YAML or JSON descriptor. Unknown fields are
// rejected so typos surface as errors instead of silently ignored settings.
func ParseDescriptor(raw []byte) (*Descriptor, error) {
	var d Descriptor
	if err := yaml.Unmarshal(raw, &d, yaml.DisallowUnknownFields); err != nil {
		return nil, fmt.Errorf("invalid descriptor: %w", err)
	}
	d.applyDefaults()
	return &d, nil
}

// applyDefaults fills unset sizing and polling fields.
func (d *Descriptor) applyDefaults() {
	if d.CPU == 0 {
		d.CPU = defaultCPU
	}
	if d.Memory == 0 {
		d.Memory = defaultMemory
	}
	if d.DesiredCount == 0 {
		d.DesiredCount = defaultDesiredCount
	}
	if d.LogRetentionDays == 0 {
		d.LogRetentionDays = defaultLogRetention
	}
}

// WaitTimeout returns the configured reporter timeout or the default.
func (d *Descriptor) WaitTimeout() time.Duration {
	if d.WaitTimeoutSecs > 0 {
		return time.Duration(d.WaitTimeoutSecs) * time.Second
	}
	return defaultWaitTimeout
}

// Validate checks the descriptor and returns all validation errors at once.
// A descriptor that fails validation must never reach the AWS API.
func (d *Descriptor) Validate() []string {
	var errs []string

	errs = append(errs, d.validateIdentity()...)
	errs = append(errs, d.validateImageAndPort()...)
	errs = append(errs, d.validateSizing()...)
	errs = append(errs, d.validateNetwork()...)
	errs = append(errs, d.validateRoles()...)
	errs = append(errs, validateTags(d.Tags)...)

	return errs
}

// validateIdentity checks the app name and region.
func (d *Descriptor) validateIdentity() []string {
	var errs []string
	if d.App == "" {
		errs = append(errs, "app is required")
	} else if err := validateResourceName(d.App, "app"); err != nil {
		errs = append(errs, err.Error())
	}
	if d.Region == "" {
		errs = append(errs, "region is required")
	} else if !regionRE.MatchString(d.Region) {
		errs = append(errs, fmt.Sprintf("region %q does not match expected format (e.g. us-east-1)", d.Region))
	}
	return errs
}

// validateImageAndPort enforces the exactly-one-image, exactly-one-port
// contract.
func (d *Descriptor) validateImageAndPort() []string {
	var errs []string
	switch {
	case d.Image == "":
		errs = append(errs, "image is required")
	case strings.ContainsAny(d.Image, ", \t"):
		errs = append(errs, fmt.Sprintf("image %q must reference exactly one container image", d.Image))
	}
	if d.ContainerPort < minPort || d.ContainerPort > maxPort {
		errs = append(errs, fmt.Sprintf("container_port %d must be between %d and %d", d.ContainerPort, minPort, maxPort))
	}
	return errs
}

// validateSizing checks CPU/memory against supported Fargate combinations
// and the desired task count.
func (d *Descriptor) validateSizing() []string {
	var errs []string
	if !validFargateSize(d.CPU, d.Memory) {
		errs = append(errs, fmt.Sprintf(
			"cpu %d / memory %d is not a supported Fargate combination", d.CPU, d.Memory))
	}
	if d.DesiredCount < 0 {
		errs = append(errs, fmt.Sprintf("desired_count %d must not be negative", d.DesiredCount))
	}
	return errs
}

// validateNetwork checks subnets, security group placement, and ingress rules.
func (d *Descriptor) validateNetwork() []string {
	var errs []string
	if len(d.Subnets) == 0 {
		errs = append(errs, "at least one subnet is required")
	}
	for _, s := range d.Subnets {
		if !subnetRE.MatchString(s) {
			errs = append(errs, fmt.Sprintf("subnet %q is not a valid subnet ID", s))
		}
	}
	for _, sg := range d.SecurityGroups {
		if !sgIDRE.MatchString(sg) {
			errs = append(errs, fmt.Sprintf("security group %q is not a valid group ID", sg))
		}
	}
	// A managed security group is created when none are supplied, which
	// requires knowing the VPC.
	if len(d.SecurityGroups) == 0 && d.VPCID == "" {
		errs = append(errs, "vpc_id is required when no security_groups are supplied")
	}
	if d.VPCID != "" && !vpcIDRE.MatchString(d.VPCID) {
		errs = append(errs, fmt.Sprintf("vpc_id %q is not a valid VPC ID", d.VPCID))
	}
	errs = append(errs, validateIngress(d.Ingress)...)
	return errs
}

// validateRoles checks the IAM role ARNs.
func (d *Descriptor) validateRoles() []string {
	var errs []string
	if d.ExecutionRoleARN == "" {
		errs = append(errs, "execution_role_arn is required")
	} else if !roleARNRE.MatchString(d.ExecutionRoleARN) {
		errs = append(errs, fmt.Sprintf("execution_role_arn %q is not a valid IAM role ARN", d.ExecutionRoleARN))
	}
	if d.TaskRoleARN != "" && !roleARNRE.MatchString(d.TaskRoleARN) {
		errs = append(errs, fmt.Sprintf("task_role_arn %q is not a valid IAM role ARN", d.TaskRoleARN))
	}
	return errs
}

// validateIngress checks each ingress rule's port, protocol, and CIDR.
func validateIngress(rules []IngressRule) []string {
	var errs []string
	for i, r := range rules {
		if r.Port < minPort || r.Port > maxPort {
			errs = append(errs, fmt.Sprintf("ingress[%d]: port %d must be between %d and %d", i, r.Port, minPort, maxPort))
		}
		switch r.Protocol {
		case "", "tcp", "udp":
		default:
			errs = append(errs, fmt.Sprintf("ingress[%d]: protocol %q must be tcp or udp", i, r.Protocol))
		}
		if _, _, err := net.ParseCIDR(r.CIDR); err != nil {
			errs = append(errs, fmt.Sprintf("ingress[%d]: cidr %q is not a valid CIDR block", i, r.CIDR))
		}
	}
	return errs
}

// maxTagKeyLen is the maximum allowed length for a tag key.
const maxTagKeyLen = 128

// maxTagValueLen is the maximum allowed length for a tag value.
const maxTagValueLen = 256

// maxTagCount is the maximum number of user-defined tags.
const maxTagCount = 50

// validateTags checks user-defined tags for valid keys and values.
func validateTags(tags map[string]string) []string {
	if len(tags) == 0 {
		return nil
	}
	var errs []string
	if len(tags) > maxTagCount {
		errs = append(errs, fmt.Sprintf("tags: at most %d tags allowed, got %d", maxTagCount, len(tags)))
	}
	for k, v := range tags {
		if k == "" {
			errs = append(errs, "tags: key must not be empty")
		}
		if len(k) > maxTagKeyLen {
			errs = append(errs, fmt.Sprintf("tags: key %q exceeds max length %d", k, maxTagKeyLen))
		}
		if len(v) > maxTagValueLen {
			errs = append(errs, fmt.Sprintf("tags: value for key %q exceeds max length %d", k, maxTagValueLen))
		}
	}
	return errs
}

// fargateSizes maps Fargate CPU units to the supported memory range in MiB.
// Memory must fall within the range and be a multiple of the step.
var fargateSizes = map[int32]struct{ min, max, step int32 }{
	256:  {512, 2048, 512},
	512:  {1024, 4096, 1024},
	1024: {2048, 8192, 1024},
	2048: {4096, 16384, 1024},
	4096: {8192, 30720, 1024},
}

// validFargateSize reports whether the CPU/memory pair is a combination
// Fargate accepts.
func validFargateSize(cpu, memory int32) bool {
	r, ok := fargateSizes[cpu]
	if !ok {
		return false
	}
	return memory >= r.min && memory <= r.max && memory%r.step == 0
}

// minARNParts is the minimum number of colon-separated segments in a valid
// ARN (arn:partition:service:region:account-id:resource).
const minARNParts = 5

// arnAccountIndex is the zero-based index of the account-id segment in an ARN.
const arnAccountIndex = 4

// extractAccountFromARN extracts the AWS account ID from an ARN string.
// Returns an empty string if the ARN is malformed.
func extractAccountFromARN(arn string) string {
	parts := strings.Split(arn, ":")
	if len(parts) < minARNParts {
		return ""
	}
	return parts[arnAccountIndex]
}
