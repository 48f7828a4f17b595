package fargate

import (
	"strings"
	"testing"
	"time"
)

const validYAML = `
app: chatbot
region: us-east-1
image: 123456789012.dkr.ecr.us-east-1.amazonaws.com/chatbot:v1
container_port: 8080
subnets:
  - subnet-0a1b2c3d
vpc_id: vpc-0a1b2c3d
execution_role_arn: arn:aws:iam::123456789012:role/ecsTaskExecutionRole
assign_public_ip: true
`

func TestParseDescriptorDefaults(t *testing.T) {
	d, err := ParseDescriptor([]byte(validYAML))
	if err != nil {
		t.Fatalf("ParseDescriptor: %v", err)
	}
	if d.CPU != defaultCPU {
		t.Errorf("CPU = %d, want %d", d.CPU, defaultCPU)
	}
	if d.Memory != defaultMemory {
		t.Errorf("Memory = %d, want %d", d.Memory, defaultMemory)
	}
	if d.DesiredCount != defaultDesiredCount {
		t.Errorf("DesiredCount = %d, want %d", d.DesiredCount, defaultDesiredCount)
	}
	if d.LogRetentionDays != defaultLogRetention {
		t.Errorf("LogRetentionDays = %d, want %d", d.LogRetentionDays, defaultLogRetention)
	}
	if got := d.WaitTimeout(); got != defaultWaitTimeout {
		t.Errorf("WaitTimeout = %s, want %s", got, defaultWaitTimeout)
	}
}

func TestParseDescriptorRejectsUnknownFields(t *testing.T) {
	_, err := ParseDescriptor([]byte(validYAML + "unknown_field: oops\n"))
	if err == nil {
		t.Fatal("expected error for unknown field")
	}
}

func TestParseDescriptorRejectsMalformedYAML(t *testing.T) {
	_, err := ParseDescriptor([]byte("app: [unclosed"))
	if err == nil {
		t.Fatal("expected error for malformed YAML")
	}
}

func TestWaitTimeoutOverride(t *testing.T) {
	d := testDescriptor()
	d.WaitTimeoutSecs = 90
	if got := d.WaitTimeout(); got != 90*time.Second {
		t.Errorf("WaitTimeout = %s, want 90s", got)
	}
}

func TestValidateAcceptsValidDescriptor(t *testing.T) {
	if errs := testDescriptor().Validate(); len(errs) != 0 {
		t.Fatalf("unexpected validation errors: %v", errs)
	}
}

func TestValidateReportsAllErrors(t *testing.T) {
	d := &Descriptor{}
	d.applyDefaults()
	errs := d.Validate()
	// Missing app, region, image, port, subnets, vpc, and role must all be
	// reported in a single pass.
	if len(errs) < 6 {
		t.Fatalf("expected at least 6 errors, got %d: %v", len(errs), errs)
	}
}

func TestValidateFieldErrors(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Descriptor)
		want   string
	}{
		{"bad region", func(d *Descriptor) { d.Region = "mars-1" }, "region"},
		{"multi image", func(d *Descriptor) { d.Image = "a:v1, b:v2" }, "exactly one container image"},
		{"port too low", func(d *Descriptor) { d.ContainerPort = 0 }, "container_port"},
		{"port too high", func(d *Descriptor) { d.ContainerPort = 70000 }, "container_port"},
		{"bad fargate size", func(d *Descriptor) { d.CPU = 256; d.Memory = 8192 }, "Fargate combination"},
		{"unknown cpu", func(d *Descriptor) { d.CPU = 300 }, "Fargate combination"},
		{"negative count", func(d *Descriptor) { d.DesiredCount = -1 }, "desired_count"},
		{"bad subnet", func(d *Descriptor) { d.Subnets = []string{"net-1"} }, "subnet"},
		{"bad sg", func(d *Descriptor) { d.SecurityGroups = []string{"group-1"} }, "security group"},
		{"no vpc without sg", func(d *Descriptor) { d.VPCID = "" }, "vpc_id is required"},
		{"bad vpc", func(d *Descriptor) { d.VPCID = "vpc_abc" }, "VPC ID"},
		{"bad exec role", func(d *Descriptor) { d.ExecutionRoleARN = "not-an-arn" }, "execution_role_arn"},
		{"bad task role", func(d *Descriptor) { d.TaskRoleARN = "not-an-arn" }, "task_role_arn"},
		{"bad ingress port", func(d *Descriptor) {
			d.Ingress = []IngressRule{{Port: 0, CIDR: "0.0.0.0/0"}}
		}, "ingress[0]"},
		{"bad ingress protocol", func(d *Descriptor) {
			d.Ingress = []IngressRule{{Port: 80, Protocol: "icmp", CIDR: "0.0.0.0/0"}}
		}, "protocol"},
		{"bad ingress cidr", func(d *Descriptor) {
			d.Ingress = []IngressRule{{Port: 80, CIDR: "not-a-cidr"}}
		}, "cidr"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := testDescriptor()
			tc.mutate(d)
			errs := d.Validate()
			if len(errs) == 0 {
				t.Fatal("expected validation errors, got none")
			}
			if !anyContains(errs, tc.want) {
				t.Errorf("errors %v do not mention %q", errs, tc.want)
			}
		})
	}
}

func TestValidateSecurityGroupsSkipVPCRequirement(t *testing.T) {
	d := testDescriptor()
	d.VPCID = ""
	d.SecurityGroups = []string{"sg-0123456789abcdef0"}
	if errs := d.Validate(); len(errs) != 0 {
		t.Fatalf("unexpected validation errors: %v", errs)
	}
}

func TestValidateTagLimits(t *testing.T) {
	d := testDescriptor()
	d.Tags = map[string]string{strings.Repeat("k", maxTagKeyLen+1): "v"}
	if errs := d.Validate(); !anyContains(errs, "exceeds max length") {
		t.Errorf("long tag key not rejected: %v", errs)
	}

	d = testDescriptor()
	d.Tags = map[string]string{"k": strings.Repeat("v", maxTagValueLen+1)}
	if errs := d.Validate(); !anyContains(errs, "exceeds max length") {
		t.Errorf("long tag value not rejected: %v", errs)
	}

	d = testDescriptor()
	d.Tags = map[string]string{}
	for i := 0; i < maxTagCount+1; i++ {
		d.Tags[strings.Repeat("x", i+1)] = "v"
	}
	if errs := d.Validate(); !anyContains(errs, "at most") {
		t.Errorf("too many tags not rejected: %v", errs)
	}
}

func TestValidFargateSize(t *testing.T) {
	cases := []struct {
		cpu, memory int32
		want        bool
	}{
		{256, 512, true},
		{256, 1024, true},
		{256, 2048, true},
		{256, 4096, false},
		{512, 1024, true},
		{512, 1536, false},
		{1024, 2048, true},
		{4096, 30720, true},
		{4096, 30721, false},
		{128, 512, false},
	}
	for _, tc := range cases {
		if got := validFargateSize(tc.cpu, tc.memory); got != tc.want {
			t.Errorf("validFargateSize(%d, %d) = %v, want %v", tc.cpu, tc.memory, got, tc.want)
		}
	}
}

func TestExtractAccountFromARN(t *testing.T) {
	if got := extractAccountFromARN("arn:aws:iam::123456789012:role/foo"); got != "123456789012" {
		t.Errorf("got %q", got)
	}
	if got := extractAccountFromARN("garbage"); got != "" {
		t.Errorf("expected empty for malformed ARN, got %q", got)
	}
}

func anyContains(errs []string, want string) bool {
	for _, e := range errs {
		if strings.Contains(e, want) {
			return true
		}
	}
	return false
}
