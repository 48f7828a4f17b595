package fargate

import (
	"fmt"
	"regexp"
	"strings"
)

// DiagnosticWarning represents a non-fatal issue detected during pre-deploy
// diagnostics.
type DiagnosticWarning struct {
	Category string
	Message  string
	Hint     string
}

// String formats the warning for display.
func (w DiagnosticWarning) String() string {
	if w.Hint != "" {
		return fmt.Sprintf("[%s] %s (hint: %s)", w.Category, w.Message, w.Hint)
	}
	return fmt.Sprintf("[%s] %s", w.Category, w.Message)
}

// placeholderAccountID is the account ID used in AWS documentation examples.
const placeholderAccountID = "123456789012"

// ecrImageRE loosely matches an ECR repository URI.
var ecrImageRE = regexp.MustCompile(`^\d{12}\.dkr\.ecr\.[a-z0-9-]+\.amazonaws\.com/`)

// openCIDR is the anywhere CIDR block.
const openCIDR = "0.0.0.0/0"

// Ports where world-open ingress is expected for a public web endpoint.
var publicWebPorts = map[int32]bool{80: true, 443: true, 8080: true}

// DiagnoseDescriptor checks the descriptor for common misconfigurations and
// returns warnings. Unlike Validate, these are non-fatal: they highlight
// settings that are likely to cause deploy failures or surprises.
func DiagnoseDescriptor(d *Descriptor) []DiagnosticWarning {
	var warnings []DiagnosticWarning
	warnings = append(warnings, diagnoseRoles(d)...)
	warnings = append(warnings, diagnoseNetworking(d)...)
	warnings = append(warnings, diagnoseIngress(d)...)
	warnings = append(warnings, diagnoseImage(d)...)
	return warnings
}

// diagnoseRoles checks for common IAM role ARN mistakes.
func diagnoseRoles(d *Descriptor) []DiagnosticWarning {
	if d.ExecutionRoleARN == "" {
		return nil // Validate will catch this
	}
	var warnings []DiagnosticWarning
	if extractAccountFromARN(d.ExecutionRoleARN) == placeholderAccountID {
		warnings = append(warnings, DiagnosticWarning{
			Category: ErrCategoryConfiguration,
			Message:  "execution_role_arn uses the placeholder account ID " + placeholderAccountID,
			Hint:     "replace with your real AWS account ID",
		})
	}
	if strings.Contains(d.ExecutionRoleARN, ":user/") {
		warnings = append(warnings, DiagnosticWarning{
			Category: ErrCategoryPermission,
			Message:  "execution_role_arn appears to be an IAM user, not a role",
			Hint:     "use an IAM role ARN (arn:aws:iam::<account>:role/<name>)",
		})
	}
	return warnings
}

// diagnoseNetworking flags placements that make the endpoint unreachable.
func diagnoseNetworking(d *Descriptor) []DiagnosticWarning {
	if d.AssignPublicIP {
		return nil
	}
	return []DiagnosticWarning{{
		Category: ErrCategoryNetwork,
		Message:  "assign_public_ip is disabled; the task endpoint will only be reachable from inside the VPC",
		Hint:     "enable assign_public_ip, or ensure the subnets route through a NAT gateway for image pulls",
	}}
}

// diagnoseIngress flags world-open rules on ports that are not typical
// public web ports.
func diagnoseIngress(d *Descriptor) []DiagnosticWarning {
	var warnings []DiagnosticWarning
	for _, r := range d.Ingress {
		if r.CIDR == openCIDR && !publicWebPorts[r.Port] && r.Port != d.ContainerPort {
			warnings = append(warnings, DiagnosticWarning{
				Category: ErrCategoryNetwork,
				Message:  fmt.Sprintf("ingress opens port %d to the world", r.Port),
				Hint:     "restrict the CIDR if this port is not meant to be public",
			})
		}
	}
	return warnings
}

// diagnoseImage flags image references that look like ECR URIs with the
// placeholder account, or non-ECR images that will be pulled over the
// public internet.
func diagnoseImage(d *Descriptor) []DiagnosticWarning {
	if d.Image == "" {
		return nil // Validate will catch this
	}
	if ecrImageRE.MatchString(d.Image) && strings.HasPrefix(d.Image, placeholderAccountID+".") {
		return []DiagnosticWarning{{
			Category: ErrCategoryConfiguration,
			Message:  "image references an ECR repository in the placeholder account " + placeholderAccountID,
			Hint:     "push the image to your own registry and update the descriptor",
		}}
	}
	return nil
}

// FormatWarnings returns a multi-line string from a list of warnings,
// suitable for display to the operator.
func FormatWarnings(warnings []DiagnosticWarning) string {
	if len(warnings) == 0 {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d diagnostic warning(s):\n", len(warnings))
	for i, w := range warnings {
		fmt.Fprintf(&b, "  %d. %s\n", i+1, w.String())
	}
	return b.String()
}
