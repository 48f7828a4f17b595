package fargate

import (
	"fmt"
	"regexp"
	"sort"
)

// ecsNamePattern is the regex pattern for valid ECS cluster and service
// names. Names must start with a letter and contain only letters, digits,
// hyphens, and underscores, up to 255 characters.
const ecsNamePattern = `^[a-zA-Z][a-zA-Z0-9_-]{0,254}$`

// ecsNameRe is the compiled regex for validating resource names.
var ecsNameRe = regexp.MustCompile(ecsNamePattern)

// appNameMaxLen bounds the app name so that derived names (suffixes below)
// stay within AWS limits.
const appNameMaxLen = 200

// Suffixes appended to the app name when deriving per-resource names. Plan
// and apply must derive identical names, so they share these constants.
const (
	clusterSuffix = "-cluster"
	serviceSuffix = "-svc"
	sgSuffix      = "-sg"
	taskSuffix    = "-task"
)

// logGroupPrefix is the CloudWatch log group namespace for deployed apps.
const logGroupPrefix = "/ecs/"

// validateResourceName checks whether name is a valid ECS resource name and
// returns an error describing the problem if not.
func validateResourceName(name, resourceType string) error {
	if !ecsNameRe.MatchString(name) {
		return fmt.Errorf(
			"resource name %q (%s) is invalid: must match %s",
			name, resourceType, ecsNamePattern,
		)
	}
	if len(name) > appNameMaxLen {
		return fmt.Errorf(
			"resource name %q (%s) exceeds max length %d",
			name, resourceType, appNameMaxLen,
		)
	}
	return nil
}

// Derived resource names for a descriptor. Every convergence step and every
// plan entry uses these, never ad-hoc string concatenation.

func clusterName(d *Descriptor) string { return d.App + clusterSuffix }

func serviceName(d *Descriptor) string { return d.App + serviceSuffix }

func securityGroupName(d *Descriptor) string { return d.App + sgSuffix }

func taskFamily(d *Descriptor) string { return d.App + taskSuffix }

func logGroupName(d *Descriptor) string { return logGroupPrefix + d.App }

// collectDerivedNames builds a map of all derived resource names to their
// resource types, mirroring the naming used by generateDesiredResources and
// the apply steps.
func collectDerivedNames(d *Descriptor) map[string]string {
	names := map[string]string{
		logGroupName(d): ResTypeLogGroup,
		clusterName(d):  ResTypeCluster,
		taskFamily(d):   ResTypeTaskDefinition,
		serviceName(d):  ResTypeService,
	}
	if len(d.SecurityGroups) == 0 {
		names[securityGroupName(d)] = ResTypeSecurityGroup
	}
	return names
}

// validateDerivedNames validates every derived resource name against the ECS
// naming pattern. The log group is exempt because log group names allow "/".
func validateDerivedNames(d *Descriptor) []string {
	derived := collectDerivedNames(d)

	keys := make([]string, 0, len(derived))
	for k := range derived {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var errs []string
	for _, name := range keys {
		if derived[name] == ResTypeLogGroup {
			continue
		}
		if err := validateResourceName(name, derived[name]); err != nil {
			errs = append(errs, err.Error())
		}
	}
	return errs
}
