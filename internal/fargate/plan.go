package fargate

import (
	"fmt"
	"sort"
)

// Action describes what an apply would do to a resource.
type Action string

// Plan actions.
const (
	ActionCreate   Action = "CREATE"
	ActionUpdate   Action = "UPDATE"
	ActionDelete   Action = "DELETE"
	ActionNoChange Action = "NO_CHANGE"
)

// ResourceChange is a single entry in a deployment plan.
type ResourceChange struct {
	Type   string
	Name   string
	Action Action
	Detail string
}

// Plan diffs the desired resources derived from the descriptor against the
// prior deployment state and returns the ordered change list with a summary.
func Plan(d *Descriptor, prior *DeploymentState) ([]ResourceChange, string, error) {
	if errs := d.Validate(); len(errs) > 0 {
		return nil, "", newValidationError(d.App, errs)
	}
	if errs := validateDerivedNames(d); len(errs) > 0 {
		return nil, "", newValidationError(d.App, errs)
	}

	desired := generateDesiredResources(d)
	changes := diffResources(desired, prior)
	return changes, buildSummary(changes), nil
}

// resourceKey returns a unique key for a resource type+name pair.
func resourceKey(typ, name string) string {
	return typ + "/" + name
}

// generateDesiredResources builds the dependency-ordered list of resources
// the descriptor requires. The order matches the convergence steps in Apply.
func generateDesiredResources(d *Descriptor) []ResourceChange {
	var desired []ResourceChange

	desired = append(desired, ResourceChange{
		Type:   ResTypeLogGroup,
		Name:   logGroupName(d),
		Action: ActionCreate,
		Detail: fmt.Sprintf("Create log group with %d day retention", d.LogRetentionDays),
	})

	// A managed security group is only needed when the descriptor does not
	// bring its own.
	if len(d.SecurityGroups) == 0 {
		desired = append(desired, ResourceChange{
			Type:   ResTypeSecurityGroup,
			Name:   securityGroupName(d),
			Action: ActionCreate,
			Detail: fmt.Sprintf("Create security group in %s allowing port %d", d.VPCID, d.ContainerPort),
		})
	}

	desired = append(desired,
		ResourceChange{
			Type:   ResTypeCluster,
			Name:   clusterName(d),
			Action: ActionCreate,
			Detail: "Create Fargate cluster",
		},
		ResourceChange{
			Type:   ResTypeTaskDefinition,
			Name:   taskFamily(d),
			Action: ActionCreate,
			Detail: fmt.Sprintf("Register task definition for %s (cpu %d, memory %d)", d.Image, d.CPU, d.Memory),
		},
		ResourceChange{
			Type:   ResTypeService,
			Name:   serviceName(d),
			Action: ActionCreate,
			Detail: fmt.Sprintf("Create service with desired count %d", d.DesiredCount),
		},
	)

	return desired
}

// diffResources compares desired resources against prior state and assigns
// the correct action to each change. Prior resources no longer desired are
// appended as deletes.
func diffResources(desired []ResourceChange, prior *DeploymentState) []ResourceChange {
	if prior == nil || len(prior.Resources) == 0 {
		return desired
	}

	priorMap := make(map[string]ResourceState, len(prior.Resources))
	for _, r := range prior.Resources {
		priorMap[resourceKey(r.Type, r.Name)] = r
	}

	seen := make(map[string]bool, len(desired))

	changes := make([]ResourceChange, 0, len(desired)+len(prior.Resources))
	for _, c := range desired {
		key := resourceKey(c.Type, c.Name)
		seen[key] = true

		if _, exists := priorMap[key]; !exists {
			changes = append(changes, c)
			continue
		}
		// Resource existed before. Task definitions always get a fresh
		// revision; the service is updated in place; everything else is
		// adopted unchanged.
		switch c.Type {
		case ResTypeTaskDefinition, ResTypeService:
			changes = append(changes, ResourceChange{
				Type:   c.Type,
				Name:   c.Name,
				Action: ActionUpdate,
				Detail: fmt.Sprintf("Update %s %s", c.Type, c.Name),
			})
		default:
			changes = append(changes, ResourceChange{
				Type:   c.Type,
				Name:   c.Name,
				Action: ActionNoChange,
				Detail: fmt.Sprintf("Keep %s %s", c.Type, c.Name),
			})
		}
	}

	// Any prior resource not in the desired set should be deleted.
	// Collect and sort for deterministic output.
	var toDelete []ResourceState
	for _, r := range prior.Resources {
		if !seen[resourceKey(r.Type, r.Name)] {
			toDelete = append(toDelete, r)
		}
	}
	sort.Slice(toDelete, func(i, j int) bool {
		return resourceKey(toDelete[i].Type, toDelete[i].Name) <
			resourceKey(toDelete[j].Type, toDelete[j].Name)
	})
	for _, r := range toDelete {
		changes = append(changes, ResourceChange{
			Type:   r.Type,
			Name:   r.Name,
			Action: ActionDelete,
			Detail: fmt.Sprintf("Delete %s %s", r.Type, r.Name),
		})
	}

	return changes
}

// buildSummary produces a human-readable summary line such as
// "Plan: 3 to create, 1 to update, 0 to delete".
func buildSummary(changes []ResourceChange) string {
	var create, update, del int
	for _, c := range changes {
		switch c.Action {
		case ActionCreate:
			create++
		case ActionUpdate:
			update++
		case ActionDelete:
			del++
		case ActionNoChange:
			// counted but not shown
		}
	}
	return fmt.Sprintf("Plan: %d to create, %d to update, %d to delete", create, update, del)
}

// sortedKeys returns the keys of a map in sorted order.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
