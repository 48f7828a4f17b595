package fargate

import (
	"testing"
)

func TestPlanFreshDeployment(t *testing.T) {
	changes, summary, err := Plan(testDescriptor(), nil)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if len(changes) != 5 {
		t.Fatalf("expected 5 changes, got %d: %v", len(changes), changes)
	}
	for _, c := range changes {
		if c.Action != ActionCreate {
			t.Errorf("%s %s: action = %s, want CREATE", c.Type, c.Name, c.Action)
		}
	}
	if summary != "Plan: 5 to create, 0 to update, 0 to delete" {
		t.Errorf("summary = %q", summary)
	}
}

func TestPlanOrdering(t *testing.T) {
	changes, _, err := Plan(testDescriptor(), nil)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	want := []string{ResTypeLogGroup, ResTypeSecurityGroup, ResTypeCluster, ResTypeTaskDefinition, ResTypeService}
	for i, typ := range want {
		if changes[i].Type != typ {
			t.Errorf("change[%d].Type = %s, want %s", i, changes[i].Type, typ)
		}
	}
}

func TestPlanSkipsManagedSecurityGroup(t *testing.T) {
	d := testDescriptor()
	d.SecurityGroups = []string{"sg-0123456789abcdef0"}
	changes, _, err := Plan(d, nil)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	for _, c := range changes {
		if c.Type == ResTypeSecurityGroup {
			t.Error("plan includes a managed security group despite user-supplied groups")
		}
	}
}

func TestPlanAgainstPriorState(t *testing.T) {
	d := testDescriptor()
	prior := &DeploymentState{Resources: []ResourceState{
		{Type: ResTypeLogGroup, Name: logGroupName(d)},
		{Type: ResTypeSecurityGroup, Name: securityGroupName(d)},
		{Type: ResTypeCluster, Name: clusterName(d)},
		{Type: ResTypeTaskDefinition, Name: taskFamily(d)},
		{Type: ResTypeService, Name: serviceName(d)},
	}}

	changes, summary, err := Plan(d, prior)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	actions := map[string]Action{}
	for _, c := range changes {
		actions[c.Type] = c.Action
	}
	// Existing task definitions and services are updated; everything else is
	// adopted in place.
	if actions[ResTypeTaskDefinition] != ActionUpdate {
		t.Errorf("task definition action = %s, want UPDATE", actions[ResTypeTaskDefinition])
	}
	if actions[ResTypeService] != ActionUpdate {
		t.Errorf("service action = %s, want UPDATE", actions[ResTypeService])
	}
	if actions[ResTypeCluster] != ActionNoChange {
		t.Errorf("cluster action = %s, want NO_CHANGE", actions[ResTypeCluster])
	}
	if summary != "Plan: 0 to create, 2 to update, 0 to delete" {
		t.Errorf("summary = %q", summary)
	}
}

func TestPlanDeletesStaleResources(t *testing.T) {
	d := testDescriptor()
	d.SecurityGroups = []string{"sg-0123456789abcdef0"}
	prior := &DeploymentState{Resources: []ResourceState{
		{Type: ResTypeSecurityGroup, Name: securityGroupName(d)},
	}}

	changes, _, err := Plan(d, prior)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	var deleted []ResourceChange
	for _, c := range changes {
		if c.Action == ActionDelete {
			deleted = append(deleted, c)
		}
	}
	if len(deleted) != 1 || deleted[0].Type != ResTypeSecurityGroup {
		t.Fatalf("expected the stale security group to be deleted, got %v", deleted)
	}
}

func TestPlanRejectsInvalidDescriptor(t *testing.T) {
	d := testDescriptor()
	d.Image = ""
	_, _, err := Plan(d, nil)
	de := IsDeployError(err)
	if de == nil || de.Category != ErrCategoryValidation {
		t.Fatalf("expected validation DeployError, got %v", err)
	}
}
