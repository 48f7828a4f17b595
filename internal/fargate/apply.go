package fargate

import (
	"context"
	"time"

	"github.com/google/uuid"
	multierror "github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// ApplyResult summarizes a completed apply: what was converged and where
// the deployed chatbot is reachable.
type ApplyResult struct {
	App          string
	ApplyID      string
	Endpoint     string
	RunningCount int
	DesiredCount int32
	TimedOut     bool
	Resources    []ResourceState
}

// imageVerifier is implemented by clients that can check the container image
// repository exists before converging anything.
type imageVerifier interface {
	VerifyImageRepository(ctx context.Context, d *Descriptor) error
}

// Apply converges AWS to the descriptor: log group, security group, cluster,
// task definition, then service, in dependency order. Each step is recorded
// in the state store as soon as it succeeds, so a failure partway leaves an
// accurate record of what exists.
//
// Validation failures abort before any AWS client is constructed.
func (p *Deployer) Apply(ctx context.Context, d *Descriptor) (*ApplyResult, error) {
	if errs := d.Validate(); len(errs) > 0 {
		return nil, newValidationError(d.App, errs)
	}
	if errs := validateDerivedNames(d); len(errs) > 0 {
		return nil, newValidationError(d.App, errs)
	}

	d.ApplyID = uuid.NewString()
	d.ResourceTags = buildResourceTags(d.App, d.ApplyID, d.Tags)

	logger := log.WithFields(log.Fields{"app": d.App, "apply_id": d.ApplyID})
	logger.Info("starting apply")

	client, err := p.newClient(ctx, d)
	if err != nil {
		return nil, newDeployError("initialize", "client", d.App, err)
	}

	if v, ok := client.(imageVerifier); ok {
		if err := v.VerifyImageRepository(ctx, d); err != nil {
			return nil, newDeployError("verify", "image", d.Image, err)
		}
	}

	prior, err := p.store.Load()
	if err != nil {
		return nil, err
	}

	// Seed the new state with the prior apply's records. Steps replace their
	// own entry as they succeed, so a failure partway never forgets resources
	// that a previous apply created and that still exist.
	state := &DeploymentState{
		App:        d.App,
		Region:     d.Region,
		ApplyID:    d.ApplyID,
		DeployedAt: time.Now().UTC().Format(time.RFC3339),
	}
	if prior != nil {
		state.Resources = append([]ResourceState(nil), prior.Resources...)
	}

	if err := p.runSteps(ctx, client, d, state, logger); err != nil {
		return nil, err
	}

	// Recorded resources that the new descriptor no longer needs (for example
	// a managed security group replaced by user-supplied groups) are removed
	// best-effort. Failures are reported but do not fail the apply.
	if err := p.removeStale(ctx, d, state); err != nil {
		logger.WithError(err).Warn("could not remove stale resources")
	}

	observer, err := p.newObserver(ctx, d)
	if err != nil {
		return nil, newDeployError("initialize", "observer", d.App, err)
	}
	snapshot, waitErr := NewReporter(observer).WaitForRunning(ctx, d)

	result := &ApplyResult{
		App:          d.App,
		ApplyID:      d.ApplyID,
		DesiredCount: d.DesiredCount,
		Resources:    state.Resources,
	}
	if waitErr != nil {
		if de := IsDeployError(waitErr); de != nil && de.IsTimeout() {
			result.TimedOut = true
			return result, waitErr
		}
		return nil, waitErr
	}

	result.RunningCount = snapshot.RunningCount()
	result.Endpoint = Endpoint(snapshot, d.ContainerPort)
	logger.WithField("endpoint", result.Endpoint).Info("apply complete")
	return result, nil
}

// applyStep is one convergence step: ensure a resource and return its state.
type applyStep struct {
	resType string
	name    string
	run     func(ctx context.Context) (ResourceState, error)
}

// runSteps executes the convergence steps in dependency order, persisting
// state after each one.
func (p *Deployer) runSteps(ctx context.Context, client awsClient, d *Descriptor, state *DeploymentState, logger *log.Entry) error {
	for _, step := range p.buildSteps(client, d) {
		logger.WithFields(log.Fields{"resource": step.resType, "name": step.name}).Info("converging")

		res, err := step.run(ctx)
		if err != nil {
			// Persist what succeeded so far before reporting the failure.
			if saveErr := p.store.Save(state); saveErr != nil {
				logger.WithError(saveErr).Warn("could not persist partial state")
			}
			return newDeployError("ensure", step.resType, step.name, err)
		}

		upsertResource(state, res)
		if err := p.store.Save(state); err != nil {
			return errors.Wrap(err, "persist state")
		}
	}
	return nil
}

// upsertResource replaces the state entry for the resource, or appends it.
func upsertResource(state *DeploymentState, res ResourceState) {
	for i, r := range state.Resources {
		if r.Type == res.Type && r.Name == res.Name {
			state.Resources[i] = res
			return
		}
	}
	state.Resources = append(state.Resources, res)
}

// buildSteps assembles the ordered convergence steps for the descriptor.
// Identifiers resolved by earlier steps are threaded to later ones through
// the descriptor's transient fields.
func (p *Deployer) buildSteps(client awsClient, d *Descriptor) []applyStep {
	var steps []applyStep

	steps = append(steps, applyStep{
		resType: ResTypeLogGroup,
		name:    logGroupName(d),
		run: func(ctx context.Context) (ResourceState, error) {
			arn, err := client.EnsureLogGroup(ctx, logGroupName(d), d)
			if err != nil {
				return ResourceState{}, err
			}
			return ResourceState{Type: ResTypeLogGroup, Name: logGroupName(d), ARN: arn}, nil
		},
	})

	if len(d.SecurityGroups) == 0 {
		steps = append(steps, applyStep{
			resType: ResTypeSecurityGroup,
			name:    securityGroupName(d),
			run: func(ctx context.Context) (ResourceState, error) {
				groupID, err := client.EnsureSecurityGroup(ctx, securityGroupName(d), d)
				if err != nil {
					return ResourceState{}, err
				}
				d.SecurityGroupID = groupID
				return ResourceState{
					Type:     ResTypeSecurityGroup,
					Name:     securityGroupName(d),
					Metadata: map[string]string{"group_id": groupID},
				}, nil
			},
		})
	}

	steps = append(steps,
		applyStep{
			resType: ResTypeCluster,
			name:    clusterName(d),
			run: func(ctx context.Context) (ResourceState, error) {
				arn, err := client.EnsureCluster(ctx, clusterName(d), d)
				if err != nil {
					return ResourceState{}, err
				}
				d.ClusterARN = arn
				return ResourceState{Type: ResTypeCluster, Name: clusterName(d), ARN: arn}, nil
			},
		},
		applyStep{
			resType: ResTypeTaskDefinition,
			name:    taskFamily(d),
			run: func(ctx context.Context) (ResourceState, error) {
				arn, err := client.RegisterTaskDefinition(ctx, taskFamily(d), d)
				if err != nil {
					return ResourceState{}, err
				}
				d.TaskDefinitionARN = arn
				return ResourceState{Type: ResTypeTaskDefinition, Name: taskFamily(d), ARN: arn}, nil
			},
		},
		applyStep{
			resType: ResTypeService,
			name:    serviceName(d),
			run: func(ctx context.Context) (ResourceState, error) {
				arn, err := client.EnsureService(ctx, serviceName(d), d)
				if err != nil {
					return ResourceState{}, err
				}
				return ResourceState{
					Type:     ResTypeService,
					Name:     serviceName(d),
					ARN:      arn,
					Metadata: map[string]string{"cluster": clusterName(d)},
				}, nil
			},
		},
	)

	return steps
}

// removeStale deletes recorded resources the descriptor no longer derives,
// pruning successfully deleted ones from the state. Resources that fail to
// delete stay recorded so destroy can retry them.
func (p *Deployer) removeStale(ctx context.Context, d *Descriptor, state *DeploymentState) error {
	desired := make(map[string]bool)
	for name, typ := range collectDerivedNames(d) {
		desired[resourceKey(typ, name)] = true
	}

	var stale []ResourceState
	for _, r := range state.Resources {
		if !desired[resourceKey(r.Type, r.Name)] {
			stale = append(stale, r)
		}
	}
	if len(stale) == 0 {
		return nil
	}

	destroyer, err := p.newDestroyer(ctx, d)
	if err != nil {
		return errors.Wrap(err, "initialize destroyer")
	}

	var result *multierror.Error
	deleted := make(map[string]bool, len(stale))
	for _, r := range stale {
		log.WithFields(log.Fields{"resource": r.Type, "name": r.Name}).Info("removing stale resource")
		if err := destroyer.DeleteResource(ctx, r); err != nil {
			result = multierror.Append(result, errors.Wrapf(err, "delete %s %s", r.Type, r.Name))
			continue
		}
		deleted[resourceKey(r.Type, r.Name)] = true
	}

	kept := state.Resources[:0]
	for _, r := range state.Resources {
		if !deleted[resourceKey(r.Type, r.Name)] {
			kept = append(kept, r)
		}
	}
	state.Resources = kept
	if err := p.store.Save(state); err != nil {
		result = multierror.Append(result, errors.Wrap(err, "persist state"))
	}
	return result.ErrorOrNil()
}
