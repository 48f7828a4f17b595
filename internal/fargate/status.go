package fargate

import (
	"context"
	"sort"

	multierror "github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// StatusReport describes the current health of a deployment: per-resource
// checks, the live task snapshot, the reachable endpoint, and utilization.
type StatusReport struct {
	App       string
	Resources []ResourceState
	Tasks     []TaskState
	Endpoint  string
	Metrics   *ServiceMetrics
	Healthy   bool
}

// Status checks every recorded resource and observes the service's tasks.
// A report with no resources means nothing has been deployed.
func (p *Deployer) Status(ctx context.Context, d *Descriptor) (*StatusReport, error) {
	state, err := p.store.Load()
	if err != nil {
		return nil, err
	}
	report := &StatusReport{App: d.App}
	if state == nil || len(state.Resources) == 0 {
		return report, nil
	}

	checker, err := p.newChecker(ctx, d)
	if err != nil {
		return nil, newDeployError("initialize", "checker", d.App, err)
	}

	healthy := true
	for _, res := range state.Resources {
		status, err := checker.CheckResource(ctx, res)
		if err != nil {
			log.WithError(err).WithFields(log.Fields{
				"resource": res.Type, "name": res.Name,
			}).Warn("resource check failed")
			status = StatusUnhealthy
		}
		if status != StatusHealthy {
			healthy = false
		}
		res.Status = status
		report.Resources = append(report.Resources, res)
	}

	// Task and metrics observations are best-effort: a failed read degrades
	// the report rather than failing the status command outright.
	p.observeForStatus(ctx, d, report)
	// A stabilized deployment runs exactly the desired count. More running
	// tasks than desired means an old revision has not drained yet.
	report.Healthy = healthy && int32(countRunning(report.Tasks)) == d.DesiredCount
	return report, nil
}

// observeForStatus fills the report's task snapshot, endpoint, and metrics.
func (p *Deployer) observeForStatus(ctx context.Context, d *Descriptor, report *StatusReport) {
	observer, err := p.newObserver(ctx, d)
	if err != nil {
		log.WithError(err).Warn("could not initialize task observer")
		return
	}
	snapshot, err := observer.ObserveTasks(ctx, d)
	if err != nil {
		log.WithError(err).Warn("could not observe tasks")
		return
	}
	report.Tasks = snapshot.Tasks
	report.Endpoint = Endpoint(snapshot, d.ContainerPort)

	fetcher, err := p.newMetrics(ctx, d)
	if err != nil {
		log.WithError(err).Warn("could not initialize metrics fetcher")
		return
	}
	metrics, err := fetcher.ServiceUtilization(ctx, d)
	if err != nil {
		log.WithError(err).Warn("could not fetch utilization metrics")
		return
	}
	report.Metrics = metrics
}

func countRunning(tasks []TaskState) int {
	n := 0
	for _, t := range tasks {
		if t.LastStatus == taskStatusRunning {
			n++
		}
	}
	return n
}

// destroyOrder maps resource types to teardown position. Dependents are
// removed before the resources they depend on, the reverse of apply order.
var destroyOrder = map[string]int{
	ResTypeService:        0,
	ResTypeTaskDefinition: 1,
	ResTypeCluster:        2,
	ResTypeSecurityGroup:  3,
	ResTypeLogGroup:       4,
}

// Destroy deletes every recorded resource in reverse dependency order.
// Deletion is best-effort: a failure on one resource does not stop the
// others, and resources that could not be deleted stay in the state file so
// a later destroy can retry them.
func (p *Deployer) Destroy(ctx context.Context, d *Descriptor) error {
	state, err := p.store.Load()
	if err != nil {
		return err
	}
	if state == nil || len(state.Resources) == 0 {
		log.Info("nothing to destroy")
		return nil
	}

	destroyer, err := p.newDestroyer(ctx, d)
	if err != nil {
		return newDeployError("initialize", "destroyer", d.App, err)
	}

	ordered := append([]ResourceState(nil), state.Resources...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return destroyOrder[ordered[i].Type] < destroyOrder[ordered[j].Type]
	})

	var result *multierror.Error
	var remaining []ResourceState
	for _, res := range ordered {
		log.WithFields(log.Fields{"resource": res.Type, "name": res.Name}).Info("deleting")
		if err := destroyer.DeleteResource(ctx, res); err != nil {
			result = multierror.Append(result, errors.Wrapf(err, "delete %s %s", res.Type, res.Name))
			remaining = append(remaining, res)
		}
	}

	if len(remaining) == 0 {
		if err := p.store.Clear(); err != nil {
			result = multierror.Append(result, err)
		}
	} else {
		state.Resources = remaining
		if err := p.store.Save(state); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}
