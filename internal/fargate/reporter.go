package fargate

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Reporter polls the deployed service until the desired task count is
// running, then derives the reachable endpoint from the task ENIs.
type Reporter struct {
	observer taskObserver
	interval time.Duration
}

// NewReporter builds a Reporter with the default poll interval.
func NewReporter(observer taskObserver) *Reporter {
	return &Reporter{observer: observer, interval: defaultPollInterval}
}

// errStillConverging signals a poll attempt that should be retried.
var errStillConverging = errors.New("service still converging")

// WaitForRunning polls at a fixed interval until exactly the desired number
// of tasks is RUNNING, the wait timeout elapses, or a task stops with a
// fatal reason. On success it returns the final task snapshot. More running
// tasks than desired means a superseded revision is still draining, so the
// wait continues until the count settles.
//
// A timeout is reported as a DeployError with the timeout category, distinct
// from an outright failure: the service may still converge afterwards.
func (r *Reporter) WaitForRunning(ctx context.Context, d *Descriptor) (*ClusterState, error) {
	waitCtx, cancel := context.WithTimeout(ctx, d.WaitTimeout())
	defer cancel()

	policy := backoff.WithContext(backoff.NewConstantBackOff(r.interval), waitCtx)

	attempt := 0
	snapshot, err := backoff.RetryWithData(func() (*ClusterState, error) {
		attempt++
		return r.pollOnce(waitCtx, d, attempt)
	}, policy)
	if err != nil {
		if waitCtx.Err() != nil {
			return nil, newTimeoutError(ResTypeService, serviceName(d),
				fmt.Errorf("service did not reach %d running task(s) within %s",
					d.DesiredCount, d.WaitTimeout()))
		}
		return nil, newDeployError("poll", ResTypeService, serviceName(d), err)
	}
	return snapshot, nil
}

// pollOnce takes one task snapshot and decides whether to keep waiting.
func (r *Reporter) pollOnce(ctx context.Context, d *Descriptor, attempt int) (*ClusterState, error) {
	snapshot, err := r.observer.ObserveTasks(ctx, d)
	if err != nil {
		// Permission and configuration failures will not heal on their own;
		// retrying them until the deadline would misreport them as timeouts.
		category, _ := classifyAWSError(err)
		if category == ErrCategoryPermission || category == ErrCategoryConfiguration {
			return nil, backoff.Permanent(errors.Wrap(err, "observe tasks"))
		}
		// Observation errors right after service creation are expected
		// while ECS propagates the new service. Retry them.
		log.WithError(err).Debug("task observation failed, retrying")
		return nil, errors.Wrap(err, "observe tasks")
	}

	if reason := fatalStopReason(snapshot); reason != "" {
		return nil, backoff.Permanent(fmt.Errorf("task stopped: %s", reason))
	}

	running := snapshot.RunningCount()
	log.WithFields(log.Fields{
		"attempt": attempt,
		"running": running,
		"desired": d.DesiredCount,
	}).Info("waiting for tasks")

	if int32(running) == d.DesiredCount {
		return snapshot, nil
	}
	return nil, errStillConverging
}

// fatalStopReason returns a stop reason that indicates the task will never
// start, such as an image pull failure. ECS restarts tasks on transient
// failures, so only clearly unrecoverable reasons abort the wait.
func fatalStopReason(snapshot *ClusterState) string {
	for _, t := range snapshot.Tasks {
		if t.LastStatus != taskStatusStopped || t.StoppedReason == "" {
			continue
		}
		category, _ := classifyErrorMessage(t.StoppedReason)
		if category == ErrCategoryPermission || category == ErrCategoryConfiguration {
			return t.StoppedReason
		}
	}
	return ""
}

// Endpoint derives the reachable HTTP endpoint from a task snapshot: the
// public IP of a running task when one is assigned, otherwise the private
// IP. Returns an empty string when no running task has an address yet.
func Endpoint(snapshot *ClusterState, port int32) string {
	var private string
	for _, t := range snapshot.Tasks {
		if t.LastStatus != taskStatusRunning {
			continue
		}
		if t.PublicIP != "" {
			return fmt.Sprintf("http://%s:%d", t.PublicIP, port)
		}
		if private == "" && t.PrivateIP != "" {
			private = t.PrivateIP
		}
	}
	if private != "" {
		return fmt.Sprintf("http://%s:%d", private, port)
	}
	return ""
}
