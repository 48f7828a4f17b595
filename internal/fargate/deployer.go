package fargate

import "context"

// Factory function types let tests substitute recording fakes for the real
// AWS clients without touching the convergence logic.
type (
	clientFactory    func(ctx context.Context, d *Descriptor) (awsClient, error)
	observerFactory  func(ctx context.Context, d *Descriptor) (taskObserver, error)
	destroyerFactory func(ctx context.Context, d *Descriptor) (resourceDestroyer, error)
	checkerFactory   func(ctx context.Context, d *Descriptor) (resourceChecker, error)
	metricsFactory   func(ctx context.Context, d *Descriptor) (metricsFetcher, error)
)

// Deployer drives descriptor convergence: apply, status, and destroy. All
// AWS access goes through the factory-produced clients so behavior is fully
// testable offline.
type Deployer struct {
	store *StateStore

	newClient    clientFactory
	newObserver  observerFactory
	newDestroyer destroyerFactory
	newChecker   checkerFactory
	newMetrics   metricsFactory
}

// NewDeployer builds a Deployer wired to the real AWS clients.
func NewDeployer(store *StateStore) *Deployer {
	return &Deployer{
		store:        store,
		newClient:    newRealAWSClientFactory,
		newObserver:  newRealObserverFactory,
		newDestroyer: newRealDestroyerFactory,
		newChecker:   newRealCheckerFactory,
		newMetrics:   newRealMetricsFactory,
	}
}
