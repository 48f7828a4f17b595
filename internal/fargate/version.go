package fargate

// Version is the caravel release version, overridden at build time via
// -ldflags "-X github.com/caravel-sh/caravel/internal/fargate.Version=...".
var Version = "0.1.0-dev"
