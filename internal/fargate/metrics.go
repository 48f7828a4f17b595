package fargate

import (
	"fmt"
	"strings"
	"time"
)

// ServiceMetrics holds recent average utilization for the deployed service.
// HasCPU and HasMemory distinguish "zero" from "no datapoints yet", which is
// common right after the first apply.
type ServiceMetrics struct {
	CPUPercent    float64
	MemoryPercent float64
	HasCPU        bool
	HasMemory     bool
	Window        time.Duration
}

// String formats the metrics for status output.
func (m *ServiceMetrics) String() string {
	if m == nil || (!m.HasCPU && !m.HasMemory) {
		return "utilization: no datapoints yet"
	}
	var parts []string
	if m.HasCPU {
		parts = append(parts, fmt.Sprintf("cpu %.1f%%", m.CPUPercent))
	}
	if m.HasMemory {
		parts = append(parts, fmt.Sprintf("memory %.1f%%", m.MemoryPercent))
	}
	return fmt.Sprintf("utilization (last %s): %s", m.Window, strings.Join(parts, ", "))
}
