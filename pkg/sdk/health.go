package unihelp

import (
	"context"
	"slices"

	healthuc "github.com/kailas-cloud/unihelp/internal/usecase/health"
)

// HealthStatus is the probe report of the index and the configured providers.
// Status is "ok", "degraded" or "error"; Checks maps a component to "ok" or "error".
// Providers without a HealthCheck method are absent from Checks.
type HealthStatus struct {
	Status string
	Checks map[string]string
}

// OK reports whether every probed component answered.
func (h HealthStatus) OK() bool { return h.Status == string(healthuc.Healthy) }

// Failing lists the components whose probe failed, sorted.
func (h HealthStatus) Failing() []string {
	var out []string
	for name, res := range h.Checks {
		if res != string(healthuc.CheckOK) {
			out = append(out, name)
		}
	}
	slices.Sort(out)
	return out
}

// Health probes the index and the providers concurrently.
func (c *Client) Health(ctx context.Context) HealthStatus {
	report := c.healthSvc.Check(ctx)
	h := HealthStatus{
		Status: string(report.Status),
		Checks: make(map[string]string, len(report.Checks)),
	}
	for name, res := range report.Checks {
		h.Checks[name] = string(res)
	}
	return h
}

type healthUseCase interface {
	Check(ctx context.Context) healthuc.Report
}
