package observability

import "github.com/kbukum/audiotranscriber/component"

// HealthStatus represents the health state of a component or service.
type HealthStatus string

const (
	HealthStatusUp       HealthStatus = "up"
	HealthStatusDown     HealthStatus = "down"
	HealthStatusDegraded HealthStatus = "degraded"
)

// Health describes the health of an individual component.
type Health struct {
	Name    string       `json:"name"`
	Status  HealthStatus `json:"status"`
	Message string       `json:"message,omitempty"`
}

// ServiceHealth describes the overall health of a service and its components.
type ServiceHealth struct {
	Service    string       `json:"service"`
	Status     HealthStatus `json:"status"`
	Version    string       `json:"version,omitempty"`
	Components []Health     `json:"components,omitempty"`
}

// NewServiceHealth creates a ServiceHealth with status up.
func NewServiceHealth(service, version string) *ServiceHealth {
	return &ServiceHealth{
		Service: service,
		Status:  HealthStatusUp,
		Version: version,
	}
}

// AddComponent adds a component health result and degrades overall status if needed.
func (sh *ServiceHealth) AddComponent(ch Health) {
	sh.Components = append(sh.Components, ch)

	switch ch.Status {
	case HealthStatusDown:
		sh.Status = HealthStatusDown
	case HealthStatusDegraded:
		if sh.Status != HealthStatusDown {
			sh.Status = HealthStatusDegraded
		}
	}
}

// AddComponents folds registry health results into sh.
func (sh *ServiceHealth) AddComponents(results []component.Health) {
	for _, h := range results {
		sh.AddComponent(FromComponent(h))
	}
}

// FromComponent maps a component health result.
func FromComponent(h component.Health) Health {
	status := HealthStatusDown
	switch h.Status {
	case component.StatusHealthy:
		status = HealthStatusUp
	case component.StatusDegraded:
		status = HealthStatusDegraded
	}
	return Health{Name: h.Name, Status: status, Message: h.Message}
}
