package bootstrap

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/kbukum/audiotranscriber/component"
)

// InfrastructureInfo describes one component in the summary.
type InfrastructureInfo struct {
	Name    string
	Type    string
	Details string
	Port    int
	Status  component.HealthStatus
	Message string
}

// Summary collects and renders the startup overview.
type Summary struct {
	serviceName     string
	version         string
	startupDuration time.Duration
	infrastructure  []InfrastructureInfo
	routes          []component.Route
}

// NewSummary creates an empty summary.
func NewSummary(serviceName, version string) *Summary {
	return &Summary{serviceName: serviceName, version: version}
}

// SetStartupDuration records the total startup time.
func (s *Summary) SetStartupDuration(d time.Duration) {
	s.startupDuration = d
}

// Collect gathers descriptions, routes and live health from the registry.
func (s *Summary) Collect(ctx context.Context, registry *component.Registry) {
	s.infrastructure = s.infrastructure[:0]
	s.routes = s.routes[:0]
	health := make(map[string]component.Health)
	for _, h := range registry.HealthAll(ctx) {
		health[h.Name] = h
	}

	for _, c := range registry.All() {
		info := InfrastructureInfo{Name: c.Name(), Type: "component"}
		if d, ok := c.(component.Describable); ok {
			desc := d.Describe()
			if desc.Name != "" {
				info.Name = desc.Name
			}
			info.Type = desc.Type
			info.Details = desc.Details
			info.Port = desc.Port
		}
		if h, ok := health[c.Name()]; ok {
			info.Status = h.Status
			info.Message = h.Message
		}
		s.infrastructure = append(s.infrastructure, info)

		if rp, ok := c.(component.RouteProvider); ok {
			s.routes = append(s.routes, rp.Routes()...)
		}
	}
}

// Infrastructure returns the collected component rows.
func (s *Summary) Infrastructure() []InfrastructureInfo {
	return s.infrastructure
}

// Render writes the summary as tables.
func (s *Summary) Render(w io.Writer) {
	fmt.Fprintf(w, "\n%s v%s started in %.2fs\n", s.serviceName, s.version, s.startupDuration.Seconds())

	if len(s.infrastructure) == 0 {
		fmt.Fprintln(w, "No components registered")
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Component", "Type", "Details", "Health"})
	healthy := 0
	for _, inf := range s.infrastructure {
		details := inf.Details
		if inf.Port > 0 {
			details = fmt.Sprintf("%s (:%d)", details, inf.Port)
		}
		status := string(inf.Status)
		if inf.Message != "" {
			status += ": " + inf.Message
		}
		if inf.Status == component.StatusHealthy {
			healthy++
		}
		t.AppendRow(table.Row{inf.Name, inf.Type, strings.TrimSpace(details), status})
	}
	t.AppendFooter(table.Row{"", "", "healthy", fmt.Sprintf("%d/%d", healthy, len(s.infrastructure))})
	t.Render()

	if len(s.routes) > 0 {
		rt := table.NewWriter()
		rt.SetOutputMirror(w)
		rt.SetStyle(table.StyleLight)
		rt.AppendHeader(table.Row{"Method", "Path", "Handler"})
		for _, r := range s.routes {
			rt.AppendRow(table.Row{r.Method, r.Path, r.Handler})
		}
		rt.Render()
	}
}
