package server

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/kbukum/audiotranscriber/component"
)

const componentName = "http-server"

var (
	_ component.Component     = (*Component)(nil)
	_ component.Describable   = (*Component)(nil)
	_ component.RouteProvider = (*Component)(nil)
)

// systemPaths are listed after the API routes in the startup summary.
var systemPaths = map[string]bool{
	"/health":  true,
	"/ready":   true,
	"/alive":   true,
	"/version": true,
}

// Component wraps Server for the component registry.
type Component struct {
	server *Server
}

// NewComponent returns a component backed by s.
func NewComponent(s *Server) *Component {
	return &Component{server: s}
}

// Server returns the wrapped server.
func (sc *Component) Server() *Server { return sc.server }

func (sc *Component) Name() string { return componentName }

func (sc *Component) Start(ctx context.Context) error {
	return sc.server.Start(ctx)
}

func (sc *Component) Stop(ctx context.Context) error {
	return sc.server.Stop(ctx)
}

func (sc *Component) Health(ctx context.Context) component.Health {
	if !sc.server.running() {
		return component.Health{
			Name:    componentName,
			Status:  component.StatusUnhealthy,
			Message: "HTTP server not started",
		}
	}
	return component.Health{Name: componentName, Status: component.StatusHealthy}
}

func (sc *Component) Describe() component.Description {
	cfg := sc.server.config
	details := sc.server.Addr()
	if cfg.Auth.Enabled {
		details += " auth=jwt"
	}
	if cfg.RateLimit > 0 {
		details += fmt.Sprintf(" rate_limit=%d/min", cfg.RateLimit)
	}
	return component.Description{
		Name:    "HTTP Ingest",
		Type:    "server",
		Details: details,
		Port:    cfg.Port,
	}
}

// Routes returns the registered routes, API routes first.
func (sc *Component) Routes() []component.Route {
	ginRoutes := sc.server.engine.Routes()
	sort.SliceStable(ginRoutes, func(i, j int) bool {
		iSys, jSys := systemPaths[ginRoutes[i].Path], systemPaths[ginRoutes[j].Path]
		if iSys != jSys {
			return !iSys
		}
		if ginRoutes[i].Path != ginRoutes[j].Path {
			return ginRoutes[i].Path < ginRoutes[j].Path
		}
		return methodOrder(ginRoutes[i].Method) < methodOrder(ginRoutes[j].Method)
	})

	routes := make([]component.Route, 0, len(ginRoutes))
	for _, r := range ginRoutes {
		routes = append(routes, component.Route{
			Method:  r.Method,
			Path:    r.Path,
			Handler: formatHandlerName(r.Handler),
		})
	}
	return routes
}

// formatHandlerName shortens Gin's handler path, e.g.
// "github.com/x/server.(*ingestHandler).ingest-fm" becomes "ingestHandler.ingest"
// and "github.com/x/server/endpoint.Health.func1" becomes "health".
func formatHandlerName(fullPath string) string {
	name := strings.TrimSuffix(fullPath, "-fm")
	if idx := strings.LastIndex(name, "/"); idx >= 0 {
		name = name[idx+1:]
	}
	name = strings.ReplaceAll(name, "(*", "")
	name = strings.ReplaceAll(name, ")", "")

	if strings.Contains(name, ".func") {
		parts := strings.Split(name, ".")
		for i := len(parts) - 1; i >= 0; i-- {
			if !strings.HasPrefix(parts[i], "func") {
				return strings.ToLower(parts[i])
			}
		}
	}

	// Drop the package prefix.
	if _, rest, ok := strings.Cut(name, "."); ok && rest != "" {
		name = rest
	}
	return name
}

func methodOrder(method string) int {
	switch method {
	case "GET":
		return 0
	case "POST":
		return 1
	case "PUT":
		return 2
	case "PATCH":
		return 3
	case "DELETE":
		return 4
	default:
		return 5
	}
}
