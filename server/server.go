package server

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/jrsteele09/social-publisher/imagegen"
	"github.com/jrsteele09/social-publisher/internal/config"
	"github.com/jrsteele09/social-publisher/sessions"
	"github.com/jrsteele09/social-publisher/social"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// ImageGenerator renders and stores an image for a prompt.
type ImageGenerator interface {
	Generate(ctx context.Context, req imagegen.Request) (imagegen.Image, error)
}

type Server struct {
	env            string // Environment (e.g., "DEV", "PROD")
	mux            *http.ServeMux
	routes         []string
	config         config.Config
	sessions       *sessions.Manager
	providers      map[string]social.Provider
	images         ImageGenerator
	metricsHandler http.Handler
}

// Option configures a Server.
type Option func(*Server)

// WithMetricsHandler replaces the handler served on the metrics route.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) {
		s.metricsHandler = h
	}
}

func New(config config.Config, manager *sessions.Manager, providers []social.Provider, images ImageGenerator, opts ...Option) (*Server, error) {
	s := &Server{
		env:            config.GetEnv(),
		mux:            http.NewServeMux(),
		config:         config,
		sessions:       manager,
		providers:      make(map[string]social.Provider, len(providers)),
		images:         images,
		metricsHandler: promhttp.Handler(),
	}
	for _, opt := range opts {
		opt(s)
	}

	for _, p := range providers {
		if _, dup := s.providers[p.Name()]; dup {
			return nil, fmt.Errorf("[Server New] provider %q registered twice", p.Name())
		}
		s.providers[p.Name()] = p
	}

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

// providerNames returns the registered provider names in a stable order.
func (s *Server) providerNames() []string {
	names := make([]string, 0, len(s.providers))
	for name := range s.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// socialPageURL is where the browser lands after a connect attempt.
func (s *Server) socialPageURL() string {
	return s.config.GetAppURL() + RouteSocialPage
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)

		if len(parts) > 1 {
			logRoute(parts[0], parts[1])
		} else {
			logRoute("", parts[0])
		}
	}
}

func logRoute(method, path string) {
	var displayMethod string
	paddedMethod := fmt.Sprintf(" %-7s", method)
	if color, ok := methodColors[method]; ok {
		displayMethod = color + paddedMethod + ResetColor
	} else {
		displayMethod = Gray + paddedMethod + ResetColor
	}
	log.Printf("[%-19s] %s", displayMethod, path)
}

func logError(method, path, error string) {
	var displayMethod string
	paddedMethod := fmt.Sprintf(" %-7s", method)
	if color, ok := methodColors[method]; ok {
		displayMethod = color + paddedMethod + ResetColor
	} else {
		displayMethod = Gray + paddedMethod + ResetColor
	}
	log.Printf("[%-19s] %s %s", displayMethod, path, Red+error+ResetColor)
}
