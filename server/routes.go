package server

import "net/http"

func (s *Server) initRoutes() {
	// Provider routes are registered with literal names so the connect flow
	// paths cannot collide with the per-account API paths.
	for _, name := range s.providerNames() {
		p := s.providers[name]

		s.RegisterRouteHandler("GET "+ProviderRoute(RouteAuthorize, name), ChainMiddleware(s.Authorize(p), s.HTMLMiddleWare()...))
		s.RegisterRouteHandler("GET "+ProviderRoute(RouteCallback, name), ChainMiddleware(s.Callback(p), s.HTMLMiddleWare()...))

		s.RegisterRouteHandler("GET "+ProviderRoute(RouteMe, name), ChainMiddleware(s.Me(p), s.APIMiddleware()...))
		s.registerAPIPost(ProviderRoute(RoutePost, name), s.Post(p))
		s.registerAPIPost(ProviderRoute(RouteDisconnect, name), s.Disconnect(p))
	}

	s.registerAPIPost(RouteGenerateImage, s.GenerateImage())
	s.RegisterRouteHandler("GET "+RouteGenerated, ChainMiddleware(s.GeneratedFile(), s.StaticMiddleware()...))

	s.RegisterRouteFunc("GET "+RouteHealth, s.Health())
	s.RegisterRouteHandler("GET "+RouteMetrics, s.metricsHandler)
}

// registerAPIPost registers a JSON POST route and its CORS preflight.
func (s *Server) registerAPIPost(path string, handler http.HandlerFunc) {
	s.RegisterRouteHandler("POST "+path, ChainMiddleware(handler, s.APIMiddleware()...))
	s.RegisterRouteHandler("OPTIONS "+path, ChainMiddleware(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}, s.APIMiddleware()...))
}
