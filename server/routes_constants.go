package server

import "strings"

// Route path constants
// {provider} is replaced with each registered provider's name at startup
const (
	// OAuth connect flow
	RouteAuthorize = "/api/auth/{provider}"
	RouteCallback  = "/api/auth/{provider}/callback"

	// Connected account API
	RouteMe         = "/api/{provider}/me"
	RoutePost       = "/api/{provider}/post"
	RouteDisconnect = "/api/{provider}/disconnect"

	// Images
	RouteGenerateImage = "/api/generate-image"
	RouteGenerated     = "/generated/{file}"

	// Operations
	RouteHealth  = "/healthz"
	RouteMetrics = "/metrics"

	// Frontend page the connect flow returns to (served by the web app)
	RouteSocialPage = "/social"
)

// ProviderRoute fills the {provider} segment of route.
func ProviderRoute(route, provider string) string {
	return strings.Replace(route, "{provider}", provider, 1)
}
