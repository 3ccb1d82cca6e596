package serverauth

import (
	"net/http"
)

// Well-known paths served by the middleware. Requests to these paths are
// never authenticated; clients must be able to discover how to obtain a
// token before they have one.
const (
	// ProtectedResourceMetadataPath serves the RFC 9728 protected
	// resource metadata document.
	ProtectedResourceMetadataPath = "/.well-known/oauth-protected-resource"

	// ProtectedResourceMetadataMCPPath is the path variant MCP clients
	// probe when the server is mounted under /mcp.
	ProtectedResourceMetadataMCPPath = "/.well-known/oauth-protected-resource/mcp"

	// AuthorizationServerMetadataPath serves a forwarded copy of an
	// authorization server's RFC 8414 metadata document.
	AuthorizationServerMetadataPath = "/.well-known/oauth-authorization-server"
)

// ProtectedResourceMetadata is the RFC 9728 document advertising this
// resource server and the authorization servers that can issue tokens for
// it.
type ProtectedResourceMetadata struct {
	Resource               string   `json:"resource"`
	AuthorizationServers   []string `json:"authorization_servers"`
	BearerMethodsSupported []string `json:"bearer_methods_supported,omitempty"`
	ScopesSupported        []string `json:"scopes_supported,omitempty"`
	ResourceName           string   `json:"resource_name,omitempty"`
	ResourceDocumentation  string   `json:"resource_documentation,omitempty"`
}

// ResourceMetadata returns the document served at
// ProtectedResourceMetadataPath.
func (m *Middleware) ResourceMetadata() ProtectedResourceMetadata {
	servers := make([]string, 0, len(m.registry.Entries()))
	for _, entry := range m.registry.Entries() {
		servers = append(servers, entry.AuthorizationServerURL)
	}
	return ProtectedResourceMetadata{
		Resource:               m.config.CanonicalURL,
		AuthorizationServers:   servers,
		BearerMethodsSupported: []string{"header"},
	}
}

// ServeProtectedResourceMetadata serves the protected resource metadata
// document. The JSON is marshalled once at construction; this handler only
// writes bytes.
func (m *Middleware) ServeProtectedResourceMetadata(w http.ResponseWriter, r *http.Request) {
	if !allowDiscoveryMethod(w, r) {
		return
	}

	setDiscoveryHeaders(w)
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(m.resourceMetadataJSON)
}

// ServeAuthorizationServerMetadata serves a pass-through copy of the
// metadata document of the first configured entry with forwarding enabled.
// Responds 404 when no entry forwards, and 502 when the upstream document
// cannot be fetched and no cached copy exists.
func (m *Middleware) ServeAuthorizationServerMetadata(w http.ResponseWriter, r *http.Request) {
	if !allowDiscoveryMethod(w, r) {
		return
	}

	if m.forwardedMetadataURL == "" {
		http.NotFound(w, r)
		return
	}

	document, err := m.metadata.Fetch(r.Context(), m.forwardedMetadataURL)
	if err != nil {
		m.logger.Warn("could not fetch authorization server metadata",
			"url", m.forwardedMetadataURL,
			"error", err,
		)
		http.Error(w, "authorization server metadata unavailable", http.StatusBadGateway)
		return
	}

	setDiscoveryHeaders(w)
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(document)
}

// RegisterWellKnown mounts the discovery documents on mux.
func (m *Middleware) RegisterWellKnown(mux *http.ServeMux) {
	mux.HandleFunc(ProtectedResourceMetadataPath, m.ServeProtectedResourceMetadata)
	mux.HandleFunc(ProtectedResourceMetadataMCPPath, m.ServeProtectedResourceMetadata)
	mux.HandleFunc(AuthorizationServerMetadataPath, m.ServeAuthorizationServerMetadata)
}

// Handler is the one-stop wrap for a plain http server: it serves the
// discovery documents itself and guards everything else with CheckToken.
func (m *Middleware) Handler(next http.Handler) http.Handler {
	protected := m.CheckToken(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case ProtectedResourceMetadataPath, ProtectedResourceMetadataMCPPath:
			m.ServeProtectedResourceMetadata(w, r)
		case AuthorizationServerMetadataPath:
			m.ServeAuthorizationServerMetadata(w, r)
		default:
			protected.ServeHTTP(w, r)
		}
	})
}

// allowDiscoveryMethod admits GET and HEAD, answers OPTIONS preflights, and
// refuses everything else.
func allowDiscoveryMethod(w http.ResponseWriter, r *http.Request) bool {
	switch r.Method {
	case http.MethodGet, http.MethodHead:
		return true
	case http.MethodOptions:
		setDiscoveryHeaders(w)
		w.WriteHeader(http.StatusNoContent)
		return false
	default:
		w.Header().Set("Allow", "GET, HEAD, OPTIONS")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return false
	}
}

func setDiscoveryHeaders(w http.ResponseWriter) {
	header := w.Header()
	header.Set("Access-Control-Allow-Origin", "*")
	header.Set("Access-Control-Allow-Methods", "GET")
	header.Set("Access-Control-Allow-Headers", "Content-Type")
}
