package protocols

import (
	"context"

	"xrayctl/internal/models"
)

// KeyGenerator produces X25519 key pairs, typically by running the
// generation command inside the proxy container
type KeyGenerator interface {
	GenerateKeyPair(ctx context.Context) (models.KeyPair, error)
}

// LinkOptions carries the optional parameters for share link rendering
type LinkOptions struct {
	PublicKey string
}

// Handler isolates all protocol-specific knowledge from the generic
// user and traffic workflow. Implementations operate on the untyped config
// document and return references into it, so caller mutations propagate.
type Handler interface {
	// Name returns the unique identifier for this protocol
	Name() string

	// RequiresDomain reports whether initialization needs a verified
	// masking domain
	RequiresDomain() bool

	// FindInbound locates this protocol's inbound entry in the document.
	// If multiple inbounds match the selector, the first in document order
	// wins.
	FindInbound(doc map[string]interface{}) (map[string]interface{}, error)

	// CreateClient builds a new client entry with protocol-mandated fields
	CreateClient(alias, id string) map[string]interface{}

	// GenerateLink renders a fully-qualified share URI for one client
	GenerateLink(inbound map[string]interface{}, id, alias, host string, opts LinkOptions) (string, error)

	// Initialize performs one-time protocol setup, mutating the document in
	// place and returning environment values the caller must persist
	Initialize(ctx context.Context, doc map[string]interface{}, keys KeyGenerator, domain string) (map[string]string, error)
}

var strategies = map[string]func() Handler{
	"vless-reality": func() Handler { return NewRealityHandler() },
}

// ForProtocol returns the handler registered for the given protocol name.
// Unknown names fall back to the Reality handler.
func ForProtocol(name string) Handler {
	if create, ok := strategies[name]; ok {
		return create()
	}
	return NewRealityHandler()
}
