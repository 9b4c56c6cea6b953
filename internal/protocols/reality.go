package protocols

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"xrayctl/internal/constants"
	xerrors "xrayctl/internal/errors"
)

// RealityHandler implements the VLESS-over-Reality protocol logic
type RealityHandler struct{}

// NewRealityHandler creates a new Reality protocol handler
func NewRealityHandler() *RealityHandler {
	return &RealityHandler{}
}

// Name returns the protocol identifier
func (h *RealityHandler) Name() string {
	return "vless-reality"
}

// RequiresDomain reports that Reality needs a verified SNI domain
func (h *RealityHandler) RequiresDomain() bool {
	return true
}

// FindInbound locates the inbound with protocol "vless" and security
// "reality"
func (h *RealityHandler) FindInbound(doc map[string]interface{}) (map[string]interface{}, error) {
	raw, ok := doc["inbounds"]
	if !ok {
		return nil, &xerrors.NotFoundError{Kind: "inbound", Name: "vless+reality"}
	}

	inbounds, ok := raw.([]interface{})
	if !ok {
		return nil, &xerrors.MalformedConfigError{Reason: "inbounds is not a list"}
	}

	for _, entry := range inbounds {
		inbound, ok := entry.(map[string]interface{})
		if !ok {
			continue
		}
		if inbound["protocol"] != "vless" {
			continue
		}
		stream, _ := inbound["streamSettings"].(map[string]interface{})
		if stream["security"] == "reality" {
			return inbound, nil
		}
	}

	return nil, &xerrors.NotFoundError{Kind: "inbound", Name: "vless+reality"}
}

// CreateClient builds a client entry with the mandatory vision flow
func (h *RealityHandler) CreateClient(alias, id string) map[string]interface{} {
	return map[string]interface{}{
		"id":    id,
		"flow":  constants.FlowVision,
		"email": alias,
	}
}

// GenerateLink renders a vless:// share link embedding the Reality
// transport parameters
func (h *RealityHandler) GenerateLink(inbound map[string]interface{}, id, alias, host string, opts LinkOptions) (string, error) {
	if opts.PublicKey == "" {
		return "", &xerrors.InvalidArgumentError{Field: "public key", Message: "required for Reality links"}
	}

	port, err := inboundPort(inbound)
	if err != nil {
		return "", err
	}

	reality, err := realitySettings(inbound)
	if err != nil {
		return "", err
	}

	sni := firstString(reality["serverNames"])
	sid := firstString(reality["shortIds"])
	fp := stringOr(reality["fingerprint"], "chrome")
	spx, _ := reality["spiderX"].(string)

	var sb strings.Builder
	fmt.Fprintf(&sb, "vless://%s@%s:%d", id, host, port)
	sb.WriteString("?security=reality")
	fmt.Fprintf(&sb, "&sni=%s", sni)
	fmt.Fprintf(&sb, "&fp=%s", fp)
	fmt.Fprintf(&sb, "&pbk=%s", url.QueryEscape(opts.PublicKey))
	fmt.Fprintf(&sb, "&sid=%s", sid)
	sb.WriteString("&type=tcp")
	fmt.Fprintf(&sb, "&flow=%s", constants.FlowVision)
	sb.WriteString("&encryption=none")
	if spx != "" {
		fmt.Fprintf(&sb, "&spx=%s", url.QueryEscape(spx))
	}
	fmt.Fprintf(&sb, "#%s", alias)

	return sb.String(), nil
}

// Initialize generates the X25519 key pair and short ID, writes them into
// the Reality settings together with the masking domain, and returns the
// values the surrounding layer persists to the environment
func (h *RealityHandler) Initialize(ctx context.Context, doc map[string]interface{}, keys KeyGenerator, domain string) (map[string]string, error) {
	if domain == "" {
		return nil, &xerrors.InvalidArgumentError{Field: "domain", Message: "required for Reality initialization"}
	}

	pair, err := keys.GenerateKeyPair(ctx)
	if err != nil {
		return nil, err
	}

	shortID, err := randomShortID()
	if err != nil {
		return nil, err
	}

	inbound, err := h.FindInbound(doc)
	if err != nil {
		return nil, err
	}

	reality, err := realitySettings(inbound)
	if err != nil {
		return nil, err
	}

	reality["privateKey"] = pair.PrivateKey
	reality["shortIds"] = []interface{}{shortID}
	reality["dest"] = domain + ":443"
	reality["serverNames"] = []interface{}{domain}

	return map[string]string{
		"XRAY_PUB_KEY":  pair.PublicKey,
		"XRAY_PROTOCOL": h.Name(),
	}, nil
}

// randomShortID generates the short identifier Reality uses to recognize
// legitimate client handshakes
func randomShortID() (string, error) {
	buf := make([]byte, constants.ShortIDBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate short id: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// realitySettings digs out streamSettings.realitySettings, reporting a
// malformed document when the shape is wrong
func realitySettings(inbound map[string]interface{}) (map[string]interface{}, error) {
	stream, ok := inbound["streamSettings"].(map[string]interface{})
	if !ok {
		return nil, &xerrors.MalformedConfigError{Reason: "inbound has no streamSettings"}
	}
	reality, ok := stream["realitySettings"].(map[string]interface{})
	if !ok {
		return nil, &xerrors.MalformedConfigError{Reason: "streamSettings has no realitySettings"}
	}
	return reality, nil
}

// inboundPort reads the port, which JSON configs carry as a number but
// some hand-written ones keep as a string
func inboundPort(inbound map[string]interface{}) (int, error) {
	switch p := inbound["port"].(type) {
	case float64:
		return int(p), nil
	case string:
		port, err := strconv.Atoi(p)
		if err == nil {
			return port, nil
		}
	}
	return 0, &xerrors.MalformedConfigError{Reason: "inbound port is not a number"}
}

// firstString returns the first element of an untyped string list, or ""
func firstString(v interface{}) string {
	list, ok := v.([]interface{})
	if !ok || len(list) == 0 {
		return ""
	}
	s, _ := list[0].(string)
	return s
}

func stringOr(v interface{}, fallback string) string {
	if s, ok := v.(string); ok && s != "" {
		return s
	}
	return fallback
}
