package metadata

import (
	"net/http"
	"net/netip"
	"strings"

	"confide/pkg/requestcontext"
)

// MaxAddressHeaderLength bounds the address header to keep oversized values out of keys and logs.
const MaxAddressHeaderLength = 500

// DefaultAddressHeader is the header the edge uses for the original client address.
const DefaultAddressHeader = "X-Forwarded-For"

// Config holds configuration for the metadata middleware.
type Config struct {
	// AddressHeader names the edge-supplied header carrying the client address.
	// Only the first comma-separated entry is used.
	AddressHeader string

	// TrustedProxies restricts which direct peers may set AddressHeader. When
	// empty the header is trusted as-is (the edge strips client-supplied copies).
	TrustedProxies []netip.Prefix
}

// DefaultConfig returns a Config reading X-Forwarded-For from any peer.
func DefaultConfig() *Config {
	return &Config{
		AddressHeader: DefaultAddressHeader,
	}
}

// Middleware records the caller's network address on the request context.
// Nothing else about the caller is kept.
type Middleware struct {
	config *Config
}

// NewMiddleware creates a new metadata middleware with the given config.
func NewMiddleware(cfg *Config) *Middleware {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.AddressHeader == "" {
		cfg.AddressHeader = DefaultAddressHeader
	}
	return &Middleware{config: cfg}
}

// Handler extracts the client address and adds it to the context.
// A missing address is recorded as requestcontext.UnknownAddress.
func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := m.extractClientAddress(r)
		ctx := requestcontext.WithClientIP(r.Context(), ip)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *Middleware) extractClientAddress(r *http.Request) string {
	raw := r.Header.Get(m.config.AddressHeader)
	if raw == "" {
		return requestcontext.UnknownAddress
	}
	if len(m.config.TrustedProxies) > 0 && !m.isTrustedProxy(parseRemoteAddr(r.RemoteAddr)) {
		return requestcontext.UnknownAddress
	}
	if len(raw) > MaxAddressHeaderLength {
		raw = raw[:MaxAddressHeaderLength]
	}

	first, _, _ := strings.Cut(raw, ",")
	first = strings.TrimSpace(first)
	if first == "" {
		return requestcontext.UnknownAddress
	}
	return first
}

func (m *Middleware) isTrustedProxy(ip string) bool {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	for _, prefix := range m.config.TrustedProxies {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}

// parseRemoteAddr extracts the IP from RemoteAddr (strips port).
func parseRemoteAddr(remoteAddr string) string {
	if addrPort, err := netip.ParseAddrPort(remoteAddr); err == nil {
		return addrPort.Addr().String()
	}
	return strings.Trim(remoteAddr, "[]")
}
