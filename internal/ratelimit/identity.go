package ratelimit

import (
	"net"
	"net/http"
	"strings"
)

// HeaderForwardedFor é o header preenchido por proxies (Vercel, Railway, nginx)
const HeaderForwardedFor = "X-Forwarded-For"

// ClientIdentity extrai o IP real do cliente: primeiro valor do
// X-Forwarded-For, senão o endereço do peer
func ClientIdentity(r *http.Request) string {
	if forwarded := r.Header.Get(HeaderForwardedFor); forwarded != "" {
		first := strings.TrimSpace(strings.Split(forwarded, ",")[0])
		if first != "" {
			return first
		}
	}

	if r.RemoteAddr == "" {
		return "unknown"
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
