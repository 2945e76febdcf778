package router

import (
	"log/slog"
	"net/http"
	"net/netip"
	"strings"

	"github.com/samber/lo"
	"github.com/shandysiswandi/gettoken/internal/pkg/config"
)

// middlewareIP replaces RemoteAddr with the client address. Forwarding
// headers are honoured only when the peer is one of app.server.trusted_proxies.
func middlewareIP(cfg config.Config) Middleware {
	trusted := trustedProxies(cfg)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if ip := clientIP(r, trusted); ip.IsValid() {
				r.RemoteAddr = ip.String()
			}
			next.ServeHTTP(w, r)
		})
	}
}

func trustedProxies(cfg config.Config) []netip.Prefix {
	if cfg == nil {
		return nil
	}

	var prefixes []netip.Prefix
	for _, raw := range cfg.GetArray("app.server.trusted_proxies") {
		p, err := netip.ParsePrefix(raw)
		if err != nil {
			addr, aerr := netip.ParseAddr(raw)
			if aerr != nil {
				slog.Warn("ignoring invalid trusted proxy", "value", raw, "error", err)
				continue
			}
			p = netip.PrefixFrom(addr, addr.BitLen())
		}
		prefixes = append(prefixes, p.Masked())
	}

	return prefixes
}

func isTrusted(addr netip.Addr, trusted []netip.Prefix) bool {
	addr = addr.Unmap()
	return lo.ContainsBy(trusted, func(p netip.Prefix) bool { return p.Contains(addr) })
}

func peerAddr(remote string) netip.Addr {
	if ap, err := netip.ParseAddrPort(remote); err == nil {
		return ap.Addr().Unmap()
	}
	if addr, err := netip.ParseAddr(remote); err == nil {
		return addr.Unmap()
	}
	return netip.Addr{}
}

func clientIP(r *http.Request, trusted []netip.Prefix) netip.Addr {
	peer := peerAddr(r.RemoteAddr)
	if !peer.IsValid() || !isTrusted(peer, trusted) {
		return peer
	}

	for _, h := range []string{"True-Client-IP", "X-Real-IP"} {
		if addr, err := netip.ParseAddr(strings.TrimSpace(r.Header.Get(h))); err == nil {
			return addr.Unmap()
		}
	}

	// The right-most untrusted hop is the first address a trusted proxy saw.
	hops := strings.Split(r.Header.Get("X-Forwarded-For"), ",")
	for i := len(hops) - 1; i >= 0; i-- {
		addr, err := netip.ParseAddr(strings.TrimSpace(hops[i]))
		if err != nil {
			break
		}
		if !isTrusted(addr, trusted) {
			return addr.Unmap()
		}
	}

	return peer
}
