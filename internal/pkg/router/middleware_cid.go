package router

import (
	"net/http"
	"strings"
	"unicode"

	"github.com/shandysiswandi/gettoken/internal/pkg/instrument"
	"github.com/shandysiswandi/gettoken/internal/pkg/uid"
)

const (
	// HeaderCorrelationID carries the correlation ID in requests and responses.
	HeaderCorrelationID = "X-Correlation-ID"
	// HeaderRequestID is accepted as a fallback from proxies that set it.
	HeaderRequestID = "X-Request-ID"

	maxCorrelationIDLen = 128
)

// incomingCorrelationID returns the first usable ID from the request headers.
// Values with control characters are discarded; long values are truncated.
func incomingCorrelationID(h http.Header) string {
	for _, key := range []string{HeaderCorrelationID, HeaderRequestID} {
		v := strings.TrimSpace(h.Get(key))
		if v == "" || strings.IndexFunc(v, func(r rune) bool { return !unicode.IsPrint(r) }) >= 0 {
			continue
		}
		if len(v) > maxCorrelationIDLen {
			v = v[:maxCorrelationIDLen]
		}
		return v
	}

	return ""
}

// middlewareCorrelationID propagates the correlation ID to the context, where
// logs and published audit events pick it up, and echoes it to the client.
func middlewareCorrelationID(gen uid.StringID) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cid := incomingCorrelationID(r.Header)
			if cid == "" && gen != nil {
				cid = gen.Generate()
			}

			if cid != "" {
				w.Header().Set(HeaderCorrelationID, cid)
				r = r.WithContext(instrument.SetCorrelationID(r.Context(), cid))
			}

			next.ServeHTTP(w, r)
		})
	}
}
