package middleware

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// RequestLogger writes one structured event per request. Client addresses
// are hashed and feedback tokens are replaced before anything is logged.
func RequestLogger(log zerolog.Logger, trustProxy bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}

			evt := log.Info()
			if status >= 500 {
				evt = log.Error()
			} else if status >= 400 {
				evt = log.Warn()
			}

			evt.
				Str("method", r.Method).
				Str("path", sanitizePath(r.URL.Path)).
				Int("status", status).
				Dur("duration_ms", time.Since(start)).
				Str("ip_hash", hashIPForLog(ClientIP(r, trustProxy))).
				Int("bytes_sent", ww.BytesWritten()).
				Str("request_id", chimw.GetReqID(r.Context())).
				Msg("request")
		})
	}
}

// hashIPForLog produces a short, irreversible hash prefix of the IP address
// for log correlation without storing raw PII.
func hashIPForLog(ip string) string {
	h := sha256.Sum256([]byte(ip))
	return hex.EncodeToString(h[:])[:12]
}

// sanitizePath replaces the token segment of /feedback/<token> so signed
// links never end up in logs.
func sanitizePath(path string) string {
	parts := strings.Split(path, "/")
	for i := 1; i < len(parts)-1; i++ {
		if parts[i] == "feedback" && parts[i+1] != "" {
			parts[i+1] = ":token"
		}
	}
	return strings.Join(parts, "/")
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
