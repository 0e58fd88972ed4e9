package http

import (
	"net"
	"net/http"
	"time"

	log "github.com/echocat/slf4g"
	"github.com/go-chi/chi/v5/middleware"
)

func remoteHost(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}

// isLocal accepts loopback, private and link-local addresses.
func isLocal(remoteAddr string) bool {
	ip := net.ParseIP(remoteHost(remoteAddr))
	if ip == nil {
		return false
	}
	return ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast()
}

func (s *Server) localOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.opts.AllowNonLocal && !isLocal(r.RemoteAddr) {
			log.With("remote", r.RemoteAddr).
				With("path", r.URL.Path).
				Debug("Rejected request from non local address.")
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Only local IPs allowed"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		log.With("method", r.Method).
			With("path", r.URL.Path).
			With("remote", r.RemoteAddr).
			With("status", ww.Status()).
			With("duration", time.Since(start)).
			Debug("Request served.")
	})
}
