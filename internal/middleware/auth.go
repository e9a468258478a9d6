package middleware

import (
	"net"
	"net/http"
)

// LocalOnly rejects requests that do not come from a loopback address unless
// allowRemote is set. The metrics endpoint is always reachable so a scraper
// on another host can collect it.
func LocalOnly(allowRemote bool, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if allowRemote || r.URL.Path == "/metrics" || isLoopback(r.RemoteAddr) {
			next.ServeHTTP(w, r)
			return
		}
		http.Error(w, "Forbidden", http.StatusForbidden)
	})
}

func isLoopback(remoteAddr string) bool {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		host = remoteAddr
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
