package middleware

import (
	"net"
	"net/http"

	"github.com/gorilla/mux"

	"griffin/internal/metrics"
	"griffin/pkg/ratelimit"
)

// RateLimit ограничивает частоту запросов per-client по IP.
//
// Вешается только на ингест-endpoints: один сломанный пробник,
// заливающий тики в цикле, не должен выедать ресурсы анализа.
// Отклонённый тик не повторяется - следующий принесёт более свежую цену,
// поэтому ответ 429 без Retry-After.
func RateLimit(limiter *ratelimit.KeyedLimiter) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow(clientKey(r)) {
				metrics.RateLimited.Inc()
				http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// clientKey извлекает IP клиента из адреса соединения.
func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
