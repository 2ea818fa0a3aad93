package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"payrollcore/internal/requestctx"
)

func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get("X-Request-ID")
		if reqID == "" {
			reqID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", reqID)
		ctx := requestctx.WithRequestID(r.Context(), reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func GetRequestID(ctx context.Context) string {
	return requestctx.GetRequestID(ctx)
}

// Actor captures the acting user id the orchestrator forwards with each
// call. Authentication itself lives outside this service.
func Actor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor := r.Header.Get("X-Actor-ID")
		ctx := requestctx.WithActorID(r.Context(), actor)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
