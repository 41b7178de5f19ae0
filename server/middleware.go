package server

import (
	"context"
	"net/http"

	"github.com/birmacher/dealing-with-ai/gateway"
	"github.com/birmacher/dealing-with-ai/logger"
	"github.com/birmacher/dealing-with-ai/model"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RequestIDHeader carries the request id in both directions
const RequestIDHeader = "X-Request-ID"

type requestIDKey struct{}

// RequestID returns the id assigned to the request, if any
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func requestLogger(ctx context.Context) *zap.SugaredLogger {
	return logger.With("request_id", RequestID(ctx))
}

func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)

		ctx := context.WithValue(r.Context(), requestIDKey{}, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func withRecovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				requestLogger(r.Context()).Errorw("Recovered from panic in handler",
					"path", r.URL.Path, "panic", rec)
				writeJSON(w, http.StatusInternalServerError, model.Failure(gateway.GenericMessage))
			}
		}()
		next.ServeHTTP(w, r)
	})
}
