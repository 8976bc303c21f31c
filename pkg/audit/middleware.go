package audit

import (
	"context"
	"net/http"
	"time"

	"github.com/critiquelabs/critique/pkg/async"
	"github.com/critiquelabs/critique/pkg/auth"
	"github.com/critiquelabs/critique/pkg/contextkeys"
	"github.com/critiquelabs/critique/pkg/observability"
	"github.com/critiquelabs/critique/pkg/rbac"
)

const recordTimeout = 5 * time.Second

// statusWriter captures the response status for the recorded event.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Middleware records every mutating request made by an authenticated
// user. Recording happens off the request goroutine so a slow or
// failing audit write never delays the response.
func Middleware(recorder Recorder, log *observability.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if rbac.SafeMethod(r.Method) {
				next.ServeHTTP(w, r)
				return
			}

			actor, _ := r.Context().Value(contextkeys.ActorKey).(*auth.User)
			if actor == nil {
				next.ServeHTTP(w, r)
				return
			}

			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sw, r)

			event := Event{
				Actor:     actor.Username,
				Method:    r.Method,
				Path:      r.URL.Path,
				Status:    sw.status,
				RequestID: contextkeys.RequestID(r.Context()),
			}

			async.Go(log, "audit-record", func() {
				ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
				defer cancel()
				if err := recorder.Record(ctx, event); err != nil {
					log.WithError(err).
						WithField("actor", event.Actor).
						WithField("path", event.Path).
						Warn("failed to record audit event")
				}
			})
		})
	}
}
