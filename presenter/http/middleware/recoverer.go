package middleware

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/podnetwork/pod-sdk-sub000/logging"
	"github.com/podnetwork/pod-sdk-sub000/presenter/http/render"
)

// Recoverer turns a handler panic into a 500 response carrying the http request id.
func Recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler { //nolint:errorlint
				panic(rec)
			}
			logger := logging.LoggerFromContext(r.Context())
			if err, ok := rec.(error); ok {
				logger = logger.WithError(err)
			} else {
				logger = logger.WithField("recovered", rec)
			}
			logger.Error("recovered panic in http handler")
			render.JSON(w, r, http.StatusInternalServerError,
				fmt.Sprintf("internal error, request %s", middleware.GetReqID(r.Context())))
		}()
		next.ServeHTTP(w, r)
	})
}
