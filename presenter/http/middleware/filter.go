package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"

	"github.com/podnetwork/pod-sdk-sub000/entity"
	"github.com/podnetwork/pod-sdk-sub000/presenter/http/render"
)

type ctxKey int

const (
	requestIDCtxKey ctxKey = iota
	statusesCtxKey
	filterCtxKey
)

type FilterContext struct {
	RequestID *common.Hash
	Statuses  []entity.Status
}

func GetRequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := chi.URLParam(r, "requestID")

		if requestID == "" {
			requestID = r.URL.Query().Get("requestId")
			if requestID == "" {
				next.ServeHTTP(w, r)
				return
			}
		}

		ctx := context.WithValue(r.Context(), requestIDCtxKey, common.HexToHash(requestID))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetStatusMiddleware accepts both repeated and comma separated status parameters.
func GetStatusMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var statuses []entity.Status
		for _, param := range r.URL.Query()["status"] {
			for _, s := range strings.Split(param, ",") {
				status, err := entity.ParseStatus(strings.TrimSpace(s))
				if err != nil {
					render.JSON(w, r, http.StatusBadRequest, fmt.Sprintf("invalid status filter: %s", err))
					return
				}
				statuses = append(statuses, status)
			}
		}
		if len(statuses) == 0 {
			next.ServeHTTP(w, r)
			return
		}

		ctx := context.WithValue(r.Context(), statusesCtxKey, statuses)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func GetFilterMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		filter := &FilterContext{}

		if requestID, ok := ctx.Value(requestIDCtxKey).(common.Hash); ok {
			filter.RequestID = &requestID
		}
		if statuses, ok := ctx.Value(statusesCtxKey).([]entity.Status); ok {
			filter.Statuses = statuses
		}

		ctx = context.WithValue(ctx, filterCtxKey, filter)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func GetFilterContext(ctx context.Context) *FilterContext {
	if cfg, ok := ctx.Value(filterCtxKey).(*FilterContext); ok {
		return cfg
	}
	return new(FilterContext)
}
