package render

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/podnetwork/pod-sdk-sub000/db"
	"github.com/podnetwork/pod-sdk-sub000/logging"
)

func JSON(w http.ResponseWriter, r *http.Request, status int, res interface{}) {
	blob, err := marshal(r, res)
	if err != nil {
		Error(w, r, fmt.Errorf("failed to marshal JSON result: %w", err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err = w.Write(blob); err != nil {
		logging.LoggerFromContext(r.Context()).WithError(err).Warn("failed to write response")
	}
}

func marshal(r *http.Request, res interface{}) ([]byte, error) {
	if pretty, _ := strconv.ParseBool(r.URL.Query().Get("pretty")); pretty {
		return json.MarshalIndent(res, "", "  ")
	}
	return json.Marshal(res)
}

// Error reports missing journal rows as 404, everything else as 500.
func Error(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, db.ErrNotFound) {
		JSON(w, r, http.StatusNotFound, err.Error())
		return
	}
	logger := logging.LoggerFromContext(r.Context())
	logger.WithError(err).Error("request handling failed")
	http.Error(w, err.Error(), http.StatusInternalServerError)
}
