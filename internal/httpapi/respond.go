package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"marketplace-be/internal/apperror"
	"marketplace-be/internal/logger"

	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

var errInvalidJSON = apperror.InvalidRequest("invalid JSON body")

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError answers with the status and code of err's kind. Messages of
// non-application errors are replaced.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperror.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		logger.FromCtx(r.Context()).Error("request failed",
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
	}

	writeJSON(w, status, errorBody{
		Error: apperror.PublicMessage(err),
		Code:  string(apperror.KindOf(err)),
	})
}

// decodeJSON reads exactly one JSON object into dst, rejecting unknown
// fields.
func decodeJSON(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		return errInvalidJSON
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errInvalidJSON
	}
	return nil
}
