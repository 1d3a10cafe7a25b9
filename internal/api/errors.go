package api

import (
	"encoding/json"
	"net/http"

	"github.com/zakazai/ulin-grid/internal/types"
)

// kind names on the wire
var kindNames = map[types.Kind]string{
	types.KindValidation:   "validation",
	types.KindNotFound:     "not_found",
	types.KindUnauthorized: "unauthorized",
	types.KindTransientIO:  "transient_io",
}

type errorResponse struct {
	Error    string `json:"error"`
	Kind     string `json:"kind,omitempty"`
	Inserted int    `json:"inserted,omitempty"`
}

// statusFor maps an error kind to its HTTP status.
func statusFor(err error) int {
	switch types.KindOf(err) {
	case types.KindValidation:
		return http.StatusBadRequest
	case types.KindNotFound:
		return http.StatusNotFound
	case types.KindUnauthorized:
		return http.StatusUnauthorized
	case types.KindTransientIO:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		json.NewEncoder(w).Encode(v)
	}
}

func writeError(w http.ResponseWriter, err error) {
	writeErrorBody(w, err, errorResponse{})
}

func writeErrorBody(w http.ResponseWriter, err error, body errorResponse) {
	body.Error = err.Error()
	body.Kind = kindNames[types.KindOf(err)]
	writeJSON(w, statusFor(err), body)
}

// decodeError rebuilds a typed error from an error response.
func decodeError(status int, body errorResponse) error {
	msg := body.Error
	if msg == "" {
		msg = http.StatusText(status)
	}
	for kind, name := range kindNames {
		if name == body.Kind {
			return &types.Error{Kind: kind, Msg: msg}
		}
	}
	if status >= 500 {
		return &types.Error{Kind: types.KindTransientIO, Msg: msg}
	}
	return &types.Error{Kind: types.KindValidation, Msg: msg}
}
