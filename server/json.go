package server

import (
	"encoding/json"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/jrsteele09/dashboard-session/internal/errors"
)

const (
	contentTypeJSON = "application/json"
	maxBodySize     = 1 << 20
)

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeDetail writes an Identity Service style error: {"detail": "..."}.
func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

// writeError writes a resource API style error: {"message": "..."}.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}

func writeValidationError(w http.ResponseWriter, ve ValidationError) {
	writeJSON(w, http.StatusBadRequest, map[string]any{
		"message": ve.First(),
		"detail":  ve.First(),
		"errors":  ve.Errors,
	})
}

// decodeAndValidate reads a JSON body into dst and validates it. On failure it
// has already written the response.
func (s *Server) decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodySize))
	if err := dec.Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"message": "Invalid JSON body",
			"detail":  "Invalid JSON body",
		})
		return false
	}
	if err := s.validator.Validate(dst); err != nil {
		var ve ValidationError
		if errors.As(err, &ve) {
			writeValidationError(w, ve)
			return false
		}
		s.log.Error().Err(err).Msg("validating request")
		writeError(w, http.StatusInternalServerError, "internal server error")
		return false
	}
	return true
}

func jsonFieldName(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	if name == "" {
		return fld.Name
	}
	return name
}
