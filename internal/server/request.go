package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/jonathan/resume-review/internal/server/middleware"
)

const maxBodyBytes = 2 << 20

// newValidator reports fields by their JSON names
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decode reads a JSON body into v. An empty body is accepted when optional.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any, optional bool) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if optional && errors.Is(err, io.EOF) {
			return nil
		}
		return badRequest(err, "invalid JSON body")
	}
	if dec.More() {
		return badRequest(nil, "invalid JSON body: trailing data")
	}
	return nil
}

func (s *Server) check(v any) error {
	if err := s.validate.Struct(v); err != nil {
		return badRequest(err, "invalid request")
	}
	return nil
}

// owner returns the authenticated owner or writes 401
func (s *Server) owner(w http.ResponseWriter, r *http.Request) (string, bool) {
	ownerID, err := middleware.GetOwnerID(r)
	if err != nil {
		s.jsonResponse(w, http.StatusUnauthorized, errorBody{Error: "Unauthorized"})
		return "", false
	}
	return ownerID, true
}

// queryInt parses a positive integer query parameter, capped at max when max > 0
func queryInt(r *http.Request, key string, def, max int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, badRequest(err, "invalid %s", key)
	}
	if max > 0 && n > max {
		n = max
	}
	return n, nil
}
