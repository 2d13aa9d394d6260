package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/xraph/dues"
	"github.com/xraph/dues/internal/validation"
	"github.com/xraph/dues/period"
)

// statusFor maps an engine error category to an HTTP status.
func statusFor(err error) int {
	switch {
	case dues.IsNotFound(err):
		return http.StatusNotFound
	case errors.Is(err, dues.ErrPeriodNotDue), dues.IsConflict(err), dues.IsInvalidTransition(err):
		return http.StatusConflict
	case errors.Is(err, dues.ErrChargePaid), dues.IsValidation(err):
		return http.StatusUnprocessableEntity
	case dues.IsUnavailable(err):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// fail writes err with its mapped status. Server errors are logged and
// their detail withheld.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"error", err,
		)
	}
	if status == http.StatusInternalServerError {
		writeError(w, status, http.StatusText(status))
		return
	}

	body := errorBody{Error: err.Error()}
	var multi dues.MultiError
	if errors.As(err, &multi) {
		body.Fields = make(map[string]string, len(multi.Errors))
		for _, e := range multi.Errors {
			var ve dues.ValidationError
			if errors.As(e, &ve) {
				body.Fields[ve.Field] = ve.Message
			}
		}
	}
	writeJSON(w, status, body)
}

// decode reads a JSON body into v and validates it. It writes the error
// response itself and reports whether the handler may continue.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	if err := validation.Struct(v); err != nil {
		fields := validation.Fields(err)
		if fields == nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return false
		}
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{Error: "validation failed", Fields: fields})
		return false
	}
	return true
}

func parsePeriod(s string) (period.Period, error) {
	p, err := period.Parse(s)
	if err != nil {
		return period.Period{}, fmt.Errorf("%w: %w", dues.ErrInvalidPeriod, err)
	}
	return p, nil
}

// optionalPeriod parses s, returning the zero period for "".
func optionalPeriod(s string) (period.Period, error) {
	if s == "" {
		return period.Period{}, nil
	}
	return parsePeriod(s)
}
