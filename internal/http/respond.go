package httpserver

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
)

const maxRequestBody = 1 << 20 // 1 MiB

const (
	codeBadRequest      = "BAD_REQUEST"
	codeUnauthorized    = "UNAUTHORIZED"
	codeNotFound        = "NOT_FOUND"
	codeConflict        = "CONFLICT"
	codeValidation      = "VALIDATION_ERROR"
	codePayloadTooLarge = "PAYLOAD_TOO_LARGE"
	codeRateLimited     = "RATE_LIMITED"
	codeInternal        = "INTERNAL_ERROR"
)

// errTrailingData is returned when a body holds more than one JSON value.
var errTrailingData = errors.New("request body must contain a single JSON value")

const msgUnauthenticated = "Missing or invalid authentication information"

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their JSON names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	// maxbytes bounds the encoded length of a string, unlike max which counts runes.
	_ = v.RegisterValidation("maxbytes", func(fl validator.FieldLevel) bool {
		limit, err := strconv.Atoi(fl.Param())
		if err != nil {
			return false
		}
		return len(fl.Field().String()) <= limit
	})
	return v
}

func decodeJSONBody(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	defer r.Body.Close()
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		return err
	}
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	var extra interface{}
	if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
		return errTrailingData
	}
	return nil
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			s.logger.Error().Err(err).Msg("failed to encode response")
		}
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, code, message string) {
	s.respondJSON(w, status, errorResponse{
		Code:    code,
		Message: message,
	})
}

func (s *Server) respondMessage(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, messageResponse{Message: message})
}

func (s *Server) respondUnauthorized(w http.ResponseWriter) {
	s.respondError(w, http.StatusUnauthorized, codeUnauthorized, msgUnauthenticated)
}

func (s *Server) respondDecodeError(w http.ResponseWriter, err error) {
	var syntaxError *json.SyntaxError
	var typeError *json.UnmarshalTypeError
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		s.respondError(w, http.StatusRequestEntityTooLarge, codePayloadTooLarge, "Request body too large")
	case errors.Is(err, errTrailingData):
		s.respondError(w, http.StatusBadRequest, codeBadRequest, "Request body must contain a single JSON object")
	case errors.As(err, &syntaxError), errors.Is(err, io.ErrUnexpectedEOF):
		s.respondError(w, http.StatusUnprocessableEntity, codeValidation, "Malformed JSON payload")
	case errors.As(err, &typeError):
		s.respondError(w, http.StatusUnprocessableEntity, codeValidation, fmt.Sprintf("Invalid value for field %s", typeError.Field))
	case errors.Is(err, io.EOF):
		s.respondError(w, http.StatusUnprocessableEntity, codeValidation, "Request body cannot be empty")
	case strings.Contains(err.Error(), "unknown field"):
		s.respondError(w, http.StatusUnprocessableEntity, codeValidation, "Request body contains unknown fields")
	default:
		s.respondError(w, http.StatusBadRequest, codeBadRequest, "Unable to parse request body")
	}
}

// respondValidationError reports the first failing field of a validator error.
func (s *Server) respondValidationError(w http.ResponseWriter, err error) {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		s.respondError(w, http.StatusUnprocessableEntity, codeValidation, "Invalid request body")
		return
	}
	s.respondError(w, http.StatusUnprocessableEntity, codeValidation, validationMessage(fieldErrs[0]))
}

func validationMessage(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "email":
		return fmt.Sprintf("%s must be a valid email address", field)
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", field, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "maxbytes":
		return fmt.Sprintf("%s must be at most %s bytes", field, fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
