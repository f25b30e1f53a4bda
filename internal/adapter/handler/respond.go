package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"btcinvest/internal/domain/model"
)

const maxBodyBytes = 1 << 20

var validate = validator.New(validator.WithRequiredStructEnabled())

type errorResponse struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Message: msg})
}

// writeError maps domain error kinds to HTTP status codes. Anything unclassified is a 500.
func writeError(w http.ResponseWriter, log *slog.Logger, err error) {
	status, msg := http.StatusInternalServerError, "Unexpected error"

	switch model.KindOf(err) {
	case model.KindValidation:
		status, msg = http.StatusBadRequest, "Data provided is not valid"
	case model.KindInvalidCredentials:
		status, msg = http.StatusUnauthorized, "Invalid credentials"
	case model.KindUnauthorized:
		status, msg = http.StatusUnauthorized, "Unauthorized"
	case model.KindAccountNotFound:
		status, msg = http.StatusBadRequest, "Account not found"
	case model.KindEmailTaken:
		status, msg = http.StatusBadRequest, "Email already in use"
	case model.KindOriginUnavailable:
		status, msg = http.StatusBadGateway, "Error when trying to obtain BTC price"
	case model.KindCacheUnavailable, model.KindQueueUnavailable:
		status, msg = http.StatusServiceUnavailable, "Service temporarily unavailable"
	case model.KindCacheCorrupted:
		status, msg = http.StatusInternalServerError, "Unexpected error"
	}
	if m := model.MessageOf(err); m != "" && status < http.StatusInternalServerError {
		msg = m
	}

	if status >= http.StatusInternalServerError {
		log.Error("request failed", "status", status, "error", err)
	} else {
		log.Warn("request rejected", "status", status, "error", err)
	}
	writeMessage(w, status, msg)
}

// decodeAndValidate reads a JSON body into dst and runs its validate tags.
func decodeAndValidate(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		return model.Errorf(model.KindValidation, "handler.decode", "Invalid JSON body")
	}
	if err := validate.Struct(dst); err != nil {
		return model.Errorf(model.KindValidation, "handler.validate", "%s", describeValidation(err))
	}
	return nil
}

func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return "Data provided is not valid"
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.ToLower(fe.Field()[:1]) + fe.Field()[1:]
		switch fe.Tag() {
		case "required":
			parts = append(parts, fmt.Sprintf("%s is required", field))
		case "email":
			parts = append(parts, "Invalid email")
		case "min":
			parts = append(parts, fmt.Sprintf("%s must have at least %s characters", field, fe.Param()))
		case "max":
			parts = append(parts, fmt.Sprintf("%s must have at most %s characters", field, fe.Param()))
		case "lte":
			parts = append(parts, fmt.Sprintf("%s must not exceed %s", field, fe.Param()))
		case "gt":
			parts = append(parts, fmt.Sprintf("%s must be greater than %s", field, fe.Param()))
		default:
			parts = append(parts, fmt.Sprintf("%s is not valid", field))
		}
	}
	return strings.Join(parts, "; ")
}
