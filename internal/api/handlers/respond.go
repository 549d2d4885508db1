package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/wonny/kassandra/internal/contracts"
)

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}

// statusFor maps pipeline error kinds to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, contracts.ErrInvalidRange):
		return http.StatusBadRequest
	case errors.Is(err, contracts.ErrDataUnavailable):
		return http.StatusNotFound
	case errors.Is(err, contracts.ErrInsufficientHistory),
		errors.Is(err, contracts.ErrInsufficientData),
		errors.Is(err, contracts.ErrZeroVariance),
		errors.Is(err, contracts.ErrInvalidSeries):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
