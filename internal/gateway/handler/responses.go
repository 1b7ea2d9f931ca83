package handler

import (
	"encoding/json"
	"net/http"
)

// payloadEnvelope is the success wire shape: {"payload": ...}.
type payloadEnvelope struct {
	Payload any `json:"payload"`
}

// errorEnvelope is the failure wire shape: {"errors":[{"message": ...}]}.
type errorEnvelope struct {
	Errors []errorEntry `json:"errors"`
}

type errorEntry struct {
	Message string `json:"message"`
}

func writePayload(w http.ResponseWriter, status int, payload any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payloadEnvelope{Payload: payload})
}

// writeBadRequest reports missing or malformed caller input. The message is
// deliberately generic.
func writeBadRequest(w http.ResponseWriter) {
	writeErrors(w, http.StatusBadRequest, "Bad Request.")
}

// writeInternalError reduces every internal failure to one opaque message so
// no internal detail leaks to the caller.
func writeInternalError(w http.ResponseWriter) {
	writeErrors(w, http.StatusInternalServerError, "Internal server error.")
}

func writeErrors(w http.ResponseWriter, status int, message string) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorEnvelope{Errors: []errorEntry{{Message: message}}})
}
