package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"ledger/internal/amqp"
	"ledger/internal/core"
	"ledger/internal/log"
)

// TriggerLedgerChanged is the HX-Trigger event clients re-fetch on.
const TriggerLedgerChanged = "ledger:changed"

// ResponseBuilder provides a fluent API for JSON responses carrying
// HX-Trigger events.
type ResponseBuilder struct {
	triggers   map[string]any
	statusCode int
	body       any
	headers    map[string]string
}

// NewResponse creates a new response builder with default 200 status.
func NewResponse() *ResponseBuilder {
	return &ResponseBuilder{
		triggers:   make(map[string]any),
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

// Status sets the HTTP status code for the response.
func (b *ResponseBuilder) Status(code int) *ResponseBuilder {
	b.statusCode = code
	return b
}

// Trigger adds a named trigger with optional data to the HX-Trigger header.
func (b *ResponseBuilder) Trigger(name string, data any) *ResponseBuilder {
	b.triggers[name] = data
	return b
}

// TriggerLedgerChanged announces a committed mutation to the client.
func (b *ResponseBuilder) TriggerLedgerChanged(entity amqp.Entity, action amqp.Action, id string, version int64) *ResponseBuilder {
	data := map[string]any{
		"entity": string(entity),
		"action": string(action),
		"id":     id,
	}
	if version > 0 {
		data["version"] = version
	}
	return b.Trigger(TriggerLedgerChanged, data)
}

// Header adds a custom header to the response.
func (b *ResponseBuilder) Header(name, value string) *ResponseBuilder {
	b.headers[name] = value
	return b
}

// JSON sets the value encoded as the response body.
func (b *ResponseBuilder) JSON(v any) *ResponseBuilder {
	b.body = v
	return b
}

// Write sends the built response to the http.ResponseWriter.
func (b *ResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}

	if len(b.triggers) > 0 {
		if triggerJSON, err := json.Marshal(b.triggers); err == nil {
			w.Header().Set("HX-Trigger", string(triggerJSON))
		}
	}

	if b.body == nil {
		w.WriteHeader(b.statusCode)
		return
	}

	payload, err := json.Marshal(b.body)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal","message":"failed to encode response"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(b.statusCode)
	_, _ = w.Write(payload)
	_, _ = w.Write([]byte("\n"))
}

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// StatusFor maps an error to its HTTP status by kind.
func StatusFor(err error) int {
	var maxErr *http.MaxBytesError
	switch {
	case errors.As(err, &maxErr):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, core.ErrNotFound),
		errors.Is(err, core.ErrNoOutstandingDue),
		errors.Is(err, core.ErrAlreadySettled):
		return http.StatusNotFound
	case errors.Is(err, core.ErrInvalidState), errors.Is(err, core.ErrConflict):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrValidation):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// ErrorResponse builds the error response for err. Internal errors do not
// leak their message.
func ErrorResponse(err error) *ResponseBuilder {
	status := StatusFor(err)
	body := ErrorBody{Error: core.Kind(err), Message: err.Error()}
	if status == http.StatusInternalServerError {
		body = ErrorBody{Error: "internal", Message: "internal server error"}
	}
	return NewResponse().Status(status).JSON(body)
}

// writeError logs server-side failures and writes the mapped error response.
func writeError(w http.ResponseWriter, r *http.Request, operation string, err error) {
	if StatusFor(err) >= http.StatusInternalServerError {
		log.Structured(r.Context()).LogError(r.Context(), "Request failed", err, operation, nil)
	} else {
		log.FromContext(r.Context()).DebugContext(r.Context(), "Request rejected",
			log.FieldOperation, operation,
			log.FieldErrorKind, core.Kind(err),
			log.FieldError, err.Error())
	}
	ErrorResponse(err).Write(w)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	NewResponse().Status(status).JSON(v).Write(w)
}

// writeMutation answers a successful write and triggers a client refresh.
func writeMutation(w http.ResponseWriter, r *http.Request, status int, v any, entity amqp.Entity, action amqp.Action, id string, version int64) {
	log.Structured(r.Context()).LogLedgerChange(r.Context(), string(entity), string(action), id, version)
	NewResponse().
		Status(status).
		TriggerLedgerChanged(entity, action, id, version).
		JSON(v).
		Write(w)
}
