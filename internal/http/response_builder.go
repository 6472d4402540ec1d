// Package http provides HTTP server and handler implementations.
//
// This file implements the Builder Pattern for constructing JSON responses.
// Every handler answers through it so success and error bodies share one
// shape: {"status":"success",...} or {"status":"error","message":...}.

package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"salesdash/internal/core"
)

const (
	statusSuccess = "success"
	statusError   = "error"

	// upstreamRetryAfter is the Retry-After hint sent with 503 responses.
	upstreamRetryAfter = 30

	// statusClientClosedRequest marks requests whose caller went away.
	statusClientClosedRequest = 499
)

// JSONResponseBuilder provides a fluent API for building JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	body       any
	headers    map[string]string
}

// NewJSONResponse creates a new response builder with default 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

// Status sets the HTTP status code for the response.
func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

// Header adds a custom header to the response.
func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// Body sets the value encoded as the response body.
func (b *JSONResponseBuilder) Body(v any) *JSONResponseBuilder {
	b.body = v
	return b
}

// StatusCode returns the status the builder will write.
func (b *JSONResponseBuilder) StatusCode() int {
	return b.statusCode
}

// Write sends the built response to the http.ResponseWriter.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	if b.body == nil {
		w.WriteHeader(b.statusCode)
		return
	}

	data, err := json.Marshal(b.body)
	if err != nil {
		slog.Error("Failed to encode response body", "error", err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"status":"error","message":"internal error"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(b.statusCode)
	_, _ = w.Write(data)
	_, _ = w.Write([]byte("\n"))
}

// SuccessResponse wraps fields in a {"status":"success"} envelope.
func SuccessResponse(fields map[string]any) *JSONResponseBuilder {
	body := map[string]any{"status": statusSuccess}
	for k, v := range fields {
		body[k] = v
	}
	return NewJSONResponse().Body(body)
}

// ErrorResponse creates a standard error response.
func ErrorResponse(statusCode int, message string) *JSONResponseBuilder {
	return NewJSONResponse().
		Status(statusCode).
		Body(map[string]string{"status": statusError, "message": message})
}

// BadRequestError creates a 400 Bad Request error response.
func BadRequestError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message)
}

// UnprocessableEntityError creates a 422 Unprocessable Entity error response.
func UnprocessableEntityError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusUnprocessableEntity, message)
}

// InternalServerError creates a 500 Internal Server Error response.
func InternalServerError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, message)
}

// NotFoundError creates a 404 Not Found error response.
func NotFoundError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusNotFound, message)
}

// MethodNotAllowedError creates a 405 Method Not Allowed error response.
func MethodNotAllowedError(allowedMethods string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusMethodNotAllowed, "method not allowed").
		Header("Allow", allowedMethods)
}

// TooManyRequestsError creates a 429 response asking the client to wait.
func TooManyRequestsError(retryAfterSeconds int) *JSONResponseBuilder {
	return ErrorResponse(http.StatusTooManyRequests, "rate limit exceeded, please try again later").
		Header("Retry-After", strconv.Itoa(retryAfterSeconds))
}

// ServiceUnavailableError creates a 503 response with a Retry-After hint.
func ServiceUnavailableError(message string, retryAfterSeconds int) *JSONResponseBuilder {
	b := ErrorResponse(http.StatusServiceUnavailable, message)
	if retryAfterSeconds > 0 {
		b.Header("Retry-After", strconv.Itoa(retryAfterSeconds))
	}
	return b
}

// ErrorFromErr maps a domain error to its response. Unknown errors become a
// 500 without leaking the cause.
func ErrorFromErr(err error) *JSONResponseBuilder {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		return ErrorResponse(http.StatusRequestEntityTooLarge, "request body too large")
	case errors.Is(err, core.ErrSeriesTooLong):
		return ErrorResponse(http.StatusRequestEntityTooLarge, err.Error())
	case errors.Is(err, errMalformedBody):
		return BadRequestError(err.Error())
	case errors.Is(err, core.ErrInvalidInput):
		return UnprocessableEntityError(err.Error())
	case errors.Is(err, core.ErrNotFound):
		return NotFoundError(err.Error())
	case errors.Is(err, core.ErrUnsupported):
		return ErrorResponse(http.StatusNotImplemented, err.Error())
	case errors.Is(err, core.ErrUpstreamUnavailable):
		return ServiceUnavailableError("sales data source unavailable", upstreamRetryAfter)
	case errors.Is(err, context.Canceled):
		return ErrorResponse(statusClientClosedRequest, "request cancelled")
	default:
		return InternalServerError("internal error")
	}
}
