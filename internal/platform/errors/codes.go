// Package errors provides structured error handling for the engine core.
package errors

import (
	stderrors "errors"
	"net/http"
)

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Lifecycle errors
	CodeNotInitialized Code = "INSTANCE_NOT_INITIALIZED"
	CodeSetupWindow    Code = "SETUP_WINDOW_CLOSED"
	CodeContextBinding Code = "CONTEXT_BINDING_CONFLICT"

	// Plugin errors
	CodePluginImport Code = "PLUGIN_IMPORT_FAILED"
	CodePluginSetup  Code = "PLUGIN_SETUP_FAILED"

	// Configuration errors
	CodeConfigCommit  Code = "CONFIG_COMMIT_FAILED"
	CodeConfigUnknown Code = "CONFIG_UNKNOWN_KEY"

	// Request errors
	CodeNotFound     Code = "NOT_FOUND"
	CodeInvalidInput Code = "INVALID_INPUT"
	CodeForbidden    Code = "FORBIDDEN"
	CodeMaintenance  Code = "MAINTENANCE_MODE"

	// Storage errors
	CodeStorage Code = "STORAGE_FAILURE"

	// CodeInternal represents an unclassified internal failure.
	CodeInternal Code = "INTERNAL"
)

// HTTPStatus maps the code to an HTTP status code.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeNotFound:
		return http.StatusNotFound
	case CodeInvalidInput, CodeConfigUnknown:
		return http.StatusBadRequest
	case CodeForbidden:
		return http.StatusForbidden
	case CodeMaintenance:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// CodeOf extracts the domain code from an error chain, or CodeUnknown.
func CodeOf(err error) Code {
	var domainErr *Error
	if stderrors.As(err, &domainErr) {
		return domainErr.Code
	}
	return CodeUnknown
}

// IsCode reports whether the error chain carries the given code.
func IsCode(err error, code Code) bool {
	return CodeOf(err) == code
}

// HTTPStatus maps an error to an HTTP status code.
func HTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}
	var domainErr *Error
	if !stderrors.As(err, &domainErr) {
		return http.StatusInternalServerError
	}
	return domainErr.Code.HTTPStatus()
}
