package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"
)

func TestErrorIsMatchesByCode(t *testing.T) {
	err := New(CodeNotInitialized, "instance folder has no configuration")
	if !stderrors.Is(err, New(CodeNotInitialized, "different message")) {
		t.Fatalf("expected errors with the same code to match")
	}
	if stderrors.Is(err, New(CodePluginSetup, "")) {
		t.Fatalf("expected errors with different codes not to match")
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := stderrors.New("disk full")
	err := Wrap(CodeConfigCommit, "write config", cause)
	if !stderrors.Is(err, cause) {
		t.Fatalf("expected wrapped cause to be found in chain")
	}
	if got := CodeOf(err); got != CodeConfigCommit {
		t.Fatalf("CodeOf = %q, want %q", got, CodeConfigCommit)
	}
}

func TestCodeOfThroughFmtWrap(t *testing.T) {
	inner := New(CodePluginImport, "no registered entry point")
	outer := fmt.Errorf("load plugin: %w", inner)
	if !IsCode(outer, CodePluginImport) {
		t.Fatalf("expected code to survive fmt.Errorf wrapping")
	}
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, http.StatusOK},
		{"not found", New(CodeNotFound, ""), http.StatusNotFound},
		{"maintenance", New(CodeMaintenance, ""), http.StatusServiceUnavailable},
		{"invalid input", New(CodeInvalidInput, ""), http.StatusBadRequest},
		{"forbidden", New(CodeForbidden, ""), http.StatusForbidden},
		{"plain error", stderrors.New("boom"), http.StatusInternalServerError},
		{"internal", New(CodeInternal, ""), http.StatusInternalServerError},
	}
	for _, tc := range tests {
		if got := HTTPStatus(tc.err); got != tc.want {
			t.Fatalf("%s: HTTPStatus = %d, want %d", tc.name, got, tc.want)
		}
	}
}

func TestWithMetadata(t *testing.T) {
	err := WithMetadata(CodePluginSetup, "setup failed", map[string]string{
		"plugin": "eric_the_fish",
	})
	if err.Metadata["plugin"] != "eric_the_fish" {
		t.Fatalf("metadata not preserved: %#v", err.Metadata)
	}
}
