package resilience

import (
	"errors"
	"fmt"
	"net"
	"syscall"
	"testing"
)

func TestIsTransient_ExplicitTransientError(t *testing.T) {
	err := NewTransientError(errors.New("server overloaded"), 503)
	if !IsTransient(err) {
		t.Error("expected TransientError to be transient")
	}
}

func TestIsTransient_WrappedTransientError(t *testing.T) {
	inner := NewTransientError(errors.New("bad gateway"), 502)
	wrapped := fmt.Errorf("page fetch failed: %w", inner)
	if !IsTransient(wrapped) {
		t.Error("expected wrapped TransientError to be transient")
	}
}

func TestIsTransient_RateLimit(t *testing.T) {
	err := NewRateLimitError(errors.New("resource exhausted"))
	if !IsTransient(err) {
		t.Error("expected rate-limit error to be transient")
	}
}

func TestIsTransient_RegularError(t *testing.T) {
	if IsTransient(nil) {
		t.Error("nil error should not be transient")
	}
	if IsTransient(errors.New("invalid selector: missing field")) {
		t.Error("regular error should not be transient")
	}
}

func TestIsTransient_NetworkErrors(t *testing.T) {
	if !IsTransient(fmt.Errorf("write tcp: %w", syscall.ECONNRESET)) {
		t.Error("ECONNRESET should be transient")
	}
	if !IsTransient(&net.DNSError{IsTimeout: true, Err: "timeout"}) {
		t.Error("network timeout should be transient")
	}
	if !IsTransient(errors.New("tls handshake timeout")) {
		t.Error("TLS handshake timeout should be transient")
	}
}

func TestIsTransientHTTPStatus(t *testing.T) {
	for _, code := range []int{408, 429, 500, 502, 503, 504} {
		if !IsTransientHTTPStatus(code) {
			t.Errorf("expected HTTP %d to be transient", code)
		}
	}
	for _, code := range []int{200, 400, 401, 403, 404, 422} {
		if IsTransientHTTPStatus(code) {
			t.Errorf("expected HTTP %d to NOT be transient", code)
		}
	}
}

func TestModelErrorClassification(t *testing.T) {
	rl := fmt.Errorf("gatekeeper call: %w", NewRateLimitError(errors.New("429")))
	if !IsRateLimited(rl) {
		t.Error("expected wrapped RateLimitError to classify as rate-limited")
	}
	if !ModelRetryable(rl) {
		t.Error("rate-limited model call should be retryable")
	}

	mnf := fmt.Errorf("analyst call: %w", NewModelNotFoundError("ghost-model", errors.New("404")))
	if !IsModelNotFound(mnf) {
		t.Error("expected wrapped ModelNotFoundError to classify as not-found")
	}
	if ModelRetryable(mnf) {
		t.Error("model-not-found should never be retryable")
	}

	if ModelRetryable(errors.New("json parse failure")) {
		t.Error("generic model error should not be retryable")
	}
}

func TestErrorUnwrap(t *testing.T) {
	inner := errors.New("root cause")
	if !errors.Is(NewTransientError(inner, 500), inner) {
		t.Error("TransientError should unwrap to the inner error")
	}
	if !errors.Is(NewRateLimitError(inner), inner) {
		t.Error("RateLimitError should unwrap to the inner error")
	}
	if !errors.Is(NewModelNotFoundError("m", inner), inner) {
		t.Error("ModelNotFoundError should unwrap to the inner error")
	}
}
