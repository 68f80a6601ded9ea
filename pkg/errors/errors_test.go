package errors

import (
	"context"
	"errors"
	"testing"
)

func TestNew(t *testing.T) {
	err := New(ErrCodeInvalidBuffer, "buffer must be positive, got %g", -1.5)

	if err.Code != ErrCodeInvalidBuffer {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodeInvalidBuffer)
	}

	if err.Message != "buffer must be positive, got -1.5" {
		t.Errorf("Message = %v, want %v", err.Message, "buffer must be positive, got -1.5")
	}

	expected := "INVALID_BUFFER: buffer must be positive, got -1.5"
	if err.Error() != expected {
		t.Errorf("Error() = %v, want %v", err.Error(), expected)
	}
}

func TestWrap(t *testing.T) {
	cause := errors.New("GEOS exception: TopologyException")
	err := Wrap(ErrCodeKernel, cause, "difference failed")

	if err.Code != ErrCodeKernel {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodeKernel)
	}

	if err.Cause != cause {
		t.Errorf("Cause = %v, want %v", err.Cause, cause)
	}

	// Test Unwrap
	unwrapped := errors.Unwrap(err)
	if unwrapped != cause {
		t.Errorf("Unwrap() = %v, want %v", unwrapped, cause)
	}

	// The original cause must remain reachable through the chain.
	if !errors.Is(err, cause) {
		t.Error("errors.Is(err, cause) = false, want true")
	}
}

func TestIs(t *testing.T) {
	err := New(ErrCodeLayerNotFound, "layer %q not found", "roads")

	if !Is(err, ErrCodeLayerNotFound) {
		t.Error("Is(err, ErrCodeLayerNotFound) = false, want true")
	}
	if Is(err, ErrCodeKernel) {
		t.Error("Is(err, ErrCodeKernel) = true, want false")
	}
	if Is(errors.New("plain"), ErrCodeLayerNotFound) {
		t.Error("Is(plain, ErrCodeLayerNotFound) = true, want false")
	}
}

func TestGetCode(t *testing.T) {
	if got := GetCode(New(ErrCodeInvalidCRS, "bad crs")); got != ErrCodeInvalidCRS {
		t.Errorf("GetCode() = %v, want %v", got, ErrCodeInvalidCRS)
	}
	if got := GetCode(errors.New("plain")); got != "" {
		t.Errorf("GetCode(plain) = %v, want empty", got)
	}
}

func TestUserMessage(t *testing.T) {
	err := New(ErrCodeInvalidArea, "minimum area must be positive")
	if got := UserMessage(err); got != "minimum area must be positive" {
		t.Errorf("UserMessage() = %v, want message without code prefix", got)
	}

	plain := errors.New("something broke")
	if got := UserMessage(plain); got != "something broke" {
		t.Errorf("UserMessage(plain) = %v, want %v", got, "something broke")
	}
}

func TestIsConfig(t *testing.T) {
	tests := []struct {
		code Code
		want bool
	}{
		{ErrCodeInvalidCRS, true},
		{ErrCodeInvalidBuffer, true},
		{ErrCodeInvalidArea, true},
		{ErrCodeInvalidMode, true},
		{ErrCodeLayerNotFound, false},
		{ErrCodeKernel, false},
		{ErrCodeCancelled, false},
	}

	for _, tt := range tests {
		if got := IsConfig(New(tt.code, "x")); got != tt.want {
			t.Errorf("IsConfig(%s) = %v, want %v", tt.code, got, tt.want)
		}
	}
}

func TestIsCancelled(t *testing.T) {
	if !IsCancelled(New(ErrCodeCancelled, "processing cancelled by user")) {
		t.Error("IsCancelled(CANCELLED) = false, want true")
	}
	if !IsCancelled(context.Canceled) {
		t.Error("IsCancelled(context.Canceled) = false, want true")
	}
	if IsCancelled(New(ErrCodeKernel, "boom")) {
		t.Error("IsCancelled(KERNEL_ERROR) = true, want false")
	}
}
