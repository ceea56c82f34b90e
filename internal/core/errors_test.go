package core

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestErrorCodeOf(t *testing.T) {
	err := Errorf(CodeProvisionDisabled, "provision %d disabled", 42)
	if CodeOf(err) != CodeProvisionDisabled {
		t.Fatalf("unexpected code: %s", CodeOf(err))
	}

	wrapped := fmt.Errorf("resolving client: %w", err)
	if !IsCode(wrapped, CodeProvisionDisabled) {
		t.Fatal("expected code to survive wrapping")
	}
	if IsCode(wrapped, CodeModelDisabled) {
		t.Fatal("unexpected code match")
	}
	if CodeOf(errors.New("plain")) != "" {
		t.Fatal("expected empty code for plain error")
	}
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("row not found")
	err := NewError(CodeConversationNotFound, "conversation abc", cause)
	if !errors.Is(err, cause) {
		t.Fatal("expected cause to be reachable via Unwrap")
	}
}

func TestErrorHTTPStatusCode(t *testing.T) {
	cases := []struct {
		code ErrorCode
		want int
	}{
		{CodeProvisionNotFound, http.StatusNotFound},
		{CodeConversationNotOwned, http.StatusForbidden},
		{CodeProvisionDisabled, http.StatusConflict},
		{CodeCredentialMissing, http.StatusConflict},
		{CodeUpstream, http.StatusBadGateway},
		{ErrorCode("something_else"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		got := (&Error{Code: tc.code}).HTTPStatusCode()
		if got != tc.want {
			t.Errorf("%s: got %d, want %d", tc.code, got, tc.want)
		}
	}
}
