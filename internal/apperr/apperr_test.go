package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestIsMatchesKindThroughWrapping(t *testing.T) {
	err := fmt.Errorf("start attempt: %w", NotFound("quiz %d not found", 4))
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected errors.Is NotFound")
	}
	if errors.Is(err, ErrUnauthorized) {
		t.Fatalf("NotFound must not match Unauthorized")
	}
	if got := err.Error(); got != "start attempt: quiz 4 not found" {
		t.Fatalf("message=%q", got)
	}
}

func TestStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{NotFound("x"), http.StatusNotFound},
		{Unauthorized("x"), http.StatusUnauthorized},
		{Unavailable("x"), http.StatusForbidden},
		{QuotaExceeded("x"), http.StatusConflict},
		{Invalid("x"), http.StatusBadRequest},
		{errors.New("boom"), http.StatusInternalServerError},
		{Wrap(KindNotFound, errors.New("sql: no rows"), "attempt"), http.StatusNotFound},
	}
	for _, c := range cases {
		if got := Status(c.err); got != c.want {
			t.Fatalf("Status(%v)=%d, want %d", c.err, got, c.want)
		}
	}
}
