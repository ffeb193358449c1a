package logger

import "testing"

func TestSanitizeKVs(t *testing.T) {
	got := sanitizeKVs([]interface{}{"user_id", 7, "Password", "hunter2", "dangling"})
	if len(got) != 5 {
		t.Fatalf("len=%d, want 5", len(got))
	}
	if got[1] != 7 {
		t.Fatalf("user_id should pass through, got %v", got[1])
	}
	if got[3] != "[REDACTED]" {
		t.Fatalf("password should be redacted, got %v", got[3])
	}
	if got[4] != "dangling" {
		t.Fatalf("odd trailing key should be kept, got %v", got[4])
	}
}

func TestNopWith(t *testing.T) {
	l := Nop().With("component", "test")
	l.Info("hello", "k", "v")
}
