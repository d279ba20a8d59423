package logger

import (
	"strings"
	"testing"
)

func TestSanitizeRedactsPersonalFields(t *testing.T) {
	redactionOn()
	if !redactionEnabled {
		t.Skip("redaction disabled via LOG_REDACTION_ENABLED")
	}

	out := sanitizeKVs([]interface{}{
		"current_salary", 42000,
		"name", "Jane Doe",
		"employee_id", "E-100",
		"probability", 81.3,
	})
	if len(out) != 8 {
		t.Fatalf("unexpected kv length: %d", len(out))
	}
	if out[1] != "[REDACTED]" {
		t.Fatalf("salary not redacted: %v", out[1])
	}
	if out[3] != "[REDACTED]" {
		t.Fatalf("name not redacted: %v", out[3])
	}
	hashed, ok := out[5].(string)
	if !ok || !strings.HasPrefix(hashed, "hash:") {
		t.Fatalf("employee_id not hashed: %v", out[5])
	}
	if out[7] != 81.3 {
		t.Fatalf("probability altered: %v", out[7])
	}
}

func TestSanitizeOddKVs(t *testing.T) {
	out := sanitizeKVs([]interface{}{"status", "scored", "dangling"})
	if len(out) != 3 || out[2] != "dangling" {
		t.Fatalf("unexpected output: %v", out)
	}
}

func TestHashValueStable(t *testing.T) {
	a := hashValue("E-1")
	b := hashValue("E-1")
	if a != b {
		t.Fatalf("hash not stable: %q vs %q", a, b)
	}
	if hashValue("") != "" {
		t.Fatalf("empty value should hash to empty")
	}
}
