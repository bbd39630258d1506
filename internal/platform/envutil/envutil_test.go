package envutil

import "testing"

func TestStr(t *testing.T) {
	t.Setenv("ENVUTIL_TEST_STR", "  hello  ")
	if got := Str("ENVUTIL_TEST_STR", "def"); got != "hello" {
		t.Fatalf("expected trimmed value, got %q", got)
	}
	if got := Str("ENVUTIL_TEST_STR_MISSING", "def"); got != "def" {
		t.Fatalf("expected default, got %q", got)
	}
}

func TestInt(t *testing.T) {
	t.Setenv("ENVUTIL_TEST_INT", "42")
	if got := Int("ENVUTIL_TEST_INT", 7); got != 42 {
		t.Fatalf("expected 42, got %d", got)
	}
	t.Setenv("ENVUTIL_TEST_INT_BAD", "not-a-number")
	if got := Int("ENVUTIL_TEST_INT_BAD", 7); got != 7 {
		t.Fatalf("expected default on parse failure, got %d", got)
	}
}

func TestFloat(t *testing.T) {
	t.Setenv("ENVUTIL_TEST_FLOAT", "22.5")
	if got := Float("ENVUTIL_TEST_FLOAT", 18); got != 22.5 {
		t.Fatalf("expected 22.5, got %v", got)
	}
	if got := Float("ENVUTIL_TEST_FLOAT_MISSING", 18); got != 18 {
		t.Fatalf("expected default, got %v", got)
	}
	t.Setenv("ENVUTIL_TEST_FLOAT_BAD", "big")
	if got := Float("ENVUTIL_TEST_FLOAT_BAD", 18); got != 18 {
		t.Fatalf("expected default on parse failure, got %v", got)
	}
}

func TestBool(t *testing.T) {
	truthy := []string{"1", "true", "YES", "On"}
	for _, v := range truthy {
		t.Setenv("ENVUTIL_TEST_BOOL", v)
		if !Bool("ENVUTIL_TEST_BOOL", false) {
			t.Fatalf("expected %q to parse as true", v)
		}
	}
	falsy := []string{"0", "false", "NO", "Off"}
	for _, v := range falsy {
		t.Setenv("ENVUTIL_TEST_BOOL", v)
		if Bool("ENVUTIL_TEST_BOOL", true) {
			t.Fatalf("expected %q to parse as false", v)
		}
	}
	t.Setenv("ENVUTIL_TEST_BOOL", "maybe")
	if !Bool("ENVUTIL_TEST_BOOL", true) {
		t.Fatalf("expected default on unknown value")
	}
	if Bool("ENVUTIL_TEST_BOOL_MISSING", false) {
		t.Fatalf("expected default when unset")
	}
}
