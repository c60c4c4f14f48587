package envutil

import (
	"testing"
	"time"
)

func TestDuration(t *testing.T) {
	t.Setenv("AUTODOC_TEST_DUR", "90s")
	if got := Duration("AUTODOC_TEST_DUR", time.Second); got != 90*time.Second {
		t.Fatalf("go syntax: want=%v got=%v", 90*time.Second, got)
	}
	t.Setenv("AUTODOC_TEST_DUR", "2.5")
	if got := Duration("AUTODOC_TEST_DUR", time.Second); got != 2500*time.Millisecond {
		t.Fatalf("seconds: want=%v got=%v", 2500*time.Millisecond, got)
	}
	t.Setenv("AUTODOC_TEST_DUR", "soon")
	if got := Duration("AUTODOC_TEST_DUR", time.Second); got != time.Second {
		t.Fatalf("fallback: want=%v got=%v", time.Second, got)
	}
}

func TestBoolAndInt(t *testing.T) {
	t.Setenv("AUTODOC_TEST_BOOL", "off")
	if Bool("AUTODOC_TEST_BOOL", true) {
		t.Fatalf("Bool: want=false got=true")
	}
	t.Setenv("AUTODOC_TEST_INT", "x")
	if got := Int("AUTODOC_TEST_INT", 4); got != 4 {
		t.Fatalf("Int: want=4 got=%d", got)
	}
}
