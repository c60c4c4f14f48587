package observability

import (
	"context"
	"testing"
)

func TestParseHeaders(t *testing.T) {
	got := ParseHeaders(" api-key = abc , broken, =x, tenant=acme ")
	if len(got) != 2 || got["api-key"] != "abc" || got["tenant"] != "acme" {
		t.Fatalf("headers: got %v", got)
	}
	if ParseHeaders("") != nil || ParseHeaders("nope") != nil {
		t.Fatalf("want nil for empty or malformed input")
	}
}

func TestClampRatio(t *testing.T) {
	for in, want := range map[float64]float64{0: 0.1, -1: 0.1, 0.5: 0.5, 3: 1} {
		if got := clampRatio(in); got != want {
			t.Fatalf("clampRatio(%v): want=%v got=%v", in, want, got)
		}
	}
}

func TestStartSpanWithoutProvider(t *testing.T) {
	ctx, span := StartSpan(context.Background(), "stage")
	defer span.End()
	if ctx == nil {
		t.Fatalf("want context")
	}
}
