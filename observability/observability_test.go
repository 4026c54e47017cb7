package observability

import (
	"context"
	"errors"
	"testing"
)

func TestFields(t *testing.T) {
	cases := []struct {
		f    Field
		key  string
		want interface{}
	}{
		{String("a", "b"), "a", "b"},
		{Int("n", 3), "n", 3},
		{Int64("n64", int64(9)), "n64", int64(9)},
		{Float64("f", 0.5), "f", 0.5},
	}
	for _, c := range cases {
		if c.f.Key() != c.key || c.f.Value() != c.want {
			t.Errorf("field %q = %v, want %v", c.f.Key(), c.f.Value(), c.want)
		}
	}
	err := errors.New("boom")
	if Error("err", err).Value() != error(err) {
		t.Error("error field lost its error")
	}
}

func TestNopImplementations(t *testing.T) {
	var l Logger = NopLogger{}
	l.Debug("x")
	l.Info("x", Int("n", 1))
	l.Warn("x")
	l.Error("x")
	if l.With(String("a", "b")) == nil {
		t.Fatal("With returned nil")
	}

	ctx, span := NopTracer().StartSpan(context.Background(), "stage")
	if ctx == nil || span == nil {
		t.Fatal("nop tracer returned nils")
	}
	span.SetTag("k", 1)
	span.SetError(errors.New("x"))
	span.Finish()
}
