package dedup

import (
	"errors"
	"testing"
	"time"
)

func TestHash(t *testing.T) {
	base := Hash(1, 10, "total revenue")
	if base != Hash(1, 10, "total revenue") {
		t.Error("hash must be deterministic")
	}
	if Hash(2, 10, "total revenue") == base {
		t.Error("user must be part of the hash")
	}
	if Hash(1, 11, "total revenue") == base {
		t.Error("conversation must be part of the hash")
	}
	if Hash(1, 10, "total revenue ") == base {
		t.Error("content must be part of the hash")
	}
}

func TestDo_RunsOncePerKey(t *testing.T) {
	c := New[string](time.Minute)
	calls := 0
	fn := func() (string, error) {
		calls++
		return "answer", nil
	}

	for i := 0; i < 3; i++ {
		got, err := c.Do("k", fn)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != "answer" {
			t.Errorf("got = %q, want answer", got)
		}
	}
	if calls != 1 {
		t.Errorf("fn ran %d times, want 1", calls)
	}

	if v, ok := c.Get("k"); !ok || v != "answer" {
		t.Errorf("Get = (%q, %v), want cached answer", v, ok)
	}
}

func TestDo_ErrorsAreNotCached(t *testing.T) {
	c := New[string](time.Minute)
	calls := 0
	boom := errors.New("model down")

	if _, err := c.Do("k", func() (string, error) { calls++; return "", boom }); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want the fn error", err)
	}
	got, err := c.Do("k", func() (string, error) { calls++; return "recovered", nil })
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "recovered" || calls != 2 {
		t.Errorf("got = %q after %d calls, want recovered after 2", got, calls)
	}
}

func TestDo_KeysAreIndependent(t *testing.T) {
	c := New[int](time.Minute)
	a, _ := c.Do("a", func() (int, error) { return 1, nil })
	b, _ := c.Do("b", func() (int, error) { return 2, nil })
	if a != 1 || b != 2 {
		t.Errorf("got (%d, %d), want (1, 2)", a, b)
	}
}
