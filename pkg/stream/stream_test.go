package stream

import (
	"errors"
	"testing"
)

func TestStreamYieldsUntilEOS(t *testing.T) {
	data := []int64{1, 2, 3}
	i := 0
	s := Stream[int64](func() (int64, error) {
		if i >= len(data) {
			return 0, EOS
		}
		v := data[i]
		i++
		return v, nil
	})

	var got []int64
	for {
		v, err := s()
		if err == EOS {
			break
		}
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		got = append(got, v)
	}
	if len(got) != len(data) {
		t.Fatalf("expected %d values, got %d", len(data), len(got))
	}
	for i, v := range got {
		if v != data[i] {
			t.Errorf("index %d: expected %d, got %d", i, data[i], v)
		}
	}
}

func TestStreamPropagatesNonEOSError(t *testing.T) {
	boom := errors.New("boom")
	s := Stream[int64](func() (int64, error) { return 0, boom })
	if _, err := s(); err != boom {
		t.Errorf("expected boom error, got %v", err)
	}
}
