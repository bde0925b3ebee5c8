package fault

import (
	"errors"
	"testing"
)

func TestWrapPreservesMarker(t *testing.T) {
	cause := errors.New("disk gone")
	err := Wrap(ErrStorage, "store", "append message", "", cause)

	if !errors.Is(err, ErrStorage) {
		t.Errorf("expected ErrStorage in chain, got %v", err)
	}
	if !errors.Is(err, cause) {
		t.Errorf("expected cause in chain, got %v", err)
	}
}

func TestWrapNilMarkerDefaultsToStorage(t *testing.T) {
	err := Wrap(nil, "store", "open", "", errors.New("boom"))
	if !errors.Is(err, ErrStorage) {
		t.Errorf("expected ErrStorage default, got %v", err)
	}
}

func TestKind(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{Wrap(ErrConfiguration, "ratelimit", "policy", "unknown endpoint", nil), "configuration"},
		{Wrap(ErrRateLimited, "gateway", "chat", "", nil), "rate_limited"},
		{Wrap(ErrStorage, "store", "get", "", nil), "storage"},
		{Wrap(ErrInference, "llm", "generate", "", nil), "inference"},
		{Wrap(ErrNotFound, "lecture", "raw text", "", nil), "not_found"},
		{Wrap(ErrForbidden, "gateway", "chat", "", nil), "forbidden"},
		{errors.New("mystery"), "internal"},
	}
	for _, tc := range cases {
		if got := Kind(tc.err); got != tc.want {
			t.Errorf("Kind(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}
