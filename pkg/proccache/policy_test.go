package proccache

import (
	"testing"
	"time"
)

func pidSetOf(pids ...int32) map[int32]struct{} {
	set := make(map[int32]struct{}, len(pids))
	for _, pid := range pids {
		set[pid] = struct{}{}
	}
	return set
}

func TestNeedsFullUpdateChurn(t *testing.T) {
	now := time.Unix(2000, 0)
	recent := now.Add(-1 * time.Second)
	policy := DefaultPolicy()

	cases := []struct {
		name    string
		cached  map[int32]struct{}
		current map[int32]struct{}
		want    bool
	}{
		{
			name:    "sixAppeared",
			cached:  pidSetOf(1, 2, 3),
			current: pidSetOf(1, 2, 9, 10, 11, 12, 13, 14),
			want:    true,
		},
		{
			name:    "sixVanished",
			cached:  pidSetOf(1, 2, 3, 4, 5, 6, 7),
			current: pidSetOf(7),
			want:    true,
		},
		{
			name:    "fiveAppearedIsTolerated",
			cached:  pidSetOf(1),
			current: pidSetOf(1, 2, 3, 4, 5, 6),
			want:    false,
		},
		{
			name:    "noChurn",
			cached:  pidSetOf(1, 2, 3),
			current: pidSetOf(1, 2, 3),
			want:    false,
		},
	}
	for _, tc := range cases {
		if got := policy.NeedsFullUpdate(tc.cached, tc.current, now, recent); got != tc.want {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, got)
		}
	}
}

func TestNeedsFullUpdateTimeBound(t *testing.T) {
	now := time.Unix(2000, 0)
	same := pidSetOf(1, 2, 3)
	policy := DefaultPolicy()

	if policy.NeedsFullUpdate(same, same, now, now.Add(-4900*time.Millisecond)) {
		t.Fatalf("4.9s since last full update should still allow a quick refresh")
	}
	if !policy.NeedsFullUpdate(same, same, now, now.Add(-6*time.Second)) {
		t.Fatalf("6s since last full update must force a full refresh")
	}
}

func TestNeedsFullUpdateZeroValueUsesDefaults(t *testing.T) {
	now := time.Unix(2000, 0)
	var policy RefreshPolicy

	if policy.NeedsFullUpdate(pidSetOf(1), pidSetOf(1), now, now.Add(-1*time.Second)) {
		t.Fatalf("zero-value policy should tolerate a fresh generation")
	}
	if !policy.NeedsFullUpdate(pidSetOf(1), pidSetOf(1), now, now.Add(-10*time.Second)) {
		t.Fatalf("zero-value policy should apply the default time bound")
	}
}
