package scheduler

import (
	"testing"
	"time"
)

func TestEvaluateCheckIn(t *testing.T) {
	t.Parallel()

	start := time.Date(2024, time.January, 1, 9, 0, 0, 0, time.UTC)

	cases := []struct {
		name string
		at   time.Time
		want CheckInStatus
	}{
		{name: "a minute early", at: start.Add(-time.Minute), want: CheckInNormal},
		{name: "exactly on time", at: start, want: CheckInNormal},
		{name: "one nanosecond late", at: start.Add(time.Nanosecond), want: CheckInLate},
		{name: "a minute late", at: start.Add(time.Minute), want: CheckInLate},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := EvaluateCheckIn(tc.at, start); got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}
