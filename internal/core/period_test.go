package core

import "testing"

func TestPeriodShiftWraps(t *testing.T) {
	cases := []struct {
		from Period
		n    int
		want Period
	}{
		{Period{2024, 11}, 1, Period{2025, 0}},
		{Period{2024, 0}, -1, Period{2023, 11}},
		{Period{2024, 5}, 1, Period{2024, 6}},
		{Period{2024, 5}, -18, Period{2022, 11}},
		{Period{2024, 5}, 24, Period{2026, 5}},
	}
	for _, tc := range cases {
		if got := tc.from.Shift(tc.n); got != tc.want {
			t.Fatalf("%v.Shift(%d) = %v, want %v", tc.from, tc.n, got, tc.want)
		}
	}
}

func TestParsePeriod(t *testing.T) {
	p, err := ParsePeriod("2024-01")
	if err != nil || p != (Period{Year: 2024, Month: 0}) {
		t.Fatalf("got %v err=%v", p, err)
	}
	if p.String() != "2024-01" || p.Label() != "January 2024" {
		t.Fatalf("formatting: %s / %s", p, p.Label())
	}
	for _, bad := range []string{"2024", "2024-13", "2024-00", "24-01", "abcd-01"} {
		if _, err := ParsePeriod(bad); err == nil {
			t.Fatalf("%q expected error", bad)
		}
	}
}

func TestPeriodContains(t *testing.T) {
	jan := Period{Year: 2024, Month: 0}
	if !jan.Contains(NewDate(2024, 1, 31)) {
		t.Fatalf("Jan 31 must be in January")
	}
	if jan.Contains(NewDate(2024, 2, 1)) || jan.Contains(NewDate(2023, 1, 31)) {
		t.Fatalf("other months must not match")
	}
}
