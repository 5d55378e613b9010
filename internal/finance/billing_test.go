package finance

import "testing"

func date(t *testing.T, s string) Date {
	t.Helper()
	d, err := ParseDate(s)
	if err != nil {
		t.Fatalf("ParseDate(%q): %v", s, err)
	}
	return d
}

func TestNextBillingDateMonthly(t *testing.T) {
	cases := []struct {
		name    string
		current string
		anchor  string
		want    string
	}{
		{"mid month", "2025-03-15", "2025-03-15", "2025-04-15"},
		{"jan 31 clamps to feb", "2025-01-31", "2025-01-31", "2025-02-28"},
		{"jan 31 leap year", "2024-01-31", "2024-01-31", "2024-02-29"},
		{"dec rolls into next year", "2025-12-10", "2025-12-10", "2026-01-10"},
		{"anchor restores day after clamp", "2025-02-28", "2025-01-31", "2025-03-31"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := NextBillingDate(date(t, tc.current), FreqMonthly, date(t, tc.anchor))
			if got.String() != tc.want {
				t.Errorf("NextBillingDate(%s) = %s, want %s", tc.current, got, tc.want)
			}
		})
	}
}

func TestNextBillingDateOtherFrequencies(t *testing.T) {
	cases := []struct {
		name    string
		freq    Frequency
		current string
		want    string
	}{
		{"daily", FreqDaily, "2025-06-30", "2025-07-01"},
		{"weekly", FreqWeekly, "2025-06-26", "2025-07-03"},
		{"yearly", FreqYearly, "2025-06-15", "2026-06-15"},
		{"yearly from leap day", FreqYearly, "2024-02-29", "2025-02-28"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := date(t, tc.current)
			got := NextBillingDate(d, tc.freq, d)
			if got.String() != tc.want {
				t.Errorf("NextBillingDate(%s, %s) = %s, want %s", tc.current, tc.freq, got, tc.want)
			}
		})
	}
}

func TestDue(t *testing.T) {
	today := date(t, "2025-06-15")
	if !Due(date(t, "2025-06-15"), today) {
		t.Error("subscription due today should be due")
	}
	if !Due(date(t, "2025-06-01"), today) {
		t.Error("overdue subscription should be due")
	}
	if Due(date(t, "2025-06-16"), today) {
		t.Error("future subscription should not be due")
	}
}
