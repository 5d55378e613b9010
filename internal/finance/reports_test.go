package finance

import "testing"

func TestTransactionFilterMatches(t *testing.T) {
	tx := Transaction{
		ID:         1,
		Amount:     2500,
		Type:       TypeExpense,
		CategoryID: 3,
		Date:       date(t, "2025-06-15"),
	}

	cases := []struct {
		name   string
		filter TransactionFilter
		want   bool
	}{
		{"empty filter matches everything", TransactionFilter{}, true},
		{"matching type", TransactionFilter{Type: TypeExpense}, true},
		{"mismatched type", TransactionFilter{Type: TypeIncome}, false},
		{"matching category", TransactionFilter{CategoryID: 3}, true},
		{"mismatched category", TransactionFilter{CategoryID: 4}, false},
		{"inside range", TransactionFilter{From: date(t, "2025-06-01"), To: date(t, "2025-06-30")}, true},
		{"on range boundary", TransactionFilter{From: date(t, "2025-06-15"), To: date(t, "2025-06-15")}, true},
		{"before range", TransactionFilter{From: date(t, "2025-07-01")}, false},
		{"after range", TransactionFilter{To: date(t, "2025-05-31")}, false},
		{"all constraints", TransactionFilter{Type: TypeExpense, CategoryID: 3, From: date(t, "2025-06-01"), To: date(t, "2025-06-30")}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.filter.Matches(tx); got != tc.want {
				t.Errorf("Matches = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestDateJSON(t *testing.T) {
	d := date(t, "2025-06-15")
	b, err := d.MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON: %v", err)
	}
	if string(b) != `"2025-06-15"` {
		t.Errorf("MarshalJSON = %s, want %q", b, "2025-06-15")
	}

	var back Date
	if err := back.UnmarshalJSON([]byte(`"2025-06-15"`)); err != nil {
		t.Fatalf("UnmarshalJSON: %v", err)
	}
	if back.String() != "2025-06-15" {
		t.Errorf("round trip = %s", back)
	}

	if err := back.UnmarshalJSON([]byte(`"15/06/2025"`)); err == nil {
		t.Error("expected error for unsupported date format")
	}
}
