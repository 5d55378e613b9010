package validate

import (
	"testing"

	"github.com/ojeda-dev/fintrack/internal/errs"
	"github.com/ojeda-dev/fintrack/internal/finance"
)

func fieldMessages(ferrs []errs.FieldError) map[string]string {
	out := make(map[string]string, len(ferrs))
	for _, fe := range ferrs {
		out[fe.Field] = fe.Message
	}
	return out
}

func TestID(t *testing.T) {
	cases := []struct {
		raw     string
		want    int64
		wantErr bool
	}{
		{"1", 1, false},
		{"42", 42, false},
		{"0", 0, true},
		{"-5", 0, true},
		{"abc", 0, true},
		{"1.5", 0, true},
		{"", 0, true},
	}
	for _, tc := range cases {
		got, ferrs := ID(tc.raw)
		if tc.wantErr {
			if len(ferrs) == 0 {
				t.Errorf("ID(%q): expected field errors", tc.raw)
			}
			continue
		}
		if len(ferrs) > 0 {
			t.Errorf("ID(%q): unexpected errors %v", tc.raw, ferrs)
		}
		if got != tc.want {
			t.Errorf("ID(%q) = %d, want %d", tc.raw, got, tc.want)
		}
	}
}

func TestTransactionCreateValid(t *testing.T) {
	body := []byte(`{"amount":3500,"type":"expense","categoryId":2,"description":"Groceries","date":"2025-06-15"}`)
	in, ferrs := TransactionCreate(body)
	if len(ferrs) > 0 {
		t.Fatalf("unexpected errors: %v", ferrs)
	}
	if in.Amount != 3500 || in.Type != finance.TypeExpense || in.CategoryID != 2 {
		t.Errorf("unexpected parse result: %+v", in)
	}
	if in.Currency != finance.DefaultCurrency {
		t.Errorf("Currency = %q, want default %q", in.Currency, finance.DefaultCurrency)
	}
	if in.Date.String() != "2025-06-15" {
		t.Errorf("Date = %s", in.Date)
	}
}

func TestTransactionCreateInvalid(t *testing.T) {
	cases := []struct {
		name    string
		body    string
		field   string
		message string
	}{
		{"negative amount", `{"amount":-100,"type":"expense","categoryId":2,"description":"x","date":"2025-06-15"}`, "amount", "amount must be positive"},
		{"zero amount", `{"amount":0,"type":"expense","categoryId":2,"description":"x","date":"2025-06-15"}`, "amount", "amount must be positive"},
		{"missing amount", `{"type":"expense","categoryId":2,"description":"x","date":"2025-06-15"}`, "amount", "amount is required"},
		{"bad type", `{"amount":100,"type":"transfer","categoryId":2,"description":"x","date":"2025-06-15"}`, "type", "type must be income or expense"},
		{"bad date", `{"amount":100,"type":"expense","categoryId":2,"description":"x","date":"15/06/2025"}`, "date", "date must be formatted YYYY-MM-DD"},
		{"missing description", `{"amount":100,"type":"expense","categoryId":2,"date":"2025-06-15"}`, "description", "description is required"},
		{"bad currency", `{"amount":100,"type":"expense","categoryId":2,"description":"x","date":"2025-06-15","currency":"EURO"}`, "currency", "currency must be a 3-letter ISO code"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, ferrs := TransactionCreate([]byte(tc.body))
			if len(ferrs) == 0 {
				t.Fatal("expected field errors")
			}
			msgs := fieldMessages(ferrs)
			if msgs[tc.field] != tc.message {
				t.Errorf("field %q message = %q, want %q", tc.field, msgs[tc.field], tc.message)
			}
		})
	}
}

func TestTransactionCreateCollectsAllErrors(t *testing.T) {
	_, ferrs := TransactionCreate([]byte(`{}`))
	if len(ferrs) != 5 {
		t.Fatalf("expected 5 field errors for empty body, got %d: %v", len(ferrs), ferrs)
	}
}

func TestTransactionCreateRejectsUnknownFields(t *testing.T) {
	_, ferrs := TransactionCreate([]byte(`{"amount":100,"type":"expense","categoryId":2,"description":"x","date":"2025-06-15","extra":true}`))
	if len(ferrs) == 0 {
		t.Fatal("expected an error for unknown field")
	}
}

func TestTransactionPatchPartial(t *testing.T) {
	patch, ferrs := TransactionPatch([]byte(`{"amount":9000}`))
	if len(ferrs) > 0 {
		t.Fatalf("unexpected errors: %v", ferrs)
	}
	if patch.Amount == nil || *patch.Amount != 9000 {
		t.Errorf("Amount = %v", patch.Amount)
	}
	if patch.Type != nil || patch.CategoryID != nil || patch.Description != nil || patch.Date != nil || patch.Currency != nil {
		t.Errorf("untouched fields should be nil: %+v", patch)
	}
}

func TestTransactionPatchInvalidField(t *testing.T) {
	_, ferrs := TransactionPatch([]byte(`{"amount":-1}`))
	if len(ferrs) == 0 {
		t.Fatal("expected error for negative amount")
	}
	if ferrs[0].Message != "amount must be positive" {
		t.Errorf("message = %q", ferrs[0].Message)
	}
}

func TestCategoryCreate(t *testing.T) {
	in, ferrs := CategoryCreate([]byte(`{"name":"Groceries","type":"expense","color":"#ef6c00"}`))
	if len(ferrs) > 0 {
		t.Fatalf("unexpected errors: %v", ferrs)
	}
	if in.Name != "Groceries" || in.Type != finance.TypeExpense || in.Color != "#ef6c00" {
		t.Errorf("unexpected parse result: %+v", in)
	}

	_, ferrs = CategoryCreate([]byte(`{"type":"expense"}`))
	if len(ferrs) == 0 || ferrs[0].Field != "name" {
		t.Errorf("expected name error, got %v", ferrs)
	}
}

func TestSubscriptionCreateDefaults(t *testing.T) {
	in, ferrs := SubscriptionCreate([]byte(`{"name":"Netflix","amount":1299,"categoryId":9,"frequency":"monthly","nextBillingDate":"2025-07-01"}`))
	if len(ferrs) > 0 {
		t.Fatalf("unexpected errors: %v", ferrs)
	}
	if !in.Active {
		t.Error("Active should default to true")
	}
	if in.Currency != finance.DefaultCurrency {
		t.Errorf("Currency = %q", in.Currency)
	}
	if in.Frequency != finance.FreqMonthly {
		t.Errorf("Frequency = %q", in.Frequency)
	}
}

func TestSubscriptionCreateBadFrequency(t *testing.T) {
	_, ferrs := SubscriptionCreate([]byte(`{"name":"Netflix","amount":1299,"categoryId":9,"frequency":"fortnightly","nextBillingDate":"2025-07-01"}`))
	if len(ferrs) == 0 {
		t.Fatal("expected error")
	}
	msgs := fieldMessages(ferrs)
	if msgs["frequency"] != "frequency must be daily, weekly, monthly or yearly" {
		t.Errorf("frequency message = %q", msgs["frequency"])
	}
}

func TestSubscriptionPatchActiveFalse(t *testing.T) {
	patch, ferrs := SubscriptionPatch([]byte(`{"active":false}`))
	if len(ferrs) > 0 {
		t.Fatalf("unexpected errors: %v", ferrs)
	}
	if patch.Active == nil || *patch.Active {
		t.Errorf("Active = %v, want pointer to false", patch.Active)
	}
}

func TestInvalidJSON(t *testing.T) {
	for _, body := range []string{``, `{`, `[1,2]`, `"str"`} {
		_, ferrs := TransactionCreate([]byte(body))
		if len(ferrs) == 0 {
			t.Errorf("TransactionCreate(%q): expected error", body)
		}
	}
}
