package finance

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"
)

// TransactionType classifies a transaction as money in or money out.
type TransactionType string

const (
	// TypeIncome records money flowing into the household.
	TypeIncome TransactionType = "income"
	// TypeExpense records money flowing out.
	TypeExpense TransactionType = "expense"
)

// Valid reports whether the type is one of the known values.
func (t TransactionType) Valid() bool { return t == TypeIncome || t == TypeExpense }

// Frequency enumerates how often a subscription bills.
type Frequency string

const (
	FreqDaily   Frequency = "daily"
	FreqWeekly  Frequency = "weekly"
	FreqMonthly Frequency = "monthly"
	FreqYearly  Frequency = "yearly"
)

// Valid reports whether the frequency is one of the known values.
func (f Frequency) Valid() bool {
	switch f {
	case FreqDaily, FreqWeekly, FreqMonthly, FreqYearly:
		return true
	}
	return false
}

// DateLayout is the wire and storage format for calendar dates.
const DateLayout = "2006-01-02"

// Date is a calendar day without a time component. It marshals as
// "YYYY-MM-DD" and stores as the same text.
type Date struct {
	time.Time
}

// NewDate builds a Date at midnight UTC.
func NewDate(year int, month time.Month, day int) Date {
	return Date{time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day in UTC.
func DateOf(t time.Time) Date {
	y, m, d := t.UTC().Date()
	return NewDate(y, m, d)
}

// ParseDate parses "YYYY-MM-DD".
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return Date{t}, nil
}

func (d Date) String() string { return d.Format(DateLayout) }

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.Format(DateLayout) + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Value implements driver.Valuer so dates store as text.
func (d Date) Value() (driver.Value, error) { return d.Format(DateLayout), nil }

// Scan accepts text or time values from database drivers.
func (d *Date) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*d = Date{}
		return nil
	case time.Time:
		*d = DateOf(v)
		return nil
	case string:
		parsed, err := ParseDate(v)
		if err != nil {
			return err
		}
		*d = parsed
		return nil
	case []byte:
		return d.Scan(string(v))
	}
	return fmt.Errorf("scan date: unsupported type %T", src)
}

// Before reports whether d is strictly before other, day granularity.
func (d Date) Before(other Date) bool { return d.Time.Before(other.Time) }

// After reports whether d is strictly after other, day granularity.
func (d Date) After(other Date) bool { return d.Time.After(other.Time) }

// Transaction is a single dated money movement. Amount is in minor units
// (cents) and must be positive; the sign is carried by Type.
//
// Note: the category's type is not cross-checked against the transaction's
// type, so an income category can sit on an expense transaction. Known gap
// kept for compatibility with existing data.
type Transaction struct {
	ID          int64           `json:"id"`
	Amount      int64           `json:"amount"`
	Type        TransactionType `json:"type"`
	CategoryID  int64           `json:"categoryId"`
	Description string          `json:"description"`
	Date        Date            `json:"date"`
	Currency    string          `json:"currency"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
	// Category is denormalized onto list/get responses when requested.
	Category *Category `json:"category,omitempty"`
}

// RecordID returns the store-assigned identifier.
func (t Transaction) RecordID() int64 { return t.ID }

// Category labels transactions and subscriptions.
type Category struct {
	ID        int64           `json:"id"`
	Name      string          `json:"name"`
	Type      TransactionType `json:"type"`
	Color     string          `json:"color"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// RecordID returns the store-assigned identifier.
func (c Category) RecordID() int64 { return c.ID }

// Subscription is a recurring charge that produces expense transactions as
// its billing date comes due.
type Subscription struct {
	ID              int64     `json:"id"`
	Name            string    `json:"name"`
	Amount          int64     `json:"amount"`
	CategoryID      int64     `json:"categoryId"`
	Frequency       Frequency `json:"frequency"`
	NextBillingDate Date      `json:"nextBillingDate"`
	Currency        string    `json:"currency"`
	Active          bool      `json:"active"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// RecordID returns the store-assigned identifier.
func (s Subscription) RecordID() int64 { return s.ID }

// DefaultCurrency is assumed when a payload omits the currency field.
const DefaultCurrency = "EUR"

// TransactionCreate is the validated input for a new transaction.
type TransactionCreate struct {
	Amount      int64
	Type        TransactionType
	CategoryID  int64
	Description string
	Date        Date
	Currency    string
}

// TransactionPatch is a partial update; nil fields are left unchanged.
type TransactionPatch struct {
	Amount      *int64
	Type        *TransactionType
	CategoryID  *int64
	Description *string
	Date        *Date
	Currency    *string
}

// CategoryCreate is the validated input for a new category.
type CategoryCreate struct {
	Name  string
	Type  TransactionType
	Color string
}

// CategoryPatch is a partial update; nil fields are left unchanged.
type CategoryPatch struct {
	Name  *string
	Type  *TransactionType
	Color *string
}

// SubscriptionCreate is the validated input for a new subscription.
type SubscriptionCreate struct {
	Name            string
	Amount          int64
	CategoryID      int64
	Frequency       Frequency
	NextBillingDate Date
	Currency        string
	Active          bool
}

// SubscriptionPatch is a partial update; nil fields are left unchanged.
type SubscriptionPatch struct {
	Name            *string
	Amount          *int64
	CategoryID      *int64
	Frequency       *Frequency
	NextBillingDate *Date
	Currency        *string
	Active          *bool
}
