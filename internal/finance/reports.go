package finance

// TransactionFilter narrows transaction listings and stats. Zero values
// mean "no constraint".
type TransactionFilter struct {
	Type       TransactionType
	CategoryID int64
	From       Date
	To         Date
}

// Matches reports whether t passes every set constraint of the filter.
func (f TransactionFilter) Matches(t Transaction) bool {
	if f.Type != "" && t.Type != f.Type {
		return false
	}
	if f.CategoryID != 0 && t.CategoryID != f.CategoryID {
		return false
	}
	if !f.From.IsZero() && t.Date.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && t.Date.After(f.To) {
		return false
	}
	return true
}

// CategoryTotal is one row of a per-category aggregation.
type CategoryTotal struct {
	CategoryID   int64           `json:"categoryId"`
	CategoryName string          `json:"categoryName"`
	Type         TransactionType `json:"type"`
	Total        int64           `json:"total"`
}

// Stats summarizes a set of transactions.
type Stats struct {
	Count      int             `json:"count"`
	Income     int64           `json:"income"`
	Expense    int64           `json:"expense"`
	Net        int64           `json:"net"`
	ByCategory []CategoryTotal `json:"byCategory"`
}

// CurrencyTotal aggregates income and expense per currency, minor units.
type CurrencyTotal struct {
	Currency string
	Income   int64
	Expense  int64
}

// MonthlyRow is one month of a yearly report. Month is 1-12.
type MonthlyRow struct {
	Month   int   `json:"month"`
	Income  int64 `json:"income"`
	Expense int64 `json:"expense"`
	Net     int64 `json:"net"`
}
