package finance

// DefaultCategories is the starter set installed into an empty store so the
// API is usable before anyone has created categories of their own.
func DefaultCategories() []CategoryCreate {
	return []CategoryCreate{
		{Name: "Salary", Type: TypeIncome, Color: "#2e7d32"},
		{Name: "Other Income", Type: TypeIncome, Color: "#66bb6a"},
		{Name: "Groceries", Type: TypeExpense, Color: "#ef6c00"},
		{Name: "Rent", Type: TypeExpense, Color: "#6d4c41"},
		{Name: "Utilities", Type: TypeExpense, Color: "#0288d1"},
		{Name: "Transport", Type: TypeExpense, Color: "#455a64"},
		{Name: "Health", Type: TypeExpense, Color: "#c62828"},
		{Name: "Entertainment", Type: TypeExpense, Color: "#7b1fa2"},
		{Name: "Subscriptions", Type: TypeExpense, Color: "#283593"},
		{Name: "Other", Type: TypeExpense, Color: "#9e9e9e"},
	}
}
