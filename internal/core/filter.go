package core

type (
	// IncomeFilter narrows income listings. Zero values match everything.
	IncomeFilter struct {
		Category  *IncomeCategory
		Source    string
		StartDate *Date
		EndDate   *Date
		HasDues   *bool
	}

	ExpenseFilter struct {
		Category  *ExpenseCategory
		Purpose   string
		StartDate *Date
		EndDate   *Date
	}

	// DuesFilter narrows outstanding dues; the date range applies to dueDate.
	DuesFilter struct {
		Category  *IncomeCategory
		Source    string
		StartDate *Date
		EndDate   *Date
	}

	DocumentFilter struct {
		BusinessUnit *BusinessUnit
		Status       *DocumentStatus
		StartDate    *Date
		EndDate      *Date
		Search       string
	}
)
