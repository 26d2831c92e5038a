package core

import (
	"fmt"
	"strings"
)

// IncomeCategory is a closed enum. Its numeric value indexes fixed-size
// arrays, so new values must be appended before numIncomeCategories.
type IncomeCategory uint8

const (
	IncomeSoftwareDevelopment IncomeCategory = iota
	IncomeWebDevelopment
	IncomeMobileAppDevelopment
	IncomeUIUXDesign
	IncomeDigitalMarketing
	IncomeSEOServices
	IncomeSocialMediaManagement
	IncomeContentWriting
	IncomeGraphicDesign
	IncomeVideoProduction
	IncomeITConsulting
	IncomeCloudServices
	IncomeMaintenanceSupport
	IncomeTraining
	IncomeHostingDomain
	IncomeProductSales
	IncomeOther

	numIncomeCategories
)

// NumIncomeCategories is the number of IncomeCategory values.
const NumIncomeCategories = int(numIncomeCategories)

var incomeCategoryNames = [numIncomeCategories]string{
	"SOFTWARE_DEVELOPMENT",
	"WEB_DEVELOPMENT",
	"MOBILE_APP_DEVELOPMENT",
	"UI_UX_DESIGN",
	"DIGITAL_MARKETING",
	"SEO_SERVICES",
	"SOCIAL_MEDIA_MANAGEMENT",
	"CONTENT_WRITING",
	"GRAPHIC_DESIGN",
	"VIDEO_PRODUCTION",
	"IT_CONSULTING",
	"CLOUD_SERVICES",
	"MAINTENANCE_SUPPORT",
	"TRAINING",
	"HOSTING_DOMAIN",
	"PRODUCT_SALES",
	"OTHER",
}

func (c IncomeCategory) String() string {
	if c >= numIncomeCategories {
		return fmt.Sprintf("IncomeCategory(%d)", uint8(c))
	}
	return incomeCategoryNames[c]
}

func (c IncomeCategory) Valid() bool { return c < numIncomeCategories }

func (c IncomeCategory) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, ErrInvalidCategory
	}
	return []byte(c.String()), nil
}

func (c *IncomeCategory) UnmarshalText(b []byte) error {
	v, err := ParseIncomeCategory(string(b))
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// ParseIncomeCategory matches wire names case-insensitively.
func ParseIncomeCategory(s string) (IncomeCategory, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	for i, name := range incomeCategoryNames {
		if name == s {
			return IncomeCategory(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidCategory, s)
}

// IncomeCategories lists every value in declaration order.
func IncomeCategories() []IncomeCategory {
	out := make([]IncomeCategory, numIncomeCategories)
	for i := range out {
		out[i] = IncomeCategory(i)
	}
	return out
}

// ExpenseCategory is a closed enum, see IncomeCategory.
type ExpenseCategory uint8

const (
	ExpenseSalary ExpenseCategory = iota
	ExpenseRent
	ExpenseUtilities
	ExpenseSoftwareSubscriptions
	ExpenseMarketing
	ExpenseTravel
	ExpenseEquipment
	ExpenseOther

	numExpenseCategories
)

// NumExpenseCategories is the number of ExpenseCategory values.
const NumExpenseCategories = int(numExpenseCategories)

var expenseCategoryNames = [numExpenseCategories]string{
	"SALARY",
	"RENT",
	"UTILITIES",
	"SOFTWARE_SUBSCRIPTIONS",
	"MARKETING",
	"TRAVEL",
	"EQUIPMENT",
	"OTHER",
}

func (c ExpenseCategory) String() string {
	if c >= numExpenseCategories {
		return fmt.Sprintf("ExpenseCategory(%d)", uint8(c))
	}
	return expenseCategoryNames[c]
}

func (c ExpenseCategory) Valid() bool { return c < numExpenseCategories }

func (c ExpenseCategory) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, ErrInvalidCategory
	}
	return []byte(c.String()), nil
}

func (c *ExpenseCategory) UnmarshalText(b []byte) error {
	v, err := ParseExpenseCategory(string(b))
	if err != nil {
		return err
	}
	*c = v
	return nil
}

func ParseExpenseCategory(s string) (ExpenseCategory, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	for i, name := range expenseCategoryNames {
		if name == s {
			return ExpenseCategory(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidCategory, s)
}

func ExpenseCategories() []ExpenseCategory {
	out := make([]ExpenseCategory, numExpenseCategories)
	for i := range out {
		out[i] = ExpenseCategory(i)
	}
	return out
}

// BusinessUnit identifies the issuing unit of an invoice.
type BusinessUnit string

const (
	UnitSoftwareDevelopment BusinessUnit = "SD"
	UnitDigitalMarketing    BusinessUnit = "DM"
	UnitITServices          BusinessUnit = "IT"
)

func BusinessUnits() []BusinessUnit {
	return []BusinessUnit{UnitSoftwareDevelopment, UnitDigitalMarketing, UnitITServices}
}

func (u BusinessUnit) Valid() bool {
	switch u {
	case UnitSoftwareDevelopment, UnitDigitalMarketing, UnitITServices:
		return true
	default:
		return false
	}
}

func ParseBusinessUnit(s string) (BusinessUnit, error) {
	u := BusinessUnit(strings.ToUpper(strings.TrimSpace(s)))
	if !u.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidBusinessUnit, s)
	}
	return u, nil
}

// DocumentType discriminates rows of the polymorphic documents table.
type DocumentType string

const DocumentInvoice DocumentType = "INVOICE"

func (t DocumentType) Valid() bool { return t == DocumentInvoice }

// DocumentStatus is the invoice workflow status.
type DocumentStatus string

const (
	StatusDraft     DocumentStatus = "DRAFT"
	StatusSent      DocumentStatus = "SENT"
	StatusPaid      DocumentStatus = "PAID"
	StatusOverdue   DocumentStatus = "OVERDUE"
	StatusCancelled DocumentStatus = "CANCELLED"
)

func DocumentStatuses() []DocumentStatus {
	return []DocumentStatus{StatusDraft, StatusSent, StatusPaid, StatusOverdue, StatusCancelled}
}

func (s DocumentStatus) Valid() bool {
	switch s {
	case StatusDraft, StatusSent, StatusPaid, StatusOverdue, StatusCancelled:
		return true
	default:
		return false
	}
}

func ParseDocumentStatus(s string) (DocumentStatus, error) {
	st := DocumentStatus(strings.ToUpper(strings.TrimSpace(s)))
	if !st.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
	}
	return st, nil
}
