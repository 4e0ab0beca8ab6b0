package core

import (
	"errors"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

const (
	Cash         PaymentMethod = "cash"
	Card         PaymentMethod = "card"
	BankTransfer PaymentMethod = "bank_transfer"
	UPI          PaymentMethod = "upi"
	OtherPayment PaymentMethod = "other"
)

const (
	DefaultCategoryIcon  = "category"
	DefaultCategoryColor = "#6366f1"
	DefaultGoalIcon      = "savings"
	DefaultGoalColor     = "#26A69A"

	// UncategorizedName is shown for aggregates whose category was removed.
	UncategorizedName = "Other"
	// NoCategory is the placeholder printed in exports for transactions without a category.
	NoCategory = "—"
)

type (
	TransactionType string
	PaymentMethod   string

	Transaction struct {
		ID            int64
		UserID        int64
		Amount        decimal.Decimal
		Type          TransactionType
		CategoryID    *int64
		Date          time.Time
		PaymentMethod PaymentMethod
		Notes         string
		CreatedAt     time.Time
		UpdatedAt     time.Time
	}

	// Category is either a system category (UserID nil, IsSystem true) shared
	// by every user, or a private category owned by one user.
	Category struct {
		ID        int64
		Name      string
		Icon      string
		Color     string
		IsSystem  bool
		UserID    *int64
		CreatedAt time.Time
	}

	Budget struct {
		ID         int64
		UserID     int64
		CategoryID int64
		Amount     decimal.Decimal
		Month      time.Time // always the first day of the month
		CreatedAt  time.Time
	}

	SavingsGoal struct {
		ID            int64
		UserID        int64
		Name          string
		TargetAmount  decimal.Decimal
		CurrentAmount decimal.Decimal
		Icon          string
		Color         string
		Deadline      *time.Time
		IsCompleted   bool
		CreatedAt     time.Time
		UpdatedAt     time.Time
	}
)

var (
	ErrInvalidAmount        = errors.New("invalid amount")
	ErrNonPositiveAmount    = errors.New("amount must be positive")
	ErrInvalidType          = errors.New("invalid transaction type")
	ErrInvalidPaymentMethod = errors.New("invalid payment method")
	ErrInvalidDate          = errors.New("invalid date")
	ErrEmptyName            = errors.New("empty name")
	ErrInvalidColor         = errors.New("invalid color")
	ErrInvalidCategory      = errors.New("invalid category")
	ErrInvalidMonth         = errors.New("invalid month")
	ErrInvalidCurrency      = errors.New("invalid currency")
	ErrInvalidTheme         = errors.New("invalid theme")
	ErrInvalidEmail         = errors.New("invalid email")
)

var hexColor = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

var minAmount = decimal.New(1, -2)

// ValidationError carries user-facing messages keyed by field name.
type ValidationError struct {
	Fields map[string]string
	cause  error
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error { return e.cause }

type fieldErrors struct {
	fields map[string]string
	first  error
}

func (f *fieldErrors) add(field string, err error, msg string) {
	if f.fields == nil {
		f.fields = make(map[string]string)
	}
	if _, ok := f.fields[field]; ok {
		return
	}
	f.fields[field] = msg
	if f.first == nil {
		f.first = err
	}
}

func (f *fieldErrors) err() error {
	if len(f.fields) == 0 {
		return nil
	}
	return &ValidationError{Fields: f.fields, cause: f.first}
}

func (t TransactionType) Valid() bool {
	return t == Income || t == Expense
}

// Title returns the capitalised form used in exports ("Income", "Expense").
func (t TransactionType) Title() string {
	s := string(t)
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func ParseTransactionType(s string) (TransactionType, error) {
	t := TransactionType(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", ErrInvalidType
	}
	return t, nil
}

var paymentLabels = map[PaymentMethod]string{
	Cash:         "Cash",
	Card:         "Credit/Debit Card",
	BankTransfer: "Bank Transfer",
	UPI:          "UPI / Mobile Payment",
	OtherPayment: "Other",
}

// PaymentMethods lists the accepted methods in display order.
func PaymentMethods() []PaymentMethod {
	return []PaymentMethod{Cash, Card, BankTransfer, UPI, OtherPayment}
}

func (p PaymentMethod) Valid() bool {
	_, ok := paymentLabels[p]
	return ok
}

// Label returns the human readable name of the payment method.
func (p PaymentMethod) Label() string {
	if l, ok := paymentLabels[p]; ok {
		return l
	}
	return string(p)
}

// ParsePaymentMethod accepts the canonical values plus the legacy "bank".
// An empty string yields Cash.
func ParsePaymentMethod(s string) (PaymentMethod, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "":
		return Cash, nil
	case "bank":
		return BankTransfer, nil
	}
	p := PaymentMethod(s)
	if !p.Valid() {
		return "", ErrInvalidPaymentMethod
	}
	return p, nil
}

func (t Transaction) Validate() error {
	var fe fieldErrors
	if t.Amount.LessThan(minAmount) {
		fe.add("amount", ErrInvalidAmount, "Ensure this value is greater than or equal to 0.01.")
	}
	if !t.Type.Valid() {
		fe.add("type", ErrInvalidType, "Select a valid choice.")
	}
	if !t.PaymentMethod.Valid() {
		fe.add("payment_method", ErrInvalidPaymentMethod, "Select a valid choice.")
	}
	if t.Date.IsZero() {
		fe.add("date", ErrInvalidDate, "This field is required.")
	}
	return fe.err()
}

// IsExpense reports whether the transaction reduces the balance.
func (t Transaction) IsExpense() bool { return t.Type == Expense }

func (c Category) Validate() error {
	var fe fieldErrors
	name := strings.TrimSpace(c.Name)
	if name == "" {
		fe.add("name", ErrEmptyName, "This field is required.")
	} else if len([]rune(name)) > 50 {
		fe.add("name", ErrEmptyName, "Ensure this value has at most 50 characters.")
	}
	if len(c.Icon) > 30 {
		fe.add("icon", ErrInvalidCategory, "Ensure this value has at most 30 characters.")
	}
	if !hexColor.MatchString(c.Color) {
		fe.add("color", ErrInvalidColor, "Enter a hex color such as #6366f1.")
	}
	return fe.err()
}

// WithDefaults fills the icon and color when they were left empty.
func (c Category) WithDefaults() Category {
	if strings.TrimSpace(c.Icon) == "" {
		c.Icon = DefaultCategoryIcon
	}
	if strings.TrimSpace(c.Color) == "" {
		c.Color = DefaultCategoryColor
	}
	c.Name = strings.TrimSpace(c.Name)
	return c
}

// OwnedBy reports whether the category is a private category of userID.
func (c Category) OwnedBy(userID int64) bool {
	return !c.IsSystem && c.UserID != nil && *c.UserID == userID
}

// VisibleTo reports whether userID may reference the category.
func (c Category) VisibleTo(userID int64) bool {
	return c.IsSystem || c.OwnedBy(userID)
}

func (b Budget) Validate() error {
	var fe fieldErrors
	if b.Amount.LessThan(minAmount) {
		fe.add("amount", ErrInvalidAmount, "Ensure this value is greater than or equal to 0.01.")
	}
	if b.CategoryID <= 0 {
		fe.add("category", ErrInvalidCategory, "This field is required.")
	}
	if b.Month.IsZero() {
		fe.add("month", ErrInvalidMonth, "This field is required.")
	}
	return fe.err()
}

// Normalized returns the budget with its month moved to the first day.
func (b Budget) Normalized() Budget {
	if !b.Month.IsZero() {
		b.Month = MonthStart(b.Month)
	}
	return b
}

func (g SavingsGoal) Validate() error {
	var fe fieldErrors
	name := strings.TrimSpace(g.Name)
	if name == "" {
		fe.add("name", ErrEmptyName, "This field is required.")
	} else if len([]rune(name)) > 100 {
		fe.add("name", ErrEmptyName, "Ensure this value has at most 100 characters.")
	}
	if g.TargetAmount.LessThan(minAmount) {
		fe.add("target_amount", ErrInvalidAmount, "Ensure this value is greater than or equal to 0.01.")
	}
	if g.CurrentAmount.IsNegative() {
		fe.add("current_amount", ErrInvalidAmount, "Ensure this value is greater than or equal to 0.")
	}
	if g.Color != "" && !hexColor.MatchString(g.Color) {
		fe.add("color", ErrInvalidColor, "Enter a hex color such as #26A69A.")
	}
	return fe.err()
}

// WithDefaults fills the icon and color when they were left empty.
func (g SavingsGoal) WithDefaults() SavingsGoal {
	if strings.TrimSpace(g.Icon) == "" {
		g.Icon = DefaultGoalIcon
	}
	if strings.TrimSpace(g.Color) == "" {
		g.Color = DefaultGoalColor
	}
	g.Name = strings.TrimSpace(g.Name)
	return g
}

// FieldError builds a validation error for a single field.
func FieldError(field string, cause error, msg string) error {
	return &ValidationError{Fields: map[string]string{field: msg}, cause: cause}
}
