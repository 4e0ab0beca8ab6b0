package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

const DefaultCurrency = "USD"

var currencySymbols = map[string]string{
	"USD": "$",
	"EUR": "€",
	"GBP": "£",
	"INR": "₹",
	"JPY": "¥",
	"CAD": "C$",
	"AUD": "A$",
	"PKR": "Rs",
}

// Currencies lists the supported currency codes.
func Currencies() []string {
	return []string{"USD", "EUR", "GBP", "INR", "JPY", "CAD", "AUD", "PKR"}
}

// CurrencySymbol returns the symbol for code, "$" when unknown.
func CurrencySymbol(code string) string {
	if s, ok := currencySymbols[strings.ToUpper(code)]; ok {
		return s
	}
	return "$"
}

// Profile holds per-user preferences and contact details.
type Profile struct {
	UserID      int64
	DisplayName string
	Email       string
	Currency    string
	Theme       Theme
}

// DefaultProfile is used for users that never saved preferences.
func DefaultProfile(userID int64) Profile {
	return Profile{UserID: userID, Currency: DefaultCurrency, Theme: ThemeLight}
}

func (p Profile) Validate() error {
	var fe fieldErrors
	if _, ok := currencySymbols[p.Currency]; !ok {
		fe.add("currency", ErrInvalidCurrency, "Select a valid choice.")
	}
	if p.Theme != ThemeLight && p.Theme != ThemeDark {
		fe.add("theme", ErrInvalidTheme, "Select a valid choice.")
	}
	if p.Email != "" && !strings.Contains(p.Email, "@") {
		fe.add("email", ErrInvalidEmail, "Enter a valid email address.")
	}
	return fe.err()
}

// Preferences returns the render preferences derived from the profile.
func (p Profile) Preferences() DisplayPreferences {
	return NewDisplayPreferences(p.Currency, p.Theme)
}

// DisplayPreferences is passed explicitly to every rendering call.
type DisplayPreferences struct {
	CurrencyCode string
	Symbol       string
	Theme        Theme
}

func NewDisplayPreferences(currency string, theme Theme) DisplayPreferences {
	if currency == "" {
		currency = DefaultCurrency
	}
	if theme == "" {
		theme = ThemeLight
	}
	return DisplayPreferences{
		CurrencyCode: strings.ToUpper(currency),
		Symbol:       CurrencySymbol(currency),
		Theme:        theme,
	}
}

// FormatMoney renders an amount as "$1,234.56" or "-$1,234.56".
func (p DisplayPreferences) FormatMoney(d decimal.Decimal) string {
	sym := p.Symbol
	if sym == "" {
		sym = "$"
	}
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Abs()
	}
	return sign + sym + groupThousands(d.StringFixed(2))
}

func groupThousands(s string) string {
	intPart, frac := s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		intPart, frac = s[:i], s[i:]
	}
	if len(intPart) <= 3 {
		return intPart + frac
	}
	var b strings.Builder
	lead := len(intPart) % 3
	if lead > 0 {
		b.WriteString(intPart[:lead])
	}
	for i := lead; i < len(intPart); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(intPart[i : i+3])
	}
	return b.String() + frac
}
