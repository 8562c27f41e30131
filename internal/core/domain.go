package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

// Categories reserved for transactions the engine generates itself.
const (
	CategoryCardPayment = "card_payment"
	CategoryCoverage    = "coverage"
)

type (
	TransactionType string

	// Date is a calendar day at midnight UTC.
	Date struct {
		time.Time
	}

	Transaction struct {
		ID          string
		Type        TransactionType
		Amount      Money
		Date        Date
		Month       Month // effective month: billing month for card purchases
		Category    string
		Description string

		SourceCardID       string // purchase card, or the card being paid
		PayerCardID        string // set on auto-generated card payments
		SourceInvestmentID string // set on coverage income

		AutoGenerated bool
		CreatedAt     time.Time
	}

	CreditCard struct {
		ID                 string
		Name               string
		Limit              Money
		AvailableLimit     Money
		ClosingDay         int
		DueDay             int
		DefaultPayerCardID string
	}

	Investment struct {
		ID             string
		Name           string
		Principal      Money
		YieldRate      decimal.Decimal // monthly percentage
		StartDate      Date
		LastYieldMonth Month
	}

	YieldEntry struct {
		InvestmentID string
		Month        Month
		Amount       Money
		RateApplied  decimal.Decimal
	}

	Settings struct {
		DefaultYieldRate decimal.Decimal
		// YieldEnabled gates monthly compounding of every investment. The
		// ledger balance itself never earns yield.
		YieldEnabled         bool
		CoverageInvestmentID string
		Currency             string
	}
)

var (
	ErrInvalidDay       = errors.New("invalid day")
	ErrInvalidMonth     = errors.New("invalid month")
	ErrInvalidDate      = errors.New("invalid date")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidType      = errors.New("invalid transaction type")
	ErrInvalidRate      = errors.New("invalid yield rate")
	ErrInvalidLimit     = errors.New("invalid credit limit")
	ErrEmptyName        = errors.New("empty name")
	ErrEmptyCategory    = errors.New("empty category")
	ErrSelfPayer        = errors.New("card cannot pay itself")
	ErrCardHasBalance   = errors.New("card has unpaid purchases")
	ErrCyclePaid        = errors.New("billing cycle already paid")
	ErrReservedCategory = errors.New("category is reserved for generated transactions")
)

// DefaultSettings returns the settings used before the user changes anything.
func DefaultSettings() Settings {
	return Settings{
		DefaultYieldRate: decimal.NewFromInt(1),
		YieldEnabled:     true,
		Currency:         DefaultCurrency,
	}
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf returns the calendar day of t, as seen in t's location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, int(m), d)
}

// ParseDate parses a "YYYY-MM-DD" day.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

// MustParseDate is like ParseDate but panics on error.
func MustParseDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic("invalid date " + s)
	}
	return d
}

func (d Date) Validate() error {
	if d.IsZero() {
		return errors.New("date cannot be zero")
	}
	return nil
}

// Day returns the day of the month
func (d Date) Day() int {
	return d.Time.Day()
}

// Month returns the month
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Year returns the year
func (d Date) Year() int {
	return d.Time.Year()
}

// Key returns the month key the day belongs to.
func (d Date) Key() Month {
	return MonthOf(d.Time)
}

// AddDays returns the day n days later (or earlier when n is negative).
func (d Date) AddDays(n int) Date {
	return Date{Time: d.Time.AddDate(0, 0, n)}
}

func (d Date) After(o Date) bool  { return d.Time.After(o.Time) }
func (d Date) Before(o Date) bool { return d.Time.Before(o.Time) }

func (d Date) String() string { return d.Format(dateLayout) }

func (t TransactionType) Valid() bool {
	return t == Income || t == Expense
}

func (t Transaction) Validate() error {
	if !t.Type.Valid() {
		return ErrInvalidType
	}
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if err := t.Date.Validate(); err != nil {
		return err
	}
	if !t.Month.Valid() {
		return ErrInvalidMonth
	}
	if strings.TrimSpace(t.Category) == "" {
		return ErrEmptyCategory
	}
	if len(t.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	return nil
}

// IsCardPayment reports whether t settles a card's billing cycle.
func (t Transaction) IsCardPayment() bool {
	return t.AutoGenerated && t.Category == CategoryCardPayment
}

// IsCardPurchase reports whether t is a purchase posted against a card.
func (t Transaction) IsCardPurchase() bool {
	return t.SourceCardID != "" && !t.IsCardPayment()
}

// IsCoverage reports whether t is income withdrawn from an investment to
// cover a negative balance.
func (t Transaction) IsCoverage() bool {
	return t.AutoGenerated && t.Category == CategoryCoverage && t.SourceInvestmentID != ""
}

// Signed returns the amount with expenses negated.
func (t Transaction) Signed() Money {
	if t.Type == Expense {
		return t.Amount.Neg()
	}
	return t.Amount
}

func (c CreditCard) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	if !c.Limit.IsPositive() {
		return ErrInvalidLimit
	}
	if c.AvailableLimit.IsNegative() || c.AvailableLimit.GreaterThan(c.Limit) {
		return ErrInvalidLimit
	}
	if c.ClosingDay < 1 || c.ClosingDay > 31 {
		return ErrInvalidDay
	}
	if c.DueDay < 1 || c.DueDay > 31 {
		return ErrInvalidDay
	}
	if c.DefaultPayerCardID != "" && c.DefaultPayerCardID == c.ID {
		return ErrSelfPayer
	}
	return nil
}

func (c CreditCard) HasPayer() bool { return c.DefaultPayerCardID != "" }

// ClosingDate returns the day the cycle billed in m closes.
func (c CreditCard) ClosingDate(m Month) Date {
	return m.Day(c.ClosingDay)
}

// DueDate returns the day the cycle billed in m is paid. A due day after the
// closing day falls in the same month, otherwise in the following one.
func (c CreditCard) DueDate(m Month) Date {
	if c.DueDay > c.ClosingDay {
		return m.Day(c.DueDay)
	}
	return m.Next().Day(c.DueDay)
}

// BillingMonth returns the month a purchase made on d is billed in.
// Purchases on or after the closing day roll into the next cycle.
func (c CreditCard) BillingMonth(d Date) Month {
	m := d.Key()
	if !d.Before(c.ClosingDate(m)) {
		return m.Next()
	}
	return m
}

// Charge takes amount from the available limit.
func (c *CreditCard) Charge(amount Money) error {
	if amount.GreaterThan(c.AvailableLimit) {
		return &InsufficientLimitError{CardID: c.ID, Requested: amount, Available: c.AvailableLimit}
	}
	c.AvailableLimit = c.AvailableLimit.Sub(amount)
	return nil
}

// Restore gives amount back to the available limit, never above the limit.
func (c *CreditCard) Restore(amount Money) {
	c.AvailableLimit = c.AvailableLimit.Add(amount).Min(c.Limit)
}

func (i Investment) Validate() error {
	if strings.TrimSpace(i.Name) == "" {
		return ErrEmptyName
	}
	if i.Principal.IsNegative() {
		return ErrInvalidAmount
	}
	if i.YieldRate.IsNegative() {
		return ErrInvalidRate
	}
	if err := i.StartDate.Validate(); err != nil {
		return err
	}
	if !i.LastYieldMonth.IsZero() && !i.LastYieldMonth.Valid() {
		return ErrInvalidMonth
	}
	return nil
}

// YieldBaseline is the last month already compounded: LastYieldMonth, or
// the start month when no yield was ever applied.
func (i Investment) YieldBaseline() Month {
	if !i.LastYieldMonth.IsZero() {
		return i.LastYieldMonth
	}
	return i.StartDate.Key()
}

// Deposit adds amount to the principal.
func (i *Investment) Deposit(amount Money) {
	i.Principal = i.Principal.Add(amount)
}

// Withdraw takes amount from the principal.
func (i *Investment) Withdraw(amount Money) error {
	if amount.GreaterThan(i.Principal) {
		return &InsufficientFundsError{InvestmentID: i.ID, Requested: amount, Available: i.Principal}
	}
	i.Principal = i.Principal.Sub(amount)
	return nil
}

func (s Settings) Validate() error {
	if s.DefaultYieldRate.IsNegative() {
		return ErrInvalidRate
	}
	return nil
}
