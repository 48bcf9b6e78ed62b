package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	Income  TransactionType = "INCOME"
	Expense TransactionType = "EXPENSE"

	// Legacy wire spellings still returned by older backend builds.
	legacyIncome  = "RECEITA"
	legacyExpense = "DESPESA"
)

const (
	GoalInProgress GoalStatus = "IN_PROGRESS"
	GoalCompleted  GoalStatus = "COMPLETED"
)

const dateLayout = "2006-01-02"

type (
	TransactionType string
	GoalStatus      string

	// Date is a calendar date without a time component. The underlying
	// time is always midnight UTC so the calendar fields never shift with
	// the local timezone.
	Date struct {
		time.Time
	}

	User struct {
		ID               int64  `json:"id"`
		Name             string `json:"name"`
		Email            string `json:"email"`
		Level            int    `json:"level"`
		ExperiencePoints int    `json:"experiencePoints"`
		ProfilePicture   string `json:"profilePicture,omitempty"` // URL or data URI
	}

	// Session pairs the bearer token with the user it was issued for.
	Session struct {
		Token string
		User  User
	}

	Transaction struct {
		ID          int64           `json:"id"`
		Description string          `json:"description"`
		Amount      Money           `json:"amount"`
		Type        TransactionType `json:"type"`
		Date        Date            `json:"date"`
	}

	// Goal is a savings target. Progress is derived on every read and is
	// deliberately absent from the struct.
	Goal struct {
		ID            int64      `json:"id"`
		Name          string     `json:"name"`
		CurrentAmount Money      `json:"currentAmount"`
		TargetAmount  Money      `json:"targetAmount"`
		Deadline      Date       `json:"deadline"`
		Status        GoalStatus `json:"status,omitempty"`
	}
)

var (
	ErrInvalidDay         = errors.New("invalid day")
	ErrInvalidMonth       = errors.New("invalid month")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrEmptyDescription   = errors.New("empty description")
	ErrInvalidType        = errors.New("invalid transaction type")
	ErrEmptyEmail         = errors.New("empty email")
	ErrInvalidUserID      = errors.New("invalid user id")
	ErrInvalidLevel       = errors.New("level must be at least 1")
	ErrNegativeExperience = errors.New("experience points cannot be negative")
	ErrEmptyGoalName      = errors.New("empty goal name")
)

// ParseDate parses a date-only string (YYYY-MM-DD) as a calendar date.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return Date{Time: t}, nil
}

// NewDate creates a new Date from year, month (1-12), day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf returns the calendar date of t as seen in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, int(m), d)
}

func (d Date) Validate() error {
	if d.IsZero() {
		return errors.New("date cannot be zero")
	}
	_, month, day := d.Date()
	if day < 1 || day > 31 {
		return ErrInvalidDay
	}
	if month < 1 || month > 12 {
		return ErrInvalidMonth
	}
	return nil
}

// Day returns the day of the month
func (d Date) Day() int {
	return d.Time.Day()
}

// Month returns the month (1-12)
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Year returns the year
func (d Date) Year() int {
	return d.Time.Year()
}

// String formats the date as YYYY-MM-DD.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(dateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON accepts YYYY-MM-DD. A full timestamp is tolerated, in which
// case only its leading date part is kept.
func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("date must be a string: %w", err)
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	if len(s) > len(dateLayout) && s[len(dateLayout)] == 'T' {
		s = s[:len(dateLayout)]
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// ParseTransactionType accepts the canonical names and the legacy
// Portuguese spellings, case-insensitively.
func ParseTransactionType(s string) (TransactionType, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case string(Income), legacyIncome:
		return Income, nil
	case string(Expense), legacyExpense:
		return Expense, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidType, s)
}

func (t TransactionType) Validate() error {
	switch t {
	case Income, Expense:
		return nil
	}
	return ErrInvalidType
}

func (t *TransactionType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("transaction type must be a string: %w", err)
	}
	parsed, err := ParseTransactionType(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

func (u User) Validate() error {
	if u.ID <= 0 {
		return ErrInvalidUserID
	}
	if strings.TrimSpace(u.Email) == "" {
		return ErrEmptyEmail
	}
	if u.Level < 1 {
		return ErrInvalidLevel
	}
	if u.ExperiencePoints < 0 {
		return ErrNegativeExperience
	}
	return nil
}

// Signed returns the amount with the sign implied by the transaction type.
func (t Transaction) Signed() Money {
	if t.Type == Expense {
		return t.Amount.Neg()
	}
	return t.Amount
}

func (t Transaction) Validate() error {
	if err := t.Date.Validate(); err != nil {
		return err
	}
	if len(strings.TrimSpace(t.Description)) == 0 {
		return ErrEmptyDescription
	}
	if len(t.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	return t.Type.Validate()
}

func (g Goal) Validate() error {
	if strings.TrimSpace(g.Name) == "" {
		return ErrEmptyGoalName
	}
	if g.CurrentAmount.IsNegative() {
		return fmt.Errorf("%w: current amount is negative", ErrInvalidAmount)
	}
	if !g.TargetAmount.IsPositive() {
		return fmt.Errorf("%w: target amount must be positive", ErrInvalidAmount)
	}
	return nil
}
