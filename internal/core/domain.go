package core

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	Expense  TransactionType = "expense"
	Withdraw TransactionType = "withdraw"
	Income   TransactionType = "income"
	Transfer TransactionType = "transfer"
)

type (
	TransactionType string

	Date struct {
		time.Time
	}

	Transaction struct {
		ID              string
		Name            string
		Type            TransactionType
		Amount          decimal.Decimal // signed; outflows negative, inflows positive
		AccountID       string
		TargetAccountID string // empty when the counterparty is not recorded
		CategoryID      string // empty when untagged
		Date            Date
	}

	Account struct {
		ID             string
		Name           string
		BankName       string
		AccountNumber  string
		InitialBalance decimal.Decimal
		BalanceDate    Date
		Currency       string
		CategoryID     string
		UserID         string // empty => destination account, not owned by any user
	}

	Category struct {
		ID          string
		Name        string
		Description string
	}
)

var (
	ErrInvalidDate   = errors.New("invalid date")
	ErrZeroAmount    = errors.New("amount cannot be zero")
	ErrInvalidAmount = errors.New("invalid amount")
	ErrEmptyName     = errors.New("empty name")
	ErrInvalidType   = errors.New("invalid transaction type")
	ErrInvalidID     = errors.New("invalid identifier")
)

// legacyTypes maps the legacy transaction type set onto the current one.
// Old records still carry these tags; they are normalized on read.
var legacyTypes = map[TransactionType]TransactionType{
	"payment":  Expense,
	"deposit":  Income,
	"interest": Income,
}

// ParseTransactionType normalizes a type tag, accepting legacy names.
func ParseTransactionType(s string) (TransactionType, error) {
	t := TransactionType(strings.ToLower(strings.TrimSpace(s)))
	if mapped, ok := legacyTypes[t]; ok {
		return mapped, nil
	}
	switch t {
	case Expense, Withdraw, Income, Transfer:
		return t, nil
	}
	return "", ErrInvalidType
}

func (t TransactionType) Valid() bool {
	switch t {
	case Expense, Withdraw, Income, Transfer:
		return true
	}
	return false
}

const dateLayout = "2006-01-02"

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a calendar date in YYYY-MM-DD form.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// String renders the wire form used by the REST collaborator.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(dateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
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

func (t Transaction) Validate() error {
	if len(strings.TrimSpace(t.Name)) == 0 {
		return ErrEmptyName
	}
	if !t.Type.Valid() {
		return ErrInvalidType
	}
	if t.Amount.IsZero() {
		return ErrZeroAmount
	}
	if err := validateID(t.AccountID); err != nil {
		return err
	}
	if t.TargetAccountID != "" {
		if err := validateID(t.TargetAccountID); err != nil {
			return err
		}
	}
	if t.CategoryID != "" {
		if err := validateID(t.CategoryID); err != nil {
			return err
		}
	}
	return t.Date.Validate()
}

func (a Account) Validate() error {
	if len(strings.TrimSpace(a.Name)) == 0 {
		return ErrEmptyName
	}
	return validateID(a.ID)
}

// IsDestination reports whether the account is an external counterparty
// rather than a user-owned account.
func (a Account) IsDestination() bool {
	return a.UserID == ""
}

func validateID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrInvalidID
	}
	return nil
}
