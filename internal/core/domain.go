package core

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

const (
	CategoryFood          Category = "Food"
	CategoryTransport     Category = "Transport"
	CategoryHousing       Category = "Housing"
	CategoryShopping      Category = "Shopping"
	CategoryEntertainment Category = "Entertainment"
	CategoryHealth        Category = "Health"
	CategoryOther         Category = "Other"
)

type (
	TransactionType string

	Category string

	// Money is an amount in cents. It serializes as a bare number so the
	// stored records keep a plain "amount" field.
	Money struct {
		Cents int64
	}

	User struct {
		ID       string `json:"id"`
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password,omitempty"` // bcrypt hash, elided from API responses
		IsAdmin  bool   `json:"isAdmin"`
	}

	Transaction struct {
		ID          string          `json:"id"`
		UserID      string          `json:"userId"`
		Type        TransactionType `json:"type"`
		Amount      Money           `json:"amount"`
		Description string          `json:"description"`
		Category    Category        `json:"category,omitempty"`
		Date        time.Time       `json:"date"`
	}

	Budget struct {
		UserID string `json:"userId"`
		Amount Money  `json:"amount"`
		Month  string `json:"month"` // "YYYY-MM"
	}
)

var (
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrShortDescription  = errors.New("description too short (min 2 characters)")
	ErrLongDescription   = errors.New("description too long (max 100 characters)")
	ErrMissingCategory   = errors.New("expense requires a category")
	ErrUnknownCategory   = errors.New("unknown category")
	ErrInvalidMonth      = errors.New("invalid month, expected YYYY-MM")
	ErrEmptyName         = errors.New("empty name")
	ErrEmptyEmail        = errors.New("empty email")
	ErrEmptyPassword     = errors.New("empty password")
	ErrInvalidType       = errors.New("invalid transaction type")
)

var monthPattern = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])$`)

// Categories lists every valid expense category.
func Categories() []Category {
	return []Category{
		CategoryFood, CategoryTransport, CategoryHousing, CategoryShopping,
		CategoryEntertainment, CategoryHealth, CategoryOther,
	}
}

func (c Category) Valid() bool {
	for _, known := range Categories() {
		if c == known {
			return true
		}
	}
	return false
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.Cents)
}

func (m *Money) UnmarshalJSON(data []byte) error {
	return json.Unmarshal(data, &m.Cents)
}

// Draft is a transaction waiting for the ledger to assign identity and time.
// It is only constructible through NewIncome and NewExpense, so an income can
// never carry a category and an expense cannot be built without one.
type Draft struct {
	kind        TransactionType
	amount      Money
	description string
	category    Category
}

func NewIncome(amount Money, description string) Draft {
	return Draft{kind: Income, amount: amount, description: strings.TrimSpace(description)}
}

func NewExpense(amount Money, description string, category Category) Draft {
	return Draft{kind: Expense, amount: amount, description: strings.TrimSpace(description), category: category}
}

func (d Draft) Type() TransactionType { return d.kind }
func (d Draft) Amount() Money         { return d.amount }
func (d Draft) Description() string   { return d.description }
func (d Draft) Category() Category    { return d.category }

func (d Draft) Validate() error {
	if d.kind != Income && d.kind != Expense {
		return ErrInvalidType
	}
	if err := d.amount.Validate(); err != nil {
		return err
	}
	// Bounds count characters, not bytes.
	switch runes := utf8.RuneCountInString(d.description); {
	case runes < 2:
		return ErrShortDescription
	case runes > 100:
		return ErrLongDescription
	}
	if d.kind == Expense {
		if d.category == "" {
			return ErrMissingCategory
		}
		if !d.category.Valid() {
			return ErrUnknownCategory
		}
	}
	return nil
}

func (u User) Validate() error {
	if strings.TrimSpace(u.Name) == "" {
		return ErrEmptyName
	}
	if strings.TrimSpace(u.Email) == "" {
		return ErrEmptyEmail
	}
	if u.Password == "" {
		return ErrEmptyPassword
	}
	return nil
}

// Redacted returns a copy safe to hand to API consumers.
func (u User) Redacted() User {
	u.Password = ""
	return u
}

func (b Budget) Validate() error {
	if err := b.Amount.Validate(); err != nil {
		return err
	}
	if !monthPattern.MatchString(b.Month) {
		return ErrInvalidMonth
	}
	return nil
}

// MonthKey formats t as the "YYYY-MM" bucket used by budgets and series.
func MonthKey(t time.Time) string {
	return t.Format("2006-01")
}

// DayKey formats t as the "YYYY-MM-DD" bucket used by the weekly series.
func DayKey(t time.Time) string {
	return t.Format("2006-01-02")
}
