package restapi

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"ledgerview/internal/core"
)

// Wire DTOs for the REST backend. Amounts arrive as JSON numbers with
// decimal semantics; dates as YYYY-MM-DD strings; nullable foreign keys
// as JSON null. Records are validated as they cross into the domain, so a
// malformed collaborator response fails the whole fetch.
type (
	transactionDTO struct {
		ID              string    `json:"id"`
		Name            string    `json:"name"`
		Type            string    `json:"type"`
		Amount          amountDTO `json:"amount"`
		AccountID       string    `json:"account_id"`
		TargetAccountID *string   `json:"target_account_id"`
		CategoryID      *string   `json:"category_id"`
		Date            core.Date `json:"date"`
	}

	accountDTO struct {
		ID             string          `json:"id"`
		Name           string          `json:"name"`
		BankName       *string         `json:"bank_name"`
		AccountNumber  *string         `json:"account_number"`
		InitialBalance decimal.Decimal `json:"initial_balance"`
		BalanceDate    core.Date       `json:"balance_date"`
		Currency       string          `json:"currency"`
		CategoryID     *string         `json:"category_id"`
		UserID         *string         `json:"user_id"`
	}

	categoryDTO struct {
		ID          string  `json:"id"`
		Name        string  `json:"name"`
		Description *string `json:"description"`
	}

	reportResponseDTO struct {
		Total        decimal.Decimal  `json:"total"`
		Transactions []transactionDTO `json:"transactions"`
	}

	reportRequestDTO struct {
		AccountID   string   `json:"account_id,omitempty"`
		StartDate   string   `json:"start_date,omitempty"`
		EndDate     string   `json:"end_date,omitempty"`
		Types       []string `json:"types,omitempty"`
		CategoryIDs []string `json:"category_ids,omitempty"`
		Skip        int      `json:"skip"`
		Limit       int      `json:"limit"`
	}
)

// amountDTO accepts the backend's numeric amounts as well as quoted decimal
// strings with a comma or dot separator.
type amountDTO struct {
	decimal.Decimal
}

func (a *amountDTO) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	d, err := core.ParseAmount(s)
	if err != nil {
		return err
	}
	a.Decimal = d
	return nil
}

func (d transactionDTO) toCore() (core.Transaction, error) {
	// Legacy records carry the old type tags; normalize on read.
	typ, err := core.ParseTransactionType(d.Type)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("transaction %s: %w", d.ID, err)
	}
	tx := core.Transaction{
		ID:              d.ID,
		Name:            d.Name,
		Type:            typ,
		Amount:          d.Amount.Decimal,
		AccountID:       d.AccountID,
		TargetAccountID: deref(d.TargetAccountID),
		CategoryID:      deref(d.CategoryID),
		Date:            d.Date,
	}
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, fmt.Errorf("transaction %s: %w", d.ID, err)
	}
	return tx, nil
}

func (d accountDTO) toCore() (core.Account, error) {
	account := core.Account{
		ID:             d.ID,
		Name:           d.Name,
		BankName:       deref(d.BankName),
		AccountNumber:  deref(d.AccountNumber),
		InitialBalance: d.InitialBalance,
		BalanceDate:    d.BalanceDate,
		Currency:       d.Currency,
		CategoryID:     deref(d.CategoryID),
		UserID:         deref(d.UserID),
	}
	if err := account.Validate(); err != nil {
		return core.Account{}, fmt.Errorf("account %s: %w", d.ID, err)
	}
	return account, nil
}

func (d categoryDTO) toCore() core.Category {
	return core.Category{
		ID:          d.ID,
		Name:        d.Name,
		Description: deref(d.Description),
	}
}

func toCoreTransactions(dtos []transactionDTO) ([]core.Transaction, error) {
	out := make([]core.Transaction, 0, len(dtos))
	for _, d := range dtos {
		tx, err := d.toCore()
		if err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	return out, nil
}

func toCoreAccounts(dtos []accountDTO) ([]core.Account, error) {
	out := make([]core.Account, 0, len(dtos))
	for _, d := range dtos {
		account, err := d.toCore()
		if err != nil {
			return nil, err
		}
		out = append(out, account)
	}
	return out, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
