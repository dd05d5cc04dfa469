package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account types accepted by the bank book.
const (
	AccountTypeChecking   = "checking"
	AccountTypeSavings    = "savings"
	AccountTypeCreditCard = "credit-card"
	AccountTypeLoan       = "loan"
	AccountTypeInvestment = "investment"
	AccountTypeOther      = "other"
)

type Account struct {
	ID                  uint            `gorm:"primaryKey" json:"id"`
	UserID              *uint           `json:"user_id,omitempty"` // nil = station-wide account
	AccountName         string          `json:"account_name"`
	AccountNumber       string          `json:"account_number"`
	BankName            string          `json:"bank_name"`
	Branch              string          `json:"branch"`
	AccountType         string          `json:"account_type"` // checking, savings, credit-card, loan, investment, other
	CurrentBalance      decimal.Decimal `gorm:"type:numeric(14,2)" json:"current_balance"`
	IsActive            bool            `gorm:"default:true" json:"is_active"`
	LastReconciled      *time.Time      `json:"last_reconciled,omitempty"`
	ReconciliationNotes string          `json:"reconciliation_notes"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
}

// OwnedBy reports whether userID may operate on this account. Accounts
// without an owning user are station-wide and open to any caller.
func (a *Account) OwnedBy(userID uint) bool {
	return a.UserID == nil || *a.UserID == userID
}

func ValidAccountType(t string) bool {
	switch t {
	case AccountTypeChecking, AccountTypeSavings, AccountTypeCreditCard,
		AccountTypeLoan, AccountTypeInvestment, AccountTypeOther:
		return true
	}
	return false
}
