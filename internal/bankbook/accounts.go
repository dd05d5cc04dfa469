package bankbook

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"fuel-station-go/internal/models"
)

// ErrDuplicateAccount means an account with the same number already exists
// at the same bank for the same owner.
var ErrDuplicateAccount = errors.New("a bank account with this account number already exists for this bank")

// CreateAccount opens a new bank account with an opening balance. The
// account number must be unique per bank per owner.
func (s *Service) CreateAccount(ctx context.Context, a *models.Account) error {
	if a.AccountName == "" || a.AccountNumber == "" || a.BankName == "" {
		return errors.New("account name, number and bank name are required")
	}
	if !models.ValidAccountType(a.AccountType) {
		return errors.New("invalid account type")
	}
	existing, err := s.store.FindAccountByNumber(ctx, a.AccountNumber, a.BankName, a.UserID)
	if err != nil && !errors.Is(err, ErrAccountNotFound) {
		return err
	}
	if existing != nil {
		return ErrDuplicateAccount
	}
	return s.store.CreateAccount(ctx, a)
}

// AccountUpdate carries the mutable account fields; nil means "leave as is".
type AccountUpdate struct {
	AccountName         *string
	AccountNumber       *string
	BankName            *string
	Branch              *string
	AccountType         *string
	IsActive            *bool
	ReconciliationNotes *string
}

// UpdateAccount applies an update to an account. An AccountNumber change is
// silently dropped once any transaction exists for the account, so past
// transactions stay traceable to the number they were posted under.
// CurrentBalance is not updatable here; only postings move it. The
// read-modify-write runs inside one unit with the row locked, so the save
// cannot overwrite a balance a concurrent transfer just committed.
func (s *Service) UpdateAccount(ctx context.Context, id uint, upd AccountUpdate) (*models.Account, error) {
	var account *models.Account
	err := s.store.InTransaction(ctx, func(tx Store) error {
		a, err := tx.AccountForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if upd.AccountNumber != nil {
			has, err := tx.HasTransactions(ctx, id)
			if err != nil {
				return err
			}
			if !has {
				a.AccountNumber = *upd.AccountNumber
			}
		}
		if upd.AccountName != nil {
			a.AccountName = *upd.AccountName
		}
		if upd.BankName != nil {
			a.BankName = *upd.BankName
		}
		if upd.Branch != nil {
			a.Branch = *upd.Branch
		}
		if upd.AccountType != nil {
			if !models.ValidAccountType(*upd.AccountType) {
				return errors.New("invalid account type")
			}
			a.AccountType = *upd.AccountType
		}
		if upd.IsActive != nil {
			a.IsActive = *upd.IsActive
		}
		if upd.ReconciliationNotes != nil {
			a.ReconciliationNotes = *upd.ReconciliationNotes
		}
		if err := tx.SaveAccount(ctx, a); err != nil {
			return err
		}
		account = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	return account, nil
}

// DeleteAccount removes an account that has never posted a transaction.
// Accounts with history cannot be deleted; callers should deactivate them.
// Guard and delete share one unit with the row locked, so a posting cannot
// slip in between the check and the delete.
func (s *Service) DeleteAccount(ctx context.Context, id uint) error {
	return s.store.InTransaction(ctx, func(tx Store) error {
		if _, err := tx.AccountForUpdate(ctx, id); err != nil {
			return err
		}
		has, err := tx.HasTransactions(ctx, id)
		if err != nil {
			return err
		}
		if has {
			return ErrHasTransactions
		}
		return tx.DeleteAccount(ctx, id)
	})
}

// Account fetches a single account.
func (s *Service) Account(ctx context.Context, id uint) (*models.Account, error) {
	return s.store.AccountByID(ctx, id)
}

// ListAccounts returns all accounts, newest first.
func (s *Service) ListAccounts(ctx context.Context) ([]models.Account, error) {
	return s.store.ListAccounts(ctx)
}

// ListTransactions returns posted transactions matching the filter.
func (s *Service) ListTransactions(ctx context.Context, f TransactionFilter) ([]models.BankTransaction, error) {
	return s.store.ListTransactions(ctx, f)
}

// ReconciliationResult records a statement-vs-system comparison.
type ReconciliationResult struct {
	Account          *models.Account
	Date             time.Time
	StatementBalance decimal.Decimal
	SystemBalance    decimal.Decimal
	Difference       decimal.Decimal
}

// ReconcileAccount records a reconciliation annotation against the account.
// It never alters CurrentBalance; the difference is purely informational.
// The annotation is written inside one unit with the row locked, so saving
// it cannot revert a balance committed by a concurrent transfer.
func (s *Service) ReconcileAccount(ctx context.Context, id uint, statementBalance decimal.Decimal, date time.Time, notes string) (*ReconciliationResult, error) {
	if date.IsZero() {
		date = time.Now()
	}
	var result *ReconciliationResult
	err := s.store.InTransaction(ctx, func(tx Store) error {
		account, err := tx.AccountForUpdate(ctx, id)
		if err != nil {
			return err
		}
		account.LastReconciled = &date
		account.ReconciliationNotes = notes
		if err := tx.SaveAccount(ctx, account); err != nil {
			return err
		}
		result = &ReconciliationResult{
			Account:          account,
			Date:             date,
			StatementBalance: statementBalance,
			SystemBalance:    account.CurrentBalance,
			Difference:       statementBalance.Sub(account.CurrentBalance),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// AccountSummary bundles an account with its recent activity and totals.
type AccountSummary struct {
	Account            *models.Account
	RecentTransactions []models.BankTransaction
	TotalDeposits      decimal.Decimal
	TotalWithdrawals   decimal.Decimal
}

func (s *Service) AccountSummary(ctx context.Context, id uint) (*AccountSummary, error) {
	account, err := s.store.AccountByID(ctx, id)
	if err != nil {
		return nil, err
	}
	recent, err := s.store.ListTransactions(ctx, TransactionFilter{AccountID: id, Limit: 10})
	if err != nil {
		return nil, err
	}
	deposits, err := s.store.SumByType(ctx, id, models.TransactionDeposit)
	if err != nil {
		return nil, err
	}
	withdrawals, err := s.store.SumByType(ctx, id, models.TransactionWithdrawal)
	if err != nil {
		return nil, err
	}
	return &AccountSummary{
		Account:            account,
		RecentTransactions: recent,
		TotalDeposits:      deposits,
		TotalWithdrawals:   withdrawals,
	}, nil
}

// DashboardSummary is the accounts overview for the dashboard.
type DashboardSummary struct {
	TotalAccounts  int               `json:"total_accounts"`
	ActiveAccounts int               `json:"active_accounts"`
	TotalBalance   decimal.Decimal   `json:"total_balance"`
	Accounts       []DashboardEntry  `json:"accounts"`
}

type DashboardEntry struct {
	ID       uint            `json:"id"`
	Name     string          `json:"name"`
	Bank     string          `json:"bank"`
	Balance  decimal.Decimal `json:"balance"`
	IsActive bool            `json:"is_active"`
}

func (s *Service) Dashboard(ctx context.Context) (*DashboardSummary, error) {
	accounts, err := s.store.ListAccounts(ctx)
	if err != nil {
		return nil, err
	}
	summary := &DashboardSummary{
		TotalAccounts: len(accounts),
		TotalBalance:  decimal.Zero,
		Accounts:      make([]DashboardEntry, 0, len(accounts)),
	}
	for _, a := range accounts {
		if a.IsActive {
			summary.ActiveAccounts++
		}
		summary.TotalBalance = summary.TotalBalance.Add(a.CurrentBalance)
		summary.Accounts = append(summary.Accounts, DashboardEntry{
			ID:       a.ID,
			Name:     a.AccountName,
			Bank:     a.BankName,
			Balance:  a.CurrentBalance,
			IsActive: a.IsActive,
		})
	}
	return summary, nil
}
