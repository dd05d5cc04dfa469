package bankbook

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"fuel-station-go/internal/models"
)

// Service holds the bank-book business logic on top of a Store.
type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

// Caller identifies who initiates an operation. A system caller (scheduled
// jobs, migrations) skips ownership checks; a user caller must own every
// account the operation touches.
type Caller struct {
	user *uint
}

func SystemCaller() Caller {
	return Caller{}
}

func UserCaller(userID uint) Caller {
	u := userID
	return Caller{user: &u}
}

func (c Caller) IsSystem() bool { return c.user == nil }

// UserID returns the calling user's id, or nil for system callers.
func (c Caller) UserID() *uint {
	if c.user == nil {
		return nil
	}
	u := *c.user
	return &u
}

func (c Caller) mayAccess(a *models.Account) bool {
	return c.user == nil || a.OwnedBy(*c.user)
}

// TransferRequest describes one fund movement between two accounts.
type TransferRequest struct {
	FromAccountID uint
	ToAccountID   uint
	Amount        decimal.Decimal
	Description   string
	Date          time.Time
	Category      string
	Reference     string
	Notes         string
	// Optional caller-supplied transaction ids; generated when blank.
	WithdrawalTransactionID string
	DepositTransactionID    string
	Caller                  Caller
}

// TransferResult reports the outcome of a committed transfer.
type TransferResult struct {
	FromAccount             AccountBalance
	ToAccount               AccountBalance
	Amount                  decimal.Decimal
	WithdrawalTransactionID uint
	DepositTransactionID    uint
}

type AccountBalance struct {
	ID         uint
	Name       string
	NewBalance decimal.Decimal
}

// TransferFunds moves Amount from the source account to the destination
// account: one withdrawal transaction, one deposit transaction, and both
// balance updates, committed as a single atomic unit. On any failure nothing
// is written.
//
// The operation is deliberately not idempotent: two calls with the same
// request and no caller-supplied transaction ids post two independent
// transfers. Callers needing exactly-once semantics must supply their own
// transaction ids and rely on the uniqueness rejection.
func (s *Service) TransferFunds(ctx context.Context, req TransferRequest) (*TransferResult, error) {
	if !req.Amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if req.FromAccountID == req.ToAccountID {
		return nil, ErrSameAccount
	}
	withdrawalID, err := resolveTransactionID(req.WithdrawalTransactionID)
	if err != nil {
		return nil, err
	}
	depositID, err := resolveTransactionID(req.DepositTransactionID)
	if err != nil {
		return nil, err
	}

	var result *TransferResult
	err = s.store.InTransaction(ctx, func(tx Store) error {
		from, to, err := lockAccountPair(ctx, tx, req.FromAccountID, req.ToAccountID)
		if err != nil {
			return err
		}
		if !req.Caller.mayAccess(from) {
			return fmt.Errorf("source account %d: %w", from.ID, ErrNotAuthorized)
		}
		if !req.Caller.mayAccess(to) {
			return fmt.Errorf("destination account %d: %w", to.ID, ErrNotAuthorized)
		}
		if from.CurrentBalance.LessThan(req.Amount) {
			return ErrInsufficientFunds
		}

		date := req.Date
		if date.IsZero() {
			date = time.Now()
		}
		category := req.Category
		if category == "" {
			category = "Transfer"
		}

		withdrawal := &models.BankTransaction{
			TransactionID:    withdrawalID,
			AccountID:        from.ID,
			Amount:           req.Amount,
			Type:             models.TransactionWithdrawal,
			Date:             date,
			Description:      defaultString(req.Description, "Transfer to "+to.AccountName),
			Category:         category,
			Reference:        req.Reference,
			Notes:            req.Notes,
			RelatedAccountID: &to.ID,
			IsTransfer:       true,
			UserID:           req.Caller.UserID(),
		}
		deposit := &models.BankTransaction{
			TransactionID:    depositID,
			AccountID:        to.ID,
			Amount:           req.Amount,
			Type:             models.TransactionDeposit,
			Date:             date,
			Description:      defaultString(req.Description, "Transfer from "+from.AccountName),
			Category:         category,
			Reference:        req.Reference,
			Notes:            req.Notes,
			RelatedAccountID: &from.ID,
			IsTransfer:       true,
			UserID:           req.Caller.UserID(),
		}

		from.CurrentBalance = from.CurrentBalance.Sub(req.Amount)
		to.CurrentBalance = to.CurrentBalance.Add(req.Amount)

		if err := tx.CreateTransaction(ctx, withdrawal); err != nil {
			return err
		}
		if err := tx.CreateTransaction(ctx, deposit); err != nil {
			return err
		}
		if err := tx.SaveAccount(ctx, from); err != nil {
			return err
		}
		if err := tx.SaveAccount(ctx, to); err != nil {
			return err
		}

		result = &TransferResult{
			FromAccount: AccountBalance{ID: from.ID, Name: from.AccountName, NewBalance: from.CurrentBalance},
			ToAccount:   AccountBalance{ID: to.ID, Name: to.AccountName, NewBalance: to.CurrentBalance},
			Amount:      req.Amount,
			WithdrawalTransactionID: withdrawal.ID,
			DepositTransactionID:    deposit.ID,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// lockAccountPair loads both accounts under write locks, always locking in
// ascending id order so opposing transfers between the same pair cannot
// deadlock. Missing accounts are reported source-first.
func lockAccountPair(ctx context.Context, tx Store, fromID, toID uint) (from, to *models.Account, err error) {
	first, second := fromID, toID
	if second < first {
		first, second = second, first
	}
	loaded := make(map[uint]*models.Account, 2)
	for _, id := range []uint{first, second} {
		a, err := tx.AccountForUpdate(ctx, id)
		if err != nil && !errors.Is(err, ErrAccountNotFound) {
			return nil, nil, err
		}
		if a != nil {
			loaded[id] = a
		}
	}
	from, to = loaded[fromID], loaded[toID]
	if from == nil {
		return nil, nil, ErrSourceNotFound
	}
	if to == nil {
		return nil, nil, ErrDestinationNotFound
	}
	return from, to, nil
}

// PostingRequest describes a single-sided deposit or withdrawal.
type PostingRequest struct {
	AccountID     uint
	Amount        decimal.Decimal
	TransactionID string
	Description   string
	Date          time.Time
	Category      string
	Reference     string
	Notes         string
	Caller        Caller
}

// PostingResult reports a committed deposit or withdrawal.
type PostingResult struct {
	Transaction *models.BankTransaction
	NewBalance  decimal.Decimal
}

// Deposit posts a deposit transaction and credits the account balance in one
// atomic unit.
func (s *Service) Deposit(ctx context.Context, req PostingRequest) (*PostingResult, error) {
	return s.post(ctx, req, models.TransactionDeposit)
}

// Withdraw posts a withdrawal transaction and debits the account balance in
// one atomic unit. Fails with ErrInsufficientFunds when the balance cannot
// cover the amount.
func (s *Service) Withdraw(ctx context.Context, req PostingRequest) (*PostingResult, error) {
	return s.post(ctx, req, models.TransactionWithdrawal)
}

func (s *Service) post(ctx context.Context, req PostingRequest, txType string) (*PostingResult, error) {
	if !req.Amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	txID, err := resolveTransactionID(req.TransactionID)
	if err != nil {
		return nil, err
	}

	var result *PostingResult
	err = s.store.InTransaction(ctx, func(tx Store) error {
		account, err := tx.AccountForUpdate(ctx, req.AccountID)
		if err != nil {
			return err
		}
		if !req.Caller.mayAccess(account) {
			return ErrNotAuthorized
		}
		if txType == models.TransactionWithdrawal && account.CurrentBalance.LessThan(req.Amount) {
			return ErrInsufficientFunds
		}

		date := req.Date
		if date.IsZero() {
			date = time.Now()
		}
		posting := &models.BankTransaction{
			TransactionID: txID,
			AccountID:     account.ID,
			Amount:        req.Amount,
			Type:          txType,
			Date:          date,
			Description:   defaultString(req.Description, defaultPostingDescription(txType)),
			Category:      defaultString(req.Category, "Uncategorized"),
			Reference:     req.Reference,
			Notes:         req.Notes,
			UserID:        req.Caller.UserID(),
		}

		if txType == models.TransactionDeposit {
			account.CurrentBalance = account.CurrentBalance.Add(req.Amount)
		} else {
			account.CurrentBalance = account.CurrentBalance.Sub(req.Amount)
		}

		if err := tx.CreateTransaction(ctx, posting); err != nil {
			return err
		}
		if err := tx.SaveAccount(ctx, account); err != nil {
			return err
		}
		result = &PostingResult{Transaction: posting, NewBalance: account.CurrentBalance}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func defaultPostingDescription(txType string) string {
	if txType == models.TransactionDeposit {
		return "Deposit"
	}
	return "Withdrawal"
}

// resolveTransactionID validates a caller-supplied transaction id or
// generates a fresh UUID when none is given.
func resolveTransactionID(supplied string) (string, error) {
	if supplied == "" {
		return uuid.NewString(), nil
	}
	if _, err := uuid.Parse(supplied); err != nil {
		return "", ErrInvalidTransactionID
	}
	return supplied, nil
}

func defaultString(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
