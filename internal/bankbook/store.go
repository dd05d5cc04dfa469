package bankbook

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"fuel-station-go/internal/models"
)

// TransactionFilter narrows ListTransactions. Zero values mean "no filter".
type TransactionFilter struct {
	AccountID uint
	Type      string
	Category  string
	Start     time.Time
	End       time.Time
	Limit     int
}

// Store is the persistence surface the bank-book service runs on. The
// production implementation is GormStore; tests use an in-memory fake.
type Store interface {
	AccountByID(ctx context.Context, id uint) (*models.Account, error)
	// AccountForUpdate loads an account holding a write lock until the
	// enclosing unit of work commits or aborts. Outside InTransaction it
	// behaves like AccountByID.
	AccountForUpdate(ctx context.Context, id uint) (*models.Account, error)
	ListAccounts(ctx context.Context) ([]models.Account, error)
	CreateAccount(ctx context.Context, a *models.Account) error
	SaveAccount(ctx context.Context, a *models.Account) error
	DeleteAccount(ctx context.Context, id uint) error
	FindAccountByNumber(ctx context.Context, number, bankName string, userID *uint) (*models.Account, error)

	CreateTransaction(ctx context.Context, t *models.BankTransaction) error
	TransactionByID(ctx context.Context, id uint) (*models.BankTransaction, error)
	ListTransactions(ctx context.Context, f TransactionFilter) ([]models.BankTransaction, error)
	HasTransactions(ctx context.Context, accountID uint) (bool, error)
	SumByType(ctx context.Context, accountID uint, txType string) (decimal.Decimal, error)

	// InTransaction runs fn inside one atomic unit: every store call made
	// through the Store passed to fn commits together or not at all.
	InTransaction(ctx context.Context, fn func(Store) error) error
}
