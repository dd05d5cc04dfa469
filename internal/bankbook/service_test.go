package bankbook

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fuel-station-go/internal/models"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func newTestService() (*Service, *MemStore) {
	store := NewMemStore()
	return NewService(store), store
}

func seedAccount(t *testing.T, store *MemStore, name, balance string, owner *uint) *models.Account {
	t.Helper()
	a := &models.Account{
		AccountName:    name,
		AccountNumber:  "AC-" + name,
		BankName:       "State Bank",
		AccountType:    models.AccountTypeChecking,
		CurrentBalance: dec(balance),
		IsActive:       true,
		UserID:         owner,
	}
	require.NoError(t, store.CreateAccount(context.Background(), a))
	return a
}

func accountBalance(t *testing.T, store *MemStore, id uint) decimal.Decimal {
	t.Helper()
	a, err := store.AccountByID(context.Background(), id)
	require.NoError(t, err)
	return a.CurrentBalance
}

func TestTransferFunds_MovesFunds(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()

	x := seedAccount(t, store, "Station Main", "1000", nil)
	y := seedAccount(t, store, "Petty Cash", "500", nil)

	res, err := svc.TransferFunds(ctx, TransferRequest{
		FromAccountID: x.ID,
		ToAccountID:   y.ID,
		Amount:        dec("300"),
	})
	require.NoError(t, err)

	assert.True(t, res.FromAccount.NewBalance.Equal(dec("700")))
	assert.True(t, res.ToAccount.NewBalance.Equal(dec("800")))
	assert.True(t, res.Amount.Equal(dec("300")))
	assert.True(t, accountBalance(t, store, x.ID).Equal(dec("700")))
	assert.True(t, accountBalance(t, store, y.ID).Equal(dec("800")))

	withdrawal, err := store.TransactionByID(ctx, res.WithdrawalTransactionID)
	require.NoError(t, err)
	deposit, err := store.TransactionByID(ctx, res.DepositTransactionID)
	require.NoError(t, err)

	assert.Equal(t, models.TransactionWithdrawal, withdrawal.Type)
	assert.Equal(t, x.ID, withdrawal.AccountID)
	require.NotNil(t, withdrawal.RelatedAccountID)
	assert.Equal(t, y.ID, *withdrawal.RelatedAccountID)
	assert.True(t, withdrawal.IsTransfer)
	assert.True(t, withdrawal.Amount.Equal(dec("300")))

	assert.Equal(t, models.TransactionDeposit, deposit.Type)
	assert.Equal(t, y.ID, deposit.AccountID)
	require.NotNil(t, deposit.RelatedAccountID)
	assert.Equal(t, x.ID, *deposit.RelatedAccountID)
	assert.True(t, deposit.IsTransfer)
	assert.True(t, deposit.Amount.Equal(dec("300")))

	// Total money is conserved across the pair.
	total := accountBalance(t, store, x.ID).Add(accountBalance(t, store, y.ID))
	assert.True(t, total.Equal(dec("1500")))
}

func TestTransferFunds_DefaultDescriptions(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()

	x := seedAccount(t, store, "Station Main", "1000", nil)
	y := seedAccount(t, store, "Payroll", "0", nil)

	res, err := svc.TransferFunds(ctx, TransferRequest{
		FromAccountID: x.ID,
		ToAccountID:   y.ID,
		Amount:        dec("10"),
	})
	require.NoError(t, err)

	withdrawal, err := store.TransactionByID(ctx, res.WithdrawalTransactionID)
	require.NoError(t, err)
	deposit, err := store.TransactionByID(ctx, res.DepositTransactionID)
	require.NoError(t, err)

	assert.Equal(t, "Transfer to Payroll", withdrawal.Description)
	assert.Equal(t, "Transfer from Station Main", deposit.Description)
	assert.Equal(t, "Transfer", withdrawal.Category)
	assert.Equal(t, "Transfer", deposit.Category)
}

func TestTransferFunds_InsufficientFunds(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()

	x := seedAccount(t, store, "Small", "100", nil)
	y := seedAccount(t, store, "Other", "500", nil)

	_, err := svc.TransferFunds(ctx, TransferRequest{
		FromAccountID: x.ID,
		ToAccountID:   y.ID,
		Amount:        dec("300"),
	})
	require.ErrorIs(t, err, ErrInsufficientFunds)

	assert.True(t, accountBalance(t, store, x.ID).Equal(dec("100")))
	assert.True(t, accountBalance(t, store, y.ID).Equal(dec("500")))
	txns, err := store.ListTransactions(ctx, TransactionFilter{})
	require.NoError(t, err)
	assert.Empty(t, txns)
}

func TestTransferFunds_SameAccount(t *testing.T) {
	svc, store := newTestService()
	x := seedAccount(t, store, "Solo", "100", nil)

	_, err := svc.TransferFunds(context.Background(), TransferRequest{
		FromAccountID: x.ID,
		ToAccountID:   x.ID,
		Amount:        dec("10"),
	})
	require.ErrorIs(t, err, ErrSameAccount)
	assert.True(t, accountBalance(t, store, x.ID).Equal(dec("100")))
}

func TestTransferFunds_InvalidAmount(t *testing.T) {
	svc, store := newTestService()
	x := seedAccount(t, store, "A", "100", nil)
	y := seedAccount(t, store, "B", "100", nil)

	for _, amount := range []string{"0", "-5"} {
		_, err := svc.TransferFunds(context.Background(), TransferRequest{
			FromAccountID: x.ID,
			ToAccountID:   y.ID,
			Amount:        dec(amount),
		})
		assert.ErrorIs(t, err, ErrInvalidAmount, "amount %s", amount)
	}
}

func TestTransferFunds_ExactBalanceDrainsToZero(t *testing.T) {
	svc, store := newTestService()
	x := seedAccount(t, store, "A", "250.50", nil)
	y := seedAccount(t, store, "B", "0", nil)

	_, err := svc.TransferFunds(context.Background(), TransferRequest{
		FromAccountID: x.ID,
		ToAccountID:   y.ID,
		Amount:        dec("250.50"),
	})
	require.NoError(t, err)
	assert.True(t, accountBalance(t, store, x.ID).IsZero())
	assert.True(t, accountBalance(t, store, y.ID).Equal(dec("250.50")))
}

func TestTransferFunds_MissingAccounts(t *testing.T) {
	svc, store := newTestService()
	x := seedAccount(t, store, "A", "100", nil)

	_, err := svc.TransferFunds(context.Background(), TransferRequest{
		FromAccountID: 999, ToAccountID: x.ID, Amount: dec("10"),
	})
	assert.ErrorIs(t, err, ErrSourceNotFound)

	_, err = svc.TransferFunds(context.Background(), TransferRequest{
		FromAccountID: x.ID, ToAccountID: 999, Amount: dec("10"),
	})
	assert.ErrorIs(t, err, ErrDestinationNotFound)

	// Both missing: source reported first.
	_, err = svc.TransferFunds(context.Background(), TransferRequest{
		FromAccountID: 998, ToAccountID: 999, Amount: dec("10"),
	})
	assert.ErrorIs(t, err, ErrSourceNotFound)
}

func TestTransferFunds_Ownership(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()
	alice, bob := uint(1), uint(2)

	src := seedAccount(t, store, "Alice Src", "1000", &alice)
	dst := seedAccount(t, store, "Bob Dst", "0", &bob)

	// Bob owns neither account's source; source is checked first.
	_, err := svc.TransferFunds(ctx, TransferRequest{
		FromAccountID: src.ID, ToAccountID: dst.ID, Amount: dec("10"),
		Caller: UserCaller(bob),
	})
	require.ErrorIs(t, err, ErrNotAuthorized)
	assert.Contains(t, err.Error(), "source")

	// Alice owns the source but not the destination.
	_, err = svc.TransferFunds(ctx, TransferRequest{
		FromAccountID: src.ID, ToAccountID: dst.ID, Amount: dec("10"),
		Caller: UserCaller(alice),
	})
	require.ErrorIs(t, err, ErrNotAuthorized)
	assert.Contains(t, err.Error(), "destination")

	// System callers bypass ownership entirely.
	_, err = svc.TransferFunds(ctx, TransferRequest{
		FromAccountID: src.ID, ToAccountID: dst.ID, Amount: dec("10"),
		Caller: SystemCaller(),
	})
	require.NoError(t, err)
	assert.True(t, accountBalance(t, store, src.ID).Equal(dec("990")))
}

func TestTransferFunds_AbortLeavesNoPartialState(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()

	x := seedAccount(t, store, "A", "1000", nil)
	y := seedAccount(t, store, "B", "500", nil)

	// Let the first write (withdrawal insert) succeed, then fail.
	store.FailAfterWrites = 1
	store.FailErr = errors.New("storage down")

	_, err := svc.TransferFunds(ctx, TransferRequest{
		FromAccountID: x.ID, ToAccountID: y.ID, Amount: dec("300"),
	})
	require.Error(t, err)

	store.FailAfterWrites = -1
	assert.True(t, accountBalance(t, store, x.ID).Equal(dec("1000")))
	assert.True(t, accountBalance(t, store, y.ID).Equal(dec("500")))
	txns, err := store.ListTransactions(ctx, TransactionFilter{})
	require.NoError(t, err)
	assert.Empty(t, txns, "aborted transfer must leave no transactions behind")
}

func TestTransferFunds_DuplicateTransactionID(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()

	x := seedAccount(t, store, "A", "1000", nil)
	y := seedAccount(t, store, "B", "500", nil)

	fixed := uuid.NewString()
	_, err := svc.TransferFunds(ctx, TransferRequest{
		FromAccountID: x.ID, ToAccountID: y.ID, Amount: dec("100"),
		WithdrawalTransactionID: fixed,
	})
	require.NoError(t, err)

	_, err = svc.TransferFunds(ctx, TransferRequest{
		FromAccountID: x.ID, ToAccountID: y.ID, Amount: dec("100"),
		WithdrawalTransactionID: fixed,
	})
	require.ErrorIs(t, err, ErrDuplicateTransactionID)

	// The rejected second transfer had no effect.
	assert.True(t, accountBalance(t, store, x.ID).Equal(dec("900")))
	assert.True(t, accountBalance(t, store, y.ID).Equal(dec("600")))
}

func TestTransferFunds_InvalidSuppliedTransactionID(t *testing.T) {
	svc, store := newTestService()
	x := seedAccount(t, store, "A", "1000", nil)
	y := seedAccount(t, store, "B", "0", nil)

	_, err := svc.TransferFunds(context.Background(), TransferRequest{
		FromAccountID: x.ID, ToAccountID: y.ID, Amount: dec("10"),
		DepositTransactionID: "not-a-uuid",
	})
	require.ErrorIs(t, err, ErrInvalidTransactionID)
	assert.True(t, accountBalance(t, store, x.ID).Equal(dec("1000")))
}

func TestTransferFunds_NotIdempotent(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()

	x := seedAccount(t, store, "A", "1000", nil)
	y := seedAccount(t, store, "B", "0", nil)

	req := TransferRequest{FromAccountID: x.ID, ToAccountID: y.ID, Amount: dec("100")}
	_, err := svc.TransferFunds(ctx, req)
	require.NoError(t, err)
	_, err = svc.TransferFunds(ctx, req)
	require.NoError(t, err)

	// Without caller-supplied ids the same request posts twice.
	assert.True(t, accountBalance(t, store, x.ID).Equal(dec("800")))
	assert.True(t, accountBalance(t, store, y.ID).Equal(dec("200")))
	txns, err := store.ListTransactions(ctx, TransactionFilter{})
	require.NoError(t, err)
	assert.Len(t, txns, 4)
}

func TestTransferFunds_ConcurrentDoubleSpend(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()

	x := seedAccount(t, store, "A", "1000", nil)
	y := seedAccount(t, store, "B", "0", nil)

	var wg sync.WaitGroup
	results := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := svc.TransferFunds(ctx, TransferRequest{
				FromAccountID: x.ID, ToAccountID: y.ID, Amount: dec("600"),
			})
			results[i] = err
		}(i)
	}
	wg.Wait()

	var successes, rejections int
	for _, err := range results {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, ErrInsufficientFunds) || errors.Is(err, ErrConcurrentModification):
			rejections++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, successes, "exactly one transfer must win")
	assert.Equal(t, 1, rejections)
	assert.True(t, accountBalance(t, store, x.ID).Equal(dec("400")))
	assert.True(t, accountBalance(t, store, y.ID).Equal(dec("600")))
}

func TestDepositAndWithdraw(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()

	a := seedAccount(t, store, "Till", "100", nil)

	dep, err := svc.Deposit(ctx, PostingRequest{AccountID: a.ID, Amount: dec("50")})
	require.NoError(t, err)
	assert.True(t, dep.NewBalance.Equal(dec("150")))
	assert.Equal(t, models.TransactionDeposit, dep.Transaction.Type)
	assert.False(t, dep.Transaction.IsTransfer)

	wd, err := svc.Withdraw(ctx, PostingRequest{AccountID: a.ID, Amount: dec("150")})
	require.NoError(t, err)
	assert.True(t, wd.NewBalance.IsZero())

	_, err = svc.Withdraw(ctx, PostingRequest{AccountID: a.ID, Amount: dec("0.01")})
	require.ErrorIs(t, err, ErrInsufficientFunds)

	_, err = svc.Deposit(ctx, PostingRequest{AccountID: a.ID, Amount: dec("-1")})
	require.ErrorIs(t, err, ErrInvalidAmount)

	_, err = svc.Deposit(ctx, PostingRequest{AccountID: 999, Amount: dec("1")})
	require.ErrorIs(t, err, ErrAccountNotFound)
}
