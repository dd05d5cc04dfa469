package http

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/xeipuuv/gojsonschema"

	"fuel-station-go/internal/bankbook"
	"fuel-station-go/internal/models"
)

// statusFor maps bank-book domain errors onto HTTP status codes. Anything
// unrecognized is a persistence failure.
func statusFor(err error) int {
	switch {
	case errors.Is(err, bankbook.ErrInvalidAmount),
		errors.Is(err, bankbook.ErrSameAccount),
		errors.Is(err, bankbook.ErrInvalidTransactionID),
		errors.Is(err, bankbook.ErrDuplicateTransactionID),
		errors.Is(err, bankbook.ErrInsufficientFunds),
		errors.Is(err, bankbook.ErrDuplicateAccount),
		errors.Is(err, bankbook.ErrHasTransactions):
		return 400
	case errors.Is(err, bankbook.ErrSourceNotFound),
		errors.Is(err, bankbook.ErrDestinationNotFound),
		errors.Is(err, bankbook.ErrAccountNotFound),
		errors.Is(err, bankbook.ErrTransactionNotFound):
		return 404
	case errors.Is(err, bankbook.ErrNotAuthorized):
		return 401
	case errors.Is(err, bankbook.ErrConcurrentModification):
		return 409
	}
	return 500
}

func fail(c *gin.Context, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == 500 {
		msg = "server error"
	}
	c.JSON(status, gin.H{"success": false, "error": msg})
}

func (s *Server) requestContext(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), time.Duration(s.cfg.ReqTimeoutSec)*time.Second)
}

// callerFrom builds the engine caller for this request. Admins act as the
// system and bypass per-account ownership; everyone else is a user caller.
func callerFrom(c *gin.Context) bankbook.Caller {
	user := c.MustGet("user").(*models.User)
	if user.IsAdmin {
		return bankbook.SystemCaller()
	}
	return bankbook.UserCaller(user.ID)
}

func paramID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(400, gin.H{"success": false, "error": "invalid id"})
		return 0, false
	}
	return uint(id), true
}

// parseDate accepts RFC 3339 or plain YYYY-MM-DD. Zero time means "not set".
func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}

// POST /v1/transfer
func (s *Server) transferFunds(c *gin.Context) {
	ctx, cancel := s.requestContext(c)
	defer cancel()

	body, err := c.GetRawData()
	if err != nil {
		c.JSON(400, gin.H{"success": false, "error": "failed to read request body"})
		return
	}

	res, err := s.transferSchema.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		c.JSON(400, gin.H{"success": false, "error": "invalid JSON body"})
		return
	}
	if !res.Valid() {
		errs := make([]string, 0, len(res.Errors()))
		for _, e := range res.Errors() {
			errs = append(errs, e.String())
		}
		c.JSON(400, gin.H{"success": false, "error": "validation failed", "details": errs})
		return
	}

	var input struct {
		FromAccountID           uint            `json:"fromAccountId"`
		ToAccountID             uint            `json:"toAccountId"`
		Amount                  decimal.Decimal `json:"amount"`
		Description             string          `json:"description"`
		Date                    string          `json:"date"`
		Category                string          `json:"category"`
		Reference               string          `json:"reference"`
		Notes                   string          `json:"notes"`
		WithdrawalTransactionID string          `json:"withdrawalTransactionId"`
		DepositTransactionID    string          `json:"depositTransactionId"`
	}
	if err := json.Unmarshal(body, &input); err != nil {
		c.JSON(400, gin.H{"success": false, "error": "invalid JSON body"})
		return
	}
	date, err := parseDate(input.Date)
	if err != nil {
		c.JSON(400, gin.H{"success": false, "error": "invalid date"})
		return
	}

	result, err := s.svc.TransferFunds(ctx, bankbook.TransferRequest{
		FromAccountID:           input.FromAccountID,
		ToAccountID:             input.ToAccountID,
		Amount:                  input.Amount,
		Description:             input.Description,
		Date:                    date,
		Category:                input.Category,
		Reference:               input.Reference,
		Notes:                   input.Notes,
		WithdrawalTransactionID: input.WithdrawalTransactionID,
		DepositTransactionID:    input.DepositTransactionID,
		Caller:                  callerFrom(c),
	})
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(200, gin.H{
		"msg": "Transfer completed successfully",
		"fromAccount": gin.H{
			"id":         result.FromAccount.ID,
			"name":       result.FromAccount.Name,
			"newBalance": result.FromAccount.NewBalance,
		},
		"toAccount": gin.H{
			"id":         result.ToAccount.ID,
			"name":       result.ToAccount.Name,
			"newBalance": result.ToAccount.NewBalance,
		},
		"amount":                result.Amount,
		"withdrawalTransaction": result.WithdrawalTransactionID,
		"depositTransaction":    result.DepositTransactionID,
	})
}

// GET /v1/accounts
func (s *Server) listAccounts(c *gin.Context) {
	ctx, cancel := s.requestContext(c)
	defer cancel()

	accounts, err := s.svc.ListAccounts(ctx)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(200, gin.H{"success": true, "count": len(accounts), "data": accounts})
}

// POST /v1/accounts
func (s *Server) createAccount(c *gin.Context) {
	ctx, cancel := s.requestContext(c)
	defer cancel()

	var input struct {
		AccountName    string          `json:"account_name" binding:"required"`
		AccountNumber  string          `json:"account_number" binding:"required"`
		BankName       string          `json:"bank_name" binding:"required"`
		Branch         string          `json:"branch"`
		AccountType    string          `json:"account_type" binding:"required"`
		OpeningBalance decimal.Decimal `json:"opening_balance"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(400, gin.H{"success": false, "error": err.Error()})
		return
	}

	account := models.Account{
		AccountName:    input.AccountName,
		AccountNumber:  input.AccountNumber,
		BankName:       input.BankName,
		Branch:         input.Branch,
		AccountType:    input.AccountType,
		CurrentBalance: input.OpeningBalance,
		IsActive:       true,
		UserID:         callerFrom(c).UserID(),
	}
	if err := s.svc.CreateAccount(ctx, &account); err != nil {
		fail(c, err)
		return
	}
	c.JSON(201, gin.H{"success": true, "data": account})
}

// GET /v1/accounts/:id
func (s *Server) getAccount(c *gin.Context) {
	ctx, cancel := s.requestContext(c)
	defer cancel()

	id, ok := paramID(c)
	if !ok {
		return
	}
	account, err := s.svc.Account(ctx, id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(200, gin.H{"success": true, "data": account})
}

// PUT /v1/accounts/:id
func (s *Server) updateAccount(c *gin.Context) {
	ctx, cancel := s.requestContext(c)
	defer cancel()

	id, ok := paramID(c)
	if !ok {
		return
	}
	var input struct {
		AccountName         *string `json:"account_name"`
		AccountNumber       *string `json:"account_number"`
		BankName            *string `json:"bank_name"`
		Branch              *string `json:"branch"`
		AccountType         *string `json:"account_type"`
		IsActive            *bool   `json:"is_active"`
		ReconciliationNotes *string `json:"reconciliation_notes"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(400, gin.H{"success": false, "error": err.Error()})
		return
	}

	account, err := s.svc.UpdateAccount(ctx, id, bankbook.AccountUpdate{
		AccountName:         input.AccountName,
		AccountNumber:       input.AccountNumber,
		BankName:            input.BankName,
		Branch:              input.Branch,
		AccountType:         input.AccountType,
		IsActive:            input.IsActive,
		ReconciliationNotes: input.ReconciliationNotes,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(200, gin.H{"success": true, "data": account})
}

// DELETE /v1/accounts/:id
func (s *Server) deleteAccount(c *gin.Context) {
	ctx, cancel := s.requestContext(c)
	defer cancel()

	id, ok := paramID(c)
	if !ok {
		return
	}
	if err := s.svc.DeleteAccount(ctx, id); err != nil {
		fail(c, err)
		return
	}
	c.JSON(200, gin.H{"success": true, "data": gin.H{}})
}

// GET /v1/accounts/:id/summary
func (s *Server) accountSummary(c *gin.Context) {
	ctx, cancel := s.requestContext(c)
	defer cancel()

	id, ok := paramID(c)
	if !ok {
		return
	}
	summary, err := s.svc.AccountSummary(ctx, id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(200, gin.H{
		"success": true,
		"data": gin.H{
			"account":            summary.Account,
			"recentTransactions": summary.RecentTransactions,
			"summary": gin.H{
				"totalDeposits":    summary.TotalDeposits,
				"totalWithdrawals": summary.TotalWithdrawals,
			},
		},
	})
}

// POST /v1/accounts/:id/reconcile
func (s *Server) reconcileAccount(c *gin.Context) {
	ctx, cancel := s.requestContext(c)
	defer cancel()

	id, ok := paramID(c)
	if !ok {
		return
	}
	var input struct {
		StatementBalance   decimal.Decimal `json:"statement_balance"`
		ReconciliationDate string          `json:"reconciliation_date"`
		Notes              string          `json:"notes"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(400, gin.H{"success": false, "error": err.Error()})
		return
	}
	date, err := parseDate(input.ReconciliationDate)
	if err != nil {
		c.JSON(400, gin.H{"success": false, "error": "invalid reconciliation_date"})
		return
	}

	rec, err := s.svc.ReconcileAccount(ctx, id, input.StatementBalance, date, input.Notes)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(200, gin.H{
		"success": true,
		"data": gin.H{
			"account": rec.Account,
			"reconciliation": gin.H{
				"date":             rec.Date,
				"statementBalance": rec.StatementBalance,
				"systemBalance":    rec.SystemBalance,
				"difference":       rec.Difference,
			},
		},
	})
}

// GET /v1/transactions
func (s *Server) listTransactions(c *gin.Context) {
	ctx, cancel := s.requestContext(c)
	defer cancel()

	filter := bankbook.TransactionFilter{
		Type:     c.Query("type"),
		Category: c.Query("category"),
	}
	if v := c.Query("account_id"); v != "" {
		id, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			c.JSON(400, gin.H{"success": false, "error": "invalid account_id"})
			return
		}
		filter.AccountID = uint(id)
	}
	start, err := parseDate(c.Query("start_date"))
	if err != nil {
		c.JSON(400, gin.H{"success": false, "error": "invalid start_date"})
		return
	}
	filter.Start = start
	end, err := parseDate(c.Query("end_date"))
	if err != nil {
		c.JSON(400, gin.H{"success": false, "error": "invalid end_date"})
		return
	}
	filter.End = end
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Limit = n
		}
	}

	txns, err := s.svc.ListTransactions(ctx, filter)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(200, gin.H{"success": true, "count": len(txns), "data": txns})
}

// POST /v1/transactions — post a single-sided deposit or withdrawal.
func (s *Server) createTransaction(c *gin.Context) {
	ctx, cancel := s.requestContext(c)
	defer cancel()

	var input struct {
		AccountID     uint            `json:"account_id" binding:"required"`
		Amount        decimal.Decimal `json:"amount"`
		Type          string          `json:"type" binding:"required,oneof=deposit withdrawal"`
		TransactionID string          `json:"transaction_id"`
		Description   string          `json:"description"`
		Date          string          `json:"date"`
		Category      string          `json:"category"`
		Reference     string          `json:"reference"`
		Notes         string          `json:"notes"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(400, gin.H{"success": false, "error": err.Error()})
		return
	}
	date, err := parseDate(input.Date)
	if err != nil {
		c.JSON(400, gin.H{"success": false, "error": "invalid date"})
		return
	}

	req := bankbook.PostingRequest{
		AccountID:     input.AccountID,
		Amount:        input.Amount,
		TransactionID: input.TransactionID,
		Description:   input.Description,
		Date:          date,
		Category:      input.Category,
		Reference:     input.Reference,
		Notes:         input.Notes,
		Caller:        callerFrom(c),
	}

	var result *bankbook.PostingResult
	if input.Type == models.TransactionDeposit {
		result, err = s.svc.Deposit(ctx, req)
	} else {
		result, err = s.svc.Withdraw(ctx, req)
	}
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(201, gin.H{
		"success": true,
		"data": gin.H{
			"transaction": result.Transaction,
			"newBalance":  result.NewBalance,
		},
	})
}

// GET /v1/dashboard
func (s *Server) dashboard(c *gin.Context) {
	ctx, cancel := s.requestContext(c)
	defer cancel()

	summary, err := s.svc.Dashboard(ctx)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(200, gin.H{
		"success":        true,
		"totalAccounts":  summary.TotalAccounts,
		"activeAccounts": summary.ActiveAccounts,
		"totalBalance":   summary.TotalBalance,
		"accounts":       summary.Accounts,
	})
}
