package balance

import (
	"testing"

	"github.com/Veraticus/spice-ledger/internal/model"
	"github.com/Veraticus/spice-ledger/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func codes(issues []service.ValidationIssue) []string {
	out := make([]string, 0, len(issues))
	for _, issue := range issues {
		out = append(out, issue.Code)
	}
	return out
}

func TestInspect(t *testing.T) {
	broken := txn("broken", model.TransactionTypeIncome, "-5", 3)
	broken.Description = ""

	tests := []struct {
		name    string
		account model.Account
		txns    []model.Transaction
		want    []string
	}{
		{
			name:    "clean stock history",
			account: account("checking", model.AccountTypeAsset, "USD"),
			txns: []model.Transaction{
				txn("b1", model.TransactionTypeBalance, "100", 1),
				txn("i1", model.TransactionTypeIncome, "5", 2),
			},
			want: []string{},
		},
		{
			name:    "stock activity before snapshot is flagged once per currency",
			account: account("checking", model.AccountTypeAsset, "USD"),
			txns: []model.Transaction{
				txn("i1", model.TransactionTypeIncome, "5", 1),
				txn("e1", model.TransactionTypeExpense, "2", 2),
				txn("b1", model.TransactionTypeBalance, "100", 3),
			},
			want: []string{service.IssueStockWithoutSnapshot},
		},
		{
			name:    "flow account with balance and mismatched type",
			account: account("salary", model.AccountTypeIncome, "USD"),
			txns: []model.Transaction{
				txn("i1", model.TransactionTypeIncome, "5", 1),
				txn("b1", model.TransactionTypeBalance, "100", 2),
				txn("e1", model.TransactionTypeExpense, "2", 3),
			},
			want: []string{service.IssueBalanceInFlowAccount, service.IssueFlowTypeMismatch},
		},
		{
			name:    "malformed transaction",
			account: account("groceries", model.AccountTypeExpense, "USD"),
			txns:    []model.Transaction{broken},
			want:    []string{service.IssueInvalidTransaction, service.IssueFlowTypeMismatch},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, codes(Inspect(tt.account, tt.txns)))
		})
	}
}

func TestInspect_InvalidTransactionMessageIsSingleLine(t *testing.T) {
	broken := txn("broken", model.TransactionTypeIncome, "0", 3)
	broken.Description = " "

	issues := Inspect(account("cash", model.AccountTypeAsset, "USD"), []model.Transaction{broken})

	require.NotEmpty(t, issues)
	assert.Equal(t, service.SeverityError, issues[0].Severity)
	assert.NotContains(t, issues[0].Message, "\n")
	assert.Contains(t, issues[0].Message, "; ")
	assert.Equal(t, "broken", issues[0].TransactionID)
}
