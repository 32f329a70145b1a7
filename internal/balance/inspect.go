package balance

import (
	"fmt"
	"strings"

	"github.com/Veraticus/spice-ledger/internal/model"
	"github.com/Veraticus/spice-ledger/internal/service"
)

// Inspect checks an account's full history against the rules for its type.
// It never rejects data; the issues are informational and the same
// transactions are still used by Calculate.
func Inspect(account model.Account, txns []model.Transaction) []service.ValidationIssue {
	var issues []service.ValidationIssue

	for _, tx := range txns {
		if err := tx.Validate(); err != nil {
			issues = append(issues, service.ValidationIssue{
				Severity:      service.SeverityError,
				Code:          service.IssueInvalidTransaction,
				Message:       strings.ReplaceAll(err.Error(), "\n", "; "),
				AccountID:     account.ID,
				AccountName:   account.Name,
				CategoryID:    account.Category.ID,
				TransactionID: tx.ID,
			})
		}
	}

	accountType := account.EffectiveType()
	if accountType.IsFlow() {
		for _, tx := range txns {
			switch {
			case tx.Type == model.TransactionTypeBalance:
				issues = append(issues, BalanceInFlowIssue(account, tx))
			case tx.Type.Valid() && string(tx.Type) != string(accountType):
				issues = append(issues, FlowMismatchIssue(account, tx))
			}
		}
		return issues
	}

	snapshot := make(map[string]bool)
	flagged := make(map[string]bool)
	for _, tx := range Chronological(txns) {
		cur := CurrencyOf(account, tx)
		switch tx.Type {
		case model.TransactionTypeBalance:
			snapshot[cur] = true
		case model.TransactionTypeIncome, model.TransactionTypeExpense:
			if snapshot[cur] || flagged[cur] {
				continue
			}
			flagged[cur] = true
			issues = append(issues, service.ValidationIssue{
				Severity:      service.SeverityWarning,
				Code:          service.IssueStockWithoutSnapshot,
				Message:       fmt.Sprintf("%s activity in %s precedes any BALANCE snapshot; running total starts from zero", cur, accountType),
				AccountID:     account.ID,
				AccountName:   account.Name,
				CategoryID:    account.Category.ID,
				TransactionID: tx.ID,
			})
		}
	}
	return issues
}
