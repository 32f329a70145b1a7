package service

import "fmt"

// Severity grades a validation issue.
type Severity string

const (
	// SeverityError marks data that breaks a ledger invariant.
	SeverityError Severity = "error"
	// SeverityWarning marks data that is suspicious but interpretable.
	SeverityWarning Severity = "warning"
)

// Validation issue codes.
const (
	IssueInvalidTransaction   = "invalid_transaction"
	IssueBalanceInFlowAccount = "balance_in_flow_account"
	IssueFlowTypeMismatch     = "flow_type_mismatch"
	IssueStockWithoutSnapshot = "stock_activity_without_snapshot"
	IssueCategoryMissingType  = "category_missing_type"
	IssueCategoryTypeMismatch = "category_type_mismatch"
	IssueCategoryCycle        = "category_cycle"
	IssueUnknownCategory      = "unknown_category"
	IssueUnknownAccount       = "unknown_account"
)

// ValidationIssue describes one problem found in the supplied records.
type ValidationIssue struct {
	Severity      Severity `json:"severity"`
	Code          string   `json:"code"`
	Message       string   `json:"message"`
	AccountID     string   `json:"accountId,omitempty"`
	AccountName   string   `json:"accountName,omitempty"`
	CategoryID    string   `json:"categoryId,omitempty"`
	TransactionID string   `json:"transactionId,omitempty"`
}

func (i ValidationIssue) String() string {
	switch {
	case i.TransactionID != "":
		return fmt.Sprintf("[%s] %s (account %s, transaction %s): %s", i.Severity, i.Code, i.AccountName, i.TransactionID, i.Message)
	case i.AccountID != "":
		return fmt.Sprintf("[%s] %s (account %s): %s", i.Severity, i.Code, i.AccountName, i.Message)
	case i.CategoryID != "":
		return fmt.Sprintf("[%s] %s (category %s): %s", i.Severity, i.Code, i.CategoryID, i.Message)
	default:
		return fmt.Sprintf("[%s] %s: %s", i.Severity, i.Code, i.Message)
	}
}

// ValidationReport collects the issues found before aggregation. Accounts
// named in the report are still included in totals.
type ValidationReport struct {
	Issues   []ValidationIssue `json:"issues"`
	Errors   int               `json:"errors"`
	Warnings int               `json:"warnings"`
}

// Add records issues and keeps the counters current.
func (r *ValidationReport) Add(issues ...ValidationIssue) {
	for _, issue := range issues {
		switch issue.Severity {
		case SeverityError:
			r.Errors++
		case SeverityWarning:
			r.Warnings++
		}
		r.Issues = append(r.Issues, issue)
	}
}

// HasErrors reports whether any error-level issue was recorded.
func (r ValidationReport) HasErrors() bool {
	return r.Errors > 0
}

// ForAccount returns the issues attached to one account.
func (r ValidationReport) ForAccount(accountID string) []ValidationIssue {
	var out []ValidationIssue
	for _, issue := range r.Issues {
		if issue.AccountID == accountID {
			out = append(out, issue)
		}
	}
	return out
}
