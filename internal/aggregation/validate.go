package aggregation

import (
	"fmt"
	"sort"

	"github.com/Veraticus/spice-ledger/internal/balance"
	"github.com/Veraticus/spice-ledger/internal/model"
	"github.com/Veraticus/spice-ledger/internal/service"
)

// ledger is one request's view of a user's records after the validation
// pass. Accounts carry their effective type in Category.Type.
type ledger struct {
	categories map[string]model.Category
	// parents maps a category to the parent it is nested under in reports.
	// Roots, cycle members and orphans are absent.
	parents map[string]string
	txns    map[string][]model.Transaction
	// types is the effective type of every known category.
	types    map[string]model.AccountType
	base     string
	accounts []model.Account
	report   service.ValidationReport
}

// ofType returns the accounts whose effective type is t.
func (l *ledger) ofType(t model.AccountType) []model.Account {
	var out []model.Account
	for _, acc := range l.accounts {
		if acc.EffectiveType() == t {
			out = append(out, acc)
		}
	}
	return out
}

// prepare runs the validation pass over raw records and resolves every
// account's effective type. It never drops an account.
func prepare(categories []model.Category, accounts []model.Account, txns []model.Transaction) *ledger {
	l := &ledger{
		categories: make(map[string]model.Category, len(categories)),
		parents:    make(map[string]string),
		types:      make(map[string]model.AccountType, len(categories)),
		txns:       make(map[string][]model.Transaction, len(accounts)),
	}
	for _, c := range categories {
		l.categories[c.ID] = c
	}

	l.resolveCategories(categories)

	known := make(map[string]bool, len(accounts))
	for _, acc := range accounts {
		known[acc.ID] = true
	}
	for _, tx := range txns {
		if !known[tx.AccountID] {
			l.report.Add(service.ValidationIssue{
				Severity:      service.SeverityWarning,
				Code:          service.IssueUnknownAccount,
				Message:       fmt.Sprintf("transaction references unknown account %q and is ignored", tx.AccountID),
				TransactionID: tx.ID,
			})
			continue
		}
		l.txns[tx.AccountID] = append(l.txns[tx.AccountID], tx)
	}

	for _, acc := range accounts {
		l.accounts = append(l.accounts, l.resolveAccount(acc))
	}
	sort.SliceStable(l.accounts, func(i, j int) bool {
		return l.accounts[i].Name < l.accounts[j].Name
	})

	for _, acc := range l.accounts {
		l.report.Add(balance.Inspect(acc, l.txns[acc.ID])...)
	}
	return l
}

// resolveCategories finds every category's root and records its effective
// type, the root's.
func (l *ledger) resolveCategories(categories []model.Category) {
	ordered := make([]model.Category, len(categories))
	copy(ordered, categories)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].ID < ordered[j].ID })

	for _, c := range ordered {
		root, ok := l.rootOf(c)
		if !ok {
			l.types[c.ID] = c.Type
			continue
		}
		if root.ID != c.ID {
			l.parents[c.ID] = *c.ParentID
		}
		l.types[c.ID] = root.Type

		switch {
		case root.ID == c.ID && !c.Type.Valid():
			l.report.Add(service.ValidationIssue{
				Severity:   service.SeverityWarning,
				Code:       service.IssueCategoryMissingType,
				Message:    fmt.Sprintf("category %q has no account type; its accounts are typed from their transactions", c.Name),
				CategoryID: c.ID,
			})
		case root.ID != c.ID && c.Type != "" && c.Type != root.Type:
			l.report.Add(service.ValidationIssue{
				Severity:   service.SeverityWarning,
				Code:       service.IssueCategoryTypeMismatch,
				Message:    fmt.Sprintf("category %q is typed %s but its root %q is %s; the root type applies", c.Name, c.Type, root.Name, root.Type),
				CategoryID: c.ID,
			})
		}
	}
}

// rootOf walks c's parents. It reports false, after recording the problem,
// when the chain loops or names a missing category; c is then treated as a
// root of its own.
func (l *ledger) rootOf(c model.Category) (model.Category, bool) {
	visited := map[string]bool{c.ID: true}
	cur := c
	for cur.ParentID != nil && *cur.ParentID != "" {
		parentID := *cur.ParentID
		if visited[parentID] {
			l.report.Add(service.ValidationIssue{
				Severity:   service.SeverityError,
				Code:       service.IssueCategoryCycle,
				Message:    fmt.Sprintf("category %q is part of a parent cycle; it is reported as a root", c.Name),
				CategoryID: c.ID,
			})
			return model.Category{}, false
		}
		parent, ok := l.categories[parentID]
		if !ok {
			l.report.Add(service.ValidationIssue{
				Severity:   service.SeverityWarning,
				Code:       service.IssueUnknownCategory,
				Message:    fmt.Sprintf("category %q names unknown parent %q; it is reported as a root", c.Name, parentID),
				CategoryID: c.ID,
			})
			return model.Category{}, false
		}
		visited[parentID] = true
		cur = parent
	}
	return cur, true
}

func (l *ledger) resolveAccount(acc model.Account) model.Account {
	if c, ok := l.categories[acc.Category.ID]; ok {
		acc.Category = c
		acc.Category.Type = l.types[c.ID]
	} else {
		l.report.Add(service.ValidationIssue{
			Severity:    service.SeverityWarning,
			Code:        service.IssueUnknownCategory,
			Message:     fmt.Sprintf("account references unknown category %q", acc.Category.ID),
			AccountID:   acc.ID,
			AccountName: acc.Name,
			CategoryID:  acc.Category.ID,
		})
	}

	if !acc.Category.Type.Valid() {
		inferred := inferType(l.txns[acc.ID])
		l.report.Add(service.ValidationIssue{
			Severity:    service.SeverityWarning,
			Code:        service.IssueCategoryMissingType,
			Message:     fmt.Sprintf("account has no type; treated as %s from its transactions", inferred),
			AccountID:   acc.ID,
			AccountName: acc.Name,
			CategoryID:  acc.Category.ID,
		})
		acc.Category.Type = inferred
	}
	return acc
}

// inferType guesses an untyped account's type: any BALANCE snapshot means a
// stock account, otherwise the more common of INCOME and EXPENSE wins. Ties
// and empty histories fall back to EXPENSE and ASSET respectively.
func inferType(txns []model.Transaction) model.AccountType {
	var income, expense int
	for _, tx := range txns {
		switch tx.Type {
		case model.TransactionTypeBalance:
			return model.AccountTypeAsset
		case model.TransactionTypeIncome:
			income++
		case model.TransactionTypeExpense:
			expense++
		}
	}
	switch {
	case income == 0 && expense == 0:
		return model.AccountTypeAsset
	case income > expense:
		return model.AccountTypeIncome
	default:
		return model.AccountTypeExpense
	}
}
