package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/Veraticus/spice-ledger/internal/currency"
	"github.com/Veraticus/spice-ledger/internal/model"
	"github.com/Veraticus/spice-ledger/internal/service"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/shopspring/decimal"
)

// Format selects how reports are written.
type Format string

// Output formats.
const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
)

// ParseFormat validates an output format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatTable, FormatJSON:
		return f, nil
	case "":
		return FormatTable, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want table or json)", s)
	}
}

// Renderer writes reports and listings in the chosen format.
type Renderer struct {
	w          io.Writer
	currencies map[string]model.Currency
	format     Format
}

// NewRenderer creates a renderer writing to w.
func NewRenderer(w io.Writer, format Format) *Renderer {
	return &Renderer{
		w:          w,
		format:     format,
		currencies: make(map[string]model.Currency),
	}
}

// WithCurrencies teaches the renderer the precision and symbols of
// user-defined currencies.
func (r *Renderer) WithCurrencies(currencies []model.Currency) *Renderer {
	for _, c := range currencies {
		r.currencies[c.Code] = c
	}
	return r
}

// JSON writes v as indented JSON.
func (r *Renderer) JSON(v any) error {
	enc := json.NewEncoder(r.w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Money formats amount in the currency code.
func (r *Renderer) Money(amount decimal.Decimal, code string) string {
	if c, ok := r.currencies[code]; ok {
		return c.Format(amount)
	}
	if iso, ok := model.ISOCurrency(code); ok {
		return iso.Format(amount)
	}
	return amount.StringFixed(2) + " " + code
}

func (r *Renderer) println(parts ...string) error {
	_, err := fmt.Fprintln(r.w, strings.Join(parts, "\n"))
	return err
}

func newTable(headers ...string) *table.Table {
	amountCols := make(map[int]bool)
	for i, h := range headers {
		if h == "Amount" || h == "Converted" || h == "Total" || h == "Rate" || strings.HasPrefix(h, "Net") || h == "Assets" || h == "Liabilities" {
			amountCols[i] = true
		}
	}
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(SubtleStyle).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return TableHeaderStyle
			case amountCols[col]:
				return AmountCellStyle
			default:
				return TableCellStyle
			}
		})
}

func errorMark(hasErrors bool) string {
	if hasErrors {
		return " " + WarningStyle.Render(WarningIcon)
	}
	return ""
}

func (r *Renderer) rollupTable(title string, roll service.Rollup, base string) string {
	t := newTable("Account", "Amount", "Converted")
	for _, line := range roll.Accounts {
		for _, b := range line.Balances {
			converted := "-"
			if b.ConvertedAmount != nil {
				converted = r.Money(*b.ConvertedAmount, base)
			}
			if !b.Success {
				converted += " " + ErrorStyle.Render(ErrorIcon)
			}
			t.Row(line.AccountName, r.Money(b.Amount, b.CurrencyCode), converted)
		}
	}
	t.Row(BoldStyle.Render("Total"), "", BoldStyle.Render(r.Money(roll.TotalInBaseCurrency, base)))
	return BoldStyle.Render(title) + errorMark(roll.HasConversionErrors) + "\n" + t.Render()
}

func (r *Renderer) treeTable(title string, nodes []*service.CategoryNode, base string) string {
	t := newTable("Category", "Accounts", "Total")
	var walk func(n *service.CategoryNode, depth int)
	walk = func(n *service.CategoryNode, depth int) {
		t.Row(strings.Repeat("  ", depth)+n.Name+errorMark(n.HasConversionErrors),
			strconv.Itoa(n.AccountCount), r.Money(n.Total, base))
		for _, child := range n.Children {
			walk(child, depth+1)
		}
	}
	for _, n := range nodes {
		walk(n, 0)
	}
	return BoldStyle.Render(title) + "\n" + t.Render()
}

func (r *Renderer) validationSummary(v service.ValidationReport) string {
	switch {
	case v.Errors > 0:
		return FormatError(fmt.Sprintf("%d validation errors, %d warnings (run validate for details)", v.Errors, v.Warnings))
	case v.Warnings > 0:
		return FormatWarning(fmt.Sprintf("%d validation warnings (run validate for details)", v.Warnings))
	default:
		return ""
	}
}

func (r *Renderer) netWorthBody(report *service.NetWorthReport) []string {
	base := report.BaseCurrency
	summary := fmt.Sprintf("Assets       %s\nLiabilities  %s\nNet worth    %s",
		r.Money(report.TotalAssets, base),
		r.Money(report.TotalLiabilities, base),
		BoldStyle.Render(r.Money(report.NetWorth, base)))
	parts := []string{
		FormatTitle(fmt.Sprintf("Net worth as of %s (%s)", report.AsOf.Format(model.DateLayout), base)),
		r.rollupTable("Assets", report.Assets, base),
		r.rollupTable("Liabilities", report.Liabilities, base),
		RenderBox("Summary", summary),
	}
	if report.HasConversionErrors {
		parts = append(parts, FormatWarning("Some balances could not be converted and are included unconverted"))
	}
	if s := r.validationSummary(report.Validation); s != "" {
		parts = append(parts, s)
	}
	return parts
}

// NetWorth renders a net worth report.
func (r *Renderer) NetWorth(report *service.NetWorthReport) error {
	if r.format == FormatJSON {
		return r.JSON(report)
	}
	return r.println(r.netWorthBody(report)...)
}

// BalanceSheet renders a balance sheet with its category trees.
func (r *Renderer) BalanceSheet(sheet *service.BalanceSheet) error {
	if r.format == FormatJSON {
		return r.JSON(sheet)
	}
	base := sheet.BaseCurrency
	parts := r.netWorthBody(&sheet.NetWorthReport)
	parts = append(parts,
		r.treeTable("Asset categories", sheet.AssetCategories, base),
		r.treeTable("Liability categories", sheet.LiabilityCategories, base),
	)
	return r.println(parts...)
}

// CashFlow renders a cash flow statement.
func (r *Renderer) CashFlow(statement *service.CashFlowStatement) error {
	if r.format == FormatJSON {
		return r.JSON(statement)
	}
	base := statement.BaseCurrency
	summary := fmt.Sprintf("Income     %s\nExpense    %s\nNet flow   %s",
		r.Money(statement.TotalIncome, base),
		r.Money(statement.TotalExpense, base),
		BoldStyle.Render(r.Money(statement.NetCashFlow, base)))
	parts := []string{
		FormatTitle(fmt.Sprintf("Cash flow %s to %s (%s)",
			statement.Period.Start.Format(model.DateLayout),
			statement.Period.End.Format(model.DateLayout), base)),
		r.treeTable("Income", statement.IncomeCategories, base),
		r.treeTable("Expense", statement.ExpenseCategories, base),
		RenderBox("Summary", summary),
	}
	if statement.HasConversionErrors {
		parts = append(parts, FormatWarning("Some amounts could not be converted and are included unconverted"))
	}
	if s := r.validationSummary(statement.Validation); s != "" {
		parts = append(parts, s)
	}
	return r.println(parts...)
}

// Dashboard renders the dashboard summary.
func (r *Renderer) Dashboard(d *service.DashboardSummary) error {
	if r.format == FormatJSON {
		return r.JSON(d)
	}
	base := d.BaseCurrency
	counts := newTable("Type", "Accounts")
	for _, t := range model.AccountTypes {
		counts.Row(string(t), strconv.Itoa(d.AccountCounts[t]))
	}
	summary := fmt.Sprintf("Net worth      %s\nNet cash flow  %s",
		BoldStyle.Render(r.Money(d.Summary.NetWorth, base)),
		r.Money(d.Summary.NetCashFlow, base))
	parts := []string{
		FormatTitle(fmt.Sprintf("Dashboard %s (%s)", d.AsOf.Format(model.DateLayout), base)),
		RenderBox("Summary", summary),
		fmt.Sprintf("Assets %s, liabilities %s, income %s, expense %s this month",
			r.Money(d.Assets.TotalInBaseCurrency, base),
			r.Money(d.Liabilities.TotalInBaseCurrency, base),
			r.Money(d.Income.TotalInBaseCurrency, base),
			r.Money(d.Expense.TotalInBaseCurrency, base)),
		counts.Render(),
	}
	if d.HasConversionErrors {
		parts = append(parts, FormatWarning("Some amounts could not be converted and are included unconverted"))
	}
	if s := r.validationSummary(d.Validation); s != "" {
		parts = append(parts, s)
	}
	return r.println(parts...)
}

// Series renders a net worth series.
func (r *Renderer) Series(series *service.NetWorthSeries) error {
	if r.format == FormatJSON {
		return r.JSON(series)
	}
	base := series.BaseCurrency
	t := newTable("Date", "Assets", "Liabilities", "Net worth")
	for _, p := range series.Points {
		t.Row(p.Date.Format(model.DateLayout)+errorMark(p.HasConversionErrors),
			r.Money(p.TotalAssets, base),
			r.Money(p.TotalLiabilities, base),
			r.Money(p.NetWorth, base))
	}
	return r.println(FormatTitle("Net worth by month ("+base+")"), t.Render())
}

// Validation renders a validation report.
func (r *Renderer) Validation(report *service.ValidationReport) error {
	if r.format == FormatJSON {
		return r.JSON(report)
	}
	if len(report.Issues) == 0 {
		return r.println(FormatSuccess("No issues found"))
	}
	t := newTable("Severity", "Code", "Account", "Message")
	for _, issue := range report.Issues {
		severity := WarningStyle.Render(string(issue.Severity))
		if issue.Severity == service.SeverityError {
			severity = ErrorStyle.Render(string(issue.Severity))
		}
		subject := issue.AccountName
		if subject == "" && issue.CategoryID != "" {
			subject = "category " + issue.CategoryID
		}
		t.Row(severity, issue.Code, subject, issue.Message)
	}
	return r.println(t.Render(),
		fmt.Sprintf("%d errors, %d warnings", report.Errors, report.Warnings))
}

// Balances renders one account's per-currency balances.
func (r *Renderer) Balances(account *model.Account, balances []model.Balance) error {
	if r.format == FormatJSON {
		return r.JSON(balances)
	}
	t := newTable("Currency", "Amount", "Converted", "Rate")
	for _, b := range balances {
		converted, rate := "-", "-"
		if b.ConvertedAmount != nil {
			converted = b.ConvertedAmount.StringFixed(2)
		}
		if b.ExchangeRate != nil {
			rate = b.ExchangeRate.String()
		}
		if !b.Success {
			converted += " " + ErrorStyle.Render(ErrorIcon)
		}
		t.Row(b.CurrencyCode, r.Money(b.Amount, b.CurrencyCode), converted, rate)
	}
	return r.println(FormatTitle(account.Name), t.Render())
}

// Conversions renders conversion results.
func (r *Renderer) Conversions(results []currency.ConversionResult) error {
	if r.format == FormatJSON {
		return r.JSON(results)
	}
	t := newTable("Amount", "Converted", "Rate", "Strategy", "Rate date")
	for _, res := range results {
		if !res.Success {
			t.Row(r.Money(res.OriginalAmount, res.OriginalCurrency), ErrorStyle.Render(res.Error), "-", "-", "-")
			continue
		}
		strategy := string(res.Strategy)
		if res.Via != "" {
			strategy += " via " + res.Via
		}
		rateDate := "-"
		if res.RateDate != nil {
			rateDate = res.RateDate.Format(model.DateLayout)
		}
		t.Row(r.Money(res.OriginalAmount, res.OriginalCurrency),
			r.Money(res.ConvertedAmount, res.TargetCurrency),
			res.ExchangeRate.String(), strategy, rateDate)
	}
	return r.println(t.Render())
}

// Accounts renders an account listing.
func (r *Renderer) Accounts(accounts []model.Account) error {
	if r.format == FormatJSON {
		return r.JSON(accounts)
	}
	t := newTable("ID", "Name", "Category", "Type", "Currency")
	for _, a := range accounts {
		t.Row(a.ID, a.Name, a.Category.Name, string(a.EffectiveType()), a.Currency.Code)
	}
	return r.println(t.Render())
}

// Categories renders a category listing.
func (r *Renderer) Categories(categories []model.Category) error {
	if r.format == FormatJSON {
		return r.JSON(categories)
	}
	t := newTable("ID", "Name", "Type", "Parent", "Order")
	for _, c := range categories {
		parent, order := "", ""
		if c.ParentID != nil {
			parent = *c.ParentID
		}
		if c.Order != nil {
			order = strconv.Itoa(*c.Order)
		}
		t.Row(c.ID, c.Name, string(c.Type), parent, order)
	}
	return r.println(t.Render())
}

// Currencies renders a currency listing.
func (r *Renderer) Currencies(currencies []model.Currency) error {
	if r.format == FormatJSON {
		return r.JSON(currencies)
	}
	t := newTable("Code", "Name", "Symbol", "Decimals", "Scope")
	for _, c := range currencies {
		scope := "global"
		if !c.IsGlobal() {
			scope = "user"
		}
		t.Row(c.Code, c.Name, c.Symbol, strconv.Itoa(c.DecimalPlaces), scope)
	}
	return r.println(t.Render())
}

// Rates renders an exchange rate listing.
func (r *Renderer) Rates(rates []model.ExchangeRate) error {
	if r.format == FormatJSON {
		return r.JSON(rates)
	}
	t := newTable("From", "To", "Rate", "Effective", "Source")
	for _, rate := range rates {
		t.Row(rate.FromCurrency, rate.ToCurrency, rate.Rate.String(),
			rate.EffectiveDate.Format(model.DateLayout), string(rate.Source))
	}
	return r.println(t.Render())
}

// Transactions renders a transaction listing.
func (r *Renderer) Transactions(txns []model.Transaction) error {
	if r.format == FormatJSON {
		return r.JSON(txns)
	}
	t := newTable("Date", "Account", "Type", "Amount", "Description", "Tags")
	for _, txn := range txns {
		code := txn.Currency
		amount := txn.Amount.String()
		if code != "" {
			amount = r.Money(txn.Amount, code)
		}
		t.Row(txn.Date.Format(model.DateLayout), txn.AccountID, string(txn.Type),
			amount, txn.Description, strings.Join(txn.Tags, ","))
	}
	return r.println(t.Render())
}
