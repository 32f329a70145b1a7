package main

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/Veraticus/spice-ledger/internal/common"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var createdID = regexp.MustCompile(`\(([0-9a-f-]{36})`)

type harness struct {
	t      *testing.T
	dbPath string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	return &harness{t: t, dbPath: filepath.Join(t.TempDir(), "ledger.db")}
}

func (h *harness) run(args ...string) (string, error) {
	h.t.Helper()
	var out, errOut bytes.Buffer
	a := &app{v: viper.New(), out: &out, errOut: &errOut}
	cmd := newRootCmd(a)
	cmd.SetArgs(append([]string{"--db", h.dbPath, "--user", "tester"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func (h *harness) mustRun(args ...string) string {
	h.t.Helper()
	out, err := h.run(args...)
	require.NoError(h.t, err, "ledger %v", args)
	return out
}

func (h *harness) created(args ...string) string {
	h.t.Helper()
	out := h.mustRun(args...)
	m := createdID.FindStringSubmatch(out)
	require.Len(h.t, m, 2, "no ID in %q", out)
	return m[1]
}

func TestMigrateStatus(t *testing.T) {
	h := newHarness(t)

	out := h.mustRun("migrate", "--status")
	assert.Contains(t, out, "Current version: 0")
	assert.Contains(t, out, "Latest version:  3")

	out = h.mustRun("migrate")
	assert.Contains(t, out, "schema version 3")

	out = h.mustRun("migrate", "--status")
	assert.Contains(t, out, "Current version: 3")
}

func TestLedgerWorkflow(t *testing.T) {
	h := newHarness(t)

	h.mustRun("base-currency", "set", "cny")
	assert.Equal(t, "CNY\n", h.mustRun("base-currency", "get"))

	assets := h.created("categories", "add", "Assets", "--type", "asset")
	checking := h.created("accounts", "add", "Checking", "--category", assets, "--currency", "CNY")
	brokerage := h.created("accounts", "add", "Brokerage", "--category", assets, "--currency", "USD")

	h.mustRun("tx", "add", checking, "balance", "1000", "--date", "2024-01-01")
	h.mustRun("tx", "add", checking, "income", "200", "--date", "2024-01-05", "--tag", "refund")
	h.mustRun("tx", "add", checking, "BALANCE", "50", "--date", "2024-01-08")
	h.mustRun("tx", "add", brokerage, "balance", "100", "--date", "2024-01-01")
	h.mustRun("rates", "add", "CNY", "USD", "0.14", "--date", "2024-01-01")

	var report struct {
		BaseCurrency string          `json:"baseCurrency"`
		NetWorth     decimal.Decimal `json:"netWorth"`
	}
	out := h.mustRun("networth", "--as-of", "2024-01-20", "--format", "json")
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, "CNY", report.BaseCurrency)
	assert.Equal(t, "764.29", report.NetWorth.StringFixed(2))

	out = h.mustRun("networth", "--as-of", "2024-01-06")
	assert.Contains(t, out, "Checking")
	assert.Contains(t, out, "1,914.29")

	out = h.mustRun("convert", "100", "USD", "CNY", "--as-of", "2024-01-20")
	assert.Contains(t, out, "inverse")

	out = h.mustRun("validate")
	assert.Contains(t, out, "No issues found")

	var series struct {
		Points []json.RawMessage `json:"points"`
	}
	out = h.mustRun("networth", "--series", "--from", "2024-01-01", "--to", "2024-03-31", "--format", "json")
	require.NoError(t, json.Unmarshal([]byte(out), &series))
	assert.Len(t, series.Points, 3)

	_, err := h.run("accounts", "delete", checking)
	require.ErrorIs(t, err, common.ErrAccountInUse)

	assert.Contains(t, h.mustRun("version"), "ledger dev")
}

func TestInvalidInput(t *testing.T) {
	h := newHarness(t)

	_, err := h.run("networth", "--as-of", "yesterday")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected YYYY-MM-DD")

	_, err = h.run("cashflow", "--from", "2024-02-01", "--to", "2024-01-01")
	require.Error(t, err)

	_, err = h.run("dashboard", "--format", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown output format")

	_, err = h.run("categories", "add", "Equity", "--type", "equity")
	require.Error(t, err)
}
