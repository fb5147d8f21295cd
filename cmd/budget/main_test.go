package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"budget-ledger/internal/domain"
)

func writeCSVBudget(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	transactions := strings.Join([]string{
		"id,date,account_id,amount,category_id,transfer_target_id",
		"t1,2024-01-02,A,1000.00,Category/__ImmediateIncome__,",
		"t2,2024-01-05,A,-40.00,c1,",
		"t3,2024-02-01,A,-100.00,,B",
		"t4,2024-02-01,B,100.00,,A",
	}, "\n") + "\n"
	files := map[string]string{
		"accounts.csv":          "id,name,type\nA,Checking,Checking\nB,Savings,Savings\n",
		"categories.csv":        "id,name,master_category_id\nc1,Groceries,m1\n",
		"master_categories.csv": "id,name\nm1,Everyday\n",
		"transactions.csv":      transactions,
		"budgets.csv":           "month,category_id,budgeted\n2024-01,c1,100\n",
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
	}
	return dir
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append(args, "--log-level", "error"))
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCLI_Period(t *testing.T) {
	dir := writeCSVBudget(t)

	out, err := runCLI(t, "period", "--source", dir, "--from", "2024-01-01", "--to", "2024-02-29", "--format", "json")
	require.NoError(t, err)

	var report domain.PeriodReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, "on-budget", report.Pool)
	assert.True(t, decimal.RequireFromString("960").Equal(report.Summary.ClosingBalance), "closing %s", report.Summary.ClosingBalance)
	assert.True(t, decimal.RequireFromString("40").Equal(report.Summary.Outflows))
}

func TestCLI_Month(t *testing.T) {
	dir := writeCSVBudget(t)

	out, err := runCLI(t, "month", "2024-02", "--source", dir, "--format", "json")
	require.NoError(t, err)

	var report domain.BudgetReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	require.Len(t, report.Months, 1)
	groceries := report.Months[0].Categories["c1"]
	assert.True(t, decimal.RequireFromString("60").Equal(groceries.Available), "available %s", groceries.Available)
}

func TestCLI_FlowsTable(t *testing.T) {
	dir := writeCSVBudget(t)

	out, err := runCLI(t, "flows", "--source", dir, "--from", "2024-01-01", "--to", "2024-12-31", "--format", "table")
	require.NoError(t, err)
	assert.Contains(t, out, "income")
	assert.Contains(t, out, "1000.00")
	assert.Contains(t, out, "transfer_to_savings")
	assert.Contains(t, out, "Net")
}

func TestCLI_ImportThenReport(t *testing.T) {
	dir := writeCSVBudget(t)
	db := filepath.Join(t.TempDir(), "budgets.db")

	out, err := runCLI(t, "import", db, "--source", dir, "--name", "household", "--format", "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"household"`)

	out, err = runCLI(t, "period", "--backend", "sqlite", "--source", db, "--budget", "household",
		"--from", "2024-01-01", "--to", "2024-01-31", "--format", "json")
	require.NoError(t, err)

	var report domain.PeriodReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.True(t, decimal.RequireFromString("960").Equal(report.Summary.ClosingBalance))

	out, err = runCLI(t, "list", "--backend", "sqlite", "--source", db, "--budget", "", "--format", "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"name": "household"`)

	// Later tests run with the default backend again.
	_, _ = runCLI(t, "version", "--backend", "csv", "--budget", "")
}

func TestCLI_InvalidConfig(t *testing.T) {
	_, err := runCLI(t, "period", "--source", t.TempDir(), "--from", "2024-01-01", "--to", "2024-01-31", "--pool", "type:boat")
	assert.Error(t, err)
	_, _ = runCLI(t, "version", "--pool", "on-budget")
}
