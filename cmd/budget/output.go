package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"

	"budget-ledger/internal/domain"
	"budget-ledger/internal/gateway"
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#4ECDC4"))
	headerStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	negativeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))
	subtleStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#666666"))
)

func writeJSON(w io.Writer, v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to generate JSON report: %w", err)
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}

func money(d decimal.Decimal) string {
	s := d.StringFixed(2)
	if d.IsNegative() {
		return negativeStyle.Render(s)
	}
	return s
}

const columnGap = "  "

// table buffers rows and pads each column to its widest cell. Widths are
// measured with lipgloss.Width, so styled cells line up with plain ones.
type table struct {
	w    io.Writer
	rows [][]string
}

func newTable(w io.Writer) *table {
	return &table{w: w}
}

func (t *table) header(cols ...string) {
	styled := make([]string, len(cols))
	rules := make([]string, len(cols))
	for i, c := range cols {
		styled[i] = headerStyle.Render(c)
		rules[i] = strings.Repeat("─", lipgloss.Width(c))
	}
	t.row(styled...)
	t.row(rules...)
}

func (t *table) row(cols ...string) {
	t.rows = append(t.rows, cols)
}

func (t *table) flush() error {
	var widths []int
	for _, r := range t.rows {
		for i, c := range r {
			if i == len(widths) {
				widths = append(widths, 0)
			}
			widths[i] = max(widths[i], lipgloss.Width(c))
		}
	}

	var b strings.Builder
	for _, r := range t.rows {
		for i, width := range widths {
			var cell string
			if i < len(r) {
				cell = r[i]
			}
			if i > 0 {
				b.WriteString(columnGap)
			}
			b.WriteString(cell)
			b.WriteString(strings.Repeat(" ", width-lipgloss.Width(cell)))
		}
		b.WriteByte('\n')
	}
	t.rows = nil

	_, err := io.WriteString(t.w, b.String())
	return err
}

func renderPeriod(w io.Writer, r *domain.PeriodReport) error {
	s := r.Summary
	fmt.Fprintln(w, titleStyle.Render(fmt.Sprintf("Pool %s  %s .. %s", r.Pool, s.From, s.To)))

	t := newTable(w)
	t.header("Account", "Opening", "Inflows", "Outflows", "Closing", "Txns")
	for _, a := range r.Accounts {
		t.row(a.AccountName, money(a.OpeningBalance), money(a.Inflows), money(a.Outflows), money(a.ClosingBalance), fmt.Sprint(a.TransactionCount))
	}
	t.row(headerStyle.Render("Pool"), money(s.OpeningBalance), money(s.Inflows), money(s.Outflows), money(s.ClosingBalance), fmt.Sprint(s.TransactionCount))
	if err := t.flush(); err != nil {
		return err
	}
	if r.UnpairedCount > 0 {
		fmt.Fprintln(w, subtleStyle.Render(fmt.Sprintf("%d transfer(s) without a counterpart", r.UnpairedCount)))
	}
	return nil
}

func renderBudget(w io.Writer, r *domain.BudgetReport) error {
	for _, m := range r.Months {
		fmt.Fprintln(w, titleStyle.Render(fmt.Sprintf("%s  (carry-over: %s)", m.Month, r.Carryover)))

		t := newTable(w)
		t.header("Category", "Carried", "Budgeted", "Activity", "Available")
		for _, master := range m.MasterCategories {
			t.row(headerStyle.Render(master.Name), "", money(master.Budgeted), money(master.Activity), money(master.Available))
			for _, c := range master.Categories {
				t.row("  "+c.Name, money(c.CarriedOver), money(c.Budgeted), money(c.Activity), money(c.Available))
			}
		}
		t.row(headerStyle.Render("Total"), "", money(m.Total.Budgeted), money(m.Total.Activity), money(m.Total.Available))
		t.row("Income", "", "", money(m.Income), "")
		if len(m.Unassigned.TransactionIDs) > 0 {
			t.row(subtleStyle.Render("Unassigned"), "", "", money(m.Unassigned.Activity), "")
		}
		if err := t.flush(); err != nil {
			return err
		}
		fmt.Fprintln(w)
	}
	return nil
}

func renderFlows(w io.Writer, r *domain.FlowReport) error {
	fmt.Fprintln(w, titleStyle.Render(fmt.Sprintf("Flows for %s  %s .. %s", r.Pool, r.From, r.To)))

	t := newTable(w)
	t.header("Kind", "Total", "Count", "Average")
	for _, f := range r.Flows {
		t.row(f.Kind, money(f.Total), fmt.Sprint(f.Count), money(f.Average))
	}
	t.row(headerStyle.Render("Net"), money(r.Net), "", "")
	return t.flush()
}

func renderBudgets(w io.Writer, budgets []gateway.BudgetInfo) error {
	if len(budgets) == 0 {
		fmt.Fprintln(w, subtleStyle.Render("No budgets found."))
		return nil
	}
	t := newTable(w)
	t.header("Name", "Location", "Version")
	for _, b := range budgets {
		location := b.Path
		if location == "" {
			location = b.ImportedAt
		}
		t.row(b.Name, location, b.Version)
	}
	return t.flush()
}
