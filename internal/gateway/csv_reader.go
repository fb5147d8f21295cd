package gateway

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"budget-ledger/internal/domain"
)

// File names read from a CSV budget directory. Only accounts and transactions
// are required.
const (
	AccountsFile         = "accounts.csv"
	PayeesFile           = "payees.csv"
	MasterCategoriesFile = "master_categories.csv"
	CategoriesFile       = "categories.csv"
	TransactionsFile     = "transactions.csv"
	BudgetsFile          = "budgets.csv"
	MetadataFile         = "metadata.csv"
)

// CSVSnapshotRepository loads a budget snapshot from a directory of CSV files.
type CSVSnapshotRepository struct {
	logger *slog.Logger
}

// NewCSVSnapshotRepository creates a new repository instance.
func NewCSVSnapshotRepository(logger *slog.Logger) *CSVSnapshotRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &CSVSnapshotRepository{logger: logger.With("component", "csv")}
}

// csvTable is a parsed CSV file with its header resolved to column positions.
type csvTable struct {
	path string
	cols map[string]int
	rows [][]string
}

func (t *csvTable) get(row []string, col string) string {
	i, ok := t.cols[col]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// line returns the 1-based file line of data row i.
func (t *csvTable) line(i int) int {
	return i + 2
}

func (t *csvTable) decimal(row []string, i int, col string) (decimal.Decimal, error) {
	raw := t.get(row, col)
	if raw == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("could not parse %s '%s' in %s line %d: %w", col, raw, t.path, t.line(i), err)
	}
	return d, nil
}

func (t *csvTable) bool(row []string, i int, col string) (bool, error) {
	raw := t.get(row, col)
	if raw == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("could not parse %s '%s' in %s line %d: %w", col, raw, t.path, t.line(i), err)
	}
	return b, nil
}

// readCSV reads a whole file. A missing optional file yields an empty table.
func readCSV(path string, optional bool, required ...string) (*csvTable, error) {
	file, err := os.Open(path)
	if err != nil {
		if optional && errors.Is(err, fs.ErrNotExist) {
			return &csvTable{path: path, cols: map[string]int{}}, nil
		}
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	header, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("%s is empty: %w", path, domain.ErrMalformedRecord)
		}
		return nil, fmt.Errorf("failed to read header from %s: %w", path, err)
	}

	t := &csvTable{path: path, cols: make(map[string]int, len(header))}
	for i, name := range header {
		t.cols[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))] = i
	}
	for _, col := range required {
		if _, ok := t.cols[col]; !ok {
			return nil, fmt.Errorf("%s has no %q column: %w", path, col, domain.ErrMalformedRecord)
		}
	}

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error reading record from %s: %w", path, err)
		}
		t.rows = append(t.rows, record)
	}
	return t, nil
}

// LoadSnapshot reads every CSV file of the directory concurrently and
// assembles them into one snapshot.
func (r *CSVSnapshotRepository) LoadSnapshot(ctx context.Context, dir string) (*domain.Snapshot, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to open budget directory %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", dir)
	}

	snapshot := &domain.Snapshot{Name: filepath.Base(dir)}
	g, ctx := errgroup.WithContext(ctx)

	load := func(fn func() error) {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return fn()
		})
	}
	load(func() (err error) {
		snapshot.Accounts, err = r.readAccounts(filepath.Join(dir, AccountsFile))
		return err
	})
	load(func() (err error) {
		snapshot.Payees, err = r.readPayees(filepath.Join(dir, PayeesFile))
		return err
	})
	load(func() (err error) {
		snapshot.MasterCategories, err = r.readMasterCategories(filepath.Join(dir, MasterCategoriesFile))
		return err
	})
	load(func() (err error) {
		snapshot.Categories, err = r.readCategories(filepath.Join(dir, CategoriesFile))
		return err
	})
	load(func() (err error) {
		snapshot.Transactions, err = r.readTransactions(filepath.Join(dir, TransactionsFile))
		return err
	})
	load(func() (err error) {
		snapshot.BudgetEntries, err = r.readBudgets(filepath.Join(dir, BudgetsFile))
		return err
	})
	var meta map[string]string
	load(func() (err error) {
		meta, err = r.readMetadata(filepath.Join(dir, MetadataFile))
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if name := meta["name"]; name != "" {
		snapshot.Name = name
	}
	snapshot.Locale = meta["locale"]
	snapshot.Version = meta["version"]

	r.logger.Debug("csv budget read",
		"dir", dir,
		"accounts", len(snapshot.Accounts),
		"transactions", len(snapshot.Transactions),
		"budget_entries", len(snapshot.BudgetEntries),
	)
	return snapshot, nil
}

func (r *CSVSnapshotRepository) readAccounts(path string) ([]domain.Account, error) {
	t, err := readCSV(path, false, "id", "type")
	if err != nil {
		return nil, err
	}
	accounts := make([]domain.Account, 0, len(t.rows))
	for i, row := range t.rows {
		accountType, err := domain.ParseAccountType(t.get(row, "type"))
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", path, t.line(i), err)
		}
		onBudget := true
		if t.get(row, "on_budget") != "" {
			if onBudget, err = t.bool(row, i, "on_budget"); err != nil {
				return nil, err
			}
		}
		closed, err := t.bool(row, i, "closed")
		if err != nil {
			return nil, err
		}
		hidden, err := t.bool(row, i, "hidden")
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, domain.Account{
			ID:       t.get(row, "id"),
			Name:     t.get(row, "name"),
			Type:     accountType,
			OnBudget: onBudget,
			Closed:   closed,
			Hidden:   hidden,
		})
	}
	return accounts, nil
}

func (r *CSVSnapshotRepository) readPayees(path string) ([]domain.Payee, error) {
	t, err := readCSV(path, true, "id", "name")
	if err != nil {
		return nil, err
	}
	payees := make([]domain.Payee, 0, len(t.rows))
	for _, row := range t.rows {
		payees = append(payees, domain.Payee{ID: t.get(row, "id"), Name: t.get(row, "name")})
	}
	return payees, nil
}

func (r *CSVSnapshotRepository) readMasterCategories(path string) ([]domain.MasterCategory, error) {
	t, err := readCSV(path, true, "id", "name")
	if err != nil {
		return nil, err
	}
	masters := make([]domain.MasterCategory, 0, len(t.rows))
	for i, row := range t.rows {
		sortOrder := 0
		if raw := t.get(row, "sort_order"); raw != "" {
			if sortOrder, err = strconv.Atoi(raw); err != nil {
				return nil, fmt.Errorf("could not parse sort_order '%s' in %s line %d: %w", raw, path, t.line(i), err)
			}
		}
		deleted, err := t.bool(row, i, "deleted")
		if err != nil {
			return nil, err
		}
		hidden, err := t.bool(row, i, "hidden")
		if err != nil {
			return nil, err
		}
		masters = append(masters, domain.MasterCategory{
			ID:        t.get(row, "id"),
			Name:      t.get(row, "name"),
			SortOrder: sortOrder,
			Deleted:   deleted,
			Hidden:    hidden,
		})
	}
	return masters, nil
}

func (r *CSVSnapshotRepository) readCategories(path string) ([]domain.Category, error) {
	t, err := readCSV(path, true, "id", "name")
	if err != nil {
		return nil, err
	}
	categories := make([]domain.Category, 0, len(t.rows))
	for i, row := range t.rows {
		deleted, err := t.bool(row, i, "deleted")
		if err != nil {
			return nil, err
		}
		hidden, err := t.bool(row, i, "hidden")
		if err != nil {
			return nil, err
		}
		categories = append(categories, domain.Category{
			ID:                 t.get(row, "id"),
			Name:               t.get(row, "name"),
			MasterCategoryID:   t.get(row, "master_category_id"),
			MasterCategoryName: t.get(row, "master_category_name"),
			Deleted:            deleted,
			Hidden:             hidden,
		})
	}
	return categories, nil
}

// readTransactions reads transaction rows. Rows with a parent_id are split
// lines and are attached to their parent in file order.
func (r *CSVSnapshotRepository) readTransactions(path string) ([]domain.Transaction, error) {
	t, err := readCSV(path, false, "id", "date", "account_id", "amount")
	if err != nil {
		return nil, err
	}

	var transactions []domain.Transaction
	position := make(map[string]int)
	type pendingLine struct {
		parent string
		line   int
		sub    domain.SubTransaction
	}
	var lines []pendingLine

	for i, row := range t.rows {
		amount, err := t.decimal(row, i, "amount")
		if err != nil {
			return nil, err
		}
		if parent := t.get(row, "parent_id"); parent != "" {
			lines = append(lines, pendingLine{
				parent: parent,
				line:   t.line(i),
				sub: domain.SubTransaction{
					ID:               t.get(row, "id"),
					CategoryID:       t.get(row, "category_id"),
					Amount:           amount,
					Memo:             t.get(row, "memo"),
					TransferTargetID: t.get(row, "transfer_target_id"),
				},
			})
			continue
		}
		deleted, err := t.bool(row, i, "deleted")
		if err != nil {
			return nil, err
		}
		tx := domain.Transaction{
			ID:                    t.get(row, "id"),
			Date:                  t.get(row, "date"),
			AccountID:             t.get(row, "account_id"),
			Amount:                amount,
			CategoryID:            t.get(row, "category_id"),
			PayeeID:               t.get(row, "payee_id"),
			TransferTargetID:      t.get(row, "transfer_target_id"),
			TransferTransactionID: t.get(row, "transfer_transaction_id"),
			Memo:                  t.get(row, "memo"),
			Cleared:               t.get(row, "cleared"),
			Flag:                  t.get(row, "flag"),
			Deleted:               deleted,
		}
		position[tx.ID] = len(transactions)
		transactions = append(transactions, tx)
	}

	for _, l := range lines {
		p, ok := position[l.parent]
		if !ok {
			return nil, fmt.Errorf("%s line %d: split line of unknown transaction %q: %w", path, l.line, l.parent, domain.ErrMalformedRecord)
		}
		transactions[p].SubTransactions = append(transactions[p].SubTransactions, l.sub)
	}
	return transactions, nil
}

func (r *CSVSnapshotRepository) readBudgets(path string) ([]domain.MonthlyBudgetEntry, error) {
	t, err := readCSV(path, true, "month", "category_id", "budgeted")
	if err != nil {
		return nil, err
	}
	entries := make([]domain.MonthlyBudgetEntry, 0, len(t.rows))
	for i, row := range t.rows {
		budgeted, err := t.decimal(row, i, "budgeted")
		if err != nil {
			return nil, err
		}
		month := t.get(row, "month")
		if m, err := domain.ParseMonth(month); err == nil {
			month = string(m)
		}
		entries = append(entries, domain.MonthlyBudgetEntry{
			Month:                domain.Month(month),
			CategoryID:           t.get(row, "category_id"),
			Budgeted:             budgeted,
			OverspendingHandling: t.get(row, "overspending_handling"),
		})
	}
	return entries, nil
}

// readMetadata reads optional key,value pairs such as name and locale.
func (r *CSVSnapshotRepository) readMetadata(path string) (map[string]string, error) {
	t, err := readCSV(path, true, "key", "value")
	if err != nil {
		return nil, err
	}
	meta := make(map[string]string, len(t.rows))
	for _, row := range t.rows {
		meta[strings.ToLower(t.get(row, "key"))] = t.get(row, "value")
	}
	return meta, nil
}
