package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"

	"budget-ledger/internal/domain"
)

const (
	ynab4Extension = ".ynab4"
	ynab4FullFile  = "Budget.yfull"
	ynab4MetaFile  = "Budget.ymeta"
)

// ErrBudgetNotFound is returned when a source holds no YNAB4 budget data.
var ErrBudgetNotFound = errors.New("budget not found")

// ynab4Budget mirrors the parts of Budget.yfull the engine needs.
type ynab4Budget struct {
	BudgetMetaData struct {
		CurrencyLocale string `json:"currencyLocale"`
	} `json:"budgetMetaData"`
	Accounts         []ynab4Account        `json:"accounts"`
	Payees           []ynab4Payee          `json:"payees"`
	MasterCategories []ynab4MasterCategory `json:"masterCategories"`
	Transactions     []ynab4Transaction    `json:"transactions"`
	MonthlyBudgets   []ynab4MonthlyBudget  `json:"monthlyBudgets"`
}

type ynab4Account struct {
	EntityID    string `json:"entityId"`
	Name        string `json:"accountName"`
	AccountType string `json:"accountType"`
	OnBudget    bool   `json:"onBudget"`
	Hidden      bool   `json:"hidden"`
	Deleted     bool   `json:"isTombstone"`
}

type ynab4Payee struct {
	EntityID string `json:"entityId"`
	Name     string `json:"name"`
}

type ynab4SubCategory struct {
	EntityID         string `json:"entityId"`
	Name             string `json:"name"`
	MasterCategoryID string `json:"masterCategoryId"`
	Deleted          bool   `json:"isTombstone"`
}

type ynab4MasterCategory struct {
	EntityID      string             `json:"entityId"`
	Name          string             `json:"name"`
	SortableIndex int                `json:"sortableIndex"`
	Deleted       bool               `json:"isTombstone"`
	SubCategories []ynab4SubCategory `json:"subCategories"`
}

type ynab4SubTransaction struct {
	EntityID        string          `json:"entityId"`
	CategoryID      string          `json:"categoryId"`
	Amount          decimal.Decimal `json:"amount"`
	Memo            string          `json:"memo"`
	TargetAccountID string          `json:"targetAccountId"`
	Deleted         bool            `json:"isTombstone"`
}

type ynab4Transaction struct {
	EntityID              string                `json:"entityId"`
	AccountID             string                `json:"accountId"`
	Date                  string                `json:"date"`
	Amount                decimal.Decimal       `json:"amount"`
	CategoryID            string                `json:"categoryId"`
	PayeeID               string                `json:"payeeId"`
	Memo                  string                `json:"memo"`
	Cleared               string                `json:"cleared"`
	Flag                  string                `json:"flag"`
	TargetAccountID       string                `json:"targetAccountId"`
	TransferTransactionID string                `json:"transferTransactionId"`
	Deleted               bool                  `json:"isTombstone"`
	SubTransactions       []ynab4SubTransaction `json:"subTransactions"`
}

type ynab4MonthlySubCategoryBudget struct {
	CategoryID           string          `json:"categoryId"`
	Budgeted             decimal.Decimal `json:"budgeted"`
	OverspendingHandling string          `json:"overspendingHandling"`
	Deleted              bool            `json:"isTombstone"`
}

type ynab4MonthlyBudget struct {
	Month                     string                          `json:"month"`
	MonthlySubCategoryBudgets []ynab4MonthlySubCategoryBudget `json:"monthlySubCategoryBudgets"`
}

type ynab4Meta struct {
	RelativeDataFolderName string `json:"relativeDataFolderName"`
}

// BudgetInfo describes a budget found on disk or stored in a database.
type BudgetInfo struct {
	Name       string `json:"name"`
	Path       string `json:"path,omitempty"`
	Version    string `json:"version,omitempty"`
	ImportedAt string `json:"imported_at,omitempty"`
}

// YNAB4SnapshotRepository loads snapshots from YNAB4 budgets. A source is
// either a Budget.yfull file or a .ynab4 budget directory.
type YNAB4SnapshotRepository struct {
	logger *slog.Logger
}

// NewYNAB4SnapshotRepository creates a new repository instance.
func NewYNAB4SnapshotRepository(logger *slog.Logger) *YNAB4SnapshotRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &YNAB4SnapshotRepository{logger: logger.With("component", "ynab4")}
}

// LoadSnapshot reads and converts the budget at source.
func (r *YNAB4SnapshotRepository) LoadSnapshot(ctx context.Context, source string) (*domain.Snapshot, error) {
	path, err := r.resolve(source)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	var budget ynab4Budget
	if err := json.Unmarshal(data, &budget); err != nil {
		return nil, fmt.Errorf("could not decode %s: %w", path, err)
	}

	snapshot, err := convertYNAB4(&budget)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	snapshot.Name = budgetName(source)

	r.logger.Debug("ynab4 budget read",
		"path", path,
		"accounts", len(snapshot.Accounts),
		"transactions", len(snapshot.Transactions),
		"locale", snapshot.Locale,
	)
	return snapshot, nil
}

// resolve finds the Budget.yfull file for a source. For a .ynab4 directory
// the data folder named in Budget.ymeta is searched and the most recently
// written device file wins.
func (r *YNAB4SnapshotRepository) resolve(source string) (string, error) {
	info, err := os.Stat(source)
	if err != nil {
		return "", fmt.Errorf("failed to open budget %s: %w", source, err)
	}
	if !info.IsDir() {
		return source, nil
	}
	if direct := filepath.Join(source, ynab4FullFile); fileExists(direct) {
		return direct, nil
	}

	dataDir := source
	if raw, err := os.ReadFile(filepath.Join(source, ynab4MetaFile)); err == nil {
		var meta ynab4Meta
		if err := json.Unmarshal(raw, &meta); err != nil {
			return "", fmt.Errorf("could not decode %s: %w", ynab4MetaFile, err)
		}
		if meta.RelativeDataFolderName != "" {
			dataDir = filepath.Join(source, meta.RelativeDataFolderName)
		}
	}

	candidates, err := filepath.Glob(filepath.Join(dataDir, "*", ynab4FullFile))
	if err != nil {
		return "", fmt.Errorf("failed to search %s: %w", dataDir, err)
	}
	if len(candidates) == 0 {
		return "", fmt.Errorf("%w: no %s under %s", ErrBudgetNotFound, ynab4FullFile, source)
	}

	var (
		newest     string
		newestInfo os.FileInfo
	)
	for _, c := range candidates {
		ci, err := os.Stat(c)
		if err != nil {
			continue
		}
		if newestInfo == nil || ci.ModTime().After(newestInfo.ModTime()) {
			newest, newestInfo = c, ci
		}
	}
	if newest == "" {
		return "", fmt.Errorf("%w: no readable %s under %s", ErrBudgetNotFound, ynab4FullFile, source)
	}
	r.logger.Debug("ynab4 data file selected", "path", newest, "candidates", len(candidates))
	return newest, nil
}

func convertYNAB4(b *ynab4Budget) (*domain.Snapshot, error) {
	s := &domain.Snapshot{Locale: normalizeLocale(b.BudgetMetaData.CurrencyLocale)}

	for _, a := range b.Accounts {
		if a.Deleted {
			continue
		}
		accountType, err := domain.ParseAccountType(a.AccountType)
		if err != nil {
			return nil, fmt.Errorf("account %q: %w", a.EntityID, err)
		}
		s.Accounts = append(s.Accounts, domain.Account{
			ID:       a.EntityID,
			Name:     a.Name,
			Type:     accountType,
			OnBudget: a.OnBudget,
			Hidden:   a.Hidden,
		})
	}

	for _, p := range b.Payees {
		s.Payees = append(s.Payees, domain.Payee{ID: p.EntityID, Name: p.Name})
	}

	for _, m := range b.MasterCategories {
		s.MasterCategories = append(s.MasterCategories, domain.MasterCategory{
			ID:        m.EntityID,
			Name:      m.Name,
			SortOrder: m.SortableIndex,
			Deleted:   m.Deleted,
		})
		for _, c := range m.SubCategories {
			masterID := c.MasterCategoryID
			if masterID == "" {
				masterID = m.EntityID
			}
			s.Categories = append(s.Categories, domain.Category{
				ID:                 c.EntityID,
				Name:               c.Name,
				MasterCategoryID:   masterID,
				MasterCategoryName: m.Name,
				Deleted:            c.Deleted || m.Deleted,
			})
		}
	}

	for _, t := range b.Transactions {
		tx := domain.Transaction{
			ID:                    t.EntityID,
			Date:                  t.Date,
			AccountID:             t.AccountID,
			Amount:                t.Amount,
			CategoryID:            t.CategoryID,
			PayeeID:               t.PayeeID,
			TransferTargetID:      t.TargetAccountID,
			TransferTransactionID: t.TransferTransactionID,
			Memo:                  t.Memo,
			Cleared:               t.Cleared,
			Flag:                  t.Flag,
			Deleted:               t.Deleted,
		}
		for _, sub := range t.SubTransactions {
			if sub.Deleted {
				continue
			}
			tx.SubTransactions = append(tx.SubTransactions, domain.SubTransaction{
				ID:               sub.EntityID,
				CategoryID:       sub.CategoryID,
				Amount:           sub.Amount,
				Memo:             sub.Memo,
				TransferTargetID: sub.TargetAccountID,
			})
		}
		s.Transactions = append(s.Transactions, tx)
	}

	for _, mb := range b.MonthlyBudgets {
		month := domain.Month(mb.Month)
		if m, err := domain.ParseMonth(mb.Month); err == nil {
			month = m
		}
		for _, e := range mb.MonthlySubCategoryBudgets {
			if e.Deleted {
				continue
			}
			s.BudgetEntries = append(s.BudgetEntries, domain.MonthlyBudgetEntry{
				Month:                month,
				CategoryID:           e.CategoryID,
				Budgeted:             e.Budgeted,
				OverspendingHandling: e.OverspendingHandling,
			})
		}
	}
	return s, nil
}

// normalizeLocale turns "en_US" style locales into BCP 47 tags.
func normalizeLocale(raw string) string {
	if raw == "" {
		return ""
	}
	tag, err := language.Parse(strings.ReplaceAll(raw, "_", "-"))
	if err != nil {
		return ""
	}
	return tag.String()
}

// budgetName derives a display name from a source path: the .ynab4 folder
// name without its "~GUID" suffix.
func budgetName(source string) string {
	dir := source
	for d := source; d != "." && d != string(filepath.Separator); d = filepath.Dir(d) {
		if strings.HasSuffix(d, ynab4Extension) {
			dir = d
			break
		}
		if filepath.Dir(d) == d {
			break
		}
	}
	base := filepath.Base(dir)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	if i := strings.Index(name, "~"); i >= 0 {
		name = name[:i]
	}
	return name
}

// DefaultSearchPaths are the usual YNAB4 budget locations under home.
func DefaultSearchPaths() []string {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil
	}
	return []string{
		filepath.Join(home, "Dropbox", "YNAB"),
		filepath.Join(home, "Dropbox", "Apps", "YNAB"),
		filepath.Join(home, "Documents", "YNAB"),
	}
}

// FindBudgets lists .ynab4 budget directories at most two levels below each
// search path. Missing search paths are skipped.
func FindBudgets(searchPaths ...string) []BudgetInfo {
	var budgets []BudgetInfo
	seen := make(map[string]bool)
	for _, root := range searchPaths {
		if _, err := os.Stat(root); err != nil {
			continue
		}
		rootDepth := strings.Count(filepath.Clean(root), string(filepath.Separator))
		_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil || !d.IsDir() {
				return nil
			}
			depth := strings.Count(filepath.Clean(path), string(filepath.Separator)) - rootDepth
			if strings.HasSuffix(d.Name(), ynab4Extension) {
				if !seen[path] {
					seen[path] = true
					budgets = append(budgets, BudgetInfo{Name: budgetName(path), Path: path})
				}
				return filepath.SkipDir
			}
			if depth >= 2 {
				return filepath.SkipDir
			}
			return nil
		})
	}
	sort.Slice(budgets, func(i, j int) bool { return budgets[i].Path < budgets[j].Path })
	return budgets
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
