package gateway

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"budget-ledger/internal/domain"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// snapshotTables lists every per-budget table, children first.
var snapshotTables = []string{
	"budget_entries",
	"sub_transactions",
	"transactions",
	"categories",
	"master_categories",
	"payees",
	"accounts",
}

// RunMigrations brings the database at dbPath up to the latest schema.
func RunMigrations(dbPath string) error {
	migrateDB, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return fmt.Errorf("open migration database: %w", err)
	}
	defer migrateDB.Close()

	driver, err := sqlite.WithInstance(migrateDB, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("create sqlite driver: %w", err)
	}

	d, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create iofs source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", d, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

// SQLiteStore keeps imported snapshots in a SQLite database, one budget per
// name. It serves as both a snapshot source and an import destination.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore opens (creating if needed) the database at dbPath and
// applies pending migrations.
func NewSQLiteStore(dbPath string, logger *slog.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteStore{db: db, logger: logger.With("component", "sqlite")}, nil
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// SaveSnapshot replaces the budget stored under name with snapshot.
func (s *SQLiteStore) SaveSnapshot(ctx context.Context, name string, snapshot *domain.Snapshot) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, table := range snapshotTables {
		if _, err = tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE budget = ?", name); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	if _, err = tx.ExecContext(ctx, "DELETE FROM budgets WHERE name = ?", name); err != nil {
		return fmt.Errorf("clear budget: %w", err)
	}
	if _, err = tx.ExecContext(ctx,
		"INSERT INTO budgets (name, version, locale, imported_at) VALUES (?, ?, ?, ?)",
		name, snapshot.Version, snapshot.Locale, time.Now().UTC().Format(time.RFC3339),
	); err != nil {
		return fmt.Errorf("insert budget: %w", err)
	}

	if err = insertRows(ctx, tx,
		"INSERT INTO accounts (budget, seq, id, name, type, on_budget, closed, hidden) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		len(snapshot.Accounts), func(i int) []any {
			a := snapshot.Accounts[i]
			return []any{name, i, a.ID, a.Name, string(a.Type), a.OnBudget, a.Closed, a.Hidden}
		}); err != nil {
		return fmt.Errorf("insert accounts: %w", err)
	}
	if err = insertRows(ctx, tx,
		"INSERT INTO payees (budget, seq, id, name) VALUES (?, ?, ?, ?)",
		len(snapshot.Payees), func(i int) []any {
			p := snapshot.Payees[i]
			return []any{name, i, p.ID, p.Name}
		}); err != nil {
		return fmt.Errorf("insert payees: %w", err)
	}
	if err = insertRows(ctx, tx,
		"INSERT INTO master_categories (budget, seq, id, name, sort_order, deleted, hidden) VALUES (?, ?, ?, ?, ?, ?, ?)",
		len(snapshot.MasterCategories), func(i int) []any {
			m := snapshot.MasterCategories[i]
			return []any{name, i, m.ID, m.Name, m.SortOrder, m.Deleted, m.Hidden}
		}); err != nil {
		return fmt.Errorf("insert master categories: %w", err)
	}
	if err = insertRows(ctx, tx,
		"INSERT INTO categories (budget, seq, id, name, master_category_id, master_category_name, deleted, hidden) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		len(snapshot.Categories), func(i int) []any {
			c := snapshot.Categories[i]
			return []any{name, i, c.ID, c.Name, c.MasterCategoryID, c.MasterCategoryName, c.Deleted, c.Hidden}
		}); err != nil {
		return fmt.Errorf("insert categories: %w", err)
	}
	if err = insertRows(ctx, tx,
		`INSERT INTO transactions (budget, seq, id, date, account_id, amount, category_id, payee_id,
			transfer_target_id, transfer_transaction_id, memo, cleared, flag, deleted)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		len(snapshot.Transactions), func(i int) []any {
			t := snapshot.Transactions[i]
			return []any{name, i, t.ID, t.Date, t.AccountID, t.Amount, t.CategoryID, t.PayeeID,
				t.TransferTargetID, t.TransferTransactionID, t.Memo, t.Cleared, t.Flag, t.Deleted}
		}); err != nil {
		return fmt.Errorf("insert transactions: %w", err)
	}

	type subRow struct {
		parent, seq int
		sub         domain.SubTransaction
	}
	var subs []subRow
	for i, t := range snapshot.Transactions {
		for j, sub := range t.SubTransactions {
			subs = append(subs, subRow{parent: i, seq: j, sub: sub})
		}
	}
	if err = insertRows(ctx, tx,
		"INSERT INTO sub_transactions (budget, parent_seq, seq, id, category_id, amount, memo, transfer_target_id) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		len(subs), func(i int) []any {
			r := subs[i]
			return []any{name, r.parent, r.seq, r.sub.ID, r.sub.CategoryID, r.sub.Amount, r.sub.Memo, r.sub.TransferTargetID}
		}); err != nil {
		return fmt.Errorf("insert sub transactions: %w", err)
	}
	if err = insertRows(ctx, tx,
		"INSERT INTO budget_entries (budget, seq, month, category_id, budgeted, overspending_handling) VALUES (?, ?, ?, ?, ?, ?)",
		len(snapshot.BudgetEntries), func(i int) []any {
			e := snapshot.BudgetEntries[i]
			return []any{name, i, string(e.Month), e.CategoryID, e.Budgeted, e.OverspendingHandling}
		}); err != nil {
		return fmt.Errorf("insert budget entries: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	s.logger.InfoContext(ctx, "snapshot saved",
		"name", name,
		"version", snapshot.Version,
		"transactions", len(snapshot.Transactions),
		"sub_transactions", len(subs),
	)
	return nil
}

func insertRows(ctx context.Context, tx *sql.Tx, query string, n int, args func(i int) []any) error {
	if n == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for i := 0; i < n; i++ {
		if _, err := stmt.ExecContext(ctx, args(i)...); err != nil {
			return fmt.Errorf("row %d: %w", i, err)
		}
	}
	return nil
}

// LoadSnapshot reads the budget stored under name.
func (s *SQLiteStore) LoadSnapshot(ctx context.Context, name string) (*domain.Snapshot, error) {
	snapshot := &domain.Snapshot{Name: name}
	err := s.db.QueryRowContext(ctx, "SELECT version, locale FROM budgets WHERE name = ?", name).
		Scan(&snapshot.Version, &snapshot.Locale)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %q", ErrBudgetNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("query budget %q: %w", name, err)
	}

	if err := queryRows(ctx, s.db,
		"SELECT id, name, type, on_budget, closed, hidden FROM accounts WHERE budget = ? ORDER BY seq", name,
		func(rows *sql.Rows) error {
			var a domain.Account
			var accountType string
			if err := rows.Scan(&a.ID, &a.Name, &accountType, &a.OnBudget, &a.Closed, &a.Hidden); err != nil {
				return err
			}
			a.Type = domain.AccountType(accountType)
			snapshot.Accounts = append(snapshot.Accounts, a)
			return nil
		}); err != nil {
		return nil, fmt.Errorf("load accounts: %w", err)
	}

	if err := queryRows(ctx, s.db,
		"SELECT id, name FROM payees WHERE budget = ? ORDER BY seq", name,
		func(rows *sql.Rows) error {
			var p domain.Payee
			if err := rows.Scan(&p.ID, &p.Name); err != nil {
				return err
			}
			snapshot.Payees = append(snapshot.Payees, p)
			return nil
		}); err != nil {
		return nil, fmt.Errorf("load payees: %w", err)
	}

	if err := queryRows(ctx, s.db,
		"SELECT id, name, sort_order, deleted, hidden FROM master_categories WHERE budget = ? ORDER BY seq", name,
		func(rows *sql.Rows) error {
			var m domain.MasterCategory
			if err := rows.Scan(&m.ID, &m.Name, &m.SortOrder, &m.Deleted, &m.Hidden); err != nil {
				return err
			}
			snapshot.MasterCategories = append(snapshot.MasterCategories, m)
			return nil
		}); err != nil {
		return nil, fmt.Errorf("load master categories: %w", err)
	}

	if err := queryRows(ctx, s.db,
		"SELECT id, name, master_category_id, master_category_name, deleted, hidden FROM categories WHERE budget = ? ORDER BY seq", name,
		func(rows *sql.Rows) error {
			var c domain.Category
			if err := rows.Scan(&c.ID, &c.Name, &c.MasterCategoryID, &c.MasterCategoryName, &c.Deleted, &c.Hidden); err != nil {
				return err
			}
			snapshot.Categories = append(snapshot.Categories, c)
			return nil
		}); err != nil {
		return nil, fmt.Errorf("load categories: %w", err)
	}

	if err := queryRows(ctx, s.db,
		`SELECT id, date, account_id, amount, category_id, payee_id, transfer_target_id,
			transfer_transaction_id, memo, cleared, flag, deleted
		FROM transactions WHERE budget = ? ORDER BY seq`, name,
		func(rows *sql.Rows) error {
			var t domain.Transaction
			if err := rows.Scan(&t.ID, &t.Date, &t.AccountID, &t.Amount, &t.CategoryID, &t.PayeeID,
				&t.TransferTargetID, &t.TransferTransactionID, &t.Memo, &t.Cleared, &t.Flag, &t.Deleted); err != nil {
				return err
			}
			snapshot.Transactions = append(snapshot.Transactions, t)
			return nil
		}); err != nil {
		return nil, fmt.Errorf("load transactions: %w", err)
	}

	if err := queryRows(ctx, s.db,
		"SELECT parent_seq, id, category_id, amount, memo, transfer_target_id FROM sub_transactions WHERE budget = ? ORDER BY parent_seq, seq", name,
		func(rows *sql.Rows) error {
			var parent int
			var sub domain.SubTransaction
			if err := rows.Scan(&parent, &sub.ID, &sub.CategoryID, &sub.Amount, &sub.Memo, &sub.TransferTargetID); err != nil {
				return err
			}
			if parent < 0 || parent >= len(snapshot.Transactions) {
				return fmt.Errorf("%w: split line %q has no parent", domain.ErrMalformedRecord, sub.ID)
			}
			snapshot.Transactions[parent].SubTransactions = append(snapshot.Transactions[parent].SubTransactions, sub)
			return nil
		}); err != nil {
		return nil, fmt.Errorf("load sub transactions: %w", err)
	}

	if err := queryRows(ctx, s.db,
		"SELECT month, category_id, budgeted, overspending_handling FROM budget_entries WHERE budget = ? ORDER BY seq", name,
		func(rows *sql.Rows) error {
			var e domain.MonthlyBudgetEntry
			var month string
			if err := rows.Scan(&month, &e.CategoryID, &e.Budgeted, &e.OverspendingHandling); err != nil {
				return err
			}
			e.Month = domain.Month(month)
			snapshot.BudgetEntries = append(snapshot.BudgetEntries, e)
			return nil
		}); err != nil {
		return nil, fmt.Errorf("load budget entries: %w", err)
	}

	s.logger.DebugContext(ctx, "snapshot loaded from sqlite",
		"name", name,
		"version", snapshot.Version,
		"transactions", len(snapshot.Transactions),
	)
	return snapshot, nil
}

func queryRows(ctx context.Context, db *sql.DB, query, name string, scan func(*sql.Rows) error) error {
	rows, err := db.QueryContext(ctx, query, name)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		if err := scan(rows); err != nil {
			return err
		}
	}
	return rows.Err()
}

// ListBudgets returns every stored budget ordered by name.
func (s *SQLiteStore) ListBudgets(ctx context.Context) ([]BudgetInfo, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT name, version, imported_at FROM budgets ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("query budgets: %w", err)
	}
	defer rows.Close()

	var budgets []BudgetInfo
	for rows.Next() {
		var b BudgetInfo
		if err := rows.Scan(&b.Name, &b.Version, &b.ImportedAt); err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		budgets = append(budgets, b)
	}
	return budgets, rows.Err()
}

// DeleteBudget removes the budget stored under name.
func (s *SQLiteStore) DeleteBudget(ctx context.Context, name string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, table := range snapshotTables {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE budget = ?", name); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM budgets WHERE name = ?", name)
	if err != nil {
		return fmt.Errorf("delete budget: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %q", ErrBudgetNotFound, name)
	}
	return tx.Commit()
}
