package usecase_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"budget-ledger/internal/domain"
	"budget-ledger/internal/engine"
	"budget-ledger/internal/usecase"
	mock_usecase "budget-ledger/internal/usecase/mocks"
)

const source = "/budgets/home"

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func homeSnapshot() *domain.Snapshot {
	return &domain.Snapshot{
		Name: "home",
		Accounts: []domain.Account{
			{ID: "A", Name: "Checking", Type: domain.AccountTypeChecking, OnBudget: true},
			{ID: "B", Name: "Savings", Type: domain.AccountTypeSavings, OnBudget: true},
			{ID: "INV", Name: "Brokerage", Type: domain.AccountTypeInvestmentAccount},
		},
		MasterCategories: []domain.MasterCategory{{ID: "everyday", Name: "Everyday Expenses"}},
		Categories: []domain.Category{
			{ID: "groceries", Name: "Groceries", MasterCategoryID: "everyday"},
		},
		Transactions: []domain.Transaction{
			{ID: "t1", Date: "2024-01-10", AccountID: "A", Amount: dec("1000.00"), CategoryID: domain.CategoryImmediateIncome},
			{ID: "t2", Date: "2024-02-15", AccountID: "A", Amount: dec("-200.00"), CategoryID: "groceries"},
			{ID: "t3", Date: "2024-03-05", AccountID: "A", Amount: dec("-50.00"), CategoryID: "groceries"},
			{ID: "t4", Date: "2024-03-10", AccountID: "A", Amount: dec("1500.00"), CategoryID: domain.CategoryImmediateIncome},
			{ID: "t5", Date: "2024-03-20", AccountID: "A", Amount: dec("-300.00"), TransferTargetID: "B", TransferTransactionID: "t6"},
			{ID: "t6", Date: "2024-03-20", AccountID: "B", Amount: dec("300.00"), TransferTargetID: "A", TransferTransactionID: "t5"},
			{ID: "u1", Date: "2024-03-25", AccountID: "A", Amount: dec("-10.00"), TransferTargetID: "B"},
			{ID: "i1", Date: "2024-03-26", AccountID: "INV", Amount: dec("999.00")},
		},
		BudgetEntries: []domain.MonthlyBudgetEntry{
			{Month: "2024-01", CategoryID: "groceries", Budgeted: dec("300.00")},
		},
	}
}

func newUseCase(repo usecase.SnapshotRepository) *usecase.BudgetUseCase {
	return usecase.NewBudgetUseCase(repo, usecase.Options{
		CacheSize: 2,
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
}

func TestBudgetUseCase_PeriodReport(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	tests := []struct {
		name         string
		req          usecase.PeriodRequest
		snapshot     *domain.Snapshot
		repoErr      error
		wantErr      error
		wantClosing  string
		wantOutflows string
		wantAccounts int
		wantUnpaired int
	}{
		{
			name:         "on-budget pool with per-account breakdown",
			req:          usecase.PeriodRequest{Source: source, Pool: engine.OnBudgetOnly(), From: "2024-03-01", To: "2024-03-31", PerAccount: true},
			snapshot:     homeSnapshot(),
			wantClosing:  "2240.00",
			wantOutflows: "50.00",
			wantAccounts: 2,
			wantUnpaired: 1,
		},
		{
			name:         "checking alone sees transfers as outflows",
			req:          usecase.PeriodRequest{Source: source, Pool: engine.SingleAccount("A"), From: "2024-03-01", To: "2024-03-31"},
			snapshot:     homeSnapshot(),
			wantClosing:  "1940.00",
			wantOutflows: "360.00",
			wantUnpaired: 1,
		},
		{
			name:    "repository error",
			req:     usecase.PeriodRequest{Source: source, Pool: engine.All(), From: "2024-03-01", To: "2024-03-31"},
			repoErr: errors.New("disk on fire"),
			wantErr: errors.New("disk on fire"),
		},
		{
			name: "malformed snapshot",
			req:  usecase.PeriodRequest{Source: source, Pool: engine.All(), From: "2024-03-01", To: "2024-03-31"},
			snapshot: func() *domain.Snapshot {
				s := homeSnapshot()
				s.Transactions[0].Date = "10/01/2024"
				return s
			}(),
			wantErr: domain.ErrInvalidDateFormat,
		},
		{
			name:     "reversed range",
			req:      usecase.PeriodRequest{Source: source, Pool: engine.All(), From: "2024-03-31", To: "2024-03-01"},
			snapshot: homeSnapshot(),
			wantErr:  domain.ErrInvalidDateRange,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := mock_usecase.NewMockSnapshotRepository(ctrl)
			repo.EXPECT().LoadSnapshot(gomock.Any(), source).Return(tt.snapshot, tt.repoErr)

			uc := newUseCase(repo)
			got, err := uc.PeriodReport(context.Background(), tt.req)

			if tt.wantErr != nil {
				assert.Error(t, err)
				assert.Nil(t, got)
				if tt.repoErr == nil {
					assert.ErrorIs(t, err, tt.wantErr)
				} else {
					assert.Contains(t, err.Error(), tt.wantErr.Error())
				}
				return
			}
			require.NoError(t, err)
			assert.True(t, dec(tt.wantClosing).Equal(got.Summary.ClosingBalance), "closing %s", got.Summary.ClosingBalance)
			assert.True(t, dec(tt.wantOutflows).Equal(got.Summary.Outflows), "outflows %s", got.Summary.Outflows)
			assert.Len(t, got.Accounts, tt.wantAccounts)
			assert.Equal(t, tt.wantUnpaired, got.UnpairedCount)
			assert.Equal(t, tt.req.Pool.String(), got.Pool)
			assert.NotEmpty(t, got.SnapshotVersion)
		})
	}
}

func TestBudgetUseCase_CachesSnapshots(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mock_usecase.NewMockSnapshotRepository(ctrl)
	repo.EXPECT().LoadSnapshot(gomock.Any(), source).Return(homeSnapshot(), nil).Times(1)

	uc := newUseCase(repo)
	req := usecase.PeriodRequest{Source: source, Pool: engine.All(), From: "2024-01-01", To: "2024-12-31"}

	first, err := uc.PeriodReport(context.Background(), req)
	require.NoError(t, err)
	second, err := uc.PeriodReport(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, first.SnapshotVersion, second.SnapshotVersion)

	fresh := homeSnapshot()
	fresh.Version = "v2"
	repo.EXPECT().LoadSnapshot(gomock.Any(), source).Return(fresh, nil).Times(1)

	uc.Invalidate(source)
	third, err := uc.PeriodReport(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "v2", third.SnapshotVersion)
}

func TestBudgetUseCase_BudgetReport(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mock_usecase.NewMockSnapshotRepository(ctrl)
	repo.EXPECT().LoadSnapshot(gomock.Any(), source).Return(homeSnapshot(), nil)

	uc := newUseCase(repo)
	got, err := uc.BudgetReport(context.Background(), usecase.BudgetRequest{Source: source, Pool: engine.OnBudgetOnly()})
	require.NoError(t, err)

	assert.Equal(t, domain.Month("2024-01"), got.From)
	assert.Equal(t, domain.Month("2024-03"), got.To)
	assert.Equal(t, "carry", got.Carryover)
	require.Len(t, got.Months, 3)

	want := []string{"300.00", "100.00", "50.00"}
	for i, m := range got.Months {
		groceries := m.Categories["groceries"]
		assert.True(t, dec(want[i]).Equal(groceries.Available), "%s: %s", m.Month, groceries.Available)
	}
	assert.True(t, dec("1500.00").Equal(got.Months[2].Income))

	_, err = uc.BudgetReport(context.Background(), usecase.BudgetRequest{Source: source, From: "2024-04", To: "2024-03"})
	assert.ErrorIs(t, err, domain.ErrInvalidDateRange)
}

func TestBudgetUseCase_FlowReport(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mock_usecase.NewMockSnapshotRepository(ctrl)
	repo.EXPECT().LoadSnapshot(gomock.Any(), source).Return(homeSnapshot(), nil)

	uc := newUseCase(repo)
	got, err := uc.FlowReport(context.Background(), usecase.FlowRequest{
		Source: source,
		Pool:   engine.OnBudgetOnly(),
		From:   "2024-03-01",
		To:     "2024-03-31",
	})
	require.NoError(t, err)
	require.Len(t, got.Flows, len(engine.FlowKinds))

	byKind := make(map[string]domain.FlowTotal)
	for _, f := range got.Flows {
		byKind[f.Kind] = f
	}
	assert.True(t, dec("1500.00").Equal(byKind["income"].Total))
	assert.True(t, dec("-50.00").Equal(byKind["expense"].Total))
	assert.True(t, dec("-310.00").Equal(byKind["transfer_to_savings"].Total))
	assert.Equal(t, 2, byKind["transfer_to_savings"].Count)
	assert.True(t, dec("-155.00").Equal(byKind["transfer_to_savings"].Average))
	assert.True(t, dec("300.00").Equal(byKind["transfer_from_savings"].Total))
	assert.True(t, dec("1450.00").Equal(got.Net), "net %s", got.Net)
}

func TestBudgetUseCase_Import(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	tests := []struct {
		name    string
		dstName string
		saveErr error
		wantErr bool
	}{
		{name: "explicit name", dstName: "family"},
		{name: "falls back to snapshot name", dstName: ""},
		{name: "writer error", dstName: "family", saveErr: errors.New("locked"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := mock_usecase.NewMockSnapshotRepository(ctrl)
			repo.EXPECT().LoadSnapshot(gomock.Any(), source).Return(homeSnapshot(), nil)

			wantName := tt.dstName
			if wantName == "" {
				wantName = "home"
			}
			dst := mock_usecase.NewMockSnapshotWriter(ctrl)
			dst.EXPECT().SaveSnapshot(gomock.Any(), wantName, gomock.Any()).Return(tt.saveErr)

			got, err := newUseCase(repo).Import(context.Background(), source, dst, tt.dstName)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, got)
				return
			}
			require.NoError(t, err)
			assert.NotEmpty(t, got.Version)
			assert.Len(t, got.Transactions, 8)
		})
	}
}
