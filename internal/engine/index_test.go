package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"budget-ledger/internal/domain"
)

func TestBuildIndex_ByAccount(t *testing.T) {
	deleted := tx("gone", "2024-01-01", "A", "5.00")
	deleted.Deleted = true

	idx := BuildIndex([]domain.Transaction{
		tx("late", "2024-03-01", "A", "1.00"),
		tx("first-same-day", "2024-02-01", "A", "2.00"),
		tx("other-account", "2024-02-01", "B", "3.00"),
		tx("second-same-day", "2024-02-01", "A", "4.00"),
		deleted,
	})

	got := idx.ByAccount("A")
	ids := make([]string, len(got))
	for i, tx := range got {
		ids[i] = tx.ID
	}
	assert.Equal(t, []string{"first-same-day", "second-same-day", "late"}, ids)
	assert.Equal(t, 4, idx.Len())
	assert.Empty(t, idx.ByAccount("missing"))

	first, last, ok := idx.Months()
	require.True(t, ok)
	assert.Equal(t, domain.Month("2024-02"), first)
	assert.Equal(t, domain.Month("2024-03"), last)
}

func TestIndex_InMonth(t *testing.T) {
	idx := BuildIndex([]domain.Transaction{
		tx("jan", "2024-01-31", "A", "1.00"),
		tx("feb1", "2024-02-01", "A", "1.00"),
		tx("feb29", "2024-02-29", "A", "1.00"),
		tx("mar", "2024-03-01", "A", "1.00"),
	})

	got := idx.InMonth("2024-02")
	require.Len(t, got, 2)
	assert.Equal(t, "feb1", got[0].ID)
	assert.Equal(t, "feb29", got[1].ID)
}

func TestIndex_TransferTargetOf(t *testing.T) {
	idx := BuildIndex(nil)

	tests := []struct {
		name string
		tx   domain.Transaction
		want string
	}{
		{
			name: "explicit field",
			tx:   domain.Transaction{TransferTargetID: "B"},
			want: "B",
		},
		{
			name: "payee sentinel",
			tx:   domain.Transaction{PayeeID: "Payee/Transfer:B"},
			want: "B",
		},
		{
			name: "explicit field wins over sentinel",
			tx:   domain.Transaction{TransferTargetID: "B", PayeeID: "Payee/Transfer:C"},
			want: "B",
		},
		{
			name: "sentinel without id",
			tx:   domain.Transaction{PayeeID: "Payee/Transfer:"},
			want: "",
		},
		{
			name: "ordinary payee",
			tx:   domain.Transaction{PayeeID: "Payee/42"},
			want: "",
		},
		{
			name: "no payee at all",
			tx:   domain.Transaction{},
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, idx.TransferTargetOf(tt.tx))
		})
	}
}

func TestIndex_Counterpart(t *testing.T) {
	byID := transfer("x1", "2024-03-01", "A", "B", "-10.00")
	byID.TransferTransactionID = "x2"
	legByID := transfer("x2", "2024-03-02", "B", "A", "10.00")

	byMatch := transfer("m1", "2024-03-05", "A", "B", "-25.00")
	legByMatch := domain.Transaction{ID: "m2", Date: "2024-03-05", AccountID: "B", Amount: dec("25.00"), PayeeID: "Payee/Transfer:A"}

	orphan := transfer("o1", "2024-03-07", "A", "B", "-99.00")

	idx := BuildIndex([]domain.Transaction{byID, legByID, byMatch, legByMatch, orphan})

	other, ok := idx.Counterpart(byID)
	require.True(t, ok)
	assert.Equal(t, "x2", other.ID)

	other, ok = idx.Counterpart(legByMatch)
	require.True(t, ok)
	assert.Equal(t, "m1", other.ID)

	_, ok = idx.Counterpart(orphan)
	assert.False(t, ok)

	_, ok = idx.Counterpart(tx("plain", "2024-03-01", "A", "1.00"))
	assert.False(t, ok)

	unpaired := idx.UnpairedTransfers()
	require.Len(t, unpaired, 1)
	assert.Equal(t, "o1", unpaired[0].ID)
}
