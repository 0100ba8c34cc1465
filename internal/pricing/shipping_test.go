package pricing

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookwheel/bookwheel/internal/common"
)

func TestShippingTable_BuyerFee(t *testing.T) {
	table := DefaultShippingTable()
	require.NoError(t, table.Validate())

	tests := []struct {
		name      string
		rate      float64
		listPrice int64
		wantFee   int64
	}{
		{name: "low rate above threshold ships free", rate: 0.40, listPrice: 15000, wantFee: 0},
		{name: "low rate below threshold", rate: 0.40, listPrice: 14999, wantFee: 2000},
		{name: "sixty percent bracket threshold", rate: 0.60, listPrice: 18000, wantFee: 0},
		{name: "sixty percent bracket below", rate: 0.60, listPrice: 17999, wantFee: 2000},
		{name: "sixty five free threshold", rate: 0.65, listPrice: 20500, wantFee: 0},
		{name: "sixty five middle step", rate: 0.65, listPrice: 18000, wantFee: 1000},
		{name: "sixty five fallback", rate: 0.65, listPrice: 17999, wantFee: 2000},
		{name: "seventy percent never free", rate: 0.70, listPrice: 99000, wantFee: 1000},
		{name: "top bracket conditional free", rate: 0.73, listPrice: 60000, wantFee: 0},
		{name: "top bracket fallback is ceiling", rate: 0.73, listPrice: 59999, wantFee: 2300},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fee := table.BuyerFee(decimal.NewFromFloat(tt.rate), tt.listPrice)
			assert.Equal(t, tt.wantFee, fee)
		})
	}
}

func TestShippingTable_Validate(t *testing.T) {
	tests := []struct {
		name  string
		table ShippingTable
	}{
		{
			name:  "zero ceiling",
			table: ShippingTable{Ceiling: 0, Brackets: DefaultShippingTable().Brackets},
		},
		{
			name:  "no brackets",
			table: ShippingTable{Ceiling: 2300},
		},
		{
			name: "non ascending bracket bounds",
			table: ShippingTable{Ceiling: 2300, Brackets: []ShippingBracket{
				{MaxSupplyRate: 0.70, Rules: []ShippingRule{{Fee: 0}}},
				{MaxSupplyRate: 0.55, Rules: []ShippingRule{{Fee: 0}}},
			}},
		},
		{
			name: "missing fallback rule",
			table: ShippingTable{Ceiling: 2300, Brackets: []ShippingBracket{
				{MaxSupplyRate: 1.0, Rules: []ShippingRule{{MinListPrice: 15000, Fee: 0}}},
			}},
		},
		{
			name: "fee above ceiling",
			table: ShippingTable{Ceiling: 2300, Brackets: []ShippingBracket{
				{MaxSupplyRate: 1.0, Rules: []ShippingRule{{Fee: 5000}}},
			}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.table.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, common.ErrInvalidConfig)
		})
	}
}

func TestLoadShippingTable(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "shipping.yaml")

	content := `ceiling: 2300
brackets:
  - max_supply_rate: 0.55
    rules:
      - min_list_price: 15000
        fee: 0
      - fee: 2000
  - max_supply_rate: 1.0
    rules:
      - fee: 2300
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	table, err := LoadShippingTable(path)
	require.NoError(t, err)
	assert.Equal(t, int64(2300), table.Ceiling)
	assert.Len(t, table.Brackets, 2)
	assert.Equal(t, int64(0), table.BuyerFee(decimal.NewFromFloat(0.50), 16000))
	assert.Equal(t, int64(2300), table.BuyerFee(decimal.NewFromFloat(0.73), 16000))
}

func TestLoadShippingTable_Invalid(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("ceiling: -1\n"), 0o600))

	_, err := LoadShippingTable(path)
	require.Error(t, err)

	_, err = LoadShippingTable(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
}
