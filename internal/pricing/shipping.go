package pricing

import (
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/bookwheel/bookwheel/internal/common"
)

// ShippingRule is one (predicate, fee) entry: the rule applies when the
// list price is at or above MinListPrice. A rule with MinListPrice 0 is
// the bracket's fallback.
type ShippingRule struct {
	MinListPrice int64 `yaml:"min_list_price"`
	Fee          int64 `yaml:"fee"`
}

// ShippingBracket groups rules for one supply-rate range. A bracket covers
// every supply rate at or below MaxSupplyRate that no earlier bracket
// claimed. Rules are ordered highest threshold first.
type ShippingBracket struct {
	MaxSupplyRate float64        `yaml:"max_supply_rate"`
	Rules         []ShippingRule `yaml:"rules"`
}

// ShippingTable is the buyer-facing shipping fee schedule. The bracket
// boundaries change independently of pricing logic, so the table is data:
// an ordered rule list loaded from configuration, never hardcoded
// conditionals.
type ShippingTable struct {
	Ceiling  int64             `yaml:"ceiling"` // courier cost the seller absorbs up to
	Brackets []ShippingBracket `yaml:"brackets"`
}

// DefaultShippingTable returns the built-in fee schedule. Supply-rate
// brackets mirror the marketplace's published terms: low-rate publishers
// reach free shipping at lower list prices, high-rate publishers never do.
func DefaultShippingTable() *ShippingTable {
	return &ShippingTable{
		Ceiling: 2300,
		Brackets: []ShippingBracket{
			{MaxSupplyRate: 0.55, Rules: []ShippingRule{
				{MinListPrice: 15000, Fee: 0},
				{Fee: 2000},
			}},
			{MaxSupplyRate: 0.62, Rules: []ShippingRule{
				{MinListPrice: 18000, Fee: 0},
				{Fee: 2000},
			}},
			{MaxSupplyRate: 0.65, Rules: []ShippingRule{
				{MinListPrice: 20500, Fee: 0},
				{MinListPrice: 18000, Fee: 1000},
				{Fee: 2000},
			}},
			{MaxSupplyRate: 0.70, Rules: []ShippingRule{
				{Fee: 1000},
			}},
			{MaxSupplyRate: 1.0, Rules: []ShippingRule{
				{MinListPrice: 60000, Fee: 0},
				{Fee: 2300},
			}},
		},
	}
}

// LoadShippingTable reads a fee schedule from a YAML file.
func LoadShippingTable(path string) (*ShippingTable, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- operator-supplied config path
	if err != nil {
		return nil, fmt.Errorf("failed to read shipping table: %w", err)
	}

	var table ShippingTable
	if err := yaml.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("failed to parse shipping table: %w", err)
	}

	if err := table.Validate(); err != nil {
		return nil, err
	}

	return &table, nil
}

// Validate checks structural invariants: a positive ceiling, ascending
// bracket bounds, and a fallback rule terminating every bracket.
func (t *ShippingTable) Validate() error {
	if t.Ceiling <= 0 {
		return fmt.Errorf("%w: shipping ceiling must be positive", common.ErrInvalidConfig)
	}
	if len(t.Brackets) == 0 {
		return fmt.Errorf("%w: shipping table has no brackets", common.ErrInvalidConfig)
	}

	prev := 0.0
	for i, bracket := range t.Brackets {
		if bracket.MaxSupplyRate <= prev {
			return fmt.Errorf("%w: bracket %d bound %.2f not above previous %.2f",
				common.ErrInvalidConfig, i, bracket.MaxSupplyRate, prev)
		}
		prev = bracket.MaxSupplyRate

		if len(bracket.Rules) == 0 {
			return fmt.Errorf("%w: bracket %d has no rules", common.ErrInvalidConfig, i)
		}
		if last := bracket.Rules[len(bracket.Rules)-1]; last.MinListPrice != 0 {
			return fmt.Errorf("%w: bracket %d missing fallback rule", common.ErrInvalidConfig, i)
		}
		for _, rule := range bracket.Rules {
			if rule.Fee < 0 || rule.Fee > t.Ceiling {
				return fmt.Errorf("%w: bracket %d fee %d outside [0, %d]",
					common.ErrInvalidConfig, i, rule.Fee, t.Ceiling)
			}
		}
	}

	return nil
}

// BuyerFee returns the buyer-facing shipping fee for a supply rate and
// list price: first bracket covering the rate, first rule the price
// satisfies. Rates above every bracket bound fall into the last bracket.
func (t *ShippingTable) BuyerFee(supplyRate decimal.Decimal, listPrice int64) int64 {
	bracket := t.Brackets[len(t.Brackets)-1]
	for _, b := range t.Brackets {
		if supplyRate.LessThanOrEqual(decimal.NewFromFloat(b.MaxSupplyRate)) {
			bracket = b
			break
		}
	}

	for _, rule := range bracket.Rules {
		if listPrice >= rule.MinListPrice {
			return rule.Fee
		}
	}

	// Unreachable on a validated table; charge the full ceiling if it is not.
	return t.Ceiling
}
