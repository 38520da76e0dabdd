package domain

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	pricingDomain "github.com/fd1az/dex-arb-monitor/business/pricing/domain"
)

var (
	weth = common.HexToAddress("0x4200000000000000000000000000000000000006")
	usdc = common.HexToAddress("0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913")
)

func testPair(t *testing.T, amount, minProfit string) pricingDomain.PairConfig {
	t.Helper()
	pair, err := pricingDomain.NewPairConfig("WETH/USDC", weth, usdc,
		decimal.RequireFromString(amount), 18, 18, decimal.RequireFromString(minProfit))
	if err != nil {
		t.Fatalf("NewPairConfig: %v", err)
	}
	return pair
}

func testQuote(uni, sushi, gasGwei string) *pricingDomain.PriceQuote {
	return &pricingDomain.PriceQuote{
		UniPrice:     decimal.RequireFromString(uni),
		SushiPrice:   decimal.RequireFromString(sushi),
		RawAmount:    big.NewInt(1),
		Path:         []common.Address{weth, usdc},
		GasPriceGwei: decimal.RequireFromString(gasGwei),
	}
}

func TestEstimatedGasCostUSD(t *testing.T) {
	tests := []struct {
		name     string
		gasGwei  string
		gasUnits uint64
		ethUSD   string
		wantUSD  string
	}{
		{
			name:     "mainnet_like_25gwei",
			gasGwei:  "25",
			gasUnits: 200_000,
			ethUSD:   "3000",
			wantUSD:  "15", // 0.005 ETH
		},
		{
			name:     "base_like_0.01gwei",
			gasGwei:  "0.01",
			gasUnits: 200_000,
			ethUSD:   "3000",
			wantUSD:  "0.006",
		},
		{
			name:     "zero_units",
			gasGwei:  "25",
			gasUnits: 0,
			ethUSD:   "3000",
			wantUSD:  "0",
		},
		{
			name:     "zero_gas_price",
			gasGwei:  "0",
			gasUnits: 200_000,
			ethUSD:   "3000",
			wantUSD:  "0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EstimatedGasCostUSD(decimal.RequireFromString(tt.gasGwei), tt.gasUnits, decimal.RequireFromString(tt.ethUSD))
			if !got.Equal(decimal.RequireFromString(tt.wantUSD)) {
				t.Errorf("EstimatedGasCostUSD = %s, want %s", got, tt.wantUSD)
			}
		})
	}
}

func TestExpectedProfitUSD(t *testing.T) {
	params := EstimatorParams{GasUnits: 200_000, ETHUSD: decimal.NewFromInt(3000)}

	tests := []struct {
		name       string
		uni        string
		sushi      string
		gasGwei    string
		amount     string
		wantSpread string
		wantNet    string
	}{
		{
			name:       "weth_usdc_1pct",
			uni:        "3000",
			sushi:      "3030",
			gasGwei:    "0.01",
			amount:     "0.1",
			wantSpread: "1",
			wantNet:    "2.994", // 30 * 0.1 - 0.006
		},
		{
			name:       "equal_prices_costs_gas_only",
			uni:        "3000",
			sushi:      "3000",
			gasGwei:    "0.01",
			amount:     "0.1",
			wantSpread: "0",
			wantNet:    "-0.006",
		},
		{
			name:       "uni_higher_is_symmetric",
			uni:        "3030",
			sushi:      "3000",
			gasGwei:    "0",
			amount:     "1",
			wantSpread: "0.99009900990099",
			wantNet:    "30",
		},
		{
			name:       "zero_uni_price",
			uni:        "0",
			sushi:      "10",
			gasGwei:    "0",
			amount:     "1",
			wantSpread: "0",
			wantNet:    "10",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := testQuote(tt.uni, tt.sushi, tt.gasGwei)
			pair := testPair(t, tt.amount, "0")

			if got := SpreadPercent(q); !got.Equal(decimal.RequireFromString(tt.wantSpread)) {
				t.Errorf("SpreadPercent = %s, want %s", got, tt.wantSpread)
			}
			if got := ExpectedProfitUSD(q, pair, params); !got.Equal(decimal.RequireFromString(tt.wantNet)) {
				t.Errorf("ExpectedProfitUSD = %s, want %s", got, tt.wantNet)
			}
		})
	}
}

func TestExpectedProfitUSD_Monotonic(t *testing.T) {
	params := EstimatorParams{GasUnits: 200_000, ETHUSD: decimal.NewFromInt(3000)}
	pair := testPair(t, "0.1", "0")

	t.Run("increasing_in_spread", func(t *testing.T) {
		prev := ExpectedProfitUSD(testQuote("3000", "3000", "1"), pair, params)
		for _, sushi := range []string{"3001", "3010", "3030", "3300"} {
			got := ExpectedProfitUSD(testQuote("3000", sushi, "1"), pair, params)
			if !got.GreaterThan(prev) {
				t.Errorf("sushi=%s: profit %s not greater than %s", sushi, got, prev)
			}
			prev = got
		}
	})

	t.Run("decreasing_in_gas_price", func(t *testing.T) {
		prev := ExpectedProfitUSD(testQuote("3000", "3030", "0"), pair, params)
		for _, gwei := range []string{"0.001", "0.1", "1", "50"} {
			got := ExpectedProfitUSD(testQuote("3000", "3030", gwei), pair, params)
			if !got.LessThan(prev) {
				t.Errorf("gas=%s: profit %s not less than %s", gwei, got, prev)
			}
			prev = got
		}
	})
}
