package main

import (
	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

// config is loaded from the process environment at startup, grounded on
// the teacher's plain-struct approach to daemon wiring but using
// envconfig (per SPEC_FULL's ambient-stack section) instead of hardcoded
// literals in main.
type config struct {
	ListenAddress string `envconfig:"LISTEN_ADDRESS" default:"0.0.0.0"`
	ListenPort    int    `envconfig:"LISTEN_PORT" default:"9101"`
	AdminToken    string `envconfig:"ADMIN_TOKEN" required:"true"`

	BaseResource string `envconfig:"BASE_RESOURCE" default:"resource_xrd"`

	// EpochSeconds is how often the simulated ledger clock advances by one
	// epoch (spec.md treats epoch progression as an external clock this
	// process does not itself own in production, but a standalone daemon
	// needs something driving it).
	EpochSeconds int `envconfig:"EPOCH_SECONDS" default:"300"`

	// Single demo validator wiring; a production daemon would load a list
	// from a registry service instead (spec.md §1/§6 treat the validator
	// set as externally supplied).
	ValidatorAddress   string `envconfig:"VALIDATOR_ADDRESS" default:"validator_sim1"`
	ValidatorPoolUnit  string `envconfig:"VALIDATOR_POOL_UNIT" default:"resource_lsu1"`
	ValidatorReceipt   string `envconfig:"VALIDATOR_RECEIPT_RESOURCE" default:"resource_unstake1"`
	ValidatorRate      string `envconfig:"VALIDATOR_REDEMPTION_RATE" default:"1.02"`
	ValidatorUnbondingEpochs uint32 `envconfig:"VALIDATOR_UNBONDING_EPOCHS" default:"12"`

	PlatformFee         string `envconfig:"PLATFORM_FEE" default:"0"`
	CycleFee            string `envconfig:"CYCLE_FEE" default:"5"`
	MinLiquidity        string `envconfig:"MIN_LIQUIDITY" default:"10000"`
	MinRefillThreshold  string `envconfig:"MIN_REFILL_THRESHOLD" default:"10000"`
	SmallOrderThreshold string `envconfig:"SMALL_ORDER_THRESHOLD" default:"0"`
	ReceiptImageURL     string `envconfig:"RECEIPT_IMAGE_URL" default:"https://liquify.example/receipt.png"`
}

func loadConfig() (config, error) {
	var c config
	if err := envconfig.Process("liquify", &c); err != nil {
		return config{}, err
	}
	return c, nil
}

func mustDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}
