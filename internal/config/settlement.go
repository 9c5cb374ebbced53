package config

import "time"

type SettlementConfig struct {
	// GatewayURL empty disables on-chain settlement entirely; sessions
	// then run with in-memory chips only.
	GatewayURL string `env:"SETTLEMENT_GATEWAY_URL"`
	APIKey     string `env:"SETTLEMENT_API_KEY"`

	// DepositAddress is the escrow account every session pays into.
	DepositAddress string `env:"SETTLEMENT_DEPOSIT_ADDRESS" envDefault:"escrow-main"`

	ChipsPerUnit int64         `env:"SETTLEMENT_CHIPS_PER_UNIT" envDefault:"1000"`
	StageTimeout time.Duration `env:"SETTLEMENT_STAGE_TIMEOUT" envDefault:"30s"`
}

func LoadSettlement() (SettlementConfig, error) {
	return parseEnv[SettlementConfig]()
}
