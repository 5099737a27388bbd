package config

// BankConfig is the root configuration for cmd/bankd.
type BankConfig struct {
	Database DatabaseConfig `toml:"database"`
	Redis    RedisConfig    `toml:"redis"`
	Bus      BusConfig      `toml:"bus"`
	Lnd      LndConfig      `toml:"lnd"`
	Onchain  OnchainConfig  `toml:"onchain"`
	Fees     FeeConfig      `toml:"fees"`
	Logging  LoggingConfig  `toml:"logging"`
}

// DealerConfig is the root configuration for cmd/dealerd.
type DealerConfig struct {
	Redis          RedisConfig        `toml:"redis"`
	Bus            BusConfig          `toml:"bus"`
	Venue          VenueConfig        `toml:"venue"`
	PriceRef       PriceRefConfig     `toml:"price_ref"`
	RiskTolerances map[string]int64   `toml:"risk_tolerances"`
	Logging        LoggingConfig      `toml:"logging"`
}

// PriceRefConfig selects the independent spot-price source housekeeping
// cross-checks the venue's mark price against, and the hedging/sweep
// tunables that round out internal/dealer.Config.
type PriceRefConfig struct {
	Provider                   string  `toml:"provider" env:"LNBANK_PRICEREF_PROVIDER" env-default:"coinbase"`
	BaseURL                    string  `toml:"base_url" env:"LNBANK_PRICEREF_BASE_URL"`
	ReferenceFiatCurrency      string  `toml:"reference_fiat_currency" env:"LNBANK_PRICEREF_CURRENCY" env-default:"USD"`
	DivergenceTolerancePercent float64 `toml:"divergence_tolerance_percent" env:"LNBANK_PRICEREF_DIVERGENCE_PCT" env-default:"2.0"`
	ExcessSatThreshold         int64   `toml:"excess_sat_threshold" env:"LNBANK_PRICEREF_EXCESS_SAT_THRESHOLD" env-default:"1000"`
}
