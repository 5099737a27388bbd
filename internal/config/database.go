package config

// DatabaseConfig configures the Postgres connection pool shared by both
// services.
type DatabaseConfig struct {
	Host            string `toml:"host" env:"LNBANK_DB_HOST"`
	Port            string `toml:"port" env:"LNBANK_DB_PORT" env-default:"5432"`
	User            string `toml:"user" env:"LNBANK_DB_USER"`
	Password        string `toml:"password" env:"LNBANK_DB_PASSWORD"`
	DB              string `toml:"db" env:"LNBANK_DB_NAME"`
	SslMode         string `toml:"ssl_mode" env:"LNBANK_DB_SSL_MODE" env-default:"disable"`
	MaxConns        int    `toml:"max_conns" env:"LNBANK_DB_MAX_CONNS" env-default:"25"`
	MinConns        int    `toml:"min_conns" env:"LNBANK_DB_MIN_CONNS" env-default:"5"`
	MaxConnLifetime int    `toml:"max_conn_lifetime" env:"LNBANK_DB_MAX_CONN_LIFETIME" env-default:"5"`
	MaxConnIdleTime int    `toml:"max_conn_idle_time" env:"LNBANK_DB_MAX_CONN_IDLE_TIME" env-default:"1"`
}

// RedisConfig configures the shared cache/lock client and the bus transport.
type RedisConfig struct {
	Host     string `toml:"host" env:"LNBANK_REDIS_HOST"`
	Port     string `toml:"port" env:"LNBANK_REDIS_PORT" env-default:"6379"`
	Password string `toml:"password" env:"LNBANK_REDIS_PASSWORD"`
	DB       int    `toml:"db" env:"LNBANK_REDIS_DB" env-default:"0"`
}

// LndConfig configures the Lightning node gRPC connection.
type LndConfig struct {
	GRPCHost              string `toml:"grpc_host" env:"LNBANK_LND_GRPC_HOST" env-default:"localhost"`
	GRPCPort              int    `toml:"grpc_port" env:"LNBANK_LND_GRPC_PORT" env-default:"10009"`
	TLSCertPath           string `toml:"tls_cert_path" env:"LNBANK_LND_TLS_CERT_PATH"`
	MacaroonPath          string `toml:"macaroon_path" env:"LNBANK_LND_MACAROON_PATH"`
	MacaroonPassphrase    string `toml:"macaroon_passphrase" env:"LNBANK_LND_MACAROON_PASSPHRASE"`
	Network               string `toml:"network" env:"LNBANK_LND_NETWORK" env-default:"mainnet"`
	PaymentTimeoutSeconds int    `toml:"payment_timeout_seconds" env:"LNBANK_LND_PAYMENT_TIMEOUT_SECONDS" env-default:"60"`
	MaxPaymentFeeSats     int64  `toml:"max_payment_fee_sats" env:"LNBANK_LND_MAX_PAYMENT_FEE_SATS" env-default:"1000"`
}

// VenueConfig configures the hedging-venue websocket session.
type VenueConfig struct {
	ApiKey        string `toml:"api_key" env:"LNBANK_VENUE_API_KEY"`
	ApiSecret     string `toml:"api_secret" env:"LNBANK_VENUE_API_SECRET"`
	Passphrase    string `toml:"passphrase" env:"LNBANK_VENUE_PASSPHRASE"`
	WebsocketURL  string `toml:"websocket_url" env:"LNBANK_VENUE_WEBSOCKET_URL"`
}

// BusConfig configures the Redis Streams engine-to-engine bus.
type BusConfig struct {
	BankStream   string `toml:"bank_stream" env:"LNBANK_BUS_BANK_STREAM" env-default:"lnbank:bank"`
	DealerStream string `toml:"dealer_stream" env:"LNBANK_BUS_DEALER_STREAM" env-default:"lnbank:dealer"`
	ConsumerGroup string `toml:"consumer_group" env:"LNBANK_BUS_CONSUMER_GROUP" env-default:"lnbank"`
}

// FeeConfig holds the bank's three configurable fee policies: internal
// transfers, external payments, and the Lightning routing-fee cap reserved
// for an external payment (basis points of the amount, at least 10 sats).
type FeeConfig struct {
	InternalTxFeeBps    int64 `toml:"internal_tx_fee_bps" env:"LNBANK_FEE_INTERNAL_TX_BPS" env-default:"10"`
	ExternalTxFeeBps    int64 `toml:"external_tx_fee_bps" env:"LNBANK_FEE_EXTERNAL_TX_BPS" env-default:"25"`
	LnNetworkFeeMarginBps int64 `toml:"ln_network_fee_margin_bps" env:"LNBANK_FEE_LN_MARGIN_BPS" env-default:"100"`
}

// OnchainConfig configures the insurance fund's cold-storage sweep. UTXOs
// are sourced from and broadcast through the same LND node the bank already
// holds a connection to (internal/lndadapter) rather than a third-party
// indexer; VaultWIF is the persisted signing key for the standing cold
// vault address sweeps pay out to.
type OnchainConfig struct {
	Network            string `toml:"network" env:"LNBANK_ONCHAIN_NETWORK" env-default:"mainnet"`
	VaultAddress       string `toml:"vault_address" env:"LNBANK_ONCHAIN_VAULT_ADDRESS"`
	VaultWIF           string `toml:"vault_wif" env:"LNBANK_ONCHAIN_VAULT_WIF"`
	FeeRateSatVb       int64  `toml:"fee_rate_sat_vb" env:"LNBANK_ONCHAIN_FEE_RATE_SAT_VB" env-default:"10"`
	SweepThresholdSats int64  `toml:"sweep_threshold_sats" env:"LNBANK_ONCHAIN_SWEEP_THRESHOLD_SATS" env-default:"1000000"`
}

// LoggingConfig controls the shared logger's verbosity and encoding.
type LoggingConfig struct {
	Environment string `toml:"environment" env:"ENVIRONMENT" env-default:"development"`
}
