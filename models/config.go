package models

type Config struct {
	GoogleSecretManager GoogleSecretManagerConfig `yaml:"google_secret_manager" json:"google_secret_manager" envconfig:"GOOGLE_SECRET_MANAGER"`
	HealthCheck         HealthCheckConfig         `yaml:"health_check" json:"health_check" envconfig:"HEALTH_CHECK"`
	Logger              LoggerConfig              `yaml:"logger" json:"logger" envconfig:"LOG"`
	MongoDB             MongoConfig               `yaml:"mongodb" json:"mongo_db" envconfig:"MONGODB"`
	Redis               RedisConfig               `yaml:"redis" json:"redis" envconfig:"REDIS"`
	Signer              SignerConfig              `yaml:"signer" json:"signer" envconfig:"SIGNER"`
	Ledger              LedgerConfig              `yaml:"ledger" json:"ledger" envconfig:"LEDGER"`
	Ethereum            EthereumConfig            `yaml:"ethereum" json:"ethereum" envconfig:"ETH"`
	Oracle              OracleConfig              `yaml:"oracle" json:"oracle" envconfig:"ORACLE"`
	InboundRelay        InboundRelayConfig        `yaml:"inbound_relay" json:"inbound_relay" envconfig:"INBOUND_RELAY"`
	API                 APIConfig                 `yaml:"api" json:"api" envconfig:"API"`
}

type GoogleSecretManagerConfig struct {
	Enabled            bool   `yaml:"enabled" json:"enabled" envconfig:"ENABLED"`
	ProjectID          string `yaml:"project_id" json:"project_id" envconfig:"PROJECT_ID"`
	MnemonicSecretName string `yaml:"mnemonic_secret_name" json:"mnemonic_secret_name" envconfig:"MNEMONIC_SECRET_NAME"`
	MongoSecretName    string `yaml:"mongo_secret_name" json:"mongo_secret_name" envconfig:"MONGO_SECRET_NAME"`
}

type HealthCheckConfig struct {
	IntervalMillis int64 `yaml:"interval_ms" json:"interval_ms" envconfig:"INTERVAL_MS"`
	ReadLastHealth bool  `yaml:"read_last_health" json:"read_last_health" envconfig:"READ_LAST_HEALTH"`
}

type LoggerConfig struct {
	Level string `yaml:"level" json:"level" envconfig:"LEVEL"`
}

type MongoConfig struct {
	URI           string `yaml:"uri" json:"uri" envconfig:"URI"`
	Database      string `yaml:"database" json:"database" envconfig:"DATABASE"`
	TimeoutMillis int64  `yaml:"timeout_ms" json:"timeout_ms" envconfig:"TIMEOUT_MS"`
}

type RedisConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled" envconfig:"ENABLED"`
	Host    string `yaml:"host" json:"host" envconfig:"HOST"`
	Port    int    `yaml:"port" json:"port" envconfig:"PORT"`
	Channel string `yaml:"channel" json:"channel" envconfig:"CHANNEL"`
}

type SignerConfig struct {
	Mnemonic      string `yaml:"mnemonic" json:"mnemonic" envconfig:"MNEMONIC"`
	GcpKmsKeyName string `yaml:"gcp_kms_key_name" json:"gcp_kms_key_name" envconfig:"GCP_KMS_KEY_NAME"`
}

type TrustedEmitterConfig struct {
	ChainID uint16 `yaml:"chain_id" json:"chain_id"`
	Emitter string `yaml:"emitter" json:"emitter"`
}

type LedgerConfig struct {
	Name                 string                 `yaml:"name" json:"name" envconfig:"NAME"`
	ChainID              uint16                 `yaml:"chain_id" json:"chain_id" envconfig:"CHAIN_ID"`
	Authority            string                 `yaml:"authority" json:"authority" envconfig:"AUTHORITY"`
	DailyBurnLimit       uint64                 `yaml:"daily_burn_limit" json:"daily_burn_limit" envconfig:"DAILY_BURN_LIMIT"`
	MaxProcessedMessages int                    `yaml:"max_processed_messages" json:"max_processed_messages" envconfig:"MAX_PROCESSED_MESSAGES"`
	MaxTrustedEmitters   int                    `yaml:"max_trusted_emitters" json:"max_trusted_emitters" envconfig:"MAX_TRUSTED_EMITTERS"`
	PriceStalenessSecs   int64                  `yaml:"price_staleness_secs" json:"price_staleness_secs" envconfig:"PRICE_STALENESS_SECS"`
	InitialSupply        uint64                 `yaml:"initial_supply" json:"initial_supply" envconfig:"INITIAL_SUPPLY"`
	TrustedEmitters      []TrustedEmitterConfig `yaml:"trusted_emitters" json:"trusted_emitters" ignored:"true"`
}

type EthereumConfig struct {
	RPCURL           string `yaml:"rpc_url" json:"rpcurl" envconfig:"RPC_URL"`
	RPCTimeoutMillis int64  `yaml:"rpc_timeout_ms" json:"rpc_timeout_ms" envconfig:"RPC_TIMEOUT_MS"`
	ChainID          string `yaml:"chain_id" json:"chain_id" envconfig:"CHAIN_ID"`
	TokenAddress     string `yaml:"token_address" json:"token_address" envconfig:"TOKEN_ADDRESS"`
}

type OracleConfig struct {
	Enabled        bool   `yaml:"enabled" json:"enabled" envconfig:"ENABLED"`
	IntervalMillis int64  `yaml:"interval_ms" json:"interval_ms" envconfig:"INTERVAL_MS"`
	HermesURL      string `yaml:"hermes_url" json:"hermes_url" envconfig:"HERMES_URL"`
	PriceID        string `yaml:"price_id" json:"price_id" envconfig:"PRICE_ID"`
	TimeoutMillis  int64  `yaml:"timeout_ms" json:"timeout_ms" envconfig:"TIMEOUT_MS"`
}

type InboundRelayConfig struct {
	Enabled        bool  `yaml:"enabled" json:"enabled" envconfig:"ENABLED"`
	IntervalMillis int64 `yaml:"interval_ms" json:"interval_ms" envconfig:"INTERVAL_MS"`
	MaxAttempts    int64 `yaml:"max_attempts" json:"max_attempts" envconfig:"MAX_ATTEMPTS"`
}

type APIConfig struct {
	Enabled           bool   `yaml:"enabled" json:"enabled" envconfig:"ENABLED"`
	ListenAddress     string `yaml:"listen_address" json:"listen_address" envconfig:"LISTEN_ADDRESS"`
	MaxRequestAgeSecs int64  `yaml:"max_request_age_secs" json:"max_request_age_secs" envconfig:"MAX_REQUEST_AGE_SECS"`
}
