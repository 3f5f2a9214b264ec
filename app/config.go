package app

import (
	"os"

	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"

	"github.com/dan13ram/bridge-ledger/common"
	"github.com/dan13ram/bridge-ledger/ledger"
	"github.com/dan13ram/bridge-ledger/models"
)

var (
	Config models.Config
)

const (
	defaultMaxProcessedMessages = 1000
	defaultMaxTrustedEmitters   = 50
	defaultMaxAttempts          = 5
	defaultMaxRequestAgeSecs    = 60
	defaultHermesURL            = "https://hermes.pyth.network"
)

func InitConfig(configFile string, envFile string) {
	readConfigFromConfigFile(configFile)
	readConfigFromENV(envFile)
	readSecretsFromGSM()
	setDefaults()
	validateConfig()
}

func readConfigFromConfigFile(configFile string) bool {
	if configFile == "" {
		log.Debug("[CONFIG] No config file provided")
		return false
	}

	yamlFile, err := os.ReadFile(configFile)
	if err != nil {
		log.Fatalf("[CONFIG] Error reading config file %q: %s\n", configFile, err.Error())
	}

	err = yaml.Unmarshal(yamlFile, &Config)
	if err != nil {
		log.Fatalf("[CONFIG] Error unmarshalling config file %q: %s\n", configFile, err.Error())
	}

	log.Debug("[CONFIG] Config loaded from file ", configFile)
	return true
}

func setDefaults() {
	if Config.Logger.Level == "" {
		Config.Logger.Level = "info"
	}
	if Config.MongoDB.TimeoutMillis == 0 {
		Config.MongoDB.TimeoutMillis = 2000
	}
	if Config.HealthCheck.IntervalMillis == 0 {
		Config.HealthCheck.IntervalMillis = 60000
	}
	if Config.Ledger.DailyBurnLimit == 0 {
		Config.Ledger.DailyBurnLimit = ledger.DefaultDailyBurnLimit
	}
	if Config.Ledger.MaxProcessedMessages == 0 {
		Config.Ledger.MaxProcessedMessages = defaultMaxProcessedMessages
	}
	if Config.Ledger.MaxTrustedEmitters == 0 {
		Config.Ledger.MaxTrustedEmitters = defaultMaxTrustedEmitters
	}
	if Config.Ledger.PriceStalenessSecs == 0 {
		Config.Ledger.PriceStalenessSecs = ledger.DefaultStalenessSecs
	}
	if Config.Ethereum.RPCTimeoutMillis == 0 {
		Config.Ethereum.RPCTimeoutMillis = 30000
	}
	if Config.Oracle.HermesURL == "" {
		Config.Oracle.HermesURL = defaultHermesURL
	}
	if Config.Oracle.TimeoutMillis == 0 {
		Config.Oracle.TimeoutMillis = 5000
	}
	if Config.InboundRelay.MaxAttempts == 0 {
		Config.InboundRelay.MaxAttempts = defaultMaxAttempts
	}
	if Config.API.MaxRequestAgeSecs == 0 {
		Config.API.MaxRequestAgeSecs = defaultMaxRequestAgeSecs
	}
}

func validateConfig() {
	log.Debug("[CONFIG] Validating config")

	// mongodb
	if Config.MongoDB.URI == "" {
		log.Fatal("[CONFIG] MongoDB.URI is required")
	}
	if Config.MongoDB.Database == "" {
		log.Fatal("[CONFIG] MongoDB.Database is required")
	}

	// signer
	if Config.Signer.Mnemonic == "" && Config.Signer.GcpKmsKeyName == "" {
		log.Fatal("[CONFIG] Signer.Mnemonic or Signer.GcpKmsKeyName is required")
	}

	// ledger
	if Config.Ledger.Name == "" {
		log.Fatal("[CONFIG] Ledger.Name is required")
	}
	if Config.Ledger.ChainID == 0 {
		log.Fatal("[CONFIG] Ledger.ChainID is required")
	}
	if Config.Ledger.Authority != "" {
		if _, err := common.ParseIdentityOrAddress(Config.Ledger.Authority); err != nil {
			log.Fatalf("[CONFIG] Ledger.Authority is invalid: %s", err.Error())
		}
	}
	if Config.Ledger.MaxProcessedMessages < 0 || Config.Ledger.MaxTrustedEmitters < 0 {
		log.Fatal("[CONFIG] Ledger capacities must not be negative")
	}
	if Config.Ledger.PriceStalenessSecs < 0 {
		log.Fatal("[CONFIG] Ledger.PriceStalenessSecs must not be negative")
	}
	if Config.Ledger.MaxTrustedEmitters > 0 && len(Config.Ledger.TrustedEmitters) > Config.Ledger.MaxTrustedEmitters {
		log.Fatal("[CONFIG] Ledger.TrustedEmitters exceeds Ledger.MaxTrustedEmitters")
	}
	for i, e := range Config.Ledger.TrustedEmitters {
		if e.ChainID == 0 {
			log.Fatalf("[CONFIG] Ledger.TrustedEmitters[%d].ChainID is required", i)
		}
		if _, err := common.ParseIdentityOrAddress(e.Emitter); err != nil {
			log.Fatalf("[CONFIG] Ledger.TrustedEmitters[%d].Emitter is invalid: %s", i, err.Error())
		}
	}

	// ethereum
	if Config.Ethereum.RPCURL == "" {
		log.Fatal("[CONFIG] Ethereum.RPCURL is required")
	}
	if Config.Ethereum.ChainID == "" {
		log.Fatal("[CONFIG] Ethereum.ChainID is required")
	}
	if !common.IsValidEthereumAddress(Config.Ethereum.TokenAddress) {
		log.Fatal("[CONFIG] Ethereum.TokenAddress is invalid")
	}

	// oracle
	if Config.Oracle.Enabled {
		if Config.Oracle.IntervalMillis == 0 {
			log.Fatal("[CONFIG] Oracle.IntervalMillis is required")
		}
		if Config.Oracle.PriceID == "" {
			log.Fatal("[CONFIG] Oracle.PriceID is required")
		}
	}

	// inbound relay
	if Config.InboundRelay.Enabled && Config.InboundRelay.IntervalMillis == 0 {
		log.Fatal("[CONFIG] InboundRelay.IntervalMillis is required")
	}

	// api
	if Config.API.Enabled && Config.API.ListenAddress == "" {
		log.Fatal("[CONFIG] API.ListenAddress is required")
	}

	// redis
	if Config.Redis.Enabled {
		if Config.Redis.Host == "" || Config.Redis.Port == 0 {
			log.Fatal("[CONFIG] Redis.Host and Redis.Port are required")
		}
		if Config.Redis.Channel == "" {
			log.Fatal("[CONFIG] Redis.Channel is required")
		}
	}

	log.Debug("[CONFIG] Config validated")
}
