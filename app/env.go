package app

import (
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	log "github.com/sirupsen/logrus"
)

// readConfigFromENV overlays every variable that is set, for example
// MONGODB_URI or LEDGER_DAILY_BURN_LIMIT, on top of the file config.
func readConfigFromENV(envFile string) bool {
	if envFile != "" {
		err := godotenv.Load(envFile)
		if err != nil {
			log.Warn("[ENV] Error loading .env file: ", err.Error())
		}
	}

	err := envconfig.Process("", &Config)
	if err != nil {
		log.Fatalf("[ENV] Error reading config from environment: %s", err.Error())
	}

	log.Debug("[ENV] Config overlaid from environment")
	return true
}
