package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	log "github.com/sirupsen/logrus"
	flag "github.com/spf13/pflag"

	"github.com/dan13ram/bridge-ledger/app"
	"github.com/dan13ram/bridge-ledger/eth"
	"github.com/dan13ram/bridge-ledger/ledger"
	"github.com/dan13ram/bridge-ledger/models"
	"github.com/dan13ram/bridge-ledger/relay"
)

func absPath(path string) string {
	if path == "" {
		return ""
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		log.Fatal("[MAIN] Invalid path ", path, ": ", err)
	}
	return abs
}

func main() {

	log.SetFormatter(&log.TextFormatter{
		FullTimestamp: true,
	})

	var configPath, envPath string
	flag.StringVarP(&configPath, "config", "c", "", "path to the yaml config file")
	flag.StringVarP(&envPath, "env", "e", "", "path to a .env file overlaid on the config")
	flag.Parse()

	app.InitConfig(absPath(configPath), absPath(envPath))
	app.InitLogger()
	app.InitDB()

	ctx := context.Background()

	signer, err := app.CreateSigner(ctx)
	if err != nil {
		log.Fatal("[MAIN] Error creating signer: ", err)
	}
	authority, err := app.LedgerAuthority(signer)
	if err != nil {
		log.Fatal("[MAIN] Error reading ledger authority: ", err)
	}

	client, err := eth.NewClient()
	if err != nil {
		log.Fatal("[MAIN] Error connecting to ethereum: ", err)
	}
	client.ValidateNetwork()

	token, err := eth.NewTokenLedger(client, app.Config.Ethereum.TokenAddress)
	if err != nil {
		log.Fatal("[MAIN] Error binding token contract: ", err)
	}

	name := app.Config.Ledger.Name
	bridge, err := ledger.NewBridgeLedger(ledger.Options{
		Name: name,
		Policy: ledger.Policy{
			ChainID:            app.Config.Ledger.ChainID,
			DailyBurnLimit:     app.Config.Ledger.DailyBurnLimit,
			MaxFingerprints:    app.Config.Ledger.MaxProcessedMessages,
			MaxTrustedEmitters: app.Config.Ledger.MaxTrustedEmitters,
			StalenessSecs:      app.Config.Ledger.PriceStalenessSecs,
		},
		Authority:     signer,
		Token:         token,
		Store:         app.NewMongoStateStore(name),
		Locker:        app.NewMongoLocker(name),
		Fingerprinter: relay.KeccakFingerprinter,
		Events:        app.NewEventSink(),
		Dispatcher:    relay.NewOutbox(),
	})
	if err != nil {
		log.Fatal("[MAIN] Error creating ledger: ", err)
	}

	initializeLedger(ctx, bridge, authority)

	healthcheck := app.NewHealthCheck(name, authority.Hex(), signer.EthAddress().Hex())

	serviceHealthMap := make(map[string]models.ServiceHealth)
	if app.Config.HealthCheck.ReadLastHealth {
		if lastHealth, err := healthcheck.FindLastHealth(); err == nil {
			for _, serviceHealth := range lastHealth.ServiceHealths {
				serviceHealthMap[serviceHealth.Name] = serviceHealth
			}
		}
	}

	var wg sync.WaitGroup
	var services []models.Service

	for serviceName, factory := range GetServiceFactories(bridge) {
		service := CreateService(&wg, serviceName, serviceHealthMap, factory.CreateService, factory.CreateServiceWithLastHealth)
		services = append(services, service)
	}

	healthcheck.SetServices(services)
	services = append(services, app.NewHealthService(healthcheck, &wg))

	wg.Add(len(services))
	for _, service := range services {
		go service.Start()
	}

	log.Info("[MAIN] Server started")

	// Gracefully shut down server
	gracefulStop := make(chan os.Signal, 1)
	done := make(chan bool, 1)
	signal.Notify(gracefulStop, syscall.SIGINT, syscall.SIGTERM)
	go waitForExitSignals(gracefulStop, done)
	<-done

	log.Debug("[MAIN] Gracefully shutting down server...")
	for _, service := range services {
		service.Stop()
	}
	wg.Wait()

	if err := app.DB.Disconnect(); err != nil {
		log.Error("[MAIN] Error disconnecting from database: ", err)
	}
	signer.Destroy()
	log.Info("[MAIN] Server stopped")
}

// initializeLedger creates the ledger record on first start. Another replica
// winning the race is fine.
func initializeLedger(ctx context.Context, bridge *ledger.BridgeLedger, authority models.Identity) {
	_, err := bridge.State(ctx)
	if err == nil {
		log.Info("[MAIN] Loaded ledger ", bridge.Name())
		return
	}
	if !errors.Is(err, ledger.ErrNotInitialized) {
		log.Fatal("[MAIN] Error loading ledger: ", err)
	}

	trusted, err := app.TrustedEmitters()
	if err != nil {
		log.Fatal("[MAIN] Error reading trusted emitters: ", err)
	}

	state, err := bridge.Initialize(ctx, authority, app.Config.Ledger.InitialSupply, trusted...)
	switch {
	case errors.Is(err, ledger.ErrAlreadyInitialized):
		log.Info("[MAIN] Ledger initialized by another instance")
	case errors.Is(err, ledger.ErrStateNotPersisted):
		// the initial supply is minted, the record is retried before the next operation
		log.Error("[MAIN] Ledger initialized but not saved: ", err)
	case err != nil:
		log.Fatal("[MAIN] Error initializing ledger: ", err)
	default:
		log.Infof("[MAIN] Initialized ledger %s with supply %d", state.Name, state.TotalMinted)
	}
}

func waitForExitSignals(gracefulStop chan os.Signal, done chan bool) {
	sig := <-gracefulStop
	log.Debug("[MAIN] Got signal: ", sig)
	done <- true
}
