package oracle

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/dan13ram/bridge-ledger/app"
	"github.com/dan13ram/bridge-ledger/models"
)

const PriceRefresherName = "PRICE REFRESHER"

type PriceSource interface {
	LatestPrice(ctx context.Context) (models.PriceReading, error)
}

type PriceLedger interface {
	RefreshPrice(ctx context.Context, reading models.PriceReading) (models.PriceSnapshot, error)
}

// PriceRefresherRunner pushes the latest oracle reading into the ledger.
type PriceRefresherRunner struct {
	source  PriceSource
	ledger  PriceLedger
	timeout time.Duration

	mu        sync.RWMutex
	snapshot  models.PriceSnapshot
	lastError string
}

func (x *PriceRefresherRunner) Run() {
	x.Refresh()
}

func (x *PriceRefresherRunner) setResult(snapshot models.PriceSnapshot, err error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	if err != nil {
		x.lastError = err.Error()
		return
	}
	x.snapshot = snapshot
	x.lastError = ""
}

func (x *PriceRefresherRunner) Refresh() bool {
	ctx, cancel := context.WithTimeout(context.Background(), x.timeout)
	defer cancel()

	reading, err := x.source.LatestPrice(ctx)
	if err != nil {
		log.Error("[PRICE REFRESHER] Error fetching price: ", err)
		x.setResult(models.PriceSnapshot{}, err)
		return false
	}

	snapshot, err := x.ledger.RefreshPrice(ctx, reading)
	if err != nil {
		log.Error("[PRICE REFRESHER] Error refreshing ledger price: ", err)
		x.setResult(models.PriceSnapshot{}, err)
		return false
	}

	log.Info("[PRICE REFRESHER] Refreshed price to ", FormatPrice(snapshot.Price), " (confidence ", FormatPrice(snapshot.Confidence), ")")
	x.setResult(snapshot, nil)
	return true
}

func (x *PriceRefresherRunner) Status() models.RunnerStatus {
	x.mu.RLock()
	defer x.mu.RUnlock()

	detail := fmt.Sprintf("price %s", FormatPrice(x.snapshot.Price))
	if x.lastError != "" {
		detail = "error: " + x.lastError
	}
	return models.RunnerStatus{
		Revision: strconv.FormatInt(x.snapshot.Timestamp, 10),
		Detail:   detail,
	}
}

func NewPriceRefresher(source PriceSource, ledger PriceLedger, timeout time.Duration) *PriceRefresherRunner {
	return &PriceRefresherRunner{
		source:  source,
		ledger:  ledger,
		timeout: timeout,
	}
}

func NewPriceRefresherService(ledger PriceLedger, wg *sync.WaitGroup) models.Service {
	if !app.Config.Oracle.Enabled {
		log.Debug("[PRICE REFRESHER] Price refresher disabled")
		return models.NewEmptyService(wg)
	}

	log.Debug("[PRICE REFRESHER] Initializing price refresher for feed ", app.Config.Oracle.PriceID)

	timeout := time.Duration(app.Config.Oracle.TimeoutMillis) * time.Millisecond
	client := NewHermesClient(app.Config.Oracle.HermesURL, app.Config.Oracle.PriceID, timeout)
	x := NewPriceRefresher(client, ledger, timeout)

	log.Info("[PRICE REFRESHER] Initialized price refresher")

	return app.NewRunnerService(PriceRefresherName, x, wg, time.Duration(app.Config.Oracle.IntervalMillis)*time.Millisecond)
}
