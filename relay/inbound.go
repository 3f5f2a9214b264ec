package relay

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/dan13ram/bridge-ledger/app"
	"github.com/dan13ram/bridge-ledger/ledger"
	"github.com/dan13ram/bridge-ledger/models"
)

const (
	InboundRelayName = "INBOUND RELAY"

	deliverTimeout = 10 * time.Minute
)

type MessageDeliverer interface {
	Deliver(ctx context.Context, attested models.AttestedMessage) (*ledger.MintReceipt, error)
}

// InboundRunner hands queued attested messages to the ledger and records
// the outcome on each document.
type InboundRunner struct {
	ledger        MessageDeliverer
	fingerprinter ledger.Fingerprinter
	maxAttempts   int64
	timeout       time.Duration

	mu        sync.RWMutex
	delivered int64
	pending   int
}

func (x *InboundRunner) Run() {
	x.SyncMessages()
}

func (x *InboundRunner) Status() models.RunnerStatus {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return models.RunnerStatus{
		Revision: strconv.FormatInt(x.delivered, 10),
		Detail:   fmt.Sprintf("%d delivered, %d pending", x.delivered, x.pending),
	}
}

// outcome maps a delivery result to the document status. A message counts as
// delivered only when the ledger returned a receipt, even if its record is
// still unsaved. A ledger blocked on an earlier unsaved record never saw the
// message, so that does not use up an attempt.
func (x *InboundRunner) outcome(doc *models.InboundMessage, receipt *ledger.MintReceipt, err error) (string, int64) {
	attempts := doc.Attempts + 1
	switch {
	case err == nil && receipt != nil:
		return models.InboundStatusSuccess, attempts
	case receipt != nil && errors.Is(err, ledger.ErrStateNotPersisted):
		return models.InboundStatusSuccess, attempts
	case errors.Is(err, ledger.ErrPendingState):
		return models.InboundStatusPending, doc.Attempts
	case errors.Is(err, ledger.ErrOutcomeUnknown):
		return models.InboundStatusFailed, attempts
	case errors.Is(err, ledger.ErrAlreadyProcessed):
		return models.InboundStatusDuplicate, attempts
	case errors.Is(err, ledger.ErrUntrustedEmitter),
		errors.Is(err, ledger.ErrMalformedMessage),
		errors.Is(err, ledger.ErrCapacityExceeded),
		errors.Is(err, ledger.ErrArithmeticOverflow):
		return models.InboundStatusRejected, attempts
	}
	if attempts >= x.maxAttempts {
		return models.InboundStatusFailed, attempts
	}
	return models.InboundStatusPending, attempts
}

func (x *InboundRunner) HandleMessage(doc *models.InboundMessage) bool {
	attested := doc.Attested()
	fingerprint := x.fingerprinter.Fingerprint(attested)
	log.Debug("[INBOUND RELAY] Handling message ", fingerprint, " from chain ", doc.EmitterChain, " sequence ", doc.Sequence)

	ctx, cancel := context.WithTimeout(context.Background(), x.timeout)
	receipt, err := x.ledger.Deliver(ctx, attested)
	cancel()

	status, attempts := x.outcome(doc, receipt, err)
	lastError := ""
	if err != nil {
		lastError = err.Error()
	}
	switch {
	case status == models.InboundStatusSuccess && err != nil:
		log.Warn("[INBOUND RELAY] Delivered message ", fingerprint, " but ledger record is unsaved: ", err)
	case status == models.InboundStatusSuccess:
		log.Info("[INBOUND RELAY] Delivered message ", fingerprint, ", total minted ", receipt.TotalMinted)
	case err != nil:
		log.Warn("[INBOUND RELAY] Message ", fingerprint, " not delivered (", status, "): ", err)
	default:
		log.Error("[INBOUND RELAY] Message ", fingerprint, " returned no receipt")
	}

	filter := bson.M{
		"_id":    doc.Id,
		"status": models.InboundStatusPending,
	}
	update := bson.M{
		"$set": bson.M{
			"status":      status,
			"attempts":    attempts,
			"last_error":  lastError,
			"fingerprint": fingerprint.Hex(),
			"updated_at":  time.Now(),
		},
	}

	matched, err := app.DB.UpdateOne(models.CollectionInboundMessages, filter, update)
	if err != nil {
		log.Error("[INBOUND RELAY] Error updating message: ", err)
		return false
	}
	if matched == 0 {
		log.Warn("[INBOUND RELAY] Message ", fingerprint, " was updated by another relay")
	}

	if status == models.InboundStatusSuccess {
		x.mu.Lock()
		x.delivered++
		x.mu.Unlock()
	}
	return status != models.InboundStatusPending
}

func (x *InboundRunner) SyncMessages() bool {
	filter := bson.M{"status": models.InboundStatusPending}

	messages := []models.InboundMessage{}
	if err := app.DB.FindMany(models.CollectionInboundMessages, filter, &messages); err != nil {
		log.Error("[INBOUND RELAY] Error fetching pending messages: ", err)
		return false
	}

	log.Info("[INBOUND RELAY] Found pending messages: ", len(messages))

	success := true
	remaining := 0
	for i := range messages {
		doc := &messages[i]

		resourceId := fmt.Sprintf("%s/%s", models.CollectionInboundMessages, doc.Id.Hex())
		lockId, err := app.DB.XLock(resourceId)
		if err != nil {
			log.Debug("[INBOUND RELAY] Skipping locked message: ", resourceId, ": ", err)
			remaining++
			continue
		}

		if !x.HandleMessage(doc) {
			success = false
			remaining++
		}

		if err := app.DB.Unlock(lockId); err != nil {
			log.Error("[INBOUND RELAY] Error unlocking message: ", err)
		}
	}

	x.mu.Lock()
	x.pending = remaining
	x.mu.Unlock()

	return success
}

func NewInboundRunner(deliverer MessageDeliverer, fingerprinter ledger.Fingerprinter, maxAttempts int64, timeout time.Duration) *InboundRunner {
	return &InboundRunner{
		ledger:        deliverer,
		fingerprinter: fingerprinter,
		maxAttempts:   maxAttempts,
		timeout:       timeout,
	}
}

func NewInboundRelayService(deliverer MessageDeliverer, wg *sync.WaitGroup, lastHealth models.ServiceHealth) models.Service {
	if !app.Config.InboundRelay.Enabled {
		log.Debug("[INBOUND RELAY] Inbound relay disabled")
		return models.NewEmptyService(wg)
	}

	x := NewInboundRunner(
		deliverer,
		KeccakFingerprinter,
		app.Config.InboundRelay.MaxAttempts,
		deliverTimeout,
	)
	if delivered, err := strconv.ParseInt(lastHealth.Revision, 10, 64); err == nil {
		x.delivered = delivered
	}

	log.Info("[INBOUND RELAY] Initialized inbound relay")

	return app.NewRunnerService(InboundRelayName, x, wg, time.Duration(app.Config.InboundRelay.IntervalMillis)*time.Millisecond)
}
