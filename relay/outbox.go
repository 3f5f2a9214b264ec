package relay

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/dan13ram/bridge-ledger/app"
	"github.com/dan13ram/bridge-ledger/ledger"
	"github.com/dan13ram/bridge-ledger/models"
)

// Outbox queues announced burns in the outbound_messages collection for
// the transport to pick up.
type Outbox struct{}

var _ ledger.Dispatcher = &Outbox{}

func NewOutbox() *Outbox {
	return &Outbox{}
}

func (o *Outbox) Dispatch(ctx context.Context, msg models.CrossChainMessage, payload []byte) error {
	now := time.Now()
	doc := models.OutboundMessage{
		MessageId:   uuid.NewString(),
		Recipient:   msg.Recipient,
		Amount:      msg.Amount,
		SourceChain: msg.SourceChain,
		TargetChain: msg.TargetChain,
		Nonce:       msg.Nonce,
		Payload:     hexutil.Encode(payload),
		Status:      models.OutboundStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if _, err := app.DB.InsertOne(models.CollectionOutboundMessages, doc); err != nil {
		return fmt.Errorf("error queueing outbound message: %w", err)
	}

	log.Info("[OUTBOX] Queued outbound message ", doc.MessageId, " to chain ", msg.TargetChain)
	return nil
}
