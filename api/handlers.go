package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/go-playground/validator/v10"

	"github.com/dan13ram/bridge-ledger/common"
	"github.com/dan13ram/bridge-ledger/ledger"
	"github.com/dan13ram/bridge-ledger/models"
	"github.com/dan13ram/bridge-ledger/oracle"
)

type BurnRequest struct {
	Amount      uint64 `json:"amount" validate:"gt=0"`
	TargetChain uint16 `json:"target_chain" validate:"required"`
	Recipient   string `json:"recipient" validate:"required,identity"`
	Nonce       uint32 `json:"nonce"`
}

type PriceRequest struct {
	Price       int64  `json:"price"`
	Confidence  uint64 `json:"confidence"`
	Exponent    int32  `json:"exponent"`
	PublishTime int64  `json:"publish_time"`
	Trading     *bool  `json:"trading" validate:"required"`
}

type TrustedEmitterRequest struct {
	ChainID uint16 `json:"chain_id" validate:"required"`
	Emitter string `json:"emitter" validate:"required,identity"`
}

type RemainingResponse struct {
	Remaining uint64 `json:"remaining"`
}

type PriceResponse struct {
	Price      uint64 `json:"price"`
	Confidence uint64 `json:"confidence"`
	Timestamp  int64  `json:"timestamp"`
	Exponent   int32  `json:"exponent"`
	Display    string `json:"display"`
}

type BurnResponse struct {
	Message     models.CrossChainMessage `json:"message"`
	Payload     string                   `json:"payload"`
	Remaining   uint64                   `json:"remaining"`
	TotalBurned uint64                   `json:"total_burned"`
	Revision    uint64                   `json:"revision"`
	Warning     string                   `json:"warning,omitempty"`
}

type PauseResponse struct {
	Paused bool `json:"paused"`
}

type ChangedResponse struct {
	Changed bool `json:"changed"`
}

func newPriceResponse(snapshot models.PriceSnapshot) *PriceResponse {
	return &PriceResponse{
		Price:      snapshot.Price,
		Confidence: snapshot.Confidence,
		Timestamp:  snapshot.Timestamp,
		Exponent:   oracle.PriceExponent,
		Display:    oracle.FormatPrice(snapshot.Price),
	}
}

// decode reads a json body into dst and validates it, writing the error
// response itself when it fails.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		s.respondError(w, r, http.StatusBadRequest, fmt.Errorf("cannot decode request body: %w", err))
		return false
	}

	if err := s.validate.Struct(dst); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) && len(validationErrors) > 0 {
			fe := validationErrors[0]
			field := strings.ToLower(fe.Field())
			s.respondFieldError(w, r, http.StatusBadRequest, field, fmt.Errorf("field %s failed %q validation", field, fe.Tag()))
			return false
		}
		s.respondError(w, r, http.StatusBadRequest, err)
		return false
	}
	return true
}

func (s *Server) caller(w http.ResponseWriter, r *http.Request) (models.Identity, bool) {
	caller, ok := CallerFrom(r.Context())
	if !ok {
		s.respondError(w, r, http.StatusUnauthorized, ErrMissingSignature)
	}
	return caller, ok
}

func (s *Server) GetState(w http.ResponseWriter, r *http.Request) {
	state, err := s.ledger.State(r.Context())
	if err != nil {
		s.respondLedgerError(w, r, err)
		return
	}
	respondJSON(w, state, http.StatusOK)
}

func (s *Server) GetRemainingBurn(w http.ResponseWriter, r *http.Request) {
	remaining, err := s.ledger.RemainingDailyBurn(r.Context())
	if err != nil {
		s.respondLedgerError(w, r, err)
		return
	}
	respondJSON(w, &RemainingResponse{Remaining: remaining}, http.StatusOK)
}

func (s *Server) GetPrice(w http.ResponseWriter, r *http.Request) {
	snapshot, err := s.ledger.CurrentPrice(r.Context())
	if err != nil {
		s.respondLedgerError(w, r, err)
		return
	}
	respondJSON(w, newPriceResponse(snapshot), http.StatusOK)
}

func (s *Server) PostBurn(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.caller(w, r)
	if !ok {
		return
	}
	var req BurnRequest
	if !s.decode(w, r, &req) {
		return
	}
	recipient, _ := common.ParseIdentityOrAddress(req.Recipient)

	receipt, err := s.ledger.Burn(r.Context(), caller, req.Amount, req.TargetChain, recipient, req.Nonce)
	if receipt == nil {
		s.respondLedgerError(w, r, err)
		return
	}

	resp := &BurnResponse{
		Message:     receipt.Message,
		Payload:     hexutil.Encode(receipt.Payload),
		Remaining:   receipt.Remaining,
		TotalBurned: receipt.TotalBurned,
		Revision:    receipt.Revision,
	}
	code := http.StatusOK
	if errors.Is(err, ledger.ErrDispatchFailed) {
		// the burn is committed, only the handoff to the transport failed
		resp.Warning = err.Error()
		code = http.StatusAccepted
	} else if err != nil {
		s.respondLedgerError(w, r, err)
		return
	}
	respondJSON(w, resp, code)
}

func (s *Server) PostPrice(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.caller(w, r); !ok {
		return
	}
	var req PriceRequest
	if !s.decode(w, r, &req) {
		return
	}

	reading := models.PriceReading{
		Price:      req.Price,
		Confidence: req.Confidence,
		Exponent:   req.Exponent,
		Trading:    *req.Trading,
	}
	if req.PublishTime > 0 {
		reading.PublishTime = time.Unix(req.PublishTime, 0)
	}

	snapshot, err := s.ledger.RefreshPrice(r.Context(), reading)
	if err != nil {
		s.respondLedgerError(w, r, err)
		return
	}
	respondJSON(w, newPriceResponse(snapshot), http.StatusOK)
}

func (s *Server) setPaused(w http.ResponseWriter, r *http.Request, paused bool) {
	caller, ok := s.caller(w, r)
	if !ok {
		return
	}

	var err error
	if paused {
		err = s.ledger.Pause(r.Context(), caller)
	} else {
		err = s.ledger.Unpause(r.Context(), caller)
	}
	if err != nil {
		s.respondLedgerError(w, r, err)
		return
	}
	respondJSON(w, &PauseResponse{Paused: paused}, http.StatusOK)
}

func (s *Server) PostPause(w http.ResponseWriter, r *http.Request) {
	s.setPaused(w, r, true)
}

func (s *Server) PostUnpause(w http.ResponseWriter, r *http.Request) {
	s.setPaused(w, r, false)
}

func (s *Server) changeTrust(w http.ResponseWriter, r *http.Request, add bool) {
	caller, ok := s.caller(w, r)
	if !ok {
		return
	}
	var req TrustedEmitterRequest
	if !s.decode(w, r, &req) {
		return
	}
	emitter, _ := common.ParseIdentityOrAddress(req.Emitter)

	var changed bool
	var err error
	if add {
		changed, err = s.ledger.AddTrustedEmitter(r.Context(), caller, req.ChainID, emitter)
	} else {
		changed, err = s.ledger.RemoveTrustedEmitter(r.Context(), caller, req.ChainID, emitter)
	}
	if err != nil {
		s.respondLedgerError(w, r, err)
		return
	}
	respondJSON(w, &ChangedResponse{Changed: changed}, http.StatusOK)
}

func (s *Server) PostTrustedEmitter(w http.ResponseWriter, r *http.Request) {
	s.changeTrust(w, r, true)
}

func (s *Server) DeleteTrustedEmitter(w http.ResponseWriter, r *http.Request) {
	s.changeTrust(w, r, false)
}
