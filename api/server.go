package api

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/dan13ram/bridge-ledger/app"
	"github.com/dan13ram/bridge-ledger/common"
	"github.com/dan13ram/bridge-ledger/ledger"
	"github.com/dan13ram/bridge-ledger/models"
)

const (
	APIServiceName = "API"

	shutdownTimeout = 5 * time.Second
)

type Ledger interface {
	State(ctx context.Context) (*models.LedgerState, error)
	RemainingDailyBurn(ctx context.Context) (uint64, error)
	CurrentPrice(ctx context.Context) (models.PriceSnapshot, error)
	Burn(ctx context.Context, caller models.Identity, amount uint64, targetChain uint16, recipient models.Identity, nonce uint32) (*ledger.BurnReceipt, error)
	RefreshPrice(ctx context.Context, reading models.PriceReading) (models.PriceSnapshot, error)
	Pause(ctx context.Context, caller models.Identity) error
	Unpause(ctx context.Context, caller models.Identity) error
	AddTrustedEmitter(ctx context.Context, caller models.Identity, chainID uint16, emitter models.Identity) (bool, error)
	RemoveTrustedEmitter(ctx context.Context, caller models.Identity, chainID uint16, emitter models.Identity) (bool, error)
}

type Server struct {
	ledger        Ledger
	validate      *validator.Validate
	maxRequestAge time.Duration
	nonces        NonceStore
	now           func() time.Time
}

func NewServer(l Ledger, maxRequestAge time.Duration, nonces NonceStore) *Server {
	validate := validator.New()
	validate.RegisterValidation("identity", func(fl validator.FieldLevel) bool {
		_, err := common.ParseIdentityOrAddress(fl.Field().String())
		return err == nil
	})

	return &Server{
		ledger:        l,
		validate:      validate,
		maxRequestAge: maxRequestAge,
		nonces:        nonces,
		now:           time.Now,
	}
}

// requestID tags every request with a uuid, keeping one supplied by the client.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(middleware.RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(middleware.RequestIDHeader, id)
		ctx := context.WithValue(r.Context(), middleware.RequestIDKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		log.WithFields(log.Fields{
			"request_id": middleware.GetReqID(r.Context()),
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     ww.Status(),
			"duration":   time.Since(start),
		}).Debug("[API] Served request")
	})
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/state", s.GetState)
	r.Get("/burn/remaining", s.GetRemainingBurn)
	r.Get("/price", s.GetPrice)

	r.Group(func(r chi.Router) {
		r.Use(s.authenticate)

		r.Post("/burn", s.PostBurn)
		r.Post("/price", s.PostPrice)

		r.Route("/admin", func(r chi.Router) {
			r.Post("/pause", s.PostPause)
			r.Post("/unpause", s.PostUnpause)
			r.Post("/trusted-emitters", s.PostTrustedEmitter)
			r.Delete("/trusted-emitters", s.DeleteTrustedEmitter)
		})
	})

	return r
}

// APIService runs the http server as a service next to the runners.
type APIService struct {
	server *http.Server
	wg     *sync.WaitGroup

	mu      sync.RWMutex
	started time.Time
	err     error
}

var _ models.Service = &APIService{}

func (x *APIService) Start() {
	log.Info("[API] Listening on ", x.server.Addr)
	x.mu.Lock()
	x.started = time.Now()
	x.mu.Unlock()

	if err := x.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("[API] Error listening: ", err)
		x.mu.Lock()
		x.err = err
		x.mu.Unlock()
	}
}

func (x *APIService) Health() models.ServiceHealth {
	x.mu.RLock()
	defer x.mu.RUnlock()

	health := models.ServiceHealth{
		Name:         APIServiceName,
		LastSyncTime: x.started,
		NextSyncTime: x.started,
		Detail:       "listening on " + x.server.Addr,
		Healthy:      x.err == nil,
	}
	if x.err != nil {
		health.Detail = x.err.Error()
	}
	return health
}

func (x *APIService) Stop() {
	log.Debug("[API] Stopping server")
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := x.server.Shutdown(ctx); err != nil {
		log.Error("[API] Error shutting down: ", err)
	}
	log.Info("[API] Stopped server")
	x.wg.Done()
}

func NewAPIService(l Ledger, wg *sync.WaitGroup) models.Service {
	if !app.Config.API.Enabled {
		log.Debug("[API] API disabled")
		return models.NewEmptyService(wg)
	}

	s := NewServer(l, time.Duration(app.Config.API.MaxRequestAgeSecs)*time.Second, app.NewMongoNonceStore(app.Config.Ledger.Name))

	log.Info("[API] Initialized api")

	return &APIService{
		server: &http.Server{
			Addr:              app.Config.API.ListenAddress,
			Handler:           s.Router(),
			ReadHeaderTimeout: 10 * time.Second,
		},
		wg: wg,
	}
}
