package app

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/dan13ram/bridge-ledger/models"
	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
)

const HealthServiceName = "HEALTH"

type HealthCheckRunner struct {
	ledger        string
	authority     string
	signerAddress string
	hostname      string

	services []models.Service
	mu       sync.RWMutex
	healthy  int
}

func (x *HealthCheckRunner) Run() {
	x.PostHealth()
}

func (x *HealthCheckRunner) Status() models.RunnerStatus {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return models.RunnerStatus{
		Detail: fmt.Sprintf("%d/%d services healthy", x.healthy, len(x.ServiceHealths())),
	}
}

func (x *HealthCheckRunner) filter() bson.M {
	return bson.M{
		"ledger":   x.ledger,
		"hostname": x.hostname,
	}
}

func (x *HealthCheckRunner) FindLastHealth() (models.Health, error) {
	var health models.Health
	err := DB.FindOne(models.CollectionHealthChecks, x.filter(), &health)
	return health, err
}

func (x *HealthCheckRunner) SetServices(services []models.Service) {
	x.services = services
}

// ServiceHealths skips placeholder services of disabled components.
func (x *HealthCheckRunner) ServiceHealths() []models.ServiceHealth {
	var serviceHealths []models.ServiceHealth
	for _, service := range x.services {
		health := service.Health()
		if health.Name == models.EmptyServiceName {
			continue
		}
		serviceHealths = append(serviceHealths, health)
	}
	return serviceHealths
}

func (x *HealthCheckRunner) PostHealth() bool {
	log.Debug("[HEALTH] Posting health")

	serviceHealths := x.ServiceHealths()
	healthy := 0
	for _, h := range serviceHealths {
		if h.Healthy {
			healthy++
		}
	}

	x.mu.Lock()
	x.healthy = healthy
	x.mu.Unlock()

	onInsert := bson.M{
		"ledger":         x.ledger,
		"authority":      x.authority,
		"signer_address": x.signerAddress,
		"hostname":       x.hostname,
		"created_at":     time.Now(),
	}

	onUpdate := bson.M{
		"healthy":         healthy == len(serviceHealths),
		"service_healths": serviceHealths,
		"updated_at":      time.Now(),
	}

	update := bson.M{"$set": onUpdate, "$setOnInsert": onInsert}

	if _, err := DB.UpsertOne(models.CollectionHealthChecks, x.filter(), update); err != nil {
		log.Error("[HEALTH] Error posting health: ", err)
		return false
	}

	log.Debug("[HEALTH] Posted health")
	return true
}

func NewHealthCheck(ledger string, authority string, signerAddress string) *HealthCheckRunner {
	log.Debug("[HEALTH] Initializing health")

	hostname, err := os.Hostname()
	if err != nil {
		log.Fatal("[HEALTH] Error getting hostname: ", err)
	}

	x := &HealthCheckRunner{
		ledger:        ledger,
		authority:     authority,
		signerAddress: signerAddress,
		hostname:      hostname,
	}

	log.Info("[HEALTH] Initialized health")
	return x
}

func NewHealthService(x *HealthCheckRunner, wg *sync.WaitGroup) models.Service {
	return NewRunnerService(HealthServiceName, x, wg, time.Duration(Config.HealthCheck.IntervalMillis)*time.Millisecond)
}
