package app

import (
	"sync"
	"time"

	"github.com/dan13ram/bridge-ledger/models"
	log "github.com/sirupsen/logrus"
)

type Runner interface {
	Run()
	Status() models.RunnerStatus
}

// RunnerService calls Run on a fixed interval until stopped.
type RunnerService struct {
	name     string
	runner   Runner
	interval time.Duration
	stop     chan bool
	wg       *sync.WaitGroup

	healthMu     sync.RWMutex
	lastSyncTime time.Time
	nextSyncTime time.Time
	status       models.RunnerStatus
}

var _ models.Service = &RunnerService{}

func (x *RunnerService) Start() {
	log.Infof("[%s] Starting service", x.name)
	stop := false
	for !stop {
		log.Debugf("[%s] Starting run", x.name)
		x.runner.Run()
		x.updateHealth()
		log.Debugf("[%s] Finished run, sleeping for %v", x.name, x.interval)

		select {
		case <-x.stop:
			stop = true
			log.Infof("[%s] Stopped service", x.name)
		case <-time.After(x.interval):
		}
	}
	x.wg.Done()
}

func (x *RunnerService) updateHealth() {
	status := x.runner.Status()

	x.healthMu.Lock()
	defer x.healthMu.Unlock()
	x.lastSyncTime = time.Now()
	x.nextSyncTime = x.lastSyncTime.Add(x.interval)
	x.status = status
}

func (x *RunnerService) Health() models.ServiceHealth {
	x.healthMu.RLock()
	defer x.healthMu.RUnlock()

	return models.ServiceHealth{
		Name:         x.name,
		LastSyncTime: x.lastSyncTime,
		NextSyncTime: x.nextSyncTime,
		Revision:     x.status.Revision,
		Detail:       x.status.Detail,
		Healthy:      true,
	}
}

func (x *RunnerService) Stop() {
	log.Debugf("[%s] Stopping service", x.name)
	select {
	case x.stop <- true:
	default:
	}
}

func NewRunnerService(
	name string,
	runner Runner,
	wg *sync.WaitGroup,
	interval time.Duration,
) *RunnerService {
	if name == "" || runner == nil || wg == nil || interval <= 0 {
		log.Errorf("[RUNNER] Invalid parameters for service %q", name)
		return nil
	}

	return &RunnerService{
		name:     name,
		runner:   runner,
		interval: interval,
		stop:     make(chan bool, 1),
		wg:       wg,
	}
}
