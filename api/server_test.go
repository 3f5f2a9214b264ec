package api

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/dan13ram/bridge-ledger/app"
	"github.com/dan13ram/bridge-ledger/models"
)

func TestNewAPIService(t *testing.T) {
	t.Run("Disabled", func(t *testing.T) {
		app.Config = models.Config{}
		service := NewAPIService(new(MockLedger), &sync.WaitGroup{})
		assert.IsType(t, &models.EmptyService{}, service)
	})

	t.Run("Enabled", func(t *testing.T) {
		app.Config = models.Config{}
		app.Config.API = models.APIConfig{Enabled: true, ListenAddress: "127.0.0.1:0", MaxRequestAgeSecs: 60}

		service := NewAPIService(new(MockLedger), &sync.WaitGroup{})
		assert.IsType(t, &APIService{}, service)

		health := service.Health()
		assert.Equal(t, APIServiceName, health.Name)
		assert.True(t, health.Healthy)
		assert.Equal(t, "listening on 127.0.0.1:0", health.Detail)
	})
}

func TestAPIServiceStartStop(t *testing.T) {
	app.Config = models.Config{}
	app.Config.API = models.APIConfig{Enabled: true, ListenAddress: "127.0.0.1:0", MaxRequestAgeSecs: 60}

	var wg sync.WaitGroup
	wg.Add(1)
	service := NewAPIService(new(MockLedger), &wg)

	done := make(chan struct{})
	go func() {
		service.Start()
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	service.Stop()
	wg.Wait()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("server did not stop")
	}
	assert.True(t, service.Health().Healthy)
}

func TestAPIServiceListenError(t *testing.T) {
	app.Config = models.Config{}
	app.Config.API = models.APIConfig{Enabled: true, ListenAddress: "256.0.0.1:bad"}

	service := NewAPIService(new(MockLedger), &sync.WaitGroup{})
	service.Start()

	health := service.Health()
	assert.False(t, health.Healthy)
	assert.NotEqual(t, "listening on 256.0.0.1:bad", health.Detail)
}
