package app

import (
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/dan13ram/bridge-ledger/models"
	"github.com/stretchr/testify/assert"
)

// MockRunner counts its runs and reports the count as its revision.
type MockRunner struct {
	mu   sync.Mutex
	runs int
}

func (m *MockRunner) Run() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs += 1
}

func (m *MockRunner) Status() models.RunnerStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return models.RunnerStatus{
		Revision: strconv.Itoa(m.runs),
		Detail:   "mock",
	}
}

func TestRunnerService(t *testing.T) {
	mockRunner := &MockRunner{}
	interval := 100 * time.Millisecond
	wg := &sync.WaitGroup{}
	service := NewRunnerService("TestService", mockRunner, wg, interval)
	wg.Add(1)

	go service.Start()

	time.Sleep(600 * time.Millisecond)

	service.Stop()
	wg.Wait()

	health := service.Health()
	assert.True(t, health.Healthy)
	assert.Equal(t, "TestService", health.Name)
	runs, err := strconv.Atoi(health.Revision)
	assert.NoError(t, err)
	assert.GreaterOrEqual(t, runs, 5)
	assert.Equal(t, "mock", health.Detail)
	assert.Equal(t, health.LastSyncTime.Add(interval), health.NextSyncTime)
}

func TestNewRunnerServiceInvalidParameters(t *testing.T) {
	wg := &sync.WaitGroup{}
	assert.Nil(t, NewRunnerService("", &MockRunner{}, wg, time.Second))
	assert.Nil(t, NewRunnerService("TestService", nil, wg, time.Second))
	assert.Nil(t, NewRunnerService("TestService", &MockRunner{}, nil, time.Second))
	assert.Nil(t, NewRunnerService("TestService", &MockRunner{}, wg, 0))
}

func TestRunnerServiceStop(t *testing.T) {
	wg := &sync.WaitGroup{}
	service := NewRunnerService("TestService", &MockRunner{}, wg, 100*time.Millisecond)

	done := make(chan bool)
	go func() {
		service.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop blocked without a running service")
	}
}
