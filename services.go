package main

import (
	"sync"

	"github.com/dan13ram/bridge-ledger/api"
	"github.com/dan13ram/bridge-ledger/ledger"
	"github.com/dan13ram/bridge-ledger/models"
	"github.com/dan13ram/bridge-ledger/oracle"
	"github.com/dan13ram/bridge-ledger/relay"
)

func CreateService(
	wg *sync.WaitGroup,
	serviceName string,
	serviceHealthMap map[string]models.ServiceHealth,
	createService func(*sync.WaitGroup) models.Service,
	createServiceWithLastHealth func(*sync.WaitGroup, models.ServiceHealth) models.Service,
) models.Service {
	serviceHealth, ok := serviceHealthMap[serviceName]
	if ok && createServiceWithLastHealth != nil {
		return createServiceWithLastHealth(wg, serviceHealth)
	}
	return createService(wg)
}

type ServiceFactory struct {
	CreateService               func(*sync.WaitGroup) models.Service
	CreateServiceWithLastHealth func(*sync.WaitGroup, models.ServiceHealth) models.Service
}

func GetServiceFactories(l *ledger.BridgeLedger) map[string]ServiceFactory {
	services := map[string]ServiceFactory{
		relay.InboundRelayName: {
			CreateService: func(wg *sync.WaitGroup) models.Service {
				return relay.NewInboundRelayService(l, wg, models.ServiceHealth{})
			},
			CreateServiceWithLastHealth: func(wg *sync.WaitGroup, lastHealth models.ServiceHealth) models.Service {
				return relay.NewInboundRelayService(l, wg, lastHealth)
			},
		},
		oracle.PriceRefresherName: {
			CreateService: func(wg *sync.WaitGroup) models.Service {
				return oracle.NewPriceRefresherService(l, wg)
			},
		},
		api.APIServiceName: {
			CreateService: func(wg *sync.WaitGroup) models.Service {
				return api.NewAPIService(l, wg)
			},
		},
	}

	return services
}
