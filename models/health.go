package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	CollectionHealthChecks = "healthchecks"
)

type Health struct {
	Id             *primitive.ObjectID `bson:"_id,omitempty"`
	Ledger         string              `bson:"ledger"`
	Authority      string              `bson:"authority"`
	SignerAddress  string              `bson:"signer_address"`
	Hostname       string              `bson:"hostname"`
	Healthy        bool                `bson:"healthy"`
	ServiceHealths []ServiceHealth     `bson:"service_healths"`
	CreatedAt      time.Time           `bson:"created_at"`
	UpdatedAt      time.Time           `bson:"updated_at"`
}
