package app

import (
	"context"
	"errors"
	"testing"

	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	gax "github.com/googleapis/gax-go/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/dan13ram/bridge-ledger/models"
)

type MockSecretManagerClient struct {
	mock.Mock
}

func (m *MockSecretManagerClient) AccessSecretVersion(ctx context.Context, req *secretmanagerpb.AccessSecretVersionRequest, opts ...gax.CallOption) (*secretmanagerpb.AccessSecretVersionResponse, error) {
	args := m.Called(req.Name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*secretmanagerpb.AccessSecretVersionResponse), args.Error(1)
}

func (m *MockSecretManagerClient) Close() error {
	return nil
}

func withSecretManagerClient(t *testing.T, client SecretManagerClient) {
	original := NewSecretManagerClient
	NewSecretManagerClient = func(ctx context.Context) (SecretManagerClient, error) {
		return client, nil
	}
	t.Cleanup(func() { NewSecretManagerClient = original })
}

func secret(value string) *secretmanagerpb.AccessSecretVersionResponse {
	return &secretmanagerpb.AccessSecretVersionResponse{
		Payload: &secretmanagerpb.SecretPayload{Data: []byte(value)},
	}
}

func TestReadSecretsFromGSM(t *testing.T) {
	t.Run("Disabled", func(t *testing.T) {
		Config = models.Config{}
		readSecretsFromGSM()
		assert.Equal(t, "", Config.Signer.Mnemonic)
	})

	t.Run("Reads Mnemonic And Mongo URI", func(t *testing.T) {
		client := new(MockSecretManagerClient)
		client.On("AccessSecretVersion", "projects/project/secrets/mnemonic/versions/latest").Return(secret(testMnemonic), nil)
		client.On("AccessSecretVersion", "projects/project/secrets/mongo/versions/latest").Return(secret("mongodb://secret"), nil)
		withSecretManagerClient(t, client)

		Config = models.Config{}
		Config.GoogleSecretManager = models.GoogleSecretManagerConfig{
			Enabled:            true,
			ProjectID:          "project",
			MnemonicSecretName: "mnemonic",
			MongoSecretName:    "mongo",
		}

		readSecretsFromGSM()

		assert.Equal(t, testMnemonic, Config.Signer.Mnemonic)
		assert.Equal(t, "mongodb://secret", Config.MongoDB.URI)
		client.AssertExpectations(t)
	})

	t.Run("Skips Mnemonic With KMS Key", func(t *testing.T) {
		client := new(MockSecretManagerClient)
		withSecretManagerClient(t, client)

		Config = models.Config{}
		Config.GoogleSecretManager = models.GoogleSecretManagerConfig{Enabled: true, ProjectID: "project"}
		Config.Signer.GcpKmsKeyName = "key"
		Config.MongoDB.URI = "mongodb://local"

		readSecretsFromGSM()

		assert.Equal(t, "", Config.Signer.Mnemonic)
		client.AssertNotCalled(t, "AccessSecretVersion", mock.Anything)
	})

	t.Run("Access Error", func(t *testing.T) {
		client := new(MockSecretManagerClient)
		client.On("AccessSecretVersion", mock.Anything).Return(nil, errors.New("denied"))
		withSecretManagerClient(t, client)

		Config = models.Config{}
		Config.GoogleSecretManager = models.GoogleSecretManagerConfig{Enabled: true, ProjectID: "project", MnemonicSecretName: "mnemonic"}

		expectFatal(t, readSecretsFromGSM)
	})

	t.Run("Missing Project", func(t *testing.T) {
		Config = models.Config{}
		Config.GoogleSecretManager.Enabled = true

		expectFatal(t, readSecretsFromGSM)
	})
}
