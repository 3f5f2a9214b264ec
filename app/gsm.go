package app

import (
	"context"
	"fmt"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	gax "github.com/googleapis/gax-go/v2"
	log "github.com/sirupsen/logrus"
)

type SecretManagerClient interface {
	AccessSecretVersion(ctx context.Context, req *secretmanagerpb.AccessSecretVersionRequest, opts ...gax.CallOption) (*secretmanagerpb.AccessSecretVersionResponse, error)
	Close() error
}

var NewSecretManagerClient = func(ctx context.Context) (SecretManagerClient, error) {
	return secretmanager.NewClient(ctx)
}

func accessSecretVersion(client SecretManagerClient, name string) (string, error) {
	req := &secretmanagerpb.AccessSecretVersionRequest{
		Name: fmt.Sprintf("projects/%s/secrets/%s/versions/latest", Config.GoogleSecretManager.ProjectID, name),
	}

	result, err := client.AccessSecretVersion(context.Background(), req)
	if err != nil {
		return "", err
	}

	return string(result.Payload.Data), nil
}

func readSecretsFromGSM() {
	if !Config.GoogleSecretManager.Enabled {
		log.Debug("[GSM] Google Secret Manager is disabled")
		return
	}

	if Config.GoogleSecretManager.ProjectID == "" {
		log.Fatalf("[GSM] ProjectID is empty")
	}

	client, err := NewSecretManagerClient(context.Background())
	if err != nil {
		log.Fatalf("[GSM] Failed to create secretmanager client: %v", err)
	}
	defer client.Close()

	if Config.Signer.Mnemonic == "" && Config.Signer.GcpKmsKeyName == "" {
		if Config.GoogleSecretManager.MnemonicSecretName == "" {
			log.Fatalf("[GSM] Mnemonic secret name is empty")
		}

		log.Debug("[GSM] Reading signer mnemonic")
		Config.Signer.Mnemonic, err = accessSecretVersion(client, Config.GoogleSecretManager.MnemonicSecretName)
		if err != nil {
			log.Fatalf("[GSM] Failed to access signer mnemonic: %v", err)
		}
		log.Info("[GSM] Successfully read signer mnemonic")
	}

	if Config.MongoDB.URI == "" && Config.GoogleSecretManager.MongoSecretName != "" {
		log.Debug("[GSM] Reading mongodb uri")
		Config.MongoDB.URI, err = accessSecretVersion(client, Config.GoogleSecretManager.MongoSecretName)
		if err != nil {
			log.Fatalf("[GSM] Failed to access mongodb uri: %v", err)
		}
		log.Info("[GSM] Successfully read mongodb uri")
	}
}
