package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/dan13ram/bridge-ledger/api"
	"github.com/dan13ram/bridge-ledger/common"
)

func main() {
	var mnemonic, keyName, url, method, path, body string
	flag.StringVar(&mnemonic, "mnemonic", os.Getenv("SIGNER_MNEMONIC"), "mnemonic of the signing key")
	flag.StringVar(&keyName, "kms-key", os.Getenv("SIGNER_GCP_KMS_KEY_NAME"), "GCP KMS key version name of the signing key")
	flag.StringVar(&url, "url", "", "api base url, e.g. http://localhost:8080")
	flag.StringVar(&method, "method", http.MethodPost, "http method of the signed request")
	flag.StringVar(&path, "path", "", "api path of the signed request, e.g. /admin/pause")
	flag.StringVar(&body, "body", "", "json body of the signed request")
	flag.Parse()

	var signer common.Signer
	var err error
	switch {
	case keyName != "":
		fmt.Println("GCP KMS Key Name: ", keyName)
		signer, err = common.NewGcpKmsSigner(context.Background(), keyName)
	case mnemonic != "":
		signer, err = common.NewMnemonicSigner(mnemonic)
	default:
		log.Fatalf("one of --mnemonic or --kms-key is required")
	}
	if err != nil {
		log.Fatalf("failed to create signer: %v", err)
	}
	defer signer.Destroy()

	fmt.Println("Eth Address: ", signer.EthAddress())
	fmt.Println("Identity: ", common.IdentityFromAddress(signer.EthAddress()).Hex())

	if url == "" || path == "" {
		return
	}

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(strings.ToUpper(method), strings.TrimSuffix(url, "/")+path, reader)
	if err != nil {
		log.Fatalf("failed to build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if err := api.SignRequest(req, signer, time.Now()); err != nil {
		log.Fatalf("failed to sign request: %v", err)
	}

	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		log.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	out, _ := io.ReadAll(resp.Body)
	fmt.Println("Status: ", resp.Status)
	fmt.Println(string(out))
}
