package oracle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cockroachdb/apd/v3"
	log "github.com/sirupsen/logrus"

	"github.com/dan13ram/bridge-ledger/models"
)

// PriceExponent is the fixed point scale of every price handed to the
// ledger: a stored price p means p * 10^PriceExponent.
const PriceExponent int32 = -8

const latestPricePath = "/v2/updates/price/latest"

var (
	ErrPriceNotFound = errors.New("price feed not found in response")
	ErrPriceRange    = errors.New("price out of range")
)

var decimalContext = func() *apd.Context {
	c := apd.BaseContext.WithPrecision(40)
	c.Rounding = apd.RoundDown
	return c
}()

type hermesPrice struct {
	Price       string `json:"price"`
	Conf        string `json:"conf"`
	Expo        int32  `json:"expo"`
	PublishTime int64  `json:"publish_time"`
}

type hermesParsedUpdate struct {
	ID    string      `json:"id"`
	Price hermesPrice `json:"price"`
}

type hermesLatestResponse struct {
	Parsed []hermesParsedUpdate `json:"parsed"`
}

// HermesClient reads the latest price of one feed from a Pyth Hermes endpoint.
type HermesClient struct {
	baseURL string
	priceID string
	client  *http.Client
}

func NewHermesClient(baseURL string, priceID string, timeout time.Duration) *HermesClient {
	return &HermesClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		priceID: normalizeID(priceID),
		client:  &http.Client{Timeout: timeout},
	}
}

func normalizeID(id string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(id), "0x"))
}

func (c *HermesClient) PriceID() string {
	return c.priceID
}

func (c *HermesClient) latestURL() string {
	query := url.Values{}
	query.Add("ids[]", c.priceID)
	query.Set("parsed", "true")
	return c.baseURL + latestPricePath + "?" + query.Encode()
}

// LatestPrice fetches the feed and converts it to ledger units.
func (c *HermesClient) LatestPrice(ctx context.Context) (models.PriceReading, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.latestURL(), nil)
	if err != nil {
		return models.PriceReading{}, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return models.PriceReading{}, fmt.Errorf("error requesting price: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return models.PriceReading{}, fmt.Errorf("error reading price response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return models.PriceReading{}, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var latest hermesLatestResponse
	if err := json.Unmarshal(body, &latest); err != nil {
		return models.PriceReading{}, fmt.Errorf("error decoding price response: %w", err)
	}

	for _, update := range latest.Parsed {
		if normalizeID(update.ID) != c.priceID {
			continue
		}
		log.Debug("[ORACLE] Hermes price ", update.Price.Price, "e", update.Price.Expo, " published at ", update.Price.PublishTime)
		return toReading(update.Price)
	}
	return models.PriceReading{}, fmt.Errorf("%w: %s", ErrPriceNotFound, c.priceID)
}

func toReading(p hermesPrice) (models.PriceReading, error) {
	price, err := ToLedgerUnits(p.Price, p.Expo)
	if err != nil {
		return models.PriceReading{}, fmt.Errorf("price: %w", err)
	}
	confidence, err := ToLedgerUnits(p.Conf, p.Expo)
	if err != nil {
		return models.PriceReading{}, fmt.Errorf("confidence: %w", err)
	}
	if confidence < 0 {
		return models.PriceReading{}, fmt.Errorf("confidence: %w", ErrPriceRange)
	}

	var publishTime time.Time
	if p.PublishTime > 0 {
		publishTime = time.Unix(p.PublishTime, 0)
	}

	return models.PriceReading{
		Price:       price,
		Confidence:  uint64(confidence),
		Exponent:    PriceExponent,
		PublishTime: publishTime,
		// hermes only serves feeds that are currently trading
		Trading: true,
	}, nil
}

// ToLedgerUnits rescales value * 10^expo to PriceExponent, truncating any
// extra precision.
func ToLedgerUnits(value string, expo int32) (int64, error) {
	d, _, err := apd.NewFromString(value)
	if err != nil {
		return 0, err
	}
	d.Exponent += expo - PriceExponent

	var truncated apd.Decimal
	if _, err := decimalContext.RoundToIntegralValue(&truncated, d); err != nil {
		return 0, err
	}
	units, err := truncated.Int64()
	if err != nil {
		return 0, fmt.Errorf("%w: %s", ErrPriceRange, err)
	}
	return units, nil
}

// FormatPrice renders ledger units as a plain decimal string.
func FormatPrice(units uint64) string {
	var d apd.Decimal
	d.Coeff.SetUint64(units)
	d.Exponent = PriceExponent
	var reduced apd.Decimal
	reduced.Reduce(&d)
	return reduced.Text('f')
}
