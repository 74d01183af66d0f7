package service

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// QliroClient creates checkout orders against the Qliro One merchant API.
type QliroClient struct {
	httpClient  *http.Client
	baseURL     string
	apiKey      string
	apiSecret   string
	callbackURL string
	logger      *zap.Logger
}

func NewQliroClient(baseURL, apiKey, apiSecret, callbackURL string, logger *zap.Logger) *QliroClient {
	return &QliroClient{
		httpClient:  &http.Client{Timeout: 10 * time.Second},
		baseURL:     baseURL,
		apiKey:      apiKey,
		apiSecret:   apiSecret,
		callbackURL: callbackURL,
		logger:      logger,
	}
}

type qliroOrderRequest struct {
	MerchantAPIKey             string           `json:"MerchantApiKey"`
	MerchantReference          string           `json:"MerchantReference"`
	Currency                   string           `json:"Currency"`
	Country                    string           `json:"Country"`
	Language                   string           `json:"Language"`
	MerchantOrderManagementURL string           `json:"MerchantOrderManagementStatusPushUrl"`
	OrderItems                 []qliroOrderItem `json:"OrderItems"`
}

type qliroOrderItem struct {
	MerchantReference  string `json:"MerchantReference"`
	Description        string `json:"Description"`
	Quantity           int    `json:"Quantity"`
	PricePerItemIncVat int    `json:"PricePerItemIncVat"`
}

type qliroOrderResponse struct {
	OrderID         string `json:"OrderId"`
	PaymentLink     string `json:"PaymentLink"`
	SnippetHTMLCode string `json:"OrderHtmlSnippet"`
}

// CreateCheckoutOrder registers an order and returns the hosted payment link.
func (c *QliroClient) CreateCheckoutOrder(ctx context.Context, merchantRef, description string, amount int) (string, string, error) {
	payload := qliroOrderRequest{
		MerchantAPIKey:             c.apiKey,
		MerchantReference:          merchantRef,
		Currency:                   "SEK",
		Country:                    "SE",
		Language:                   "sv-se",
		MerchantOrderManagementURL: c.callbackURL,
		OrderItems: []qliroOrderItem{{
			MerchantReference:  merchantRef,
			Description:        description,
			Quantity:           1,
			PricePerItemIncVat: amount,
		}},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/checkout/merchantapi/Orders", bytes.NewReader(body))
	if err != nil {
		return "", "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Qliro "+c.sign(body))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("qliro create order: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		c.logger.Warn("qliro rejected order",
			zap.String("merchant_ref", merchantRef),
			zap.Int("status", resp.StatusCode),
		)
		return "", "", fmt.Errorf("qliro returned status %d", resp.StatusCode)
	}

	var order qliroOrderResponse
	if err := json.NewDecoder(resp.Body).Decode(&order); err != nil {
		return "", "", fmt.Errorf("decode qliro order: %w", err)
	}
	return order.OrderID, order.PaymentLink, nil
}

// sign produces Qliro's payload signature: sha256 of body + secret, base64.
func (c *QliroClient) sign(body []byte) string {
	sum := sha256.Sum256(append(body, []byte(c.apiSecret)...))
	return base64.StdEncoding.EncodeToString(sum[:])
}
