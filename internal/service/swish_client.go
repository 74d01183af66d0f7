package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// SwishClient talks to the Swish commerce API. The gateway protocol is kept
// thin on purpose; the service only needs payment requests and their ids.
type SwishClient struct {
	httpClient  *http.Client
	baseURL     string
	payeeAlias  string
	callbackURL string
	logger      *zap.Logger
}

func NewSwishClient(baseURL, payeeAlias, callbackURL string, logger *zap.Logger) *SwishClient {
	return &SwishClient{
		httpClient:  &http.Client{Timeout: 10 * time.Second},
		baseURL:     baseURL,
		payeeAlias:  payeeAlias,
		callbackURL: callbackURL,
		logger:      logger,
	}
}

type swishPaymentRequest struct {
	PayeePaymentReference string `json:"payeePaymentReference"`
	CallbackURL           string `json:"callbackUrl"`
	PayeeAlias            string `json:"payeeAlias"`
	PayerAlias            string `json:"payerAlias,omitempty"`
	Amount                string `json:"amount"`
	Currency              string `json:"currency"`
	Message               string `json:"message"`
}

// CreatePaymentRequest registers a payment request and returns its token.
// amount is in öre; Swish wants whole SEK with decimals.
func (c *SwishClient) CreatePaymentRequest(ctx context.Context, merchantRef string, amount int, payerPhone, message string) (string, error) {
	payload := swishPaymentRequest{
		PayeePaymentReference: merchantRef,
		CallbackURL:           c.callbackURL,
		PayeeAlias:            c.payeeAlias,
		PayerAlias:            payerPhone,
		Amount:                fmt.Sprintf("%d.%02d", amount/100, amount%100),
		Currency:              "SEK",
		Message:               message,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/paymentrequests", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("swish payment request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		c.logger.Warn("swish rejected payment request",
			zap.String("merchant_ref", merchantRef),
			zap.Int("status", resp.StatusCode),
		)
		return "", fmt.Errorf("swish returned status %d", resp.StatusCode)
	}

	// The payment request id comes back in the Location header.
	location := resp.Header.Get("Location")
	token := resp.Header.Get("PaymentRequestToken")
	if token == "" {
		token = location
	}
	return token, nil
}
