package esign

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"parlay.app/coordinator/internal/model"
)

// ConnectionSource supplies a live provider connection (token refreshed as
// needed). Implemented by the connection manager; faked in tests.
type ConnectionSource interface {
	GetConnection(ctx context.Context) (*model.ProviderConnection, error)
}

// Client is the signing provider's envelope REST API. All calls authenticate
// with the bearer token from the connection source. Read-style calls retry
// per the injected policy; envelope creation never retries blindly because it
// is not idempotent.
type Client struct {
	connections ConnectionSource
	retry       RetryPolicy
	httpClient  *http.Client
}

func NewClient(connections ConnectionSource, retry RetryPolicy) *Client {
	return &Client{
		connections: connections,
		retry:       retry,
		httpClient:  &http.Client{Timeout: 60 * time.Second},
	}
}

// CreateEnvelope sends a new envelope to the provider. Called at most once
// per agreement generation; callers must check for an existing envelope id
// before calling and must not retry on ambiguous failure.
func (c *Client) CreateEnvelope(ctx context.Context, env EnvelopeDefinition) (*EnvelopeSummary, error) {
	var summary EnvelopeSummary
	if err := c.do(ctx, http.MethodPost, "/envelopes", env, &summary); err != nil {
		return nil, err
	}
	return &summary, nil
}

func (c *Client) GetEnvelope(ctx context.Context, envelopeID string) (*EnvelopeSummary, error) {
	var summary EnvelopeSummary
	err := c.retry.Do(ctx, func() error {
		return c.do(ctx, http.MethodGet, "/envelopes/"+envelopeID, nil, &summary)
	})
	if err != nil {
		return nil, err
	}
	return &summary, nil
}

func (c *Client) ListRecipients(ctx context.Context, envelopeID string) (*RecipientsResponse, error) {
	var recipients RecipientsResponse
	err := c.retry.Do(ctx, func() error {
		return c.do(ctx, http.MethodGet, "/envelopes/"+envelopeID+"/recipients", nil, &recipients)
	})
	if err != nil {
		return nil, err
	}
	return &recipients, nil
}

func (c *Client) DeleteRecipient(ctx context.Context, envelopeID, recipientID string) error {
	body := map[string]any{
		"signers": []map[string]string{{"recipientId": recipientID}},
	}
	return c.do(ctx, http.MethodDelete, "/envelopes/"+envelopeID+"/recipients", body, nil)
}

func (c *Client) AddRecipient(ctx context.Context, envelopeID string, signer Signer) error {
	body := Recipients{Signers: []Signer{signer}}
	return c.do(ctx, http.MethodPost, "/envelopes/"+envelopeID+"/recipients", body, nil)
}

// CreateRecipientView requests an embedded signing session URL for the signer
// identified by the view request's email/name/clientUserId triple.
func (c *Client) CreateRecipientView(ctx context.Context, envelopeID string, view RecipientViewRequest) (string, error) {
	var resp recipientViewResponse
	if err := c.do(ctx, http.MethodPost, "/envelopes/"+envelopeID+"/views/recipient", view, &resp); err != nil {
		return "", err
	}
	return resp.URL, nil
}

// GetCombinedDocument downloads the combined signed PDF for an envelope.
func (c *Client) GetCombinedDocument(ctx context.Context, envelopeID string) ([]byte, error) {
	var pdf []byte
	err := c.retry.Do(ctx, func() error {
		conn, err := c.connections.GetConnection(ctx)
		if err != nil {
			return err
		}

		url := accountBase(conn) + "/envelopes/" + envelopeID + "/documents/combined"
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return fmt.Errorf("building request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+conn.AccessToken)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("combined document request: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			return &UpstreamError{StatusCode: resp.StatusCode, Operation: "combined document", Body: string(snippet)}
		}

		pdf, err = io.ReadAll(resp.Body)
		return err
	})
	if err != nil {
		return nil, err
	}
	return pdf, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	conn, err := c.connections.GetConnection(ctx)
	if err != nil {
		return err
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, accountBase(conn)+path, reader)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+conn.AccessToken)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &UpstreamError{StatusCode: resp.StatusCode, Operation: method + " " + path, Body: string(raw)}
	}

	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("decoding %s %s response: %w", method, path, err)
		}
	}
	return nil
}

func accountBase(conn *model.ProviderConnection) string {
	return strings.TrimRight(conn.BaseURI, "/") + "/restapi/v2.1/accounts/" + conn.AccountID
}
