package docgen

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

// Renderer produces the rendered agreement document for a room's current
// terms. The generation service itself is a separate system; this is its
// client contract.
type Renderer interface {
	RenderAgreement(ctx context.Context, req RenderRequest) ([]byte, error)
	ArchiveSigned(ctx context.Context, agreementID int64, pdf []byte) (string, error)
}

type RenderRequest struct {
	DealID      int64       `json:"deal_id"`
	RoomID      int64       `json:"room_id"`
	AgreementID int64       `json:"agreement_id"`
	Terms       model.Terms `json:"terms"`
}

type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

// RenderAgreement asks the generation service for the agreement PDF.
func (c *Client) RenderAgreement(ctx context.Context, renderReq RenderRequest) ([]byte, error) {
	payload, err := json.Marshal(renderReq)
	if err != nil {
		return nil, fmt.Errorf("encoding render request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/agreements/render", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("building render request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("render request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("render failed: status %d: %s", resp.StatusCode, snippet)
	}

	return io.ReadAll(resp.Body)
}

// ArchiveSigned stores the fully signed combined document and returns its
// durable URL. Called at most once per agreement, guarded by the absence of
// a recorded URL.
func (c *Client) ArchiveSigned(ctx context.Context, agreementID int64, pdf []byte) (string, error) {
	url := fmt.Sprintf("%s/v1/agreements/%d/signed", c.baseURL, agreementID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(pdf))
	if err != nil {
		return "", fmt.Errorf("building archive request: %w", err)
	}
	req.Header.Set("Content-Type", "application/pdf")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("archive request: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("archive failed: status %d: %s", resp.StatusCode, body)
	}

	var out struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("decoding archive response: %w", err)
	}
	return out.URL, nil
}
