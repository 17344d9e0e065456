package external

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/medreport-server/internal/domain"
)

// OCRClient extracts text from patient documents via a Textract-style
// document analysis endpoint.
type OCRClient struct {
	baseURL    string
	apiKey     string
	region     string
	httpClient *http.Client
}

// NewOCRClient creates a document OCR client.
func NewOCRClient(config domain.OCRConfig) *OCRClient {
	if config.Timeout == 0 {
		config.Timeout = 60 * time.Second
	}
	if config.Region == "" {
		config.Region = "us-east-1"
	}

	return &OCRClient{
		baseURL: config.BaseURL,
		apiKey:  config.APIKey,
		region:  config.Region,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

type ocrRequest struct {
	Document struct {
		Bytes string `json:"Bytes"`
	} `json:"Document"`
}

type ocrResponse struct {
	Blocks []struct {
		BlockType string `json:"BlockType"`
		Text      string `json:"Text"`
	} `json:"Blocks"`
}

// ExtractText runs text detection on the document and concatenates the
// detected lines in reading order.
func (c *OCRClient) ExtractText(ctx context.Context, document []byte, filename string) (string, error) {
	if len(document) == 0 {
		return "", fmt.Errorf("empty document payload")
	}

	var reqBody ocrRequest
	reqBody.Document.Bytes = base64.StdEncoding.EncodeToString(document)

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to encode OCR request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create OCR request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-amz-json-1.1")
	req.Header.Set("X-Amz-Target", "Textract.DetectDocumentText")
	req.Header.Set("Authorization", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("OCR request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read OCR response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", &HTTPError{Service: "ocr", StatusCode: resp.StatusCode, Body: string(body)}
	}

	var result ocrResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("failed to decode OCR response: %w", err)
	}

	var lines []string
	for _, block := range result.Blocks {
		if block.BlockType == "LINE" && block.Text != "" {
			lines = append(lines, block.Text)
		}
	}

	return strings.Join(lines, "\n"), nil
}

// Ping checks reachability of the OCR host.
func (c *OCRClient) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/", nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("ocr ping failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("ocr unhealthy: status %d", resp.StatusCode)
	}
	return nil
}
