// Package extraction adapts document field extraction services.
package extraction

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/go-resty/resty/v2"

	"deedflow/internal/ports"
)

// Client calls a remote extraction service. The service accepts a multipart
// upload at POST /extract and answers with fields and a confidence.
type Client struct {
	client *resty.Client
}

type extractResponse struct {
	Fields     map[string]string `json:"fields"`
	Confidence float64           `json:"confidence"`
	Error      string            `json:"error,omitempty"`
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	client := resty.New()
	client.SetBaseURL(baseURL)
	client.SetTimeout(timeout)
	client.SetRetryCount(2)
	client.SetRetryWaitTime(200 * time.Millisecond)
	client.AddRetryCondition(func(r *resty.Response, err error) bool {
		return err != nil || r.StatusCode() >= 500
	})
	return &Client{client: client}
}

func (c *Client) Extract(ctx context.Context, req ports.ExtractionRequest) (ports.Extraction, error) {
	if len(req.Content) == 0 {
		return ports.Extraction{}, errors.New("extraction: empty file")
	}
	var out extractResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetFileReader("file", req.Filename, bytes.NewReader(req.Content)).
		SetFormData(map[string]string{"doc_type": string(req.DocType)}).
		SetResult(&out).
		SetError(&out).
		Post("/extract")
	if err != nil {
		return ports.Extraction{}, fmt.Errorf("extraction request: %w", err)
	}
	if resp.IsError() {
		return ports.Extraction{}, fmt.Errorf("extraction service returned %d: %s", resp.StatusCode(), out.Error)
	}
	conf := out.Confidence
	if conf < 0 {
		conf = 0
	}
	if conf > 1 {
		conf = 1
	}
	return ports.Extraction{Fields: complete(req.DocType, out.Fields), Confidence: conf}, nil
}

// Fallback tries Primary and answers from Secondary when it fails.
type Fallback struct {
	Primary   ports.Extractor
	Secondary ports.Extractor
}

func (f Fallback) Extract(ctx context.Context, req ports.ExtractionRequest) (ports.Extraction, error) {
	res, err := f.Primary.Extract(ctx, req)
	if err == nil {
		return res, nil
	}
	if ctx.Err() != nil {
		return ports.Extraction{}, err
	}
	log.Printf("extraction unavailable, using fallback: %v", err)
	return f.Secondary.Extract(ctx, req)
}

// New picks the remote client when baseURL is set, with the demo extractor
// as fallback; otherwise the demo extractor alone.
func New(baseURL string, timeout time.Duration) ports.Extractor {
	if baseURL == "" {
		return Demo{}
	}
	return Fallback{Primary: NewClient(baseURL, timeout), Secondary: Demo{}}
}
