package imagesynth

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/yungbote/archsheet-backend/internal/platform/envutil"
	"github.com/yungbote/archsheet-backend/internal/platform/httpx"
	"github.com/yungbote/archsheet-backend/internal/platform/logger"
)

type httpClient struct {
	log        *logger.Logger
	baseURL    string
	apiKey     string
	model      string
	client     *http.Client
	maxRetries int
}

// NewHTTPClient builds a client for a seed-pinning render endpoint.
// Configuration is taken from IMAGESYNTH_* environment variables.
func NewHTTPClient(log *logger.Logger) (Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}

	baseURL := strings.TrimRight(envutil.Str("IMAGESYNTH_BASE_URL", ""), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("missing IMAGESYNTH_BASE_URL")
	}
	apiKey := envutil.Str("IMAGESYNTH_API_KEY", "")
	if apiKey == "" {
		return nil, fmt.Errorf("missing IMAGESYNTH_API_KEY")
	}

	timeoutSec := envutil.Int("IMAGESYNTH_TIMEOUT_SECONDS", 120)
	if timeoutSec <= 0 {
		timeoutSec = 120
	}
	maxRetries := envutil.Int("IMAGESYNTH_MAX_RETRIES", 3)
	if maxRetries < 0 {
		maxRetries = 0
	}

	return &httpClient{
		log:        log.With("service", "ImageSynthClient"),
		baseURL:    baseURL,
		apiKey:     apiKey,
		model:      envutil.Str("IMAGESYNTH_MODEL", "sheet-diffusion-1"),
		client:     &http.Client{Timeout: time.Duration(timeoutSec) * time.Second},
		maxRetries: maxRetries,
	}, nil
}

type synthHTTPError struct {
	StatusCode int
	Body       string
}

func (e *synthHTTPError) Error() string {
	return fmt.Sprintf("imagesynth http %d: %s", e.StatusCode, e.Body)
}

func (e *synthHTTPError) HTTPStatusCode() int {
	if e == nil {
		return 0
	}
	return e.StatusCode
}

type generationRequest struct {
	Model          string `json:"model"`
	Prompt         string `json:"prompt"`
	NegativePrompt string `json:"negative_prompt,omitempty"`
	Control        string `json:"control,omitempty"`
	Seed           int64  `json:"seed"`
	Width          int    `json:"width,omitempty"`
	Height         int    `json:"height,omitempty"`
	N              int    `json:"n"`
}

type generationResponse struct {
	Data []struct {
		B64JSON string `json:"b64_json"`
		Seed    int64  `json:"seed"`
	} `json:"data"`
}

func (c *httpClient) Generate(ctx context.Context, req Request) (Result, error) {
	var out Result
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return out, errors.New("render prompt required")
	}

	body := generationRequest{
		Model:          c.model,
		Prompt:         prompt,
		NegativePrompt: strings.TrimSpace(req.NegativePrompt),
		Control:        strings.TrimSpace(req.LockInstruction),
		Seed:           req.Seed,
		Width:          req.Width,
		Height:         req.Height,
		N:              1,
	}

	var resp generationResponse
	if err := c.do(ctx, "POST", "/v1/renders", body, &resp); err != nil {
		return out, err
	}
	if len(resp.Data) == 0 {
		return out, errors.New("no render returned")
	}
	item := resp.Data[0]

	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(item.B64JSON))
	if err != nil || len(raw) == 0 {
		return out, fmt.Errorf("decode render base64: %w", err)
	}

	out.Image = raw
	out.MimeType = "image/png"
	out.EchoedSeed = item.Seed
	return out, nil
}

func (c *httpClient) do(ctx context.Context, method, path string, body any, out any) error {
	backoff := 1 * time.Second

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		resp, raw, err := c.doOnce(ctx, method, path, body)
		if err == nil {
			if out == nil {
				return nil
			}
			if uErr := json.Unmarshal(raw, out); uErr != nil {
				return fmt.Errorf("imagesynth decode error: %w", uErr)
			}
			return nil
		}

		if !httpx.IsRetryableError(err) || attempt == c.maxRetries {
			return err
		}

		sleepFor := httpx.JitterSleep(httpx.RetryAfterDuration(resp, backoff, 10*time.Second))
		c.log.Warn("Render request retrying",
			"path", path,
			"attempt", attempt+1,
			"max_retries", c.maxRetries,
			"sleep", sleepFor.String(),
			"error", err.Error(),
		)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(sleepFor):
		}
		backoff *= 2
	}

	return fmt.Errorf("unreachable retry loop")
}

func (c *httpClient) doOnce(ctx context.Context, method, path string, body any) (*http.Response, []byte, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, &buf)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, nil, err
	}

	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return resp, nil, readErr
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp, raw, &synthHTTPError{StatusCode: resp.StatusCode, Body: string(raw)}
	}
	return resp, raw, nil
}
