package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (c *Client) CreateCampaign(ctx context.Context, body map[string]any) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/campaigns", body, &out)
	return out, err
}

func (c *Client) ListCampaigns(ctx context.Context) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/campaigns", nil, &out)
	return out, err
}

func (c *Client) CampaignState(ctx context.Context, id string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/campaigns/"+url.PathEscape(id), nil, &out)
	return out, err
}

func (c *Client) AdvanceCampaign(ctx context.Context, id string, turns int) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/campaigns/"+url.PathEscape(id)+"/advance", map[string]any{
		"turns": turns,
	}, &out)
	return out, err
}

func (c *Client) CampaignHistory(ctx context.Context, id string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/campaigns/"+url.PathEscape(id)+"/history", nil, &out)
	return out, err
}

func (c *Client) SetCampaignAutopilot(ctx context.Context, id string, enabled bool) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/campaigns/"+url.PathEscape(id)+"/autopilot", map[string]any{
		"enabled": enabled,
	}, &out)
	return out, err
}

func (c *Client) DeleteCampaign(ctx context.Context, id string) error {
	return c.jsonRequest(ctx, http.MethodDelete, "/v1/campaigns/"+url.PathEscape(id), nil, nil)
}

// ExportCampaign downloads a rendered report in the given format and returns
// the raw bytes plus the server-suggested filename.
func (c *Client) ExportCampaign(ctx context.Context, id, format string) ([]byte, string, error) {
	return c.download(ctx, "/v1/campaigns/"+url.PathEscape(id)+"/export?format="+url.QueryEscape(format))
}

func (c *Client) CreatePortfolio(ctx context.Context, body map[string]any) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/portfolios", body, &out)
	return out, err
}

func (c *Client) ListPortfolios(ctx context.Context) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/portfolios", nil, &out)
	return out, err
}

func (c *Client) PortfolioState(ctx context.Context, id string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/portfolios/"+url.PathEscape(id), nil, &out)
	return out, err
}

func (c *Client) AdvancePortfolio(ctx context.Context, id string, turns int) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/portfolios/"+url.PathEscape(id)+"/advance", map[string]any{
		"turns": turns,
	}, &out)
	return out, err
}

func (c *Client) PortfolioHistory(ctx context.Context, id string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/portfolios/"+url.PathEscape(id)+"/history", nil, &out)
	return out, err
}

func (c *Client) ExportPortfolio(ctx context.Context, id string) ([]byte, string, error) {
	return c.download(ctx, "/v1/portfolios/"+url.PathEscape(id)+"/export")
}

func (c *Client) jsonRequest(ctx context.Context, method, path string, in any, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("api status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) download(ctx context.Context, path string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return nil, "", err
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, "", fmt.Errorf("api status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", err
	}
	return body, attachmentFilename(resp.Header.Get("Content-Disposition")), nil
}

func attachmentFilename(disposition string) string {
	const marker = "filename="
	i := strings.Index(disposition, marker)
	if i < 0 {
		return ""
	}
	name := strings.TrimSpace(disposition[i+len(marker):])
	return strings.Trim(name, `"`)
}
