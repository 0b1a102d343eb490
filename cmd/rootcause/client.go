package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/kalambet/rootcause/internal/api"
	"github.com/kalambet/rootcause/internal/pipeline"
	"github.com/kalambet/rootcause/internal/storage"
)

// apiClient talks to a running `rootcause serve`.
type apiClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// newAPIClient has no request timeout: answers take as long as the model does.
var newAPIClient = func(baseURL, token string) *apiClient {
	return &apiClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{},
	}
}

func (c *apiClient) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, eris.Wrap(err, "marshalling request")
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, err
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, eris.Wrapf(err, "server not reachable at %s, is `rootcause serve` running?", c.baseURL)
	}
	return resp, nil
}

func (c *apiClient) ask(ctx context.Context, req api.AskRequest) (api.AskResponse, error) {
	var out api.AskResponse
	resp, err := c.do(ctx, http.MethodPost, "/v1/ask", req)
	if err != nil {
		return out, err
	}
	return out, decodeJSON(resp, &out)
}

func (c *apiClient) status(ctx context.Context) (pipeline.Status, error) {
	var out pipeline.Status
	resp, err := c.do(ctx, http.MethodGet, "/v1/status", nil)
	if err != nil {
		return out, err
	}
	return out, decodeJSON(resp, &out)
}

func (c *apiClient) stats(ctx context.Context, top int) (storage.Dashboard, error) {
	var out storage.Dashboard
	path := "/v1/stats"
	if top > 0 {
		path += "?" + url.Values{"top": {fmt.Sprint(top)}}.Encode()
	}
	resp, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return out, err
	}
	return out, decodeJSON(resp, &out)
}

func decodeJSON(resp *http.Response, v any) error {
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return eris.Wrapf(err, "server returned %d (failed to read body)", resp.StatusCode)
		}
		return eris.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return json.NewDecoder(resp.Body).Decode(v)
}
