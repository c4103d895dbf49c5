package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sync/atomic"
	"time"
)

const (
	httpTimeout      = 30 * time.Second
	maxHTTPErrorBody = 4 << 10
)

// HTTPClient is a request-only transport. It has no Subscribe method.
type HTTPClient struct {
	url    string
	client *http.Client
	nextID uint64
}

// DialHTTP creates a client for an http(s) endpoint. No request is made until the first Call.
func DialHTTP(address string) (*HTTPClient, error) {
	return &HTTPClient{
		url:    address,
		client: &http.Client{Timeout: httpTimeout},
	}, nil
}

func (c *HTTPClient) Kind() Kind {
	return KindHTTP
}

func (c *HTTPClient) Call(ctx context.Context, result interface{}, method string, params ...interface{}) error {
	resp, err := c.doRequest(ctx, NewRequest(atomic.AddUint64(&c.nextID, 1), method, params))
	if err != nil {
		return wrap(KindHTTP, method, err)
	}
	return wrap(KindHTTP, method, resp.decodeResult(result))
}

func (c *HTTPClient) doRequest(ctx context.Context, req *Request) (*message, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	httpResp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(httpResp.Body, maxHTTPErrorBody))
		return nil, &HTTPError{
			StatusCode: httpResp.StatusCode,
			Status:     httpResp.Status,
			Body:       respBody,
		}
	}

	var msg message
	if err := json.NewDecoder(httpResp.Body).Decode(&msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// Close releases idle connections.
func (c *HTTPClient) Close() error {
	c.client.CloseIdleConnections()
	return nil
}
