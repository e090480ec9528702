// Package remote talks to the order backend over HTTP. Responses are returned
// raw; decoding belongs to the order mapper.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"tienda-b2b/internal/domain"
	"tienda-b2b/internal/logging"
)

const maxBodyBytes = 8 << 20

// RemoteError is a non-2xx answer from the order backend.
type RemoteError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *RemoteError) Error() string {
	body := e.Body
	if len(body) > 200 {
		body = body[:200] + "..."
	}
	return fmt.Sprintf("%s: remote status %d: %s", e.Op, e.StatusCode, strings.TrimSpace(body))
}

type Client struct {
	baseURL *url.URL
	http    *http.Client
	logger  *log.Entry
}

// New builds a client for baseURL. A nil httpClient gets one with timeout.
func New(baseURL string, httpClient *http.Client, timeout time.Duration, logger *log.Entry) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("base url %q must be absolute", baseURL)
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &Client{baseURL: u, http: httpClient, logger: logger}, nil
}

type createOrderRequest struct {
	ClienteID int64        `json:"clienteId"`
	Usuario   *usuarioInfo `json:"usuario,omitempty"`
}

type usuarioInfo struct {
	NombreRazonSocial string `json:"nombreRazonSocial,omitempty"`
	Email             string `json:"email,omitempty"`
}

// CreateOrderShell creates an order without lines.
func (c *Client) CreateOrderShell(ctx context.Context, customerID int64, info *domain.CustomerInfo) (json.RawMessage, error) {
	body := createOrderRequest{ClienteID: customerID}
	if info != nil && (info.DisplayName != nil || info.Email != nil) {
		body.Usuario = &usuarioInfo{}
		if info.DisplayName != nil {
			body.Usuario.NombreRazonSocial = *info.DisplayName
		}
		if info.Email != nil {
			body.Usuario.Email = *info.Email
		}
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode create order: %w", err)
	}
	data, err := c.do(ctx, "create order", http.MethodPost, "/api/pedidos/crear", nil, payload)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(data), nil
}

// AttachLine adds one variant to an order and returns the updated order.
func (c *Client) AttachLine(ctx context.Context, orderID, variantID int64, quantity int) (json.RawMessage, error) {
	q := url.Values{}
	q.Set("varianteId", strconv.FormatInt(variantID, 10))
	q.Set("cantidad", strconv.Itoa(quantity))
	data, err := c.do(ctx, "attach line", http.MethodPost, fmt.Sprintf("/api/pedidos/%d/items", orderID), q, nil)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(data), nil
}

func (c *Client) ConfirmOrder(ctx context.Context, orderID int64) (json.RawMessage, error) {
	data, err := c.do(ctx, "confirm order", http.MethodPost, fmt.Sprintf("/api/pedidos/%d/confirmar", orderID), nil, nil)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(data), nil
}

func (c *Client) CancelOrder(ctx context.Context, orderID int64) (json.RawMessage, error) {
	data, err := c.do(ctx, "cancel order", http.MethodPost, fmt.Sprintf("/api/pedidos/%d/cancelar", orderID), nil, nil)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(data), nil
}

// ListOrders returns the customer's order list as raw text. The body is
// returned even when it is not JSON.
func (c *Client) ListOrders(ctx context.Context, customerID int64) (string, error) {
	q := url.Values{}
	q.Set("clienteId", strconv.FormatInt(customerID, 10))
	data, err := c.do(ctx, "list orders", http.MethodGet, "/api/pedidos", q, nil)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, body []byte) ([]byte, error) {
	u := *c.baseURL
	u.Path = c.baseURL.Path + path
	if query != nil {
		u.RawQuery = query.Encode()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return nil, fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.WithError(err).WithFields(log.Fields{"op": op, "url": u.String()}).Warn("remote request failed")
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%s: read body: %w", op, err)
	}

	entry := c.logger.WithFields(log.Fields{
		"op":      op,
		"status":  resp.StatusCode,
		"elapsed": time.Since(start).String(),
	})
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		entry.Warn("remote request rejected")
		return nil, &RemoteError{Op: op, StatusCode: resp.StatusCode, Body: string(data)}
	}
	entry.Debug("remote request done")
	return data, nil
}
