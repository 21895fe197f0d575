// Package edge talks to the network edge device's configuration API and
// translates stored firewall and VPN records into its JSON schema.
package edge

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/edvin/netedge/internal/metrics"
)

// ErrMissingLocation is returned when a create call succeeds without a
// Location header naming the new device object.
var ErrMissingLocation = errors.New("edge response has no location header")

// DeviceError is a non-2xx answer from the edge device.
type DeviceError struct {
	Method string
	URI    string
	Status int
	Body   string
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("edge %s %s: status %d: %s", e.Method, e.URI, e.Status, e.Body)
}

// IsNotFound reports whether err is a 404 from the device.
func IsNotFound(err error) bool {
	var de *DeviceError
	return errors.As(err, &de) && de.Status == http.StatusNotFound
}

// ClientConfig holds the connection settings for one edge device.
type ClientConfig struct {
	BaseURL  string
	EdgeID   string
	Username string
	Password string
	Timeout  time.Duration
	TLS      *tls.Config
}

// Client is a Basic-auth JSON client bound to one edge device.
type Client struct {
	baseURL    string
	edgeID     string
	username   string
	password   string
	httpClient *http.Client
}

func NewClient(cfg ClientConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.TLS != nil {
		transport.TLSClientConfig = cfg.TLS
	}
	return &Client{
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		edgeID:   cfg.EdgeID,
		username: cfg.Username,
		password: cfg.Password,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
	}
}

// EdgeID returns the device-side id of the managed edge.
func (c *Client) EdgeID() string {
	return c.edgeID
}

// Create POSTs payload to uri and returns the id of the created object,
// taken from the Location header after the last '/'.
func (c *Client) Create(ctx context.Context, resource, uri string, payload any) (string, error) {
	header, err := c.do(ctx, http.MethodPost, resource, uri, payload, nil)
	if err != nil {
		return "", err
	}
	id := LocationID(header.Get("Location"))
	if id == "" {
		return "", fmt.Errorf("create %s: %w", resource, ErrMissingLocation)
	}
	return id, nil
}

// Put replaces the object at uri.
func (c *Client) Put(ctx context.Context, resource, uri string, payload any) error {
	_, err := c.do(ctx, http.MethodPut, resource, uri, payload, nil)
	return err
}

// Get decodes the JSON document at uri into out.
func (c *Client) Get(ctx context.Context, resource, uri string, out any) error {
	_, err := c.do(ctx, http.MethodGet, resource, uri, nil, out)
	return err
}

// Delete removes the object at uri. A 404 means it is already gone and is
// not an error.
func (c *Client) Delete(ctx context.Context, resource, uri string) error {
	_, err := c.do(ctx, http.MethodDelete, resource, uri, nil, nil)
	if IsNotFound(err) {
		zerolog.Ctx(ctx).Debug().Str("uri", uri).Msg("edge object already deleted")
		return nil
	}
	return err
}

func (c *Client) do(ctx context.Context, method, resource, uri string, payload, out any) (http.Header, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal %s payload: %w", resource, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+uri, body)
	if err != nil {
		return nil, fmt.Errorf("%s %s request: %w", strings.ToLower(method), resource, err)
	}
	req.SetBasicAuth(c.username, c.password)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	metrics.EdgeRequestDuration.WithLabelValues(method, resource).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.EdgeRequestsTotal.WithLabelValues(method, resource, "error").Inc()
		return nil, fmt.Errorf("%s %s: %w", strings.ToLower(method), resource, err)
	}
	defer resp.Body.Close()
	metrics.EdgeRequestsTotal.WithLabelValues(method, resource, strconv.Itoa(resp.StatusCode)).Inc()

	zerolog.Ctx(ctx).Debug().
		Str("method", method).
		Str("uri", uri).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("edge request")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		return nil, &DeviceError{Method: method, URI: uri, Status: resp.StatusCode, Body: string(respBody)}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return nil, fmt.Errorf("decode %s response: %w", resource, err)
		}
	}
	return resp.Header, nil
}

// LocationID returns the substring after the last '/' of a Location value.
func LocationID(location string) string {
	location = strings.TrimSpace(location)
	if i := strings.LastIndex(location, "/"); i >= 0 {
		return location[i+1:]
	}
	return location
}
