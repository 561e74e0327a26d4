// Package gateway provides access to the upstream APIs,
// abstracting away the shared HTTP client and response decoding.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/naka-gawa/activity-stats/internal/domain"
)

// DefaultTimeout bounds a single fetch when Options.Timeout is zero.
const DefaultTimeout = 10 * time.Second

// DefaultUserAgent is sent when Options.UserAgent is empty.
const DefaultUserAgent = "activity-stats/1.0"

// maxBodyBytes caps how much of an upstream body is read. Larger bodies
// fail with ErrBodyTooLarge.
var maxBodyBytes int64 = 32 << 20

// Sentinel errors used to classify a failed fetch.
var (
	ErrTransport     = errors.New("transport failure")
	ErrStatus        = errors.New("unexpected status")
	ErrNotJSON       = errors.New("response is not json")
	ErrDecode        = errors.New("invalid json body")
	ErrNotCollection = errors.New("json body is not an array")
	ErrBodyTooLarge  = errors.New("response body too large")
)

// Fetcher defines the behavior of a gateway that reduces one target to an activity count.
type Fetcher interface {
	FetchActivity(ctx context.Context, target domain.Target) (int, error)
}

// Options configures the shared HTTP client.
type Options struct {
	Timeout   time.Duration
	UserAgent string
}

// HTTPGateway is the concrete implementation of the Fetcher interface.
// A single http.Client is shared by every concurrent fetch.
type HTTPGateway struct {
	client    *http.Client
	userAgent string
	logger    *zap.Logger
}

// NewHTTPGateway is a constructor that creates a new instance of HTTPGateway.
func NewHTTPGateway(opts Options, logger *zap.Logger) (*HTTPGateway, error) {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	base := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConnsPerHost:   16,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   timeout,
		ResponseHeaderTimeout: timeout,
	}
	// Upstreams that answer with a secondary rate limit are waited on for at
	// most one fetch timeout instead of being reported as failed.
	limiter := newHostRateLimiter(base, timeout)
	return NewHTTPGatewayWithClient(&http.Client{Transport: limiter, Timeout: timeout}, opts.UserAgent, logger), nil
}

// NewHTTPGatewayWithClient wraps an existing client, e.g. an httptest server client.
func NewHTTPGatewayWithClient(client *http.Client, userAgent string, logger *zap.Logger) *HTTPGateway {
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPGateway{client: client, userAgent: userAgent, logger: logger}
}

// CloseIdleConnections releases pooled connections held by the shared client.
func (g *HTTPGateway) CloseIdleConnections() {
	g.client.CloseIdleConnections()
}

// FetchActivity performs a GET on target.URL and returns the length of the
// JSON array it answers with. Checks run in order: transport, status,
// content type, decode, shape.
func (g *HTTPGateway) FetchActivity(ctx context.Context, target domain.Target) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.URL, nil)
	if err != nil {
		return 0, fmt.Errorf("%s: build request: %w: %v", target.Name, ErrTransport, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", g.userAgent)
	applyAuth(req, target.Auth)

	start := time.Now()
	resp, err := g.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%s: http get: %w: %v", target.Name, ErrTransport, err)
	}
	defer func() {
		// Drain so the connection can go back to the pool.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		resp.Body.Close()
	}()
	g.logger.Debug("upstream responded",
		zap.String("target", target.Name),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, fmt.Errorf("%s: %w %d", target.Name, ErrStatus, resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	if !isJSONContentType(contentType) {
		return 0, fmt.Errorf("%s: %w (content type %q)", target.Name, ErrNotJSON, contentType)
	}

	return decodeCollectionLength(target.Name, resp.Body)
}

// decodeCollectionLength reads the whole body, which must be exactly one
// JSON value, and returns its length when it is an array.
func decodeCollectionLength(name string, r io.Reader) (int, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxBodyBytes+1))
	if err != nil {
		return 0, fmt.Errorf("%s: read body: %w: %v", name, ErrTransport, err)
	}
	if int64(len(data)) > maxBodyBytes {
		return 0, fmt.Errorf("%s: %w (over %d bytes)", name, ErrBodyTooLarge, maxBodyBytes)
	}
	if !json.Valid(data) {
		return 0, fmt.Errorf("%s: %w", name, ErrDecode)
	}
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil || items == nil {
		return 0, fmt.Errorf("%s: %w (got %s)", name, ErrNotCollection, jsonKind(data))
	}
	return len(items), nil
}

// isJSONContentType reports whether ct is application/json or a +json type.
// A missing content type is not JSON.
func isJSONContentType(ct string) bool {
	if ct == "" {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return false
	}
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}

func jsonKind(raw json.RawMessage) string {
	s := strings.TrimSpace(string(raw))
	if s == "" {
		return "empty"
	}
	switch s[0] {
	case '{':
		return "object"
	case '"':
		return "string"
	case 't', 'f':
		return "boolean"
	case 'n':
		return "null"
	default:
		return "number"
	}
}

func applyAuth(req *http.Request, auth domain.TargetAuth) {
	switch auth.Mode {
	case domain.AuthBearer:
		if token := auth.Token(); token != "" {
			(&oauth2.Token{AccessToken: token}).SetAuthHeader(req)
		}
	case domain.AuthAPIKey:
		if key := auth.Key(); key != "" {
			req.Header.Set(auth.HeaderName(), key)
		}
	}
}
