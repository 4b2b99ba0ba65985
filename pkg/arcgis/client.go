package arcgis

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/infographics/pkg/buildinfo"
	"github.com/matzehuels/infographics/pkg/errors"
	"github.com/matzehuels/infographics/pkg/observability"
)

const (
	httpTimeout = 60 * time.Second

	// reportTimeout is longer because CreateReport renders server side.
	reportTimeout = 5 * time.Minute

	restPath = "/sharing/rest"
)

// Options configures a [Client].
type Options struct {
	Token      string        // Short-lived token from GenerateToken or OAuth
	APIKey     string        // Long-lived API key; used when Token is empty
	Referer    string        // Referer the token was issued for (optional)
	HTTPClient *http.Client  // Defaults to a client with a 60s timeout
	Logger     *log.Logger   // Defaults to log.Default()
	Timeout    time.Duration // Overrides the default request timeout
}

// Client is an authenticated handle on one portal.
//
// The portal self description is fetched lazily and memoized for the life
// of the Client. All methods are safe for concurrent use.
type Client struct {
	http      *http.Client
	report    *http.Client
	portalURL string
	token     string
	referer   string
	logger    *log.Logger

	mu    sync.Mutex
	props *PortalProperties
}

// NewClient creates a client for the portal at portalURL, e.g.
// "https://www.arcgis.com" or "https://gis.example.com/portal".
func NewClient(portalURL string, opts Options) (*Client, error) {
	portalURL = strings.TrimRight(strings.TrimSpace(portalURL), "/")
	portalURL = strings.TrimSuffix(portalURL, restPath)
	if err := errors.ValidateURL(portalURL); err != nil {
		return nil, err
	}

	httpClient, reportClient := opts.HTTPClient, opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout == 0 {
			timeout = httpTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
		reportClient = &http.Client{Timeout: max(timeout, reportTimeout)}
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	token := opts.Token
	if token == "" {
		token = opts.APIKey
	}

	return &Client{
		http:      httpClient,
		report:    reportClient,
		portalURL: portalURL,
		token:     token,
		referer:   opts.Referer,
		logger:    logger,
	}, nil
}

// PortalURL returns the normalized portal URL.
func (c *Client) PortalURL() string { return c.portalURL }

// RestURL returns the portal's sharing REST root.
func (c *Client) RestURL() string { return c.portalURL + restPath }

// Authenticated reports whether the client sends a token.
func (c *Client) Authenticated() bool { return c.token != "" }

// Get performs an authenticated GET and JSON-decodes the response into v.
// "f=json" is added unless params already sets f.
func (c *Client) Get(ctx context.Context, rawURL string, params url.Values, v any) error {
	u, err := c.buildURL(rawURL, params)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "build request")
	}
	body, err := c.do(req)
	if err != nil {
		return err
	}
	return decodeJSON(body, v)
}

// PostForm performs an authenticated form POST and JSON-decodes the response into v.
func (c *Client) PostForm(ctx context.Context, rawURL string, form url.Values, v any) error {
	req, err := c.newPostRequest(ctx, rawURL, form, "json")
	if err != nil {
		return err
	}
	body, err := c.do(req)
	if err != nil {
		return err
	}
	return decodeJSON(body, v)
}

func (c *Client) newPostRequest(ctx context.Context, rawURL string, form url.Values, f string) (*http.Request, error) {
	values := cloneValues(form)
	if values.Get("f") == "" {
		values.Set("f", f)
	}
	applyToken(values, c.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, strings.NewReader(values.Encode()))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "build request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req, nil
}

func (c *Client) buildURL(rawURL string, params url.Values) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeInvalidInput, err, "parse url %q", rawURL)
	}
	q := u.Query()
	for k, vs := range params {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	if q.Get("f") == "" {
		q.Set("f", "json")
	}
	applyToken(q, c.token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// do sends req and returns the full body of a 200 response.
func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.send(c.http, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeNetwork, err, "read response from %s", req.URL.Path)
	}
	return body, nil
}

// send performs the round trip, emits hooks and checks the status. On
// success the caller owns resp.Body.
func (c *Client) send(hc *http.Client, req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	host, path := req.URL.Host, req.URL.Path
	requestID := uuid.NewString()

	req.Header.Set("X-Request-ID", requestID)
	req.Header.Set("User-Agent", buildinfo.UserAgent())
	if c.referer != "" {
		req.Header.Set("Referer", c.referer)
	}

	observability.HTTP().OnRequest(ctx, req.Method, host, path)
	start := time.Now()

	resp, err := hc.Do(req)
	if err != nil {
		observability.HTTP().OnError(ctx, req.Method, host, path, err)
		c.logger.Debug("request failed", "method", req.Method, "path", path, "request_id", requestID, "err", err)
		return nil, errors.Wrap(errors.ErrCodeNetwork, err, "%s %s", req.Method, path)
	}

	duration := time.Since(start)
	observability.HTTP().OnResponse(ctx, req.Method, host, path, resp.StatusCode, duration)
	c.logger.Debug("request", "method", req.Method, "path", path, "status", resp.StatusCode,
		"duration", duration.Round(time.Millisecond), "request_id", requestID)

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		svcErr := &errors.ServiceError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		if env := parseEnvelope(body); env != nil {
			svcErr.Message = env.Message
			svcErr.Details = env.Details
		}
		return nil, errors.Wrap(svcErr.Code(), svcErr, "%s %s", req.Method, path)
	}
	return resp, nil
}

type errorEnvelope struct {
	Error *struct {
		Code    int      `json:"code"`
		Message string   `json:"message"`
		Details []string `json:"details"`
	} `json:"error"`
}

// parseEnvelope returns the service error carried in body, or nil.
func parseEnvelope(body []byte) *errors.ServiceError {
	body = bytes.TrimSpace(body)
	if len(body) == 0 || body[0] != '{' {
		return nil
	}
	var env errorEnvelope
	if err := json.Unmarshal(body, &env); err != nil || env.Error == nil {
		return nil
	}
	return &errors.ServiceError{
		StatusCode: env.Error.Code,
		Message:    env.Error.Message,
		Details:    env.Error.Details,
	}
}

func decodeJSON(body []byte, v any) error {
	if svcErr := parseEnvelope(body); svcErr != nil {
		return errors.Wrap(svcErr.Code(), svcErr, "service returned an error")
	}
	if v == nil {
		return nil
	}
	if err := json.Unmarshal(body, v); err != nil {
		return errors.Wrap(errors.ErrCodeNetwork, err, "decode response")
	}
	return nil
}

// applyToken adds token unless the caller set the key explicitly. An
// explicit empty value suppresses the token entirely.
func applyToken(v url.Values, token string) {
	if _, set := v["token"]; !set && token != "" {
		v.Set("token", token)
	}
	if v.Get("token") == "" {
		v.Del("token")
	}
}

func cloneValues(v url.Values) url.Values {
	out := make(url.Values, len(v)+2)
	for k, vs := range v {
		out[k] = append([]string(nil), vs...)
	}
	return out
}
