package entrez

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"genomefetch/internal/config"
	"genomefetch/internal/services"
)

const component = "entrez"

// maxErrorBody bounds how much of a failed response is echoed into errors.
const maxErrorBody = 512

// SearchResult is the decoded esearch response.
type SearchResult struct {
	Count int
	IDs   []string
}

// Client issues E-utilities requests.
type Client struct {
	baseURL    string
	email      string
	tool       string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithTool overrides the tool name reported to NCBI.
func WithTool(tool string) Option {
	return func(c *Client) {
		if tool = strings.TrimSpace(tool); tool != "" {
			c.tool = tool
		}
	}
}

// New creates an E-utilities client. The contact email is mandatory.
func New(baseURL, email string, opts ...Option) (*Client, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, services.Wrap(services.ErrConfiguration, component, "new", "contact email required", nil)
	}
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, services.Wrap(services.ErrConfiguration, component, "new", "base url required", nil)
	}
	client := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		email:      email,
		tool:       "genomefetch",
		httpClient: &http.Client{Timeout: 2 * time.Minute},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// NewFromConfig builds a client from the [entrez] config section.
func NewFromConfig(cfg *config.Config, opts ...Option) (*Client, error) {
	if cfg == nil {
		return nil, errors.New("entrez: config required")
	}
	base := []Option{
		WithHTTPClient(&http.Client{Timeout: cfg.EntrezTimeout()}),
		WithTool(cfg.Entrez.Tool),
	}
	return New(cfg.Entrez.BaseURL, cfg.Entrez.Email, append(base, opts...)...)
}

type esearchResponse struct {
	XMLName xml.Name `xml:"eSearchResult"`
	Count   string   `xml:"Count"`
	IDs     []string `xml:"IdList>Id"`
	Error   string   `xml:"ERROR"`
}

// ESearch runs term against db and returns at most retmax identifiers.
func (c *Client) ESearch(ctx context.Context, db, term string, retmax int) (*SearchResult, error) {
	if strings.TrimSpace(term) == "" {
		return nil, services.Wrap(services.ErrValidation, component, "esearch", "search term must not be empty", nil)
	}
	params := c.params(db)
	params.Set("term", term)
	if retmax > 0 {
		params.Set("retmax", strconv.Itoa(retmax))
	}

	body, err := c.do(ctx, http.MethodGet, "esearch.fcgi", params)
	if err != nil {
		return nil, services.Wrap(services.ErrExternalService, component, "esearch", "request failed", err)
	}

	var payload esearchResponse
	if err := xml.Unmarshal(body, &payload); err != nil {
		return nil, services.Wrap(services.ErrExternalService, component, "esearch", "decode response", err)
	}
	if msg := strings.TrimSpace(payload.Error); msg != "" {
		return nil, services.Wrap(services.ErrExternalService, component, "esearch", msg, nil)
	}
	count, err := strconv.Atoi(strings.TrimSpace(payload.Count))
	if err != nil {
		return nil, services.Wrap(services.ErrExternalService, component, "esearch", "invalid count", err)
	}
	return &SearchResult{Count: count, IDs: trimIDs(payload.IDs)}, nil
}

type elinkResponse struct {
	XMLName  xml.Name `xml:"eLinkResult"`
	Error    string   `xml:"ERROR"`
	LinkSets []struct {
		Error     string `xml:"ERROR"`
		LinkSetDB []struct {
			DBTo  string   `xml:"DbTo"`
			Links []string `xml:"Link>Id"`
		} `xml:"LinkSetDb"`
	} `xml:"LinkSet"`
}

// ELink maps ids in dbFrom to linked ids in dbTo with one batched request.
// Links are returned in the order the service lists them; a response without
// any link database yields an empty slice.
func (c *Client) ELink(ctx context.Context, dbFrom, dbTo string, ids []string) ([]string, error) {
	ids = trimIDs(ids)
	if len(ids) == 0 {
		return nil, nil
	}
	params := c.params(dbTo)
	params.Set("dbfrom", dbFrom)
	params.Set("id", strings.Join(ids, ","))

	body, err := c.do(ctx, http.MethodPost, "elink.fcgi", params)
	if err != nil {
		return nil, services.Wrap(services.ErrExternalService, component, "elink", "request failed", err)
	}

	var payload elinkResponse
	if err := xml.Unmarshal(body, &payload); err != nil {
		return nil, services.Wrap(services.ErrExternalService, component, "elink", "decode response", err)
	}
	if msg := strings.TrimSpace(payload.Error); msg != "" {
		return nil, services.Wrap(services.ErrExternalService, component, "elink", msg, nil)
	}
	if len(payload.LinkSets) == 0 {
		return nil, nil
	}
	first := payload.LinkSets[0]
	if msg := strings.TrimSpace(first.Error); msg != "" {
		return nil, services.Wrap(services.ErrExternalService, component, "elink", msg, nil)
	}
	if len(first.LinkSetDB) == 0 {
		return nil, nil
	}
	return trimIDs(first.LinkSetDB[0].Links), nil
}

// ESummary fetches version 2.0 document summaries for ids and returns the raw
// XML payload. An empty id list returns nil without a request.
func (c *Client) ESummary(ctx context.Context, db string, ids []string) ([]byte, error) {
	ids = trimIDs(ids)
	if len(ids) == 0 {
		return nil, nil
	}
	params := c.params(db)
	params.Set("id", strings.Join(ids, ","))
	params.Set("version", "2.0")

	body, err := c.do(ctx, http.MethodPost, "esummary.fcgi", params)
	if err != nil {
		return nil, services.Wrap(services.ErrExternalService, component, "esummary", "request failed", err)
	}
	return body, nil
}

func (c *Client) params(db string) url.Values {
	params := url.Values{}
	params.Set("db", db)
	params.Set("email", c.email)
	params.Set("tool", c.tool)
	return params
}

func (c *Client) do(ctx context.Context, method, endpoint string, params url.Values) ([]byte, error) {
	target := c.baseURL + "/" + endpoint

	var (
		req *http.Request
		err error
	)
	switch method {
	case http.MethodPost:
		req, err = http.NewRequestWithContext(ctx, method, target, strings.NewReader(params.Encode()))
		if err == nil {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
	default:
		req, err = http.NewRequestWithContext(ctx, method, target+"?"+params.Encode(), nil)
	}
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	requestStart := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(requestStart)
	if err != nil {
		return nil, fmt.Errorf("execute request (latency=%v): %w", latency, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response (latency=%v): %w", latency, err)
	}
	if resp.StatusCode != http.StatusOK {
		snippet := bytes.TrimSpace(body)
		if len(snippet) > maxErrorBody {
			snippet = snippet[:maxErrorBody]
		}
		return nil, fmt.Errorf("%s returned %d (latency=%v): %s", endpoint, resp.StatusCode, latency, snippet)
	}
	return body, nil
}

func trimIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			out = append(out, id)
		}
	}
	return out
}
