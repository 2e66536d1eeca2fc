package tfs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"tfsrelay/internal/workitem"
)

const (
	defaultHTTPTimeout = 15 * time.Second
	workItemsPath      = "/_api/_wit/workitems"
	apiVersion         = "5"
	maxErrorBody       = 512

	titleField = "1"
	typeField  = "25"
)

// Config captures the connection settings for one TFS project collection.
type Config struct {
	CollectionURL  string
	Username       string
	Password       string
	TimeoutSeconds int
	TypeAliases    map[string]string
}

// Client queries work items from a TFS project collection. It is safe for
// concurrent use.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewClient constructs a TFS client using the supplied configuration.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	aliases := make(map[string]string, len(cfg.TypeAliases))
	for from, to := range cfg.TypeAliases {
		aliases[from] = to
	}
	client := &Client{
		cfg: Config{
			CollectionURL:  strings.TrimRight(strings.TrimSpace(cfg.CollectionURL), "/"),
			Username:       strings.TrimSpace(cfg.Username),
			Password:       cfg.Password,
			TimeoutSeconds: cfg.TimeoutSeconds,
			TypeAliases:    aliases,
		},
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

type workItemsResponse struct {
	WrappedArray []workItemRecord `json:"__wrappedArray"`
}

type workItemRecord struct {
	Fields    map[string]json.RawMessage `json:"fields"`
	Relations json.RawMessage            `json:"relations"`
}

type relationRecord struct {
	LinkType json.RawMessage `json:"LinkType"`
	ID       json.RawMessage `json:"ID"`
}

// FetchSummary looks up a single work item and returns its title and
// normalized type.
func (c *Client) FetchSummary(ctx context.Context, id string) (workitem.Summary, error) {
	record, err := c.fetchRecord(ctx, id)
	if err != nil {
		return workitem.Summary{}, err
	}
	title, ok := scalarString(record.Fields[titleField])
	if !ok {
		return workitem.Summary{}, &LookupFailedError{WorkItemID: id, Err: errors.New("response missing title field")}
	}
	itemType, ok := scalarString(record.Fields[typeField])
	if !ok {
		return workitem.Summary{}, &LookupFailedError{WorkItemID: id, Err: errors.New("response missing type field")}
	}
	return workitem.Summary{
		ID:           id,
		Title:        title,
		WorkItemType: c.NormalizeType(itemType),
	}, nil
}

// FetchParent looks up the work item, scans its relations for the first
// parent link, and returns the parent's summary. A work item without a parent
// link yields nil and no error.
func (c *Client) FetchParent(ctx context.Context, id string) (*workitem.Summary, error) {
	record, err := c.fetchRecord(ctx, id)
	if err != nil {
		return nil, err
	}
	parentID, ok := parentFromRelations(record.Relations)
	if !ok {
		return nil, nil
	}
	summary, err := c.FetchSummary(ctx, parentID)
	if err != nil {
		return nil, err
	}
	return &summary, nil
}

// NormalizeType maps long work item type names to their configured short form.
// Unknown types pass through unchanged.
func (c *Client) NormalizeType(itemType string) string {
	if alias, ok := c.cfg.TypeAliases[itemType]; ok && alias != "" {
		return alias
	}
	return itemType
}

// HealthCheck issues an authenticated request against the collection and
// reports whether the server accepted it.
func (c *Client) HealthCheck(ctx context.Context) error {
	if c.cfg.CollectionURL == "" {
		return errors.New("tfs health: collection url required")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.CollectionURL+"/", nil)
	if err != nil {
		return fmt.Errorf("tfs health: build request: %w", err)
	}
	c.authorize(req)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("tfs health: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("tfs health: credentials rejected (http %d)", resp.StatusCode)
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("tfs health: collection not found at %s", c.cfg.CollectionURL)
	case resp.StatusCode >= 500:
		return fmt.Errorf("tfs health: http %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) fetchRecord(ctx context.Context, id string) (workItemRecord, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return workItemRecord{}, &LookupFailedError{Err: errors.New("work item id required")}
	}

	endpoint := c.cfg.CollectionURL + workItemsPath + "?" + url.Values{
		"__v": {apiVersion},
		"ids": {id},
	}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return workItemRecord{}, &LookupFailedError{WorkItemID: id, Err: fmt.Errorf("build request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return workItemRecord{}, &LookupFailedError{WorkItemID: id, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return workItemRecord{}, &LookupFailedError{
			WorkItemID: id,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected response: %s", strings.TrimSpace(string(body))),
		}
	}

	var payload workItemsResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return workItemRecord{}, &LookupFailedError{WorkItemID: id, Err: fmt.Errorf("decode response: %w", err)}
	}
	if len(payload.WrappedArray) == 0 {
		return workItemRecord{}, &LookupFailedError{WorkItemID: id, Err: errors.New("response contained no work items")}
	}
	return payload.WrappedArray[0], nil
}

func (c *Client) authorize(req *http.Request) {
	if c.cfg.Username != "" {
		req.SetBasicAuth(c.cfg.Username, c.cfg.Password)
	}
}

// parentFromRelations returns the target of the first relation whose link
// type is the parent marker. Missing or undecodable relation lists have no
// parent.
func parentFromRelations(raw json.RawMessage) (string, bool) {
	if len(raw) == 0 {
		return "", false
	}
	var relations []relationRecord
	if err := json.Unmarshal(raw, &relations); err != nil {
		return "", false
	}
	for _, relation := range relations {
		linkType, ok := scalarString(relation.LinkType)
		if !ok {
			continue
		}
		code, err := strconv.Atoi(linkType)
		if err != nil || code != workitem.ParentLinkType {
			continue
		}
		if id, ok := scalarString(relation.ID); ok && id != "" {
			return id, true
		}
	}
	return "", false
}

// scalarString renders a JSON string or number as text. Other JSON kinds,
// null, and missing values report false.
func scalarString(raw json.RawMessage) (string, bool) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return "", false
	}
	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", false
		}
		return s, true
	case '{', '[', 't', 'f':
		return "", false
	default:
		var n json.Number
		if err := json.Unmarshal(raw, &n); err != nil {
			return "", false
		}
		return n.String(), true
	}
}
