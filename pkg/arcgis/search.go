package arcgis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

const (
	// DefaultMaxItems caps a search when SearchOptions.MaxItems is zero.
	DefaultMaxItems = 100

	// pageSize is the largest page the search endpoint returns.
	pageSize = 100
)

// Item is a portal content item as returned by search.
type Item struct {
	ID           string                     `json:"id"`
	Owner        string                     `json:"owner"`
	Title        string                     `json:"title"`
	Type         string                     `json:"type"`
	TypeKeywords []string                   `json:"typeKeywords"`
	Description  string                     `json:"description"`
	Snippet      string                     `json:"snippet"`
	Properties   map[string]json.RawMessage `json:"properties"`
}

// Property decodes the item property key into v. It reports false when the
// property is absent, null, or does not decode.
func (it Item) Property(key string, v any) bool {
	raw, ok := it.Properties[key]
	if !ok || string(raw) == "null" {
		return false
	}
	return json.Unmarshal(raw, v) == nil
}

// HasTypeKeyword reports whether any type keyword contains sub,
// ignoring case.
func (it Item) HasTypeKeyword(sub string) bool {
	sub = strings.ToLower(sub)
	for _, kw := range it.TypeKeywords {
		if strings.Contains(strings.ToLower(kw), sub) {
			return true
		}
	}
	return false
}

// SearchOptions controls [Client.Search].
type SearchOptions struct {
	MaxItems  int    // Stop after this many items; DefaultMaxItems when zero
	OrgID     string // Restrict to one organization (adds accountid:<id>)
	SortField string // e.g. "title"; service default when empty
}

type searchResponse struct {
	Total     int    `json:"total"`
	Start     int    `json:"start"`
	Num       int    `json:"num"`
	NextStart int    `json:"nextStart"`
	Results   []Item `json:"results"`
}

// Search runs a content search, following nextStart until the results are
// exhausted or MaxItems items have been collected.
func (c *Client) Search(ctx context.Context, query string, opts SearchOptions) ([]Item, error) {
	maxItems := opts.MaxItems
	if maxItems <= 0 {
		maxItems = DefaultMaxItems
	}
	if opts.OrgID != "" {
		query = fmt.Sprintf("%s accountid:%s", query, opts.OrgID)
	}

	items := make([]Item, 0)
	start := 1
	for len(items) < maxItems {
		params := url.Values{
			"q":     {query},
			"start": {strconv.Itoa(start)},
			"num":   {strconv.Itoa(min(pageSize, maxItems-len(items)))},
		}
		if opts.SortField != "" {
			params.Set("sortField", opts.SortField)
		}

		var page searchResponse
		if err := c.Get(ctx, c.RestURL()+"/search", params, &page); err != nil {
			return nil, err
		}
		items = append(items, page.Results...)

		if page.NextStart <= 0 || len(page.Results) == 0 {
			break
		}
		start = page.NextStart
	}

	if len(items) > maxItems {
		items = items[:maxItems]
	}
	c.logger.Debug("search", "query", query, "items", len(items))
	return items, nil
}

// StringList decodes a property the service stores either as a single
// string or as an array of strings.
type StringList []string

// UnmarshalJSON implements json.Unmarshaler.
func (l *StringList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || string(data) == "null":
		*l = nil
		return nil
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*l = splitList(s)
		return nil
	}
	var items []string
	if err := json.Unmarshal(data, &items); err != nil {
		return err
	}
	*l = items
	return nil
}

// String joins the list with commas.
func (l StringList) String() string {
	return strings.Join(l, ",")
}

// splitList splits a comma separated property value, dropping blanks.
func splitList(s string) []string {
	var out []string
	for part := range strings.SplitSeq(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
