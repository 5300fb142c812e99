package directory

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultAirtableBaseURL = "https://api.airtable.com/v0"
	airtablePageSize       = 100
	defaultTimeout         = 15 * time.Second
)

// AirtableDirectory keeps members in an Airtable table.
// See https://airtable.com/developers/web/api/introduction.
type AirtableDirectory struct {
	APIKey     string
	BaseKey    string
	Table      string
	BaseURL    string
	HTTPClient *http.Client
}

// NewAirtable returns a directory backed by table in the given base.
func NewAirtable(apiKey, baseKey, table, baseURL string) *AirtableDirectory {
	if baseURL == "" {
		baseURL = defaultAirtableBaseURL
	}
	if table == "" {
		table = "Members"
	}
	return &AirtableDirectory{
		APIKey:     apiKey,
		BaseKey:    baseKey,
		Table:      table,
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: defaultTimeout},
	}
}

type airtableRecord struct {
	ID          string `json:"id"`
	CreatedTime string `json:"createdTime"`
	Fields      Fields `json:"fields"`
}

type airtableList struct {
	Records []airtableRecord `json:"records"`
	Offset  string           `json:"offset"`
}

type airtableWrite struct {
	Fields   Fields `json:"fields"`
	Typecast bool   `json:"typecast"`
}

// AirtableError is an error response from the Airtable API.
type AirtableError struct {
	Status  int
	Type    string
	Message string
}

func (e *AirtableError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("airtable: %d %s", e.Status, e.Type)
	}
	return fmt.Sprintf("airtable: %d %s: %s", e.Status, e.Type, e.Message)
}

func (r airtableRecord) member() Member {
	m := Member{ID: r.ID, Fields: r.Fields}
	if m.Fields == nil {
		m.Fields = Fields{}
	}
	if t, err := time.Parse(time.RFC3339, r.CreatedTime); err == nil {
		m.CreatedAt = t.UTC()
	}
	return m
}

// FindByPhone returns the first record whose MobileNumber equals phone.
func (d *AirtableDirectory) FindByPhone(ctx context.Context, phone string) (Member, error) {
	n, err := ParsePhone(phone)
	if err != nil {
		return Member{}, err
	}
	q := url.Values{}
	q.Set("filterByFormula", fmt.Sprintf("{%s} = %d", FieldMobileNumber, n))
	q.Set("maxRecords", "1")

	var list airtableList
	if err := d.do(ctx, http.MethodGet, d.tableURL("")+"?"+q.Encode(), nil, &list); err != nil {
		return Member{}, fmt.Errorf("find member by phone: %w", err)
	}
	if len(list.Records) == 0 {
		return Member{}, ErrNotFound
	}
	return list.Records[0].member(), nil
}

// FindByID fetches a record by id.
func (d *AirtableDirectory) FindByID(ctx context.Context, id string) (Member, error) {
	if id == "" {
		return Member{}, ErrNotFound
	}
	var rec airtableRecord
	if err := d.do(ctx, http.MethodGet, d.tableURL(id), nil, &rec); err != nil {
		if isAirtableNotFound(err) {
			return Member{}, ErrNotFound
		}
		return Member{}, fmt.Errorf("find member: %w", err)
	}
	return rec.member(), nil
}

// Insert creates a record. Airtable has no unique constraints, so callers
// must check FindByPhone first.
func (d *AirtableDirectory) Insert(ctx context.Context, fields Fields) (Member, error) {
	var rec airtableRecord
	if err := d.do(ctx, http.MethodPost, d.tableURL(""), airtableWrite{Fields: fields, Typecast: true}, &rec); err != nil {
		return Member{}, fmt.Errorf("insert member: %w", err)
	}
	return rec.member(), nil
}

// Update patches the given fields of record id.
func (d *AirtableDirectory) Update(ctx context.Context, id string, fields Fields) (Member, error) {
	var rec airtableRecord
	if err := d.do(ctx, http.MethodPatch, d.tableURL(id), airtableWrite{Fields: fields, Typecast: true}, &rec); err != nil {
		if isAirtableNotFound(err) {
			return Member{}, ErrNotFound
		}
		return Member{}, fmt.Errorf("update member: %w", err)
	}
	return rec.member(), nil
}

// Colleges lists distinct college names across all records.
func (d *AirtableDirectory) Colleges(ctx context.Context) ([]string, error) {
	return d.distinct(ctx, FieldCollege)
}

// Skills lists distinct skill names across all records.
func (d *AirtableDirectory) Skills(ctx context.Context) ([]string, error) {
	return d.distinct(ctx, FieldSkills)
}

func (d *AirtableDirectory) distinct(ctx context.Context, field string) ([]string, error) {
	var records []Fields
	offset := ""
	for {
		q := url.Values{}
		q.Add("fields[]", field)
		q.Set("pageSize", fmt.Sprint(airtablePageSize))
		if offset != "" {
			q.Set("offset", offset)
		}
		var page airtableList
		if err := d.do(ctx, http.MethodGet, d.tableURL("")+"?"+q.Encode(), nil, &page); err != nil {
			return nil, fmt.Errorf("list %s: %w", field, err)
		}
		for _, rec := range page.Records {
			records = append(records, rec.Fields)
		}
		if page.Offset == "" {
			break
		}
		offset = page.Offset
	}
	return distinctValues(records, field), nil
}

func (d *AirtableDirectory) tableURL(id string) string {
	u := d.BaseURL + "/" + url.PathEscape(d.BaseKey) + "/" + url.PathEscape(d.Table)
	if id != "" {
		u += "/" + url.PathEscape(id)
	}
	return u
}

func (d *AirtableDirectory) do(ctx context.Context, method, target string, in, out any) error {
	if d.APIKey == "" {
		return fmt.Errorf("airtable: api key not configured")
	}
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+d.APIKey)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := d.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return parseAirtableError(resp.StatusCode, raw)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	return dec.Decode(out)
}

func isAirtableNotFound(err error) bool {
	var ae *AirtableError
	return errors.As(err, &ae) && ae.Status == http.StatusNotFound
}

func parseAirtableError(status int, raw []byte) *AirtableError {
	ae := &AirtableError{Status: status}
	var envelope struct {
		Error json.RawMessage `json:"error"`
	}
	if json.Unmarshal(raw, &envelope) != nil || len(envelope.Error) == 0 {
		ae.Message = strings.TrimSpace(string(raw))
		return ae
	}
	var detailed struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	}
	if json.Unmarshal(envelope.Error, &detailed) == nil {
		ae.Type, ae.Message = detailed.Type, detailed.Message
		return ae
	}
	_ = json.Unmarshal(envelope.Error, &ae.Type)
	return ae
}
