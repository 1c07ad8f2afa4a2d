// Package webhook talks to the remote spreadsheet store through its webhook endpoints.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Emi-Dz/formulario-clientes-parcelas/internal/apperr"
	"github.com/Emi-Dz/formulario-clientes-parcelas/internal/models"
	"github.com/Emi-Dz/formulario-clientes-parcelas/pkg/logging"
)

// Endpoints of the remote store. An empty URL means not configured.
type Endpoints struct {
	RecordsFetch   string
	RecordCreate   string
	RecordUpdate   string
	RecordDelete   string
	ClientStatus   string
	UsersFetch     string
	ReportWorkflow string
}

// Client performs single, non-retried calls against the remote store
type Client struct {
	httpClient *http.Client
	endpoints  Endpoints
	secret     string
}

// NewClient creates a new remote store client
func NewClient(endpoints Endpoints, timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		endpoints:  endpoints,
	}
}

// SetSigningSecret enables the signature header on every POST body
func (c *Client) SetSigningSecret(secret string) {
	c.secret = secret
}

func (c *Client) Endpoints() Endpoints {
	return c.endpoints
}

// FetchRecords downloads every purchase record. Items that cannot be decoded
// as records are skipped.
func (c *Client) FetchRecords(ctx context.Context) ([]models.PurchaseRecord, error) {
	if c.endpoints.RecordsFetch == "" {
		return nil, apperr.MissingEndpoint("records fetch")
	}

	body, err := c.get(ctx, "fetch records", c.endpoints.RecordsFetch)
	if err != nil {
		return nil, err
	}

	items, shape, err := DecodeItems(body)
	if err != nil {
		return nil, apperr.Parse("records", err)
	}

	records := make([]models.PurchaseRecord, 0, len(items))
	for i, item := range items {
		var rec models.PurchaseRecord
		if err := json.Unmarshal(item, &rec); err != nil {
			logging.Warnf("Skipping undecodable record - index: %d, error: %v", i, err)
			continue
		}
		records = append(records, rec)
	}

	logging.Infof("Fetched records - shape: %s, count: %d", shape, len(records))
	return records, nil
}

// FetchUsers downloads the users list used for login
func (c *Client) FetchUsers(ctx context.Context) ([]models.User, error) {
	if c.endpoints.UsersFetch == "" {
		return nil, apperr.MissingEndpoint("users fetch")
	}

	body, err := c.get(ctx, "fetch users", c.endpoints.UsersFetch)
	if err != nil {
		return nil, err
	}

	items, _, err := DecodeItems(body)
	if err != nil {
		return nil, apperr.Parse("users", err)
	}

	users := make([]models.User, 0, len(items))
	for _, item := range items {
		var u models.User
		if err := json.Unmarshal(item, &u); err != nil {
			continue
		}
		users = append(users, u)
	}
	return users, nil
}

// SendRecord posts a multipart submission to url
func (c *Client) SendRecord(ctx context.Context, op, url string, payload *Payload) error {
	body, contentType, err := payload.Encode()
	if err != nil {
		return fmt.Errorf("failed to encode %s payload: %w", op, err)
	}

	req, err := c.newPost(ctx, url, contentType, body.Bytes())
	if err != nil {
		return err
	}

	_, err = c.do(req, op)
	return err
}

// DeleteRecord removes exactly one record by its server-side id
func (c *Client) DeleteRecord(ctx context.Context, id string) error {
	if c.endpoints.RecordDelete == "" {
		return apperr.MissingEndpoint("record delete")
	}
	return c.postJSON(ctx, "delete record", c.endpoints.RecordDelete, map[string]string{"id": id})
}

// UpdateClientStatus broadcasts status to every record of the normalized identity
func (c *Client) UpdateClientStatus(ctx context.Context, normalizedCPF string, status models.ClientStatus) error {
	if c.endpoints.ClientStatus == "" {
		return apperr.MissingEndpoint("client status")
	}
	return c.postJSON(ctx, "update client status", c.endpoints.ClientStatus, map[string]string{
		"cpf":    normalizedCPF,
		"status": string(status),
	})
}

// SendReport posts a JSON copy of a created record to the report workflow
func (c *Client) SendReport(ctx context.Context, rec *models.PurchaseRecord) error {
	if c.endpoints.ReportWorkflow == "" {
		return apperr.MissingEndpoint("report workflow")
	}
	return c.postJSON(ctx, "send report", c.endpoints.ReportWorkflow, rec)
}

func (c *Client) get(ctx context.Context, op, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", UserAgent)
	return c.do(req, op)
}

func (c *Client) postJSON(ctx context.Context, op, url string, payload interface{}) error {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := c.newPost(ctx, url, "application/json", jsonData)
	if err != nil {
		return err
	}

	_, err = c.do(req, op)
	return err
}

func (c *Client) newPost(ctx context.Context, url, contentType string, body []byte) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("User-Agent", UserAgent)
	if c.secret != "" {
		req.Header.Set(SignatureHeader, Sign(body, c.secret))
	}
	return req, nil
}

func (c *Client) do(req *http.Request, op string) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		logging.Errorf("Remote call failed - op: %s, url: %s, error: %v", op, req.URL.Redacted(), err)
		return nil, apperr.Network(op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperr.Network(op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := extractMessage(body)
		logging.Errorf("Remote call rejected - op: %s, status: %d, body: %s", op, resp.StatusCode, msg)
		return nil, apperr.Remote(op, resp.StatusCode, msg)
	}
	return body, nil
}

const maxMessageLen = 300

// extractMessage pulls a human readable message out of an error body
func extractMessage(body []byte) string {
	var obj map[string]interface{}
	if err := json.Unmarshal(body, &obj); err == nil {
		for _, key := range []string{"message", "error", "msg"} {
			if s, ok := obj[key].(string); ok && s != "" {
				return truncate(s)
			}
		}
	}
	return truncate(strings.TrimSpace(string(body)))
}

// truncate cuts s to at most maxMessageLen bytes on a rune boundary
func truncate(s string) string {
	if len(s) <= maxMessageLen {
		return s
	}
	cut := maxMessageLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
