// Package client is a Go client for the vendor registry HTTP API.
package client

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/atinyakov/venditori/internal/backup"
	"github.com/atinyakov/venditori/internal/certgen"
	"github.com/atinyakov/venditori/internal/models"
)

// APIError is a non-2xx answer from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server error: %d %s", e.StatusCode, e.Message)
}

// Client calls the API with a bearer token.
type Client struct {
	BaseURL string
	Token   string
	HTTP    *http.Client
}

// New creates a Client. A nil httpClient selects a client with a 30 second timeout.
func New(baseURL, token string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{BaseURL: strings.TrimRight(baseURL, "/"), Token: token, HTTP: httpClient}
}

// NewHTTPClient returns an HTTP client that trusts the server certificate
// at caFile in addition to the system roots. An empty caFile uses the
// system roots only.
func NewHTTPClient(caFile string, timeout time.Duration) (*http.Client, error) {
	if caFile == "" {
		return &http.Client{Timeout: timeout}, nil
	}
	pool, err := certgen.LoadCertPool(caFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load server certificate: %w", err)
	}
	transport := &http.Transport{
		TLSClientConfig: &tls.Config{
			RootCAs:    pool,
			MinVersion: tls.VersionTLS12,
		},
	}
	return &http.Client{Transport: transport, Timeout: timeout}, nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, contentType string, body io.Reader) (*http.Response, error) {
	u := c.BaseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.Token)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s failed: %w", method, path, err)
	}
	return resp, nil
}

// apiError builds an APIError from a failed response and closes its body.
func apiError(resp *http.Response) error {
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	var body struct {
		Error string `json:"error"`
	}
	msg := strings.TrimSpace(string(data))
	if json.Unmarshal(data, &body) == nil && body.Error != "" {
		msg = body.Error
	}
	return &APIError{StatusCode: resp.StatusCode, Message: msg}
}

// call performs a request and decodes a JSON answer into out, if non-nil.
func (c *Client) call(ctx context.Context, method, path string, query url.Values, in, out any) error {
	var body io.Reader
	contentType := ""
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
		contentType = "application/json"
	}

	resp, err := c.do(ctx, method, path, query, contentType, body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return apiError(resp)
	}
	defer resp.Body.Close()
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("invalid response: %w", err)
	}
	return nil
}

// InsertVendor creates the vendor or updates the one with the same email.
func (c *Client) InsertVendor(ctx context.Context, v models.Vendor) (int64, error) {
	var out struct {
		ID int64 `json:"id"`
	}
	err := c.call(ctx, http.MethodPost, "/inserisci_venditore", nil, v, &out)
	return out.ID, err
}

// UpdateVendor overwrites the vendor with the given id.
func (c *Client) UpdateVendor(ctx context.Context, id int64, v models.Vendor) error {
	return c.call(ctx, http.MethodPut, "/venditori/"+strconv.FormatInt(id, 10), nil, v, nil)
}

// GetVendor fetches one vendor.
func (c *Client) GetVendor(ctx context.Context, id int64) (*models.Vendor, error) {
	var v models.Vendor
	if err := c.call(ctx, http.MethodGet, "/venditori/"+strconv.FormatInt(id, 10), nil, nil, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// DeleteVendor removes a vendor.
func (c *Client) DeleteVendor(ctx context.Context, id int64) error {
	return c.call(ctx, http.MethodDelete, "/venditori/"+strconv.FormatInt(id, 10), nil, nil, nil)
}

func filterQuery(f models.VendorFilter) url.Values {
	q := url.Values{}
	for key, v := range map[string]string{
		"nome":            f.Name,
		"citta":           f.City,
		"settore":         f.Sector,
		"partita_iva":     f.VATRegistered,
		"agente_isenarco": f.Enasarco,
	} {
		if v != "" {
			q.Set(key, v)
		}
	}
	return q
}

// Search lists vendors matching f.
func (c *Client) Search(ctx context.Context, f models.VendorFilter) ([]models.Vendor, error) {
	var out []models.Vendor
	err := c.call(ctx, http.MethodGet, "/venditori", filterQuery(f), nil, &out)
	return out, err
}

// Sectors lists sector names.
func (c *Client) Sectors(ctx context.Context) ([]string, error) {
	var out []string
	err := c.call(ctx, http.MethodGet, "/settori", nil, nil, &out)
	return out, err
}

// AddSector creates a sector.
func (c *Client) AddSector(ctx context.Context, name string) error {
	return c.call(ctx, http.MethodPost, "/aggiungi_settore", nil, map[string]string{"settore": name}, nil)
}

// Cities lists vendor cities.
func (c *Client) Cities(ctx context.Context) ([]string, error) {
	var out []string
	err := c.call(ctx, http.MethodGet, "/citta", nil, nil, &out)
	return out, err
}

// Stats fetches the dashboard figures.
func (c *Client) Stats(ctx context.Context) (*models.Stats, error) {
	var out models.Stats
	if err := c.call(ctx, http.MethodGet, "/statistiche", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// download copies a successful response body to w and returns the file name
// the server suggested.
func download(resp *http.Response, w io.Writer) (string, error) {
	if resp.StatusCode != http.StatusOK {
		return "", apiError(resp)
	}
	defer resp.Body.Close()
	if _, err := io.Copy(w, resp.Body); err != nil {
		return "", fmt.Errorf("download failed: %w", err)
	}
	_, params, _ := mime.ParseMediaType(resp.Header.Get("Content-Disposition"))
	return params["filename"], nil
}

// Backup writes a full backup archive to w and returns its file name.
func (c *Client) Backup(ctx context.Context, w io.Writer) (string, error) {
	resp, err := c.do(ctx, http.MethodPost, "/backup", nil, "", nil)
	if err != nil {
		return "", err
	}
	return download(resp, w)
}

// Restore uploads a backup archive. A partial restore returns the report
// together with an error.
func (c *Client) Restore(ctx context.Context, archive io.Reader) (*backup.Report, error) {
	resp, err := c.do(ctx, http.MethodPost, "/restore", nil, "application/zip", archive)
	if err != nil {
		return nil, err
	}

	switch resp.StatusCode {
	case http.StatusOK, http.StatusInternalServerError:
		defer resp.Body.Close()
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}
		var report backup.Report
		if err := json.Unmarshal(data, &report); err != nil || (report.Restored == nil && report.Failed == nil) {
			return nil, &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(data))}
		}
		if resp.StatusCode != http.StatusOK {
			return &report, &APIError{StatusCode: resp.StatusCode, Message: "restore incomplete"}
		}
		return &report, nil
	default:
		return nil, apiError(resp)
	}
}

// Export writes the vendors matching f to w as csv or xlsx and returns the file name.
func (c *Client) Export(ctx context.Context, format string, f models.VendorFilter, w io.Writer) (string, error) {
	q := filterQuery(f)
	q.Set("format", format)
	resp, err := c.do(ctx, http.MethodGet, "/venditori/export", q, "", nil)
	if err != nil {
		return "", err
	}
	return download(resp, w)
}

// Import uploads a csv or xlsx vendor file.
func (c *Client) Import(ctx context.Context, format string, overwrite bool, r io.Reader) (models.BulkResult, error) {
	q := url.Values{"format": {format}, "overwrite": {strconv.FormatBool(overwrite)}}
	resp, err := c.do(ctx, http.MethodPost, "/venditori/import", q, "application/octet-stream", r)
	if err != nil {
		return models.BulkResult{}, err
	}
	if resp.StatusCode != http.StatusOK {
		return models.BulkResult{}, apiError(resp)
	}
	defer resp.Body.Close()

	var out models.BulkResult
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return models.BulkResult{}, fmt.Errorf("invalid response: %w", err)
	}
	return out, nil
}
