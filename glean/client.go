package glean

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/sharath-chandra-glean/peopleDateExporter/config"
	"github.com/sharath-chandra-glean/peopleDateExporter/httpretry"
)

// progressInterval is how often the individual indexing loop logs progress.
const progressInterval = 10

// Client talks to the Glean indexing API with a static bearer token.
type Client struct {
	apiURL                   string
	apiToken                 string
	datasource               string
	useBulkIndex             bool
	disableStaleDataDeletion bool

	httpClient *http.Client
	log        *logrus.Entry
}

// NewClient builds a client from configuration. The client owns its
// connection pool; call Close when done with it.
func NewClient(cfg config.GleanConfig) *Client {
	return &Client{
		apiURL:                   strings.TrimRight(cfg.APIURL, "/"),
		apiToken:                 cfg.APIToken,
		datasource:               cfg.Datasource,
		useBulkIndex:             cfg.UseBulkIndex,
		disableStaleDataDeletion: cfg.DisableStaleDataDeletion,
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: &httpretry.Transport{},
		},
		log: logrus.WithField("component", "glean"),
	}
}

// UseBulkIndex reports whether the client pushes users as one bulk call.
func (c *Client) UseBulkIndex() bool {
	return c.useBulkIndex
}

// post sends a JSON payload and decodes the response. Transient failures are
// retried by the transport; any remaining non-2xx status is an error.
func (c *Client) post(ctx context.Context, path string, payload, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("glean: encode payload for %s: %w", path, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("glean: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("glean: POST %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("glean: %w", httpretry.NewStatusError("POST "+path, resp))
	}
	if out != nil {
		// The index endpoints sometimes answer with an empty body; treat
		// that as success with a zero response value.
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("glean: decode response from %s: %w", path, err)
		}
	}
	return nil
}

// IndexEmployee indexes a single employee record.
func (c *Client) IndexEmployee(ctx context.Context, employee Employee) (*IndexResponse, error) {
	var out IndexResponse
	err := c.post(ctx, "/api/index/v1/indexemployee", indexEmployeeRequest{
		Datasource: c.datasource,
		Employee:   employee,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// BulkIndexEmployees pushes the whole employee list as one atomic upload.
// uploadID tags the upload; a fresh one is generated when empty. The call is
// a single-shot full push, marked as both first and last page.
func (c *Client) BulkIndexEmployees(ctx context.Context, uploadID string, employees []Employee) (*IndexResponse, error) {
	if uploadID == "" {
		uploadID = uuid.NewString()
	}
	c.log.WithFields(logrus.Fields{"count": len(employees), "uploadId": uploadID}).
		Info("Bulk indexing employees")

	var out IndexResponse
	err := c.post(ctx, "/api/index/v1/people/bulkindexemployees", bulkEmployeesRequest{
		UploadID:                      uploadID,
		IsFirstPage:                   true,
		IsLastPage:                    true,
		ForceRestartUpload:            true,
		DisableStaleDataDeletionCheck: c.disableStaleDataDeletion,
		Datasource:                    c.datasource,
		Employees:                     employees,
	}, &out)
	if err != nil {
		return nil, err
	}

	c.log.Info("Successfully bulk indexed employees")
	return &out, nil
}

// PushUsers publishes employees in the configured mode.
//
// In bulk mode the whole batch is one API call: any HTTP failure is returned
// as an error and the result is nil. In individual mode records are posted
// one at a time; per-record failures are collected into the returned
// PushResult and never abort the loop, so the error is always nil.
func (c *Client) PushUsers(ctx context.Context, employees []Employee) (*PushResult, error) {
	if c.useBulkIndex {
		if _, err := c.BulkIndexEmployees(ctx, "", employees); err != nil {
			return nil, err
		}
		return nil, nil
	}

	c.log.Infof("Individually indexing %d employees", len(employees))
	result := &PushResult{Total: len(employees)}
	for i, employee := range employees {
		if _, err := c.IndexEmployee(ctx, employee); err != nil {
			result.Failed++
			result.Errors = append(result.Errors, PushError{
				ID:      employeeID(employee),
				Message: err.Error(),
			})
			c.log.WithError(err).Warnf("Failed to index employee %s", employeeID(employee))
			continue
		}
		result.Successful++
		if (i+1)%progressInterval == 0 {
			c.log.Infof("Progress: %d/%d employees indexed", i+1, len(employees))
		}
	}

	c.log.Infof("Individual indexing completed: %d successful, %d failed", result.Successful, result.Failed)
	return result, nil
}

// PushTeams publishes the full team list as one replacement upload. Any HTTP
// failure is an error for the whole batch.
func (c *Client) PushTeams(ctx context.Context, teams []Team) (*IndexResponse, error) {
	c.log.Infof("Pushing %d teams", len(teams))

	var out IndexResponse
	err := c.post(ctx, "/api/index/v1/people/bulkindexteams", bulkTeamsRequest{
		UploadID:    uuid.NewString(),
		IsFirstPage: true,
		IsLastPage:  true,
		Datasource:  c.datasource,
		Teams:       teams,
	}, &out)
	if err != nil {
		return nil, err
	}

	c.log.Info("Successfully pushed teams")
	return &out, nil
}

// Close releases the client's connection pool.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}

// employeeID picks the best identifier available for error reporting.
func employeeID(e Employee) string {
	if e.Email != "" {
		return e.Email
	}
	if e.UserID != "" {
		return e.UserID
	}
	return "unknown"
}
