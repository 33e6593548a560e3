package glean_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sharath-chandra-glean/peopleDateExporter/config"
	"github.com/sharath-chandra-glean/peopleDateExporter/glean"
)

type capturedRequest struct {
	path string
	body map[string]interface{}
}

// fakeIndex records index calls and fails those whose employee email is
// listed in failEmails.
type fakeIndex struct {
	requests   []capturedRequest
	failEmails map[string]bool
	failBulk   bool
}

func (f *fakeIndex) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()

	record := func(r *http.Request) map[string]interface{} {
		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Bearer index-token", r.Header.Get("Authorization"))
		f.requests = append(f.requests, capturedRequest{path: r.URL.Path, body: body})
		return body
	}

	mux.HandleFunc("POST /api/index/v1/indexemployee", func(w http.ResponseWriter, r *http.Request) {
		body := record(r)
		employee := body["employee"].(map[string]interface{})
		if email, _ := employee["email"].(string); f.failEmails[email] {
			http.Error(w, `{"error":"rejected"}`, http.StatusBadRequest)
			return
		}
		w.Write([]byte(`{"status":"indexed"}`))
	})

	bulk := func(w http.ResponseWriter, r *http.Request) {
		record(r)
		if f.failBulk {
			http.Error(w, `{"error":"rejected"}`, http.StatusBadRequest)
			return
		}
		w.Write([]byte(`{"status":"accepted"}`))
	}
	mux.HandleFunc("POST /api/index/v1/people/bulkindexemployees", bulk)
	mux.HandleFunc("POST /api/index/v1/people/bulkindexteams", bulk)

	return mux
}

func newTestClient(t *testing.T, index *fakeIndex, useBulk bool) *glean.Client {
	server := httptest.NewServer(index.handler(t))
	t.Cleanup(server.Close)

	client := glean.NewClient(config.GleanConfig{
		APIURL:       server.URL,
		APIToken:     "index-token",
		Datasource:   "keycloakpeople",
		Timeout:      5 * time.Second,
		UseBulkIndex: useBulk,
	})
	t.Cleanup(client.Close)
	return client
}

func employees(emails ...string) []glean.Employee {
	out := make([]glean.Employee, len(emails))
	for i, email := range emails {
		out[i] = glean.Employee{Email: email, Status: glean.StatusCurrent}
	}
	return out
}

func TestPushUsers_BulkEnvelope(t *testing.T) {
	index := &fakeIndex{}
	client := newTestClient(t, index, true)

	result, err := client.PushUsers(context.Background(), employees("a@example.com", "b@example.com"))
	require.NoError(t, err)
	assert.Nil(t, result, "bulk mode produces no per-record result")

	require.Len(t, index.requests, 1)
	req := index.requests[0]
	assert.Equal(t, "/api/index/v1/people/bulkindexemployees", req.path)
	assert.Equal(t, "keycloakpeople", req.body["datasource"])
	assert.Equal(t, true, req.body["isFirstPage"])
	assert.Equal(t, true, req.body["isLastPage"])
	assert.Equal(t, true, req.body["forceRestartUpload"])
	assert.NotEmpty(t, req.body["uploadId"])
	assert.Len(t, req.body["employees"], 2)
	assert.NotContains(t, req.body, "disableStaleDataDeletionCheck")
}

func TestPushUsers_BulkGeneratesFreshUploadIDs(t *testing.T) {
	index := &fakeIndex{}
	client := newTestClient(t, index, true)

	_, err := client.PushUsers(context.Background(), employees("a@example.com"))
	require.NoError(t, err)
	_, err = client.PushUsers(context.Background(), employees("a@example.com"))
	require.NoError(t, err)

	require.Len(t, index.requests, 2)
	assert.NotEqual(t, index.requests[0].body["uploadId"], index.requests[1].body["uploadId"])
}

func TestBulkIndexEmployees_SuppliedUploadIDKept(t *testing.T) {
	index := &fakeIndex{}
	client := newTestClient(t, index, true)

	resp, err := client.BulkIndexEmployees(context.Background(), "upload-7", employees("a@example.com"))
	require.NoError(t, err)
	assert.Equal(t, "accepted", resp.Status)

	require.Len(t, index.requests, 1)
	assert.Equal(t, "upload-7", index.requests[0].body["uploadId"])
}

func TestPushUsers_BulkStaleDeletionFlag(t *testing.T) {
	index := &fakeIndex{}
	server := httptest.NewServer(index.handler(t))
	t.Cleanup(server.Close)

	client := glean.NewClient(config.GleanConfig{
		APIURL:                   server.URL,
		APIToken:                 "index-token",
		Datasource:               "keycloakpeople",
		Timeout:                  5 * time.Second,
		UseBulkIndex:             true,
		DisableStaleDataDeletion: true,
	})
	t.Cleanup(client.Close)

	_, err := client.PushUsers(context.Background(), employees("a@example.com"))
	require.NoError(t, err)

	require.Len(t, index.requests, 1)
	assert.Equal(t, true, index.requests[0].body["disableStaleDataDeletionCheck"])
}

func TestPushUsers_BulkFailureAbortsWholeBatch(t *testing.T) {
	index := &fakeIndex{failBulk: true}
	client := newTestClient(t, index, true)

	result, err := client.PushUsers(context.Background(), employees("a@example.com"))
	require.Error(t, err)
	assert.Nil(t, result)
	assert.Contains(t, err.Error(), "400")
}

func TestPushUsers_IndividualModeRecordsPartialFailures(t *testing.T) {
	index := &fakeIndex{failEmails: map[string]bool{
		"b@example.com": true,
		"d@example.com": true,
	}}
	client := newTestClient(t, index, false)

	result, err := client.PushUsers(context.Background(),
		employees("a@example.com", "b@example.com", "c@example.com", "d@example.com", "e@example.com"))
	require.NoError(t, err, "individual mode never fails the batch")

	require.NotNil(t, result)
	assert.Equal(t, 5, result.Total)
	assert.Equal(t, 3, result.Successful)
	assert.Equal(t, 2, result.Failed)
	require.Len(t, result.Errors, 2)
	assert.Equal(t, "b@example.com", result.Errors[0].ID)
	assert.Equal(t, "d@example.com", result.Errors[1].ID)

	// All five records were attempted despite the failures in between.
	assert.Len(t, index.requests, 5)
}

func TestPushTeams(t *testing.T) {
	index := &fakeIndex{}
	client := newTestClient(t, index, true)

	resp, err := client.PushTeams(context.Background(), []glean.Team{
		{Name: "Engineering", ExternalID: "g-1", Members: []glean.TeamMember{{Email: "a@example.com"}}},
	})
	require.NoError(t, err)
	assert.Equal(t, "accepted", resp.Status)

	require.Len(t, index.requests, 1)
	req := index.requests[0]
	assert.Equal(t, "/api/index/v1/people/bulkindexteams", req.path)
	assert.Equal(t, true, req.body["isFirstPage"])
	assert.Equal(t, true, req.body["isLastPage"])
	assert.NotEmpty(t, req.body["uploadId"])
	assert.Len(t, req.body["teams"], 1)
}

func TestPushTeams_FailureRaises(t *testing.T) {
	index := &fakeIndex{failBulk: true}
	client := newTestClient(t, index, true)

	_, err := client.PushTeams(context.Background(), []glean.Team{{Name: "Engineering"}})
	require.Error(t, err)
}
