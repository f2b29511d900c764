package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lee-tech/locations/internal/constants"
	"github.com/lee-tech/locations/internal/models"
	"github.com/lee-tech/locations/internal/repository"
	"github.com/lee-tech/locations/internal/service"
)

type fakeResolver struct {
	lastRequest *models.FilterRequest
	result      *models.FilterResult
	err         error
}

func (f *fakeResolver) ResolveOptions(req *models.FilterRequest) (*models.FilterResult, error) {
	f.lastRequest = req
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func testResult() *models.FilterResult {
	schema := models.NewLevelSchema()
	schema.Append("L0", "Country", false)
	level, _ := schema.Level("L0")
	level.Options.Add("Country A")
	return &models.FilterResult{
		FieldType: constants.FieldTypeLocationReference,
		Schema:    schema,
	}
}

func newTestRouter(resolver OptionResolver, bookmarks *service.BookmarkService) *mux.Router {
	router := mux.NewRouter()
	NewLocationFilterHandler(resolver, bookmarks, false, nil).RegisterRoutes(router)
	return router
}

func TestFilterOptionsParsesQuery(t *testing.T) {
	resolver := &fakeResolver{result: testResult()}
	router := newTestRouter(resolver, nil)

	url := "/v1/locations/filter-options" +
		"?levels=L0,L1&ids=2,3&language=es&translate=true&hierarchy=false" +
		"&L0__belongs=Country%20A,Country%20B"
	req := httptest.NewRequest(http.MethodGet, url, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	parsed := resolver.lastRequest
	require.NotNil(t, parsed)
	assert.Equal(t, []string{"L0", "L1"}, parsed.Levels)
	assert.Equal(t, []uint64{2, 3}, parsed.FixedIDs)
	assert.Equal(t, "es", parsed.Language)
	assert.True(t, parsed.Translate)
	assert.False(t, parsed.InjectHierarchy)
	assert.Equal(t, []string{"Country A", "Country B"}, parsed.Selected["L0__belongs"])

	var body struct {
		FieldType string          `json:"field_type"`
		Levels    json.RawMessage `json:"levels"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, constants.FieldTypeLocationReference, body.FieldType)
	assert.NotEmpty(t, body.Levels)
}

func TestFilterOptionsHierarchyDefaultsOn(t *testing.T) {
	resolver := &fakeResolver{result: testResult()}
	router := newTestRouter(resolver, nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/locations/filter-options?levels=L0", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, resolver.lastRequest.InjectHierarchy)
}

func TestFilterOptionsTranslateDeploymentDefault(t *testing.T) {
	resolver := &fakeResolver{result: testResult()}
	router := mux.NewRouter()
	NewLocationFilterHandler(resolver, nil, true, nil).RegisterRoutes(router)

	// No translate parameter: the deployment default applies.
	req := httptest.NewRequest(http.MethodGet, "/v1/locations/filter-options?levels=L0&language=es", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, resolver.lastRequest.Translate)

	// An explicit parameter overrides it.
	req = httptest.NewRequest(http.MethodGet, "/v1/locations/filter-options?levels=L0&translate=false", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, resolver.lastRequest.Translate)
}

func TestFilterOptionsRejectsBadIDs(t *testing.T) {
	router := newTestRouter(&fakeResolver{result: testResult()}, nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/locations/filter-options?ids=abc", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFilterOptionsRejectsBadLevels(t *testing.T) {
	router := newTestRouter(&fakeResolver{result: testResult()}, nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/locations/filter-options?levels=L9", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFilterOptionsErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"invalid selector", fmt.Errorf("wrap: %w", repository.ErrInvalidSelector), http.StatusBadRequest},
		{"unknown resource", fmt.Errorf("wrap: %w", repository.ErrUnknownResource), http.StatusBadRequest},
		{"incomplete selector", service.ErrIncompleteSelector, http.StatusBadRequest},
		{"hierarchy cycle", service.ErrHierarchyCycle, http.StatusInternalServerError},
		{"other", fmt.Errorf("database gone"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter(&fakeResolver{err: tt.err}, nil)
			req := httptest.NewRequest(http.MethodGet, "/v1/locations/filter-options?levels=L0", nil)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestFilterOptionsAcceptsBookmark(t *testing.T) {
	bookmarks := service.NewBookmarkService("test", "a-test-signing-secret", time.Hour)
	token, err := bookmarks.Issue(map[string][]string{"L1__belongs": {"Region X"}})
	require.NoError(t, err)

	resolver := &fakeResolver{result: testResult()}
	router := newTestRouter(resolver, bookmarks)

	req := httptest.NewRequest(http.MethodGet, "/v1/locations/filter-options?levels=L0,L1&bookmark="+token, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"Region X"}, resolver.lastRequest.Selected["L1__belongs"])
}

func TestFilterOptionsRejectsBadBookmark(t *testing.T) {
	bookmarks := service.NewBookmarkService("test", "a-test-signing-secret", time.Hour)
	router := newTestRouter(&fakeResolver{result: testResult()}, bookmarks)

	req := httptest.NewRequest(http.MethodGet, "/v1/locations/filter-options?bookmark=garbage", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateBookmark(t *testing.T) {
	bookmarks := service.NewBookmarkService("test", "a-test-signing-secret", time.Hour)
	router := newTestRouter(&fakeResolver{result: testResult()}, bookmarks)

	payload, err := json.Marshal(models.BookmarkRequest{
		Selected: map[string][]string{"L0__belongs": {"Country A"}},
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/v1/locations/bookmarks", bytes.NewReader(payload))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	var body models.BookmarkResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.NotEmpty(t, body.Token)
	assert.Equal(t, int(time.Hour.Seconds()), body.ExpiresIn)

	parsed, err := bookmarks.Parse(body.Token)
	require.NoError(t, err)
	assert.Equal(t, []string{"Country A"}, parsed["L0__belongs"])
}

func TestCreateBookmarkRejectsEmptyBody(t *testing.T) {
	bookmarks := service.NewBookmarkService("test", "a-test-signing-secret", time.Hour)
	router := newTestRouter(&fakeResolver{result: testResult()}, bookmarks)

	req := httptest.NewRequest(http.MethodPost, "/v1/locations/bookmarks", bytes.NewReader([]byte(`{}`)))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealth(t *testing.T) {
	router := newTestRouter(&fakeResolver{result: testResult()}, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}
