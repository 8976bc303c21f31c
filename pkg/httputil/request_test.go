package httputil

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"x"}`))
	var dest struct {
		Name string `json:"name"`
	}
	require.NoError(t, ParseJSON(req, &dest))
	assert.Equal(t, "x", dest.Name)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{broken`))
	assert.Error(t, ParseJSON(req, &dest))
}

func TestParsePathInt64(t *testing.T) {
	req := mux.SetURLVars(httptest.NewRequest(http.MethodGet, "/", nil), map[string]string{"id": "42"})
	val, err := ParsePathInt64(req, "id")
	require.NoError(t, err)
	assert.Equal(t, int64(42), val)

	req = mux.SetURLVars(httptest.NewRequest(http.MethodGet, "/", nil), map[string]string{"id": "abc"})
	_, err = ParsePathInt64(req, "id")
	assert.Error(t, err)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	_, err = ParsePathInt64(req, "id")
	assert.Error(t, err)
}

func TestParseQueryInt(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?n=7", nil)
	val, err := ParseQueryInt(req, "n", 3)
	require.NoError(t, err)
	assert.Equal(t, 7, val)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	val, err = ParseQueryInt(req, "n", 3)
	require.NoError(t, err)
	assert.Equal(t, 3, val)

	req = httptest.NewRequest(http.MethodGet, "/?n=x", nil)
	_, err = ParseQueryInt(req, "n", 3)
	assert.Error(t, err)
}

func TestParsePagination(t *testing.T) {
	cases := []struct {
		name       string
		query      string
		wantLimit  int
		wantOffset int
	}{
		{"defaults", "", 25, 0},
		{"explicit", "?limit=10&offset=40", 10, 40},
		{"limit capped", "?limit=500", 100, 0},
		{"zero limit falls back", "?limit=0", 25, 0},
		{"negative offset clamped", "?offset=-5", 25, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/"+tc.query, nil)
			page, err := ParsePagination(req, 25, 100)
			require.NoError(t, err)
			assert.Equal(t, tc.wantLimit, page.Limit)
			assert.Equal(t, tc.wantOffset, page.Offset)
		})
	}

	req := httptest.NewRequest(http.MethodGet, "/?limit=x", nil)
	_, err := ParsePagination(req, 25, 100)
	assert.Error(t, err)
}

func TestWriteValidationError(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteValidationError(rec, "invalid thing", map[string]string{"name": "name is required"})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "invalid thing")
	assert.Contains(t, rec.Body.String(), "name is required")
}

func TestWriteJSONHelpers(t *testing.T) {
	rec := httptest.NewRecorder()
	require.NoError(t, WriteCreated(rec, map[string]int{"id": 1}))
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = httptest.NewRecorder()
	WriteNoContent(rec)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())

	rec = httptest.NewRecorder()
	WriteNotFoundError(rec, "gone")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "gone")
}
