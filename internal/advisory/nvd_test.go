package advisory

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const nvdBody = `{
  "vulnerabilities": [
    {"cve": {
      "id": "CVE-2024-0001",
      "descriptions": [{"lang": "es", "value": "inyeccion"}, {"lang": "en", "value": "SQL injection in foo"}],
      "metrics": {"cvssMetricV30": [{"cvssData": {"baseScore": 7.5}}]},
      "weaknesses": [{"description": [{"value": "CWE-89"}]}]
    }},
    {"cve": {"id": "CVE-2024-0002", "descriptions": [{"lang": "en", "value": "other"}]}}
  ]
}`

func TestSearchParsesResults(t *testing.T) {
	var query string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(nvdBody))
	}))
	defer srv.Close()

	c := NewNVD(nil, Options{BaseURL: srv.URL})
	got, err := c.Search(context.Background(), "SQL Injection", 3)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "CVE-2024-0001", got[0].ID)
	assert.Equal(t, "SQL injection in foo", got[0].Description)
	require.NotNil(t, got[0].Score)
	assert.Equal(t, 7.5, *got[0].Score)
	assert.Equal(t, "CWE-89", got[0].CWE)
	assert.Nil(t, got[1].Score)
	assert.Contains(t, query, "keywordSearch=SQL+Injection")
	assert.Contains(t, query, "resultsPerPage=3")
}

func TestSearchDegradesToEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewNVD(nil, Options{BaseURL: srv.URL})
	got, err := c.Search(context.Background(), "xss", 5)
	assert.Error(t, err)
	assert.Empty(t, got)

	got, err = NewNVD(nil, Options{BaseURL: "http://127.0.0.1:1"}).Search(context.Background(), "xss", 5)
	assert.Error(t, err)
	assert.Empty(t, got)
}

func TestSearchEmptyKeyword(t *testing.T) {
	got, err := NewNVD(nil, Options{}).Search(context.Background(), "", 5)
	assert.NoError(t, err)
	assert.Empty(t, got)
}
