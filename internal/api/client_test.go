package api

import (
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthcheck(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/healthcheck", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := New(srv.URL, "secret")
	assert.NoError(t, c.Healthcheck())
}

func TestHealthcheckFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := New(srv.URL, "secret")
	assert.Error(t, c.Healthcheck())
}

func TestUpload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "landed-20260314_151026.json.gz")
	require.NoError(t, os.WriteFile(path, []byte("payload"), 0644))

	var gotFields map[string]string
	var gotFile []byte

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/rounds/add", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))

		gotFields = map[string]string{}
		for k, v := range r.MultipartForm.Value {
			gotFields[k] = v[0]
		}

		file, _, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		gotFile, err = io.ReadAll(file)
		require.NoError(t, err)

		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := New(srv.URL+"/", "hunter2")
	err := c.Upload(path, UploadMetadata{
		Seed:            "42",
		Status:          "landed",
		Score:           9.5,
		DurationSeconds: 61.5,
	})
	require.NoError(t, err)

	assert.Equal(t, "hunter2", gotFields["secret"])
	assert.Equal(t, "landed-20260314_151026.json.gz", gotFields["filename"])
	assert.Equal(t, "42", gotFields["seed"])
	assert.Equal(t, "landed", gotFields["status"])
	assert.Equal(t, []byte("payload"), gotFile)
}

func TestUploadMissingFile(t *testing.T) {
	c := New("http://localhost:1", "secret")
	assert.Error(t, c.Upload("/does/not/exist.json.gz", UploadMetadata{}))
}

func TestUploadRejectedStatus(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "crashed-x.json")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	c := New(srv.URL, "bad")
	assert.Error(t, c.Upload(path, UploadMetadata{}))
}
