package csvsource_test

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/majindogo/agri-survey-etl/internal/adapter/csvsource"
	"github.com/majindogo/agri-survey-etl/internal/domain"
)

func newClient() *csvsource.Client {
	return csvsource.NewClient(5*time.Second, slog.Default())
}

func serveCSV(t *testing.T, body string, status int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFetchMappings(t *testing.T) {
	srv := serveCSV(t, "Field_ID,Weather_station\n1,ST-0\n2,ST-1\n", http.StatusOK)

	mappings, err := newClient().FetchMappings(context.Background(), srv.URL)
	require.NoError(t, err)

	require.Len(t, mappings, 2)
	assert.Equal(t, domain.StationMapping{FieldID: "1", StationID: "ST-0"}, mappings[0])
	assert.Equal(t, domain.StationMapping{FieldID: "2", StationID: "ST-1"}, mappings[1])
}

func TestFetchMessages(t *testing.T) {
	srv := serveCSV(t, "Weather_station_ID,Message\nST-0,Rainfall: 10 mm\nST-1,station offline\n", http.StatusOK)

	messages, err := newClient().FetchMessages(context.Background(), srv.URL)
	require.NoError(t, err)

	require.Len(t, messages, 2)
	assert.Equal(t, "ST-0", messages[0].StationID)
	assert.Equal(t, "Rainfall: 10 mm", messages[0].Message)
}

func TestFetchEmptyBodyIsErrEmptySource(t *testing.T) {
	srv := serveCSV(t, "", http.StatusOK)

	_, err := newClient().FetchMappings(context.Background(), srv.URL)

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrEmptySource)
}

func TestFetchHeaderOnlyIsErrEmptySource(t *testing.T) {
	srv := serveCSV(t, "Field_ID,Weather_station\n", http.StatusOK)

	_, err := newClient().FetchMappings(context.Background(), srv.URL)

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrEmptySource)
}

func TestFetchNon200Fails(t *testing.T) {
	srv := serveCSV(t, "nope", http.StatusNotFound)

	_, err := newClient().FetchMappings(context.Background(), srv.URL)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
}

func TestFetchLocalFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mapping.csv")
	require.NoError(t, os.WriteFile(path, []byte("Field_ID,Weather_station\n7,ST-3\n"), 0o644))

	mappings, err := newClient().FetchMappings(context.Background(), path)
	require.NoError(t, err)

	require.Len(t, mappings, 1)
	assert.Equal(t, "7", mappings[0].FieldID)
	assert.Equal(t, "ST-3", mappings[0].StationID)
}

func TestFetchMissingFileFails(t *testing.T) {
	_, err := newClient().FetchMessages(context.Background(), filepath.Join(t.TempDir(), "absent.csv"))
	require.Error(t, err)
}
