package scrape

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serveHTML(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestScraper_ExtractsBodyText(t *testing.T) {
	srv := serveHTML(t, `<!DOCTYPE html>
<html>
<head><title>Page</title><style>p { color: red; }</style></head>
<body>
  <script>var tracking = true;</script>
  <p>Plain readable sentence one.</p>
  <p>Plain readable sentence two.</p>
</body>
</html>`)

	s := New(Config{})
	got, err := s.Scrape(srv.URL)
	require.NoError(t, err)

	assert.Contains(t, got, "Plain readable sentence one.")
	assert.Contains(t, got, "Plain readable sentence two.")
	assert.NotContains(t, got, "tracking", "script bodies must be stripped")
	assert.NotContains(t, got, "color: red", "style bodies must be stripped")
}

func TestScraper_TruncatesToWordLimit(t *testing.T) {
	words := make([]string, 0, 500)
	for i := 0; i < 500; i++ {
		words = append(words, fmt.Sprintf("w%d", i))
	}
	srv := serveHTML(t, "<html><body><p>"+strings.Join(words, " ")+"</p></body></html>")

	s := New(Config{WordLimit: 200})
	got, err := s.Scrape(srv.URL)
	require.NoError(t, err)

	assert.Len(t, strings.Fields(got), 200)
}

func TestScraper_RejectsNonHTTPScheme(t *testing.T) {
	s := New(Config{})
	_, err := s.Scrape("ftp://example.com/file")
	assert.Error(t, err)
}

func TestScraper_HTTPErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	t.Cleanup(srv.Close)

	s := New(Config{})
	_, err := s.Scrape(srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestScraper_EmptyBodyIsParseError(t *testing.T) {
	srv := serveHTML(t, "<html><body><script>only(scripts)</script></body></html>")

	s := New(Config{})
	_, err := s.Scrape(srv.URL)
	assert.ErrorIs(t, err, ErrParse)
}

func TestScraper_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(500 * time.Millisecond)
	}))
	t.Cleanup(srv.Close)

	s := New(Config{Timeout: 50 * time.Millisecond})
	_, err := s.Scrape(srv.URL)
	assert.Error(t, err)
}
