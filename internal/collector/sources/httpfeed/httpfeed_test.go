package httpfeed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Vodeneev/propline/internal/collector"
	"github.com/Vodeneev/propline/internal/pkg/config"
)

const feedBody = `{"default_odds": 1.87, "lines": [
	{"market": "Points", "subject": "Devin Booker", "label": "Over", "line": 27.5, "mult": 1.2},
	{"market": "Points", "subject": "Devin Booker", "label": "Under", "line": 27.5}
]}`

func newSource(t *testing.T, src config.SourceConfig) *Source {
	t.Helper()
	if src.Name == "" {
		src.Name = "prizepicks"
	}
	if src.Timeout == 0 {
		src.Timeout = 2 * time.Second
	}
	s, err := New(src, config.CollectorConfig{UserAgent: "propline-test"})
	require.NoError(t, err)
	return s.(*Source)
}

func TestSource_FetchAndParse(t *testing.T) {
	var gotUA, gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotKey = r.Header.Get("X-Api-Key")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(feedBody))
	}))
	defer srv.Close()

	s := newSource(t, config.SourceConfig{URL: srv.URL + "/board", Sport: "basketball", League: "NBA", Headers: map[string]string{"X-Api-Key": "k"}})
	assert.Equal(t, "prizepicks", s.Name())

	payload, err := s.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "propline-test", gotUA)
	assert.Equal(t, "k", gotKey)

	batch, err := s.Parse(payload)
	require.NoError(t, err)
	require.Len(t, batch.Lines, 2)
	assert.Equal(t, "NBA", batch.Lines[0].League)
	assert.Equal(t, "basketball", batch.Lines[0].Sport)
	require.NotNil(t, batch.Lines[0].Mult)
	assert.Equal(t, 1.2, *batch.Lines[0].Mult)
	require.NotNil(t, batch.DefaultOdds)
	assert.Equal(t, 1.87, *batch.DefaultOdds)
}

func TestSource_StatusErrors(t *testing.T) {
	code := http.StatusServiceUnavailable
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(code)
	}))
	defer srv.Close()

	s := newSource(t, config.SourceConfig{URL: srv.URL})

	_, err := s.Fetch(context.Background())
	var statusErr *collector.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusServiceUnavailable, statusErr.Code)
	assert.True(t, collector.IsRetryable(err))

	code = http.StatusUnauthorized
	_, err = s.Fetch(context.Background())
	require.Error(t, err)
	assert.False(t, collector.IsRetryable(err))
}

func TestSource_ParseRejectsHTML(t *testing.T) {
	s := newSource(t, config.SourceConfig{URL: "http://example.invalid"})
	_, err := s.Parse([]byte("<html>maintenance</html>"))
	assert.ErrorIs(t, err, collector.ErrMalformedPayload)
}

func TestNew_RequiresURL(t *testing.T) {
	_, err := New(config.SourceConfig{Name: "x"}, config.CollectorConfig{})
	assert.Error(t, err)
}

func TestSource_MirrorRedirect(t *testing.T) {
	feed := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/board" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(feedBody))
	}))
	defer feed.Close()

	mirror := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, feed.URL+"/en/welcome?tag=1", http.StatusFound)
	}))
	defer mirror.Close()

	s := newSource(t, config.SourceConfig{URL: "https://stale-host.example/api/board", MirrorURL: mirror.URL})

	payload, err := s.Fetch(context.Background())
	require.NoError(t, err)
	assert.Contains(t, string(payload), "Devin Booker")
	assert.Equal(t, feed.URL, s.base)
}

func TestResolveMirror_JavaScriptFallback(t *testing.T) {
	page := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(`<script>window.location = "https://live-42.example/home"</script>`))
	}))
	defer page.Close()

	orig := resolveWithJS
	defer func() { resolveWithJS = orig }()
	resolveWithJS = func(_ context.Context, mirrorURL, _ string, _ time.Duration) (string, error) {
		return "https://live-42.example:443/home?x=1", nil
	}

	base, err := resolveMirror(context.Background(), page.Client(), page.URL, "ua", time.Second)
	require.NoError(t, err)
	assert.Equal(t, "https://live-42.example", base)
}

func TestRebase(t *testing.T) {
	got, err := rebase("https://old.example/api/v2/board?sport=nba", "https://new.example:8443")
	require.NoError(t, err)
	assert.Equal(t, "https://new.example:8443/api/v2/board?sport=nba", got)
}
