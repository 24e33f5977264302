package oracle_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tartampluch/go-coursebox/internal/config"
	"github.com/tartampluch/go-coursebox/internal/oracle"
)

// newTestClient builds a client with fast retry tunables suitable for tests.
func newTestClient(sources ...oracle.Source) *oracle.Client {
	return &oracle.Client{
		HTTP:          &http.Client{},
		Sources:       sources,
		SourceTimeout: 200 * time.Millisecond,
		Attempts:      2,
		BackoffBase:   5 * time.Millisecond,
		BackoffCap:    10 * time.Millisecond,
	}
}

func TestFetchTrustedTime_Formats(t *testing.T) {
	// All four shapes should decode to 2024-01-01T12:00:00Z.
	want := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		format oracle.Format
		tz     string
		body   string
	}{
		{"UnixMilliJSON", oracle.FormatUnixMilliJSON, "", `{"api":"mtop.common.getTimestamp","data":{"t":"1704110400000"}}`},
		{"SysTimeJSON", oracle.FormatSysTimeJSON, "Asia/Shanghai", `{"sysTime2":"2024-01-01 20:00:00","sysTime1":"20240101200000"}`},
		{"UnixRegex", oracle.FormatUnixRegex, "", `QZOutputJson={"s":"o","t":1704110400};`},
		{"RFC3339JSON", oracle.FormatRFC3339JSON, "", `{"datetime":"2024-01-01T12:00:00.123456+00:00"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, config.UserAgent, r.Header.Get("User-Agent"))
				_, _ = w.Write([]byte(tt.body))
			}))
			defer ts.Close()

			client := newTestClient(oracle.Source{Name: tt.name, URL: ts.URL, Format: tt.format, TZ: tt.tz})
			reading, err := client.FetchTrustedTime(context.Background())

			require.NoError(t, err)
			assert.Equal(t, tt.name, reading.Source)
			// RFC3339 bodies carry sub-second noise; compare at second granularity.
			assert.True(t, reading.Timestamp.Truncate(time.Second).Equal(want),
				"got %v, want %v", reading.Timestamp, want)
			assert.False(t, reading.FetchedAt.IsZero())
		})
	}
}

func TestFetchTrustedTime_FirstSourceWins(t *testing.T) {
	var secondHit atomic.Bool

	first := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"t":"1704110400000"}}`))
	}))
	defer first.Close()

	second := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		secondHit.Store(true)
		_, _ = w.Write([]byte(`{"data":{"t":"1704110400000"}}`))
	}))
	defer second.Close()

	client := newTestClient(
		oracle.Source{Name: "fast", URL: first.URL, Format: oracle.FormatUnixMilliJSON},
		oracle.Source{Name: "slow", URL: second.URL, Format: oracle.FormatUnixMilliJSON},
	)

	reading, err := client.FetchTrustedTime(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "fast", reading.Source)
	assert.False(t, secondHit.Load(), "later sources must not be queried after a success")
}

func TestFetchTrustedTime_FailoverToNextSource(t *testing.T) {
	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer broken.Close()

	healthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"t":"1704110400000"}}`))
	}))
	defer healthy.Close()

	client := newTestClient(
		oracle.Source{Name: "broken", URL: broken.URL, Format: oracle.FormatUnixMilliJSON},
		oracle.Source{Name: "healthy", URL: healthy.URL, Format: oracle.FormatUnixMilliJSON},
	)

	reading, err := client.FetchTrustedTime(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "healthy", reading.Source)
}

func TestFetchTrustedTime_TimeoutAdvances(t *testing.T) {
	hang := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(2 * time.Second)
	}))
	defer hang.Close()

	healthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"t":"1704110400000"}}`))
	}))
	defer healthy.Close()

	client := newTestClient(
		oracle.Source{Name: "hang", URL: hang.URL, Format: oracle.FormatUnixMilliJSON},
		oracle.Source{Name: "healthy", URL: healthy.URL, Format: oracle.FormatUnixMilliJSON},
	)

	reading, err := client.FetchTrustedTime(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "healthy", reading.Source)
}

func TestFetchTrustedTime_AllExhausted(t *testing.T) {
	var hits atomic.Int32

	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer down.Close()

	client := newTestClient(
		oracle.Source{Name: "a", URL: down.URL, Format: oracle.FormatUnixMilliJSON},
		oracle.Source{Name: "b", URL: down.URL, Format: oracle.FormatUnixMilliJSON},
	)

	reading, err := client.FetchTrustedTime(context.Background())

	// Fail closed: the host clock must never leak through as a reading.
	require.ErrorIs(t, err, oracle.ErrAllExhausted)
	assert.True(t, reading.Timestamp.IsZero(), "no reading may be synthesized from the local clock")
	assert.Equal(t, int32(4), hits.Load(), "2 sources x 2 attempts")
}

func TestFetchTrustedTime_GarbageBodyIsAFailure(t *testing.T) {
	garbage := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>proxy login required</html>`))
	}))
	defer garbage.Close()

	client := newTestClient(oracle.Source{Name: "garbage", URL: garbage.URL, Format: oracle.FormatUnixMilliJSON})
	client.Attempts = 1

	_, err := client.FetchTrustedTime(context.Background())
	assert.ErrorIs(t, err, oracle.ErrAllExhausted)
}

func TestFetchTrustedTime_NoSources(t *testing.T) {
	client := newTestClient()

	_, err := client.FetchTrustedTime(context.Background())
	assert.ErrorIs(t, err, oracle.ErrNoSources)
}

func TestFetchTrustedTime_ContextCancellation(t *testing.T) {
	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer down.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := newTestClient(oracle.Source{Name: "down", URL: down.URL, Format: oracle.FormatUnixMilliJSON})

	_, err := client.FetchTrustedTime(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

// stubCredentials implements oracle.CredentialStore without touching the
// real OS keyring.
type stubCredentials struct {
	pass string
}

func (s stubCredentials) Password(service, user string) (string, error) {
	return s.pass, nil
}

func TestFetchTrustedTime_BasicAuth(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok, "basic auth header should be present")
		assert.Equal(t, "campus", user)
		assert.Equal(t, "secret", pass)
		_, _ = w.Write([]byte(`{"data":{"t":"1704110400000"}}`))
	}))
	defer ts.Close()

	client := newTestClient(oracle.Source{
		Name:     "campus-ntp",
		URL:      ts.URL,
		Format:   oracle.FormatUnixMilliJSON,
		Username: "campus",
	})
	client.Credentials = stubCredentials{pass: "secret"}

	_, err := client.FetchTrustedTime(context.Background())
	require.NoError(t, err)
}

func TestFetchTrustedTime_ProtocolSecurity(t *testing.T) {
	client := newTestClient(oracle.Source{Name: "ftp", URL: "ftp://example.com/time", Format: oracle.FormatUnixMilliJSON})
	client.Attempts = 1

	_, err := client.FetchTrustedTime(context.Background())
	assert.ErrorIs(t, err, oracle.ErrAllExhausted)
}

func TestDefaultSources_Integrity(t *testing.T) {
	sources := oracle.DefaultSources()
	require.NotEmpty(t, sources)

	seen := make(map[string]bool)
	for _, s := range sources {
		assert.NotEmpty(t, s.Name)
		assert.NotEmpty(t, s.URL)
		assert.NotEmpty(t, string(s.Format))
		assert.False(t, seen[s.Name], "duplicate source name %s", s.Name)
		seen[s.Name] = true
	}
}
