package clients

import (
	"context"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedTransport serves one canned response per request, repeating
// the last one when the script runs out.
type scriptedTransport struct {
	mu       sync.Mutex
	statuses []int
	bodies   []string
	calls    int
}

func (s *scriptedTransport) RoundTrip(_ *http.Request) (*http.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.calls
	s.calls++
	if i >= len(s.statuses) {
		i = len(s.statuses) - 1
	}
	body := "{}"
	if i < len(s.bodies) && s.bodies[i] != "" {
		body = s.bodies[i]
	}
	return &http.Response{
		StatusCode: s.statuses[i],
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     make(http.Header),
	}, nil
}

func (s *scriptedTransport) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func TestAlphaVantageSymbolSearchRetriesServerError(t *testing.T) {
	transport := &scriptedTransport{
		statuses: []int{http.StatusInternalServerError, http.StatusOK},
		bodies: []string{"",
			`{"bestMatches":[{"1. symbol":"NVDA","2. name":"NVIDIA Corporation","9. matchScore":"0.95"}]}`},
	}
	client := &AlphaVantageClient{
		Client: &http.Client{Transport: transport},
		APIKey: "test-key",
	}

	record, err := client.SymbolSearch(context.Background(), "nvidia")
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, "NVDA", record.Ticker)
	assert.Equal(t, 2, transport.callCount(), "a 500 must be retried")
}

func TestYahooChartFailsFastOnNotFound(t *testing.T) {
	transport := &scriptedTransport{statuses: []int{http.StatusNotFound}}
	client := &YahooClient{Client: &http.Client{Transport: transport}}

	_, err := client.Chart(context.Background(), "NOPE", "1mo", "1d")
	require.Error(t, err)
	assert.Equal(t, 1, transport.callCount(), "a 404 must not be retried")
}

func TestPineconeQueryRetriesServerError(t *testing.T) {
	transport := &scriptedTransport{
		statuses: []int{http.StatusServiceUnavailable, http.StatusOK},
		bodies:   []string{"", `{"matches":[]}`},
	}
	client := &PineconeClient{
		Client: &http.Client{Transport: transport},
		Host:   "index.test",
		APIKey: "test-key",
	}

	matches, err := client.Query(context.Background(), []float32{0.1}, 5, nil)
	require.NoError(t, err)
	assert.Empty(t, matches)
	assert.Equal(t, 2, transport.callCount(), "a 503 must be retried")
}
