package estateguru

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeSite struct {
	server   *httptest.Server
	requests atomic.Int64
}

func newFakeSite(t *testing.T, pages map[string][]byte) *fakeSite {
	site := &fakeSite{}
	site.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		site.requests.Add(1)
		page, ok := pages[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("content-type", "text/html; charset=utf-8")
		w.Write(page)
	}))
	t.Cleanup(site.server.Close)
	return site
}

func newTestClient(t *testing.T, baseUrl string) Client {
	client, err := NewClient(ClientOptions{
		BaseUrl:       baseUrl,
		ListingFilter: DefaultListingFilter,
		Timeout:       5 * time.Second,
	}, &recordingTel{})
	require.NoError(t, err)
	return client
}

func TestClientFetchListing(t *testing.T) {
	site := newFakeSite(t, map[string][]byte{
		DefaultListingPath: readTestdata(t, "listing.html"),
	})
	client := newTestClient(t, site.server.URL)

	require.True(t, strings.HasPrefix(client.ListingURL(), site.server.URL+DefaultListingPath+"?"))

	ids, err := client.FetchListing(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"101", "102", "103"}, ids)
	require.EqualValues(t, 1, site.requests.Load())
}

func TestClientFetchLoan(t *testing.T) {
	site := newFakeSite(t, map[string][]byte{
		"/investment/show/101": readTestdata(t, "loan_101.html"),
	})
	client := newTestClient(t, site.server.URL)

	loan, err := client.FetchLoan(context.Background(), "101")
	require.NoError(t, err)
	require.Equal(t, site.server.URL+"/investment/show/101", loan.Url)
	require.Equal(t, 6, loan.DurationMonths)
	require.Equal(t, "Spain", loan.Location)
	require.EqualValues(t, 1, site.requests.Load())
}

func TestClientFetchLoanNotFound(t *testing.T) {
	site := newFakeSite(t, map[string][]byte{})
	client := newTestClient(t, site.server.URL)

	_, err := client.FetchLoan(context.Background(), "404")

	var transportErr TransportError
	require.True(t, errors.As(err, &transportErr))
	require.Equal(t, http.StatusNotFound, transportErr.Status)
	require.Equal(t, site.server.URL+"/investment/show/404", transportErr.Url)
}

func TestClientFetchLoanUnreachable(t *testing.T) {
	site := newFakeSite(t, map[string][]byte{})
	client := newTestClient(t, site.server.URL)
	site.server.Close()

	_, err := client.FetchLoan(context.Background(), "1")

	var transportErr TransportError
	require.True(t, errors.As(err, &transportErr))
	require.Equal(t, 0, transportErr.Status)
	require.Error(t, transportErr.Err)
}

func TestClientFetchLoanParseError(t *testing.T) {
	site := newFakeSite(t, map[string][]byte{
		"/investment/show/9": []byte(`<html><body>maintenance</body></html>`),
	})
	client := newTestClient(t, site.server.URL)

	_, err := client.FetchLoan(context.Background(), "9")

	var parseErr ParseError
	require.True(t, errors.As(err, &parseErr))
	require.Equal(t, "interest_rate", parseErr.Field)
	require.Contains(t, err.Error(), "loan 9")
}

func TestClientDetailPath(t *testing.T) {
	client, err := NewClient(ClientOptions{
		BaseUrl:    "https://estateguru.co/",
		DetailPath: "/portal/investment/show/%s",
	}, &recordingTel{})
	require.NoError(t, err)
	require.Equal(t, "https://estateguru.co/portal/investment/show/55", client.LoanURL("55"))

	client, err = NewClient(ClientOptions{}, &recordingTel{})
	require.NoError(t, err)
	require.Equal(t, "https://estateguru.co/investment/show/55", client.LoanURL("55"))

	_, err = NewClient(ClientOptions{DetailPath: "/investment/show"}, &recordingTel{})
	require.Error(t, err)
}

func TestClientRateLimit(t *testing.T) {
	site := newFakeSite(t, map[string][]byte{
		"/investment/show/101": readTestdata(t, "loan_101.html"),
	})
	client, err := NewClient(ClientOptions{
		BaseUrl:           site.server.URL,
		RequestsPerSecond: 20,
	}, &recordingTel{})
	require.NoError(t, err)

	start := time.Now()
	for i := 0; i < 3; i++ {
		_, err := client.FetchLoan(context.Background(), "101")
		require.NoError(t, err)
	}
	// the first request goes through immediately, the next two wait 50ms each
	require.GreaterOrEqual(t, time.Since(start), 90*time.Millisecond)
}

type memoryDump map[string]string

func (m memoryDump) Write(id string, contents string) {
	m[id] = contents
}

func TestClientDump(t *testing.T) {
	site := newFakeSite(t, map[string][]byte{
		"/investment/show/101": readTestdata(t, "loan_101.html"),
	})
	dump := memoryDump{}
	client, err := NewClient(ClientOptions{
		BaseUrl: site.server.URL,
		Timeout: 5 * time.Second,
		Dump:    dump,
	}, &recordingTel{})
	require.NoError(t, err)

	_, err = client.FetchLoan(context.Background(), "101")
	require.NoError(t, err)
	require.Len(t, dump, 1)
	require.Contains(t, dump["1.txt"], "GET "+site.server.URL+"/investment/show/101")
	require.Contains(t, dump["1.txt"], "interestRateAmountBox")
}
