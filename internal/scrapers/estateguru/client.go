package estateguru

import (
	"bytes"
	"context"
	"estateguru-notifier/internal/components/assert"
	"estateguru-notifier/internal/components/telemetry"
	"estateguru-notifier/lib/restyutil"
	"estateguru-notifier/pkg/htmlutil"
	"fmt"
	"net/url"
	"strings"
	"time"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

const (
	report_client_fetch_listing = "client.fetch-listing"
	report_client_fetch_loan    = "client.fetch-loan"
)

const (
	DefaultBaseUrl     = "https://estateguru.co"
	DefaultListingPath = "/portal/investment/ajaxGetProjectMainList"
	DefaultDetailPath  = "/investment/show/%s"
)

type ClientOptions struct {
	BaseUrl     string
	ListingPath string
	// DetailPath is a format string with a single %s for the loan id.
	DetailPath    string
	ListingFilter ListingFilter
	Jurisdictions []string

	Timeout time.Duration
	// RequestsPerSecond limits outgoing requests, 0 disables the limit.
	RequestsPerSecond float64
	// CloudflareBypass dresses requests up as a regular browser.
	CloudflareBypass bool
	// Dump receives every raw response when set.
	Dump restyutil.Output
}

// Client fetches and parses Estateguru pages, every call makes exactly one request.
type Client struct {
	http       *resty.Client
	baseUrl    string
	detailPath string
	listingUrl string
	parser     DetailParser

	tel telemetry.API
}

func NewClient(opts ClientOptions, tel telemetry.API) (Client, error) {
	assert.NotNil(tel)
	tel = telemetry.NewScopedAPI("estateguru", tel)

	if opts.BaseUrl == "" {
		opts.BaseUrl = DefaultBaseUrl
	}
	if opts.ListingPath == "" {
		opts.ListingPath = DefaultListingPath
	}
	if opts.DetailPath == "" {
		opts.DetailPath = DefaultDetailPath
	}
	if strings.Count(opts.DetailPath, "%s") != 1 {
		return Client{}, fmt.Errorf("detail path %q must contain exactly one %%s", opts.DetailPath)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}

	baseUrl, err := url.Parse(opts.BaseUrl)
	if err != nil {
		return Client{}, err
	}
	listingUrl, err := ListingURL(opts.BaseUrl, opts.ListingPath, opts.ListingFilter)
	if err != nil {
		return Client{}, err
	}

	httpClient := resty.New()
	httpClient.SetHeader("user-agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36")
	httpClient.SetRedirectPolicy(resty.DomainCheckRedirectPolicy(baseUrl.Hostname()))
	httpClient.SetTimeout(opts.Timeout)
	if opts.CloudflareBypass {
		httpClient.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(httpClient.GetClient().Transport)
	}

	if opts.RequestsPerSecond > 0 {
		// max burst of 1 keeps requests evenly spaced
		rateLimiter := rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
		httpClient.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
			return rateLimiter.Wait(req.Context())
		})
	}

	telemetry.InstrumentResty(httpClient, tel)
	if opts.Dump != nil {
		restyutil.DumpResponses(httpClient, opts.Dump)
	}

	return Client{
		http:       httpClient,
		baseUrl:    strings.TrimSuffix(opts.BaseUrl, "/"),
		detailPath: opts.DetailPath,
		listingUrl: listingUrl,
		parser:     NewDetailParser(opts.Jurisdictions, tel),
		tel:        tel,
	}, nil
}

// LoanURL is the detail page of the loan `id`.
func (c Client) LoanURL(id string) string {
	return c.baseUrl + fmt.Sprintf(c.detailPath, id)
}

func (c Client) ListingURL() string {
	return c.listingUrl
}

func (c Client) fetch(ctx context.Context, link string) (htmlutil.Document, error) {
	res, err := c.http.R().
		SetContext(ctx).
		Get(link)
	if err != nil {
		return htmlutil.Document{}, TransportError{Url: link, Err: err}
	}
	if res.IsError() {
		return htmlutil.Document{}, TransportError{Url: link, Status: res.StatusCode()}
	}

	doc, err := htmlutil.ParseDocument(bytes.NewBuffer(res.Body()))
	if err != nil {
		return htmlutil.Document{}, TransportError{Url: link, Err: err}
	}
	return doc, nil
}

// FetchListing returns the ids of the loans currently open for investment.
func (c Client) FetchListing(ctx context.Context) ([]string, error) {
	c.tel.ReportDebug("fetch listing", c.listingUrl)

	doc, err := c.fetch(ctx, c.listingUrl)
	if err != nil {
		c.tel.ReportBroken(report_client_fetch_listing, err)
		return nil, err
	}
	ids, err := ScanListing(doc)
	if err != nil {
		c.tel.ReportBroken(report_client_fetch_listing, err)
		return nil, err
	}

	c.tel.ReportCount("listing.ids", int64(len(ids)))
	return ids, nil
}

// FetchLoan fetches and parses the detail page of the loan `id`.
func (c Client) FetchLoan(ctx context.Context, id string) (Loan, error) {
	link := c.LoanURL(id)
	c.tel.ReportDebug("fetch loan", id, link)

	doc, err := c.fetch(ctx, link)
	if err != nil {
		c.tel.ReportBroken(report_client_fetch_loan, err, id)
		return Loan{}, err
	}
	loan, err := c.parser.ParseLoan(id, link, doc)
	if err != nil {
		c.tel.ReportBroken(report_client_fetch_loan, err, id)
		return Loan{}, fmt.Errorf("loan %s: %w", id, err)
	}
	return loan, nil
}
