package estateguru

import (
	"estateguru-notifier/pkg/htmlutil"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

const (
	offerButtonSelector = "a.btn.btn-regular.w-100"
	// index of the loan id in the offer button's href when split on "/",
	// ex. "/portal/investment/single/12345"
	offerIdSegment = 4
)

// ListingFilter is the server side filter applied to the listing page.
type ListingFilter struct {
	MinInterestRate int
	MaxLoanToValue  int
	CashType        string
}

var DefaultListingFilter = ListingFilter{
	MinInterestRate: 12,
	MaxLoanToValue:  70,
	CashType:        "APPROVED",
}

// ListingURL builds the url of the primary market listing fragment.
func ListingURL(baseUrl, listingPath string, filter ListingFilter) (string, error) {
	link, err := url.Parse(strings.TrimSuffix(baseUrl, "/") + listingPath)
	if err != nil {
		return "", err
	}

	query := link.Query()
	query.Set("filterTableId", "dataTablePrimaryMarket")
	if filter.MinInterestRate > 0 {
		query.Set("filter_interestRate", strconv.Itoa(filter.MinInterestRate))
	}
	if filter.MaxLoanToValue > 0 {
		query.Set("filter_ltvRatio", strconv.Itoa(filter.MaxLoanToValue))
	}
	if filter.CashType != "" {
		query.Set("filter_currentCashType", filter.CashType)
	}
	link.RawQuery = query.Encode()

	return link.String(), nil
}

// ScanListing returns the ids of the loans on the listing page in document order, one per
// offer button. A listing without offers is not an error. An offer button whose href does not
// carry an id fails the whole scan.
func ScanListing(doc htmlutil.Document) ([]string, error) {
	anchors := doc.Select(offerButtonSelector)

	ids := make([]string, 0, anchors.Len())
	for i, anchor := range anchors {
		href, err := anchor.Attr("href")
		if err != nil {
			return nil, ParseError{
				Field:  "listing",
				Reason: fmt.Sprintf("offer button %d", i),
				Err:    err,
			}
		}

		segments := strings.Split(href, "/")
		if len(segments) <= offerIdSegment || segments[offerIdSegment] == "" {
			return nil, ParseError{
				Field:  "listing",
				Reason: fmt.Sprintf("offer button %d: no loan id in href %q", i, href),
			}
		}

		ids = append(ids, segments[offerIdSegment])
	}

	return ids, nil
}
