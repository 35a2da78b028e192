// Package autofill ranks and deduplicates saved accounts for display
// and for export to an external identity store. Pure algorithms, no
// I/O.
package autofill

import (
	"strings"

	"golang.org/x/net/publicsuffix"
)

// TLDService resolves a domain to its registrable eTLD+1. An empty
// result means the domain has no registrable part.
type TLDService interface {
	ETLDPlus1(domain string) string
}

// PublicSuffixService resolves eTLD+1 against the embedded public
// suffix list, handling multi-label TLDs like co.uk.
type PublicSuffixService struct{}

func (PublicSuffixService) ETLDPlus1(domain string) string {
	host := strings.ToLower(strings.TrimSuffix(domain, "."))
	if i := strings.IndexByte(host, ':'); i >= 0 {
		host = host[:i]
	}
	etld, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return ""
	}
	return etld
}
