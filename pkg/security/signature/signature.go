package signature

import (
	"net/http"
	"strconv"
	"strings"
)

// Auth headers attached by the fleet router.
const (
	// HeaderSignature carries the base64 RSA signature.
	HeaderSignature = "X-Auth-Signature"

	// HeaderCost carries the declared request cost as a decimal string.
	HeaderCost = "X-Auth-Cost"

	// HeaderEndpoint carries the logical endpoint name.
	HeaderEndpoint = "X-Auth-Endpoint"

	// HeaderReqnum carries the router's monotonic request number.
	HeaderReqnum = "X-Auth-Reqnum"

	// HeaderURL carries the worker URL the router targeted.
	HeaderURL = "X-Auth-Url"
)

// authHeaders lists every header stripped before forwarding.
var authHeaders = []string{
	HeaderSignature,
	HeaderCost,
	HeaderEndpoint,
	HeaderReqnum,
	HeaderURL,
}

// Signature is the auth material of one request, exactly as received.
// Values are kept as strings: the signed message is built from the received
// bytes, not from re-encoded interpretations of them.
type Signature struct {
	Signature string
	Cost      string
	Endpoint  string
	Reqnum    string
	URL       string
}

// FromRequest extracts the auth headers of a request.
func FromRequest(r *http.Request) Signature {
	return Signature{
		Signature: r.Header.Get(HeaderSignature),
		Cost:      r.Header.Get(HeaderCost),
		Endpoint:  r.Header.Get(HeaderEndpoint),
		Reqnum:    r.Header.Get(HeaderReqnum),
		URL:       r.Header.Get(HeaderURL),
	}
}

// Message builds the signed message: cost, endpoint, reqnum, and url joined
// by newlines, in that order.
func (s Signature) Message() []byte {
	return []byte(strings.Join([]string{s.Cost, s.Endpoint, s.Reqnum, s.URL}, "\n"))
}

// DeclaredCost parses the cost header. A missing or unparseable cost is
// zero, which admission replaces with the configured default cost.
func (s Signature) DeclaredCost() float64 {
	if s.Cost == "" {
		return 0
	}
	cost, err := strconv.ParseFloat(s.Cost, 64)
	if err != nil {
		return 0
	}
	return cost
}

// StripHeaders removes the auth headers from a header set. Called on every
// forwarded request; the backend never sees router credentials.
func StripHeaders(h http.Header) {
	for _, name := range authHeaders {
		h.Del(name)
	}
}
