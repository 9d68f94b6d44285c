package resilience

import (
	"context"
	"errors"
	"net"
	"regexp"
	"strconv"
	"strings"
)

// quotaMarkers are lower-case substrings that identify rate limiting when the
// error carries no usable status code.
var quotaMarkers = []string{
	"quota",
	"rate limit",
	"rate_limit",
	"resource_exhausted",
	"too many requests",
}

var statusPattern = regexp.MustCompile(`\b([1-5]\d{2})\b`)

// statusCoder is implemented by transport errors that know their HTTP status.
type statusCoder interface {
	StatusCode() int
}

// StatusOf extracts an HTTP-like status from err: first from a StatusCode()
// method anywhere in the chain, then from the first three-digit number in the
// message. Returns 0 when neither is present.
func StatusOf(err error) int {
	if err == nil {
		return 0
	}
	var sc statusCoder
	if errors.As(err, &sc) {
		if code := sc.StatusCode(); code > 0 {
			return code
		}
	}
	if m := statusPattern.FindStringSubmatch(err.Error()); m != nil {
		code, _ := strconv.Atoi(m[1])
		return code
	}
	return 0
}

// Classify sorts a raw attempt error into quota, transient or terminal.
//
//	quota      status 429, or a quota / rate-limit marker in the message
//	transient  status 5xx, or a timeout on the attempt itself
//	terminal   everything else, including caller cancellation
//
// A joined error (errors.Join, a failover that tried several providers) takes
// the most severe kind among its branches, so a 429 from any provider counts
// as quota.
func Classify(err error) Kind {
	if err == nil {
		return ""
	}
	if branches := joinedBranches(err); branches != nil {
		kind := KindTerminal
		for _, b := range branches {
			if k := Classify(b); severity[k] > severity[kind] {
				kind = k
			}
		}
		return kind
	}
	return classifyOne(err)
}

var severity = map[Kind]int{
	KindTerminal:  1,
	KindTransient: 2,
	KindQuota:     3,
	KindCooldown:  4,
}

// joinedBranches follows err's single-wrap chain to the first multi-error and
// returns its branches, or nil when there is none.
func joinedBranches(err error) []error {
	for e := err; e != nil; e = errors.Unwrap(e) {
		if m, ok := e.(interface{ Unwrap() []error }); ok {
			return m.Unwrap()
		}
	}
	return nil
}

func classifyOne(err error) Kind {
	if errors.Is(err, ErrCooldownActive) {
		return KindCooldown
	}
	if errors.Is(err, context.Canceled) {
		return KindTerminal
	}

	status := StatusOf(err)
	if status == 429 {
		return KindQuota
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range quotaMarkers {
		if strings.Contains(msg, marker) {
			return KindQuota
		}
	}

	if status >= 500 && status <= 599 {
		return KindTransient
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTransient
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return KindTransient
	}
	return KindTerminal
}
