package remote

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"net"
	"syscall"
)

// Transport-error classes, used for diagnostics only. Classification
// never changes retry behavior: every class is retried at the caller's
// normal cadence.
const (
	ClassDNS      = "dns"
	ClassTimeout  = "timeout"
	ClassRefused  = "refused"
	ClassTLS      = "tls"
	ClassDecode   = "decode"
	ClassStatus   = "status"
	ClassCanceled = "canceled"
	ClassOther    = "other"
)

// Classify buckets a transport/parse error by symptom so log lines point
// at the actual failure (bad DNS vs. dead server vs. broken TLS).
func Classify(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return ClassCanceled
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return ClassDNS
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ClassTimeout
	}
	if errors.Is(err, syscall.ECONNREFUSED) {
		return ClassRefused
	}
	var recordErr tls.RecordHeaderError
	var certErr *tls.CertificateVerificationError
	var unknownAuth x509.UnknownAuthorityError
	var hostErr x509.HostnameError
	if errors.As(err, &recordErr) || errors.As(err, &certErr) ||
		errors.As(err, &unknownAuth) || errors.As(err, &hostErr) {
		return ClassTLS
	}
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return ClassDecode
	}
	if errors.Is(err, ErrBadStatus) {
		return ClassStatus
	}
	return ClassOther
}
