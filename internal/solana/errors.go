package solana

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ErrorKind classifies gateway failures so the retry policy can branch on
// type instead of sniffing error message substrings.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindRateLimited
	KindTimeout
	KindNotFound
	KindMalformed
)

// String returns a short label for the kind.
func (k ErrorKind) String() string {
	switch k {
	case KindRateLimited:
		return "rate_limited"
	case KindTimeout:
		return "timeout"
	case KindNotFound:
		return "not_found"
	case KindMalformed:
		return "malformed"
	default:
		return "unknown"
	}
}

// RPCError is the typed error produced by the gateway for a failed call.
type RPCError struct {
	Kind   ErrorKind
	Method string
	Code   int // JSON-RPC error code or HTTP status, 0 if not applicable
	Err    error
}

func (e *RPCError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("rpc %s (%s): %v", e.Method, e.Kind, e.Err)
	}
	return fmt.Sprintf("rpc %s (%s): code %d", e.Method, e.Kind, e.Code)
}

func (e *RPCError) Unwrap() error {
	return e.Err
}

// KindOf extracts the ErrorKind from err, unwrapping as needed.
// Non-gateway errors map to KindUnknown; context deadline to KindTimeout.
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindUnknown
	}
	var rpcErr *RPCError
	if errors.As(err, &rpcErr) {
		return rpcErr.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTimeout
	}
	return KindUnknown
}
