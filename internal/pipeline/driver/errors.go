package driver

import (
	"errors"
	"fmt"

	"github.com/mipimipi/otr/internal/cutlistprovider"
	"github.com/mipimipi/otr/internal/decoder"
)

// Kind classifies a per-recording failure for reporting and disposition
// (spec §7).
type Kind int

const (
	KindNoCutlist Kind = iota
	KindCutlistInvalid
	KindCutlistSubmissionFailed
	KindDecodeVerification
	KindProtocolError
	KindIOExternal
	KindOther
)

func (k Kind) String() string {
	switch k {
	case KindNoCutlist:
		return "NoCutlist"
	case KindCutlistInvalid:
		return "CutlistInvalid"
	case KindCutlistSubmissionFailed:
		return "CutlistSubmissionFailed"
	case KindDecodeVerification:
		return "DecodeVerification"
	case KindProtocolError:
		return "ProtocolError"
	case KindIOExternal:
		return "IOExternal"
	default:
		return "Other"
	}
}

// Error wraps a per-recording failure with its kind, the operation that
// raised it, and the recording's key, in the shape of cutlistprovider's
// ProviderError.
type Error struct {
	Kind Kind
	Op   string
	Key  string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("driver: %s: %s (%s): %v", e.Key, e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// classifyDecodeErr maps a decoder error onto its driver-level kind.
func classifyDecodeErr(key string, err error) error {
	switch {
	case errors.Is(err, decoder.ErrChecksumMismatch):
		return &Error{Kind: KindDecodeVerification, Op: "decode", Key: key, Err: err}
	case errors.Is(err, decoder.ErrKeyExchange):
		return &Error{Kind: KindProtocolError, Op: "decode", Key: key, Err: err}
	default:
		return &Error{Kind: KindIOExternal, Op: "decode", Key: key, Err: err}
	}
}

// classifyProviderErr maps a cutlistprovider error onto its driver-level
// kind.
func classifyProviderErr(key, op string, err error) error {
	switch {
	case errors.Is(err, cutlistprovider.ErrNoCutlist):
		return &Error{Kind: KindNoCutlist, Op: op, Key: key, Err: err}
	case errors.Is(err, cutlistprovider.ErrSubmitFailed):
		return &Error{Kind: KindCutlistSubmissionFailed, Op: op, Key: key, Err: err}
	default:
		return &Error{Kind: KindIOExternal, Op: op, Key: key, Err: err}
	}
}
