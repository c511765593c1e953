package decoder

import "errors"

var (
	// ErrBadHeader classifies a file that does not start with the OTRKEY
	// signature or whose header cannot be decrypted.
	ErrBadHeader = errors.New("decoder: not a valid OTRKEY file")

	// ErrTruncated classifies a file that is shorter than its own header
	// claims.
	ErrTruncated = errors.New("decoder: encoded file is truncated")

	// ErrKeyExchange classifies a failure of the OTR key-exchange
	// protocol (request assembly, transport, or response decoding).
	ErrKeyExchange = errors.New("decoder: key exchange with OTR failed")

	// ErrChecksumMismatch classifies a decoded (or source) file whose MD5
	// checksum does not match the value carried in the header.
	ErrChecksumMismatch = errors.New("decoder: checksum verification failed")
)
