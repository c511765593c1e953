package decoder

import (
	"encoding/hex"
	"fmt"
	"io"
	"strconv"
	"strings"
)

const (
	filetypeLength = 10
	preambleLength = 512
	headerLength   = filetypeLength + preambleLength

	otrkeyFiletype = "OTRKEYFILE"

	// preambleKeyHex decrypts the 512-byte header preamble; it is a fixed
	// value baked into every OTR decoder, not a secret derived per-user.
	preambleKeyHex = "EF3AB29CD19F0CAC5759C7ABD12CC92BA3FE0AFEBF960D63FEBD0F45"
)

const (
	paramFilename     = "FN"
	paramFilesize     = "SZ"
	paramEncodedHash  = "OH"
	paramDecodedHash  = "FH"
	paramDecodingKey  = "HP"
)

// header holds the parameters carried in an OTRKEY file's encrypted
// preamble.
type header struct {
	filename     string
	filesize     int64
	encodedHash  string
	decodedHash  string
}

// readHeader reads and decrypts the fixed-size header at the start of r,
// validating the OTRKEYFILE signature (spec §4.5).
func readHeader(r io.Reader) (*header, error) {
	buf := make([]byte, headerLength)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTruncated, err)
	}

	if string(buf[:filetypeLength]) != otrkeyFiletype {
		return nil, fmt.Errorf("%w: missing %q signature", ErrBadHeader, otrkeyFiletype)
	}

	keyBytes, err := hex.DecodeString(preambleKeyHex)
	if err != nil {
		return nil, fmt.Errorf("internal preamble key is malformed: %w", err)
	}
	cipher, err := newLECipher(keyBytes)
	if err != nil {
		return nil, fmt.Errorf("%w: could not build header cipher: %v", ErrBadHeader, err)
	}

	preamble := buf[filetypeLength:]
	cipher.decryptECBInPlace(preamble)

	params, err := parseParams(string(preamble), paramFilename, paramFilesize, paramEncodedHash, paramDecodedHash)
	if err != nil {
		return nil, fmt.Errorf("%w: decrypted header is corrupt: %v", ErrBadHeader, err)
	}

	size, err := strconv.ParseInt(params[paramFilesize], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: filesize parameter %q is not numeric", ErrBadHeader, params[paramFilesize])
	}

	return &header{
		filename:    params[paramFilename],
		filesize:    size,
		encodedHash: params[paramEncodedHash],
		decodedHash: params[paramDecodedHash],
	}, nil
}

// parseParams extracts "key1=value1&key2=value2&..." pairs, failing if
// any of mustHave is absent.
func parseParams(s string, mustHave ...string) (map[string]string, error) {
	params := make(map[string]string)
	for _, pair := range strings.Split(s, "&") {
		if pair == "" {
			continue
		}
		k, v, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		params[k] = v
	}
	for _, k := range mustHave {
		if _, ok := params[k]; !ok {
			return nil, fmt.Errorf("parameter %q could not be extracted", k)
		}
	}
	return params, nil
}
