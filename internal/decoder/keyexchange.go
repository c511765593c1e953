package decoder

import (
	"context"
	"crypto/md5" //nolint:gosec // required by the OTR key-exchange protocol, not for security
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"strings"
	"time"
)

const (
	otrURL         = "http://onlinetvrecorder.com/quelle_neu1.php"
	decoderVersion = "0.4.1133"
	otrErrorPrefix = "MessageToBePrintedInDecoder"

	// ik is a fixed installation key every OTR decoder identifies itself
	// with; it is not a per-user secret.
	ik = "aFzW1tL7nP9vXd8yUfB5kLoSyATQ"

	blockSize = 8
)

// Credentials are the OTR account credentials used to authenticate the
// key-exchange request (spec §6, internal/config.Decoding).
type Credentials struct {
	User     string
	Password string
}

func md5Hex(s string) string {
	sum := md5.Sum([]byte(s)) //nolint:gosec
	return hex.EncodeToString(sum[:])
}

// cbcKey derives the key used to encrypt/decrypt the key-exchange
// request/response, combining MD5 hashes of the account credentials with
// today's date in a fixed interleaving (spec §4.5's "CBC key derivation").
func cbcKey(user, password, today string) string {
	userHash := md5Hex(user)
	passwordHash := md5Hex(password)
	var b strings.Builder
	b.WriteString(userHash[0:13])
	b.WriteString(today[0:4])
	b.WriteString(passwordHash[0:11])
	b.WriteString(today[4:6])
	b.WriteString(userHash[21:32])
	b.WriteString(today[6:])
	b.WriteString(passwordHash[19:32])
	return b.String()
}

func todayYYYYMMDD(now time.Time) string {
	return now.Format("20060102")
}

func randomBytes(n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return nil, fmt.Errorf("could not generate random bytes: %w", err)
	}
	return buf, nil
}

const hexDigits = "0123456789abcdef"

func randomHexString(n int) (string, error) {
	var b strings.Builder
	for i := 0; i < n; i++ {
		idx, err := rand.Int(rand.Reader, big.NewInt(int64(len(hexDigits))))
		if err != nil {
			return "", fmt.Errorf("could not generate random hex string: %w", err)
		}
		b.WriteByte(hexDigits[idx.Int64()])
	}
	return b.String(), nil
}

// requestURL assembles the URL for the decoding-key request: an
// encrypted, padded payload carrying the account credentials and the
// file's header parameters, plus two cleartext query parameters.
func requestURL(h *header, creds Credentials, cbcKeyHex string, now time.Time) (string, error) {
	today := todayYYYYMMDD(now)

	payload := "&A=" + creds.User +
		"&P=" + creds.Password +
		"&FN=" + h.filename +
		"&OH=" + h.encodedHash +
		"&M=" + md5Hex("something") +
		"&OS=" + md5Hex("Windows") +
		"&LN=DE" +
		"&VN=" + decoderVersion +
		"&IR=TRUE" +
		"&IK=" + ik +
		"&D="

	padLen := preambleLength - blockSize - len(payload)
	if padLen < 0 {
		return "", fmt.Errorf("decoding key request payload is too long")
	}
	pad, err := randomHexString(padLen)
	if err != nil {
		return "", err
	}
	payload += pad

	iv, err := randomBytes(blockSize)
	if err != nil {
		return "", err
	}

	keyBytes, err := hex.DecodeString(cbcKeyHex)
	if err != nil {
		return "", fmt.Errorf("could not turn CBC key into bytes: %w", err)
	}
	cipher, err := newLECipher(keyBytes)
	if err != nil {
		return "", fmt.Errorf("could not build request cipher: %w", err)
	}

	payloadBytes := []byte(payload)
	cipher.encryptCBCInPlace(payloadBytes, iv)

	code := append(append([]byte{}, iv...), payloadBytes...)

	return fmt.Sprintf("%s?code=%s&AA=%s&ZZ=%s",
		otrURL, base64.StdEncoding.EncodeToString(code), creds.User, today), nil
}

// requestDecodingKey performs the key-exchange HTTP round-trip and
// returns the decoding key (still hex-encoded).
func requestDecodingKey(ctx context.Context, httpClient *http.Client, h *header, creds Credentials, now time.Time) (string, error) {
	today := todayYYYYMMDD(now)
	key := cbcKey(creds.User, creds.Password, today)

	reqURL, err := requestURL(h, creds, key, now)
	if err != nil {
		return "", fmt.Errorf("%w: could not assemble request: %v", ErrKeyExchange, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrKeyExchange, err)
	}
	req.Header.Set("User-Agent", "Windows-OTR-Decoder/"+decoderVersion)

	resp, err := httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: request failed: %v", ErrKeyExchange, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: could not read response: %v", ErrKeyExchange, err)
	}
	text := string(body)

	if strings.HasPrefix(text, otrErrorPrefix) {
		return "", fmt.Errorf("%w: OTR reported: %s", ErrKeyExchange, strings.TrimPrefix(text, otrErrorPrefix))
	}

	decoded, err := base64.StdEncoding.DecodeString(text)
	if err != nil {
		return "", fmt.Errorf("%w: response is not valid base64: %v", ErrKeyExchange, err)
	}
	if len(decoded) < 2*blockSize || len(decoded)%blockSize != 0 {
		return "", fmt.Errorf("%w: response length %d is not a multiple of %d", ErrKeyExchange, len(decoded), blockSize)
	}

	iv := decoded[:blockSize]
	payload := decoded[blockSize:]

	keyBytes, err := hex.DecodeString(key)
	if err != nil {
		return "", fmt.Errorf("%w: could not turn CBC key into bytes: %v", ErrKeyExchange, err)
	}
	cipher, err := newLECipher(keyBytes)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrKeyExchange, err)
	}
	cipher.decryptCBCInPlace(payload, iv)

	params, err := parseParams(string(payload), paramDecodingKey)
	if err != nil {
		return "", fmt.Errorf("%w: response is corrupt: %v", ErrKeyExchange, err)
	}
	return params[paramDecodingKey], nil
}
