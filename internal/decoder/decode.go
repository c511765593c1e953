// Package decoder turns an OTRKEY-encrypted recording into its plaintext
// form (spec §4.5): it parses the file's encrypted header, exchanges keys
// with OTR's web service, decrypts the payload in parallel chunks, and
// verifies both the source and result against the checksums carried in
// the header.
package decoder

import (
	"context"
	"crypto/md5" //nolint:gosec // required for OTR's wire checksum format
	"encoding/hex"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"runtime"
	"time"

	"github.com/mipimipi/otr/internal/log"
	"golang.org/x/sync/errgroup"
)

// maxChunkSize is the largest unit of payload handed to a single decrypt
// worker; it must be a multiple of blockSize.
const maxChunkSize = 10 * 1024 * 1024

// Decode reads the OTRKEY-encoded file at inPath, decrypts it using keys
// obtained from OTR's key-exchange service, and writes the plaintext to
// outPath. On any failure, a partially-written outPath is removed.
// inPath is removed only after the decoded file's checksum has been
// verified.
func Decode(ctx context.Context, inPath, outPath string, creds Credentials) error {
	logger := log.WithComponent("decoder")

	in, err := os.Open(inPath)
	if err != nil {
		return fmt.Errorf("could not open %s: %w", inPath, err)
	}
	defer in.Close()

	hdr, err := readHeader(in)
	if err != nil {
		return fmt.Errorf("%s: %w", inPath, err)
	}

	info, err := in.Stat()
	if err != nil {
		return fmt.Errorf("could not stat %s: %w", inPath, err)
	}
	if info.Size() < hdr.filesize {
		return fmt.Errorf("%w: %s reports %d bytes but header claims %d", ErrTruncated, inPath, info.Size(), hdr.filesize)
	}

	httpClient := &http.Client{
		Transport: &http.Transport{
			DialContext: (&net.Dialer{Timeout: 10 * time.Second}).DialContext,
		},
		Timeout: 30 * time.Second,
	}

	logger.Info().Str("file", hdr.filename).Msg("requesting decoding key")
	key, err := requestDecodingKey(ctx, httpClient, hdr, creds, time.Now())
	if err != nil {
		return fmt.Errorf("%s: %w", inPath, err)
	}

	if err := decodePayload(ctx, in, outPath, hdr, key); err != nil {
		_ = os.Remove(outPath)
		return fmt.Errorf("%s: %w", inPath, err)
	}

	if err := os.Remove(inPath); err != nil {
		return fmt.Errorf("decoded %s successfully but could not remove encoded original: %w", inPath, err)
	}
	logger.Info().Str("file", hdr.filename).Msg("decoded successfully")
	return nil
}

// chunkSizes splits payloadSize bytes into a sequence of chunk lengths:
// as many maxChunkSize chunks as fit, then whatever full blocks remain,
// then a final sub-block remainder (spec §4.5).
func chunkSizes(payloadSize int64) []int64 {
	fullChunks := payloadSize / maxChunkSize
	remainder := payloadSize % maxChunkSize

	sizes := make([]int64, 0, fullChunks+2)
	for i := int64(0); i < fullChunks; i++ {
		sizes = append(sizes, maxChunkSize)
	}
	if whole := remainder / blockSize * blockSize; whole > 0 {
		sizes = append(sizes, whole)
	}
	if tail := remainder % blockSize; tail > 0 {
		sizes = append(sizes, tail)
	}
	return sizes
}

// decodePayload reads the payload sequentially, decrypts chunks
// concurrently (bounded to the host's CPU count), and writes results to
// outPath in their original order, then verifies both input and output
// checksums against the header.
func decodePayload(ctx context.Context, in io.Reader, outPath string, hdr *header, hexKey string) error {
	keyBytes, err := hexDecodeKey(hexKey)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrKeyExchange, err)
	}

	out, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("could not create %s: %w", outPath, err)
	}
	defer out.Close()

	payloadSize := hdr.filesize - headerLength
	sizes := chunkSizes(payloadSize)

	encodedHasher := md5.New() //nolint:gosec
	decodedHasher := md5.New() //nolint:gosec

	chunks := make([][]byte, len(sizes))
	for i, size := range sizes {
		buf := make([]byte, size)
		if _, err := io.ReadFull(in, buf); err != nil {
			return fmt.Errorf("could not read chunk %d: %w", i, err)
		}
		encodedHasher.Write(buf)
		chunks[i] = buf
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for i := range chunks {
		i := i
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			if len(chunks[i]) >= blockSize {
				cipher, err := newLECipher(keyBytes)
				if err != nil {
					return fmt.Errorf("could not build chunk cipher: %w", err)
				}
				n := len(chunks[i]) / blockSize * blockSize
				cipher.decryptECBInPlace(chunks[i][:n])
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("could not decrypt payload: %w", err)
	}

	for i, chunk := range chunks {
		decodedHasher.Write(chunk)
		if _, err := out.Write(chunk); err != nil {
			return fmt.Errorf("could not write chunk %d to %s: %w", i, outPath, err)
		}
	}

	if !verifyChecksum(encodedHasher.Sum(nil), hdr.encodedHash) {
		return fmt.Errorf("%w: encoded file", ErrChecksumMismatch)
	}
	if !verifyChecksum(decodedHasher.Sum(nil), hdr.decodedHash) {
		return fmt.Errorf("%w: decoded file", ErrChecksumMismatch)
	}
	return nil
}

func hexDecodeKey(hexKey string) ([]byte, error) {
	return hex.DecodeString(hexKey)
}

// verifyChecksum checks a computed MD5 sum against OTR's 48-character
// checksum format, which encodes 32 hex digits with one redundant
// character inserted after every two: the genuine digits are every
// position whose 1-indexed index is NOT a multiple of 3 (spec §4.5).
func verifyChecksum(sum []byte, hash string) bool {
	if len(hash) != 48 {
		return false
	}
	reduced := make([]byte, 0, 32)
	for i, c := range hash {
		if (i+1)%3 != 0 {
			reduced = append(reduced, byte(c))
		}
	}
	want, err := hex.DecodeString(string(reduced))
	if err != nil || len(want) != len(sum) {
		return false
	}
	for i := range sum {
		if sum[i] != want[i] {
			return false
		}
	}
	return true
}
