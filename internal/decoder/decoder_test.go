package decoder

import (
	"crypto/md5" //nolint:gosec
	"encoding/hex"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCBCKeyLength(t *testing.T) {
	key := cbcKey("someuser", "somepassword", "20260730")
	assert.Len(t, key, 56, "cbc key must be 56 hex characters (28 bytes)")
	_, err := hex.DecodeString(key)
	assert.NoError(t, err, "cbc key must be valid hex")
}

func TestCBCKeyDeterministic(t *testing.T) {
	a := cbcKey("user", "pass", "20260101")
	b := cbcKey("user", "pass", "20260101")
	assert.Equal(t, a, b)

	c := cbcKey("user", "pass", "20260102")
	assert.NotEqual(t, a, c)
}

func TestTodayYYYYMMDD(t *testing.T) {
	now := time.Date(2026, time.March, 5, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, "20260305", todayYYYYMMDD(now))
}

func TestChunkSizes(t *testing.T) {
	cases := []struct {
		payload int64
		want    []int64
	}{
		{0, []int64{}},
		{8, []int64{8}},
		{maxChunkSize, []int64{maxChunkSize}},
		{maxChunkSize + 16, []int64{maxChunkSize, 16}},
		{maxChunkSize + 20, []int64{maxChunkSize, 16, 4}},
		{10, []int64{8, 2}},
	}
	for _, c := range cases {
		got := chunkSizes(c.payload)
		assert.Equal(t, c.want, got, "chunkSizes(%d)", c.payload)

		var total int64
		for _, s := range got {
			total += s
		}
		assert.Equal(t, c.payload, total, "chunk sizes must sum to payload size")
	}
}

func TestVerifyChecksum(t *testing.T) {
	sum := md5.Sum([]byte("hello world")) //nolint:gosec
	full := hex.EncodeToString(sum[:])    // 32 chars

	// Build the 48-char OTR hash by inserting a junk character after every
	// two genuine hex digits (positions where (i+1)%3==0 are the inserted
	// ones, matching verifyChecksum's selection).
	var otrHash []byte
	gi := 0
	for i := 0; len(otrHash) < 48; i++ {
		if (i+1)%3 == 0 {
			otrHash = append(otrHash, 'f')
		} else {
			otrHash = append(otrHash, full[gi])
			gi++
		}
	}

	assert.True(t, verifyChecksum(sum[:], string(otrHash)))
}

func TestVerifyChecksumRejectsWrongLength(t *testing.T) {
	assert.False(t, verifyChecksum([]byte{1, 2, 3}, "tooshort"))
}

func TestVerifyChecksumRejectsMismatch(t *testing.T) {
	sum := md5.Sum([]byte("hello")) //nolint:gosec
	assert.False(t, verifyChecksum(sum[:], "000000000000000000000000000000000000000000000"+"000"))
}

func TestParseParams(t *testing.T) {
	params, err := parseParams("FN=video.avi&SZ=12345&OH=abc&FH=def")
	require.NoError(t, err)
	assert.Equal(t, "video.avi", params["FN"])
	assert.Equal(t, "12345", params["SZ"])
}

func TestParseParamsMissingRequired(t *testing.T) {
	_, err := parseParams("FN=video.avi", "SZ")
	assert.Error(t, err)
}

func TestLECipherDecryptECBChangesBlock(t *testing.T) {
	key := []byte("0123456789abcdef")
	c, err := newLECipher(key)
	require.NoError(t, err)

	data := []byte("ABCDEFGH") // exactly one block
	orig := append([]byte{}, data...)

	c.decryptECBInPlace(data)
	assert.NotEqual(t, orig, data)
}

func TestLECipherCBCRoundTrip(t *testing.T) {
	key := []byte("somesharedsecretkey")
	c, err := newLECipher(key)
	require.NoError(t, err)

	iv := []byte("IVBYTES!")
	plain := []byte("ABCDEFGHIJKLMNOP") // two blocks
	data := append([]byte{}, plain...)

	c.encryptCBCInPlace(data, iv)
	assert.NotEqual(t, plain, data)

	c2, err := newLECipher(key)
	require.NoError(t, err)
	c2.decryptCBCInPlace(data, iv)
	assert.Equal(t, plain, data)
}
