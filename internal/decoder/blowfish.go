package decoder

import "golang.org/x/crypto/blowfish"

// leCipher wraps golang.org/x/crypto/blowfish.Cipher to match the OTR
// protocol's byte order: each 8-byte block's two 32-bit halves are packed
// little-endian, while golang.org/x/crypto/blowfish (like the reference
// algorithm) treats them as big-endian. Reversing the bytes of each half
// before and after calling through to the standard cipher produces the
// same result as packing the words little-endian directly, since the
// Feistel network treats each half as an opaque 32-bit word.
type leCipher struct {
	c *blowfish.Cipher
}

func newLECipher(key []byte) (*leCipher, error) {
	c, err := blowfish.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return &leCipher{c: c}, nil
}

func swapHalves(b []byte) {
	b[0], b[1], b[2], b[3] = b[3], b[2], b[1], b[0]
	b[4], b[5], b[6], b[7] = b[7], b[6], b[5], b[4]
}

// decryptECBInPlace decrypts data (whose length must be a multiple of 8)
// in Blowfish-ECB mode, no padding, using OTR's little-endian word order.
func (c *leCipher) decryptECBInPlace(data []byte) {
	for off := 0; off+blowfish.BlockSize <= len(data); off += blowfish.BlockSize {
		block := data[off : off+blowfish.BlockSize]
		swapHalves(block)
		c.c.Decrypt(block, block)
		swapHalves(block)
	}
}

// encryptCBCInPlace encrypts data (whose length must be a multiple of 8)
// in Blowfish-CBC mode with the given IV, no padding, OTR byte order. iv
// is not modified.
func (c *leCipher) encryptCBCInPlace(data, iv []byte) {
	prev := make([]byte, blowfish.BlockSize)
	copy(prev, iv)

	for off := 0; off+blowfish.BlockSize <= len(data); off += blowfish.BlockSize {
		block := data[off : off+blowfish.BlockSize]
		for i := range block {
			block[i] ^= prev[i]
		}
		swapHalves(block)
		c.c.Encrypt(block, block)
		swapHalves(block)
		copy(prev, block)
	}
}

// decryptCBCInPlace decrypts data (whose length must be a multiple of 8)
// in Blowfish-CBC mode with the given IV, no padding, OTR byte order.
func (c *leCipher) decryptCBCInPlace(data, iv []byte) {
	prev := make([]byte, blowfish.BlockSize)
	copy(prev, iv)

	for off := 0; off+blowfish.BlockSize <= len(data); off += blowfish.BlockSize {
		block := data[off : off+blowfish.BlockSize]
		cipherCopy := make([]byte, blowfish.BlockSize)
		copy(cipherCopy, block)

		swapHalves(block)
		c.c.Decrypt(block, block)
		swapHalves(block)
		for i := range block {
			block[i] ^= prev[i]
		}
		copy(prev, cipherCopy)
	}
}
