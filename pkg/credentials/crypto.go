package credentials

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/md5"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/hkdf"
)

const (
	ivSize  = aes.BlockSize
	tagSize = sha256.Size

	fieldSeparator = ":"
	macInfo        = "opscreds field authentication"
)

// ErrDecrypt is returned for any field that cannot be authenticated and decrypted.
var ErrDecrypt = errors.New("unable to decrypt credential field")

// DeriveKey collapses a machine identifier into the local encryption key:
// the 128-bit MD5 digest rendered as 32 hex characters, which is the
// AES-256 key width. The same identifier always yields the same key.
func DeriveKey(machineID string) []byte {
	sum := md5.Sum([]byte(machineID))
	key := make([]byte, hex.EncodedLen(len(sum)))
	hex.Encode(key, sum[:])
	return key
}

// EncryptField encrypts plaintext with AES-CBC under a fresh random IV and
// returns "ivHex:cipherHex". The cipher segment carries an HMAC-SHA256 tag
// over iv||ciphertext so tampering is detected before decryption.
func EncryptField(plaintext string, key []byte) (string, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("invalid encryption key: %w", err)
	}

	iv := make([]byte, ivSize)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return "", fmt.Errorf("failed to generate IV: %w", err)
	}

	padded := pkcs7Pad([]byte(plaintext), aes.BlockSize)
	ciphertext := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, padded)

	tag, err := authenticate(key, iv, ciphertext)
	if err != nil {
		return "", err
	}

	return hex.EncodeToString(iv) + fieldSeparator + hex.EncodeToString(append(ciphertext, tag...)), nil
}

// DecryptField reverses EncryptField. Malformed input, a wrong key or any
// modified byte yields an error wrapping ErrDecrypt.
func DecryptField(encoded string, key []byte) (string, error) {
	ivHex, payloadHex, ok := strings.Cut(encoded, fieldSeparator)
	if !ok {
		return "", fmt.Errorf("%w: missing %q separator", ErrDecrypt, fieldSeparator)
	}

	iv, err := hex.DecodeString(ivHex)
	if err != nil || len(iv) != ivSize {
		return "", fmt.Errorf("%w: malformed initialization vector", ErrDecrypt)
	}

	payload, err := hex.DecodeString(payloadHex)
	if err != nil {
		return "", fmt.Errorf("%w: malformed ciphertext", ErrDecrypt)
	}
	if len(payload) < tagSize+aes.BlockSize || (len(payload)-tagSize)%aes.BlockSize != 0 {
		return "", fmt.Errorf("%w: ciphertext has invalid length", ErrDecrypt)
	}

	ciphertext, tag := payload[:len(payload)-tagSize], payload[len(payload)-tagSize:]

	expected, err := authenticate(key, iv, ciphertext)
	if err != nil {
		return "", err
	}
	if !hmac.Equal(tag, expected) {
		return "", fmt.Errorf("%w: authentication failed", ErrDecrypt)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("invalid encryption key: %w", err)
	}

	plaintext := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plaintext, ciphertext)

	unpadded, err := pkcs7Unpad(plaintext, aes.BlockSize)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecrypt, err)
	}

	return string(unpadded), nil
}

// authenticate computes the HMAC tag with a MAC key split from the cipher key.
func authenticate(key, iv, ciphertext []byte) ([]byte, error) {
	macKey := make([]byte, sha256.Size)
	if _, err := io.ReadFull(hkdf.New(sha256.New, key, nil, []byte(macInfo)), macKey); err != nil {
		return nil, fmt.Errorf("failed to derive authentication key: %w", err)
	}

	mac := hmac.New(sha256.New, macKey)
	mac.Write(iv)
	mac.Write(ciphertext)
	return mac.Sum(nil), nil
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	n := blockSize - len(data)%blockSize
	return append(data, bytes.Repeat([]byte{byte(n)}, n)...)
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, errors.New("invalid padded length")
	}

	n := int(data[len(data)-1])
	if n == 0 || n > blockSize {
		return nil, errors.New("invalid padding")
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, errors.New("invalid padding")
		}
	}

	return data[:len(data)-n], nil
}
