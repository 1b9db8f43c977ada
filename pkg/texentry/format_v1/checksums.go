// Checksums in the schema use the prefixed form "algorithm:hexvalue"
// (e.g. "sha256:c0ffee...").

package format_v1

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"strings"
)

// ChecksumAlgorithm represents supported checksum algorithms
type ChecksumAlgorithm int

const (
	ChecksumSHA256 ChecksumAlgorithm = iota
	ChecksumSHA1
	ChecksumMD5
)

func (c ChecksumAlgorithm) String() string {
	switch c {
	case ChecksumSHA256:
		return "sha256"
	case ChecksumSHA1:
		return "sha1"
	case ChecksumMD5:
		return "md5"
	default:
		return "unknown"
	}
}

// Size returns the digest length in bytes.
func (c ChecksumAlgorithm) Size() int {
	switch c {
	case ChecksumSHA256:
		return sha256.Size
	case ChecksumSHA1:
		return sha1.Size
	case ChecksumMD5:
		return md5.Size
	default:
		return 0
	}
}

// New returns a fresh hash.Hash for the algorithm.
func (c ChecksumAlgorithm) New() hash.Hash {
	switch c {
	case ChecksumSHA1:
		return sha1.New()
	case ChecksumMD5:
		return md5.New()
	default:
		return sha256.New()
	}
}

// ParseAlgorithm maps an algorithm name to its ChecksumAlgorithm.
func ParseAlgorithm(name string) (ChecksumAlgorithm, error) {
	switch strings.ToLower(name) {
	case "sha256":
		return ChecksumSHA256, nil
	case "sha1":
		return ChecksumSHA1, nil
	case "md5":
		return ChecksumMD5, nil
	default:
		return ChecksumSHA256, fmt.Errorf("unknown checksum algorithm: %s", name)
	}
}

// ParseChecksum splits a prefixed checksum string into algorithm and hex value
func ParseChecksum(checksumStr string) (ChecksumAlgorithm, string, error) {
	parts := strings.SplitN(checksumStr, ":", 2)
	if len(parts) != 2 || parts[1] == "" {
		return ChecksumSHA256, "", fmt.Errorf("invalid checksum format: %s", checksumStr)
	}

	algo, err := ParseAlgorithm(parts[0])
	if err != nil {
		return ChecksumSHA256, "", err
	}
	if len(parts[1]) != algo.Size()*2 {
		return ChecksumSHA256, "", fmt.Errorf("invalid %s checksum length: %d", algo, len(parts[1]))
	}

	return algo, strings.ToLower(parts[1]), nil
}

// Sum returns the raw digest of data.
func Sum(algorithm ChecksumAlgorithm, data []byte) []byte {
	h := algorithm.New()
	h.Write(data)
	return h.Sum(nil)
}

// CalculateChecksum calculates checksum with prefix
func CalculateChecksum(data []byte, algorithm ChecksumAlgorithm) string {
	return algorithm.String() + ":" + hex.EncodeToString(Sum(algorithm, data))
}

// VerifyChecksum verifies data against a checksum string
func VerifyChecksum(data []byte, checksumStr string) (bool, error) {
	algo, expected, err := ParseChecksum(checksumStr)
	if err != nil {
		return false, err
	}

	return hex.EncodeToString(Sum(algo, data)) == expected, nil
}
