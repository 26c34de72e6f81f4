package xisf

import (
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"strings"

	"github.com/arlobase/astrofmt/errs"
)

// VerifyChecksum hashes data with the algorithm named in a DataBlock's
// "checksum" attribute value (the form "algorithm:hex-digest") and
// compares against the embedded digest. Supports the SHA-1/256/512 and
// SHA-3-256/512 checksum set.
//
// SHA-3 is provided by golang.org/x/crypto/sha3 (stdlib crypto/sha3
// does not exist pre-Go 1.24's experimental package; this module keeps
// using the x/crypto implementation the rest of the pack already
// depends on for its extended hash family).
func VerifyChecksum(attr string, data []byte) error {
	algorithm, want, ok := strings.Cut(attr, ":")
	if !ok {
		return errs.NewFormatError("xisf", "malformed checksum attribute: "+attr)
	}

	got, err := HashHex(algorithm, data)
	if err != nil {
		return err
	}
	if !strings.EqualFold(got, want) {
		return errs.NewChecksumError(algorithm, want, got)
	}

	return nil
}

// HashHex returns the lowercase hex digest of data under algorithm.
func HashHex(algorithm string, data []byte) (string, error) {
	switch strings.ToLower(algorithm) {
	case "sha-1", "sha1":
		sum := sha1.Sum(data)

		return hex.EncodeToString(sum[:]), nil
	case "sha-256", "sha256":
		sum := sha256.Sum256(data)

		return hex.EncodeToString(sum[:]), nil
	case "sha-512", "sha512":
		sum := sha512.Sum512(data)

		return hex.EncodeToString(sum[:]), nil
	case "sha3-256":
		sum := sha3Sum256(data)

		return hex.EncodeToString(sum[:]), nil
	case "sha3-512":
		sum := sha3Sum512(data)

		return hex.EncodeToString(sum[:]), nil
	default:
		return "", errs.NewValidationError("xisf", "checksum", "unsupported algorithm: "+algorithm)
	}
}
