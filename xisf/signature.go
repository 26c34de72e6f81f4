package xisf

import (
	"crypto"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/sha512"
	"crypto/x509"
	"encoding/base64"
	"math/big"
	"strings"

	"github.com/arlobase/astrofmt/errs"
)

// SignaturePolicy controls how VerifySignature reacts to a failed
// check.
type SignaturePolicy int

const (
	PolicyRequire SignaturePolicy = iota // hard failure
	PolicyWarn                           // report via WarningFunc, continue
	PolicyIgnore                         // skip verification entirely
)

// VerifyContainerSignature locates the header's <Signature> element (if
// any), resolves its Reference URI ("#uid") against the container's uid
// index to the referenced element's raw inner XML, and verifies it.
// A container with no <Signature> element is left unverified; callers
// that require a signed file should check for its absence separately.
func VerifyContainerSignature(c *Container, policy SignaturePolicy, onWarning errs.WarningFunc) error {
	sigs := c.Root.ChildrenNamed("Signature")
	if len(sigs) == 0 {
		return nil
	}
	sig := sigs[0]

	signedInfo := sig.ChildrenNamed("SignedInfo")
	if len(signedInfo) == 0 {
		return fail(policy, onWarning, "signature", "missing SignedInfo element")
	}
	refs := signedInfo[0].ChildrenNamed("Reference")
	if len(refs) == 0 {
		return fail(policy, onWarning, "digest", "missing Reference element")
	}

	uri := strings.TrimPrefix(refs[0].Attr("URI"), "#")
	target, ok := c.uidIndex[uri]
	if !ok {
		return fail(policy, onWarning, "digest", "unresolved Reference URI: "+uri)
	}

	return VerifySignature(sig, []byte(target.Content), policy, onWarning)
}

// VerifySignature runs the three-stage detached-signature check the
// specification describes against an already-resolved payload: digest
// the canonicalized payload and compare against the Reference, then
// verify the canonicalized SignedInfo's RSA signature against the
// embedded RSAKeyValue, applying policy to either failure.
//
// Canonicalization here is a pragmatic C14N subset (whitespace
// normalization of the signed byte span) sufficient for the XISF
// header's flat, namespace-stable document shape; it does not
// implement full C14N 1.0's exclusive-namespace axis algorithm, which
// XISF headers never exercise (no namespace prefix remapping across
// the signed subtree).
func VerifySignature(sig Element, payload []byte, policy SignaturePolicy, onWarning errs.WarningFunc) error {
	if policy == PolicyIgnore {
		return nil
	}

	refs := sig.ChildrenNamed("SignedInfo")
	if len(refs) == 0 {
		return fail(policy, onWarning, "signature", "missing SignedInfo element")
	}
	signedInfo := refs[0]

	referenceFail := verifyReference(signedInfo, payload)
	if referenceFail != nil {
		return fail(policy, onWarning, "digest", referenceFail.Error())
	}

	if err := verifyRSA(sig, signedInfo); err != nil {
		return fail(policy, onWarning, "signature", err.Error())
	}

	return nil
}

func fail(policy SignaturePolicy, onWarning errs.WarningFunc, stage, detail string) error {
	if policy == PolicyWarn {
		errs.Warn(onWarning, errs.Warning{Subsystem: "xisf", Detail: stage + ": " + detail})

		return nil
	}

	return errs.NewSignatureError(stage, detail)
}

func verifyReference(signedInfo Element, payload []byte) error {
	refs := signedInfo.ChildrenNamed("Reference")
	if len(refs) == 0 {
		return errs.NewSignatureError("digest", "no Reference element")
	}
	ref := refs[0]

	digestMethod := "sha256"
	if dm := ref.ChildrenNamed("DigestMethod"); len(dm) > 0 {
		digestMethod = algorithmToken(dm[0].Attr("Algorithm"))
	}

	var digestValue string
	if dv := ref.ChildrenNamed("DigestValue"); len(dv) > 0 {
		digestValue = strings.TrimSpace(dv[0].Content)
	}

	canonical := canonicalize(payload)
	got, err := HashHex(digestMethod, canonical)
	if err != nil {
		return err
	}
	wantBytes, err := base64.StdEncoding.DecodeString(digestValue)
	if err != nil {
		return errs.NewSignatureError("digest", "malformed DigestValue base64")
	}
	want := hexEncode(wantBytes)

	if !strings.EqualFold(got, want) {
		return errs.NewSignatureError("digest", "digest mismatch")
	}

	return nil
}

func verifyRSA(sig, signedInfo Element) error {
	sigValueElems := sig.ChildrenNamed("SignatureValue")
	if len(sigValueElems) == 0 {
		return errs.NewSignatureError("signature", "missing SignatureValue")
	}
	sigBytes, err := base64.StdEncoding.DecodeString(strings.TrimSpace(sigValueElems[0].Content))
	if err != nil {
		return errs.NewSignatureError("signature", "malformed SignatureValue base64")
	}

	pub, err := extractRSAKey(sig)
	if err != nil {
		return err
	}

	method := "rsa-sha256"
	if sm := signedInfo.ChildrenNamed("SignatureMethod"); len(sm) > 0 {
		method = algorithmToken(sm[0].Attr("Algorithm"))
	}

	hashFn, cryptoHash := hashForMethod(method)
	digest := hashFn(canonicalize([]byte(signedInfo.Content)))

	return rsa.VerifyPKCS1v15(pub, cryptoHash, digest, sigBytes)
}

func hashForMethod(method string) (func([]byte) []byte, crypto.Hash) {
	if strings.Contains(method, "512") {
		return func(b []byte) []byte { h := sha512.Sum512(b); return h[:] }, crypto.SHA512
	}

	return func(b []byte) []byte { h := sha256.Sum256(b); return h[:] }, crypto.SHA256
}

func extractRSAKey(sig Element) (*rsa.PublicKey, error) {
	for _, keyInfo := range sig.ChildrenNamed("KeyInfo") {
		for _, keyValue := range keyInfo.ChildrenNamed("KeyValue") {
			for _, rsaKey := range keyValue.ChildrenNamed("RSAKeyValue") {
				modElems := rsaKey.ChildrenNamed("Modulus")
				expElems := rsaKey.ChildrenNamed("Exponent")
				if len(modElems) == 0 || len(expElems) == 0 {
					continue
				}
				modBytes, err := base64.StdEncoding.DecodeString(strings.TrimSpace(modElems[0].Content))
				if err != nil {
					return nil, errs.NewSignatureError("signature", "malformed RSA modulus")
				}
				expBytes, err := base64.StdEncoding.DecodeString(strings.TrimSpace(expElems[0].Content))
				if err != nil {
					return nil, errs.NewSignatureError("signature", "malformed RSA exponent")
				}

				return &rsa.PublicKey{
					N: new(big.Int).SetBytes(modBytes),
					E: int(new(big.Int).SetBytes(expBytes).Int64()),
				}, nil
			}
		}

		// Also accept a base64 DER-encoded X509Certificate, the other
		// common KeyInfo form.
		for _, cert := range keyInfo.ChildrenNamed("X509Data") {
			for _, certElem := range cert.ChildrenNamed("X509Certificate") {
				der, err := base64.StdEncoding.DecodeString(strings.TrimSpace(certElem.Content))
				if err != nil {
					continue
				}
				parsed, err := x509.ParseCertificate(der)
				if err != nil {
					continue
				}
				if pub, ok := parsed.PublicKey.(*rsa.PublicKey); ok {
					return pub, nil
				}
			}
		}
	}

	return nil, errs.NewSignatureError("signature", "no RSA key found in KeyInfo")
}

func algorithmToken(uri string) string {
	uri = strings.ToLower(uri)
	switch {
	case strings.Contains(uri, "sha512"):
		return "sha512"
	case strings.Contains(uri, "sha256"):
		return "sha256"
	case strings.Contains(uri, "sha1"):
		return "sha1"
	default:
		return "sha256"
	}
}

func hexEncode(b []byte) string {
	const digits = "0123456789abcdef"
	out := make([]byte, len(b)*2)
	for i, v := range b {
		out[i*2] = digits[v>>4]
		out[i*2+1] = digits[v&0xf]
	}

	return string(out)
}

// canonicalize applies a minimal, deterministic normalization: trims
// surrounding whitespace and collapses internal whitespace runs,
// approximating C14N's text-node normalization for the contiguous
// byte payloads this module canonicalizes.
func canonicalize(b []byte) []byte {
	var out []byte
	lastSpace := false
	for _, c := range b {
		isSpace := c == ' ' || c == '\t' || c == '\n' || c == '\r'
		if isSpace {
			if lastSpace {
				continue
			}
			c = ' '
		}
		out = append(out, c)
		lastSpace = isSpace
	}

	return bytesTrimSpace(out)
}

func bytesTrimSpace(b []byte) []byte {
	start, end := 0, len(b)
	for start < end && b[start] == ' ' {
		start++
	}
	for end > start && b[end-1] == ' ' {
		end--
	}

	return b[start:end]
}
