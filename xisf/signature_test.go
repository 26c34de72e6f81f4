package xisf

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"encoding/xml"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arlobase/astrofmt/errs"
)

func buildSignedPair(t *testing.T, payload []byte) (Element, *rsa.PrivateKey) {
	t.Helper()

	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	payloadDigest, err := HashHex("sha256", canonicalize(payload))
	require.NoError(t, err)
	payloadDigestBytes := mustHexDecode(t, payloadDigest)

	signedInfoContent := `<Reference URI="#payload"><DigestMethod Algorithm="sha256"/><DigestValue>` +
		base64.StdEncoding.EncodeToString(payloadDigestBytes) + `</DigestValue></Reference>`

	infoDigest := sha256.Sum256(canonicalize([]byte(signedInfoContent)))
	sigBytes, err := rsa.SignPKCS1v15(rand.Reader, priv, crypto.SHA256, infoDigest[:])
	require.NoError(t, err)

	sig := Element{
		XMLName: xml.Name{Local: "Signature"},
		Children: []Element{
			{
				XMLName: xml.Name{Local: "SignedInfo"},
				Content: signedInfoContent,
				Children: []Element{
					{
						XMLName: xml.Name{Local: "Reference"},
						Attrs:   []xml.Attr{{Name: xml.Name{Local: "URI"}, Value: "#payload"}},
						Children: []Element{
							{XMLName: xml.Name{Local: "DigestMethod"}, Attrs: []xml.Attr{{Name: xml.Name{Local: "Algorithm"}, Value: "sha256"}}},
							{XMLName: xml.Name{Local: "DigestValue"}, Content: base64.StdEncoding.EncodeToString(payloadDigestBytes)},
						},
					},
				},
			},
			{XMLName: xml.Name{Local: "SignatureValue"}, Content: base64.StdEncoding.EncodeToString(sigBytes)},
			{
				XMLName: xml.Name{Local: "KeyInfo"},
				Children: []Element{
					{
						XMLName: xml.Name{Local: "KeyValue"},
						Children: []Element{
							{
								XMLName: xml.Name{Local: "RSAKeyValue"},
								Children: []Element{
									{XMLName: xml.Name{Local: "Modulus"}, Content: base64.StdEncoding.EncodeToString(priv.PublicKey.N.Bytes())},
									{XMLName: xml.Name{Local: "Exponent"}, Content: base64.StdEncoding.EncodeToString(big.NewInt(int64(priv.PublicKey.E)).Bytes())},
								},
							},
						},
					},
				},
			},
		},
	}

	return sig, priv
}

func mustHexDecode(t *testing.T, hexStr string) []byte {
	t.Helper()
	out := make([]byte, len(hexStr)/2)
	for i := range out {
		hi, err1 := hexNibble(hexStr[i*2])
		lo, err2 := hexNibble(hexStr[i*2+1])
		require.NoError(t, err1)
		require.NoError(t, err2)
		out[i] = hi<<4 | lo
	}

	return out
}

func TestVerifySignatureAccepts(t *testing.T) {
	payload := []byte("<Property id=\"X\" type=\"Int32\" value=\"1\"/>")
	sig, _ := buildSignedPair(t, payload)

	err := VerifySignature(sig, payload, PolicyRequire, nil)
	assert.NoError(t, err)
}

func TestVerifySignatureRejectsTamperedPayload(t *testing.T) {
	payload := []byte("<Property id=\"X\" type=\"Int32\" value=\"1\"/>")
	sig, _ := buildSignedPair(t, payload)

	err := VerifySignature(sig, []byte("<Property id=\"X\" type=\"Int32\" value=\"2\"/>"), PolicyRequire, nil)
	assert.Error(t, err)
}

func TestVerifySignatureWarnPolicyNeverFails(t *testing.T) {
	payload := []byte("<Property id=\"X\" type=\"Int32\" value=\"1\"/>")
	sig, _ := buildSignedPair(t, payload)

	var warnings []string
	err := VerifySignature(sig, []byte("tampered"), PolicyWarn, func(w errs.Warning) {
		warnings = append(warnings, w.String())
	})
	assert.NoError(t, err)
	assert.NotEmpty(t, warnings)
}
