package cloudkit

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"net/http"
	"time"

	"github.com/cocoaheadsnl/cloudsync/pkg/errors"
)

// Request signing headers for server-to-server keys.
const (
	HeaderKeyID     = "X-Apple-CloudKit-Request-KeyID"
	HeaderDate      = "X-Apple-CloudKit-Request-ISO8601Date"
	HeaderSignature = "X-Apple-CloudKit-Request-SignatureV1"
)

// dateFormat is ISO 8601 without fractional seconds, as CloudKit requires.
const dateFormat = "2006-01-02T15:04:05Z"

// Signer signs requests with a server-to-server key.
type Signer struct {
	keyID string
	key   *ecdsa.PrivateKey
}

// NewSigner creates a signer from a key ID and a PEM encoded P-256 private
// key, in SEC 1 ("EC PRIVATE KEY") or PKCS #8 ("PRIVATE KEY") form.
func NewSigner(keyID string, pemData []byte) (*Signer, error) {
	if keyID == "" {
		return nil, errors.NewValidationError("cloudkit_key_id", keyID, "must be set")
	}
	key, err := ParsePrivateKey(pemData)
	if err != nil {
		return nil, err
	}
	return &Signer{keyID: keyID, key: key}, nil
}

// ParsePrivateKey decodes a PEM encoded P-256 private key.
func ParsePrivateKey(pemData []byte) (*ecdsa.PrivateKey, error) {
	block, _ := pem.Decode(pemData)
	if block == nil {
		return nil, &errors.ParseError{Format: "pem", Source: "cloudkit private key", Message: "no PEM block found"}
	}

	var key *ecdsa.PrivateKey
	switch block.Type {
	case "EC PRIVATE KEY":
		k, err := x509.ParseECPrivateKey(block.Bytes)
		if err != nil {
			return nil, errors.WrapParse("pem", "cloudkit private key", err)
		}
		key = k
	case "PRIVATE KEY":
		k, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, errors.WrapParse("pem", "cloudkit private key", err)
		}
		ek, ok := k.(*ecdsa.PrivateKey)
		if !ok {
			return nil, &errors.ParseError{Format: "pem", Source: "cloudkit private key", Message: "key is not an ECDSA key"}
		}
		key = ek
	default:
		return nil, &errors.ParseError{Format: "pem", Source: "cloudkit private key", Message: "unexpected block type " + block.Type}
	}

	if key.Curve != elliptic.P256() {
		return nil, &errors.ParseError{Format: "pem", Source: "cloudkit private key", Message: "key must use the P-256 curve"}
	}
	return key, nil
}

// Sign sets the signing headers on req. subpath is the request path starting
// at /database.
func (s *Signer) Sign(req *http.Request, body []byte, subpath string, now time.Time) error {
	date := now.UTC().Format(dateFormat)
	digest := sha256.Sum256(SigningMessage(date, body, subpath))

	sig, err := ecdsa.SignASN1(rand.Reader, s.key, digest[:])
	if err != nil {
		return &errors.AuthenticationError{Service: "cloudkit", Method: "server_key", Message: "signing failed", Err: err}
	}

	req.Header.Set(HeaderKeyID, s.keyID)
	req.Header.Set(HeaderDate, date)
	req.Header.Set(HeaderSignature, base64.StdEncoding.EncodeToString(sig))
	return nil
}

// SigningMessage returns date:base64(sha256(body)):subpath.
func SigningMessage(date string, body []byte, subpath string) []byte {
	bodyHash := sha256.Sum256(body)
	return []byte(date + ":" + base64.StdEncoding.EncodeToString(bodyHash[:]) + ":" + subpath)
}

// Verify reports whether sig is a valid signature of the message. Used by
// tests and local fakes.
func (s *Signer) Verify(date string, body []byte, subpath, sig string) bool {
	raw, err := base64.StdEncoding.DecodeString(sig)
	if err != nil {
		return false
	}
	digest := sha256.Sum256(SigningMessage(date, body, subpath))
	return ecdsa.VerifyASN1(&s.key.PublicKey, digest[:], raw)
}
