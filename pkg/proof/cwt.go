package proof

import (
	"crypto/ecdsa"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/aussiebroadwan/vcissuer/pkg/mdoc"
	"github.com/fxamacker/cbor/v2"
	"github.com/veraison/go-cose"
)

const (
	// CWTTyp is the content type of a cwt proof.
	CWTTyp = "openid4vci-proof+cwt"

	headerCOSEKey     = "COSE_Key"
	headerContentType = int64(3)
)

// cwtClaims uses the integer claim keys of RFC 8392 plus nonce (10).
type cwtClaims struct {
	Iss   string          `cbor:"1,keyasint,omitempty"`
	Aud   string          `cbor:"3,keyasint,omitempty"`
	Iat   int64           `cbor:"6,keyasint,omitempty"`
	Nonce cbor.RawMessage `cbor:"10,keyasint,omitempty"`
}

func (c cwtClaims) nonce() (string, error) {
	if len(c.Nonce) == 0 {
		return "", nil
	}
	var v any
	if err := cbor.Unmarshal(c.Nonce, &v); err != nil {
		return "", err
	}
	switch n := v.(type) {
	case string:
		return n, nil
	case []byte:
		return string(n), nil
	}
	return "", fmt.Errorf("nonce has type %T", v)
}

func verifyCWT(encoded string, exp Expectations) (*ecdsa.PublicKey, error) {
	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(encoded, "="))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	// Untagged COSE_Sign1 is accepted too.
	if len(raw) > 0 && raw[0] != 0xd2 {
		raw = append([]byte{0xd2}, raw...)
	}

	var msg cose.Sign1Message
	if err := msg.UnmarshalCBOR(raw); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}

	alg, err := msg.Headers.Protected.Algorithm()
	if err != nil || alg != cose.AlgorithmES256 {
		return nil, fmt.Errorf("%w: algorithm must be ES256", ErrMalformed)
	}
	if ct, ok := msg.Headers.Protected[headerContentType]; ok && ct != CWTTyp {
		return nil, fmt.Errorf("%w: content type %v", ErrMalformed, ct)
	}

	pub, err := coseKeyHeader(msg.Headers.Protected[headerCOSEKey])
	if err != nil {
		return nil, err
	}

	verifier, err := cose.NewVerifier(cose.AlgorithmES256, pub)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrKey, err)
	}
	if err := msg.Verify(nil, verifier); err != nil {
		return nil, ErrSignature
	}

	var claims cwtClaims
	if err := cbor.Unmarshal(msg.Payload, &claims); err != nil {
		return nil, fmt.Errorf("%w: claims: %w", ErrMalformed, err)
	}
	if exp.Audience != "" && claims.Aud != exp.Audience {
		return nil, ErrAudience
	}
	nonce, err := claims.nonce()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	if exp.Nonce != "" && nonce != exp.Nonce {
		return nil, ErrNonce
	}
	if claims.Iat == 0 {
		return nil, fmt.Errorf("%w: missing iat", ErrMalformed)
	}
	if err := checkIssuedAt(time.Unix(claims.Iat, 0), exp.Now, exp.skew()); err != nil {
		return nil, err
	}

	return pub, nil
}

// coseKeyHeader accepts the COSE_Key either as an embedded map or as a
// byte string holding its encoding.
func coseKeyHeader(v any) (*ecdsa.PublicKey, error) {
	if v == nil {
		return nil, fmt.Errorf("%w: missing COSE_Key header", ErrKey)
	}

	raw, ok := v.([]byte)
	if !ok {
		var err error
		if raw, err = cbor.Marshal(v); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrKey, err)
		}
	}

	k, err := mdoc.ParseCOSEKey(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrKey, err)
	}
	pub, err := k.PublicKey()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrKey, err)
	}
	return pub, nil
}

// SignCWT produces a cwt proof for key, as a wallet would.
func SignCWT(key *ecdsa.PrivateKey, audience, nonce string, now time.Time) (string, error) {
	ck, err := mdoc.NewCOSEKey(&key.PublicKey)
	if err != nil {
		return "", err
	}
	ckBytes, err := ck.Bytes()
	if err != nil {
		return "", err
	}

	claims := cwtClaims{Aud: audience, Iat: now.Unix()}
	if nonce != "" {
		if claims.Nonce, err = cbor.Marshal([]byte(nonce)); err != nil {
			return "", err
		}
	}
	payload, err := cbor.Marshal(claims)
	if err != nil {
		return "", err
	}

	signer, err := cose.NewSigner(cose.AlgorithmES256, key)
	if err != nil {
		return "", err
	}

	msg := cose.NewSign1Message()
	msg.Headers.Protected.SetAlgorithm(cose.AlgorithmES256)
	msg.Headers.Protected[headerContentType] = CWTTyp
	msg.Headers.Protected[headerCOSEKey] = ckBytes
	msg.Payload = payload

	if err := msg.Sign(rand.Reader, nil, signer); err != nil {
		return "", err
	}
	raw, err := msg.MarshalCBOR()
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}
