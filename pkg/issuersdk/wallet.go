package issuersdk

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/aussiebroadwan/vcissuer/pkg/proof"
)

// FormatMSOMdoc is the credential format identifier for ISO 18013-5 mdocs.
const FormatMSOMdoc = "mso_mdoc"

var ErrTxCodeRequired = errors.New("issuersdk: offer requires a transaction code")

// Wallet is a minimal holder for the pre-authorized code flow. It is used by
// the CLI and the end-to-end tests; it keeps no state between offers.
type Wallet struct {
	// Key is the holder key the credential gets bound to.
	Key *ecdsa.PrivateKey
	// ProofType is proof.TypeJWT (default) or proof.TypeCWT.
	ProofType  string
	HTTPClient *http.Client
	Now        func() time.Time
}

func NewWallet(key *ecdsa.PrivateKey) *Wallet {
	return &Wallet{Key: key, ProofType: proof.TypeJWT}
}

// Issued is everything a completed flow produced.
type Issued struct {
	Offer      *CredentialOffer
	Token      *TokenResponse
	Credential *CredentialResponse
}

// Accept runs the whole flow for offerURI: token exchange, key proof and
// credential request. An invalid_proof answer carrying a fresh c_nonce is
// retried once with that nonce.
func (w *Wallet) Accept(ctx context.Context, offerURI, txCode string) (*Issued, error) {
	offer, err := ParseOfferURI(offerURI)
	if err != nil {
		return nil, err
	}
	grant := offer.Grants.PreAuthorizedCode
	if grant.TxCode != nil && txCode == "" {
		return nil, ErrTxCodeRequired
	}

	client := NewClient(offer.CredentialIssuer)
	if w.HTTPClient != nil {
		client.HTTPClient = w.HTTPClient
	}

	tok, err := client.ExchangePreAuthorizedCode(ctx, grant.PreAuthorizedCode, txCode)
	if err != nil {
		return nil, fmt.Errorf("token exchange: %w", err)
	}

	nonce := tok.CNonce
	for attempt := 0; ; attempt++ {
		p, err := w.proof(offer.CredentialIssuer, nonce)
		if err != nil {
			return nil, err
		}

		cred, err := client.RequestCredential(ctx, tok.AccessToken, CredentialRequest{
			Format:                    FormatMSOMdoc,
			CredentialConfigurationID: offer.CredentialConfigurationIDs[0],
			Proof:                     p,
		})
		var perr *ProtocolError
		if err != nil && attempt == 0 && errors.As(err, &perr) && perr.Code == ErrorCodeInvalidProof && perr.CNonce != "" {
			nonce = perr.CNonce
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("credential request: %w", err)
		}
		return &Issued{Offer: offer, Token: tok, Credential: cred}, nil
	}
}

func (w *Wallet) proof(audience, nonce string) (*proof.Proof, error) {
	now := time.Now()
	if w.Now != nil {
		now = w.Now()
	}

	switch w.ProofType {
	case proof.TypeCWT:
		cwt, err := proof.SignCWT(w.Key, audience, nonce, now)
		if err != nil {
			return nil, err
		}
		return &proof.Proof{ProofType: proof.TypeCWT, CWT: cwt}, nil
	case proof.TypeJWT, "":
		jwt, err := proof.SignJWT(w.Key, audience, nonce, now)
		if err != nil {
			return nil, err
		}
		return &proof.Proof{ProofType: proof.TypeJWT, JWT: jwt}, nil
	default:
		return nil, fmt.Errorf("issuersdk: unsupported proof type %q", w.ProofType)
	}
}
