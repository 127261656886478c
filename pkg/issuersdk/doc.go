/*
Package issuersdk is the client side of the credential issuer: wire types,
protocol errors and an HTTP client for both the wallet and the operator.

# Wallet flow

A Wallet runs the OpenID4VCI pre-authorized code flow end to end:

	key, _ := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	w := issuersdk.NewWallet(key)
	issued, err := w.Accept(ctx, offerURI, txCode)
	if err != nil {
		return err
	}
	doc, err := mdoc.VerifyEncoded(issued.Credential.Credential)

Accept parses the offer, exchanges the pre-authorized code at /token, signs a
key proof over the returned c_nonce and calls /credential. If the issuer
rejects the proof with a fresh c_nonce the request is retried once.

# Operator flow

Offers are created with an admin bearer token:

	client := issuersdk.NewClient("https://issuer.example.com").WithAdminToken(token)
	offer, err := client.CreateOffer(ctx, "eu.europa.ec.eudi.loyalty_mdoc")
	fmt.Println(offer.CredentialOfferURI, offer.TxCode)

# Errors

Every non-2xx response is returned as a *ProtocolError. The predefined values
compare by error code, so

	if errors.Is(err, issuersdk.ErrInvalidToken) { ... }

works for errors decoded from the wire as well as for the server's own.
*/
package issuersdk
