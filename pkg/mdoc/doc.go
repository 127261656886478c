// Package mdoc issues and verifies ISO/IEC 18013-5 IssuerSigned structures
// as delivered by OpenID4VCI in the mso_mdoc format.
//
// An issued document is the CBOR encoding of
//
//	IssuerSigned = {
//	  "nameSpaces": { ns: [ #6.24(bstr .cbor IssuerSignedItem), ... ] },
//	  "issuerAuth": COSE_Sign1(MobileSecurityObject)
//	}
//
// serialised as unpadded base64url. The issuerAuth carries the document
// signer certificate in its unprotected x5chain header.
package mdoc
