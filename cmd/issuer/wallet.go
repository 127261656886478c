package main

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/aussiebroadwan/vcissuer/pkg/cryptox"
	"github.com/aussiebroadwan/vcissuer/pkg/issuersdk"
	"github.com/aussiebroadwan/vcissuer/pkg/mdoc"
	"github.com/aussiebroadwan/vcissuer/pkg/proof"
)

func walletCommand() *cobra.Command {
	var (
		txCode    string
		keyPath   string
		proofType string
	)

	cmd := &cobra.Command{
		Use:   "wallet [offer-uri]",
		Short: "Acts as a test wallet: redeems an offer and prints the issued credential",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := holderKey(keyPath)
			if err != nil {
				return err
			}

			wallet := issuersdk.NewWallet(key)
			wallet.ProofType = proofType

			issued, err := wallet.Accept(cmd.Context(), args[0], txCode)
			if err != nil {
				return err
			}

			doc, err := mdoc.VerifyEncoded(issued.Credential.Credential)
			if err != nil {
				return fmt.Errorf("issued credential does not verify: %w", err)
			}
			printCredential(cmd.OutOrStdout(), issued, doc)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&txCode, "tx-code", "", "Transaction code shown with the offer")
	flags.StringVar(&keyPath, "key", "", "PEM holder key (default: a fresh P-256 key)")
	flags.StringVar(&proofType, "proof", proof.TypeJWT, "Proof type, jwt or cwt")
	return cmd
}

func holderKey(path string) (*ecdsa.PrivateKey, error) {
	if path == "" {
		return ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return cryptox.ParseES256PrivateKey(data)
}

func printCredential(w io.Writer, issued *issuersdk.Issued, doc *mdoc.Verified) {
	fmt.Fprintf(w, "Issuer:      %s\n", issued.Offer.CredentialIssuer)
	fmt.Fprintf(w, "Doctype:     %s\n", doc.DocType)
	fmt.Fprintf(w, "Signed by:   %s\n", doc.Certificate.Subject.String())
	fmt.Fprintf(w, "Valid:       %s .. %s\n", doc.ValidFrom.Format(time.DateOnly), doc.ValidUntil.Format(time.DateOnly))

	namespaces := lo.Keys(doc.Claims)
	sort.Strings(namespaces)
	for _, ns := range namespaces {
		fmt.Fprintf(w, "%s:\n", ns)
		names := lo.Keys(doc.Claims[ns])
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(w, "  %-15s %v\n", name, doc.Claims[ns][name])
		}
	}
}
