package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/aussiebroadwan/vcissuer/pkg/issuersdk"
	"github.com/aussiebroadwan/vcissuer/pkg/qrx"
)

const defaultServer = "http://localhost:8080"

func offerCommand() *cobra.Command {
	var (
		server     string
		adminToken string
		configID   string
		pngPath    string
		noQR       bool
	)

	cmd := &cobra.Command{
		Use:   "offer",
		Short: "Requests a credential offer from a running issuer and prints it as a QR code",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client := issuersdk.NewClient(server).WithAdminToken(adminToken)

			offer, err := client.CreateOffer(cmd.Context(), configID)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if !noQR {
				qrx.Terminal(out, offer.CredentialOfferURI)
			}
			fmt.Fprintln(out, offer.CredentialOfferURI)
			if offer.TxCode != "" {
				fmt.Fprintf(out, "Transaction code: %s\n", offer.TxCode)
			}
			if expires, err := time.Parse(time.RFC3339, offer.ExpiresAt); err == nil {
				fmt.Fprintf(out, "Expires in: %s\n", time.Until(expires).Round(time.Second))
			}

			if pngPath != "" {
				png, _, err := client.OfferQRCode(cmd.Context(), configID)
				if err != nil {
					return fmt.Errorf("fetch png offer: %w", err)
				}
				if err := os.WriteFile(pngPath, png, 0o644); err != nil {
					return err
				}
				fmt.Fprintf(out, "A second offer was written to %s\n", pngPath)
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&server, "server", envOr("ISSUER_PUBLIC_URL", defaultServer), "Issuer base URL")
	flags.StringVar(&adminToken, "admin-token", os.Getenv("ISSUER_ADMIN_TOKEN"), "Bearer token for the offer endpoints")
	flags.StringVar(&configID, "type", "", "Credential configuration id (default: the loyalty card)")
	flags.StringVar(&pngPath, "png", "", "Also fetch a separate offer as a PNG QR code and write it here")
	flags.BoolVar(&noQR, "no-qr", false, "Print only the offer URI")
	return cmd
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
