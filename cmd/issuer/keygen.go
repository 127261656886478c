package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/aussiebroadwan/vcissuer/pkg/cryptox"
)

func keygenCommand() *cobra.Command {
	var (
		keyPath   string
		certPath  string
		encrypt   bool
		masterKey string
		force     bool
	)

	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Writes a P-256 document signer key and a self-signed certificate",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !force {
				for _, p := range []string{keyPath, certPath} {
					if _, err := os.Stat(p); err == nil {
						return fmt.Errorf("%s already exists (use --force to overwrite)", p)
					} else if !errors.Is(err, os.ErrNotExist) {
						return err
					}
				}
			}

			keyPEM, err := cryptox.GenerateES256Key()
			if err != nil {
				return err
			}
			key, err := cryptox.ParseES256PrivateKey(keyPEM)
			if err != nil {
				return err
			}
			certDER, err := cryptox.SelfSignedCertificate(key, cryptox.DefaultCertificateSubject, time.Now())
			if err != nil {
				return err
			}

			if encrypt {
				if masterKey != "" {
					cryptox.SetMasterKeyPath(masterKey)
				}
				if keyPEM, err = cryptox.EncryptES256PrivateKey(keyPEM); err != nil {
					return fmt.Errorf("encrypt key: %w", err)
				}
			}

			if err := os.WriteFile(keyPath, keyPEM, 0o600); err != nil {
				return err
			}
			if err := os.WriteFile(certPath, cryptox.EncodeCertificatePEM(certDER), 0o644); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Key written to %s\n", keyPath)
			fmt.Fprintf(out, "Certificate written to %s\n", certPath)
			fmt.Fprintf(out, "Run with ISSUER_KEY_MODE=file ISSUER_KEY_FILE=%s ISSUER_CERT_FILE=%s", keyPath, certPath)
			if encrypt {
				fmt.Fprint(out, " ISSUER_KEY_ENCRYPTED=true")
			}
			fmt.Fprintln(out)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&keyPath, "key", "issuer.key", "Private key output path")
	flags.StringVar(&certPath, "cert", "issuer.crt", "Certificate output path")
	flags.BoolVar(&encrypt, "encrypt", false, "Seal the key with the master key ("+cryptox.MasterKeyEnv+" or --master-key)")
	flags.StringVar(&masterKey, "master-key", os.Getenv("ISSUER_MASTER_KEY_PATH"), "Path to the master key file")
	flags.BoolVar(&force, "force", false, "Overwrite existing files")
	return cmd
}
