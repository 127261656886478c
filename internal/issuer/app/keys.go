package app

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/aussiebroadwan/vcissuer/pkg/cryptox"
	"github.com/aussiebroadwan/vcissuer/pkg/mdoc"
)

// ErrKeyFileRequired is returned in file mode when ISSUER_KEY_FILE is unset.
var ErrKeyFileRequired = errors.New("app: ISSUER_KEY_FILE is required in file key mode")

// InitIssuerKey builds the mdoc document signer from the configured key mode.
//
// Key modes:
//   - "ephemeral": a P-256 key and self-signed certificate are generated on
//     startup. Credentials issued before a restart no longer chain to the
//     running issuer's certificate.
//   - "file": the key is read from KeyFile (optionally sealed with the master
//     key) and the certificate from CertFile. Without CertFile a self-signed
//     certificate is generated for the loaded key.
func InitIssuerKey(cfg Config, logger *slog.Logger, now time.Time) (*mdoc.Issuer, error) {
	// Configure master key path if provided (for encrypted key files)
	if cfg.MasterKeyPath != "" {
		cryptox.SetMasterKeyPath(cfg.MasterKeyPath)
		logger.Info("master key path configured", "path", cfg.MasterKeyPath)
	}

	var (
		key  *ecdsa.PrivateKey
		cert []byte
		err  error
	)

	switch cfg.KeyMode {
	case KeyModeFile:
		key, err = loadKeyFile(cfg)
		if err != nil {
			return nil, err
		}

		if cfg.CertFile != "" {
			pemData, err := os.ReadFile(cfg.CertFile)
			if err != nil {
				return nil, fmt.Errorf("failed to read certificate file: %w", err)
			}
			if cert, err = cryptox.ParseCertificatePEM(pemData); err != nil {
				return nil, fmt.Errorf("failed to parse certificate file: %w", err)
			}
			logger.Info("issuer key and certificate loaded", "key_file", cfg.KeyFile, "cert_file", cfg.CertFile)
		} else {
			logger.Warn("no certificate file configured, generating a self-signed certificate for the loaded key")
		}

	case KeyModeEphemeral:
		fallthrough
	default:
		key, err = ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
		if err != nil {
			return nil, fmt.Errorf("failed to generate issuer key: %w", err)
		}
		logger.Warn("generated ephemeral issuer key, credentials will not verify against a restarted issuer")
	}

	if cert == nil {
		cert, err = cryptox.SelfSignedCertificate(key, cryptox.DefaultCertificateSubject, now)
		if err != nil {
			return nil, fmt.Errorf("failed to create issuer certificate: %w", err)
		}
	}

	iss, err := mdoc.NewIssuer(key, cert)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize mdoc issuer: %w", err)
	}
	return iss, nil
}

func loadKeyFile(cfg Config) (*ecdsa.PrivateKey, error) {
	if cfg.KeyFile == "" {
		return nil, ErrKeyFileRequired
	}

	pemData, err := os.ReadFile(cfg.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read key file: %w", err)
	}

	key, err := cryptox.ParseES256PrivateKey(pemData)
	if err != nil {
		return nil, fmt.Errorf("failed to parse key file: %w", err)
	}
	if cfg.KeyEncrypted && !cryptox.IsEncryptedKeyPEM(pemData) {
		return nil, errors.New("app: ISSUER_KEY_ENCRYPTED is set but the key file is not encrypted")
	}
	return key, nil
}
