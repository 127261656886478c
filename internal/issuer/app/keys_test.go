package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/vcissuer/pkg/cryptox"
	"github.com/aussiebroadwan/vcissuer/pkg/mdoc"
	"github.com/aussiebroadwan/vcissuer/pkg/slogx"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func issueTestDoc(t *testing.T, iss *mdoc.Issuer) *mdoc.Verified {
	t.Helper()

	holder, err := cryptox.GenerateES256Key()
	require.NoError(t, err)
	holderKey, err := cryptox.ParseES256PrivateKey(holder)
	require.NoError(t, err)

	encoded, err := iss.WithClock(func() time.Time { return testNow }).IssueEncoded(mdoc.Document{
		DocType:    "org.example.test",
		Namespace:  "org.example.test",
		Claims:     map[string]any{"given_name": "Ola"},
		DeviceKey:  &holderKey.PublicKey,
		ValidFrom:  testNow,
		ValidUntil: testNow.Add(24 * time.Hour),
	})
	require.NoError(t, err)

	doc, err := mdoc.VerifyEncoded(encoded)
	require.NoError(t, err)
	return doc
}

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func TestInitIssuerKeyEphemeral(t *testing.T) {
	iss, err := InitIssuerKey(Config{KeyMode: KeyModeEphemeral}, slogx.Discard(), testNow)
	require.NoError(t, err)

	doc := issueTestDoc(t, iss)
	require.Equal(t, "digdir.no", doc.Certificate.Subject.CommonName)
}

func TestInitIssuerKeyFile(t *testing.T) {
	keyPEM, err := cryptox.GenerateES256Key()
	require.NoError(t, err)
	key, err := cryptox.ParseES256PrivateKey(keyPEM)
	require.NoError(t, err)

	subject := cryptox.DefaultCertificateSubject
	subject.CommonName = "issuer.example.com"
	certDER, err := cryptox.SelfSignedCertificate(key, subject, testNow)
	require.NoError(t, err)

	cfg := Config{
		KeyMode:  KeyModeFile,
		KeyFile:  writeFile(t, "issuer.key", keyPEM),
		CertFile: writeFile(t, "issuer.crt", cryptox.EncodeCertificatePEM(certDER)),
	}

	iss, err := InitIssuerKey(cfg, slogx.Discard(), testNow)
	require.NoError(t, err)
	require.Equal(t, "issuer.example.com", issueTestDoc(t, iss).Certificate.Subject.CommonName)

	t.Run("self-signed without a certificate file", func(t *testing.T) {
		cfg := cfg
		cfg.CertFile = ""
		iss, err := InitIssuerKey(cfg, slogx.Discard(), testNow)
		require.NoError(t, err)
		require.Equal(t, "digdir.no", issueTestDoc(t, iss).Certificate.Subject.CommonName)
	})
}

func TestInitIssuerKeyEncrypted(t *testing.T) {
	cryptox.ResetMasterKeyForTesting()
	t.Cleanup(cryptox.ResetMasterKeyForTesting)

	masterPath := writeFile(t, "master.key", []byte("issuer-master-key"))
	cryptox.SetMasterKeyPath(masterPath)

	keyPEM, err := cryptox.GenerateES256Key()
	require.NoError(t, err)
	sealed, err := cryptox.EncryptES256PrivateKey(keyPEM)
	require.NoError(t, err)

	cfg := Config{
		KeyMode:       KeyModeFile,
		KeyFile:       writeFile(t, "issuer.key", sealed),
		KeyEncrypted:  true,
		MasterKeyPath: masterPath,
	}
	_, err = InitIssuerKey(cfg, slogx.Discard(), testNow)
	require.NoError(t, err)

	t.Run("plain key where an encrypted one is expected", func(t *testing.T) {
		cfg := cfg
		cfg.KeyFile = writeFile(t, "plain.key", keyPEM)
		_, err := InitIssuerKey(cfg, slogx.Discard(), testNow)
		require.Error(t, err)
	})
}

func TestInitIssuerKeyFileRequired(t *testing.T) {
	_, err := InitIssuerKey(Config{KeyMode: KeyModeFile}, slogx.Discard(), testNow)
	require.ErrorIs(t, err, ErrKeyFileRequired)

	_, err = InitIssuerKey(Config{KeyMode: KeyModeFile, KeyFile: filepath.Join(t.TempDir(), "missing.key")}, slogx.Discard(), testNow)
	require.Error(t, err)
}
