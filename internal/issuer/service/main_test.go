package service

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/vcissuer/internal/issuer/domain"
	"github.com/aussiebroadwan/vcissuer/internal/issuer/store/drivers/memory"
	"github.com/aussiebroadwan/vcissuer/internal/issuer/store/storetest"
	"github.com/aussiebroadwan/vcissuer/pkg/cryptox"
	"github.com/aussiebroadwan/vcissuer/pkg/mdoc"
	"github.com/aussiebroadwan/vcissuer/pkg/qrx"
)

const testIssuer = "https://issuer.example.com"

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "service-pepper")
	if err != nil {
		panic(err)
	}
	cryptox.SetPepperPath(filepath.Join(dir, "pepper"))

	code := m.Run()
	_ = os.RemoveAll(dir)
	os.Exit(code)
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock { return &testClock{now: storetest.Base} }

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newCodeService(t *testing.T, clock *testClock, txLen int) *CodeService {
	t.Helper()
	s := memory.NewStore()
	t.Cleanup(func() { _ = s.Close() })
	return &CodeService{
		Store:        s,
		TxCodeLength: txLen,
		Now:          clock.Now,
	}
}

type fixture struct {
	clock      *testClock
	codes      *CodeService
	offers     *OfferService
	tokens     *TokenService
	credential *CredentialService
	holder     *ecdsa.PrivateKey
}

func newFixture(t *testing.T, txLen int) *fixture {
	t.Helper()
	clock := newTestClock()
	codes := newCodeService(t, clock, txLen)
	catalog := domain.DefaultCatalog()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	cert, err := cryptox.SelfSignedCertificate(key, cryptox.DefaultCertificateSubject, clock.Now())
	require.NoError(t, err)
	iss, err := mdoc.NewIssuer(key, cert)
	require.NoError(t, err)

	claims, err := LoadClaims("", catalog)
	require.NoError(t, err)

	holder, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	return &fixture{
		clock:  clock,
		codes:  codes,
		offers: &OfferService{Codes: codes, Catalog: catalog, QR: qrx.NewPNGEncoder(0)},
		tokens: &TokenService{Codes: codes},
		credential: &CredentialService{
			Codes:   codes,
			Catalog: catalog,
			Claims:  claims,
			Signer:  &MdocSigner{Issuer: iss.WithClock(clock.Now)},
		},
		holder: holder,
	}
}
