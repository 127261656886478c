package domain_test

import (
	"testing"
	"time"

	"github.com/aussiebroadwan/vcissuer/internal/issuer/domain"
	"github.com/stretchr/testify/require"
)

func TestCodeStateTransitions(t *testing.T) {
	all := []domain.CodeState{
		domain.CodeStateIssued, domain.CodeStateRedeemed,
		domain.CodeStateConsumed, domain.CodeStateExpired,
	}
	allowed := map[[2]domain.CodeState]bool{
		{domain.CodeStateIssued, domain.CodeStateRedeemed}:   true,
		{domain.CodeStateIssued, domain.CodeStateExpired}:    true,
		{domain.CodeStateRedeemed, domain.CodeStateConsumed}: true,
		{domain.CodeStateRedeemed, domain.CodeStateExpired}:  true,
	}

	for _, from := range all {
		require.True(t, from.Valid())
		for _, to := range all {
			t.Run(string(from)+"->"+string(to), func(t *testing.T) {
				require.Equal(t, allowed[[2]domain.CodeState{from, to}], from.CanTransition(to))
			})
		}
	}

	require.True(t, domain.CodeStateConsumed.Terminal())
	require.True(t, domain.CodeStateExpired.Terminal())
	require.False(t, domain.CodeStateRedeemed.Terminal())
	require.False(t, domain.CodeState("BOGUS").Valid())
}

func TestExpiry(t *testing.T) {
	now := time.Now()
	c := domain.PreAuthCode{ExpiresAt: now}
	require.False(t, c.Expired(now))
	require.True(t, c.Expired(now.Add(time.Nanosecond)))

	tok := domain.AccessToken{ExpiresAt: now}
	require.False(t, tok.Expired(now))
	require.False(t, tok.Used())
	tok.UsedAt = &now
	require.True(t, tok.Used())
}

func TestDefaultCatalog(t *testing.T) {
	cat := domain.DefaultCatalog()

	cfg, ok := cat.Get(domain.LoyaltyConfigurationID)
	require.True(t, ok)
	require.Equal(t, domain.FormatMSOMdoc, cfg.Format)
	require.Equal(t, domain.LoyaltyDocType, cfg.DocType)
	require.Len(t, cfg.Claims, 6)

	d, ok := cfg.Claim("expiry_date")
	require.True(t, ok)
	require.Equal(t, domain.ValueTypeFullDate, d.ValueType)

	_, ok = cat.Get("unknown")
	require.False(t, ok)

	_, ok = cat.ByDocType(domain.LoyaltyDocType)
	require.True(t, ok)
}
