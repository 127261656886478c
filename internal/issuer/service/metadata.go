package service

import (
	"strings"

	"github.com/samber/lo"

	"github.com/aussiebroadwan/vcissuer/internal/issuer/domain"
	"github.com/aussiebroadwan/vcissuer/pkg/issuersdk"
)

const (
	TokenPath      = "/token"
	CredentialPath = "/credential"
)

// MetadataService renders the well-known documents from the catalog. It has
// no state beyond the catalog, so the output depends only on baseURL.
type MetadataService struct {
	Catalog domain.Catalog
	Display []domain.Display
}

// DefaultIssuerDisplay is the issuer-level display block.
func DefaultIssuerDisplay() []domain.Display {
	return []domain.Display{{Name: "Digdir loyalty issuer", Locale: "en"}}
}

func (s *MetadataService) Metadata(baseURL string) issuersdk.IssuerMetadata {
	baseURL = strings.TrimRight(baseURL, "/")

	configs := make(map[string]issuersdk.CredentialConfigurationMetadata, len(s.Catalog))
	for _, cfg := range s.Catalog {
		configs[cfg.ID] = configurationMetadata(cfg)
	}

	return issuersdk.IssuerMetadata{
		CredentialIssuer:                  baseURL,
		CredentialEndpoint:                baseURL + CredentialPath,
		TokenEndpoint:                     baseURL + TokenPath,
		Display:                           displays(s.Display),
		CredentialConfigurationsSupported: configs,
	}
}

func (s *MetadataService) AuthorizationServer(baseURL string) issuersdk.AuthorizationServerMetadata {
	baseURL = strings.TrimRight(baseURL, "/")
	return issuersdk.AuthorizationServerMetadata{
		Issuer:                            baseURL,
		TokenEndpoint:                     baseURL + TokenPath,
		GrantTypesSupported:               []string{issuersdk.GrantTypePreAuthorizedCode},
		PreAuthorizedGrantAnonymousAccess: true,
		ResponseTypesSupported:            []string{},
	}
}

func configurationMetadata(cfg domain.CredentialConfiguration) issuersdk.CredentialConfigurationMetadata {
	proofTypes := lo.MapValues(cfg.ProofTypes, func(p domain.ProofType, _ string) issuersdk.ProofTypeMetadata {
		return issuersdk.ProofTypeMetadata{
			SigningAlgValuesSupported: p.SigningAlgs,
			AlgValuesSupported:        p.Algs,
			CrvValuesSupported:        p.Curves,
		}
	})

	claims := lo.SliceToMap(cfg.Claims, func(c domain.ClaimDescriptor) (string, issuersdk.ClaimMetadata) {
		return c.Name, issuersdk.ClaimMetadata{
			Mandatory: c.Mandatory,
			ValueType: c.ValueType,
			Display:   displays(c.Display),
		}
	})

	return issuersdk.CredentialConfigurationMetadata{
		Format:                               cfg.Format,
		DocType:                              cfg.DocType,
		Scope:                                cfg.Scope,
		CryptographicBindingMethodsSupported: cfg.BindingMethods,
		CredentialSigningAlgValuesSupported:  cfg.SigningAlgs,
		ProofTypesSupported:                  proofTypes,
		Display:                              displays(cfg.Display),
		Claims:                               map[string]map[string]issuersdk.ClaimMetadata{cfg.Namespace: claims},
	}
}

func displays(in []domain.Display) []issuersdk.Display {
	return lo.Map(in, func(d domain.Display, _ int) issuersdk.Display {
		out := issuersdk.Display{
			Name:            d.Name,
			Locale:          d.Locale,
			BackgroundColor: d.BackgroundColor,
			TextColor:       d.TextColor,
		}
		if d.LogoURL != "" {
			out.Logo = &issuersdk.Logo{URI: d.LogoURL, AltText: d.LogoAltText}
		}
		return out
	})
}
