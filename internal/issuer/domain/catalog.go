package domain

// Credential formats.
const FormatMSOMdoc = "mso_mdoc"

// Claim value types advertised in metadata.
const (
	ValueTypeString   = "string"
	ValueTypeFullDate = "full-date"
)

// Display is a localized label.
type Display struct {
	Name            string
	Locale          string
	LogoURL         string
	LogoAltText     string
	BackgroundColor string
	TextColor       string
}

// ClaimDescriptor describes one data element of a credential.
type ClaimDescriptor struct {
	Name      string
	Mandatory bool
	ValueType string
	Display   []Display
}

// ProofType lists what the issuer accepts for one proof type.
type ProofType struct {
	SigningAlgs []string
	// COSE algorithm and curve identifiers, cwt only.
	Algs   []int
	Curves []int
}

// CredentialConfiguration is one entry of credential_configurations_supported.
type CredentialConfiguration struct {
	ID             string
	Format         string
	DocType        string
	Scope          string
	Namespace      string
	BindingMethods []string
	SigningAlgs    []string
	ProofTypes     map[string]ProofType
	Display        []Display
	Claims         []ClaimDescriptor
}

// Claim returns the descriptor named name.
func (c CredentialConfiguration) Claim(name string) (ClaimDescriptor, bool) {
	for _, d := range c.Claims {
		if d.Name == name {
			return d, true
		}
	}
	return ClaimDescriptor{}, false
}

// Catalog is the ordered set of credential configurations the issuer offers.
type Catalog []CredentialConfiguration

// Get looks up a configuration by id.
func (c Catalog) Get(id string) (CredentialConfiguration, bool) {
	for _, cfg := range c {
		if cfg.ID == id {
			return cfg, true
		}
	}
	return CredentialConfiguration{}, false
}

// ByDocType finds the configuration for an mdoc doctype.
func (c Catalog) ByDocType(docType string) (CredentialConfiguration, bool) {
	for _, cfg := range c {
		if cfg.DocType == docType {
			return cfg, true
		}
	}
	return CredentialConfiguration{}, false
}

const (
	LoyaltyConfigurationID = "eu.europa.ec.eudi.loyalty_mdoc"
	LoyaltyDocType         = "eu.europa.ec.eudi.loyalty.1"
)

func en(name string) []Display { return []Display{{Name: name, Locale: "en"}} }

// DefaultCatalog returns the loyalty card mdoc configuration.
func DefaultCatalog() Catalog {
	return Catalog{{
		ID:             LoyaltyConfigurationID,
		Format:         FormatMSOMdoc,
		DocType:        LoyaltyDocType,
		Scope:          LoyaltyDocType,
		Namespace:      LoyaltyDocType,
		BindingMethods: []string{"jwk", "cose_key"},
		SigningAlgs:    []string{"ES256"},
		ProofTypes: map[string]ProofType{
			"jwt": {SigningAlgs: []string{"ES256"}},
			"cwt": {SigningAlgs: []string{"ES256"}, Algs: []int{-7}, Curves: []int{1}},
		},
		Display: []Display{{
			Name:            "Loyalty",
			Locale:          "en",
			BackgroundColor: "#12107c",
			TextColor:       "#FFFFFF",
		}},
		Claims: []ClaimDescriptor{
			{Name: "client_id", Mandatory: true, ValueType: ValueTypeString, Display: en("Company internal client id")},
			{Name: "company", Mandatory: true, ValueType: ValueTypeString, Display: en("Loyalty card company")},
			{Name: "expiry_date", Mandatory: true, ValueType: ValueTypeFullDate, Display: en("Expiry date")},
			{Name: "family_name", Mandatory: true, ValueType: ValueTypeString, Display: en("Current family name")},
			{Name: "given_name", Mandatory: true, ValueType: ValueTypeString, Display: en("Current first names")},
			{Name: "issuance_date", Mandatory: true, ValueType: ValueTypeFullDate, Display: en("Issuance date")},
		},
	}}
}
