// Package datasets registers the directory's datasets with the core
// registry. Import it for its side effects.
package datasets

import "github.com/JonMunkholm/bondweb/internal/core"

func init() {
	registerInstitutions()
	registerInvestors()
	registerIssuers()
}

func registerInstitutions() {
	core.Register(core.DatasetDefinition{
		Key:          "institutions",
		Label:        "Institutions",
		Singular:     "Institution",
		Summary:      "Banks, exchanges, regulators and other players in global capital markets.",
		Source:       "institutions.csv",
		Editable:     true,
		Remote:       true,
		SearchFields: []string{"name", "category", "country", "description"},
		FormFields: []core.FormField{
			{Name: "id", Label: "ID", Kind: core.FieldText, Required: true, Placeholder: "unique-id"},
			{Name: "name", Label: "Name", Kind: core.FieldText, Required: true},
			{Name: "category", Label: "Category", Kind: core.FieldText, Placeholder: "Bank, Exchange, Regulator..."},
			{Name: "country", Label: "Country", Kind: core.FieldText},
			{Name: "website", Label: "Website", Kind: core.FieldURL, Placeholder: "https://"},
			{Name: "total_assets", Label: "Total assets (USD bn)", Kind: core.FieldNumber},
			{Name: "image_url", Label: "Image URL", Kind: core.FieldURL},
			{Name: "description", Label: "Description", Kind: core.FieldTextarea},
		},
		CardFields:   []string{"category", "country"},
		DetailFields: []string{"id", "name", "category", "country", "description", "website", "image_url"},
	})
}

func registerInvestors() {
	core.Register(core.DatasetDefinition{
		Key:          "investors",
		Label:        "Investors",
		Singular:     "Investor",
		Summary:      "Asset managers, pension funds and other buyers of debt.",
		Source:       "investors.csv",
		SearchFields: []string{"name", "description", "keyData"},
		CardFields:   []string{"description"},
		DetailFields: []string{"id", "name", "description", "image", "link"},
	})
}

func registerIssuers() {
	core.Register(core.DatasetDefinition{
		Key:          "issuers",
		Label:        "Issuers",
		Singular:     "Issuer",
		Summary:      "Sovereigns, agencies and companies raising capital through bonds.",
		Source:       "issuers.csv",
		SearchFields: []string{"name", "description", "keyData"},
		CardFields:   []string{"description"},
		DetailFields: []string{"id", "name", "description", "image", "link"},
	})
}
