//nolint:revive // types is a standard Go package name pattern
package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCreateProductRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		request CreateProductRequest
		wantErr bool
		errMsg  string
	}{
		{
			name: "valid request",
			request: CreateProductRequest{
				Name:         "Quantum Widget",
				AffiliateURL: "https://example.com/aff/quantum",
				Description:  "A revolutionary widget.",
			},
		},
		{
			name: "valid without description",
			request: CreateProductRequest{
				Name:         "Galactic Mug",
				AffiliateURL: "https://example.com/aff/mug",
			},
		},
		{
			name: "missing name",
			request: CreateProductRequest{
				AffiliateURL: "https://example.com/aff/mug",
			},
			wantErr: true,
			errMsg:  "Name",
		},
		{
			name: "invalid affiliate url",
			request: CreateProductRequest{
				Name:         "Galactic Mug",
				AffiliateURL: "not a url",
			},
			wantErr: true,
			errMsg:  "AffiliateURL",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.request.Validate()
			if tt.wantErr {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestUpdateConfigRequest_Validate(t *testing.T) {
	persona := "Witty and informative"
	empty := ""

	assert.NoError(t, (&UpdateConfigRequest{BrandPersona: &persona}).Validate())
	assert.NoError(t, (&UpdateConfigRequest{Providers: []string{"gemini", "fallback"}}).Validate())
	assert.NoError(t, (&UpdateConfigRequest{}).Validate())
	assert.Error(t, (&UpdateConfigRequest{BrandPersona: &empty}).Validate())
	assert.Error(t, (&UpdateConfigRequest{Providers: []string{""}}).Validate())
}

func TestOpportunityRequest_Validate(t *testing.T) {
	assert.NoError(t, (&OpportunityRequest{Niche: "home office gadgets"}).Validate())
	assert.Error(t, (&OpportunityRequest{}).Validate())
}
