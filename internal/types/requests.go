package types

import (
	"github.com/go-playground/validator/v10"
)

// CreateProductRequest represents the request to add a product to the catalog.
type CreateProductRequest struct {
	Name         string `json:"name" validate:"required,min=1,max=200"`
	AffiliateURL string `json:"affiliate_url" validate:"required,url"`
	Description  string `json:"description,omitempty" validate:"max=5000"`
}

// UpdateConfigRequest represents a partial orchestrator configuration update.
type UpdateConfigRequest struct {
	BrandPersona *string  `json:"brand_persona,omitempty" validate:"omitempty,min=1"`
	Providers    []string `json:"providers,omitempty" validate:"omitempty,min=1,dive,required"`
}

// OpportunityRequest represents a request to hunt for product opportunities in a niche.
type OpportunityRequest struct {
	Niche string `json:"niche" validate:"required,min=2,max=200"`
}

// Validate validates the CreateProductRequest using the validator.
func (r *CreateProductRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}

// Validate validates the UpdateConfigRequest using the validator.
func (r *UpdateConfigRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}

// Validate validates the OpportunityRequest using the validator.
func (r *OpportunityRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}
