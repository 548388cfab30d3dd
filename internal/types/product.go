// Package types provides type definitions for structured data used throughout the catalog-agent system.
package types

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ProductStatus is the lifecycle status of a catalog item
type ProductStatus string

// Product status constants
const (
	ProductStatusDraft             ProductStatus = "draft"
	ProductStatusProcessing        ProductStatus = "processing"
	ProductStatusAnalysisCompleted ProductStatus = "analysis_completed"
	ProductStatusAnalysisFailed    ProductStatus = "analysis_failed"
	ProductStatusPublished         ProductStatus = "published"
	ProductStatusArchived          ProductStatus = "archived"
)

// ErrNotPublishable is returned when publishing a product whose analysis has not completed.
var ErrNotPublishable = errors.New("product cannot be published until analysis is completed")

// Product is a catalog item that the analysis pipeline generates marketing content for.
type Product struct {
	ID             string        `json:"id"`
	Name           string        `json:"name"`
	Description    string        `json:"description"`
	AffiliateURL   string        `json:"affiliate_url"`
	Status         ProductStatus `json:"status"`
	Published      bool          `json:"published"`
	AnalysisResult *Job          `json:"analysis_result,omitempty"`
	ActiveJobID    string        `json:"active_job_id,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

// NewProduct creates a draft product with a fresh ID.
func NewProduct(name, affiliateURL, description string) *Product {
	now := time.Now()
	return &Product{
		ID:           uuid.New().String(),
		Name:         name,
		Description:  description,
		AffiliateURL: affiliateURL,
		Status:       ProductStatusDraft,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// UpdateStatus sets the status and touches UpdatedAt.
func (p *Product) UpdateStatus(status ProductStatus) {
	p.Status = status
	p.UpdatedAt = time.Now()
}

// SetAnalysisResult attaches the result of a successful run, replacing any earlier one.
func (p *Product) SetAnalysisResult(job *Job) {
	p.AnalysisResult = job
	p.UpdatedAt = time.Now()
}

// SetActiveJob records the job currently analyzing the product ("" clears it).
func (p *Product) SetActiveJob(jobID string) {
	p.ActiveJobID = jobID
	p.UpdatedAt = time.Now()
}

// Publish makes the product visible on the public site.
func (p *Product) Publish() error {
	if p.Status != ProductStatusAnalysisCompleted {
		return fmt.Errorf("%w (status: %s)", ErrNotPublishable, p.Status)
	}
	p.Published = true
	p.Status = ProductStatusPublished
	p.UpdatedAt = time.Now()
	return nil
}

// Unpublish hides the product again. A published product returns to analysis_completed.
func (p *Product) Unpublish() {
	p.Published = false
	if p.Status == ProductStatusPublished {
		p.Status = ProductStatusAnalysisCompleted
	}
	p.UpdatedAt = time.Now()
}

// Clone returns a deep copy of the product.
func (p *Product) Clone() *Product {
	if p == nil {
		return nil
	}
	c := *p
	c.AnalysisResult = p.AnalysisResult.Clone()
	return &c
}
