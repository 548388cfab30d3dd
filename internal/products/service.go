package products

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jonathan/catalog-agent/internal/agents"
	"github.com/jonathan/catalog-agent/internal/types"
)

// ErrAnalysisInProgress is returned when triggering an analysis while one is running.
var ErrAnalysisInProgress = errors.New("analysis already in progress")

// Analyzer starts asynchronous analysis runs.
type Analyzer interface {
	Start(ctx context.Context, productID string) (string, error)
}

// Service implements the catalog use cases.
type Service struct {
	repo     Repository
	analyzer Analyzer

	// triggerMu serializes the in-progress check with the status change
	triggerMu sync.Mutex
}

// NewService creates a catalog service
func NewService(repo Repository, analyzer Analyzer) *Service {
	return &Service{repo: repo, analyzer: analyzer}
}

// Create adds a draft product to the catalog.
func (s *Service) Create(ctx context.Context, req *types.CreateProductRequest) (*types.Product, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return s.repo.Create(ctx, types.NewProduct(req.Name, req.AffiliateURL, req.Description))
}

// Get returns a product with its review rendered for display.
func (s *Service) Get(ctx context.Context, id string) (*types.Product, error) {
	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return renderReview(product), nil
}

// List returns every product.
func (s *Service) List(ctx context.Context) ([]*types.Product, error) {
	return s.repo.FindAll(ctx)
}

// ListPublished returns the products visible on the public site, reviews rendered.
func (s *Service) ListPublished(ctx context.Context) ([]*types.Product, error) {
	list, err := s.repo.FindAllPublished(ctx)
	if err != nil {
		return nil, err
	}
	for _, product := range list {
		renderReview(product)
	}
	return list, nil
}

// renderReview puts the product's affiliate link into its generated review.
// The stored review keeps the placeholder so a changed link is picked up.
func renderReview(product *types.Product) *types.Product {
	job := product.AnalysisResult
	if job == nil || job.Result == nil || job.Result.Copywriting == nil {
		return product
	}
	result := *job.Result
	copywriting := *result.Copywriting
	copywriting.HTMLReview = agents.RenderReview(copywriting.HTMLReview, product.AffiliateURL)
	result.Copywriting = &copywriting
	rendered := *job
	rendered.Result = &result
	product.AnalysisResult = &rendered
	return product
}

// Delete removes a product unless it is being analyzed.
func (s *Service) Delete(ctx context.Context, id string) error {
	s.triggerMu.Lock()
	defer s.triggerMu.Unlock()

	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if product.Status == types.ProductStatusProcessing {
		return fmt.Errorf("%w for product %s", ErrAnalysisInProgress, id)
	}
	return s.repo.Delete(ctx, id)
}

// TriggerAnalysis starts an analysis run for a product and returns the job id.
// The product is marked processing before the run starts so that a second
// trigger is rejected until the run settles.
func (s *Service) TriggerAnalysis(ctx context.Context, id string) (string, error) {
	s.triggerMu.Lock()
	defer s.triggerMu.Unlock()

	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return "", err
	}
	if product.Status == types.ProductStatusProcessing {
		return "", fmt.Errorf("%w for product %s", ErrAnalysisInProgress, id)
	}

	previous := product.Status
	product.UpdateStatus(types.ProductStatusProcessing)
	if _, err := s.repo.Update(ctx, product); err != nil {
		return "", fmt.Errorf("failed to mark product as processing: %w", err)
	}

	jobID, err := s.analyzer.Start(ctx, id)
	if err != nil {
		product.UpdateStatus(previous)
		if _, rerr := s.repo.Update(context.WithoutCancel(ctx), product); rerr != nil {
			return "", errors.Join(err, rerr)
		}
		return "", err
	}
	return jobID, nil
}

// Publish makes an analyzed product public.
func (s *Service) Publish(ctx context.Context, id string) (*types.Product, error) {
	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := product.Publish(); err != nil {
		return nil, err
	}
	return s.repo.Update(ctx, product)
}

// Unpublish hides a product.
func (s *Service) Unpublish(ctx context.Context, id string) (*types.Product, error) {
	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	product.Unpublish()
	return s.repo.Update(ctx, product)
}
