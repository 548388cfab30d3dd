package agents

// Suite holds one instance of every pipeline agent bound to the same provider.
type Suite struct {
	DataScout      *DataScout
	CompetitorSEO  *CompetitorSEO
	Copywriter     *Copywriter
	ProductAnalyst *ProductAnalyst
	SEOScorer      *SEOScorer
	VisualDesigner *VisualDesigner
	VideoScripter  *VideoScripter
	Improvements   *ImprovementSuggester
	QualityChecker *QualityChecker
}

// NewSuite creates the pipeline agents for cfg.
func NewSuite(cfg Config) *Suite {
	return &Suite{
		DataScout:      NewDataScout(cfg),
		CompetitorSEO:  NewCompetitorSEO(cfg),
		Copywriter:     NewCopywriter(cfg),
		ProductAnalyst: NewProductAnalyst(cfg),
		SEOScorer:      NewSEOScorer(cfg),
		VisualDesigner: NewVisualDesigner(cfg),
		VideoScripter:  NewVideoScripter(cfg),
		Improvements:   NewImprovementSuggester(cfg),
		QualityChecker: NewQualityChecker(cfg),
	}
}
