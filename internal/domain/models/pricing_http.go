package models

// Requests for pricing HTTP endpoints. Defined in domain for consistency and reuse.

type DecisionRequest struct {
	ProductID string `query:"product_id" json:"product_id" validate:"required"`
}

type UpdateRequest struct {
	// DryRun computes decisions without persisting prices or publishing events.
	DryRun bool `query:"dry_run" json:"dry_run" default:"false"`
}

type ProductListRequest struct {
	Limit int `query:"limit" json:"limit" default:"500" validate:"gte=1,lte=5000"`
}
