package payconfig

import "context"

// Repository is the configuration collaborator.
type Repository interface {
	ListTaxRules(ctx context.Context, status Status) ([]TaxRule, error)
	ListInsuranceBrackets(ctx context.Context, status Status) ([]InsuranceBracket, error)
	ListAllowanceRules(ctx context.Context, status Status) ([]AllowanceRule, error)
	GetSettings(ctx context.Context) (Settings, error)
}
