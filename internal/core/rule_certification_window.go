package core

import (
	"context"
	"fmt"

	"github.com/ebuka-ez/TrackX/pkg/domain"
)

// NewCertificationWindowRule blocks commits that would store a certification
// whose expiry does not lie strictly beyond its issue counter.
func NewCertificationWindowRule() domain.Rule {
	return certificationWindowRule{}
}

type certificationWindowRule struct{}

func (certificationWindowRule) Name() string { return "certification_window" }

func (certificationWindowRule) Evaluate(_ context.Context, _ domain.RuleView, changes []domain.Change) (Result, error) {
	var result Result
	for _, change := range changes {
		if change.Entity != domain.EntityCertification {
			continue
		}
		cert, ok := change.After.(Certification)
		if !ok {
			continue
		}
		if cert.ExpiresAt <= cert.IssuedAt {
			result.Violations = append(result.Violations, domain.Violation{
				Rule:     "certification_window",
				Severity: domain.SeverityBlock,
				Message:  fmt.Sprintf("certification %d/%s expires at %d, issued at %d", cert.ProductID, cert.Type, cert.ExpiresAt, cert.IssuedAt),
				Entity:   domain.EntityCertification,
				EntityID: fmt.Sprintf("%d/%s", cert.ProductID, cert.Type),
			})
		}
	}
	return result, nil
}
