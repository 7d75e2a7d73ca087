package tenant

import (
	"github.com/edumesh/edumesh-api/internal/models"
	appErrors "github.com/edumesh/edumesh-api/pkg/errors"
)

// Context identifies one tenant and the logical database its data lives in.
// Every storage access downstream of a request is scoped to exactly one of
// these; crossing tenants is a defect.
type Context struct {
	SchoolID string
	DBName   string
}

// SchoolForClaims decides which school a request acts on. Operators carry no
// school of their own and must name one explicitly; tenant-bound roles always
// act on their own school and may not name another.
func SchoolForClaims(claims *models.JWTClaims, explicitSchoolID string) (string, error) {
	if claims == nil {
		return "", appErrors.ErrUnauthorized
	}
	if !claims.Role.TenantBound() {
		if explicitSchoolID == "" {
			return "", appErrors.Clone(appErrors.ErrValidation, "school id is required for operator requests")
		}
		return explicitSchoolID, nil
	}
	if claims.SchoolID == "" {
		return "", appErrors.Clone(appErrors.ErrUnauthorized, "token carries no school")
	}
	if explicitSchoolID != "" && explicitSchoolID != claims.SchoolID {
		return "", appErrors.Clone(appErrors.ErrForbidden, "cannot act on another school")
	}
	return claims.SchoolID, nil
}
