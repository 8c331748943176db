package middleware

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/CMihai83/documentiulia.ro-sub050/internal/apierror"
	"github.com/CMihai83/documentiulia.ro-sub050/internal/model"
)

const (
	CompanyIDKey  = "company_id"
	MemberRoleKey = "member_role"
)

// MembershipResolver returns the role a user holds in a company, or an
// error wrapping apierror.ErrForbidden for non-members.
type MembershipResolver interface {
	MemberRole(ctx context.Context, companyID, userID uuid.UUID) (string, error)
}

// CompanyAccess guards every /companies/:companyId route. It must run after
// JWTAuth. Viewers may only read.
func CompanyAccess(resolver MembershipResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		companyID, err := uuid.Parse(c.Param("companyId"))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, apierror.New("Invalid company id"))
			return
		}

		role, err := resolver.MemberRole(c.Request.Context(), companyID, UserID(c))
		if err != nil {
			status := apierror.Status(err)
			msg := apierror.Message(err)
			if status == http.StatusInternalServerError {
				log.Error().Err(err).Str("request_id", c.GetString(RequestIDKey)).
					Str("company_id", companyID.String()).Msg("membership lookup failed")
				msg = internalErrorMessage
			}
			c.AbortWithStatusJSON(status, apierror.New(msg))
			return
		}

		if role == model.MemberViewer && !isReadMethod(c.Request.Method) {
			c.AbortWithStatusJSON(http.StatusForbidden, apierror.New("Viewers have read-only access"))
			return
		}

		c.Set(CompanyIDKey, companyID)
		c.Set(MemberRoleKey, role)
		c.Next()
	}
}

// RequireMemberRole narrows a company route to the listed membership roles.
func RequireMemberRole(roles ...string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(c *gin.Context) {
		if !allowed[c.GetString(MemberRoleKey)] {
			c.AbortWithStatusJSON(http.StatusForbidden, apierror.New("Insufficient company permissions"))
			return
		}
		c.Next()
	}
}

// CompanyID is the tenant resolved by CompanyAccess.
func CompanyID(c *gin.Context) uuid.UUID {
	v, _ := c.Get(CompanyIDKey)
	id, _ := v.(uuid.UUID)
	return id
}

func isReadMethod(m string) bool {
	return m == http.MethodGet || m == http.MethodHead || m == http.MethodOptions
}
