package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/audit-trail-api/internal/models"
)

func roleRouter(claims *models.JWTClaims, required ...models.UserRole) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	if claims != nil {
		r.Use(func(c *gin.Context) {
			c.Set(ContextUserKey, claims)
		})
	}
	r.POST("/events", RequireRoles(required...), func(c *gin.Context) {
		c.Status(http.StatusCreated)
	})
	return r
}

func TestRequireRolesRejectsUnlistedRole(t *testing.T) {
	r := roleRouter(
		&models.JWTClaims{UserID: "user-1", Role: models.UserRole("INTRUDER")},
		models.RoleAdmin, models.RoleComplianceOfficer, models.RoleAuditor,
	)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/events", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRequireRolesAllowsListedRole(t *testing.T) {
	r := roleRouter(
		&models.JWTClaims{UserID: "user-1", Role: models.RoleAuditor},
		models.RoleAdmin, models.RoleComplianceOfficer, models.RoleAuditor,
	)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/events", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestRequireRolesWithoutClaims(t *testing.T) {
	r := roleRouter(nil, models.RoleAdmin)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/events", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
