package handler

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/course-registrar/internal/middleware"
	"github.com/noah-isme/course-registrar/internal/models"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

// identityFromContext returns the caller identity, or nil when the request
// carries no valid claims. Services reject a nil identity.
func identityFromContext(c *gin.Context) *models.Identity {
	return claimsFromContext(c).Identity()
}

// listFilterFromQuery reads the shared listing parameters q, sort, order,
// page and per_page. Unparseable numbers fall back to the defaults.
func listFilterFromQuery(c *gin.Context) models.ListFilter {
	var filter models.ListFilter
	filter.Search = strings.TrimSpace(c.Query("q"))
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.Query("per_page")); err == nil {
		filter.PageSize = size
	}
	return filter
}
