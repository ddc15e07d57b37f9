// Package handler holds what the resource handlers share.
package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/citysmiles/dental-admin/pkg/errors"
)

// Route groups a resource's endpoints under the API root.
type Route interface {
	RegisterRoutes(r *gin.RouterGroup)
}

// ParseID reads the :id path parameter, which must be a UUID.
func ParseID(c *gin.Context) (string, error) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		return "", errors.BadRequest("invalid id", err)
	}
	return id, nil
}

func BindJSON(c *gin.Context, v any) error {
	if err := c.ShouldBindJSON(v); err != nil {
		return errors.BadRequest("invalid request body", err)
	}
	return nil
}
