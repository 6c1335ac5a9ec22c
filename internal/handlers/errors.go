package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/prudhivi99/Distributed-Systems/stockflow/internal/apperr"
)

func respondError(c *gin.Context, err error) {
	_ = c.Error(err)
	c.JSON(apperr.HTTPStatus(err), apperr.Body(err))
}
