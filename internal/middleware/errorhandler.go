package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/guttosm/indexpulse/internal/domain/dto"
	"github.com/guttosm/indexpulse/internal/logger"
)

// ErrorHandler converts errors collected on the Gin context into a
// standardized 500 response, unless a handler already wrote a status.
func ErrorHandler(c *gin.Context) {
	c.Next()

	if len(c.Errors) == 0 || c.Writer.Written() {
		return
	}
	err := c.Errors.Last().Err
	logger.L().Error().Err(err).Str("path", c.Request.URL.Path).Msg("handler error")
	c.JSON(http.StatusInternalServerError, dto.NewErrorResponse("internal error", err))
}

// AbortWithError stops the handler chain and writes a standardized error
// body with the given status.
func AbortWithError(c *gin.Context, status int, message string, err error) {
	c.AbortWithStatusJSON(status, dto.NewErrorResponse(message, err))
}
