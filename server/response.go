package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/kbukum/audiotranscriber/errors"
)

// DataResponse is the standard success envelope.
type DataResponse struct {
	Data any `json:"data"`
}

// RespondWithError writes err as a structured error body. AppErrors carry
// their own status; anything else becomes a 500.
func RespondWithError(c *gin.Context, err error) {
	appErr := apperrors.ToAppError(err)
	_ = c.Error(err)
	c.JSON(appErr.HTTPStatus, appErr.ToResponse())
}

// RespondOK sends a 200 response wrapping data.
func RespondOK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, DataResponse{Data: data})
}
