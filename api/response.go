package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/lifescribe/errors"
)

// DataResponse is the success envelope.
type DataResponse struct {
	Data any `json:"data"`
}

func respondOK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, DataResponse{Data: data})
}

// respondError renders err. Errors that are not AppErrors become a 500
// INTERNAL_ERROR without their message.
func respondError(c *gin.Context, err error) {
	appErr, ok := errors.AsAppError(err)
	if !ok {
		appErr = errors.Internal(err)
	}
	c.JSON(appErr.HTTPStatus, appErr.ToResponse())
}

func abort(c *gin.Context, err error) {
	respondError(c, err)
	c.Abort()
}
