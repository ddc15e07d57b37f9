package httputil

import (
	stderrors "errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/citysmiles/dental-admin/pkg/errors"
)

// Response wraps all API responses
type Response struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Code    int         `json:"code,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// RespondWithSuccess sends a success response
func RespondWithSuccess(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Status: "success",
		Data:   data,
	})
}

// RespondWithCreated sends a 201 success response
func RespondWithCreated(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{
		Status: "success",
		Data:   data,
	})
}

// RespondWithError sends an error response. Application errors keep their
// message; anything else is reported as an internal error.
func RespondWithError(c *gin.Context, err error) {
	statusCode := http.StatusInternalServerError
	message := "Internal server error"
	code := int(errors.ErrInternal)

	var appErr *errors.AppError
	if stderrors.As(err, &appErr) {
		statusCode = appErr.StatusCode()
		message = appErr.Error()
		code = int(appErr.Code)
	}

	_ = c.Error(err)
	c.JSON(statusCode, Response{
		Status:  "error",
		Message: message,
		Code:    code,
	})
}
