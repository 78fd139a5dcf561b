// Package handlers implements the HTTP request handlers.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/turtacn/CyberTrace-Intelligence/pkg/errors"
	"github.com/turtacn/CyberTrace-Intelligence/pkg/types/common"
)

// respondError maps an application error to its HTTP status and a stable
// error body.  Internal detail never leaks to the client.
func respondError(c *gin.Context, err error) {
	code := apperrors.GetCode(err)
	status := apperrors.HTTPStatusForCode(code)

	message := err.Error()
	if status == http.StatusInternalServerError {
		message = "internal server error"
	}
	c.JSON(status, common.ErrorDetail{Code: string(code), Message: message})
}

// bindJSON decodes the request body, rejecting malformed payloads uniformly.
func bindJSON(c *gin.Context, dest interface{}) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		respondError(c, apperrors.Wrap(err, apperrors.CodeInvalidParam, "malformed request body"))
		return false
	}
	return true
}
