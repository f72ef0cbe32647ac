package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ErrorBody is the JSON shape of every failure response
type ErrorBody struct {
	Error string `json:"error"`
}

// JSON sends v encoded as JSON
func JSON(c *gin.Context, code int, v interface{}) {
	c.JSON(code, v)
}

// Raw sends an already encoded JSON body
func Raw(c *gin.Context, code int, body []byte) {
	c.Data(code, "application/json; charset=utf-8", body)
}

// Error sends an error response
func Error(c *gin.Context, code int, message string) {
	c.JSON(code, ErrorBody{Error: message})
}

// BadRequest sends a 400 bad request response
func BadRequest(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, message)
}

// Unauthorized sends a 401 response
func Unauthorized(c *gin.Context, message string) {
	Error(c, http.StatusUnauthorized, message)
}
