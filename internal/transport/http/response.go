package httptransport

import "github.com/gin-gonic/gin"

// ResultResponse carries the text produced by a recognition call.
type ResultResponse struct {
	Result string `json:"result"`
}

// ErrorResponse is returned for malformed requests.
type ErrorResponse struct {
	Error string `json:"error"`
}

func RespondResult(c *gin.Context, httpStatus int, result string) {
	c.JSON(httpStatus, ResultResponse{Result: result})
}

func RespondError(c *gin.Context, httpStatus int, message string) {
	c.AbortWithStatusJSON(httpStatus, ErrorResponse{Error: message})
}
