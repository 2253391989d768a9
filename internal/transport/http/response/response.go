package response

import (
	"github.com/gin-gonic/gin"
)

type ErrorBody struct {
	Error string `json:"error"`
}

type MessageBody struct {
	Message string `json:"message"`
}

func Error(msg string) ErrorBody { return ErrorBody{Error: msg} }

func Message(msg string) MessageBody { return MessageBody{Message: msg} }

// Abort stops the chain with an error body. An empty msg falls back to the
// default text for status.
func Abort(c *gin.Context, status int, msg string) {
	if msg == "" {
		msg = StatusMsg[status]
	}
	c.AbortWithStatusJSON(status, Error(msg))
}
