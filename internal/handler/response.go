package handler

import (
	"errors"

	"github.com/blues/ess/internal/errs"
	"github.com/gin-gonic/gin"
)

// Success 成功响应
func Success(c *gin.Context, statusCode int, data interface{}) {
	c.JSON(statusCode, data)
}

// Fail 错误响应，携带机器可读的错误类别与人类可读信息
func Fail(c *gin.Context, err error) {
	message := err.Error()
	var e *errs.Error
	if errors.As(err, &e) {
		message = e.Msg
	}
	c.JSON(errs.HTTPStatus(err), gin.H{
		"error": gin.H{
			"kind":    string(errs.KindOf(err)),
			"message": message,
		},
	})
}
