package handlers

import (
	"log"
	"net/http"
	"xunwu/internal/apperr"
	"xunwu/internal/middleware"
	"xunwu/internal/models"

	"github.com/gin-gonic/gin"
)

// currentUser 取登录用户，AuthRequired 之后必定存在
func currentUser(c *gin.Context) *models.User {
	return c.MustGet(middleware.CheckUserKey).(*models.User)
}

// Fail 统一的错误出口：业务错误按分类映射状态码，
// 其余一律 500 并记日志，不向客户端泄漏内部细节
func Fail(c *gin.Context, err error) {
	if e := apperr.As(err); e != nil {
		c.JSON(apperr.HTTPStatus(e), gin.H{
			"error": e.Message,
			"code":  string(e.Kind),
		})
		return
	}
	log.Printf("internal error: %v", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "服务器开小差了，请稍后再试"})
}
