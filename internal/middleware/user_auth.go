package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// HeaderUserID 身份层注入的用户标识请求头
const HeaderUserID = "X-User-Id"

// UserAuthConfig 用户认证中间件配置
type UserAuthConfig struct {
	Logger *zap.Logger
}

// UserAuth 用户身份中间件
// 认证由站点的身份层完成，这里只信任其注入的用户标识请求头
func UserAuth(config UserAuthConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			userID := c.Request().Header.Get(HeaderUserID)
			if userID == "" {
				config.Logger.Warn("user id header missing",
					zap.String("path", c.Request().URL.Path),
					zap.String("remote_ip", c.RealIP()))

				return c.JSON(http.StatusUnauthorized, map[string]interface{}{
					"error": "未授权：缺少用户标识",
				})
			}

			c.Set("user_id", userID)
			return next(c)
		}
	}
}

// GetUserID 从请求上下文取出用户标识
func GetUserID(c echo.Context) string {
	userID, _ := c.Get("user_id").(string)
	return userID
}
