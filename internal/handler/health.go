package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/staynest/backend/internal/model"
)

// Ping godoc
// @Summary Health check
// @Tags health
// @Produce json
// @Success 200 {object} model.PingResponse
// @Router /ping [get]
func Ping(c *gin.Context) {
	c.JSON(http.StatusOK, model.PingResponse{Message: "pong"})
}

// Root godoc
// @Summary Server status
// @Description Reports server status. When a valid token accompanies the
// @Description request the response also names the signed-in user.
// @Tags health
// @Produce json
// @Success 200 {object} model.RootResponse
// @Router / [get]
func Root(c *gin.Context) {
	resp := model.RootResponse{
		Status:  "ok",
		Message: "StayNest API server is running",
	}
	if user := GetAuthUser(c); user != nil {
		resp.User = user.Email
	}
	c.JSON(http.StatusOK, resp)
}
