package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dealflow/dealflow-api/internal/apperr"
	"github.com/dealflow/dealflow-api/internal/deal/service"
	"github.com/dealflow/dealflow-api/pkg/middleware"
	"github.com/dealflow/dealflow-api/pkg/respond"
)

// RegisterDealRoutes mounts the stage-change endpoint on an authenticated group.
func RegisterDealRoutes(rg gin.IRouter, svc *service.Service, onChange func(c *gin.Context)) {
	rg.PATCH("/deals/:id/stage", func(c *gin.Context) {
		user, ok := middleware.CurrentUser(c)
		if !ok {
			respond.Fail(c, http.StatusUnauthorized, "authentication required")
			return
		}
		var in service.ChangeStageInput
		if err := c.ShouldBindJSON(&in); err != nil {
			_ = c.Error(apperr.Validation("invalid request body: %v", err))
			return
		}
		d, err := svc.ChangeStage(c.Request.Context(), user, c.Param("id"), in)
		if err != nil {
			_ = c.Error(err)
			return
		}
		if onChange != nil {
			onChange(c)
		}
		respond.OK(c, http.StatusOK, d)
	})
}
