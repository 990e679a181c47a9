package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dealflow/dealflow-api/internal/apperr"
	"github.com/dealflow/dealflow-api/internal/stage"
	"github.com/dealflow/dealflow-api/internal/stage/service"
	"github.com/dealflow/dealflow-api/pkg/middleware"
	"github.com/dealflow/dealflow-api/pkg/respond"
)

// RegisterStageRoutes mounts the registry on rg, which must already run the
// auth middleware. Mutations additionally require an elevated role. onChange,
// when set, runs after every successful mutation.
func RegisterStageRoutes(rg gin.IRouter, svc *service.Service, onChange func(c *gin.Context)) {
	changed := func(c *gin.Context) {
		if onChange != nil {
			onChange(c)
		}
	}

	rg.GET("/pipeline-stages", func(c *gin.Context) {
		list, err := svc.List(c.Request.Context())
		if err != nil {
			_ = c.Error(err)
			return
		}
		respond.OK(c, http.StatusOK, list)
	})

	admin := rg.Group("/pipeline-stages", middleware.RequireElevated())

	admin.POST("", func(c *gin.Context) {
		var in service.CreateInput
		if err := c.ShouldBindJSON(&in); err != nil {
			_ = c.Error(apperr.Validation("invalid request body: %v", err))
			return
		}
		st, err := svc.Create(c.Request.Context(), in)
		if err != nil {
			_ = c.Error(err)
			return
		}
		changed(c)
		respond.OK(c, http.StatusCreated, st)
	})

	admin.PUT("/reorder", func(c *gin.Context) {
		var req struct {
			Items []service.ReorderItem `json:"items"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			_ = c.Error(apperr.Validation("invalid request body: %v", err))
			return
		}
		n, err := svc.Reorder(c.Request.Context(), req.Items)
		if err != nil {
			_ = c.Error(err)
			return
		}
		changed(c)
		respond.OK(c, http.StatusOK, gin.H{"modified": n})
	})

	admin.PATCH("/:id", func(c *gin.Context) {
		var p stage.Patch
		if err := c.ShouldBindJSON(&p); err != nil {
			_ = c.Error(apperr.Validation("invalid request body: %v", err))
			return
		}
		st, err := svc.Update(c.Request.Context(), c.Param("id"), p)
		if err != nil {
			_ = c.Error(err)
			return
		}
		changed(c)
		respond.OK(c, http.StatusOK, st)
	})

	admin.DELETE("/:id", func(c *gin.Context) {
		id := c.Param("id")
		if err := svc.Delete(c.Request.Context(), id); err != nil {
			_ = c.Error(err)
			return
		}
		changed(c)
		respond.OK(c, http.StatusOK, gin.H{"id": id, "deleted": true})
	})
}
