package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/dealflow/dealflow-api/internal/database"
	"github.com/dealflow/dealflow-api/internal/deal/repository"
	"github.com/dealflow/dealflow-api/internal/deal/service"
	"github.com/dealflow/dealflow-api/internal/models"
	"github.com/dealflow/dealflow-api/pkg/middleware"
)

func TestChangeStageEndpoint(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := database.NewMemoryDB()
	owner := primitive.NewObjectID()
	id := db.InsertDeal(models.Deal{Title: "Acme", Amount: 250000, Stage: models.StageProposal, Probability: 70, OwnerID: owner})

	caller := &models.User{ID: owner, Role: "rep"}
	g := gin.New()
	g.Use(middleware.ErrorHandler(false))
	api := g.Group("", func(c *gin.Context) {
		if caller != nil {
			middleware.SetUser(c, caller)
		}
		c.Next()
	})
	invalidations := 0
	RegisterDealRoutes(api, service.NewService(repository.NewMemoryRepo(db), nil), func(*gin.Context) { invalidations++ })

	patch := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPatch, "/deals/"+id.Hex()+"/stage", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		g.ServeHTTP(w, req)
		return w
	}

	w := patch(`{"stage":"Negotiation"}`)
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		OK   bool        `json:"ok"`
		Data models.Deal `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.True(t, resp.OK)
	require.Equal(t, "Negotiation", resp.Data.Stage)
	require.Equal(t, 80, resp.Data.Probability)
	require.Equal(t, 1, invalidations)

	require.Equal(t, http.StatusBadRequest, patch(`{"stage":"Somewhere"}`).Code)
	require.Equal(t, http.StatusBadRequest, patch(`{"stage":`).Code)

	caller = &models.User{ID: primitive.NewObjectID(), Role: "rep"}
	require.Equal(t, http.StatusForbidden, patch(`{"stage":"Lead"}`).Code)

	caller = nil
	require.Equal(t, http.StatusUnauthorized, patch(`{"stage":"Lead"}`).Code)
	require.Equal(t, 1, invalidations)
}
