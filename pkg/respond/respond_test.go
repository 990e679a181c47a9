package respond

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func TestEnvelopes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	g := gin.New()
	g.GET("/ok", func(c *gin.Context) { OKMeta(c, http.StatusOK, gin.H{"n": 1}, gin.H{"scope": "all"}) })
	g.GET("/fail", func(c *gin.Context) { Fail(c, http.StatusConflict, "stage in use") }, func(c *gin.Context) {
		c.String(http.StatusOK, "unreachable")
	})

	w := httptest.NewRecorder()
	g.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"ok":true,"data":{"n":1},"meta":{"scope":"all"}}`, w.Body.String())

	w = httptest.NewRecorder()
	g.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/fail", nil))
	require.Equal(t, http.StatusConflict, w.Code)
	var env Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	require.False(t, env.OK)
	require.Equal(t, "stage in use", env.Message)
}
