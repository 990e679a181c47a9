package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterSwagger registers the API description endpoints.
// - GET /swagger/index.html  -> a small HTML page that loads the OpenAPI JSON
// - GET /swagger/doc.json    -> machine-readable OpenAPI JSON
func RegisterSwagger(rg gin.IRouter) {
	rg.GET("/swagger/index.html", func(c *gin.Context) {
		c.Header("Content-Type", "text/html; charset=utf-8")
		c.String(http.StatusOK, swaggerHTML)
	})

	rg.GET("/swagger/doc.json", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(swaggerJSON))
	})
}

const swaggerHTML = `<!doctype html>
<html>
  <head>
    <meta charset="utf-8" />
    <title>dealflow-api Swagger</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@4/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@4/swagger-ui-bundle.js"></script>
    <script>
      window.ui = SwaggerUIBundle({
        url: '/swagger/doc.json',
        dom_id: '#swagger-ui',
      })
    </script>
  </body>
</html>`

const swaggerJSON = `{
  "openapi": "3.0.0",
  "info": { "title": "dealflow-api", "version": "v0.1.0" },
  "components": { "securitySchemes": { "bearer": { "type": "http", "scheme": "bearer", "bearerFormat": "JWT" } } },
  "security": [ { "bearer": [] } ],
  "paths": {
    "/api/v1/dashboard/kpis": {
      "get": { "summary": "Headline KPIs for the caller's scope", "parameters": [ {"name":"ownerId","in":"query","schema":{"type":"string"}} ], "responses": { "200": { "description": "KPI object" }, "401": { "description": "unauthenticated" } } }
    },
    "/api/v1/dashboard/pipeline-summary": {
      "get": { "summary": "Per-stage count, value and weighted value", "parameters": [ {"name":"ownerId","in":"query","schema":{"type":"string"}}, {"name":"from","in":"query","schema":{"type":"string"}}, {"name":"to","in":"query","schema":{"type":"string"}}, {"name":"q","in":"query","schema":{"type":"string"}} ], "responses": { "200": { "description": "stages and totals" } } }
    },
    "/api/v1/dashboard/activity-overview": {
      "get": { "summary": "Activity totals, facets and the next five due", "parameters": [ {"name":"ownerId","in":"query","schema":{"type":"string"}}, {"name":"from","in":"query","schema":{"type":"string"}}, {"name":"to","in":"query","schema":{"type":"string"}} ], "responses": { "200": { "description": "activity overview" } } }
    },
    "/api/v1/dashboard/performance-trend": {
      "get": { "summary": "Monthly actual vs forecast revenue", "parameters": [ {"name":"range","in":"query","schema":{"type":"string","enum":["last6","last12"]}}, {"name":"from","in":"query","schema":{"type":"string"}}, {"name":"to","in":"query","schema":{"type":"string"}}, {"name":"ownerId","in":"query","schema":{"type":"string"}}, {"name":"tz","in":"query","schema":{"type":"string"}} ], "responses": { "200": { "description": "range, series and totals" }, "400": { "description": "invalid window or timezone" } } }
    },
    "/api/v1/dashboard/performance-trend/export": {
      "get": { "summary": "Performance trend as an XLSX workbook", "responses": { "200": { "description": "workbook; X-Report-URL carries the archived copy when storage is configured" } } }
    },
    "/api/v1/pipeline-stages": {
      "get": { "summary": "List stages by order", "responses": { "200": { "description": "ordered stages" } } },
      "post": { "summary": "Create a stage (admin/manager)", "requestBody": { "content": { "application/json": { "schema": {"type":"object","required":["name","probability","type"],"properties":{"name":{"type":"string"},"probability":{"type":"integer"},"type":{"type":"string","enum":["open","won","lost"]},"color":{"type":"string"},"order":{"type":"integer"}}}}}}, "responses": { "201": { "description": "created" }, "409": { "description": "duplicate name" } } }
    },
    "/api/v1/pipeline-stages/reorder": {
      "put": { "summary": "Reassign stage order (admin/manager)", "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"items":{"type":"array","items":{"type":"object","properties":{"id":{"type":"string"},"order":{"type":"integer"}}}}}}}}}, "responses": { "200": { "description": "modified count" } } }
    },
    "/api/v1/pipeline-stages/{id}": {
      "patch": { "summary": "Update a stage (admin/manager)", "responses": { "200": { "description": "updated" }, "409": { "description": "rename of a referenced stage" } } },
      "delete": { "summary": "Delete a stage (admin/manager)", "responses": { "200": { "description": "deleted" }, "409": { "description": "stage in use" } } }
    },
    "/api/v1/deals/{id}/stage": {
      "patch": { "summary": "Move a deal to another stage", "requestBody": { "content": { "application/json": { "schema": {"type":"object","required":["stage"],"properties":{"stage":{"type":"string"},"probability":{"type":"integer"}}}}}}, "responses": { "200": { "description": "updated deal" }, "403": { "description": "not the owner" } } }
    },
    "/health": { "get": { "summary": "Liveness check", "security": [], "responses": { "200": { "description": "healthy" } } } },
    "/ready": { "get": { "summary": "Readiness check", "security": [], "responses": { "200": { "description": "ready" }, "503": { "description": "not ready" } } } },
    "/metrics": { "get": { "summary": "Prometheus metrics", "security": [], "responses": { "200": { "description": "metrics" } } } }
  }
}`
