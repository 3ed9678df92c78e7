package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func ok(c *gin.Context) {
	c.String(http.StatusOK, c.FullPath())
}

func serve(engine *gin.Engine, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(method, path, nil))
	return w
}

func TestRouter_RootMounted(t *testing.T) {
	engine := gin.New()
	r := NewRouter(engine)

	r.Register(NewDomainGroup("export", "").
		GET("/order/:order_id", ok).
		GET("/list_marker_create/", ok))
	r.Setup()

	w := serve(engine, http.MethodGet, "/order/4521")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "/order/:order_id", w.Body.String())

	assert.Equal(t, http.StatusOK, serve(engine, http.MethodGet, "/list_marker_create/").Code)
	assert.Equal(t, http.StatusNotFound, serve(engine, http.MethodGet, "/api/v1/order/4521").Code)
}

func TestRouter_WithPrefix(t *testing.T) {
	engine := gin.New()
	NewRouter(engine, WithPrefix("/api")).
		Register(NewDomainGroup("system", "/system").GET("/ping", ok)).
		Setup()

	assert.Equal(t, http.StatusOK, serve(engine, http.MethodGet, "/api/system/ping").Code)
	assert.Equal(t, http.StatusNotFound, serve(engine, http.MethodGet, "/system/ping").Code)
}

func TestDomainGroup_MiddlewareAndSubgroups(t *testing.T) {
	var calls []string
	mark := func(name string) gin.HandlerFunc {
		return func(c *gin.Context) {
			calls = append(calls, name)
			c.Next()
		}
	}

	group := NewDomainGroup("export", "").Use(mark("export"))
	group.Group("artifacts", "/artifacts").
		Use(mark("artifacts")).
		GET("/*path", ok).
		HEAD("/*path", ok)

	engine := gin.New()
	NewRouter(engine).Register(group).Setup()

	w := serve(engine, http.MethodGet, "/artifacts/2026/10/OS%201%20MAP.kml")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "/artifacts/*path", w.Body.String())
	assert.Equal(t, []string{"export", "artifacts"}, calls)

	assert.Equal(t, http.StatusOK, serve(engine, http.MethodHead, "/artifacts/x.kml").Code)
	assert.Equal(t, "export", group.Name())
	assert.Equal(t, "", group.Prefix())
}
