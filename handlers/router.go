package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// Routes bundles the handlers mounted by NewRouter. A nil Documents
// handler leaves the document endpoints unmounted.
type Routes struct {
	ServiceName string
	Sessions    SessionResolver
	Auth        *AuthHandler
	Query       *QueryHandler
	History     *HistoryHandler
	Documents   *DocumentHandler
}

func NewRouter(rt Routes) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if rt.ServiceName != "" {
		r.Use(otelgin.Middleware(rt.ServiceName))
	}
	r.Use(RequestLogger())

	r.GET("/health", Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	{
		api.POST("/login", rt.Auth.Login)
		api.POST("/logout", rt.Auth.Logout)

		authed := api.Group("", RequireSession(rt.Sessions))
		authed.GET("/me", rt.Auth.Me)
		authed.POST("/query", rt.Query.Query)
		authed.GET("/history", rt.History.ListQuestions)
		authed.GET("/history/thread/:id", rt.History.GetThread)

		if rt.Documents != nil {
			authed.GET("/documents", rt.Documents.List)
			authed.GET("/documents/:id", rt.Documents.Download)
			authed.POST("/documents", RequireHR(), rt.Documents.Upload)
		}
	}

	return r
}
