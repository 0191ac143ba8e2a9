package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Establishes HTTP router.
func (service *Service) setupRouter(server *http.Server) {
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(requestMiddleware())
	router.Use(service.corsMiddleware())

	router.GET(PingURL, func(ctx *gin.Context) {
		ctx.String(http.StatusOK, "pong")
	})

	router.POST(CompileURL, service.compile)
	router.GET(ArtifactURL, service.getArtifact)
	router.DELETE(ArtifactURL, service.deleteArtifact)

	server.Handler = router
	service.router = router
}
