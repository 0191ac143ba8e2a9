package api

import (
	"context"
	"errors"
	"io/fs"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Drolfothesgnir/pagec/artifact"
	"github.com/Drolfothesgnir/pagec/compiler"
	"github.com/Drolfothesgnir/pagec/taglib"
	"github.com/Drolfothesgnir/pagec/util"
)

const (
	// api routes
	PingURL     = "/ping"
	CompileURL  = "/compile"
	ArtifactURL = "/compile/:key"

	RequestIDHeader = "X-Request-Id"

	// defaultPagePath names sources submitted without a path.
	defaultPagePath = "/page.jsp"
)

var (
	// api errors
	ErrInvalidParams = errors.New("invalid params")
	ErrTranslation   = errors.New("page failed to compile")
)

type Service struct {
	config   util.Config
	store    artifact.Store
	resolver taglib.Resolver
	sources  fs.FS
	server   *http.Server
	router   *gin.Engine
}

// Returns new service instance compiling against the tag libraries of resolver. Includes and
// tag files are read from sources, which may be nil.
func NewService(
	config util.Config,
	store artifact.Store,
	resolver taglib.Resolver,
	sources fs.FS,
) (*Service, error) {
	// reject bad compiler settings at startup rather than on every request
	if _, err := compiler.New(nil, nil, config.CompilerOptions()); err != nil {
		return nil, err
	}

	addr, err := config.ListenAddress()
	if err != nil {
		return nil, err
	}

	service := &Service{
		config:   config,
		store:    store,
		resolver: resolver,
		sources:  sources,
	}

	server := &http.Server{
		Addr: addr,
	}

	// caps how long a client can take to send just the headers (blocks slowloris).
	server.ReadHeaderTimeout = 5 * time.Second
	// caps time to read the full request (incl. body).
	server.ReadTimeout = 10 * time.Second
	// compiling a large page with many tag files takes a while
	server.WriteTimeout = 30 * time.Second
	// how long to keep idle keep-alive connections open.
	server.IdleTimeout = 60 * time.Second

	service.setupRouter(server)

	service.server = server

	return service, nil
}

// Start runs the HTTP server
func (service *Service) Start() error {
	return service.server.ListenAndServe()
}

func (service *Service) Shutdown(ctx context.Context) error {
	return service.server.Shutdown(ctx)
}
