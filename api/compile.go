package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Drolfothesgnir/pagec/artifact"
	"github.com/Drolfothesgnir/pagec/compiler"
	"github.com/Drolfothesgnir/pagec/diag"
	"github.com/Drolfothesgnir/pagec/parser"
)

type compileRequest struct {
	// Path is the page-root absolute path the source is compiled as.
	Path   string `json:"path" binding:"omitempty,startswith=/,max=1024"`
	Source string `json:"source" binding:"required"`
	Syntax string `json:"syntax" binding:"omitempty,oneof=native xml auto"`
}

type compileResponse struct {
	Key    string           `json:"key"`
	Cached bool             `json:"cached"`
	Result *compiler.Result `json:"result"`
}

// compile translates the submitted source. Results are cached under a key derived from the
// request; a cache failure never fails the request.
func (service *Service) compile(ctx *gin.Context) {
	var req compileRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, NewErrorResponse(ErrInvalidParams, ExtractErrorFields(err)...))
		return
	}

	logger := requestLogger(ctx)

	syntax, err := parser.ParseSyntax(req.Syntax)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, NewErrorResponse(err))
		return
	}

	path := req.Path
	if path == "" {
		path = defaultPagePath
	}

	opts := service.config.CompilerOptions()
	key := artifact.Key(path, syntax.String(), []byte(req.Source), opts)

	cached, err := service.store.GetArtifact(ctx, key)
	switch {
	case err == nil:
		ctx.JSON(http.StatusOK, compileResponse{Key: key, Cached: true, Result: cached.Result})
		return
	case !errors.Is(err, artifact.ErrArtifactNotFound):
		logger.Warn().Err(err).Msg("artifact cache unavailable")
	}

	c, err := compiler.New(service.sources, service.resolver, opts)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, NewErrorResponse(err))
		return
	}

	res, err := c.WithLogger(logger).CompileSource(path, []byte(req.Source), syntax)
	if err != nil {
		if _, ok := diag.AsTranslationError(err); ok {
			ctx.JSON(http.StatusUnprocessableEntity, newTranslationErrorResponse(err))
			return
		}

		ctx.JSON(http.StatusInternalServerError, NewErrorResponse(err))
		return
	}

	now := time.Now()
	a := artifact.Artifact{
		Key:       key,
		Result:    res,
		CreatedAt: now,
		ExpiresAt: now.Add(service.config.ArtifactTTL),
	}
	if err := service.store.SaveArtifact(ctx, key, a, service.config.ArtifactTTL); err != nil {
		logger.Warn().Err(err).Str("key", key).Msg("cannot cache artifact")
	}

	ctx.JSON(http.StatusOK, compileResponse{Key: key, Result: res})
}
