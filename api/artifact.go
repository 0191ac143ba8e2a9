package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Drolfothesgnir/pagec/artifact"
)

type artifactRequest struct {
	Key string `uri:"key" json:"key" binding:"required,hexadecimal,len=64"`
}

func (service *Service) getArtifact(ctx *gin.Context) {
	var req artifactRequest
	if err := ctx.ShouldBindUri(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, NewErrorResponse(ErrInvalidParams, ExtractErrorFields(err)...))
		return
	}

	a, err := service.store.GetArtifact(ctx, req.Key)
	if err != nil {
		if errors.Is(err, artifact.ErrArtifactNotFound) {
			ctx.JSON(http.StatusNotFound, NewErrorResponse(err))
			return
		}

		ctx.JSON(http.StatusInternalServerError, NewErrorResponse(err))
		return
	}

	ctx.JSON(http.StatusOK, a)
}

func (service *Service) deleteArtifact(ctx *gin.Context) {
	var req artifactRequest
	if err := ctx.ShouldBindUri(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, NewErrorResponse(ErrInvalidParams, ExtractErrorFields(err)...))
		return
	}

	err := service.store.DeleteArtifact(ctx, req.Key)
	if err != nil {
		if errors.Is(err, artifact.ErrArtifactNotFound) {
			ctx.JSON(http.StatusNotFound, NewErrorResponse(err))
			return
		}

		ctx.JSON(http.StatusInternalServerError, NewErrorResponse(err))
		return
	}

	ctx.Status(http.StatusNoContent)
}
