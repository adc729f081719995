package main

import (
	"cabin/src/types"
	"cabin/src/utils"
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
)

func swapHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		POST("/swaps", func(ctx *gin.Context) {
			var body types.CreateSwapRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"errors": utils.TranslateValidationErrors(err)})
				return
			}
			userId := ctx.GetUint("id")
			swap, err := utils.CreateSwapRequest(userId, &body)
			if err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusCreated, gin.H{"data": swap})
		}).
		GET("/swaps", func(ctx *gin.Context) {
			var filters types.SwapsQueryFilters
			if err := ctx.ShouldBindQuery(&filters); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"errors": utils.TranslateValidationErrors(err)})
				return
			}
			userId := ctx.GetUint("id")
			swaps, err := utils.GetSwaps(userId, &filters)
			if err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": utils.ClassifyPersistenceError(err)})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": swaps, "count": len(swaps)})
		})
	return g
}

// handleSwapResponse consumes the emailed accept/decline link. It is public:
// possession of the token is the authorization.
func handleSwapResponse(ctx *gin.Context) {
	var query types.SwapResponseQueryParams
	if err := ctx.ShouldBindQuery(&query); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"errors": utils.TranslateValidationErrors(err)})
		return
	}
	swap, err := utils.ResolveSwap(query.Token, query.Action)
	if err != nil {
		switch {
		case errors.Is(err, utils.ErrSwapTokenNotFound):
			ctx.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		case errors.Is(err, utils.ErrSwapTokenExpired):
			ctx.JSON(http.StatusGone, gin.H{"error": err.Error()})
		case errors.Is(err, utils.ErrSwapAlreadyProcessed):
			ctx.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		case errors.Is(err, utils.ErrSwapInvalidAction):
			ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			log.Printf("Error resolving swap: %s\n", err.Error())
			ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": utils.ClassifyPersistenceError(err)})
		}
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"data": swap})
}
