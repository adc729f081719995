package main

import (
	"cabin/src/lib"
	"cabin/src/types"
	"cabin/src/utils"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Draft endpoints back the reservation form's autosave. The payload is stored
// opaque; the server only keys it by user and mode.
func draftHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		GET("/drafts", func(ctx *gin.Context) {
			var query types.DraftQueryParams
			if err := ctx.ShouldBindQuery(&query); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"errors": utils.TranslateValidationErrors(err)})
				return
			}
			userId := ctx.GetUint("id")
			store := lib.GetDraftStore()
			key := lib.DraftKey(userId, query.Mode, query.ReservationID)
			val, err := store.Get(ctx, key)
			if err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": utils.ClassifyPersistenceError(err)})
				return
			}
			if val == "" {
				ctx.JSON(http.StatusOK, gin.H{"data": nil})
				return
			}
			var draft types.DraftPayload
			if err := json.Unmarshal([]byte(val), &draft); err != nil {
				// a corrupt draft is discarded, not surfaced
				go store.Remove(ctx.Copy(), key)
				ctx.JSON(http.StatusOK, gin.H{"data": nil})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": draft})
		}).
		PUT("/drafts", func(ctx *gin.Context) {
			var query types.DraftQueryParams
			if err := ctx.ShouldBindQuery(&query); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"errors": utils.TranslateValidationErrors(err)})
				return
			}
			var body types.DraftPayload
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"errors": utils.TranslateValidationErrors(err)})
				return
			}
			userId := ctx.GetUint("id")
			val, err := json.Marshal(&body)
			if err != nil {
				ctx.Status(http.StatusInternalServerError)
				return
			}
			store := lib.GetDraftStore()
			key := lib.DraftKey(userId, query.Mode, query.ReservationID)
			if err := store.Set(ctx, key, string(val), lib.DraftTTL); err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": utils.ClassifyPersistenceError(err)})
				return
			}
			ctx.Status(http.StatusNoContent)
		}).
		DELETE("/drafts", func(ctx *gin.Context) {
			var query types.DraftQueryParams
			if err := ctx.ShouldBindQuery(&query); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"errors": utils.TranslateValidationErrors(err)})
				return
			}
			userId := ctx.GetUint("id")
			store := lib.GetDraftStore()
			key := lib.DraftKey(userId, query.Mode, query.ReservationID)
			if err := store.Remove(ctx, key); err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": utils.ClassifyPersistenceError(err)})
				return
			}
			ctx.Status(http.StatusNoContent)
		})
	return g
}
