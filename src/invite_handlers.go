package main

import (
	"cabin/src/db"
	"cabin/src/models"
	"cabin/src/types"
	"cabin/src/utils"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Invitation management is admin-only; accepting one happens through the
// public /invites/validate + /auth/register pair.
func inviteHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		GET("/invites", func(ctx *gin.Context) {
			db := db.GetDb()
			var invitations []models.Invitation
			if err := db.
				Model(&models.Invitation{}).
				Preload("Inviter").
				Order("created_at desc").
				Find(&invitations).
				Error; err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": utils.ClassifyPersistenceError(err)})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": invitations, "count": len(invitations)})
		}).
		POST("/invites", func(ctx *gin.Context) {
			var body types.CreateInvitationRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"errors": utils.TranslateValidationErrors(err)})
				return
			}
			userId := ctx.GetUint("id")
			invitation, err := utils.CreateInvitation(userId, &body)
			if err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusCreated, gin.H{"data": invitation})
		}).
		POST("/invites/:id/resend", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			db := db.GetDb()
			var invitation models.Invitation
			err := db.Transaction(func(tx *gorm.DB) error {
				if err := tx.
					Where(&models.Invitation{ID: params.ID}).
					First(&invitation).
					Error; err != nil {
					return err
				}
				// resending extends the window rather than minting a new token
				invitation.ExpiresAt = time.Now().Add(7 * 24 * time.Hour)
				return tx.
					Model(&models.Invitation{}).
					Where(&models.Invitation{ID: params.ID}).
					Updates(map[string]any{
						"status":     types.INVITATION_PENDING,
						"expires_at": invitation.ExpiresAt,
					}).Error
			})
			if err != nil {
				ctx.JSON(http.StatusNotFound, gin.H{"error": "invitation not found"})
				return
			}
			go utils.SendInvitationEmail(&invitation)
			ctx.Status(http.StatusOK)
		}).
		DELETE("/invites/:id", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			db := db.GetDb()
			err := db.Transaction(func(tx *gorm.DB) error {
				return tx.
					Model(&models.Invitation{}).
					Where(&models.Invitation{ID: params.ID, Status: types.INVITATION_PENDING}).
					Update("status", types.INVITATION_REVOKED).
					Error
			})
			if err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": utils.ClassifyPersistenceError(err)})
				return
			}
			ctx.Status(http.StatusOK)
		})
	return g
}

// validateInviteHandler is public: the registration page calls it with the
// token from the emailed link before showing the signup form.
func validateInviteHandler(ctx *gin.Context) {
	var query types.ValidateInvitationQueryParams
	if err := ctx.ShouldBindQuery(&query); err != nil {
		ctx.Status(http.StatusBadRequest)
		return
	}
	invitation, err := utils.ValidateInvitationToken(query.Token)
	if err != nil {
		ctx.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{
		"valid": true,
		"email": invitation.Email,
		"role":  invitation.Role,
	})
}
