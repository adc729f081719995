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

func notificationHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		GET("/notifications", func(ctx *gin.Context) {
			var filters types.NotificationsQueryFilters
			if err := ctx.ShouldBindQuery(&filters); err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			userId := ctx.GetUint("id")
			db := db.GetDb()
			var notifications []models.Notification
			tx := db.
				Model(&models.Notification{}).
				Where(&models.Notification{UserID: userId})
			if filters.Unread {
				tx = tx.Where("read = ?", false)
			}
			if err := tx.
				Order("created_at desc").
				Limit(100).
				Find(&notifications).
				Error; err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": utils.ClassifyPersistenceError(err)})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": notifications, "count": len(notifications)})
		}).
		GET("/notifications/unread-count", func(ctx *gin.Context) {
			userId := ctx.GetUint("id")
			db := db.GetDb()
			var count int64
			if err := db.
				Model(&models.Notification{}).
				Where(&models.Notification{UserID: userId}).
				Where("read = ?", false).
				Count(&count).
				Error; err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": utils.ClassifyPersistenceError(err)})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"count": count})
		}).
		PUT("/notifications/:id/read", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			userId := ctx.GetUint("id")
			db := db.GetDb()
			err := db.Transaction(func(tx *gorm.DB) error {
				var notification models.Notification
				if err := tx.
					Where(&models.Notification{ID: params.ID, UserID: userId}).
					First(&notification).
					Error; err != nil {
					return err
				}
				return tx.
					Model(&models.Notification{}).
					Where(&models.Notification{ID: params.ID}).
					Updates(map[string]any{
						"read":    true,
						"read_at": time.Now(),
					}).Error
			})
			if err != nil {
				ctx.JSON(http.StatusNotFound, gin.H{"error": "notification not found"})
				return
			}
			ctx.Status(http.StatusOK)
		}).
		PUT("/notifications/read-all", func(ctx *gin.Context) {
			userId := ctx.GetUint("id")
			db := db.GetDb()
			err := db.Transaction(func(tx *gorm.DB) error {
				return tx.
					Model(&models.Notification{}).
					Where(&models.Notification{UserID: userId}).
					Where("read = ?", false).
					Updates(map[string]any{
						"read":    true,
						"read_at": time.Now(),
					}).Error
			})
			if err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": utils.ClassifyPersistenceError(err)})
				return
			}
			ctx.Status(http.StatusOK)
		})
	return g
}
