package main

import (
	"cabin/src/db"
	"cabin/src/lib"
	"cabin/src/models"
	"cabin/src/types"
	"cabin/src/utils"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func maintenanceHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		GET("/maintenance", func(ctx *gin.Context) {
			var filters types.MaintenanceQueryFilters
			if err := ctx.ShouldBindQuery(&filters); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"errors": utils.TranslateValidationErrors(err)})
				return
			}
			db := db.GetDb()
			tx := db.
				Model(&models.MaintenanceRequest{}).
				Preload("Reporter").
				Preload("Assignee")
			if filters.Status != "" {
				tx = tx.Where("status = ?", filters.Status)
			}
			if filters.Priority != "" {
				tx = tx.Where("priority = ?", filters.Priority)
			}
			var requests []models.MaintenanceRequest
			if err := tx.
				Order("created_at desc").
				Find(&requests).
				Error; err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": utils.ClassifyPersistenceError(err)})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": requests, "count": len(requests)})
		}).
		POST("/maintenance", func(ctx *gin.Context) {
			var body types.CreateMaintenanceRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"errors": utils.TranslateValidationErrors(err)})
				return
			}
			userId := ctx.GetUint("id")
			request := models.MaintenanceRequest{
				Title:       body.Title,
				Description: body.Description,
				ReportedBy:  userId,
				Status:      types.MAINTENANCE_OPEN,
			}
			if body.Priority != "" {
				request.Priority = types.MaintenancePriority(body.Priority)
			}
			db := db.GetDb()
			if err := db.Transaction(func(tx *gorm.DB) error {
				if err := tx.Create(&request).Error; err != nil {
					return err
				}
				if request.Priority != types.PRIORITY_URGENT {
					return nil
				}
				var admins []models.User
				if err := tx.
					Where("role = ?", types.ROLE_ADMIN).
					Find(&admins).
					Error; err != nil {
					return err
				}
				for _, admin := range admins {
					notification := models.Notification{
						UserID:  admin.ID,
						Type:    types.NOTIFY_MAINTENANCE_URGENT,
						Title:   "Urgent maintenance reported",
						Message: request.Title,
						Metadata: &types.JSONB{
							"maintenance_request_id": request.ID,
						},
					}
					if err := tx.Create(&notification).Error; err != nil {
						return err
					}
				}
				return nil
			}); err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": utils.ClassifyPersistenceError(err)})
				return
			}
			if request.Priority == types.PRIORITY_URGENT {
				go func() {
					message := fmt.Sprintf("Urgent maintenance reported: %s\n\n%s", request.Title, request.Description)
					if err := lib.SNSPublishMessage("MaintenanceAlerts", "Urgent cabin maintenance", message); err != nil {
						log.Printf("Error publishing urgent maintenance alert [%d]: %s\n", request.ID, err.Error())
					}
				}()
			}
			ctx.JSON(http.StatusCreated, gin.H{"data": request})
		}).
		GET("/maintenance/:id", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			db := db.GetDb()
			var request models.MaintenanceRequest
			if err := db.
				Model(&models.MaintenanceRequest{}).
				Preload("Reporter").
				Preload("Assignee").
				Where(&models.MaintenanceRequest{ID: params.ID}).
				First(&request).
				Error; err != nil {
				ctx.JSON(http.StatusNotFound, gin.H{"error": "maintenance request not found"})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": request})
		}).
		PUT("/maintenance/:id", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			var body types.UpdateMaintenanceRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"errors": utils.TranslateValidationErrors(err)})
				return
			}
			var request models.MaintenanceRequest
			var assigned bool
			db := db.GetDb()
			err := db.Transaction(func(tx *gorm.DB) error {
				if err := tx.
					Where(&models.MaintenanceRequest{ID: params.ID}).
					First(&request).
					Error; err != nil {
					return err
				}
				updates := map[string]any{}
				if body.Status != nil {
					status := types.MaintenanceStatus(*body.Status)
					// resolved is terminal; reopening means filing a new request
					if request.Status == types.MAINTENANCE_RESOLVED && status != types.MAINTENANCE_RESOLVED {
						return fmt.Errorf("resolved requests cannot be reopened")
					}
					updates["status"] = status
					if status == types.MAINTENANCE_RESOLVED {
						updates["resolved_at"] = time.Now()
					}
				}
				if body.AssignedTo != nil {
					var count int64
					if err := tx.
						Model(&models.User{}).
						Where("id = ?", *body.AssignedTo).
						Count(&count).
						Error; err != nil {
						return err
					}
					if count == 0 {
						return fmt.Errorf("assignee not found")
					}
					updates["assigned_to"] = *body.AssignedTo
					assigned = request.AssignedTo == nil || *request.AssignedTo != *body.AssignedTo
				}
				if body.Priority != nil {
					updates["priority"] = types.MaintenancePriority(*body.Priority)
				}
				if body.CostCents != nil {
					updates["cost_cents"] = *body.CostCents
				}
				if body.ResolutionNotes != nil {
					updates["resolution_notes"] = *body.ResolutionNotes
				}
				if len(updates) == 0 {
					return nil
				}
				if err := tx.
					Model(&models.MaintenanceRequest{}).
					Where(&models.MaintenanceRequest{ID: params.ID}).
					Updates(updates).
					Error; err != nil {
					return err
				}
				if assigned {
					notification := models.Notification{
						UserID:  *body.AssignedTo,
						Type:    types.NOTIFY_MAINTENANCE_ASSIGNED,
						Title:   "Maintenance request assigned to you",
						Message: request.Title,
						Metadata: &types.JSONB{
							"maintenance_request_id": request.ID,
						},
					}
					if err := tx.Create(&notification).Error; err != nil {
						return err
					}
				}
				return nil
			})
			if err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			if assigned {
				go func(assigneeId uint) {
					var assignee models.User
					if err := db.Where(&models.User{ID: assigneeId}).First(&assignee).Error; err != nil {
						return
					}
					utils.NotifyPush(assignee.UID, "Maintenance assigned", request.Title, map[string]string{
						"maintenance_request_id": fmt.Sprint(request.ID),
					})
					lib.EmitNotification(assignee.UID, map[string]any{
						"type":                   string(types.NOTIFY_MAINTENANCE_ASSIGNED),
						"maintenance_request_id": request.ID,
					})
				}(*body.AssignedTo)
			}
			ctx.Status(http.StatusOK)
		})
	return g
}
