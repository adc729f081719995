package main

import (
	"cabin/src/db"
	"cabin/src/lib"
	awslib "cabin/src/lib/aws"
	"cabin/src/models"
	"cabin/src/types"
	"cabin/src/utils"
	"context"
	"fmt"
	"log"
	"net/http"
	"path"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"gorm.io/gorm"
)

func galleryHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		GET("/albums", func(ctx *gin.Context) {
			db := db.GetDb()
			var albums []models.Album
			if err := db.
				Model(&models.Album{}).
				Order("created_at desc").
				Find(&albums).
				Error; err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": utils.ClassifyPersistenceError(err)})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": albums, "count": len(albums)})
		}).
		POST("/albums", func(ctx *gin.Context) {
			var body types.CreateAlbumRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"errors": utils.TranslateValidationErrors(err)})
				return
			}
			userId := ctx.GetUint("id")
			album := models.Album{
				Name:        body.Name,
				Slug:        slug.Make(body.Name),
				Description: body.Description,
				CreatedBy:   userId,
			}
			db := db.GetDb()
			if err := db.Transaction(func(tx *gorm.DB) error {
				return tx.Create(&album).Error
			}); err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": utils.ClassifyPersistenceError(err)})
				return
			}
			ctx.JSON(http.StatusCreated, gin.H{"data": album})
		}).
		GET("/albums/:slug", func(ctx *gin.Context) {
			var params types.AlbumURIParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			db := db.GetDb()
			var album models.Album
			if err := db.
				Model(&models.Album{}).
				Preload("Photos").
				Where(&models.Album{Slug: params.Slug}).
				First(&album).
				Error; err != nil {
				ctx.JSON(http.StatusNotFound, gin.H{"error": "album not found"})
				return
			}
			for i := range album.Photos {
				album.Photos[i].URL = presignedPhotoURL(&album.Photos[i])
			}
			ctx.JSON(http.StatusOK, gin.H{"data": album})
		}).
		POST("/albums/:slug/photos", func(ctx *gin.Context) {
			var params types.AlbumURIParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			userId := ctx.GetUint("id")
			db := db.GetDb()
			var album models.Album
			if err := db.
				Where(&models.Album{Slug: params.Slug}).
				First(&album).
				Error; err != nil {
				ctx.JSON(http.StatusNotFound, gin.H{"error": "album not found"})
				return
			}
			fileHeader, err := ctx.FormFile("photo")
			if err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": "photo file is required"})
				return
			}
			contentType := fileHeader.Header.Get("Content-Type")
			if contentType != "image/jpeg" && contentType != "image/png" && contentType != "image/webp" {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": "unsupported image type"})
				return
			}
			file, err := fileHeader.Open()
			if err != nil {
				ctx.Status(http.StatusInternalServerError)
				return
			}
			defer file.Close()

			key := fmt.Sprintf("albums/%s/%s%s", album.Slug, uuid.NewString(), path.Ext(fileHeader.Filename))
			if err := awslib.S3UploadObject(key, file, contentType); err != nil {
				ctx.JSON(http.StatusBadGateway, gin.H{"error": "Could not store the photo"})
				return
			}

			caption := ctx.PostForm("caption")
			photo := models.Photo{
				AlbumID:     album.ID,
				UploadedBy:  userId,
				ObjectKey:   key,
				ContentType: contentType,
				Size:        fileHeader.Size,
			}
			if caption != "" {
				photo.Caption = &caption
			}
			if err := db.Transaction(func(tx *gorm.DB) error {
				return tx.Create(&photo).Error
			}); err != nil {
				go awslib.S3DeleteObject(key)
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": utils.ClassifyPersistenceError(err)})
				return
			}
			photo.URL = presignedPhotoURL(&photo)
			ctx.JSON(http.StatusCreated, gin.H{"data": photo})
		}).
		DELETE("/photos/:id", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			userId := ctx.GetUint("id")
			isAdmin := ctx.GetString("role") == types.ROLE_ADMIN
			db := db.GetDb()
			var photo models.Photo
			err := db.Transaction(func(tx *gorm.DB) error {
				if err := tx.
					Where(&models.Photo{ID: params.ID}).
					First(&photo).
					Error; err != nil {
					return err
				}
				if !isAdmin && photo.UploadedBy != userId {
					return fmt.Errorf("not enough permissions to perform this action")
				}
				return tx.Delete(&photo).Error
			})
			if err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			go func() {
				awslib.S3DeleteObject(photo.ObjectKey)
				rd := lib.GetRedisClient()
				rd.Del(context.Background(), fmt.Sprintf("photo:%d:url", photo.ID))
			}()
			ctx.Status(http.StatusOK)
		})
	return g
}

// presignedPhotoURL returns the photo's presigned GET URL, cached in Redis
// just under the hour the link stays valid.
func presignedPhotoURL(photo *models.Photo) string {
	rd := lib.GetRedisClient()
	cacheKey := fmt.Sprintf("photo:%d:url", photo.ID)
	if cached := rd.Get(context.Background(), cacheKey).Val(); cached != "" {
		return cached
	}
	url, err := awslib.S3PresignObject(photo.ObjectKey)
	if err != nil {
		log.Printf("Could not presign photo [%d]: %s\n", photo.ID, err.Error())
		return ""
	}
	rd.SetEx(context.Background(), cacheKey, *url, 55*time.Minute)
	return *url
}
