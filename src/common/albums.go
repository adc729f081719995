package common

import (
	"cabin/src/db"
	"cabin/src/models"
	"fmt"
	"log"

	"github.com/gosimple/slug"
	"gorm.io/gorm"
)

// BackfillAlbumSlugs fills slugs for albums created before slugs existed.
func BackfillAlbumSlugs() {
	db := db.GetDb()
	rows, err := db.
		Model(&models.Album{}).
		Where("slug IS NULL OR slug = ''").
		Rows()
	if err != nil {
		log.Printf("Error querying Albums: %s\n", err.Error())
		return
	}
	if err := db.Transaction(func(tx *gorm.DB) error {
		for rows.Next() {
			var album models.Album
			if err := tx.ScanRows(rows, &album); err != nil {
				return err
			}
			newSlug := slug.Make(album.Name)
			if err := tx.
				Model(&models.Album{}).
				Where("id = ?", album.ID).
				Updates(&models.Album{Slug: fmt.Sprintf("%s-%d", newSlug, album.ID)}).
				Error; err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		log.Printf("Error on update operation: %s\n", err.Error())
	}
}
