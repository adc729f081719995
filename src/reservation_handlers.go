package main

import (
	"cabin/src/config"
	"cabin/src/db"
	"cabin/src/lib"
	"cabin/src/models"
	"cabin/src/types"
	"cabin/src/utils"
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/grokify/go-pkce"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gcal "google.golang.org/api/calendar/v3"
)

func reservationHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		GET("/reservations", func(ctx *gin.Context) {
			var filters types.ReservationsQueryFilters
			if err := ctx.ShouldBindQuery(&filters); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"errors": utils.TranslateValidationErrors(err)})
				return
			}
			userId := ctx.GetUint("id")
			reservations, err := utils.GetReservations(&filters, userId)
			if err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": utils.ClassifyPersistenceError(err)})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": reservations, "count": len(reservations)})
		}).
		POST("/reservations", func(ctx *gin.Context) {
			var body types.CreateReservationRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"errors": utils.TranslateValidationErrors(err)})
				return
			}
			userId := ctx.GetUint("id")
			reservation, conflicts, err := utils.CreateReservation(userId, &body)
			if err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": utils.ClassifyPersistenceError(err)})
				return
			}
			if len(conflicts) > 0 {
				ctx.JSON(http.StatusConflict, gin.H{
					"error":     "These dates overlap an existing reservation",
					"conflicts": conflicts,
				})
				return
			}
			ctx.JSON(http.StatusCreated, gin.H{"data": reservation})
		}).
		POST("/reservations/check-conflicts", func(ctx *gin.Context) {
			var body types.ConflictCheckRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"errors": utils.TranslateValidationErrors(err)})
				return
			}
			candidate := utils.DateRange{Start: body.StartDate, End: body.EndDate}
			conflicts, err := utils.CheckConflicts(candidate, body.ExcludeID)
			if err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": utils.ClassifyPersistenceError(err)})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{
				"conflicts":     conflicts,
				"has_conflicts": len(conflicts) > 0,
			})
		}).
		GET("/reservations/calendar", func(ctx *gin.Context) {
			var params types.CalendarQueryParams
			if err := ctx.ShouldBindQuery(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"errors": utils.TranslateValidationErrors(err)})
				return
			}
			month := time.Month(params.Month)
			window := utils.MonthGridRange(params.Year, month)
			var reservations []models.Reservation
			db := db.GetDb()
			if err := db.
				Model(&models.Reservation{}).
				Preload("User").
				Where("start_date <= ? AND end_date >= ?", window.End, window.Start).
				Order("start_date asc").
				Find(&reservations).
				Error; err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": utils.ClassifyPersistenceError(err)})
				return
			}
			var selected *utils.DateRange
			if params.SelectedStart != nil {
				end := *params.SelectedStart
				if params.SelectedEnd != nil {
					end = *params.SelectedEnd
				}
				start := *params.SelectedStart
				if end < start {
					start, end = end, start
				}
				selected = &utils.DateRange{Start: start, End: end}
			}
			today := time.Now().Format(config.DATE_PARSE_FORMAT)
			days := utils.BuildMonthGrid(params.Year, month, today, reservations, selected, params.ExcludeID)
			ctx.JSON(http.StatusOK, gin.H{"data": days, "count": len(days)})
		}).
		GET("/reservations/:id", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			reservation, err := utils.GetReservation(params.ID)
			if err != nil {
				ctx.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": reservation})
		}).
		PUT("/reservations/:id", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			var body types.UpdateReservationRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"errors": utils.TranslateValidationErrors(err)})
				return
			}
			userId := ctx.GetUint("id")
			isAdmin := ctx.GetString("role") == types.ROLE_ADMIN
			reservation, conflicts, err := utils.UpdateReservation(userId, params.ID, &body, isAdmin)
			if err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": utils.ClassifyPersistenceError(err)})
				return
			}
			if len(conflicts) > 0 {
				ctx.JSON(http.StatusConflict, gin.H{
					"error":     "These dates overlap an existing reservation",
					"conflicts": conflicts,
				})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": reservation})
		}).
		POST("/reservations/:id/calendar-sync", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			userId := ctx.GetUint("id")
			reservation, err := utils.GetReservation(params.ID)
			if err != nil {
				ctx.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
				return
			}

			rd := lib.GetRedisClient()
			val := rd.JSONGet(context.Background(), fmt.Sprintf("%d:calendar_token", userId)).Val()
			if val != "" {
				var token oauth2.Token
				if err := json.Unmarshal([]byte(val), &token); err == nil {
					if err := syncReservationToCalendar(ctx, &token, reservation); err != nil {
						log.Printf("Error syncing reservation [%d] to calendar: %s\n", reservation.ID, err.Error())
						ctx.JSON(http.StatusBadGateway, gin.H{"error": "Could not sync with Google Calendar"})
						return
					}
					ctx.JSON(http.StatusOK, gin.H{"synced": true})
					return
				}
			}

			// No usable token: hand back the consent URL with a PKCE challenge
			oauthcfg := googleOauthConfig()
			nonce := make([]byte, 32)
			rand.Read(nonce)
			hnonce := hex.EncodeToString(nonce)
			go func() {
				ex := 3600 * time.Second
				rd := lib.GetRedisClient()
				rd.SetEx(
					context.Background(),
					fmt.Sprintf("user::%d:oauth:nonce", userId),
					hnonce,
					ex,
				)
			}()

			cv := pkce.NewCodeVerifierBytes(nonce)
			cc := pkce.CodeChallengeS256(cv)

			state := &types.Oauth2FlowState{
				UserID:        userId,
				ReservationID: reservation.ID,
				Nonce:         hnonce,
				RedirectTo:    config.APP_HOST,
			}
			b, err := json.Marshal(state)
			if err != nil {
				ctx.Status(http.StatusInternalServerError)
				return
			}
			keyBytes, err := hex.DecodeString(config.API_SECRET)
			if err != nil {
				log.Printf("Error while reading secret key: %s\n", err.Error())
				ctx.Status(http.StatusInternalServerError)
				return
			}
			enc, err := utils.EncryptMessage(keyBytes, string(b))
			if err != nil {
				log.Printf("Error while encrypting message: %s\n", err.Error())
				ctx.Status(http.StatusInternalServerError)
				return
			}
			authurl := oauthcfg.AuthCodeURL(
				enc,
				oauth2.AccessTypeOffline,
				oauth2.SetAuthURLParam(pkce.ParamCodeChallenge, cc),
				oauth2.SetAuthURLParam(pkce.ParamCodeChallengeMethod, pkce.MethodS256),
			)
			ctx.JSON(http.StatusOK, gin.H{"synced": false, "url": authurl})
		})
	return g
}

func googleOauthConfig() *oauth2.Config {
	return &oauth2.Config{
		RedirectURL:  config.API_HOST + "/api/v1/oauth/google/callback",
		ClientID:     config.OAUTH_CLIENT_ID,
		ClientSecret: config.OAUTH_CLIENT_SECRET,
		Scopes: []string{
			gcal.CalendarEventsScope,
		},
		Endpoint: google.Endpoint,
	}
}

func syncReservationToCalendar(ctx context.Context, token *oauth2.Token, reservation *models.Reservation) error {
	svc, err := lib.GAPICreateCalendarService(ctx, token, googleOauthConfig())
	if err != nil {
		return err
	}
	summary := fmt.Sprintf("Cabin stay: %s", reservation.OwnerName())
	description := ""
	if reservation.Notes != nil {
		description = *reservation.Notes
	}
	event, err := lib.GAPIBuildStayEvent(summary, description, reservation.StartDate, reservation.EndDate)
	if err != nil {
		return err
	}
	return lib.GAPIAddEvent("primary", event, svc)
}
