package main

import (
	"cabin/src/boot"
	"cabin/src/config"
	"cabin/src/controllers"
	"cabin/src/db"
	"cabin/src/lib"
	"cabin/src/middlewares"
	"cabin/src/models"
	"cabin/src/types"
	"cabin/src/utils"
	"context"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path"
	"regexp"
	"strconv"
	"time"

	"github.com/covalenthq/lumberjack"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/gookit/goutil/dump"
	"github.com/grokify/go-pkce"
	"github.com/joho/godotenv"
	_ "github.com/joho/godotenv/autoload"
	engineiotypes "github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io/v2/socket"
	"golang.org/x/oauth2"
	"gorm.io/gorm"
)

type Claims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	UID      string `json:"uid"`
	jwt.RegisteredClaims
}

func (c Claims) GetExpirationTime() (*jwt.NumericDate, error) {
	return c.RegisteredClaims.GetExpirationTime()
}
func (c Claims) GetIssuedAt() (*jwt.NumericDate, error) {
	return c.RegisteredClaims.GetIssuedAt()
}
func (c Claims) GetNotBefore() (*jwt.NumericDate, error) {
	return c.RegisteredClaims.GetNotBefore()
}
func (c Claims) GetIssuer() (string, error) {
	return c.RegisteredClaims.GetIssuer()
}
func (c Claims) GetSubject() (string, error) {
	return c.RegisteredClaims.GetSubject()
}
func (c Claims) GetAudience() (jwt.ClaimStrings, error) {
	return c.RegisteredClaims.GetAudience()
}

var jwtKey = []byte(os.Getenv("JWT_SECRET"))

const (
	apiPrefix string = "/api/v1"
)

var reservationDateValidatorFunc validator.Func = func(fl validator.FieldLevel) bool {
	date, ok := fl.Field().Interface().(string)
	if !ok {
		return false
	}
	parsed, err := time.Parse(config.DATE_PARSE_FORMAT, date)
	if err != nil {
		return false
	}
	// reject "2026-1-5" and other forms that survive a lenient parse
	return parsed.Format(config.DATE_PARSE_FORMAT) == date
}

var gtedatefield validator.Func = func(fl validator.FieldLevel) bool {
	date, ok := fl.Field().Interface().(string)
	if !ok {
		return false
	}
	if _, err := time.Parse(config.DATE_PARSE_FORMAT, date); err != nil {
		return false
	}
	field := fl.Parent().FieldByName(fl.Param())
	if !field.IsValid() {
		return false
	}
	fieldValue, ok := field.Interface().(string)
	if !ok {
		return false
	}
	if _, err := time.Parse(config.DATE_PARSE_FORMAT, fieldValue); err != nil {
		return false
	}
	// ISO dates compare lexicographically
	return date >= fieldValue
}

var ltedatefield validator.Func = func(fl validator.FieldLevel) bool {
	date, ok := fl.Field().Interface().(string)
	if !ok {
		return false
	}
	if _, err := time.Parse(config.DATE_PARSE_FORMAT, date); err != nil {
		return false
	}
	field := fl.Parent().FieldByName(fl.Param())
	if !field.IsValid() {
		return false
	}
	fieldValue, ok := field.Interface().(string)
	if !ok {
		return false
	}
	if _, err := time.Parse(config.DATE_PARSE_FORMAT, fieldValue); err != nil {
		return false
	}
	return date <= fieldValue
}

func setupRouter() *gin.Engine {
	router := gin.Default()
	router.Use(middlewares.SecureHeaders)
	router.GET("/", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, "ok")
	})
	return router
}

func maintenanceModeMiddleware(g *gin.Engine) *gin.Engine {
	g.Use(func(ctx *gin.Context) {
		mm := os.Getenv("MAINTENANCE_MODE")
		atoi, err := strconv.ParseBool(mm)
		if err == nil && atoi {
			log.Println("server is under maintenance")
			ctx.AbortWithStatusJSON(http.StatusServiceUnavailable, "server is under maintenance")
			return
		}
	})
	return g
}

func apiv1Group(g *gin.Engine) *gin.RouterGroup {
	apiv1 := g.Group(apiPrefix)
	return apiv1
}

func publicRoutes(g *gin.Engine) *gin.RouterGroup {
	apiv1 := apiv1Group(g)
	apiv1.
		GET("/share/:filename", func(ctx *gin.Context) {
			apiEnv := os.Getenv("API_ENV")
			if apiEnv != "local" {
				ctx.Status(http.StatusNotFound)
				return
			}
			var params struct {
				Filename string `uri:"filename" binding:"required"`
			}
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			assets := os.Getenv("TEMP_DIR")
			filePath := path.Join(assets, fmt.Sprintf("%s.jpeg", params.Filename))
			ctx.File(filePath)
		}).
		GET("/handle-swap-response", handleSwapResponse).
		GET("/invites/validate", validateInviteHandler)

	passkey := apiv1.Group("/passkey")
	passkey.
		POST("/login/start", func(ctx *gin.Context) {
			opts, status, err := controllers.PasskeyLoginStart(ctx.Copy())
			if err != nil {
				log.Printf("Error on PasskeyLoginStart: %s\n", err.Error())
				ctx.Status(status)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"publicKey": opts.Response})
		}).
		POST("/login/finish", func(ctx *gin.Context) {
			token, status, err := controllers.PasskeyLoginFinish(ctx.Copy())
			if err != nil {
				log.Printf("Error on PasskeyLoginFinish: %s\n", err.Error())
				ctx.Status(status)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{
				"token": token,
			})
		})

	oauthcb := apiv1.Group("/oauth")
	oauthcb.
		GET("/google/callback", func(ctx *gin.Context) {
			var query struct {
				State *string `form:"state" binding:"required"`
				Code  *string `form:"code" binding:"required"`
				Scope *string `form:"scope" binding:"required"`
			}
			if err := ctx.BindQuery(&query); err != nil {
				log.Printf("Error while parsing request params: %s\n", err.Error())
				ctx.Status(http.StatusBadRequest)
				return
			}
			if !utils.IsProd() {
				dump.P(query)
			}
			// Decrypt state
			key, err := hex.DecodeString(config.API_SECRET)
			if err != nil {
				log.Printf("Error while retrieving key: %s\n", err.Error())
				ctx.Status(http.StatusInternalServerError)
				return
			}
			dec, err := utils.DecryptMessage(key, *query.State)
			if err != nil {
				log.Printf("Error while decrypting message: %s\n", err.Error())
				ctx.Status(http.StatusInternalServerError)
				return
			}
			var state types.Oauth2FlowState
			if err := json.Unmarshal([]byte(*dec), &state); err != nil {
				ctx.Status(http.StatusInternalServerError)
				return
			}
			db := db.GetDb()
			var uc int64
			if err := db.Model(&models.User{}).Where("id = ?", state.UserID).Count(&uc).Error; err != nil {
				log.Printf("Error retrieving user info: %s\n", err.Error())
				ctx.Status(http.StatusInternalServerError)
				return
			}
			if uc == 0 {
				log.Printf("Error verifying user: could not find user with ID [%d]\n", state.UserID)
				ctx.Status(http.StatusBadRequest)
				return
			}
			// Decode nonce
			dnonce, err := hex.DecodeString(state.Nonce)
			if err != nil {
				log.Printf("Could not read nonce: %s\n", err.Error())
				ctx.Status(http.StatusInternalServerError)
				return
			}
			// Read generated nonce
			rd := lib.GetRedisClient()
			nonceKey := fmt.Sprintf("user::%d:oauth:nonce", state.UserID)
			cache := rd.Get(context.Background(), nonceKey).Val()
			nonce, err := hex.DecodeString(cache)
			if err != nil {
				log.Printf("Error while decoding hex value: %s\n", err.Error())
				ctx.Status(http.StatusInternalServerError)
				return
			}
			// Subtle compare
			if subtle.ConstantTimeCompare(dnonce, nonce) != 1 {
				log.Println("Data mismatch: the supplied values do not match")
				ctx.JSON(http.StatusUnauthorized, gin.H{"error": "Access denied"})
				return
			}
			oauthcfg := googleOauthConfig()
			// Verifier is derived from the same nonce the consent URL was built with
			cv := pkce.NewCodeVerifierBytes(nonce)
			token, err := oauthcfg.Exchange(
				context.Background(),
				*query.Code,
				oauth2.SetAuthURLParam(pkce.ParamCodeVerifier, cv),
			)
			if err != nil {
				log.Printf("Error while exchanging authorization code for token: %s\n", err.Error())
				ctx.Status(http.StatusInternalServerError)
				return
			}
			go func() {
				rd := lib.GetRedisClient()
				tokenKey := fmt.Sprintf("%d:calendar_token", state.UserID)
				if _, err := rd.JSONSet(context.Background(), tokenKey, "$", token).Result(); err != nil {
					log.Printf("[redis] Error saving calendar token: %s\n", err.Error())
					return
				}
				ex := time.Duration(token.ExpiresIn) * time.Second
				rd.Expire(context.Background(), tokenKey, ex)
			}()
			go func() {
				if state.ReservationID == 0 {
					return
				}
				reservation, err := utils.GetReservation(state.ReservationID)
				if err != nil {
					log.Printf("Error retrieving reservation [%d]: %s\n", state.ReservationID, err.Error())
					return
				}
				if err := syncReservationToCalendar(context.Background(), token, reservation); err != nil {
					log.Printf("Error syncing reservation [%d] to calendar: %s\n", reservation.ID, err.Error())
				}
			}()
			go rd.Del(context.Background(), nonceKey)
			ctx.Redirect(http.StatusTemporaryRedirect, state.RedirectTo)
		})
	return apiv1
}

func guestAuthRoutes(g *gin.Engine) *gin.RouterGroup {
	apiv1 := apiv1Group(g)
	guest := apiv1.Group("/auth")
	guest.
		POST("/login", func(ctx *gin.Context) {
			token, status, err := controllers.AuthLogin(ctx)
			if err != nil {
				log.Printf("[AuthLogin] error: %s\n", err.Error())
				ctx.JSON(status, gin.H{"error": err.Error()})
				return
			}
			if token == nil {
				// MFA challenge issued; details travel in the response headers
				ctx.Status(status)
				return
			}

			ctx.JSON(http.StatusOK, gin.H{
				"token": token,
			})
		}).
		POST("/register", func(ctx *gin.Context) {
			uid, status, err := controllers.AuthRegister(ctx)
			if err != nil {
				log.Printf("[AuthRegister] error: %s\n", err.Error())
				ctx.JSON(status, gin.H{"error": err.Error()})
				return
			}

			ctx.JSON(http.StatusCreated, gin.H{"uid": uid})
		})
	return guest
}

func setupSocketServer(r *gin.Engine) *socket.Server {
	c := socket.DefaultServerOptions()
	c.SetServeClient(true)
	c.SetPingInterval(time.Second)
	c.SetPingTimeout(200 * time.Millisecond)
	c.SetMaxHttpBufferSize(1_000_000)
	c.SetConnectTimeout(time.Second)
	c.SetCors(&engineiotypes.Cors{
		Origin:      "*",
		Credentials: true,
	})

	wss := socket.NewServer(nil, nil)
	wss.Of("/notifications", nil).On("connection", func(clients ...any) {
		client := clients[0].(*socket.Socket)
		auth, _ := client.Handshake().Auth.(map[string]any)
		tokenString, _ := auth["token"].(string)
		claims := &Claims{}
		tkn, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
			return jwtKey, nil
		})
		if err != nil || !tkn.Valid || claims.UID == "" {
			log.Printf("[ws] rejecting unauthenticated client [%s]\n", string(client.Id()))
			client.Disconnect(true)
			return
		}
		client.Join(socket.Room(claims.UID))
		log.Printf("[ws] client [%s] joined room [%s]\n", string(client.Id()), claims.UID)
	})

	r.GET("/socket.io/*any", gin.WrapH(wss.ServeHandler(c)))
	r.POST("/socket.io/*any", gin.WrapH(wss.ServeHandler(c)))
	lib.NewSocketServer(wss)
	return wss
}

func initLogger() {
	cwd, _ := os.Getwd()
	serverLogs := path.Join(cwd, "logs", "server.log")
	apiLogs := path.Join(cwd, "logs", "api.log")
	gin.ForceConsoleColor()

	f, _ := os.Create(apiLogs)
	gin.DefaultWriter = io.MultiWriter(f, os.Stdout)
	log.SetOutput(&lumberjack.Logger{
		Filename:   serverLogs,
		MaxSize:    500,
		MaxBackups: 3,
		MaxAge:     30,
		Compress:   true,
	})
}

func main() {
	apiEnv := os.Getenv("API_ENV")
	if apiEnv == "local" {
		cwd, _ := os.Getwd()
		if err := godotenv.Load(path.Join(cwd, ".env")); err != nil {
			panic(err)
		}
	}
	initLogger()

	boot.InitDb()
	boot.InitScheduler()
	lib.InitWebAuthn(time.Hour, !utils.IsProd())

	go boot.DownloadServiceKeyFromS3()
	go boot.InitBroker()

	router := setupRouter()
	wss := setupSocketServer(router)
	if wss != nil {
		log.Println("WS server listening for connections...")
	}

	appHost := os.Getenv("APP_HOST")
	if apiEnv == "local" {
		router.Use(cors.Default())
	} else {
		cc := cors.DefaultConfig()
		cc.AllowMethods = append(cc.AllowMethods, "GET", "POST", "PATCH", "PUT", "DELETE", "HEAD")
		cc.AllowHeaders = append(cc.AllowHeaders, "Origin", "Authorization", "x-secret")
		cc.AllowOriginFunc = func(origin string) bool {
			match, _ := regexp.MatchString(`(\w+.?)+\.amazonaws\.com$`, origin)
			if match {
				return true
			}
			match, _ = regexp.MatchString(appHost, origin)
			if match {
				return true
			}
			match, _ = regexp.MatchString("app:mobile", origin)
			return match
		}
		cc.AllowCredentials = true
		cc.AllowAllOrigins = false
		router.Use(cors.New(cc))
	}

	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterValidation("reservedate", reservationDateValidatorFunc)
		v.RegisterValidation("gtedate", gtedatefield)
		v.RegisterValidation("ltedate", ltedatefield)
	}

	router = maintenanceModeMiddleware(router)

	publicRoutes(router)

	guestAuthRoutes(router)

	authorized := router.Group(apiPrefix)
	authorized.Use(middlewares.AuthMiddleware)
	{
		authorized.
			POST("/fcm", func(ctx *gin.Context) {
				var body struct {
					Token  string   `json:"token" binding:"required"`
					Topics []string `json:"topics" binding:"required"`
				}
				if err := ctx.ShouldBindJSON(&body); err != nil {
					log.Printf("[FCM] error: %v\n", err)
					ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
					return
				}
				fcm, err := lib.GetFirebaseMessaging()
				if err != nil {
					log.Printf("Could not retrieve FCM instance: %v\n", err)
					ctx.Status(http.StatusInternalServerError)
					return
				}
				for _, topic := range body.Topics {
					_, err := fcm.SubscribeToTopic(ctx, []string{body.Token}, topic)
					if err != nil {
						log.Printf("[FCM] error subscribing to topic [%s]: %v\n", topic, err)
						ctx.Status(http.StatusBadRequest)
						return
					}
				}
				uid := ctx.GetString("uid")
				rd := lib.GetRedisClient()
				rd.JSONSet(context.Background(), fmt.Sprintf("%s:fcm", uid), "$", map[string]any{
					"token":  body.Token,
					"topics": body.Topics,
				})

				ctx.Status(http.StatusOK)
			}).
			POST("/auth/logout", func(ctx *gin.Context) {
				db := db.GetDb()
				if err := db.Transaction(func(tx *gorm.DB) error {
					userId := ctx.GetUint("id")
					err := tx.Model(&models.User{}).Where(userId).Update("last_active", time.Now()).Error
					if err != nil {
						return err
					}
					return nil
				}); err != nil {
					log.Printf("Error on user logout: %s\n", err.Error())
					ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
					return
				}
				uid := ctx.GetString("uid")

				go func() {
					rd := lib.GetRedisClient()
					token := rd.JSONGet(context.Background(), fmt.Sprintf("%s:fcm", uid), "$.token").Val()
					if token == "" {
						return
					}
					fcm, err := lib.GetFirebaseMessaging()
					if err != nil {
						return
					}
					fcm.UnsubscribeFromTopic(context.Background(), []string{token}, "Notifications")
				}()

				ctx.Status(http.StatusOK)
			}).
			GET("/users/me", func(ctx *gin.Context) {
				user, status, err := controllers.AccountsGetProfile(ctx)
				if err != nil {
					ctx.Status(status)
					return
				}
				ctx.JSON(http.StatusOK, gin.H{"data": user})
			})

		authorized = reservationHandlers(authorized)
		authorized = swapHandlers(authorized)
		authorized = draftHandlers(authorized)
		authorized = notificationHandlers(authorized)
		authorized = maintenanceHandlers(authorized)
		authorized = galleryHandlers(authorized)

		admin := authorized.Group("", middlewares.RequireAdmin)
		inviteHandlers(admin)

		accounts := authorized.Group("/accounts")
		accounts.
			GET("/profile", func(ctx *gin.Context) {
				user, status, err := controllers.AccountsGetProfile(ctx)
				if err != nil {
					ctx.Status(status)
					return
				}
				ctx.JSON(http.StatusOK, gin.H{"data": user})
			}).
			PUT("/profile", func(ctx *gin.Context) {
				status, err := controllers.AccountsUpdateProfile(ctx)
				if err != nil {
					ctx.JSON(status, gin.H{"error": err.Error()})
					return
				}
				ctx.Status(status)
			}).
			GET("/devices", func(ctx *gin.Context) {
				creds, status, err := controllers.AccountsListCredentials(ctx)
				if err != nil {
					ctx.Status(status)
					return
				}
				ctx.JSON(http.StatusOK, gin.H{"data": creds, "count": len(creds)})
			}).
			DELETE("/devices", func(ctx *gin.Context) {
				status, err := controllers.AccountsRevokeCredential(ctx)
				if err != nil {
					ctx.JSON(status, gin.H{"error": err.Error()})
					return
				}
				ctx.Status(status)
			})

		passkey := accounts.Group("/passkey")
		passkey.
			POST("/register/start", func(ctx *gin.Context) {
				opts, status, err := controllers.AccountsPasskeyRegisterStart(ctx.Copy())
				if err != nil {
					log.Printf("Error on PasskeyRegisterStart: %s\n", err.Error())
					ctx.Status(status)
					return
				}
				ctx.JSON(http.StatusOK, gin.H{"publicKey": opts.Response})
			}).
			POST("/register/finish", func(ctx *gin.Context) {
				status, err := controllers.AccountsPasskeyRegisterFinish(ctx)
				if err != nil {
					log.Printf("Error on PasskeyRegisterFinish: %s\n", err.Error())
					ctx.Status(status)
					return
				}
				ctx.Status(status)
			})
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "9000"
	}
	router.Run(":" + port)
}
