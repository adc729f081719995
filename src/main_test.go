package main

import (
	"cabin/src/db"
	"cabin/src/lib"
	"cabin/src/types"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"github.com/tidwall/gjson"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

type TestSuite struct {
	suite.Suite
	DB     *gorm.DB
	Mock   sqlmock.Sqlmock
	Drafts *lib.MemoryDraftStore
}

// testAuthMiddleware stands in for the JWT middleware so handler tests do not
// need a user row or a signed token.
func testAuthMiddleware(ctx *gin.Context) {
	ctx.Set("id", uint(1))
	ctx.Set("uid", "test-uid")
	ctx.Set("email", "someone@example.com")
	ctx.Set("role", types.ROLE_MEMBER)
}

func NewMockDB() (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	if err != nil {
		log.Fatalf("An error '%s' was not expected when opening a stub database connection", err)
	}

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: db}), &gorm.Config{})
	if err != nil {
		log.Fatalf("An error '%s' was not expected when opening gorm database", err)
	}

	return gormDB, mock
}

func (s *TestSuite) SetupSuite() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterValidation("reservedate", reservationDateValidatorFunc)
		v.RegisterValidation("gtedate", gtedatefield)
		v.RegisterValidation("ltedate", ltedatefield)
	}

	d, mock := NewMockDB()
	db.NewDB(d)
	s.DB = d
	s.Mock = mock

	s.Drafts = lib.NewMemoryDraftStore()
	lib.NewDraftStore(s.Drafts)
}

func (s *TestSuite) newAuthorizedRouter() *gin.Engine {
	router := setupRouter()
	apiv1 := apiv1Group(router)
	apiv1.Use(testAuthMiddleware)
	reservationHandlers(apiv1)
	swapHandlers(apiv1)
	draftHandlers(apiv1)
	maintenanceHandlers(apiv1)
	return router
}

func (s *TestSuite) TestPingRoute() {
	router := setupRouter()

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/", nil)
	router.ServeHTTP(w, req)

	assert.Equal(s.T(), 200, w.Code)
}

func (s *TestSuite) TestMaintenanceMode() {
	os.Setenv("MAINTENANCE_MODE", "true")
	defer os.Unsetenv("MAINTENANCE_MODE")

	router := setupRouter()
	router = maintenanceModeMiddleware(router)
	apiv1Group(router)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/v1", nil)
	router.ServeHTTP(w, req)

	assert.Equal(s.T(), 503, w.Code)
}

func (s *TestSuite) TestReservationValidation() {
	router := s.newAuthorizedRouter()

	s.Run("Malformed start date", func() {
		body := map[string]any{
			"start_date":  "07/10/2026",
			"end_date":    "2026-07-15",
			"guest_count": 4,
		}
		sbody, _ := json.Marshal(&body)
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/api/v1/reservations", strings.NewReader(string(sbody)))
		router.ServeHTTP(w, req)

		assert.Equal(s.T(), 400, w.Code)
		rbytes, err := io.ReadAll(w.Body)
		assert.Nil(s.T(), err)
		msg := gjson.Get(string(rbytes), "errors.start_date").String()
		assert.Equal(s.T(), "Start date must be a valid date", msg)
	})

	s.Run("End before start", func() {
		body := map[string]any{
			"start_date":  "2026-07-15",
			"end_date":    "2026-07-10",
			"guest_count": 4,
		}
		sbody, _ := json.Marshal(&body)
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/api/v1/reservations", strings.NewReader(string(sbody)))
		router.ServeHTTP(w, req)

		assert.Equal(s.T(), 400, w.Code)
		rbytes, _ := io.ReadAll(w.Body)
		msg := gjson.Get(string(rbytes), "errors.end_date").String()
		assert.Equal(s.T(), "Must be after start date", msg)
	})

	s.Run("Guest count below minimum", func() {
		body := map[string]any{
			"start_date":  "2026-07-10",
			"end_date":    "2026-07-15",
			"guest_count": 0,
		}
		sbody, _ := json.Marshal(&body)
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/api/v1/reservations", strings.NewReader(string(sbody)))
		router.ServeHTTP(w, req)

		assert.Equal(s.T(), 400, w.Code)
		rbytes, _ := io.ReadAll(w.Body)
		msg := gjson.Get(string(rbytes), "errors.guest_count").String()
		assert.Equal(s.T(), "Guest count must be at least 1", msg)
	})

	s.Run("Calendar query requires year and month", func() {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/api/v1/reservations/calendar", nil)
		router.ServeHTTP(w, req)

		assert.Equal(s.T(), 400, w.Code)
	})
}

func (s *TestSuite) TestDraftRoutes() {
	router := s.newAuthorizedRouter()

	s.Run("Missing draft reads as null", func() {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/api/v1/drafts?mode=create", nil)
		router.ServeHTTP(w, req)

		assert.Equal(s.T(), 200, w.Code)
		rbytes, _ := io.ReadAll(w.Body)
		assert.Equal(s.T(), gjson.Null, gjson.Get(string(rbytes), "data").Type)
	})

	s.Run("Save then load round-trips", func() {
		payload := types.DraftPayload{
			StartDate:  "2026-07-10",
			EndDate:    "2026-07-15",
			GuestCount: 4,
			Notes:      "partial entry",
		}
		sbody, _ := json.Marshal(&payload)
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("PUT", "/api/v1/drafts?mode=create", strings.NewReader(string(sbody)))
		router.ServeHTTP(w, req)
		assert.Equal(s.T(), 204, w.Code)

		w = httptest.NewRecorder()
		req, _ = http.NewRequest("GET", "/api/v1/drafts?mode=create", nil)
		router.ServeHTTP(w, req)
		assert.Equal(s.T(), 200, w.Code)
		rbytes, _ := io.ReadAll(w.Body)
		assert.Equal(s.T(), "2026-07-10", gjson.Get(string(rbytes), "data.start_date").String())
		assert.Equal(s.T(), int64(4), gjson.Get(string(rbytes), "data.guest_count").Int())
	})

	s.Run("Edit mode requires a reservation id", func() {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/api/v1/drafts?mode=edit", nil)
		router.ServeHTTP(w, req)
		assert.Equal(s.T(), 400, w.Code)
	})

	s.Run("Delete clears the slot", func() {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("DELETE", "/api/v1/drafts?mode=create", nil)
		router.ServeHTTP(w, req)
		assert.Equal(s.T(), 204, w.Code)

		val, err := s.Drafts.Get(context.Background(), lib.DraftKey(1, "create", 0))
		assert.Nil(s.T(), err)
		assert.Empty(s.T(), val)
	})
}

func (s *TestSuite) TestReservationCreatePurgesDraft() {
	router := s.newAuthorizedRouter()

	key := lib.DraftKey(1, "create", 0)
	err := s.Drafts.Set(context.Background(), key, `{"start_date":"2024-07-10"}`, 0)
	assert.Nil(s.T(), err)

	s.Mock.ExpectBegin()
	s.Mock.
		ExpectQuery(`SELECT (.+) FROM "reservations"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	s.Mock.
		ExpectQuery(`INSERT INTO "reservations"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	s.Mock.ExpectCommit()

	body := map[string]any{
		"start_date":  "2024-07-10",
		"end_date":    "2024-07-12",
		"guest_count": 2,
	}
	sbody, _ := json.Marshal(&body)
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/api/v1/reservations", strings.NewReader(string(sbody)))
	router.ServeHTTP(w, req)

	assert.Equal(s.T(), 201, w.Code)
	assert.Nil(s.T(), s.Mock.ExpectationsWereMet())
	// the draft purge runs async after commit
	assert.Eventually(s.T(), func() bool {
		val, err := s.Drafts.Get(context.Background(), key)
		return err == nil && val == ""
	}, time.Second, 10*time.Millisecond)
}

func (s *TestSuite) TestMaintenanceUrgentNotifiesAdmins() {
	router := s.newAuthorizedRouter()

	s.Mock.ExpectBegin()
	s.Mock.
		ExpectQuery(`INSERT INTO "maintenance_requests"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(3))
	s.Mock.
		ExpectQuery(`SELECT (.+) FROM "users"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "role"}).
			AddRow(9, "admin"))
	s.Mock.
		ExpectQuery(`INSERT INTO "notifications"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	s.Mock.ExpectCommit()

	body := map[string]any{
		"title":       "Roof leak",
		"description": "Water coming in above the bunk room",
		"priority":    "urgent",
	}
	sbody, _ := json.Marshal(&body)
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/api/v1/maintenance", strings.NewReader(string(sbody)))
	router.ServeHTTP(w, req)

	assert.Equal(s.T(), 201, w.Code)
	rbytes, _ := io.ReadAll(w.Body)
	assert.Equal(s.T(), "urgent", gjson.Get(string(rbytes), "data.priority").String())
	assert.Nil(s.T(), s.Mock.ExpectationsWereMet())
}

func (s *TestSuite) TestInviteValidateRoute() {
	router := setupRouter()
	apiv1 := apiv1Group(router)
	apiv1.GET("/invites/validate", validateInviteHandler)

	s.Run("Valid token", func() {
		s.Mock.
			ExpectQuery(`SELECT (.+) FROM "invitations"`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "email", "role", "status", "expires_at"}).
				AddRow(4, "cousin@example.com", "member", "pending", time.Now().Add(24*time.Hour)))

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/api/v1/invites/validate?token=invite-token", nil)
		router.ServeHTTP(w, req)

		assert.Equal(s.T(), 200, w.Code)
		rbytes, _ := io.ReadAll(w.Body)
		assert.True(s.T(), gjson.Get(string(rbytes), "valid").Bool())
		assert.Equal(s.T(), "cousin@example.com", gjson.Get(string(rbytes), "email").String())
		assert.Nil(s.T(), s.Mock.ExpectationsWereMet())
	})

	s.Run("Unknown token", func() {
		s.Mock.
			ExpectQuery(`SELECT (.+) FROM "invitations"`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/api/v1/invites/validate?token=nope", nil)
		router.ServeHTTP(w, req)

		assert.Equal(s.T(), 404, w.Code)
		assert.Nil(s.T(), s.Mock.ExpectationsWereMet())
	})
}

func (s *TestSuite) TestSwapResponseRoute() {
	router := setupRouter()
	apiv1 := apiv1Group(router)
	apiv1.GET("/handle-swap-response", handleSwapResponse)

	s.Run("Missing token", func() {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/api/v1/handle-swap-response?action=accept", nil)
		router.ServeHTTP(w, req)
		assert.Equal(s.T(), 400, w.Code)
	})

	s.Run("Unknown action", func() {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/api/v1/handle-swap-response?token=abc&action=destroy", nil)
		router.ServeHTTP(w, req)
		assert.Equal(s.T(), 400, w.Code)
	})

	s.Run("Unknown token", func() {
		s.Mock.ExpectBegin()
		s.Mock.
			ExpectQuery(`SELECT (.+) FROM "reservation_swap_requests"`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))
		s.Mock.ExpectRollback()

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/api/v1/handle-swap-response?token=does-not-exist&action=accept", nil)
		router.ServeHTTP(w, req)

		assert.Equal(s.T(), 404, w.Code)
		rbytes, _ := io.ReadAll(w.Body)
		assert.NotEmpty(s.T(), gjson.Get(string(rbytes), "error").String())
		assert.Nil(s.T(), s.Mock.ExpectationsWereMet())
	})

	swapColumns := []string{
		"id", "requester_id", "requester_reservation_id",
		"target_user_id", "target_reservation_id",
		"token", "expires_at", "status",
	}

	s.Run("Accept exchanges reservation owners", func() {
		s.Mock.ExpectBegin()
		s.Mock.
			ExpectQuery(`SELECT (.+) FROM "reservation_swap_requests"`).
			WillReturnRows(sqlmock.NewRows(swapColumns).
				AddRow(5, 1, 10, 2, 11, "swap-token", time.Now().Add(24*time.Hour), "pending"))
		s.Mock.
			ExpectQuery(`SELECT (.+) FROM "reservations"`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "user_id"}).
				AddRow(10, 1).
				AddRow(11, 2))
		s.Mock.
			ExpectExec(`UPDATE "reservations"`).
			WithArgs(2, sqlmock.AnyArg(), 10).
			WillReturnResult(sqlmock.NewResult(0, 1))
		s.Mock.
			ExpectExec(`UPDATE "reservations"`).
			WithArgs(1, sqlmock.AnyArg(), 11).
			WillReturnResult(sqlmock.NewResult(0, 1))
		s.Mock.
			ExpectExec(`UPDATE "reservation_swap_requests"`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		s.Mock.
			ExpectQuery(`INSERT INTO "notifications"`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
		s.Mock.ExpectCommit()

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/api/v1/handle-swap-response?token=swap-token&action=accept", nil)
		router.ServeHTTP(w, req)

		assert.Equal(s.T(), 200, w.Code)
		rbytes, _ := io.ReadAll(w.Body)
		assert.Equal(s.T(), "accepted", gjson.Get(string(rbytes), "data.status").String())
		assert.Nil(s.T(), s.Mock.ExpectationsWereMet())
	})

	s.Run("Replaying a consumed token conflicts", func() {
		s.Mock.ExpectBegin()
		s.Mock.
			ExpectQuery(`SELECT (.+) FROM "reservation_swap_requests"`).
			WillReturnRows(sqlmock.NewRows(swapColumns).
				AddRow(5, 1, 10, 2, 11, "swap-token", time.Now().Add(24*time.Hour), "accepted"))
		s.Mock.ExpectRollback()

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/api/v1/handle-swap-response?token=swap-token&action=accept", nil)
		router.ServeHTTP(w, req)

		assert.Equal(s.T(), 409, w.Code)
		rbytes, _ := io.ReadAll(w.Body)
		assert.NotEmpty(s.T(), gjson.Get(string(rbytes), "error").String())
		assert.Nil(s.T(), s.Mock.ExpectationsWereMet())
	})
}

func TestRunner(t *testing.T) {
	suite.Run(t, new(TestSuite))
}
