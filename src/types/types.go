package types

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"gorm.io/gorm"
)

type Timestamps struct {
	CreatedAt time.Time      `gorm:"autoCreateTime:nano" json:"created_at,omitempty"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime:nano" json:"updated_at,omitempty"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty,omitnil"`
}

type JSONB map[string]any
type JSONBArray []any

func (a JSONB) Value() (driver.Value, error) {
	valueString, err := json.Marshal(a)
	return string(valueString), err
}
func (a *JSONB) Scan(value any) error {
	b, ok := value.([]byte)
	if !ok {
		return errors.New("type assertion to []byte failed")
	}
	if err := json.Unmarshal(b, &a); err != nil {
		return err
	}
	return nil
}

func (a JSONBArray) Value() (driver.Value, error) {
	valueString, err := json.Marshal(a)
	return string(valueString), err
}
func (a *JSONBArray) Scan(value any) error {
	b, ok := value.([]byte)
	if !ok {
		return errors.New("type assertion to []byte failed")
	}
	if err := json.Unmarshal(b, &a); err != nil {
		return err
	}
	return nil
}

type Model struct {
	Timestamps

	ID uint `gorm:"id,primaryKey"`
}

type Environment string

const (
	Local      Environment = "local"
	Test       Environment = "test"
	Production Environment = "production"
)

// Reservation dates travel as ISO YYYY-MM-DD strings end to end. The custom
// validators (reservedate, gtedate, ltedate) are registered in main.
type CreateReservationRequestBody struct {
	StartDate  string  `json:"start_date" binding:"required,reservedate"`
	EndDate    string  `json:"end_date" binding:"required,reservedate,gtedate=StartDate"`
	GuestCount int     `json:"guest_count" binding:"min=1,max=20"`
	Notes      *string `json:"notes,omitempty" binding:"omitempty,max=1000"`
	CustomName *string `json:"custom_name,omitempty" binding:"omitempty,max=100"`
}

type UpdateReservationRequestBody struct {
	StartDate  string  `json:"start_date" binding:"required,reservedate"`
	EndDate    string  `json:"end_date" binding:"required,reservedate,gtedate=StartDate"`
	GuestCount int     `json:"guest_count" binding:"min=1,max=20"`
	Notes      *string `json:"notes,omitempty" binding:"omitempty,max=1000"`
}

type ConflictCheckRequestBody struct {
	StartDate string `json:"start_date" binding:"required,reservedate"`
	EndDate   string `json:"end_date" binding:"required,reservedate,gtedate=StartDate"`
	ExcludeID uint   `json:"exclude_id,omitempty"`
}

type CalendarQueryParams struct {
	Year          int     `form:"year" binding:"required,min=1970,max=2200"`
	Month         int     `form:"month" binding:"required,min=1,max=12"`
	SelectedStart *string `form:"selected_start" binding:"omitempty,reservedate"`
	SelectedEnd   *string `form:"selected_end" binding:"omitempty,reservedate"`
	ExcludeID     uint    `form:"exclude_id"`
}

type ReservationsQueryFilters struct {
	From     *string `form:"from" binding:"omitempty,reservedate"`
	To       *string `form:"to" binding:"omitempty,reservedate"`
	Own      bool    `form:"own"`
	Upcoming bool    `form:"upcoming"`
}

type CreateSwapRequestBody struct {
	OfferedReservationID uint    `json:"offered_reservation_id" binding:"required"`
	TargetReservationID  uint    `json:"target_reservation_id" binding:"required"`
	Message              *string `json:"message,omitempty" binding:"omitempty,max=500"`
}

type SwapResponseQueryParams struct {
	Token  string `form:"token" binding:"required"`
	Action string `form:"action" binding:"required,oneof=accept decline"`
}

type SwapsQueryFilters struct {
	Direction string `form:"direction" binding:"omitempty,oneof=incoming outgoing"`
	Status    string `form:"status" binding:"omitempty,oneof=pending accepted declined expired"`
}

type DraftQueryParams struct {
	Mode          string `form:"mode" binding:"required,oneof=create edit"`
	ReservationID uint   `form:"reservation_id" binding:"required_if=Mode edit"`
}

// DraftPayload mirrors the reservation form plus the in-progress calendar
// selection so an interrupted session resumes exactly where it left off.
type DraftPayload struct {
	StartDate  string             `json:"start_date,omitempty"`
	EndDate    string             `json:"end_date,omitempty"`
	GuestCount int                `json:"guest_count,omitempty"`
	Notes      string             `json:"notes,omitempty"`
	Selection  *SelectionSnapshot `json:"selection,omitempty"`
}

type SelectionSnapshot struct {
	Phase  string `json:"phase"`
	Anchor string `json:"anchor,omitempty"`
}

type RegisterUserRequestBody struct {
	InviteToken string `json:"invite_token" binding:"required"`
	Name        string `json:"name" binding:"required,max=100"`
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required,min=8"`
}

type LoginRequestBody struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type UpdateProfileRequestBody struct {
	Name  *string `json:"name,omitempty" binding:"omitempty,max=100"`
	Phone *string `json:"phone,omitempty" binding:"omitempty,max=20"`
}

type CreateInvitationRequestBody struct {
	Email   string  `json:"email" binding:"required,email"`
	Role    string  `json:"role,omitempty" binding:"omitempty,oneof=member admin"`
	Message *string `json:"message,omitempty" binding:"omitempty,max=500"`
}

type ValidateInvitationQueryParams struct {
	Token string `form:"token" binding:"required"`
}

type CreateMaintenanceRequestBody struct {
	Title       string `json:"title" binding:"required,max=200"`
	Description string `json:"description" binding:"required,max=2000"`
	Priority    string `json:"priority,omitempty" binding:"omitempty,oneof=low normal high urgent"`
}

type UpdateMaintenanceRequestBody struct {
	Status          *string `json:"status,omitempty" binding:"omitempty,oneof=open in_progress resolved"`
	AssignedTo      *uint   `json:"assigned_to,omitempty"`
	Priority        *string `json:"priority,omitempty" binding:"omitempty,oneof=low normal high urgent"`
	CostCents       *int64  `json:"cost_cents,omitempty"`
	ResolutionNotes *string `json:"resolution_notes,omitempty" binding:"omitempty,max=2000"`
}

type MaintenanceQueryFilters struct {
	Status   string `form:"status" binding:"omitempty,oneof=open in_progress resolved"`
	Priority string `form:"priority" binding:"omitempty,oneof=low normal high urgent"`
}

type CreateAlbumRequestBody struct {
	Name        string  `json:"name" binding:"required,max=100"`
	Description *string `json:"description,omitempty" binding:"omitempty,max=1000"`
}

type NotificationsQueryFilters struct {
	Unread bool `form:"unread"`
}

type SimpleRequestParams struct {
	ID uint `uri:"id" binding:"required"`
}

type AlbumURIParams struct {
	Slug string `uri:"slug" binding:"required"`
}

type SwapStatus string

const (
	SWAP_PENDING  SwapStatus = "pending"
	SWAP_ACCEPTED SwapStatus = "accepted"
	SWAP_DECLINED SwapStatus = "declined"
	SWAP_EXPIRED  SwapStatus = "expired"
)

const (
	SWAP_ACTION_ACCEPT  = "accept"
	SWAP_ACTION_DECLINE = "decline"
)

type InvitationStatus string

const (
	INVITATION_PENDING  InvitationStatus = "pending"
	INVITATION_ACCEPTED InvitationStatus = "accepted"
	INVITATION_EXPIRED  InvitationStatus = "expired"
	INVITATION_REVOKED  InvitationStatus = "revoked"
)

type MaintenanceStatus string

const (
	MAINTENANCE_OPEN        MaintenanceStatus = "open"
	MAINTENANCE_IN_PROGRESS MaintenanceStatus = "in_progress"
	MAINTENANCE_RESOLVED    MaintenanceStatus = "resolved"
)

type MaintenancePriority string

const (
	PRIORITY_LOW    MaintenancePriority = "low"
	PRIORITY_NORMAL MaintenancePriority = "normal"
	PRIORITY_HIGH   MaintenancePriority = "high"
	PRIORITY_URGENT MaintenancePriority = "urgent"
)

const (
	ROLE_MEMBER = "member"
	ROLE_ADMIN  = "admin"
)

type NotificationType string

const (
	NOTIFY_SWAP_REQUESTED       NotificationType = "swap_requested"
	NOTIFY_SWAP_ACCEPTED        NotificationType = "swap_accepted"
	NOTIFY_SWAP_DECLINED        NotificationType = "swap_declined"
	NOTIFY_INVITE_ACCEPTED      NotificationType = "invite_accepted"
	NOTIFY_MAINTENANCE_ASSIGNED NotificationType = "maintenance_assigned"
	NOTIFY_MAINTENANCE_URGENT   NotificationType = "maintenance_urgent"
	NOTIFY_STAY_REMINDER        NotificationType = "stay_reminder"
)

type Metadata map[string]any

type APIResponseUser struct {
	ID    uint   `json:"id"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
	UID   string `json:"uid,omitempty"`
}

type APIResponseReservation struct {
	ID         uint    `json:"id"`
	UserID     *uint   `json:"user_id,omitempty"`
	OwnerName  string  `json:"owner_name,omitempty"`
	StartDate  string  `json:"start_date"`
	EndDate    string  `json:"end_date"`
	GuestCount int     `json:"guest_count,omitempty"`
	Notes      *string `json:"notes,omitempty"`

	Timestamps
}

type Claims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	UID      string `json:"uid"`
	jwt.RegisteredClaims
}

type Oauth2FlowState struct {
	UserID        uint   `json:"user_id"`
	ReservationID uint   `json:"reservation_id"`
	Nonce         string `json:"nonce"`
	RedirectTo    string `json:"redirect_to,omitempty"`
}

type Handler func(payload string)
