package models

import (
	"cabin/src/types"
	"encoding/binary"
	"time"

	"github.com/go-webauthn/webauthn/webauthn"
)

type User struct {
	ID           uint       `gorm:"primarykey" json:"id"`
	UID          string     `gorm:"uniqueIndex" json:"uid,omitempty"`
	Name         string     `json:"name,omitempty"`
	Email        string     `gorm:"uniqueIndex" json:"email,omitempty"`
	Phone        *string    `json:"phone,omitempty"`
	PasswordHash string     `json:"-"`
	Role         string     `gorm:"default:'member'" json:"role,omitempty"`
	LastActive   *time.Time `json:"last_active,omitempty"`

	Reservations      []Reservation `gorm:"foreignKey:user_id" json:"reservations,omitempty"`
	StoredCredentials []Credential  `gorm:"foreignKey:user_id" json:"-"`

	// decoded from StoredCredentials for the webauthn handshake, never persisted
	Credentials []webauthn.Credential `gorm:"-" json:"-"`

	types.Timestamps
}

func (u User) WebAuthnID() []byte {
	id := make([]byte, 8)
	binary.BigEndian.PutUint64(id, uint64(u.ID))
	return id
}
func (u User) WebAuthnName() string {
	return u.Email
}
func (u User) WebAuthnDisplayName() string {
	return u.Name
}
func (u User) WebAuthnCredentials() []webauthn.Credential {
	return u.Credentials
}

func (u *User) AddCredential(cred webauthn.Credential) {
	u.Credentials = append(u.Credentials, cred)
}
