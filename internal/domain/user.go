package domain

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID             uuid.UUID  `db:"id" json:"id"`
	Email          string     `db:"email" json:"email"`
	FullName       *string    `db:"full_name" json:"full_name,omitempty"`
	ImageURL       *string    `db:"user_image_url" json:"user_image_url,omitempty"`
	PasswordHash   []byte     `db:"password_hash" json:"-"`
	PasswordSalt   []byte     `db:"password_salt" json:"-"`
	EmailConfirmed bool       `db:"email_confirmed" json:"email_confirmed"`
	ConfirmedAt    *time.Time `db:"confirmed_at" json:"confirmed_at,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
}

// HasPassword reports whether the account carries a local credential.
// Google-only accounts have neither hash nor salt.
func (u *User) HasPassword() bool {
	return len(u.PasswordHash) > 0 && len(u.PasswordSalt) > 0
}
