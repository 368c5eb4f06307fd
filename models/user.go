package models

import (
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"golang.org/x/crypto/bcrypt"
)

// PasswordCost is the bcrypt work factor used by SetPassword.
var PasswordCost = bcrypt.DefaultCost

// MaxPasswordBytes is the longest input bcrypt accepts.
const MaxPasswordBytes = 72

var ErrPasswordTooLong = errors.New("password must be at most 72 bytes")

type User struct {
	ID           bson.ObjectID   `bson:"_id,omitempty" json:"_id"`
	Username     string          `bson:"username" json:"username"`
	Email        string          `bson:"email" json:"email"`
	FullName     string          `bson:"fullName" json:"fullName"`
	Avatar       string          `bson:"avatar" json:"avatar"`
	CoverImage   string          `bson:"coverImage,omitempty" json:"coverImage"`
	WatchHistory []bson.ObjectID `bson:"watchHistory" json:"watchHistory"`
	PasswordHash string          `bson:"password,omitempty" json:"-"`     // never expose
	RefreshToken string          `bson:"refreshToken,omitempty" json:"-"` // never expose
	CreatedAt    time.Time       `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time       `bson:"updatedAt" json:"updatedAt"`
}

// SetPassword hashes plain and stores the hash on the user. When plain already
// matches the stored hash nothing is rehashed.
func (u *User) SetPassword(plain string) error {
	if len(plain) > MaxPasswordBytes {
		return ErrPasswordTooLong
	}
	if u.PasswordHash != "" && u.IsPasswordCorrect(plain) {
		return nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), PasswordCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hash)
	return nil
}

func (u *User) IsPasswordCorrect(plain string) bool {
	if u.PasswordHash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(plain)) == nil
}

// Sanitized returns a copy without the password hash and refresh token.
func (u User) Sanitized() User {
	u.PasswordHash = ""
	u.RefreshToken = ""
	return u
}
