package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	DefaultImageURL       = "/static/images/default-pic.png"
	DefaultHeaderImageURL = "/static/images/warbler-hero.jpg"
	DefaultLocation       = "Planet Earth"
)

type User struct {
	ID             uuid.UUID `json:"id" gorm:"type:uuid;primary_key"`
	Username       string    `json:"username" gorm:"uniqueIndex;not null"`
	Email          string    `json:"email" gorm:"uniqueIndex;not null"`
	Password       string    `json:"-" gorm:"not null"`
	ImageURL       string    `json:"image_url"`
	HeaderImageURL string    `json:"header_image_url"`
	Bio            string    `json:"bio"`
	Location       string    `json:"location"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Follow is a directed edge: Follower's home feed includes Followed's warbles.
type Follow struct {
	ID         uuid.UUID `json:"id" gorm:"type:uuid;primary_key"`
	FollowerID uuid.UUID `json:"follower_id" gorm:"type:uuid;not null;uniqueIndex:idx_follower_followed"`
	FollowedID uuid.UUID `json:"followed_id" gorm:"type:uuid;not null;uniqueIndex:idx_follower_followed"`
	CreatedAt  time.Time `json:"created_at"`

	Follower User `json:"-" gorm:"foreignKey:FollowerID"`
	Followed User `json:"-" gorm:"foreignKey:FollowedID"`
}

// BeforeCreate assigns IDs client-side so the models work against both
// postgres and the sqlite databases used in tests.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	if u.ImageURL == "" {
		u.ImageURL = DefaultImageURL
	}
	if u.HeaderImageURL == "" {
		u.HeaderImageURL = DefaultHeaderImageURL
	}
	if u.Location == "" {
		u.Location = DefaultLocation
	}
	return nil
}

func (f *Follow) BeforeCreate(tx *gorm.DB) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	return nil
}

func (User) TableName() string {
	return "users"
}

func (Follow) TableName() string {
	return "follows"
}
