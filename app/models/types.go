package models

import "time"

// Post is an ephemeral geo-tagged photo or video.
type Post struct {
	ID            uint64     `json:"id"`
	Created       time.Time  `json:"created"`
	Lat           float64    `json:"lat" validate:"min=-90,max=90"`
	Lng           float64    `json:"lng" validate:"min=-180,max=180"`
	Media         string     `json:"media" validate:"required,max=1024"`
	IsVideo       bool       `json:"is_video"`
	LifetimeHours int        `json:"lifetime_hours" validate:"min=1,max=24"`
	SecretDigest  []byte     `json:"-" validate:"-"`
	OwnsMedia     bool       `json:"-" validate:"-"` // Media was uploaded for this post
	Comments      []*Comment `json:"comments" validate:"-"`
}

// Comment is a short text reply attached to a Post.
type Comment struct {
	ID           uint64    `json:"id"`
	PostID       uint64    `json:"post" validate:"required"`
	Created      time.Time `json:"created"`
	Content      string    `json:"content" validate:"required,max=200"`
	SecretDigest []byte    `json:"-" validate:"-"`
}

// Flag records a moderation report against a Post or a Comment.
type Flag struct {
	ID           uint64       `json:"id"`
	ResourceType ResourceType `json:"resource_type" validate:"required,oneof=POST COMMENT"`
	ResourceID   uint64       `json:"resource_id" validate:"required"`
	Created      time.Time    `json:"created"`
	Reason       Reason       `json:"reason" validate:"required,oneof=INAPPROPRIATE_CONTENT PRIVACY_VIOLATION VIOLENCE_OR_BULLYING SPAM"`
}
