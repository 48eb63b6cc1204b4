package models

import (
	"errors"
	"time"
)

const (
	MinLifetimeHours = 1
	MaxLifetimeHours = 24
)

// Validate checks if the post meets all validation requirements
func (p *Post) Validate() error {
	if err := validate.Struct(p); err != nil {
		return err
	}

	if p.Created.IsZero() {
		return errors.New("created cannot be zero")
	}

	return nil
}

// BeforeCreate stamps the creation time and makes sure the comment list
// serializes as an empty array.
func (p *Post) BeforeCreate(now time.Time) {
	if p.Created.IsZero() {
		p.Created = now.UTC()
	}
	if p.Comments == nil {
		p.Comments = []*Comment{}
	}
}

// Lifetime returns the declared lifetime as a duration.
func (p *Post) Lifetime() time.Duration {
	return time.Duration(p.LifetimeHours) * time.Hour
}

// Resource returns the flag target key for this post.
func (p *Post) Resource() ResourceRef {
	return ResourceRef{Type: ResourceTypePost, ID: p.ID}
}

// AddComment adds a comment to the post
func (p *Post) AddComment(comment *Comment) error {
	if comment == nil {
		return errors.New("comment cannot be nil")
	}

	comment.PostID = p.ID
	p.Comments = append(p.Comments, comment)
	return nil
}
