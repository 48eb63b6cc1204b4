package models

import (
	"errors"
	"time"
)

// MaxCommentLength is the longest comment accepted, in characters.
const MaxCommentLength = 200

// Validate checks if the comment meets all validation requirements
func (c *Comment) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}

	if c.Created.IsZero() {
		return errors.New("created cannot be zero")
	}

	return nil
}

// BeforeCreate sets up any necessary fields before creation
func (c *Comment) BeforeCreate(now time.Time) {
	if c.Created.IsZero() {
		c.Created = now.UTC()
	}
}

// Resource returns the flag target key for this comment.
func (c *Comment) Resource() ResourceRef {
	return ResourceRef{Type: ResourceTypeComment, ID: c.ID}
}
