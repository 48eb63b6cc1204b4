package models

import (
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostValidation(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name      string
		post      *Post
		wantErr   bool
		wantField string
	}{
		{
			name: "valid post",
			post: &Post{
				Lat:           59.33,
				Lng:           18.06,
				Media:         "/media/a.jpg",
				LifetimeHours: 3,
				Created:       now,
			},
		},
		{
			name: "origin coordinates are valid",
			post: &Post{
				Media:         "/media/a.jpg",
				LifetimeHours: 1,
				Created:       now,
			},
		},
		{
			name: "lifetime below range",
			post: &Post{
				Media:         "/media/a.jpg",
				LifetimeHours: 0,
				Created:       now,
			},
			wantErr:   true,
			wantField: "lifetime_hours",
		},
		{
			name: "lifetime above range",
			post: &Post{
				Media:         "/media/a.jpg",
				LifetimeHours: 25,
				Created:       now,
			},
			wantErr:   true,
			wantField: "lifetime_hours",
		},
		{
			name: "latitude out of range",
			post: &Post{
				Lat:           91,
				Media:         "/media/a.jpg",
				LifetimeHours: 2,
				Created:       now,
			},
			wantErr:   true,
			wantField: "lat",
		},
		{
			name: "missing media",
			post: &Post{
				LifetimeHours: 2,
				Created:       now,
			},
			wantErr:   true,
			wantField: "media",
		},
		{
			name: "zero creation time",
			post: &Post{
				Media:         "/media/a.jpg",
				LifetimeHours: 2,
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.post.Validate()
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			if tt.wantField != "" {
				var verrs validator.ValidationErrors
				require.ErrorAs(t, err, &verrs)
				assert.Equal(t, tt.wantField, verrs[0].Field())
			}
		})
	}
}

func TestPostBeforeCreate(t *testing.T) {
	post := &Post{Media: "/media/a.jpg", LifetimeHours: 1}

	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.FixedZone("CEST", 2*3600))
	post.BeforeCreate(now)
	assert.True(t, post.Created.Equal(now))
	assert.Equal(t, time.UTC, post.Created.Location())
	assert.NotNil(t, post.Comments)

	// Created is immutable once set.
	post.BeforeCreate(now.Add(time.Hour))
	assert.True(t, post.Created.Equal(now))
}

func TestPostLifetimeAndResource(t *testing.T) {
	post := &Post{ID: 7, LifetimeHours: 5}
	assert.Equal(t, 5*time.Hour, post.Lifetime())
	assert.Equal(t, ResourceRef{Type: ResourceTypePost, ID: 7}, post.Resource())
}

func TestPostAddComment(t *testing.T) {
	post := &Post{ID: 3}

	t.Run("add comment", func(t *testing.T) {
		comment := &Comment{ID: 1, Content: "nice view"}
		assert.NoError(t, post.AddComment(comment))
		assert.Len(t, post.Comments, 1)
		assert.Equal(t, post.ID, comment.PostID)
	})

	t.Run("add nil comment", func(t *testing.T) {
		assert.Error(t, post.AddComment(nil))
	})
}
