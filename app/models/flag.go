package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ResourceType tags which kind of resource a Flag points at.
type ResourceType string

const (
	ResourceTypePost    ResourceType = "POST"
	ResourceTypeComment ResourceType = "COMMENT"
)

// Reason is why a resource was flagged.
type Reason string

const (
	ReasonInappropriateContent Reason = "INAPPROPRIATE_CONTENT"
	ReasonPrivacyViolation     Reason = "PRIVACY_VIOLATION"
	ReasonViolenceOrBullying   Reason = "VIOLENCE_OR_BULLYING"
	ReasonSpam                 Reason = "SPAM"
)

// Short codes used by older clients.
var (
	resourceTypeCodes = map[string]ResourceType{
		"PST": ResourceTypePost,
		"CMT": ResourceTypeComment,
	}
	reasonCodes = map[string]Reason{
		"IC": ReasonInappropriateContent,
		"PV": ReasonPrivacyViolation,
		"VB": ReasonViolenceOrBullying,
		"SP": ReasonSpam,
	}
)

// UnmarshalJSON accepts both the canonical name and the short code.
func (t *ResourceType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*t = ParseResourceType(s)
	return nil
}

// ParseResourceType normalises a canonical name or short code. Unknown
// values are returned upper-cased and fail validation later.
func ParseResourceType(s string) ResourceType {
	s = strings.ToUpper(strings.TrimSpace(s))
	if rt, ok := resourceTypeCodes[s]; ok {
		return rt
	}
	return ResourceType(s)
}

// UnmarshalJSON accepts both the canonical name and the short code.
func (r *Reason) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*r = ParseReason(s)
	return nil
}

// ParseReason is the Reason counterpart of ParseResourceType.
func ParseReason(s string) Reason {
	s = strings.ToUpper(strings.TrimSpace(s))
	if reason, ok := reasonCodes[s]; ok {
		return reason
	}
	return Reason(s)
}

// ResourceRef is the (type, id) pair a Flag resolves against. It is a lookup
// key, not an ownership edge: the store resolves it by type tag.
type ResourceRef struct {
	Type ResourceType
	ID   uint64
}

func (r ResourceRef) String() string {
	return fmt.Sprintf("%s:%d", r.Type, r.ID)
}

// Validate checks if the flag meets all validation requirements
func (f *Flag) Validate() error {
	if err := validate.Struct(f); err != nil {
		return err
	}

	if f.Created.IsZero() {
		return errors.New("created cannot be zero")
	}

	return nil
}

// BeforeCreate sets up any necessary fields before creation
func (f *Flag) BeforeCreate(now time.Time) {
	if f.Created.IsZero() {
		f.Created = now.UTC()
	}
}

// Resource returns the flagged resource reference.
func (f *Flag) Resource() ResourceRef {
	return ResourceRef{Type: f.ResourceType, ID: f.ResourceID}
}
