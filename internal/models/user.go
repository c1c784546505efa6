package models

import "time"

// Role is the authorization level stored on a profile.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool { return r == RoleAdmin || r == RoleUser }

// UserProfile is the per-user record kept in the "users" collection.
// ID is always the identity provider's subject id.
type UserProfile struct {
	ID               string              `bson:"_id" json:"id"`
	Name             string              `bson:"name" json:"name"`
	Email            string              `bson:"email" json:"email"`
	Role             Role                `bson:"role" json:"role"`
	CreatedAt        string              `bson:"createdAt" json:"createdAt"` // RFC3339
	LastActive       string              `bson:"lastActive" json:"lastActive"`
	EnrolledCourses  []string            `bson:"enrolledCourses" json:"enrolledCourses"`
	CompletedLessons map[string][]string `bson:"completedLessons" json:"completedLessons"`
	Progress         map[string]float64  `bson:"progress" json:"progress"`
	CompletedCourses []string            `bson:"completedCourses" json:"completedCourses"`
}

// Timestamp formats t the way profile timestamps are stored.
func Timestamp(t time.Time) string { return t.UTC().Format(time.RFC3339) }

// NewUserProfile builds the default record for a subject: role user, empty collections.
func NewUserProfile(id, name, email string, now time.Time) *UserProfile {
	ts := Timestamp(now)
	return &UserProfile{
		ID:               id,
		Name:             name,
		Email:            email,
		Role:             RoleUser,
		CreatedAt:        ts,
		LastActive:       ts,
		EnrolledCourses:  []string{},
		CompletedLessons: map[string][]string{},
		Progress:         map[string]float64{},
		CompletedCourses: []string{},
	}
}

// IsEnrolled reports whether the profile lists courseID as enrolled.
func (u *UserProfile) IsEnrolled(courseID string) bool {
	for _, c := range u.EnrolledCourses {
		if c == courseID {
			return true
		}
	}
	return false
}
