package sessions

import "time"

// Session is the server-side record behind a session cookie. The cookie only carries its ID.
type Session struct {
	ID        string    `bson:"_id"`
	Sub       string    `bson:"sub"`
	Name      string    `bson:"name"`
	Email     string    `bson:"email"`
	IDToken   string    `bson:"idToken"`
	ExpiresAt time.Time `bson:"expiresAt"`
	CreatedAt time.Time `bson:"createdAt"`
}

// Expired reports whether the session is past its expiry at now.
func (s *Session) Expired(now time.Time) bool { return !now.Before(s.ExpiresAt) }
