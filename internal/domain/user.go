package domain

import "time"

// User is an identity record. PasswordHash must never leave the service.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	Favorites    []string
	CreatedAt    time.Time
}

// HasFavorite reports whether courseID is in the user's favorites.
func (u *User) HasFavorite(courseID string) bool {
	for _, id := range u.Favorites {
		if id == courseID {
			return true
		}
	}
	return false
}

// AddFavorite adds courseID once; it reports whether the set changed.
func (u *User) AddFavorite(courseID string) bool {
	if u.HasFavorite(courseID) {
		return false
	}
	u.Favorites = append(u.Favorites, courseID)
	return true
}

// RemoveFavorite drops every occurrence of courseID; it reports whether the
// set changed.
func (u *User) RemoveFavorite(courseID string) bool {
	kept := u.Favorites[:0]
	for _, id := range u.Favorites {
		if id != courseID {
			kept = append(kept, id)
		}
	}
	changed := len(kept) != len(u.Favorites)
	u.Favorites = kept
	return changed
}
