// internal/model/user.go
package model

// User is owned by the identity layer; the messaging core only reads it.
type User struct {
	ID            int64  `db:"id" json:"id"`
	Email         string `db:"email" json:"email"`
	Firstname     string `db:"firstname" json:"firstname"`
	Surname       string `db:"surname" json:"surname"`
	InstitutionID int64  `db:"institution_id" json:"institution_id"`
}

// UserSummary is the nested user shape exposed by the API.
type UserSummary struct {
	ID        int64  `json:"id"`
	Email     string `json:"email"`
	Firstname string `json:"firstname"`
	Surname   string `json:"surname"`
}

func (u User) Summary() UserSummary {
	return UserSummary{
		ID:        u.ID,
		Email:     u.Email,
		Firstname: u.Firstname,
		Surname:   u.Surname,
	}
}
