package tryfi

import "strings"

// User identifies the account that owns the household.
type User struct {
	id          string
	email       string
	firstName   string
	lastName    string
	phoneNumber string
}

func newUserFromPayload(p *currentUserPayload) *User {
	return &User{
		id:          p.ID,
		email:       p.Email,
		firstName:   p.FirstName,
		lastName:    p.LastName,
		phoneNumber: p.PhoneNumber,
	}
}

func (u *User) ID() string          { return u.id }
func (u *User) Email() string       { return u.email }
func (u *User) FirstName() string   { return u.firstName }
func (u *User) LastName() string    { return u.lastName }
func (u *User) PhoneNumber() string { return u.phoneNumber }

// FullName joins first and last name, tolerating either being empty.
func (u *User) FullName() string {
	return strings.TrimSpace(u.firstName + " " + u.lastName)
}
