package models

import "time"

type UserType string

const (
	UserTypeStudent        UserType = "student"
	UserTypeTeacher        UserType = "teacher"
	UserTypeClassroomOwner UserType = "classroomOwner"
)

func (t UserType) Valid() bool {
	switch t {
	case UserTypeStudent, UserTypeTeacher, UserTypeClassroomOwner:
		return true
	}
	return false
}

type User struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	Username     string     `json:"username"`
	DisplayName  string     `json:"displayName"`
	UserType     []UserType `json:"userType"`
	PasswordHash string     `json:"passwordHash,omitempty"`
	GoogleID     string     `json:"googleId,omitempty"`
	PictureURL   string     `json:"pictureUrl,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
}

func (u *User) HasType(t UserType) bool {
	for _, v := range u.UserType {
		if v == t {
			return true
		}
	}
	return false
}

// Profile is the part of a user that is safe to send to clients.
type Profile struct {
	ID          string     `json:"id"`
	Email       string     `json:"email"`
	Username    string     `json:"username"`
	DisplayName string     `json:"displayName"`
	UserType    []UserType `json:"userType"`
	PictureURL  string     `json:"pictureUrl,omitempty"`
}

func (u *User) Profile() Profile {
	return Profile{
		ID:          u.ID,
		Email:       u.Email,
		Username:    u.Username,
		DisplayName: u.DisplayName,
		UserType:    u.UserType,
		PictureURL:  u.PictureURL,
	}
}
