package models

import "time"

// UserRole represents the available roles for the access policy.
type UserRole string

const (
	RoleAdmin   UserRole = "admin"
	RoleTeacher UserRole = "teacher"
	RoleStudent UserRole = "student"
)

// Valid reports whether r is a known role.
func (r UserRole) Valid() bool {
	switch r {
	case RoleAdmin, RoleTeacher, RoleStudent:
		return true
	}
	return false
}

// User represents a login account stored in the users table. A user links to
// at most one student or teacher record.
type User struct {
	ID           string    `db:"id" json:"id"`
	Username     string    `db:"username" json:"username"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Role         UserRole  `db:"role" json:"role"`
	StudentID    *string   `db:"student_id" json:"student_id,omitempty"`
	TeacherID    *string   `db:"teacher_id" json:"teacher_id,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// Identity is the caller identity passed explicitly into every service operation.
type Identity struct {
	UserID    string   `json:"user_id"`
	Username  string   `json:"username"`
	Role      UserRole `json:"role"`
	StudentID string   `json:"student_id,omitempty"`
	TeacherID string   `json:"teacher_id,omitempty"`
}

// IdentityOf builds the identity of a persisted user.
func IdentityOf(u *User) *Identity {
	if u == nil {
		return nil
	}
	id := &Identity{UserID: u.ID, Username: u.Username, Role: u.Role}
	if u.StudentID != nil {
		id.StudentID = *u.StudentID
	}
	if u.TeacherID != nil {
		id.TeacherID = *u.TeacherID
	}
	return id
}
