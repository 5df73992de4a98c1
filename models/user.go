package models

import "time"

const (
	UserTable = "lib_users"
	RoleTable = "lib_roles"
)

// Seeded role names. Capabilities, not names, drive the lending rules.
const (
	RoleAdmin     = "Admin"
	RoleLibrarian = "Librarian"
	RoleMember    = "Member"
)

// Role is a named capability set. The lending engine only ever asks
// "can this role borrow", never "is this the Member role".
type Role struct {
	ID        string `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string `gorm:"size:50;uniqueIndex;not null" json:"name"`
	CanBorrow bool   `gorm:"not null;default:false" json:"canBorrow"`
	CanManage bool   `gorm:"not null;default:false" json:"canManage"`
	IsAdmin   bool   `gorm:"not null;default:false" json:"isAdmin"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type User struct {
	ID           string `gorm:"type:uuid;primaryKey" json:"id"`
	Name         string `gorm:"size:255;not null" json:"name"`
	Email        string `gorm:"size:255;uniqueIndex;not null" json:"email"`
	PasswordHash string `gorm:"size:100;not null" json:"-"`

	RoleID string `gorm:"type:uuid;index;not null" json:"roleId"`
	Role   Role   `json:"role"`

	LastLoginAt *time.Time `gorm:"index" json:"lastLoginAt,omitempty"`
	LastSeenAt  *time.Time `gorm:"index" json:"lastSeenAt,omitempty"`
	LoginCount  int64      `gorm:"not null;default:0" json:"loginCount"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (User) TableName() string { return UserTable }
func (Role) TableName() string { return RoleTable }
