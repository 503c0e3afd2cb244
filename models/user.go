package models

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// UserSummary is the subset of a user exposed alongside orders
type UserSummary struct {
	ID   string `json:"_id" bson:"_id" gorm:"column:id"`
	Name string `json:"name" bson:"name" gorm:"column:name"`
}

// Identity is the authenticated caller
type Identity struct {
	UserID string
	Role   string
}

func (i Identity) IsAdmin() bool { return i.Role == RoleAdmin }

// CanAccess reports whether the caller may read a resource owned by ownerID
func (i Identity) CanAccess(ownerID string) bool {
	return i.IsAdmin() || i.UserID == ownerID
}
