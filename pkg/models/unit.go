package models

// Unit is a node of the organizational hierarchy. SuperiorID is nil only for
// the root of the tree.
type Unit struct {
	ID         int64  `json:"id"`
	Code       int64  `json:"code"  validate:"required"`
	Sigla      string `json:"sigla" validate:"required"`
	Name       string `json:"name"  validate:"required"`
	Email      string `json:"email"`
	TitularID  string `json:"titular_id"` // user title of the unit head
	SuperiorID *int64 `json:"superior_id,omitempty"`
}

// IsHead reports whether the caller is the registered head of the unit.
func (u *Unit) IsHead(caller Caller) bool {
	return u.TitularID != "" && u.TitularID == caller.Title
}
