package permission

// GrantRequest represents the request body for granting a permission
type GrantRequest struct {
	GroupID    int64    `json:"group_id"`
	Resource   Resource `json:"resource" enums:"resident,protocol,group"`
	Permission Kind     `json:"permission" enums:"read,write,delete"`
}
