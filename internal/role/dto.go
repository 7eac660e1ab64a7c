package role

type RoleResponse struct {
	Name        string   `json:"name"`
	Permissions []string `json:"permissions"`
	IsDefault   bool     `json:"is_default"`
}

type RolesResponse struct {
	Roles []RoleResponse `json:"roles"`
}
