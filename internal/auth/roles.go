package auth

// Admin role constants.
const (
	RoleViewer    = "viewer"
	RoleModerator = "moderator"
	RoleAdmin     = "admin"
)

// ScoreWriteRoles may record wins and trigger window resets.
func ScoreWriteRoles() []string {
	return []string{RoleAdmin}
}

// ModerationRoles may tear down chat logs.
func ModerationRoles() []string {
	return []string{RoleModerator, RoleAdmin}
}
