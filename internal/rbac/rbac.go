package rbac

type Role string
type Action string

const (
	RoleViewer    Role = "viewer"
	RoleMember    Role = "member"
	RoleModerator Role = "moderator"
	RoleAdmin     Role = "admin"
)

const (
	ActionRead         Action = "read"
	ActionVote         Action = "vote"
	ActionReply        Action = "reply"
	ActionCreateThread Action = "create_thread"
	ActionModerate     Action = "moderate"
)

func Can(role Role, action Action) bool {
	switch role {
	case RoleAdmin:
		return true
	case RoleModerator:
		return action != ""
	case RoleMember:
		return action == ActionRead || action == ActionVote || action == ActionReply || action == ActionCreateThread
	case RoleViewer:
		return action == ActionRead
	default:
		return false
	}
}

// Normalize maps a stored role to a known one. Empty means the default member role;
// anything unrecognised is demoted to viewer.
func Normalize(role string) Role {
	switch Role(role) {
	case "":
		return RoleMember
	case RoleViewer, RoleMember, RoleModerator, RoleAdmin:
		return Role(role)
	default:
		return RoleViewer
	}
}
