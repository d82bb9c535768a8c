package rbac

// Role is the closed access-level enumeration. Levels are stored as small
// integers (1 translator, 2 admin) and normalized on load.
type Role int
type Action string

const (
	RoleTranslator Role = 1
	RoleAdmin      Role = 2
)

const (
	ActionTranslate         Action = "translate"
	ActionRaiseRequest      Action = "raise_request"
	ActionAnswerRequest     Action = "answer_request"
	ActionCreateProject     Action = "create_project"
	ActionDeleteProject     Action = "delete_project"
	ActionEditAnySegment    Action = "edit_any_segment"
	ActionReleaseAnyClaim   Action = "release_any_claim"
	ActionCloseAnyRequest   Action = "close_any_request"
	ActionExportTranslation Action = "export_translation"
)

func Can(role Role, action Action) bool {
	switch role {
	case RoleAdmin:
		return true
	case RoleTranslator:
		return action == ActionTranslate || action == ActionRaiseRequest ||
			action == ActionAnswerRequest || action == ActionCreateProject
	default:
		return false
	}
}

// FromLevel maps a stored access level to a Role. Unknown levels collapse
// to translator.
func FromLevel(level int) Role {
	if level == int(RoleAdmin) {
		return RoleAdmin
	}
	return RoleTranslator
}
