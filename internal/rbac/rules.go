package rbac

// Simple default policy. Expand as needed.
var RolePermissions = map[string][]string{
	"candidate": {
		"exam:view",
		"session:start",
		"session:submit",
		"answer:save",
		"scoreboard:view-own",
	},
	"reviewer": {
		"review:apply",
		"review:suggest",
		"scoreboard:view-all",
		"exam:view",
	},
	"admin": {
		"*", // everything
	},
}
