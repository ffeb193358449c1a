package rbac

// Permission names.
const (
	PermProgressView  = "progress:view"
	PermProgressWrite = "progress:write"
	PermAttemptOwn    = "attempt:view-own"
	PermQuizAnalytics = "quiz:analytics"
	PermChangePass    = "user:change_password"
	PermUsersBulk     = "users:bulk_upsert"
)

// RolePermissions is the default policy.
var RolePermissions = map[string][]string{
	"student": {
		"progress:*",
		"attempt:*",
		"user:change_password",
	},
	"teacher": {
		"progress:view",
		"attempt:*",
		"quiz:analytics",
		"user:change_password",
		"users:bulk_upsert",
	},
	"admin": {
		"*", // everything
	},
}
