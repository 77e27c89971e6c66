// Package agent defines agent roles and their capability fallbacks.
package agent

// Role is a named capability category that can produce task output.
type Role string

const (
	RoleScout      Role = "scout"
	RoleAnalyst    Role = "analyst"
	RoleHunter     Role = "hunter"
	RoleStrategist Role = "strategist"
	RoleScribe     Role = "scribe"
	RoleOperator   Role = "operator"
	RoleVerifier   Role = "verifier"
	RoleExecutor   Role = "executor"
)

// Fallbacks returns the ordered list of roles capable of taking over work
// from the given role. Write-side roles (operator, verifier, executor) have
// no safe delegate and return nil. Unknown roles also return nil.
func Fallbacks(r Role) []Role {
	switch r {
	case RoleScout:
		return []Role{RoleAnalyst, RoleHunter}
	case RoleAnalyst:
		return []Role{RoleScout}
	case RoleHunter:
		return []Role{RoleScout, RoleAnalyst}
	case RoleStrategist:
		return []Role{RoleAnalyst}
	case RoleScribe:
		return []Role{RoleStrategist}
	case RoleOperator, RoleVerifier, RoleExecutor:
		return nil
	}
	return nil
}
