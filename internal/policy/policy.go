package policy

import (
	"fmt"
	"strings"

	clierr "github.com/ggonzalez94/swap-bridge-relayer/internal/errors"
)

// CheckCommandAllowed enforces the enable_commands allowlist. An entry allows
// the command path it names and everything below it, so "run" allows both
// "run dry-run" and "run send" while "run dry-run" allows only estimation.
// An empty allowlist allows everything.
func CheckCommandAllowed(allowlist []string, commandPath string) error {
	if len(allowlist) == 0 {
		return nil
	}
	path := fields(commandPath)
	for _, allowed := range allowlist {
		if hasPrefix(path, fields(allowed)) {
			return nil
		}
	}
	return clierr.New(clierr.CodeBlocked, fmt.Sprintf("command %q blocked by enable_commands policy", strings.Join(path, " ")))
}

func hasPrefix(path, prefix []string) bool {
	if len(prefix) == 0 || len(prefix) > len(path) {
		return false
	}
	for i := range prefix {
		if path[i] != prefix[i] {
			return false
		}
	}
	return true
}

func fields(v string) []string {
	return strings.Fields(strings.ToLower(strings.TrimSpace(v)))
}
