package exec

import (
	"fmt"
	"regexp"
)

// commandNotFoundPatterns are regex patterns to detect "command not found" errors
// from various shells. These require exit code 127.
var commandNotFoundPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)bash: (\S+): command not found`),
	regexp.MustCompile(`(?i)zsh: command not found: (\S+)`),
	regexp.MustCompile(`(?i)sh: \d+: (\S+): not found`),
	regexp.MustCompile(`(?i)-bash: (\S+): No such file or directory`),
	regexp.MustCompile(`(?i)(\S+): not found`),
	regexp.MustCompile(`(?i)(\S+): command not found`),
}

// IsCommandNotFound checks if the error output indicates a missing command.
// Returns the command name (if extractable) and whether it's a command-not-found error.
func IsCommandNotFound(output string, exitCode int) (string, bool) {
	// Exit code 127 is the standard for command not found
	if exitCode != 127 {
		return "", false
	}

	for _, pattern := range commandNotFoundPatterns {
		if matches := pattern.FindStringSubmatch(output); len(matches) > 1 {
			return matches[1], true
		}
	}

	return "", true
}

// FailureHint returns an operator-facing hint for a failed job, or "" when
// the failure has no recognizable cause.
func FailureHint(spec JobSpec, output string, exitCode int) string {
	cmdName, notFound := IsCommandNotFound(output, exitCode)
	if !notFound {
		return ""
	}
	if cmdName == "" {
		switch {
		case spec.UsesSSH():
			cmdName = spec.Executable
		case spec.Mode == ModeRemote:
			cmdName = spec.SubmitTool
		default:
			cmdName = spec.Executable
		}
	}
	if spec.Mode == ModeRemote && !spec.UsesSSH() {
		return fmt.Sprintf("'%s' was not found. Check that the Globus client tools are installed under the VDT location.", cmdName)
	}
	return fmt.Sprintf("'%s' was not found. Check that the metric is installed and executable.", cmdName)
}
