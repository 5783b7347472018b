// Package exitcode provides standardized exit codes for chatporter
package exitcode

// Exit codes for the chatporter CLI
const (
	Success           = 0
	GeneralError      = 1
	ConfigError       = 2
	ValidationError   = 3
	FileSystemError   = 4
	PermissionError   = 5
	UnsupportedFormat = 6
	Cancelled         = 7
	CollisionsFound   = 10
)

// String returns a human-readable description of the exit code
func String(code int) string {
	switch code {
	case Success:
		return "Success"
	case GeneralError:
		return "General error"
	case ConfigError:
		return "Configuration error"
	case ValidationError:
		return "Validation error"
	case FileSystemError:
		return "File system error"
	case PermissionError:
		return "Permission error"
	case UnsupportedFormat:
		return "Unsupported chat format"
	case Cancelled:
		return "Cancelled"
	case CollisionsFound:
		return "Collisions found"
	default:
		return "Unknown error"
	}
}
