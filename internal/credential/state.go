package credential

// State is where the credential check ended up.
type State int

const (
	NotChecked State = iota
	// Skipped means the metric declared need_proxy=false.
	Skipped
	// ServiceCredential means the service proxy was valid as-is.
	ServiceCredential
	// UserProxy means the operator-provided proxy file was valid.
	UserProxy
	NoCredential
	// Renewed means the service proxy was regenerated from the service cert.
	Renewed
	ExpiredFatal
)

var stateNames = map[State]string{
	NotChecked:        "not-checked",
	Skipped:           "skipped",
	ServiceCredential: "service-credential",
	UserProxy:         "user-proxy",
	NoCredential:      "no-credential",
	Renewed:           "renewed",
	ExpiredFatal:      "expired",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// Usable reports whether a job may be dispatched after reaching s.
func (s State) Usable() bool {
	switch s {
	case Skipped, ServiceCredential, UserProxy, Renewed:
		return true
	}
	return false
}
