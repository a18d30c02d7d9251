package frame

// Target classifies a goto target.
type Target int

const (
	TargetNone Target = iota
	TargetURL
	TargetPrev
	TargetNext
	TargetRefresh
)

// ParseTarget classifies a goto payload. Anything that is not a non-empty
// string is TargetNone.
func ParseTarget(v any) (Target, string) {
	s, ok := v.(string)
	if !ok || s == "" {
		return TargetNone, ""
	}
	switch s {
	case "prev":
		return TargetPrev, s
	case "next":
		return TargetNext, s
	case "refresh":
		return TargetRefresh, s
	}
	return TargetURL, s
}

func (t Target) String() string {
	switch t {
	case TargetURL:
		return "url"
	case TargetPrev:
		return "prev"
	case TargetNext:
		return "next"
	case TargetRefresh:
		return "refresh"
	}
	return "none"
}

// MenuCommand enumerates the menu commands the controller handles.
type MenuCommand int

const (
	MenuUnknown MenuCommand = iota
	MenuToggleDevTools
	MenuClearCookies
)

var menuNames = map[string]MenuCommand{
	"toggle-main-frame-devtools": MenuToggleDevTools,
	"clear-cookies":              MenuClearCookies,
}

// ParseMenu maps a menu payload to its command.
func ParseMenu(v any) MenuCommand {
	s, _ := v.(string)
	return menuNames[s]
}

func (m MenuCommand) String() string {
	for name, c := range menuNames {
		if c == m {
			return name
		}
	}
	return "unknown"
}
