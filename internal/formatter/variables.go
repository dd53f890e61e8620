package formatter

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/1063537326/video-warning-0127/internal/domain"
)

// Missing is printed for empty optional fields so columns stay aligned.
const Missing = "-"

// VariableContext contains all data needed for template variable resolution.
type VariableContext struct {
	Alert *domain.Notification
	// Outcome and ToastOutcome describe what each collection did, e.g. "merged".
	Outcome      string
	ToastOutcome string
	// LevelStyle decorates the level text; nil leaves it plain.
	LevelStyle func(level domain.AlertLevel, text string) string
}

// VariableResolver resolves template variables to their values.
type VariableResolver interface {
	// Resolve returns the string value for a given variable name and context.
	Resolve(varName string, ctx VariableContext) (string, error)
}

type variableResolver struct{}

// NewVariableResolver creates a new variable resolver instance.
func NewVariableResolver() VariableResolver {
	return &variableResolver{}
}

type getter func(n *domain.Notification, ctx VariableContext) string

var variables = map[string]getter{
	"id": func(n *domain.Notification, _ VariableContext) string {
		return strconv.FormatInt(n.ID, 10)
	},
	"time": func(n *domain.Notification, _ VariableContext) string {
		return n.CreatedAt.Local().Format("15:04:05")
	},
	"date": func(n *domain.Notification, _ VariableContext) string {
		return n.CreatedAt.Local().Format("2006-01-02")
	},
	"timestamp": func(n *domain.Notification, _ VariableContext) string {
		return n.CreatedAt.UTC().Format(time.RFC3339)
	},
	"level": func(n *domain.Notification, ctx VariableContext) string {
		text := strings.ToUpper(orMissing(string(n.AlertLevel)))
		if ctx.LevelStyle != nil {
			return ctx.LevelStyle(n.AlertLevel, text)
		}
		return text
	},
	"level-rank": func(n *domain.Notification, _ VariableContext) string {
		return strconv.Itoa(n.AlertLevel.Rank())
	},
	"type": func(n *domain.Notification, _ VariableContext) string {
		return orMissing(string(n.AlertType))
	},
	"camera-id": func(n *domain.Notification, _ VariableContext) string {
		return strconv.Itoa(n.CameraID)
	},
	"camera": func(n *domain.Notification, _ VariableContext) string {
		return orMissing(n.CameraName)
	},
	"zone": func(n *domain.Notification, _ VariableContext) string {
		return orMissing(n.ZoneName)
	},
	"subject": func(n *domain.Notification, _ VariableContext) string {
		return n.Label()
	},
	"person": func(n *domain.Notification, _ VariableContext) string {
		return orMissing(n.PersonName)
	},
	"person-id": func(n *domain.Notification, _ VariableContext) string {
		if n.PersonID == nil {
			return Missing
		}
		return strconv.Itoa(*n.PersonID)
	},
	"group": func(n *domain.Notification, _ VariableContext) string {
		return orMissing(n.GroupName)
	},
	"confidence": func(n *domain.Notification, _ VariableContext) string {
		if n.Confidence <= 0 {
			return Missing
		}
		return fmt.Sprintf("%.0f%%", n.Confidence*100)
	},
	"track": func(n *domain.Notification, _ VariableContext) string {
		return orMissing(n.TrackID)
	},
	"read": func(n *domain.Notification, _ VariableContext) string {
		return strconv.FormatBool(n.IsRead)
	},
	"synthetic": func(n *domain.Notification, _ VariableContext) string {
		return strconv.FormatBool(n.SyntheticID)
	},
	"thumbnail": func(n *domain.Notification, _ VariableContext) string {
		return orMissing(n.Thumbnail)
	},
	"outcome": func(_ *domain.Notification, ctx VariableContext) string {
		return orMissing(ctx.Outcome)
	},
	"toast": func(_ *domain.Notification, ctx VariableContext) string {
		return orMissing(ctx.ToastOutcome)
	},
}

// Resolve returns the string value for a variable from the context.
func (vr *variableResolver) Resolve(varName string, ctx VariableContext) (string, error) {
	get, ok := variables[varName]
	if !ok {
		return "", fmt.Errorf("unknown variable: %s", varName)
	}
	if ctx.Alert == nil {
		return "", fmt.Errorf("no alert to format")
	}
	return get(ctx.Alert, ctx), nil
}

// IsVariable reports whether name is a known template variable.
func IsVariable(name string) bool {
	_, ok := variables[name]
	return ok
}

// Variables lists the known template variables, sorted.
func Variables() []string {
	names := make([]string, 0, len(variables))
	for name := range variables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func orMissing(s string) string {
	if s == "" {
		return Missing
	}
	return s
}
