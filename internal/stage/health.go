package stage

import "strings"

// Health summarizes whether a stage's collaborators are usable.
type Health struct {
	Name   string `json:"name"`
	Ready  bool   `json:"ready"`
	Detail string `json:"detail,omitempty"`
}

// Healthy constructs a ready Health record.
func Healthy(name string) Health {
	return Health{Name: name, Ready: true}
}

// Unhealthy constructs an unhealthy Health record with context detail.
func Unhealthy(name, detail string) Health {
	return Health{Name: name, Ready: false, Detail: detail}
}

// RequireSettings reports unhealthy when any named setting is blank.
// settings alternates key and value.
func RequireSettings(name string, settings ...string) Health {
	var missing []string
	for i := 0; i+1 < len(settings); i += 2 {
		if strings.TrimSpace(settings[i+1]) == "" {
			missing = append(missing, settings[i])
		}
	}
	if len(missing) > 0 {
		return Unhealthy(name, "missing "+strings.Join(missing, ", "))
	}
	return Healthy(name)
}
