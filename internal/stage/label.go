package stage

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var titleCaser = cases.Title(language.Und)

// Label turns a stage key such as "scene_director" into "Scene Director".
func Label(name string) string {
	name = strings.TrimSpace(strings.NewReplacer("_", " ", "-", " ").Replace(name))
	if name == "" {
		return "Unknown"
	}
	return titleCaser.String(strings.Join(strings.Fields(name), " "))
}
