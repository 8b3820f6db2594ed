// Package zwift reads and writes Zwift .zwo workout files.
package zwift

import (
	"encoding/xml"

	"github.com/claude/workoutconv/internal/format"
)

const (
	ID   = "zwift"
	Name = "Zwift"
	Ext  = "zwo"
)

// Format returns the registry entry for .zwo files.
func Format() format.Format {
	return format.Format{
		ID:     ID,
		Name:   Name,
		Ext:    Ext,
		Reader: Reader{},
		Writer: Writer{},
	}
}

// document mirrors the <workout_file> root element.
type document struct {
	XMLName     xml.Name        `xml:"workout_file"`
	Author      string          `xml:"author"`
	Name        string          `xml:"name"`
	Description string          `xml:"description"`
	Category    string          `xml:"category,omitempty"`
	Subcategory string          `xml:"subcategory,omitempty"`
	SportType   string          `xml:"sportType,omitempty"`
	Workout     *workoutElement `xml:"workout"`
}

type workoutElement struct {
	Steps []step `xml:",any"`
}

// step is any child of <workout>. Attributes are kept raw because their set
// depends on the element name.
type step struct {
	XMLName xml.Name
	Attrs   []xml.Attr `xml:",any,attr"`
}

// Element names as written by Zwift. Reading matches them case-insensitively.
const (
	tagWarmup      = "Warmup"
	tagCooldown    = "Cooldown"
	tagRamp        = "Ramp"
	tagSteadyState = "SteadyState"
	tagFreeRide    = "FreeRide"
	tagIntervalsT  = "IntervalsT"
)
