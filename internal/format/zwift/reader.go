package zwift

import (
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/claude/workoutconv/internal/models"
)

// Reader parses .zwo documents.
type Reader struct{}

// Read decodes a .zwo document into a Workout.
func (Reader) Read(r io.Reader) (*models.Workout, error) {
	var doc document
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decoding xml: %w", err)
	}
	if doc.Workout == nil {
		return nil, fmt.Errorf("missing <workout> element")
	}

	segments := make([]models.Segment, 0, len(doc.Workout.Steps))
	for i, s := range doc.Workout.Steps {
		seg, err := parseStep(s)
		if err != nil {
			return nil, fmt.Errorf("workout step %d <%s>: %w", i+1, s.XMLName.Local, err)
		}
		segments = append(segments, seg)
	}

	return models.NewWorkout(models.Metadata{
		Name:        doc.Name,
		Description: doc.Description,
		Author:      doc.Author,
		Category:    doc.Category,
		Subcategory: doc.Subcategory,
	}, segments), nil
}

func parseStep(s step) (models.Segment, error) {
	a := newAttrs(s.Attrs)

	tag := strings.ToLower(s.XMLName.Local)
	if tag == strings.ToLower(tagIntervalsT) {
		return parseIntervals(a)
	}

	typ, ok := segmentTypes[tag]
	if !ok {
		return models.Segment{}, fmt.Errorf("unsupported segment element")
	}

	var ftp models.Target
	switch typ {
	case models.Ramp, models.Warmup, models.Cooldown:
		ftp = models.NewTarget(models.FTPRelative, models.Bounds{
			Value: a.power("Power"),
			Start: a.power("PowerLow"),
			End:   a.power("PowerHigh"),
		})
	default:
		ftp = models.NewTarget(models.FTPRelative, models.Bounds{
			Value: a.power("Power"),
			Low:   a.power("PowerLow"),
			High:  a.power("PowerHigh"),
		})
	}
	cad := models.NewTarget(models.Cadence, models.Bounds{
		Value: a.integer("Cadence"),
		Low:   a.integer("CadenceLow"),
		High:  a.integer("CadenceHigh"),
	})
	entry := models.SegmentEntry{
		Duration: a.duration("Duration"),
		Targets:  models.NewTargetSet(ftp, cad),
	}
	if a.err != nil {
		return models.Segment{}, a.err
	}
	return models.NewSegment(typ, []models.SegmentEntry{entry})
}

func parseIntervals(a *attrs) (models.Segment, error) {
	on := models.SegmentEntry{
		Duration: a.duration("OnDuration"),
		Targets: models.NewTargetSet(
			models.NewTarget(models.FTPRelative, models.Bounds{
				Value: a.power("OnPower"),
				Low:   a.power("PowerOnLow"),
				High:  a.power("PowerOnHigh"),
			}),
			models.NewTarget(models.Cadence, models.Bounds{
				Value: a.integer("Cadence"),
				Low:   a.integer("CadenceLow"),
				High:  a.integer("CadenceHigh"),
			}),
		),
	}
	off := models.SegmentEntry{
		Duration: a.duration("OffDuration"),
		Targets: models.NewTargetSet(
			models.NewTarget(models.FTPRelative, models.Bounds{
				Value: a.power("OffPower"),
				Low:   a.power("PowerOffLow"),
				High:  a.power("PowerOffHigh"),
			}),
			models.NewTarget(models.Cadence, models.Bounds{
				Value: a.integer("CadenceResting"),
			}),
		),
	}
	repeat := 1
	if n, ok := a.number("Repeat"); ok {
		repeat = int(n)
	}
	if a.err != nil {
		return models.Segment{}, a.err
	}
	return models.NewSegment(models.Interval, []models.SegmentEntry{on, off}, models.WithRepeat(repeat))
}

var segmentTypes = map[string]models.SegmentType{
	strings.ToLower(tagWarmup):      models.Warmup,
	strings.ToLower(tagCooldown):    models.Cooldown,
	strings.ToLower(tagRamp):        models.Ramp,
	strings.ToLower(tagSteadyState): models.Steady,
	strings.ToLower(tagFreeRide):    models.FreeRide,
}

// attrs looks up element attributes. The first conversion error sticks and
// later lookups return absent values.
type attrs struct {
	values map[string]string
	err    error
}

func newAttrs(list []xml.Attr) *attrs {
	a := &attrs{values: make(map[string]string, len(list))}
	for _, at := range list {
		a.values[at.Name.Local] = strings.TrimSpace(at.Value)
	}
	return a
}

func (a *attrs) number(name string) (float64, bool) {
	if a.err != nil {
		return 0, false
	}
	raw, ok := a.values[name]
	if !ok {
		return 0, false
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		a.err = fmt.Errorf("attribute %s=%q: not a number", name, raw)
		return 0, false
	}
	return f, true
}

// power reads an FTP fraction such as "0.85".
func (a *attrs) power(name string) models.Num {
	f, ok := a.number(name)
	if !ok {
		return models.Num{}
	}
	return models.Float(f)
}

// integer reads a whole-number attribute, truncating any fraction.
func (a *attrs) integer(name string) models.Num {
	f, ok := a.number(name)
	if !ok {
		return models.Num{}
	}
	return models.Int(int(f))
}

func (a *attrs) asInt(name string) int {
	f, _ := a.number(name)
	return int(f)
}

// duration reads a required length in seconds.
func (a *attrs) duration(name string) int {
	if a.err != nil {
		return 0
	}
	if _, ok := a.values[name]; !ok {
		a.err = fmt.Errorf("missing %s attribute", name)
		return 0
	}
	return a.asInt(name)
}
