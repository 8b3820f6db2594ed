package zwift

import (
	"encoding/xml"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/claude/workoutconv/internal/models"
)

// Writer renders .zwo documents. Zwift only knows FTP-relative power and
// cadence, so heart rate and absolute power targets are dropped.
type Writer struct{}

// Write encodes wo as an indented .zwo document.
func (Writer) Write(w io.Writer, wo *models.Workout) error {
	doc := document{
		Author:      wo.Author,
		Name:        wo.Name,
		Description: wo.Description,
		Category:    wo.Category,
		Subcategory: wo.Subcategory,
		SportType:   "bike",
		Workout:     &workoutElement{},
	}
	for _, seg := range wo.Segments {
		doc.Workout.Steps = append(doc.Workout.Steps, segmentSteps(seg)...)
	}

	enc := xml.NewEncoder(w)
	enc.Indent("", "    ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encoding xml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}

// segmentSteps maps one segment to one or more workout elements. A plain
// on/off interval becomes IntervalsT; anything else is unrolled entry by entry.
func segmentSteps(seg models.Segment) []step {
	if seg.Type == models.Interval && len(seg.Entries) == 2 && !seg.Entries[0].IsRamp() && !seg.Entries[1].IsRamp() {
		return []step{intervalsStep(seg)}
	}

	var steps []step
	for range seg.Repeat {
		for _, e := range seg.Entries {
			steps = append(steps, entryStep(seg.Type, e))
		}
	}
	return steps
}

func intervalsStep(seg models.Segment) step {
	on, off := seg.Entries[0], seg.Entries[1]
	s := newStep(tagIntervalsT)
	s.set("Repeat", strconv.Itoa(seg.Repeat))
	s.set("OnDuration", strconv.Itoa(on.Duration))
	s.set("OffDuration", strconv.Itoa(off.Duration))

	if t, ok := on.Targets.Get(models.FTPRelative); ok {
		s.setPower("OnPower", t.Value)
		s.setPower("PowerOnLow", t.Low)
		s.setPower("PowerOnHigh", t.High)
	}
	if t, ok := off.Targets.Get(models.FTPRelative); ok {
		s.setPower("OffPower", t.Value)
		s.setPower("PowerOffLow", t.Low)
		s.setPower("PowerOffHigh", t.High)
	}
	if t, ok := on.Targets.Get(models.Cadence); ok {
		s.setInt("Cadence", t.Value)
		s.setInt("CadenceLow", t.Low)
		s.setInt("CadenceHigh", t.High)
	}
	if t, ok := off.Targets.Get(models.Cadence); ok {
		s.setInt("CadenceResting", t.Value)
	}
	return s
}

func entryStep(typ models.SegmentType, e models.SegmentEntry) step {
	ftp, hasFTP := e.Targets.Get(models.FTPRelative)
	tag := entryTag(typ, hasFTP && ftp.IsRamp())

	s := newStep(tag)
	s.set("Duration", strconv.Itoa(e.Duration))
	if hasFTP {
		s.setPower("Power", ftp.Value)
		switch tag {
		case tagWarmup, tagCooldown, tagRamp:
			s.setPower("PowerLow", firstSet(ftp.Start, ftp.Low))
			s.setPower("PowerHigh", firstSet(ftp.End, ftp.High))
		default:
			s.setPower("PowerLow", ftp.Low)
			s.setPower("PowerHigh", ftp.High)
		}
	}
	if cad, ok := e.Targets.Get(models.Cadence); ok {
		s.setInt("Cadence", cad.Value)
		s.setInt("CadenceLow", cad.Low)
		s.setInt("CadenceHigh", cad.High)
	}
	return s
}

// entryTag picks the element for an entry. Ramps inside flat segment types
// are written as <Ramp> so they read back as ramps.
func entryTag(typ models.SegmentType, ramp bool) string {
	switch typ {
	case models.Warmup:
		return tagWarmup
	case models.Cooldown:
		return tagCooldown
	case models.Ramp:
		return tagRamp
	}
	if ramp {
		return tagRamp
	}
	if typ == models.FreeRide {
		return tagFreeRide
	}
	return tagSteadyState
}

func firstSet(getters ...func() (int, bool)) func() (int, bool) {
	return func() (int, bool) {
		for _, g := range getters {
			if v, ok := g(); ok {
				return v, true
			}
		}
		return 0, false
	}
}

func newStep(tag string) step {
	return step{XMLName: xml.Name{Local: tag}}
}

func (s *step) set(name, value string) {
	s.Attrs = append(s.Attrs, xml.Attr{Name: xml.Name{Local: name}, Value: value})
}

func (s *step) setInt(name string, get func() (int, bool)) {
	if v, ok := get(); ok {
		s.set(name, strconv.Itoa(v))
	}
}

func (s *step) setPower(name string, get func() (int, bool)) {
	if v, ok := get(); ok {
		s.set(name, ftpFraction(v))
	}
}

// ftpFraction renders integer FTP percentage points as the shortest decimal
// fraction that reads back to the same integer. Plain division is not always
// enough: 0.29 reads back as 28 because 100*0.29 < 29 in binary floating point.
func ftpFraction(pct int) string {
	f := float64(pct) / 100
	away := math.Copysign(math.Inf(1), f)
	for range 4 {
		if v, _ := models.NewTarget(models.FTPRelative, models.Bounds{Value: models.Float(f)}).Value(); v == pct {
			break
		}
		f = math.Nextafter(f, away)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
