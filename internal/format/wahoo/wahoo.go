// Package wahoo writes Wahoo ELEMNT .plan workout files.
//
// A plan is a line-oriented script: a =HEADER= block with workout metadata,
// then one =INTERVAL= block per segment whose MESG_DURATION_SEC>=N?... lines
// fire once N seconds of the interval have elapsed. The format has no native
// ramps, so ramp targets are approximated with a staircase of such lines.
package wahoo

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/mitchellh/go-wordwrap"

	"github.com/claude/workoutconv/internal/format"
	"github.com/claude/workoutconv/internal/models"
)

const (
	ID   = "wahoo"
	Name = "Wahoo ELEMNT"
	Ext  = "plan"

	descriptionWidth = 80
)

// Format returns the registry entry for .plan files. Plans cannot be read.
func Format() format.Format {
	return format.Format{
		ID:     ID,
		Name:   Name,
		Ext:    Ext,
		Writer: Writer{},
	}
}

var targetPrefixes = map[models.TargetType]string{
	models.FTPRelative: "PERCENT_FTP",
	models.Power:       "PWR",
	models.Cadence:     "CAD",
	models.HeartRate:   "HR",
}

// Writer renders .plan files.
type Writer struct{}

// Write renders wo as a plan.
func (Writer) Write(w io.Writer, wo *models.Workout) error {
	lines, err := Plan(wo)
	if err != nil {
		return err
	}
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(strings.Join(lines, "\n")); err != nil {
		return err
	}
	return bw.Flush()
}

// Plan returns the lines of the plan for wo.
func Plan(wo *models.Workout) ([]string, error) {
	lines := header(wo)
	for i, seg := range wo.Segments {
		block, err := interval(seg)
		if err != nil {
			return nil, fmt.Errorf("segment %d (%s): %w", i+1, seg.Description(), err)
		}
		lines = append(lines, block...)
	}
	return lines, nil
}

func header(wo *models.Workout) []string {
	lines := []string{
		"=HEADER=",
		"NAME=" + wo.FullName(),
		"# Provider: " + wo.Author,
		fmt.Sprintf("DURATION=%d", wo.Duration()),
		"PLAN_TYPE=0",    // structured workout
		"WORKOUT_TYPE=0", // bike
	}
	for _, l := range wrap(wo.Description, descriptionWidth) {
		lines = append(lines, "DESCRIPTION="+l)
	}
	return append(lines, "", "=STREAM=")
}

func wrap(s string, width uint) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var out []string
	for _, l := range strings.Split(wordwrap.WrapString(s, width), "\n") {
		l = strings.TrimSpace(l)
		// WrapString leaves words longer than width intact
		for r := []rune(l); len(r) > 0; {
			n := min(len(r), int(width))
			out = append(out, string(r[:n]))
			r = r[n:]
		}
	}
	return out
}

func interval(seg models.Segment) ([]string, error) {
	sub := len(seg.Entries) > 1

	lines := []string{"=INTERVAL=", "INTERVAL_NAME=" + seg.Description()}
	if sub {
		// leave the parent interval at once and run the subintervals
		lines = append(lines, "MESG_DURATION_SEC>=0?EXIT")
	}
	if seg.Repeat > 1 {
		lines = append(lines, fmt.Sprintf("REPEAT=%d", seg.Repeat-1))
	}

	for _, e := range seg.Entries {
		if sub {
			lines = append(lines, "=SUBINTERVAL=")
		}
		for _, t := range e.Targets.All() {
			tl, err := targetLines(t, e.Duration)
			if err != nil {
				return nil, err
			}
			lines = append(lines, tl...)
		}
		lines = append(lines, fmt.Sprintf("MESG_DURATION_SEC>=%d?EXIT", e.Duration), "")
	}
	return lines, nil
}

func targetLines(t models.Target, duration int) ([]string, error) {
	prefix := targetPrefixes[t.Type()]

	var lines []string
	if lo, ok := first(t.Low, t.Value, t.Start); ok {
		lines = append(lines, fmt.Sprintf("%s_LO=%d", prefix, lo))
	}
	if hi, ok := first(t.High, t.Value, t.Start); ok {
		lines = append(lines, fmt.Sprintf("%s_HI=%d", prefix, hi))
	}

	if !t.IsRamp() {
		return lines, nil
	}
	if duration == 0 {
		// nothing to ramp over; the _LO/_HI start values stand
		return lines, nil
	}
	points, err := models.Breakpoints(t, duration)
	if err != nil {
		return nil, err
	}
	for _, p := range points {
		lines = append(lines,
			fmt.Sprintf("MESG_DURATION_SEC>=%d?%s_LO=%d", p.Elapsed, prefix, p.Value),
			fmt.Sprintf("MESG_DURATION_SEC>=%d?%s_HI=%d", p.Elapsed, prefix, p.Value),
		)
	}
	return lines, nil
}

func first(getters ...func() (int, bool)) (int, bool) {
	for _, g := range getters {
		if v, ok := g(); ok {
			return v, true
		}
	}
	return 0, false
}
