package ai

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"focusflow/internal/domain"
)

// DefaultStepMinutes is used when a step carries no usable estimate.
const DefaultStepMinutes = 10

type Outcome string

const (
	Structured Outcome = "structured"
	Fallback   Outcome = "fallback"
	Failed     Outcome = "failed"
)

// Result is the discriminated outcome of parsing a model reply.
type Result struct {
	Outcome Outcome
	Steps   []domain.Step
	Err     error
}

func (r Result) OK() bool { return r.Outcome != Failed && len(r.Steps) > 0 }

var (
	fencePattern   = regexp.MustCompile("```json?\\s*([\\s\\S]*?)\\s*```")
	ordinalPattern = regexp.MustCompile(`^\d+\.`)
	ordinalPrefix  = regexp.MustCompile(`^\d+\.\s*`)
	minutesPattern = regexp.MustCompile(`\((\d+)분\)`)
	errNoSteps     = errors.New("no steps found")
)

// fencedOrWhole returns the first fenced block's body, or the whole text.
func fencedOrWhole(text string) string {
	if m := fencePattern.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(text)
}

type rawStep struct {
	Text             string          `json:"text"`
	Description      string          `json:"description"`
	Step             string          `json:"step"`
	EstimatedMinutes json.RawMessage `json:"estimatedMinutes"`
	Time             json.RawMessage `json:"time"`
}

func (r rawStep) text() string {
	for _, v := range []string{r.Text, r.Description, r.Step} {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func (r rawStep) minutes() int {
	for _, raw := range []json.RawMessage{r.EstimatedMinutes, r.Time} {
		if n := positiveInt(raw); n > 0 {
			return n
		}
	}
	return DefaultStepMinutes
}

// positiveInt accepts a JSON number or numeric string; anything else is 0.
func positiveInt(raw json.RawMessage) int {
	if len(raw) == 0 {
		return 0
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		if f > 0 {
			return int(f)
		}
		return 0
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if n, err := strconv.Atoi(strings.TrimSpace(s)); err == nil && n > 0 {
			return n
		}
	}
	return 0
}

// ParseStructured decodes a fenced (or bare) JSON list of step objects.
func ParseStructured(text string) ([]domain.Step, error) {
	var raws []rawStep
	if err := json.Unmarshal([]byte(fencedOrWhole(text)), &raws); err != nil {
		return nil, fmt.Errorf("decode steps: %w", err)
	}
	if len(raws) == 0 {
		return nil, errNoSteps
	}
	steps := make([]domain.Step, 0, len(raws))
	for i, r := range raws {
		t := r.text()
		if t == "" {
			return nil, fmt.Errorf("step %d has no text", i)
		}
		steps = append(steps, domain.Step{ID: domain.StepID(i), Text: t, EstimatedMinutes: r.minutes()})
	}
	return steps, nil
}

// ParseNumbered scans for "1." style lines, with an optional "(N분)"
// estimate stripped from the text.
func ParseNumbered(text string) ([]domain.Step, error) {
	var steps []domain.Step
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if !ordinalPattern.MatchString(line) {
			continue
		}
		body := strings.TrimSpace(ordinalPrefix.ReplaceAllString(line, ""))
		minutes := DefaultStepMinutes
		if m := minutesPattern.FindStringSubmatch(body); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil && n > 0 {
				minutes = n
			}
			loc := minutesPattern.FindStringIndex(body)
			body = strings.TrimSpace(body[:loc[0]] + body[loc[1]:])
		}
		if body == "" {
			continue
		}
		steps = append(steps, domain.Step{ID: domain.StepID(len(steps)), Text: body, EstimatedMinutes: minutes})
	}
	if len(steps) == 0 {
		return nil, errNoSteps
	}
	return steps, nil
}

// ParseSteps tries the structured parser, then the numbered-line fallback.
func ParseSteps(text string) Result {
	steps, err := ParseStructured(text)
	if err == nil {
		return Result{Outcome: Structured, Steps: steps}
	}
	fallback, ferr := ParseNumbered(text)
	if ferr == nil {
		return Result{Outcome: Fallback, Steps: fallback}
	}
	return Result{Outcome: Failed, Err: fmt.Errorf("structured: %v; numbered: %w", err, ferr)}
}
