package progress

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Domain identifies the curriculum family a roadmap belongs to.
type Domain string

// Supported roadmap domains.
const (
	DomainProgramming Domain = "programming"
	DomainMath        Domain = "math"
	DomainGeneral     Domain = "general"
)

// ParseDomain normalises and validates a domain string.
func ParseDomain(value string) (Domain, error) {
	switch Domain(strings.ToLower(strings.TrimSpace(value))) {
	case DomainProgramming:
		return DomainProgramming, nil
	case DomainMath:
		return DomainMath, nil
	case DomainGeneral:
		return DomainGeneral, nil
	default:
		return "", fmt.Errorf("%w: unknown domain %q", ErrPlanInvalid, value)
	}
}

// MilestoneType distinguishes lesson and quiz milestones.
type MilestoneType string

// Milestone types.
const (
	MilestoneLesson MilestoneType = "lesson"
	MilestoneQuiz   MilestoneType = "quiz"
)

// Plan is the immutable phase/milestone tree produced by the generator.
// Only milestone progress rows change after generation; the tree itself never does.
type Plan struct {
	Domain Domain  `json:"domain"`
	Phases []Phase `json:"phases"`
}

// Phase is an ordered group of milestones.
type Phase struct {
	ID         string      `json:"id"`
	Order      int         `json:"order"`
	Title      string      `json:"title"`
	Milestones []Milestone `json:"milestones"`
}

// Milestone is an atomic learning unit inside a phase.
type Milestone struct {
	ID            string        `json:"id"`
	Order         int           `json:"order"`
	Type          MilestoneType `json:"type"`
	Title         string        `json:"title"`
	Description   string        `json:"description,omitempty"`
	EstimatedTime int           `json:"estimated_time,omitempty"`
	Topics        *Topics       `json:"topics,omitempty"`
	QuizID        string        `json:"quiz_id,omitempty"`
	Difficulty    string        `json:"difficulty,omitempty"`
}

// ProgrammingTopics describes the milestone focus for programming roadmaps.
type ProgrammingTopics struct {
	Languages []string `json:"languages,omitempty"`
	Concepts  []string `json:"concepts,omitempty"`
	Projects  []string `json:"projects,omitempty"`
}

// MathTopics describes the milestone focus for math roadmaps.
type MathTopics struct {
	Fields    []string `json:"fields,omitempty"`
	Theorems  []string `json:"theorems,omitempty"`
	Exercises []string `json:"exercises,omitempty"`
}

// GeneralTopics describes the milestone focus for general roadmaps.
type GeneralTopics struct {
	Subjects  []string `json:"subjects,omitempty"`
	Resources []string `json:"resources,omitempty"`
}

// Topics is a tagged per-domain record. Exactly one branch is populated,
// selected by Domain; an open key-value map is deliberately avoided so the
// engine stays deterministic.
type Topics struct {
	Domain      Domain
	Programming *ProgrammingTopics
	Math        *MathTopics
	General     *GeneralTopics
}

type topicsEnvelope struct {
	Domain      Domain             `json:"domain"`
	Programming *ProgrammingTopics `json:"programming,omitempty"`
	Math        *MathTopics        `json:"math,omitempty"`
	General     *GeneralTopics     `json:"general,omitempty"`
}

// MarshalJSON serialises the populated branch alongside its domain tag.
func (t Topics) MarshalJSON() ([]byte, error) {
	return json.Marshal(topicsEnvelope{
		Domain:      t.Domain,
		Programming: t.Programming,
		Math:        t.Math,
		General:     t.General,
	})
}

// UnmarshalJSON restores the tagged branch and rejects mismatched payloads.
func (t *Topics) UnmarshalJSON(data []byte) error {
	var envelope topicsEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return err
	}

	switch envelope.Domain {
	case DomainProgramming:
		if envelope.Programming == nil {
			envelope.Programming = &ProgrammingTopics{}
		}
	case DomainMath:
		if envelope.Math == nil {
			envelope.Math = &MathTopics{}
		}
	case DomainGeneral:
		if envelope.General == nil {
			envelope.General = &GeneralTopics{}
		}
	default:
		return fmt.Errorf("%w: unknown topics domain %q", ErrPlanInvalid, envelope.Domain)
	}

	*t = Topics{
		Domain:      envelope.Domain,
		Programming: envelope.Programming,
		Math:        envelope.Math,
		General:     envelope.General,
	}
	return nil
}

// Labels flattens the populated branch into a single list for prompt building.
func (t *Topics) Labels() []string {
	if t == nil {
		return nil
	}
	var labels []string
	switch {
	case t.Programming != nil:
		labels = append(labels, t.Programming.Languages...)
		labels = append(labels, t.Programming.Concepts...)
		labels = append(labels, t.Programming.Projects...)
	case t.Math != nil:
		labels = append(labels, t.Math.Fields...)
		labels = append(labels, t.Math.Theorems...)
		labels = append(labels, t.Math.Exercises...)
	case t.General != nil:
		labels = append(labels, t.General.Subjects...)
		labels = append(labels, t.General.Resources...)
	}
	return labels
}

// DecodePlan parses a stored plan tree and validates its ordering invariants.
func DecodePlan(raw []byte) (Plan, error) {
	var plan Plan
	if err := json.Unmarshal(raw, &plan); err != nil {
		return Plan{}, fmt.Errorf("%w: %v", ErrPlanInvalid, err)
	}
	if err := plan.Validate(); err != nil {
		return Plan{}, err
	}
	return plan, nil
}

// Validate checks that phase and milestone order values are dense, unique and
// start at 1 within their parent, and that identifiers are unique tree-wide.
func (p Plan) Validate() error {
	if len(p.Phases) == 0 {
		return fmt.Errorf("%w: plan has no phases", ErrPlanInvalid)
	}

	seenMilestones := make(map[string]struct{})
	seenPhases := make(map[string]struct{})

	for i, phase := range p.Phases {
		if phase.ID == "" {
			return fmt.Errorf("%w: phase at index %d has no id", ErrPlanInvalid, i)
		}
		if _, dup := seenPhases[phase.ID]; dup {
			return fmt.Errorf("%w: duplicate phase id %q", ErrPlanInvalid, phase.ID)
		}
		seenPhases[phase.ID] = struct{}{}

		if phase.Order != i+1 {
			return fmt.Errorf("%w: phase %q has order %d, want %d", ErrPlanInvalid, phase.ID, phase.Order, i+1)
		}
		if len(phase.Milestones) == 0 {
			return fmt.Errorf("%w: phase %q has no milestones", ErrPlanInvalid, phase.ID)
		}

		for j, milestone := range phase.Milestones {
			if milestone.ID == "" {
				return fmt.Errorf("%w: milestone at index %d of phase %q has no id", ErrPlanInvalid, j, phase.ID)
			}
			if _, dup := seenMilestones[milestone.ID]; dup {
				return fmt.Errorf("%w: duplicate milestone id %q", ErrPlanInvalid, milestone.ID)
			}
			seenMilestones[milestone.ID] = struct{}{}

			if milestone.Order != j+1 {
				return fmt.Errorf("%w: milestone %q has order %d, want %d", ErrPlanInvalid, milestone.ID, milestone.Order, j+1)
			}
			if milestone.Type != MilestoneLesson && milestone.Type != MilestoneQuiz {
				return fmt.Errorf("%w: milestone %q has unknown type %q", ErrPlanInvalid, milestone.ID, milestone.Type)
			}
		}
	}

	return nil
}

// TotalMilestones counts milestones across all phases.
func (p Plan) TotalMilestones() int {
	total := 0
	for _, phase := range p.Phases {
		total += len(phase.Milestones)
	}
	return total
}

// Find returns the phase and milestone matching the given identifiers.
func (p Plan) Find(phaseID, milestoneID string) (Phase, Milestone, bool) {
	for _, phase := range p.Phases {
		if phase.ID != phaseID {
			continue
		}
		for _, milestone := range phase.Milestones {
			if milestone.ID == milestoneID {
				return phase, milestone, true
			}
		}
	}
	return Phase{}, Milestone{}, false
}
