package core

import (
	"errors"
	"fmt"
	"strings"
)

// Validation errors. These block submission locally; no gateway call is
// made when a precondition fails.
var (
	ErrEmptyPrompt     = errors.New("prompt text and image are both empty")
	ErrProfileRequired = errors.New("mentor mode requires a learning-style profile")
	ErrUnknownMode     = errors.New("unknown study mode")
	ErrBadCategory     = errors.New("not a valid MBTI category")
)

// MBTICategories are the 16 learning-style codes a profile may hold.
var MBTICategories = []string{
	"INTJ", "INTP", "ENTJ", "ENTP",
	"INFJ", "INFP", "ENFJ", "ENFP",
	"ISTJ", "ISFJ", "ESTJ", "ESFJ",
	"ISTP", "ISFP", "ESTP", "ESFP",
}

func IsValidCategory(category string) bool {
	for _, c := range MBTICategories {
		if c == category {
			return true
		}
	}
	return false
}

// ImageAttachment is a single decoded image supplied with a prompt.
type ImageAttachment struct {
	MIMEType string
	Data     []byte
}

// PromptRequest is the transient input to one submission: the raw text,
// an optional image, and the active profile category if any.
type PromptRequest struct {
	Text     string
	Image    *ImageAttachment
	Category string
}

// Mode bundles a study mode's template and its precondition so each
// mode's contract lives in one place instead of being scattered across
// string switches in the composer and validator.
type Mode struct {
	Name         string
	Template     func(req PromptRequest) string
	Precondition func(req PromptRequest) error
}

var (
	QA = Mode{
		Name:         "qa",
		Template:     func(req PromptRequest) string { return "Answer this question in detail: " + req.Text },
		Precondition: requireInput,
	}

	Summary = Mode{
		Name:         "summary",
		Template:     func(req PromptRequest) string { return "Summarize the key points of the following: " + req.Text },
		Precondition: requireInput,
	}

	Quiz = Mode{
		Name:         "quiz",
		Template:     func(req PromptRequest) string { return "Produce 3 multiple-choice questions with answers about: " + req.Text },
		Precondition: requireInput,
	}

	// Image mode tolerates a text-only submission; the attachment itself
	// is optional as long as some input is present.
	Image = Mode{
		Name:         "image",
		Template:     func(req PromptRequest) string { return "Answer this question about the attached image: " + req.Text },
		Precondition: requireInput,
	}

	Mentor = Mode{
		Name:         "mentor",
		Template:     mentorTemplate,
		Precondition: requireProfile,
	}
)

var modesByName = map[string]Mode{
	QA.Name:      QA,
	Summary.Name: Summary,
	Quiz.Name:    Quiz,
	Image.Name:   Image,
	Mentor.Name:  Mentor,
}

func ModeByName(name string) (Mode, bool) {
	mode, ok := modesByName[name]
	return mode, ok
}

func requireInput(req PromptRequest) error {
	if strings.TrimSpace(req.Text) == "" && req.Image == nil {
		return ErrEmptyPrompt
	}
	return nil
}

func requireProfile(req PromptRequest) error {
	// Empty input is reported before the missing profile: the first-run
	// selection only opens for a submission that could otherwise proceed.
	if err := requireInput(req); err != nil {
		return err
	}
	if req.Category == "" {
		return ErrProfileRequired
	}
	return nil
}

// mentorTemplate frames the prompt for the personalized mentor: the
// learning-style category appears twice (framing and reminder), and the
// four pedagogical constraints are fixed.
func mentorTemplate(req PromptRequest) string {
	return fmt.Sprintf(
		"You are a personal study mentor for a student with the %s personality type. "+
			"Follow these rules strictly: "+
			"1. Never reveal the final answer. "+
			"2. Guide the student toward the answer step by step. "+
			"3. Use an encouraging tone adapted to the %s type. "+
			"4. Simplify terminology so a young learner can follow. "+
			"The student asks: %s",
		req.Category, req.Category, req.Text)
}
