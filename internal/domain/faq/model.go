// Package faq holds visitor questions and the administrator answers published
// on the public FAQ page.
package faq

import (
	"time"

	"github.com/google/uuid"
)

type FAQ struct {
	ID         uuid.UUID  `json:"id"`
	Question   string     `json:"question"`
	Answer     *string    `json:"answer"`
	AskedBy    *uuid.UUID `json:"askedBy"`
	AnsweredBy *uuid.UUID `json:"answeredBy"`
	AnsweredAt *time.Time `json:"answeredAt"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

func (f *FAQ) Answered() bool { return f.Answer != nil && *f.Answer != "" }

type SubmitInput struct {
	Question string `json:"question" validate:"required,max=2000"`
}

type AnswerInput struct {
	Answer string `json:"answer" validate:"required,max=10000"`
}

// Filter narrows admin listings. A nil Answered returns everything.
type Filter struct {
	Answered *bool
}
