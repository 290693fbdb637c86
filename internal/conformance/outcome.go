package conformance

import (
	"github.com/brendan.keane/featcheck/internal/errors"
)

// Status is the result of one check.
type Status string

const (
	StatusPass Status = "pass"
	StatusFail Status = "fail"
	StatusSkip Status = "skip"
)

// Outcome records one check against one subject.
type Outcome struct {
	Check       string   `json:"check"`
	Requirement string   `json:"requirement,omitempty"`
	Subject     string   `json:"subject"`
	Status      Status   `json:"status"`
	Message     string   `json:"message,omitempty"`
	Violations  []string `json:"violations,omitempty"`
	ErrorType   string   `json:"errorType,omitempty"`
}

// OutcomeFrom turns a check result into an outcome. Skip errors skip; every
// other error fails.
func OutcomeFrom(check, requirement, subject string, err error) Outcome {
	o := Outcome{
		Check:       check,
		Requirement: requirement,
		Subject:     subject,
		Status:      StatusPass,
	}
	if err == nil {
		return o
	}

	errType := errors.GetType(err)
	o.ErrorType = string(errType)
	o.Message = err.Error()
	if errType == errors.ErrorTypeSkip {
		o.Status = StatusSkip
		return o
	}

	o.Status = StatusFail
	if violations, ok := errors.GetContext(err)["violations"].([]string); ok {
		o.Violations = violations
	}
	return o
}

// Summary counts outcomes by status.
type Summary struct {
	Total   int `json:"total"`
	Passed  int `json:"passed"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`
}

func Summarize(outcomes []Outcome) Summary {
	s := Summary{Total: len(outcomes)}
	for _, o := range outcomes {
		switch o.Status {
		case StatusPass:
			s.Passed++
		case StatusFail:
			s.Failed++
		case StatusSkip:
			s.Skipped++
		}
	}
	return s
}

// batch joins the violations found by one check into a single error.
func batch(message string, violations []string) error {
	if len(violations) == 0 {
		return nil
	}
	return errors.Violation("%s: %d violation(s)", message, len(violations)).
		WithContext("violations", violations)
}
