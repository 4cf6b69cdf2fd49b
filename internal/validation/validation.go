package validation

import (
	"context"
	"strings"
	"sync"
	"time"
	"unicode"
)

// FieldError reports a single user-correctable problem with a submitted field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Rule pairs a pure predicate with the message shown when it fails.
type Rule struct {
	Test    func(value string) bool
	Message string
}

// AsyncRule pairs a store lookup with the message shown when the lookup
// reports the value as already taken.
type AsyncRule struct {
	Exists  func(ctx context.Context, value string) (bool, error)
	Message string
}

// Field is an ordered chain of rules for one submitted form field. Rules
// short-circuit within the field; async rules only run once every sync rule
// for the field has passed.
type Field struct {
	Name  string
	Value string
	Rules []Rule
	Async []AsyncRule
}

// Evaluate runs the sync chains in declaration order, then runs the async
// lookups of the surviving fields concurrently, and merges all failures back
// into field declaration order. A lookup error aborts the whole evaluation.
func Evaluate(ctx context.Context, fields []Field) ([]FieldError, error) {
	perField := make([][]FieldError, len(fields))
	var pending []int

	for i, field := range fields {
		failed := false
		for _, rule := range field.Rules {
			if !rule.Test(field.Value) {
				perField[i] = append(perField[i], FieldError{Field: field.Name, Message: rule.Message})
				failed = true
				break
			}
		}
		if !failed && len(field.Async) > 0 {
			pending = append(pending, i)
		}
	}

	if len(pending) > 0 {
		var (
			wg        sync.WaitGroup
			mu        sync.Mutex
			lookupErr error
		)
		for _, idx := range pending {
			wg.Add(1)
			go func(idx int) {
				defer wg.Done()
				field := fields[idx]
				for _, rule := range field.Async {
					taken, err := rule.Exists(ctx, field.Value)
					if err != nil {
						mu.Lock()
						if lookupErr == nil {
							lookupErr = err
						}
						mu.Unlock()
						return
					}
					if taken {
						mu.Lock()
						perField[idx] = append(perField[idx], FieldError{Field: field.Name, Message: rule.Message})
						mu.Unlock()
						return
					}
				}
			}(idx)
		}
		wg.Wait()
		if lookupErr != nil {
			return nil, lookupErr
		}
	}

	var errs []FieldError
	for _, fieldErrs := range perField {
		errs = append(errs, fieldErrs...)
	}
	return errs, nil
}

// NotEmpty fails on blank values.
func NotEmpty(value string) bool {
	return strings.TrimSpace(value) != ""
}

// ExactLength returns a predicate requiring exactly n characters.
func ExactLength(n int) func(string) bool {
	return func(value string) bool {
		return len(value) == n
	}
}

// Numeric requires a non-empty all-digit value.
func Numeric(value string) bool {
	if value == "" {
		return false
	}
	for _, r := range value {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// DateNotAfter returns a predicate rejecting dates later than the cutoff.
// Blank and unparseable values pass; pairing with NotEmpty makes them
// required first.
func DateNotAfter(cutoff time.Time) func(string) bool {
	return func(value string) bool {
		if strings.TrimSpace(value) == "" {
			return true
		}
		t, err := time.Parse("2006-01-02", value)
		if err != nil {
			return true
		}
		return !t.After(cutoff)
	}
}
