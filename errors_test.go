package fhirstore

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorPredicates(t *testing.T) {
	tests := []struct {
		name string
		err  error
		pred func(error) bool
	}{
		{"conflict", &ConflictError{"taken"}, IsConflict},
		{"not found", &NotFoundError{"missing"}, IsNotFound},
		{"deleted", &DeletedError{"gone"}, IsDeleted},
		{"validation", &ValidationError{"bad"}, IsValidation},
	}

	preds := []struct {
		name string
		fn   func(error) bool
	}{
		{"conflict", IsConflict},
		{"not found", IsNotFound},
		{"deleted", IsDeleted},
		{"validation", IsValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, p := range preds {
				want := p.name == tt.name
				if got := p.fn(tt.err); got != want {
					t.Errorf("%s predicate on %s error = %v, want %v", p.name, tt.name, got, want)
				}
			}
		})
	}

	t.Run("wrapped errors still match", func(t *testing.T) {
		err := fmt.Errorf("searching: %w", &ConflictError{"taken"})
		if !IsConflict(err) {
			t.Error("expected IsConflict through a wrap")
		}
	})

	t.Run("foreign errors never match", func(t *testing.T) {
		err := errors.New("boom")
		if IsConflict(err) || IsNotFound(err) || IsDeleted(err) || IsValidation(err) {
			t.Error("taxonomy predicates matched a foreign error")
		}
	})
}
