package workout

import (
	"errors"
	"testing"
	"time"

	apperrors "github.com/mkarsten/ironlog/internal/platform/errors"
)

func validExercise() Exercise {
	return Exercise{
		ID:          "test-id",
		Name:        "Back Squat",
		Category:    CategoryStrength,
		Subcategory: "squats",
		Sets:        3,
		Reps:        10,
		Date:        time.Date(2026, time.August, 30, 0, 0, 0, 0, time.UTC),
	}
}

func TestValidateAccepts(t *testing.T) {
	t.Parallel()

	if err := Validate(validExercise()); err != nil {
		t.Fatalf("validate: %v", err)
	}

	weight := 80.0
	withWeight := validExercise()
	withWeight.Weight = &weight
	withWeight.Notes = "felt strong"
	if err := Validate(withWeight); err != nil {
		t.Fatalf("validate with weight and notes: %v", err)
	}
}

func TestValidateRejections(t *testing.T) {
	t.Parallel()

	zeroWeight := -0.5

	tests := []struct {
		name   string
		mutate func(*Exercise)
		code   apperrors.Code
	}{
		{"short name", func(e *Exercise) { e.Name = "A" }, apperrors.CodeExerciseNameTooShort},
		{"blank name", func(e *Exercise) { e.Name = "   " }, apperrors.CodeExerciseNameTooShort},
		{"unknown category", func(e *Exercise) { e.Category = "yoga" }, apperrors.CodeExerciseInvalidCategory},
		{"unknown subcategory", func(e *Exercise) { e.Subcategory = "pilates" }, apperrors.CodeExerciseInvalidSubcategory},
		{"mismatched subcategory", func(e *Exercise) { e.Subcategory = "running" }, apperrors.CodeExerciseSubcategoryMismatch},
		{"zero sets", func(e *Exercise) { e.Sets = 0 }, apperrors.CodeExerciseSetsTooSmall},
		{"zero reps", func(e *Exercise) { e.Reps = 0 }, apperrors.CodeExerciseRepsTooSmall},
		{"negative weight", func(e *Exercise) { e.Weight = &zeroWeight }, apperrors.CodeExerciseNegativeWeight},
		{"missing date", func(e *Exercise) { e.Date = time.Time{} }, apperrors.CodeExerciseDateMissing},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			exercise := validExercise()
			tc.mutate(&exercise)
			err := Validate(exercise)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !errors.Is(err, apperrors.New(tc.code, "")) {
				t.Fatalf("code = %v, want %v", apperrors.CodeOf(err), tc.code)
			}
		})
	}
}

func TestNewAssignsStableID(t *testing.T) {
	t.Parallel()

	first, err := New("Back Squat", CategoryStrength, "squats", 3, 10, nil, time.Now(), "")
	if err != nil {
		t.Fatalf("new exercise: %v", err)
	}
	if first.ID == "" {
		t.Fatal("expected generated id")
	}

	second, err := New("Back Squat", CategoryStrength, "squats", 3, 10, nil, time.Now(), "")
	if err != nil {
		t.Fatalf("new exercise: %v", err)
	}
	if first.ID == second.ID {
		t.Fatal("expected distinct ids per record")
	}
}

func TestNewRejectsInvalid(t *testing.T) {
	t.Parallel()

	if _, err := New("X", CategoryStrength, "squats", 3, 10, nil, time.Now(), ""); err == nil {
		t.Fatal("expected validation error for short name")
	}
}

func TestWithCategoryClearsIncompatibleSubcategory(t *testing.T) {
	t.Parallel()

	exercise := validExercise()
	changed := exercise.WithCategory(CategoryCardio)
	if changed.Subcategory != "" {
		t.Fatalf("subcategory = %q, want cleared", changed.Subcategory)
	}

	// A subcategory shared with the new category would survive; no category
	// pair overlaps in the fixed taxonomy, so a same-category change is the
	// only case that keeps it.
	unchanged := exercise.WithCategory(CategoryStrength)
	if unchanged.Subcategory != "squats" {
		t.Fatalf("subcategory = %q, want %q", unchanged.Subcategory, "squats")
	}
}
