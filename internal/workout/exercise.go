// Package workout defines the exercise record model and its validation rules.
package workout

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	apperrors "github.com/mkarsten/ironlog/internal/platform/errors"
	"github.com/mkarsten/ironlog/internal/platform/id"
)

const minNameLength = 2

// Exercise is one logged workout entry.
//
// ID is assigned at creation and is the stable identity used for deletes and
// cross-device reconciliation. OwnerID is set only on records persisted to
// the remote collection; guest-local records carry none.
type Exercise struct {
	ID          string    `json:"id"`
	Name        string    `json:"exerciseName"`
	Category    Category  `json:"category"`
	Subcategory string    `json:"subcategory"`
	Sets        int       `json:"sets"`
	Reps        int       `json:"reps"`
	Weight      *float64  `json:"weight,omitempty"`
	Date        time.Time `json:"date"`
	Notes       string    `json:"notes,omitempty"`
	OwnerID     string    `json:"ownerId,omitempty"`
}

// New builds an exercise with a freshly generated stable ID.
func New(name string, category Category, subcategory string, sets, reps int, weight *float64, date time.Time, notes string) (Exercise, error) {
	exerciseID, err := id.NewID()
	if err != nil {
		return Exercise{}, fmt.Errorf("generate exercise id: %w", err)
	}
	exercise := Exercise{
		ID:          exerciseID,
		Name:        strings.TrimSpace(name),
		Category:    category,
		Subcategory: subcategory,
		Sets:        sets,
		Reps:        reps,
		Weight:      weight,
		Date:        date,
		Notes:       strings.TrimSpace(notes),
	}
	if err := Validate(exercise); err != nil {
		return Exercise{}, err
	}
	return exercise, nil
}

// WithCategory returns a copy of e with the category changed. A subcategory
// that does not belong to the new category is cleared, never carried over.
func (e Exercise) WithCategory(c Category) Exercise {
	e.Category = c
	if !ValidPair(c, e.Subcategory) {
		e.Subcategory = ""
	}
	return e
}

// Validate checks e against the record model constraints. It is pure and
// reports the first violated constraint as a coded field-level error.
func Validate(e Exercise) error {
	if utf8.RuneCountInString(strings.TrimSpace(e.Name)) < minNameLength {
		return apperrors.WithMetadata(apperrors.CodeExerciseNameTooShort,
			"exercise name must be at least 2 characters",
			map[string]string{"field": "exerciseName"})
	}
	if !ValidCategory(e.Category) {
		return apperrors.WithMetadata(apperrors.CodeExerciseInvalidCategory,
			fmt.Sprintf("unknown category %q", e.Category),
			map[string]string{"field": "category"})
	}
	if !ValidSubcategory(e.Subcategory) {
		return apperrors.WithMetadata(apperrors.CodeExerciseInvalidSubcategory,
			fmt.Sprintf("unknown subcategory %q", e.Subcategory),
			map[string]string{"field": "subcategory"})
	}
	if !ValidPair(e.Category, e.Subcategory) {
		return apperrors.WithMetadata(apperrors.CodeExerciseSubcategoryMismatch,
			fmt.Sprintf("subcategory %q does not belong to category %q", e.Subcategory, e.Category),
			map[string]string{"field": "subcategory"})
	}
	if e.Sets < 1 {
		return apperrors.WithMetadata(apperrors.CodeExerciseSetsTooSmall,
			"at least 1 set is required",
			map[string]string{"field": "sets"})
	}
	if e.Reps < 1 {
		return apperrors.WithMetadata(apperrors.CodeExerciseRepsTooSmall,
			"at least 1 rep is required",
			map[string]string{"field": "reps"})
	}
	if e.Weight != nil && *e.Weight < 0 {
		return apperrors.WithMetadata(apperrors.CodeExerciseNegativeWeight,
			"weight cannot be negative",
			map[string]string{"field": "weight"})
	}
	if e.Date.IsZero() {
		return apperrors.WithMetadata(apperrors.CodeExerciseDateMissing,
			"a date is required",
			map[string]string{"field": "date"})
	}
	return nil
}
