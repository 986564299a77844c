package workout

// Category groups exercises by training goal.
type Category string

const (
	CategoryStrength    Category = "strength"
	CategoryCardio      Category = "cardio"
	CategoryFlexibility Category = "flexibility"
	CategoryBalance     Category = "balance"
)

// subcategories maps each category to its fixed subcategory set. Order is
// the display order used by clients.
var subcategories = map[Category][]string{
	CategoryStrength:    {"squats", "deadlifts", "bench-press", "push-ups"},
	CategoryCardio:      {"running", "cycling", "aerobic-classes"},
	CategoryFlexibility: {"stretching", "bosu-ball"},
	CategoryBalance:     {"farmers-walk", "calf-raise"},
}

// Categories returns every valid category in display order.
func Categories() []Category {
	return []Category{CategoryStrength, CategoryCardio, CategoryFlexibility, CategoryBalance}
}

// ValidCategory reports whether c is a member of the fixed category set.
func ValidCategory(c Category) bool {
	_, ok := subcategories[c]
	return ok
}

// Subcategories returns the fixed subcategory set for c, or nil when c is
// not a valid category.
func Subcategories(c Category) []string {
	values, ok := subcategories[c]
	if !ok {
		return nil
	}
	out := make([]string, len(values))
	copy(out, values)
	return out
}

// ValidSubcategory reports whether s appears in any category's set.
func ValidSubcategory(s string) bool {
	for _, values := range subcategories {
		for _, value := range values {
			if value == s {
				return true
			}
		}
	}
	return false
}

// ValidPair reports whether s belongs to the subcategory set of c.
func ValidPair(c Category, s string) bool {
	for _, value := range subcategories[c] {
		if value == s {
			return true
		}
	}
	return false
}
