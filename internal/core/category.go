package core

import "strings"

// Category is the closed set of transaction categories. Free-form input is
// normalized once through NormalizeCategory when rows enter the system.
type Category string

const (
	CategoryIncome         Category = "income"
	CategorySalary         Category = "salary"
	CategoryFreelance      Category = "freelance"
	CategoryInvestment     Category = "investment"
	CategoryGift           Category = "gift"
	CategoryFood           Category = "food"
	CategoryTransportation Category = "transportation"
	CategoryHousing        Category = "housing"
	CategoryUtilities      Category = "utilities"
	CategoryHealthcare     Category = "healthcare"
	CategoryEntertainment  Category = "entertainment"
	CategoryShopping       Category = "shopping"
	CategoryEducation      Category = "education"
	CategoryTravel         Category = "travel"
	CategoryInsurance      Category = "insurance"
	CategorySavings        Category = "savings"
	CategoryDebt           Category = "debt"
	CategoryPersonal       Category = "personal"
	CategoryTransfer       Category = "transfer"
	CategoryOther          Category = "other"
)

var categories = []Category{
	CategoryIncome, CategorySalary, CategoryFreelance, CategoryInvestment, CategoryGift,
	CategoryFood, CategoryTransportation, CategoryHousing, CategoryUtilities,
	CategoryHealthcare, CategoryEntertainment, CategoryShopping, CategoryEducation,
	CategoryTravel, CategoryInsurance, CategorySavings, CategoryDebt, CategoryPersonal,
	CategoryTransfer, CategoryOther,
}

var categoryAliases = map[string]Category{
	"groceries":     CategoryFood,
	"dining":        CategoryFood,
	"restaurant":    CategoryFood,
	"transport":     CategoryTransportation,
	"rent":          CategoryHousing,
	"bills":         CategoryUtilities,
	"health":        CategoryHealthcare,
	"medical":       CategoryHealthcare,
	"wages":         CategorySalary,
	"loan":          CategoryDebt,
	"subscriptions": CategoryEntertainment,
}

var categorySet = func() map[Category]struct{} {
	m := make(map[Category]struct{}, len(categories))
	for _, c := range categories {
		m[c] = struct{}{}
	}
	return m
}()

// Categories returns every known category in declaration order.
func Categories() []Category {
	return append([]Category(nil), categories...)
}

// NormalizeCategory lower-cases and trims s and maps it onto the closed set.
// Unknown values become CategoryOther.
func NormalizeCategory(s string) Category {
	key := strings.ToLower(strings.TrimSpace(s))
	key = strings.ReplaceAll(key, " ", "_")
	if _, ok := categorySet[Category(key)]; ok {
		return Category(key)
	}
	if c, ok := categoryAliases[key]; ok {
		return c
	}
	return CategoryOther
}

// Valid reports whether c is a member of the closed set.
func (c Category) Valid() bool {
	_, ok := categorySet[c]
	return ok
}

func (c Category) String() string {
	return string(c)
}
