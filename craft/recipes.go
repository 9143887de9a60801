package craft

import (
	"strings"

	"github.com/hocy1609/spybot/model"
)

// DefaultRecipes is the built-in catalog of craftable items and the
// menu key sequences that produce them. Sequences are pressed digit by
// digit inside the open craft menu.
var DefaultRecipes = []model.Recipe{
	{Name: "Cure Light Wounds Potion", Sequence: "151"},
	{Name: "Cure Moderate Wounds Potion", Sequence: "152"},
	{Name: "Cure Serious Wounds Potion", Sequence: "153"},
	{Name: "Cure Critical Wounds Potion", Sequence: "154"},
	{Name: "Bull's Strength Potion", Sequence: "211"},
	{Name: "Cat's Grace Potion", Sequence: "212"},
	{Name: "Endurance Potion", Sequence: "213"},
	{Name: "Barkskin Potion", Sequence: "221"},
	{Name: "Invisibility Potion", Sequence: "231"},
	{Name: "Speed Potion", Sequence: "232"},
	{Name: "Antidote", Sequence: "311"},
	{Name: "Restoration Scroll", Sequence: "321"},
}

// FindRecipe looks a recipe up by name, case-insensitively.
func FindRecipe(name string) (model.Recipe, bool) {
	for _, r := range DefaultRecipes {
		if strings.EqualFold(r.Name, name) {
			return r, true
		}
	}
	return model.Recipe{}, false
}

// ResolveJobs fills in item names for jobs given only by sequence, and
// sequences for jobs given only by item name.
func ResolveJobs(jobs []model.CraftJob) []model.CraftJob {
	out := make([]model.CraftJob, len(jobs))
	for i, j := range jobs {
		if j.Sequence == "" {
			if r, ok := FindRecipe(j.Item); ok {
				j.Sequence = r.Sequence
			}
		}
		if j.Item == "" {
			for _, r := range DefaultRecipes {
				if r.Sequence == j.Sequence {
					j.Item = r.Name
					break
				}
			}
		}
		out[i] = j
	}
	return out
}
