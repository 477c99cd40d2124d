package refdata

// StageCategory classifies stages for competitive play.
type StageCategory string

const (
	CategoryLegal       StageCategory = "legal"
	CategoryCounterpick StageCategory = "counterpick"
	CategoryCasual      StageCategory = "casual"
)

// Stage is a static catalog entry. The coordinator only ever references
// stage IDs and categories; display names belong to the frontend.
type Stage struct {
	ID       string        `json:"id"`
	Name     string        `json:"name"`
	Category StageCategory `json:"category"`
}

var Stages = []Stage{
	// Starter stages (struck for game 1)
	{ID: "battlefield", Name: "Battlefield", Category: CategoryLegal},
	{ID: "final-destination", Name: "Final Destination", Category: CategoryLegal},
	{ID: "small-battlefield", Name: "Small Battlefield", Category: CategoryLegal},
	{ID: "pokemon-stadium-2", Name: "Pokemon Stadium 2", Category: CategoryLegal},
	{ID: "town-and-city", Name: "Town and City", Category: CategoryLegal},

	// Counterpick stages (join the pool for games 2 and 3)
	{ID: "smashville", Name: "Smashville", Category: CategoryCounterpick},
	{ID: "kalos-pokemon-league", Name: "Kalos Pokemon League", Category: CategoryCounterpick},
	{ID: "yoshis-story", Name: "Yoshi's Story", Category: CategoryCounterpick},
	{ID: "lylat-cruise", Name: "Lylat Cruise", Category: CategoryCounterpick},

	// Casual stages, never part of the competitive pool
	{ID: "mario-circuit", Name: "Mario Circuit", Category: CategoryCasual},
	{ID: "gerudo-valley", Name: "Gerudo Valley", Category: CategoryCasual},
	{ID: "dream-land", Name: "Dream Land", Category: CategoryCasual},
	{ID: "fountain-of-dreams", Name: "Fountain of Dreams", Category: CategoryCasual},
}

// StagesByCategory returns the stages in the given category, in catalog order.
func StagesByCategory(category StageCategory) []Stage {
	var out []Stage
	for _, s := range Stages {
		if s.Category == category {
			out = append(out, s)
		}
	}
	return out
}

// LegalStageIDs returns the IDs of the starter pool used for game 1.
func LegalStageIDs() []string {
	return stageIDs(CategoryLegal)
}

// CounterpickPoolIDs returns the full pool for games 2 and 3:
// legal plus counterpick stages.
func CounterpickPoolIDs() []string {
	return append(stageIDs(CategoryLegal), stageIDs(CategoryCounterpick)...)
}

// IsKnownStage reports whether id exists in the catalog at all.
func IsKnownStage(id string) bool {
	for _, s := range Stages {
		if s.ID == id {
			return true
		}
	}
	return false
}

func stageIDs(category StageCategory) []string {
	var ids []string
	for _, s := range Stages {
		if s.Category == category {
			ids = append(ids, s.ID)
		}
	}
	return ids
}
