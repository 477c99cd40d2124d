package refdata

import "testing"

func TestStarterPoolHasFiveStages(t *testing.T) {
	legal := LegalStageIDs()
	if len(legal) != 5 {
		t.Fatalf("starter pool size = %d, want 5", len(legal))
	}
	for _, id := range legal {
		if !IsKnownStage(id) {
			t.Errorf("starter stage %s missing from catalog", id)
		}
	}
}

func TestCounterpickPoolIsStartersPlusCounterpicks(t *testing.T) {
	pool := CounterpickPoolIDs()
	if len(pool) != 9 {
		t.Fatalf("counterpick pool size = %d, want 9", len(pool))
	}

	seen := make(map[string]bool)
	for _, id := range pool {
		if seen[id] {
			t.Errorf("stage %s appears twice in the pool", id)
		}
		seen[id] = true
	}
	for _, id := range LegalStageIDs() {
		if !seen[id] {
			t.Errorf("starter stage %s missing from the counterpick pool", id)
		}
	}
}

func TestCasualStagesStayOutOfCompetitivePools(t *testing.T) {
	for _, s := range StagesByCategory(CategoryCasual) {
		for _, id := range CounterpickPoolIDs() {
			if id == s.ID {
				t.Errorf("casual stage %s leaked into the counterpick pool", s.ID)
			}
		}
	}
}

func TestCatalogLookups(t *testing.T) {
	if !IsKnownStage("battlefield") {
		t.Error("battlefield should be a known stage")
	}
	if IsKnownStage("hyrule-temple-64") {
		t.Error("unknown id should not resolve")
	}
	if !IsKnownFighter("fox") {
		t.Error("fox should be a known fighter")
	}
	if IsKnownFighter("") {
		t.Error("empty fighter id should not resolve")
	}
}
