package scenario

import "testing"

func TestSeedScenariosComplete(t *testing.T) {
	store := NewMemoryStore(Seed())

	list := store.List()
	if len(list) != 4 {
		t.Fatalf("expected 4 scenarios, got %d", len(list))
	}
	for _, sc := range list {
		if sc.ID == "" || sc.Name == "" || sc.SystemPrompt == "" || sc.InitialQuestion == "" {
			t.Fatalf("incomplete scenario: %+v", sc)
		}
	}
}

func TestFindByID(t *testing.T) {
	store := NewMemoryStore(Seed())

	sc, ok := store.FindByID("career-advice")
	if !ok {
		t.Fatal("career-advice should exist")
	}
	if sc.Name == "" {
		t.Fatal("scenario name must be populated")
	}

	if _, ok := store.FindByID("unknown"); ok {
		t.Fatal("unknown id must not resolve")
	}
}

func TestListReturnsCopy(t *testing.T) {
	store := NewMemoryStore(Seed())

	list := store.List()
	list[0].Name = "mutated"

	again, _ := store.FindByID(list[0].ID)
	if again.Name == "mutated" {
		t.Fatal("List must not expose the backing slice")
	}
}
