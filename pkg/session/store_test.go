package session

import (
	"errors"
	"sync"
	"testing"

	"github.com/menta2k/facemask/pkg/geometry"
	"github.com/menta2k/facemask/pkg/mask"
)

func entry(name string, faces, masked int) *ProcessedImage {
	return &ProcessedImage{
		SourceName:  name,
		OutputName:  "protected_" + name,
		FaceCount:   faces,
		MaskedCount: masked,
		Masks:       []mask.Mask{{ID: "m_" + name, Center: geometry.Pt(1, 2), Size: 40}},
	}
}

func TestStoreAddAndOrder(t *testing.T) {
	s := NewStore()
	idA := s.Add(entry("a.jpg", 2, 1))
	idB := s.Add(entry("b.jpg", 1, 1))

	if idA == "" || idA == idB {
		t.Fatalf("Expected distinct IDs, got %q and %q", idA, idB)
	}
	if s.Len() != 2 {
		t.Fatalf("Expected 2 entries, got %d", s.Len())
	}
	first, _ := s.At(0)
	if first.SourceName != "a.jpg" {
		t.Errorf("Expected a.jpg first, got %s", first.SourceName)
	}
	if s.Index(idB) != 1 {
		t.Errorf("Expected index 1 for b.jpg, got %d", s.Index(idB))
	}
	if s.Index("missing") != -1 {
		t.Error("Unknown ID should have index -1")
	}
}

func TestStoreReturnsCopies(t *testing.T) {
	s := NewStore()
	id := s.Add(entry("a.jpg", 1, 1))

	got, _ := s.Get(id)
	got.Masks[0].Size = 999
	got.SourceName = "changed"

	again, _ := s.Get(id)
	if again.Masks[0].Size != 40 || again.SourceName != "a.jpg" {
		t.Error("Mutating a returned entry leaked into the store")
	}
}

func TestStoreUpdate(t *testing.T) {
	s := NewStore()
	id := s.Add(entry("a.jpg", 1, 0))

	found, err := s.Update(id, func(p *ProcessedImage) error {
		p.MaskedCount = 1
		p.ID = "hijacked"
		return nil
	})
	if !found || err != nil {
		t.Fatalf("Update failed: found=%v err=%v", found, err)
	}
	got, ok := s.Get(id)
	if !ok || got.MaskedCount != 1 {
		t.Errorf("Update not applied: %+v", got)
	}

	boom := errors.New("boom")
	_, err = s.Update(id, func(p *ProcessedImage) error {
		p.MaskedCount = 7
		return boom
	})
	if !errors.Is(err, boom) {
		t.Errorf("Expected boom, got %v", err)
	}
	if got, _ := s.Get(id); got.MaskedCount != 1 {
		t.Error("Failed update must not be stored")
	}

	if found, _ := s.Update("missing", func(*ProcessedImage) error { return nil }); found {
		t.Error("Update of unknown ID should report not found")
	}
}

func TestStoreRemoveAndClear(t *testing.T) {
	s := NewStore()
	s.Add(entry("a.jpg", 1, 1))
	s.Add(entry("b.jpg", 1, 1))
	s.Add(entry("c.jpg", 1, 1))

	if !s.Remove(1) {
		t.Fatal("Remove(1) failed")
	}
	live := s.Live()
	if len(live) != 2 || live[0].SourceName != "a.jpg" || live[1].SourceName != "c.jpg" {
		t.Errorf("Unexpected entries after remove: %v", live)
	}
	if s.Remove(5) {
		t.Error("Remove out of range should fail")
	}

	s.Clear()
	if s.Len() != 0 {
		t.Errorf("Expected empty store after Clear, got %d", s.Len())
	}
}

func TestStoreCounts(t *testing.T) {
	s := NewStore()
	s.Add(entry("a.jpg", 3, 2))
	s.Add(entry("b.jpg", 2, 0))

	faces, masked := s.Counts()
	if faces != 5 || masked != 2 {
		t.Errorf("Counts() = %d, %d; want 5, 2", faces, masked)
	}
}

func TestStoreConcurrentAdds(t *testing.T) {
	s := NewStore()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Add(entry("x.jpg", 1, 1))
		}()
	}
	wg.Wait()
	if s.Len() != 50 {
		t.Errorf("Expected 50 entries, got %d", s.Len())
	}
}
