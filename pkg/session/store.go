// Package session holds the processed images of the current session.
package session

import (
	"sync"

	"github.com/google/uuid"

	"github.com/menta2k/facemask/pkg/mask"
)

// ProcessedImage is one completed unit of work
type ProcessedImage struct {
	ID           string `json:"id"`
	SourceName   string `json:"source_name"`
	OutputName   string `json:"output_name"`
	OutputFormat string `json:"output_format"`

	// Original holds the source bytes as read, Output the encoded result
	Original []byte `json:"-"`
	Output   []byte `json:"-"`

	OriginalDataURI  string `json:"-"`
	ProcessedDataURI string `json:"-"`

	Width       int         `json:"width"`
	Height      int         `json:"height"`
	FaceCount   int         `json:"face_count"`
	MaskedCount int         `json:"masked_count"`
	Masks       []mask.Mask `json:"masks"`
}

// NewID returns a fresh entry identifier
func NewID() string {
	return uuid.NewString()
}

// Clone returns a deep copy of the entry. Byte slices are shared since they
// are never modified in place, only replaced.
func (p *ProcessedImage) Clone() *ProcessedImage {
	if p == nil {
		return nil
	}
	c := *p
	c.Masks = mask.CloneAll(p.Masks)
	return &c
}

// Store is the ordered collection of processed images. It is safe for
// concurrent use; entries handed out are copies.
type Store struct {
	mu      sync.Mutex
	entries []*ProcessedImage
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{}
}

// Add appends an entry, assigning an ID when it has none, and returns its ID
func (s *Store) Add(p *ProcessedImage) string {
	c := p.Clone()
	if c.ID == "" {
		c.ID = NewID()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, c)
	return c.ID
}

// Len returns the number of entries
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// At returns a copy of the entry at index
func (s *Store) At(index int) (*ProcessedImage, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.entries) {
		return nil, false
	}
	return s.entries[index].Clone(), true
}

// Get returns a copy of the entry with the given ID
func (s *Store) Get(id string) (*ProcessedImage, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.index(id); i >= 0 {
		return s.entries[i].Clone(), true
	}
	return nil, false
}

// Index returns the position of the entry with the given ID, or -1
func (s *Store) Index(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index(id)
}

func (s *Store) index(id string) int {
	for i, e := range s.entries {
		if e.ID == id {
			return i
		}
	}
	return -1
}

// Update applies fn to a copy of the entry with the given ID and stores the
// result. Nothing is stored when fn returns an error or the ID is unknown.
func (s *Store) Update(id string, fn func(*ProcessedImage) error) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.index(id)
	if i < 0 {
		return false, nil
	}
	c := s.entries[i].Clone()
	if err := fn(c); err != nil {
		return true, err
	}
	c.ID = id
	s.entries[i] = c
	return true, nil
}

// Remove deletes the entry at index
func (s *Store) Remove(index int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.entries) {
		return false
	}
	s.entries = append(s.entries[:index], s.entries[index+1:]...)
	return true
}

// Clear removes every entry
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = nil
}

// Live returns copies of all entries in order
func (s *Store) Live() []*ProcessedImage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*ProcessedImage, len(s.entries))
	for i, e := range s.entries {
		out[i] = e.Clone()
	}
	return out
}

// Counts returns the total detected faces and masked faces over all entries
func (s *Store) Counts() (faces, masked int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.entries {
		faces += e.FaceCount
		masked += e.MaskedCount
	}
	return faces, masked
}
