package state

// Title is one game with save data on the device.
type Title struct {
	ID      string
	Name    string
	SaveDir string
}

// Label is the row text of a title.
func (t Title) Label() string {
	if t.Name == "" || t.Name == t.ID {
		return t.ID
	}
	return t.ID + " " + t.Name
}

type TitleStore interface {
	Entries() []Title
	SetEntries([]Title)
	Current() string
	SetCurrent(string)
	Lookup(id string) (Title, bool)
}

type titleStore struct {
	entries []Title
	current string
}

func NewTitleStore() TitleStore {
	return &titleStore{}
}

func (s *titleStore) Entries() []Title {
	return cloneTitles(s.entries)
}

func (s *titleStore) SetEntries(entries []Title) {
	s.entries = cloneTitles(entries)
	if _, ok := s.Lookup(s.current); !ok {
		s.current = ""
	}
}

func (s *titleStore) Current() string {
	return s.current
}

func (s *titleStore) SetCurrent(current string) {
	s.current = current
}

func (s *titleStore) Lookup(id string) (Title, bool) {
	for _, t := range s.entries {
		if t.ID == id {
			return t, true
		}
	}
	return Title{}, false
}

func cloneTitles(entries []Title) []Title {
	if len(entries) == 0 {
		return nil
	}
	dup := make([]Title, len(entries))
	copy(dup, entries)
	return dup
}
