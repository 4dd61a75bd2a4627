package state

import "github.com/atomicstack/save-cloud/internal/input"

// DefaultVisibleRows is the window height used when a caller does not size
// the list explicitly.
const DefaultVisibleRows = 12

// ListState tracks the selected row and the visible window of a bounded list.
type ListState struct {
	TopRow      int
	Selected    int
	VisibleRows int
}

// NewListState returns a ListState positioned at the first row.
func NewListState(visibleRows int) ListState {
	return ListState{VisibleRows: visibleRows}
}

// Move shifts the selection by delta. Moving before the first row wraps to
// the last one and moving past the last row wraps to the first.
func (s *ListState) Move(delta, size int) bool {
	if size <= 0 {
		s.Selected = 0
		s.TopRow = 0
		return false
	}
	old := s.Selected
	s.Selected += delta
	if s.Selected < 0 {
		s.Selected = size - 1
	} else if s.Selected >= size {
		s.Selected = 0
	}
	s.ScrollIntoView()
	return s.Selected != old
}

// ClampTo pulls the selection back into [0, size) after the list changed.
func (s *ListState) ClampTo(size int) {
	if size <= 0 {
		s.Selected = 0
		s.TopRow = 0
		return
	}
	if s.Selected >= size {
		s.Selected = size - 1
	}
	if s.Selected < 0 {
		s.Selected = 0
	}
	rows := s.rows()
	maxTop := size - rows
	if maxTop < 0 {
		maxTop = 0
	}
	if s.TopRow > maxTop {
		s.TopRow = maxTop
	}
	s.ScrollIntoView()
}

// ScrollIntoView moves TopRow so the selection is inside the window.
func (s *ListState) ScrollIntoView() {
	rows := s.rows()
	if s.Selected < s.TopRow {
		s.TopRow = s.Selected
	} else if s.Selected-s.TopRow >= rows {
		s.TopRow = s.Selected - rows + 1
	}
	if s.TopRow < 0 {
		s.TopRow = 0
	}
}

// Update applies navigation buttons for a list of the given size and
// reports whether the selection changed. A stale selection is clamped first.
func (s *ListState) Update(size int, buttons input.Buttons) bool {
	old := s.Selected
	if s.Selected >= size {
		s.ClampTo(size)
	}
	switch {
	case buttons.Has(input.Up):
		s.Move(-1, size)
	case buttons.Has(input.Down):
		s.Move(1, size)
	case buttons.Has(input.PageUp):
		s.PageUp(size)
	case buttons.Has(input.PageDown):
		s.PageDown(size)
	case buttons.Has(input.Home):
		s.Home(size)
	case buttons.Has(input.End):
		s.End(size)
	}
	return s.Selected != old
}

// Home moves the selection to the first row.
func (s *ListState) Home(size int) bool {
	return s.jump(0, size)
}

// End moves the selection to the last row.
func (s *ListState) End(size int) bool {
	return s.jump(size-1, size)
}

// PageUp moves up by one window without wrapping.
func (s *ListState) PageUp(size int) bool {
	return s.jump(s.Selected-s.pageSize(size), size)
}

// PageDown moves down by one window without wrapping.
func (s *ListState) PageDown(size int) bool {
	return s.jump(s.Selected+s.pageSize(size), size)
}

// Window returns the half-open range of rows to draw.
func (s ListState) Window(size int) (int, int) {
	if size <= 0 {
		return 0, 0
	}
	start := s.TopRow
	if start >= size {
		start = size - 1
	}
	if start < 0 {
		start = 0
	}
	end := start + s.rows()
	if end > size {
		end = size
	}
	return start, end
}

func (s *ListState) jump(target, size int) bool {
	if size <= 0 {
		s.Selected = 0
		s.TopRow = 0
		return false
	}
	old := s.Selected
	if target < 0 {
		target = 0
	}
	if target >= size {
		target = size - 1
	}
	s.Selected = target
	s.ScrollIntoView()
	return s.Selected != old
}

func (s *ListState) pageSize(size int) int {
	page := s.rows()
	if page > size {
		page = size
	}
	if page < 1 {
		page = 1
	}
	return page
}

func (s ListState) rows() int {
	if s.VisibleRows < 1 {
		return 1
	}
	return s.VisibleRows
}
