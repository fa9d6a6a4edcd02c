package model

// MergeSelection is the ordered set of clip URLs chosen for merging within one
// style. Selecting an already-selected URL deselects it. A successful merge
// does not clear the selection.
type MergeSelection struct {
	urls []string
}

// Toggle flips membership for url and reports whether it is now selected.
func (m *MergeSelection) Toggle(url string) bool {
	for i, u := range m.urls {
		if u == url {
			m.urls = append(m.urls[:i], m.urls[i+1:]...)
			return false
		}
	}
	m.urls = append(m.urls, url)
	return true
}

func (m *MergeSelection) Has(url string) bool {
	for _, u := range m.urls {
		if u == url {
			return true
		}
	}
	return false
}

func (m *MergeSelection) Count() int { return len(m.urls) }

// URLs returns a copy in selection order.
func (m *MergeSelection) URLs() []string {
	return append([]string(nil), m.urls...)
}

// MergeOutcome is the per-style result of the most recent merge attempt.
type MergeOutcome struct {
	State     JobState
	MergedURL string
	Error     string
}
