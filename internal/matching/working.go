package matching

// workingSet is an insertion-ordered set of IDs. It holds no order data;
// the history arena owns the records.
type workingSet struct {
	ids   []string
	index map[string]struct{}
}

func newWorkingSet() *workingSet {
	return &workingSet{index: make(map[string]struct{})}
}

func (w *workingSet) add(id string) {
	if _, ok := w.index[id]; ok {
		return
	}
	w.index[id] = struct{}{}
	w.ids = append(w.ids, id)
}

func (w *workingSet) has(id string) bool {
	_, ok := w.index[id]
	return ok
}

func (w *workingSet) remove(id string) bool {
	if _, ok := w.index[id]; !ok {
		return false
	}
	delete(w.index, id)
	for i, v := range w.ids {
		if v == id {
			w.ids = append(w.ids[:i], w.ids[i+1:]...)
			break
		}
	}
	return true
}

// snapshot returns a copy of the IDs in insertion order.
func (w *workingSet) snapshot() []string {
	out := make([]string, len(w.ids))
	copy(out, w.ids)
	return out
}

func (w *workingSet) len() int {
	return len(w.ids)
}
