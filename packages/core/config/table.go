package config

// Table is the static lookup table reporters render from: message templates
// keyed by name and a color name per category. A Table is never mutated after
// construction; every accessor hands out values, not the underlying maps.
type Table struct {
	strings map[string]string
	colors  map[string]string
}

// NewTable creates a table from copies of the given maps
func NewTable(strings, colors map[string]string) Table {
	return Table{
		strings: copyMap(strings),
		colors:  copyMap(colors),
	}
}

// String returns the template registered under key
func (t Table) String(key string) (string, bool) {
	s, ok := t.strings[key]
	return s, ok
}

// Color returns the color name assigned to a category
func (t Table) Color(category string) (string, bool) {
	c, ok := t.colors[category]
	return c, ok
}

// Strings returns a copy of all templates
func (t Table) Strings() map[string]string {
	return copyMap(t.strings)
}

// Colors returns a copy of all category colors
func (t Table) Colors() map[string]string {
	return copyMap(t.colors)
}

// With returns a new table where the given entries replace or extend t.
func (t Table) With(strings, colors map[string]string) Table {
	merged := NewTable(t.strings, t.colors)
	for k, v := range strings {
		merged.strings[k] = v
	}
	for k, v := range colors {
		merged.colors[k] = v
	}
	return merged
}

func copyMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
