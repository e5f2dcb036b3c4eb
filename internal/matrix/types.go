package matrix

// OrderedMap is a string keyed map that remembers insertion order.
// Setting an existing key replaces its value but keeps its original position.
type OrderedMap[V any] struct {
	keys   []string
	values map[string]V
}

func NewOrderedMap[V any]() *OrderedMap[V] {
	return &OrderedMap[V]{values: map[string]V{}}
}

func (m *OrderedMap[V]) Set(key string, value V) {
	if m.values == nil {
		m.values = map[string]V{}
	}
	if _, exists := m.values[key]; !exists {
		m.keys = append(m.keys, key)
	}
	m.values[key] = value
}

func (m *OrderedMap[V]) Get(key string) (V, bool) {
	v, ok := m.values[key]
	return v, ok
}

func (m *OrderedMap[V]) Len() int {
	return len(m.keys)
}

// Keys returns a copy of the keys in insertion order.
func (m *OrderedMap[V]) Keys() []string {
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

func (m *OrderedMap[V]) Each(fn func(key string, value V)) {
	for _, k := range m.keys {
		fn(k, m.values[k])
	}
}

// ReleaseMap maps an ansible community release version to the ansible-core
// version it depends on.
type ReleaseMap = OrderedMap[string]

// CoreMap maps an ansible-core version to the controller python versions
// it supports.
type CoreMap = OrderedMap[[]string]

func NewReleaseMap() *ReleaseMap {
	return NewOrderedMap[string]()
}

func NewCoreMap() *CoreMap {
	return NewOrderedMap[[]string]()
}

// VersionPair is one entry of the workflow build matrix.
type VersionPair struct {
	Ansible string `json:"ansible" yaml:"ansible"`
	Python  string `json:"python" yaml:"python"`
	Tag     string `json:"tag" yaml:"tag"`
}
