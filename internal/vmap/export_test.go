package vmap

// SetModelLoader replaces the model file parser of m.
func SetModelLoader(m *Manager, load func(path string) (*WorldModel, error)) {
	m.loadModel = load
}
