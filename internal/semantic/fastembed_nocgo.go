//go:build !cgo

package semantic

import "fmt"

// FastEmbedConfig selects the local ONNX model.
type FastEmbedConfig struct {
	Model     string
	CacheDir  string
	MaxLength int
}

// FastEmbedLoader reports the model as unavailable: fastembed requires cgo.
func FastEmbedLoader(_ FastEmbedConfig) Loader {
	return func() (Embedder, error) {
		return nil, fmt.Errorf("%w: binary built without cgo", ErrModelUnavailable)
	}
}
