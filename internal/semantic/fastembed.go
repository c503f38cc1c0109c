//go:build cgo

package semantic

import (
	"context"
	"fmt"
	"sync"

	fastembed "github.com/anush008/fastembed-go"
)

var modelMapping = map[string]fastembed.EmbeddingModel{
	"BAAI/bge-small-en-v1.5":                 fastembed.BGESmallENV15,
	"BAAI/bge-small-en":                      fastembed.BGESmallEN,
	"BAAI/bge-base-en-v1.5":                  fastembed.BGEBaseENV15,
	"BAAI/bge-base-en":                       fastembed.BGEBaseEN,
	"sentence-transformers/all-MiniLM-L6-v2": fastembed.AllMiniLML6V2,
}

// FastEmbedConfig selects the local ONNX model.
type FastEmbedConfig struct {
	Model     string
	CacheDir  string
	MaxLength int
}

// FastEmbedLoader returns a Loader backed by fastembed-go.
func FastEmbedLoader(cfg FastEmbedConfig) Loader {
	return func() (Embedder, error) {
		model, ok := modelMapping[cfg.Model]
		if !ok {
			return nil, fmt.Errorf("%w: unsupported model %q", ErrModelUnavailable, cfg.Model)
		}
		cacheDir := cfg.CacheDir
		if cacheDir == "" {
			cacheDir = "local_cache"
		}
		maxLength := cfg.MaxLength
		if maxLength == 0 {
			maxLength = 128
		}
		showProgress := false

		fe, err := fastembed.NewFlagEmbedding(&fastembed.InitOptions{
			Model:                model,
			CacheDir:             cacheDir,
			MaxLength:            maxLength,
			ShowDownloadProgress: &showProgress,
		})
		if err != nil {
			return nil, fmt.Errorf("initializing fastembed: %w", err)
		}
		return &fastEmbedder{model: fe}, nil
	}
}

type fastEmbedder struct {
	mu    sync.RWMutex
	model *fastembed.FlagEmbedding
}

// Embed runs inference off the caller's goroutine so that ctx expiry returns
// promptly. The abandoned call finishes in the background.
func (e *fastEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	type result struct {
		vecs [][]float32
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		e.mu.RLock()
		defer e.mu.RUnlock()
		if e.model == nil {
			ch <- result{err: ErrNotLoaded}
			return
		}
		vecs, err := e.model.PassageEmbed(texts, len(texts))
		ch <- result{vecs, err}
	}()

	select {
	case r := <-ch:
		if r.err != nil {
			return nil, fmt.Errorf("fastembed: %w", r.err)
		}
		return r.vecs, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (e *fastEmbedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.model == nil {
		return nil
	}
	err := e.model.Destroy()
	e.model = nil
	return err
}
