package semantic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// RemoteEmbedder returns an Embedder backed by an external embedding
// service: POST {"text": ...} to url, expect {"embedding": [...]}.
// The returned function is safe for parallel invocation.
func RemoteEmbedder(url string) Embedder {
	client := &http.Client{Timeout: 30 * time.Second}

	return func(ctx context.Context, data []byte) ([]float32, error) {
		body, err := json.Marshal(map[string]string{"text": string(data)})
		if err != nil {
			return nil, fmt.Errorf("failed to encode embedding request: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("failed to build embedding request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		res, err := client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("failed to call embedder: %w", err)
		}
		defer res.Body.Close()

		if res.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("embedder returned status %d", res.StatusCode)
		}

		var out struct {
			Embedding []float32 `json:"embedding"`
		}
		if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
			return nil, fmt.Errorf("failed to decode embedding response: %w", err)
		}
		if len(out.Embedding) == 0 {
			return nil, fmt.Errorf("embedder returned an empty vector")
		}
		return out.Embedding, nil
	}
}
