package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

var bucketEmbeddings = []byte("embeddings")

// Cache is a persistent Embedder decorator. Vectors are stored in a bbolt
// file under a namespace bucket (provider and model), keyed by the SHA-256
// of the text, so vocabulary and repeated sentences are embedded only once
// across runs.
type Cache struct {
	db        *bolt.DB
	next      Embedder
	namespace []byte
}

// OpenCache opens (or creates) the cache file at path in front of next.
func OpenCache(path string, next Embedder, namespace string) (*Cache, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening embedding cache: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		root, err := tx.CreateBucketIfNotExists(bucketEmbeddings)
		if err != nil {
			return err
		}
		_, err = root.CreateBucketIfNotExists([]byte(namespace))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing embedding cache: %w", err)
	}
	return &Cache{db: db, next: next, namespace: []byte(namespace)}, nil
}

// Close closes the underlying bbolt database.
func (c *Cache) Close() error {
	return c.db.Close()
}

// Embed serves cached vectors and forwards all misses to the wrapped
// embedder in a single batch.
func (c *Cache) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	result := make([][]float64, len(texts))
	var missIdx []int
	var missTexts []string

	err := c.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketEmbeddings).Bucket(c.namespace)
		for i, text := range texts {
			raw := b.Get(cacheKey(text))
			if raw == nil {
				missIdx = append(missIdx, i)
				missTexts = append(missTexts, text)
				continue
			}
			var vec []float64
			if err := json.Unmarshal(raw, &vec); err != nil {
				return fmt.Errorf("decoding cached embedding: %w", err)
			}
			result[i] = vec
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(missTexts) == 0 {
		return result, nil
	}

	vecs, err := c.next.Embed(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	if len(vecs) != len(missTexts) {
		return nil, fmt.Errorf("embedding cache: expected %d embeddings, got %d", len(missTexts), len(vecs))
	}

	err = c.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketEmbeddings).Bucket(c.namespace)
		for j, vec := range vecs {
			raw, err := json.Marshal(vec)
			if err != nil {
				return err
			}
			if err := b.Put(cacheKey(missTexts[j]), raw); err != nil {
				return err
			}
			result[missIdx[j]] = vec
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("writing embedding cache: %w", err)
	}
	return result, nil
}

// Len returns the number of cached vectors in this namespace.
func (c *Cache) Len() int {
	n := 0
	c.db.View(func(tx *bolt.Tx) error {
		n = tx.Bucket(bucketEmbeddings).Bucket(c.namespace).Stats().KeyN
		return nil
	})
	return n
}

func cacheKey(text string) []byte {
	sum := sha256.Sum256([]byte(text))
	return sum[:]
}
