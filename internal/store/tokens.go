package store

import (
	"log"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

var (
	encodingOnce sync.Once
	encoding     *tiktoken.Tiktoken
)

// countTokens counts BPE tokens with the cl100k_base encoding. When the
// encoding cannot be loaded (offline environments) it falls back to a
// bytes/4 estimate.
func countTokens(text string) int {
	encodingOnce.Do(func() {
		enc, err := tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			log.Printf("[store] load token encoding: %v, using byte estimate", err)
			return
		}
		encoding = enc
	})
	if encoding == nil {
		return len(text)/4 + 1
	}
	return len(encoding.Encode(text, nil, nil))
}
