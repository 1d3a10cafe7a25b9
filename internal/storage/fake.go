package storage

import (
	"strings"
	"sync"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/zakazai/ulin-grid/internal/types"
)

// fakeSource generates synthetic cell values: 1 to 3 lorem words for TEXT,
// an integer in [1, 100] for NUMBER.
type fakeSource struct {
	mu    sync.Mutex
	faker *gofakeit.Faker
}

// newFakeSource seeds the generator; seed 0 picks a random seed.
func newFakeSource(seed int64) *fakeSource {
	return &fakeSource{faker: gofakeit.New(seed)}
}

func (f *fakeSource) value(col types.Column) types.Value {
	f.mu.Lock()
	defer f.mu.Unlock()

	if col.Type == types.ColumnNumber {
		return types.Number(float64(f.faker.Number(1, 100)))
	}
	words := make([]string, f.faker.Number(1, 3))
	for i := range words {
		words[i] = f.faker.LoremIpsumWord()
	}
	return types.Text(strings.Join(words, " "))
}
