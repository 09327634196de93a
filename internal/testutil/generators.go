// Package testutil provides test data generators.
package testutil

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/NYPL/snowsync/types"
)

// TestDataGenerator produces deterministic fixture data from a seed so
// large listing and execution tests stay reproducible.
type TestDataGenerator struct {
	rand *rand.Rand
}

// NewTestDataGenerator creates a new test data generator with a seeded random source.
func NewTestDataGenerator(seed int64) *TestDataGenerator {
	return &TestDataGenerator{
		rand: rand.New(rand.NewSource(seed)),
	}
}

// GenerateData produces size bytes from the seeded source.
func (g *TestDataGenerator) GenerateData(size int) []byte {
	data := make([]byte, size)
	for i := range data {
		data[i] = byte(g.rand.Intn(256))
	}
	return data
}

// GenerateKeys produces count keys under prefix, zero-padded so listing
// order matches generation order.
func (g *TestDataGenerator) GenerateKeys(count int, prefix string) []string {
	keys := make([]string, count)
	for i := range keys {
		keys[i] = fmt.Sprintf("%sobject-%04d.txt", prefix, i)
	}
	return keys
}

// GenerateEntries produces count listing entries under prefix with
// deterministic sizes and increasing timestamps.
func (g *TestDataGenerator) GenerateEntries(count int, prefix string) []types.ObjectEntry {
	baseTime := time.Unix(1700000000, 0).UTC()

	keys := g.GenerateKeys(count, prefix)
	entries := make([]types.ObjectEntry, count)
	for i, key := range keys {
		size := int64(g.rand.Intn(1000000) + 1000) // 1KB to 1MB
		entries[i] = types.ObjectEntry{
			Key:          key,
			Size:         size,
			LastModified: baseTime.Add(time.Duration(i) * time.Minute),
			StorageClass: string(types.StorageClassStandard),
			ETag:         RawETag([]byte(key)),
		}
	}
	return entries
}

// SeedStore seeds store with count small objects under prefix and returns
// the stored entries in key order.
func (g *TestDataGenerator) SeedStore(store *MemStore, count int, prefix string) []types.ObjectEntry {
	keys := g.GenerateKeys(count, prefix)
	entries := make([]types.ObjectEntry, count)
	for i, key := range keys {
		data := g.GenerateData(g.rand.Intn(512) + 16)
		entries[i] = store.Seed(key, data)
	}
	return entries
}
