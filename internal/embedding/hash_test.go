package embedding

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashClient(t *testing.T) {
	client, err := NewClient("hash", WithDimensions(64))
	require.NoError(t, err)
	assert.Equal(t, "hash", client.Name())

	ctx := context.Background()
	a, err := client.Embed(ctx, "The capital of France is Paris.")
	require.NoError(t, err)
	assert.Len(t, a, 64)

	b, err := client.Embed(ctx, "the CAPITAL of france is paris")
	require.NoError(t, err)
	assert.Equal(t, a, b, "case and punctuation do not change the vector")

	var norm float32
	for _, v := range a {
		norm += v * v
	}
	assert.InDelta(t, 1.0, norm, 1e-5)

	_, err = client.Embed(ctx, " ... ")
	assert.True(t, IsEmbeddingError(err))

	vecs, err := client.EmbedBatch(ctx, []string{"one", "two"})
	require.NoError(t, err)
	assert.Len(t, vecs, 2)
}
