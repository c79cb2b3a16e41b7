package retriever

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"Mimic_1.0/internal/database/milvus"
	"Mimic_1.0/internal/embedding"
	"Mimic_1.0/internal/models"
	"Mimic_1.0/pkg/logger"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
)

const (
	fieldID        = "id"
	fieldEmbedding = "embedding"
)

// MilvusDenseIndex is a DenseIndex backed by a Milvus collection, for corpora
// too large to keep in process memory. The collection is rebuilt from the
// fact corpus on every load so it always mirrors the current ingestion.
type MilvusDenseIndex struct {
	log        *logger.Logger
	cli        client.Client
	embedder   embedding.Embedding
	collection string
	idToIndex  map[string]int
	empty      bool
}

// NewMilvusDenseIndex embeds the corpus and (re)builds the backing collection.
// An empty corpus skips both the oracle and Milvus entirely.
func NewMilvusDenseIndex(
	ctx context.Context,
	milvusClient *milvus.MilvusClient,
	embedder embedding.Embedding,
	facts []*models.Fact,
	log *logger.Logger,
) (*MilvusDenseIndex, error) {
	if milvusClient == nil || milvusClient.Client == nil {
		return nil, fmt.Errorf("milvus client is not initialized")
	}

	idx := &MilvusDenseIndex{
		log:        log,
		cli:        milvusClient.Client,
		embedder:   embedder,
		collection: milvusClient.Config.CollectionName,
		idToIndex:  make(map[string]int, len(facts)),
		empty:      len(facts) == 0,
	}
	if idx.empty {
		return idx, nil
	}

	texts := make([]string, len(facts))
	ids := make([]string, len(facts))
	for i, fact := range facts {
		texts[i] = fact.Text
		ids[i] = fact.ID
		idx.idToIndex[fact.ID] = i
	}

	vectors, err := embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("failed to embed fact corpus: %w", err)
	}
	if len(vectors) != len(facts) {
		return nil, fmt.Errorf("embedding oracle returned %d vectors for %d facts", len(vectors), len(facts))
	}

	if err := idx.rebuildCollection(ctx, ids, vectors); err != nil {
		return nil, err
	}
	return idx, nil
}

// rebuildCollection drops any stale collection and loads the fresh corpus.
func (idx *MilvusDenseIndex) rebuildCollection(ctx context.Context, ids []string, vectors [][]float32) error {
	exists, err := idx.cli.HasCollection(ctx, idx.collection)
	if err != nil {
		return fmt.Errorf("failed to check collection %s: %w", idx.collection, err)
	}
	if exists {
		if err := idx.cli.DropCollection(ctx, idx.collection); err != nil {
			return fmt.Errorf("failed to drop stale collection %s: %w", idx.collection, err)
		}
	}

	dim := len(vectors[0])
	schema := &entity.Schema{
		CollectionName: idx.collection,
		Description:    "persona fact embeddings",
		Fields: []*entity.Field{
			{
				Name:       fieldID,
				DataType:   entity.FieldTypeVarChar,
				PrimaryKey: true,
				TypeParams: map[string]string{"max_length": "64"},
			},
			{
				Name:       fieldEmbedding,
				DataType:   entity.FieldTypeFloatVector,
				TypeParams: map[string]string{"dim": strconv.Itoa(dim)},
			},
		},
	}
	if err := idx.cli.CreateCollection(ctx, schema, 1); err != nil {
		return fmt.Errorf("failed to create collection %s: %w", idx.collection, err)
	}

	vectorIndex, err := entity.NewIndexIvfFlat(entity.COSINE, 128)
	if err != nil {
		return fmt.Errorf("failed to build index definition: %w", err)
	}
	if err := idx.cli.CreateIndex(ctx, idx.collection, fieldEmbedding, vectorIndex, false); err != nil {
		return fmt.Errorf("failed to create vector index: %w", err)
	}

	idCol := entity.NewColumnVarChar(fieldID, ids)
	embeddingCol := entity.NewColumnFloatVector(fieldEmbedding, dim, vectors)
	if _, err := idx.cli.Insert(ctx, idx.collection, "", idCol, embeddingCol); err != nil {
		return fmt.Errorf("failed to insert fact embeddings: %w", err)
	}
	if err := idx.cli.Flush(ctx, idx.collection, false); err != nil {
		return fmt.Errorf("failed to flush collection: %w", err)
	}
	if err := idx.cli.LoadCollection(ctx, idx.collection, false); err != nil {
		return fmt.Errorf("failed to load collection: %w", err)
	}

	idx.log.Info(fmt.Sprintf("Rebuilt Milvus collection '%s' with %d fact embeddings", idx.collection, len(ids)))
	return nil
}

// Search embeds the query and runs a cosine similarity search in Milvus.
func (idx *MilvusDenseIndex) Search(ctx context.Context, query string, topK int) ([]IndexScore, error) {
	if idx.empty || topK <= 0 {
		return nil, nil
	}

	queryVec, err := idx.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	searchParams, err := entity.NewIndexIvfFlatSearchParam(10)
	if err != nil {
		return nil, fmt.Errorf("failed to build search params: %w", err)
	}

	searchResults, err := idx.cli.Search(
		ctx, idx.collection, nil, "", []string{fieldID},
		[]entity.Vector{entity.FloatVector(queryVec)},
		fieldEmbedding, entity.COSINE, topK, searchParams,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search in Milvus: %w", err)
	}

	var results []IndexScore
	for _, res := range searchResults {
		var idCol *entity.ColumnVarChar
		for _, field := range res.Fields {
			if col, ok := field.(*entity.ColumnVarChar); ok && col.Name() == fieldID {
				idCol = col
				break
			}
		}
		if idCol == nil {
			idx.log.Warn("Milvus search result is missing the id field, skipping.")
			continue
		}
		idData := idCol.Data()
		for i := 0; i < res.ResultCount && i < len(idData); i++ {
			corpusIdx, ok := idx.idToIndex[idData[i]]
			if !ok {
				continue
			}
			results = append(results, IndexScore{Index: corpusIdx, Score: clipUnit(float64(res.Scores[i]))})
		}
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Index < results[j].Index
	})
	return results, nil
}

var _ DenseIndex = (*MilvusDenseIndex)(nil)
