package ingest

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cairnstack/ontograph/cache"
	"github.com/cairnstack/ontograph/errors"
	"github.com/cairnstack/ontograph/metrics"
	"github.com/cairnstack/ontograph/ontology"
	"github.com/cairnstack/ontograph/storage"
)

func relRecord(head, tail, edgeType, confidence string) Record {
	return Record{Relationship: &RelationshipRecord{
		HeadEntity: head, TailEntity: tail, EdgeType: edgeType, Confidence: confidence,
	}}
}

func entityRecord(id, name string, meta map[string]string) Record {
	return Record{Entity: &EntityRecord{ID: id, Name: name, Metadata: meta}}
}

func TestPipelineSkipsBadRecordsWithoutAbortingBatch(t *testing.T) {
	store := storage.NewMemoryStore()
	pipeline := New(store, nil, Config{Workers: 1}, metrics.Nop{})

	src := NewSliceSource([]Record{
		relRecord("dog", "animal", "SubclassOf", "0.9"),
		relRecord("dog", "animal", "FriendOf", "0.9"),   // unknown edge type
		relRecord("dog", "animal", "SubclassOf", "abc"), // unparseable confidence
		relRecord("dog", "animal", "SubclassOf", "1.5"), // out of range
		relRecord("dog", "animal", "SubclassOf", "NaN"), // parses as a float but is no confidence
		relRecord("", "animal", "SubclassOf", "0.9"),    // empty head
		entityRecord("", "Nameless", nil),               // empty entity id
		entityRecord("cat", "Cat", nil),
	})

	stats, err := pipeline.Run(context.Background(), src)
	require.NoError(t, err)

	assert.Equal(t, 2, stats.Accepted)
	assert.Equal(t, 6, stats.Rejected)
	assert.Equal(t, 1, store.RelationshipCount())
	assert.Equal(t, 1, store.EntityCount())
}

func TestPipelineDeduplicatesWithinBatchLastWins(t *testing.T) {
	store := storage.NewMemoryStore()
	pipeline := New(store, nil, Config{Workers: 1}, metrics.Nop{})

	src := NewSliceSource([]Record{
		relRecord("dog", "animal", "SubclassOf", "0.3"),
		relRecord("dog", "animal", "SubclassOf", "0.9"),
		entityRecord("dog", "Dog", map[string]string{"rank": "1"}),
		entityRecord("dog", "Dog", map[string]string{"rank": "2"}),
	})

	stats, err := pipeline.Run(context.Background(), src)
	require.NoError(t, err)

	assert.Equal(t, 4, stats.Accepted)
	assert.Equal(t, 1, stats.Relationships)
	assert.Equal(t, 1, stats.Entities)

	rels, err := store.GetRelationshipsByHead(context.Background(), "dog", ontology.SubclassOf)
	require.NoError(t, err)
	require.Len(t, rels, 1)
	assert.Equal(t, 0.9, rels[0].Confidence)

	entity, err := store.GetEntity(context.Background(), "dog")
	require.NoError(t, err)
	assert.Equal(t, "2", entity.Metadata["rank"])
}

func TestPipelineInvalidatesCacheOnCommit(t *testing.T) {
	store := storage.NewMemoryStore()
	resultCache := cache.New(16, time.Minute, metrics.Nop{})
	question := ontology.Question{Type: ontology.SubclassOf, Subject: "dog", Object: "animal"}
	resultCache.Put(question, ontology.QueryResult{Outcome: ontology.Yes, Confidence: 0.9})
	require.Equal(t, 1, resultCache.Len())

	pipeline := New(store, resultCache, Config{Workers: 1}, metrics.Nop{})
	_, err := pipeline.Run(context.Background(), NewSliceSource([]Record{
		relRecord("cat", "animal", "SubclassOf", "0.8"),
	}))
	require.NoError(t, err)

	assert.Equal(t, 0, resultCache.Len())
}

func TestPipelineFlushesBySize(t *testing.T) {
	store := storage.NewMemoryStore()
	pipeline := New(store, nil, Config{Workers: 1, BatchSize: 2}, metrics.Nop{})

	src := NewSliceSource([]Record{
		relRecord("a", "b", "SubclassOf", "0.9"),
		relRecord("b", "c", "SubclassOf", "0.9"),
		relRecord("c", "d", "SubclassOf", "0.9"),
		relRecord("d", "e", "SubclassOf", "0.9"),
		relRecord("e", "f", "SubclassOf", "0.9"),
	})

	stats, err := pipeline.Run(context.Background(), src)
	require.NoError(t, err)

	// Two full batches plus the final partial flush on drain.
	assert.Equal(t, 3, stats.Batches)
	assert.Equal(t, 5, store.RelationshipCount())
}

func TestPipelineFlushesByInterval(t *testing.T) {
	store := storage.NewMemoryStore()
	pipeline := New(store, nil, Config{
		Workers:       1,
		BatchSize:     1000,
		FlushInterval: 20 * time.Millisecond,
	}, metrics.Nop{})

	stream := NewStreamSource(8, 8)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = pipeline.Run(context.Background(), stream)
	}()

	require.NoError(t, stream.Submit(context.Background(), relRecord("a", "b", "SubclassOf", "0.9")))

	// The batch is far below BatchSize, so only the interval can flush it.
	assert.Eventually(t, func() bool {
		return store.RelationshipCount() == 1
	}, 2*time.Second, 5*time.Millisecond)

	stream.Close()
	<-done
}

type writeFailingStore struct {
	*storage.MemoryStore
	err error
}

func (s *writeFailingStore) StoreRelationships(ctx context.Context, rels []ontology.Relationship) error {
	return s.err
}

func TestPipelineSurfacesStorageFailure(t *testing.T) {
	store := &writeFailingStore{
		MemoryStore: storage.NewMemoryStore(),
		err:         errors.NewTransient(errors.New("disk full"), "write"),
	}
	pipeline := New(store, nil, Config{Workers: 2}, metrics.Nop{})

	_, err := pipeline.Run(context.Background(), NewSliceSource([]Record{
		relRecord("dog", "animal", "SubclassOf", "0.9"),
	}))

	require.Error(t, err)
	assert.True(t, errors.IsTransient(err))
}

func TestPipelineCancellation(t *testing.T) {
	store := storage.NewMemoryStore()
	pipeline := New(store, nil, Config{Workers: 1}, metrics.Nop{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := pipeline.Run(ctx, NewStreamSource(8, 8))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPipelineEmitsMetrics(t *testing.T) {
	store := storage.NewMemoryStore()
	sink := metrics.NewMemory()
	pipeline := New(store, nil, Config{Workers: 1}, sink)

	_, err := pipeline.Run(context.Background(), NewSliceSource([]Record{
		relRecord("dog", "animal", "SubclassOf", "0.9"),
		relRecord("dog", "animal", "FriendOf", "0.9"),
	}))
	require.NoError(t, err)

	assert.Equal(t, int64(1), sink.Counter(metrics.IngestAccepted, nil))
	assert.Equal(t, int64(1), sink.Counter(metrics.IngestRejected, nil))
	assert.Equal(t, int64(1), sink.Counter(metrics.IngestBatches, nil))
}

func TestRelationshipCSVSource(t *testing.T) {
	input := strings.Join([]string{
		"HEAD_ENTITY,TAIL_ENTITY,EDGE_TYPE,CONFIDENCE",
		"dog,animal,SubclassOf,0.9",
		"only,three,columns", // framing error, skipped at the source
		"Fido,dog,InstanceOf,1.0",
	}, "\n")

	src := NewRelationshipCSVSource(strings.NewReader(input), 10)
	records, err := src.Next(context.Background())
	require.NoError(t, err)

	require.Len(t, records, 2)
	assert.Equal(t, 1, src.Skipped())
	assert.Equal(t, "dog", records[0].Relationship.HeadEntity)
	assert.Equal(t, "InstanceOf", records[1].Relationship.EdgeType)
}

func TestRelationshipCSVSourceRejectsWrongHeader(t *testing.T) {
	src := NewRelationshipCSVSource(strings.NewReader("A,B,C,D\n"), 10)
	_, err := src.Next(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsValidationError(err))
}

func TestEntityCSVSourceMetadataPacking(t *testing.T) {
	input := strings.Join([]string{
		"ID,NAME,METADATA",
		"dog,Dog,origin=kennel;rank=1",
		"cat,Cat,",
		"bird,Bird,notapair", // malformed metadata, skipped
	}, "\n")

	src := NewEntityCSVSource(strings.NewReader(input), 10)
	records, err := src.Next(context.Background())
	require.NoError(t, err)

	require.Len(t, records, 2)
	assert.Equal(t, 1, src.Skipped())
	assert.Equal(t, map[string]string{"origin": "kennel", "rank": "1"}, records[0].Entity.Metadata)
	assert.Nil(t, records[1].Entity.Metadata)
}

func TestCSVSourceChunking(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("HEAD_ENTITY,TAIL_ENTITY,EDGE_TYPE,CONFIDENCE\n")
	for i := 0; i < 5; i++ {
		sb.WriteString("a,b,SubclassOf,0.5\n")
	}

	src := NewRelationshipCSVSource(strings.NewReader(sb.String()), 2)
	sizes := []int{}
	for {
		records, err := src.Next(context.Background())
		if err != nil {
			break
		}
		sizes = append(sizes, len(records))
	}
	assert.Equal(t, []int{2, 2, 1}, sizes)
}

func TestStreamSourceBackpressure(t *testing.T) {
	stream := NewStreamSource(1, 8)
	require.NoError(t, stream.Submit(context.Background(), relRecord("a", "b", "SubclassOf", "0.9")))

	// Buffer is full; a bounded-wait Submit must give up rather than land.
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := stream.Submit(ctx, relRecord("b", "c", "SubclassOf", "0.9"))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestStreamSourceDrainsBufferedAfterClose(t *testing.T) {
	stream := NewStreamSource(4, 8)
	require.NoError(t, stream.Submit(context.Background(), relRecord("a", "b", "SubclassOf", "0.9")))
	require.NoError(t, stream.Submit(context.Background(), relRecord("b", "c", "SubclassOf", "0.9")))
	stream.Close()

	records, err := stream.Next(context.Background())
	require.NoError(t, err)
	assert.Len(t, records, 2)

	_, err = stream.Next(context.Background())
	assert.ErrorIs(t, err, io.EOF)
}

func TestParseMetadata(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    map[string]string
		wantErr bool
	}{
		{name: "empty", input: "", want: nil},
		{name: "single pair", input: "k=v", want: map[string]string{"k": "v"}},
		{name: "multiple pairs", input: "a=1;b=2", want: map[string]string{"a": "1", "b": "2"}},
		{name: "trailing semicolon", input: "a=1;", want: map[string]string{"a": "1"}},
		{name: "empty value", input: "a=", want: map[string]string{"a": ""}},
		{name: "no separator", input: "nope", wantErr: true},
		{name: "empty key", input: "=v", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseMetadata(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
