package semantic

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"

	"github.com/thomascherickal/bloop.ai/pkg/log"
)

// QdrantConfig holds connection settings for the qdrant gRPC endpoint.
type QdrantConfig struct {
	Host   string
	Port   int
	UseTLS bool

	// MaxRecvMsgSize bounds responses; 0 uses the client default.
	MaxRecvMsgSize int
}

// Qdrant implements VectorStore against a qdrant server.
type Qdrant struct {
	client *qdrant.Client
}

// NewQdrant connects to the configured qdrant endpoint.
func NewQdrant(cfg QdrantConfig) (*Qdrant, error) {
	var opts []grpc.DialOption
	if cfg.MaxRecvMsgSize > 0 {
		opts = append(opts, grpc.WithDefaultCallOptions(grpc.MaxCallRecvMsgSize(cfg.MaxRecvMsgSize)))
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:        cfg.Host,
		Port:        cfg.Port,
		UseTLS:      cfg.UseTLS,
		GrpcOptions: opts,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to qdrant: %w", err)
	}

	return &Qdrant{client: client}, nil
}

// EnsureCollection creates the collection if it does not exist yet.
func (q *Qdrant) EnsureCollection(ctx context.Context, collection string, dim uint64) error {
	exists, err := q.client.CollectionExists(ctx, collection)
	if err != nil {
		return fmt.Errorf("failed to check collection: %w", err)
	}
	if exists {
		return nil
	}

	logger := log.WithComponent("semantic")
	logger.Info().Str("collection", collection).Uint64("dim", dim).Msg("creating vector collection")

	err = q.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     dim,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection %s: %w", collection, err)
	}
	return nil
}

// UpsertPoints writes a batch of points. Upsert is used rather than
// insert: point ids are content-derived, so replaying a batch after a
// partial failure converges on the same state.
func (q *Qdrant) UpsertPoints(ctx context.Context, collection string, points []Point) error {
	qp := make([]*qdrant.PointStruct, len(points))
	for i, p := range points {
		qp[i] = &qdrant.PointStruct{
			Id:      qdrant.NewID(p.ID.String()),
			Vectors: qdrant.NewVectors(p.Vector...),
			Payload: qdrant.NewValueMap(p.Payload.Map()),
		}
	}

	_, err := q.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: collection,
		Points:         qp,
	})
	if err != nil {
		return fmt.Errorf("failed to upsert %d points: %w", len(points), err)
	}
	return nil
}

// DeletePoints removes points by id.
func (q *Qdrant) DeletePoints(ctx context.Context, collection string, ids []uuid.UUID) error {
	_, err := q.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: collection,
		Points:         qdrant.NewPointsSelector(pointIDs(ids)...),
	})
	if err != nil {
		return fmt.Errorf("failed to delete %d points: %w", len(ids), err)
	}
	return nil
}

// SetPayload overwrites the given payload keys on the selected points.
func (q *Qdrant) SetPayload(ctx context.Context, collection string, ids []uuid.UUID, payload map[string]any) error {
	_, err := q.client.SetPayload(ctx, &qdrant.SetPayloadPoints{
		CollectionName: collection,
		Payload:        qdrant.NewValueMap(payload),
		PointsSelector: qdrant.NewPointsSelector(pointIDs(ids)...),
	})
	if err != nil {
		return fmt.Errorf("failed to set payload on %d points: %w", len(ids), err)
	}
	return nil
}

// Close tears down the underlying gRPC channel.
func (q *Qdrant) Close() error {
	return q.client.Close()
}

func pointIDs(ids []uuid.UUID) []*qdrant.PointId {
	out := make([]*qdrant.PointId, len(ids))
	for i, id := range ids {
		out[i] = qdrant.NewID(id.String())
	}
	return out
}
