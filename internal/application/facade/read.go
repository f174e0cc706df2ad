package facade

import (
	"context"
	"log/slog"

	docStore "memberdesk/internal/adapters/storage/document"
	"memberdesk/internal/domain/document"
)

// record is a domain type that takes its id from the document key.
type record[T any] interface {
	*T
	SetID(id string)
}

// queryRecords runs q and decodes every document into T.
func queryRecords[T any, P record[T]](ctx context.Context, store docStore.Store, q document.Query) ([]T, error) {
	docs, err := store.Query(ctx, q)
	if err != nil {
		slog.Error("store_event", "event", "query_failed", "collection", q.Collection, "error", err)
		return nil, err
	}
	out := make([]T, 0, len(docs))
	for _, d := range docs {
		var v T
		if err := d.Decode(&v); err != nil {
			slog.Error("store_event", "event", "decode_failed", "collection", q.Collection, "id", d.ID, "error", err)
			return nil, err
		}
		P(&v).SetID(d.ID)
		out = append(out, v)
	}
	return out, nil
}

// getRecord fetches and decodes one document into T.
func getRecord[T any, P record[T]](ctx context.Context, store docStore.Store, collection, id string) (T, error) {
	var v T
	d, err := store.Get(ctx, collection, id)
	if err != nil {
		slog.Error("store_event", "event", "get_failed", "collection", collection, "id", id, "error", err)
		return v, err
	}
	if err := d.Decode(&v); err != nil {
		return v, err
	}
	P(&v).SetID(d.ID)
	return v, nil
}
