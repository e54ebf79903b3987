package action

import (
	"context"
	"fmt"
	"maps"
	"time"

	"github.com/dagucloud/watcher/internal/cmn/duration"
	"github.com/dagucloud/watcher/internal/core"
	"github.com/dagucloud/watcher/internal/core/document"
	"github.com/google/uuid"
)

var _ core.Action = (*Index)(nil)

// Index writes the payload into the store. A payload holding a "_doc" array
// is written as one document per element; elements may set "_index" and "_id".
type Index struct {
	Index              string
	DocID              string
	ExecutionTimeField string
	Timeout            time.Duration

	store core.Store
}

type indexConfig struct {
	Index              string        `mapstructure:"index"`
	DocID              string        `mapstructure:"doc_id"`
	ExecutionTimeField string        `mapstructure:"execution_time_field"`
	Timeout            time.Duration `mapstructure:"timeout"`
}

func parseIndex(cfg map[string]any, store core.Store) (core.Action, error) {
	var c indexConfig
	if err := document.DecodeStruct(cfg, &c); err != nil {
		return nil, err
	}
	if c.Timeout < 0 {
		return nil, core.NewStageValidationError("action.index", "timeout", c.Timeout, core.ErrInvalidTimeout)
	}
	return &Index{
		Index:              c.Index,
		DocID:              c.DocID,
		ExecutionTimeField: c.ExecutionTimeField,
		Timeout:            c.Timeout,
		store:              store,
	}, nil
}

func (*Index) Type() string { return TypeIndex }

func (i *Index) Spec() any {
	out := document.Object()
	if i.Index != "" {
		out = append(out, document.KV("index", i.Index))
	}
	if i.DocID != "" {
		out = append(out, document.KV("doc_id", i.DocID))
	}
	if i.ExecutionTimeField != "" {
		out = append(out, document.KV("execution_time_field", i.ExecutionTimeField))
	}
	if i.Timeout > 0 {
		out = append(out, document.KV("timeout", duration.Format(i.Timeout)))
	}
	return out
}

func (i *Index) Execute(ctx context.Context, _ string, ec *core.ExecContext, payload core.Payload) (map[string]any, error) {
	if i.store == nil {
		return nil, fmt.Errorf("index action: no store configured")
	}
	if i.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, i.Timeout)
		defer cancel()
	}

	docs, bulk, err := i.requests(ec, payload)
	if err != nil {
		return nil, fmt.Errorf("index action: %w", err)
	}
	responses := make([]any, 0, len(docs))
	for n, req := range docs {
		resp, err := i.store.Index(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("index action: document %d: %w", n, err)
		}
		responses = append(responses, map[string]any{
			"index":   resp.Index,
			"id":      resp.ID,
			"created": resp.Created,
			"version": resp.Version,
		})
	}
	if bulk {
		return map[string]any{"index": map[string]any{"response": responses}}, nil
	}
	return map[string]any{"index": map[string]any{"response": responses[0]}}, nil
}

func (i *Index) requests(ec *core.ExecContext, payload core.Payload) ([]core.IndexRequest, bool, error) {
	raw, bulk := payload["_doc"].([]any)
	if !bulk {
		req, err := i.request(ec, map[string]any(payload), i.DocID)
		if err != nil {
			return nil, false, err
		}
		return []core.IndexRequest{req}, false, nil
	}
	reqs := make([]core.IndexRequest, 0, len(raw))
	for n, item := range raw {
		doc, ok := item.(map[string]any)
		if !ok {
			return nil, true, fmt.Errorf("_doc[%d] must be an object, got %T", n, item)
		}
		req, err := i.request(ec, doc, "")
		if err != nil {
			return nil, true, fmt.Errorf("_doc[%d]: %w", n, err)
		}
		reqs = append(reqs, req)
	}
	return reqs, true, nil
}

func (i *Index) request(ec *core.ExecContext, doc map[string]any, id string) (core.IndexRequest, error) {
	doc = maps.Clone(doc)
	if doc == nil {
		doc = map[string]any{}
	}
	index := i.Index
	if v, ok := doc["_index"].(string); ok {
		index = v
		delete(doc, "_index")
	}
	if v, ok := doc["_id"].(string); ok {
		id = v
		delete(doc, "_id")
	}
	if index == "" {
		return core.IndexRequest{}, fmt.Errorf("no index given in config or document")
	}
	if id == "" {
		id = uuid.NewString()
	}
	if i.ExecutionTimeField != "" {
		doc[i.ExecutionTimeField] = ec.ExecutionTime.UTC().Format(time.RFC3339Nano)
	}
	return core.IndexRequest{Index: index, ID: id, Document: doc}, nil
}
