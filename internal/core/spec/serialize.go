package spec

import (
	"github.com/dagucloud/watcher/internal/cmn/duration"
	"github.com/dagucloud/watcher/internal/core"
	"github.com/dagucloud/watcher/internal/core/document"
	"github.com/dagucloud/watcher/internal/stage"
	"github.com/dagucloud/watcher/internal/stage/action"
	"github.com/goccy/go-yaml"
)

// Serialize renders a watch as an ordered document. The status is always
// included; the watch id and version are not part of the document.
func Serialize(w *core.Watch) yaml.MapSlice {
	out := document.Object(
		document.KV(keyTrigger, document.Object(document.KV(w.Trigger.Type(), w.Trigger.Spec()))),
	)
	if w.Input != nil {
		out = append(out, document.KV(keyInput, stage.Spec(w.Input)))
	}
	if w.Condition != nil {
		out = append(out, document.KV(keyCondition, stage.Spec(w.Condition)))
	}
	if w.Transform != nil {
		out = append(out, document.KV(keyTransform, stage.Spec(w.Transform)))
	}
	if w.ThrottlePeriod > 0 {
		out = append(out, document.KV(keyThrottlePeriod, duration.Format(w.ThrottlePeriod)))
	}
	if len(w.Metadata) > 0 {
		out = append(out, document.KV(keyMetadata, document.Ordered(w.Metadata)))
	}
	actions := document.Object()
	for _, a := range w.Actions {
		actions = append(actions, document.KV(a.ID, action.WrapperSpec(a)))
	}
	out = append(out, document.KV(keyActions, actions))
	return append(out, document.KV(keyStatus, w.Status.Spec()))
}

// Encode serializes a watch and encodes it in format.
func Encode(w *core.Watch, format document.Format) ([]byte, error) {
	return document.Encode(Serialize(w), format)
}
