package service

import (
	"github.com/dangerclosesec/masteradmin/internal/model"
	"github.com/dangerclosesec/masteradmin/internal/normalize"
)

// Merge combines a local and a remote collection of the same kind.
//
// Records are matched by natural key. Matched records take the remote value
// of every field the remote actually carries, empty values included, so the
// last writer wins per field. Fields the remote omits keep their local value.
// Sequence fields are unioned, and records only known locally are appended
// after the remote ones. Nothing in local is dropped. The result is
// normalized.
func Merge(kind model.Kind, local, remote []model.Record) []model.Record {
	// Presence has to be read before normalization fills in defaults.
	present := make([]map[string]bool, len(remote))
	for i, r := range remote {
		present[i] = normalize.Present(r, kind)
	}

	local = normalize.NormalizeAll(local, kind)
	remote = normalize.NormalizeAll(remote, kind)

	localByKey := make(map[string]model.Record, len(local))
	for _, r := range local {
		key := normalize.NaturalKey(kind, r)
		if _, dup := localByKey[key]; key != "" && !dup {
			localByKey[key] = r
		}
	}

	result := make([]model.Record, 0, len(local)+len(remote))
	seen := make(map[string]bool, len(remote))
	for i, r := range remote {
		key := normalize.NaturalKey(kind, r)
		if l, ok := localByKey[key]; ok && !seen[key] {
			r = mergeRecord(kind, l, r, present[i])
		}
		if key != "" {
			seen[key] = true
		}
		result = append(result, r)
	}

	for _, l := range local {
		key := normalize.NaturalKey(kind, l)
		if key != "" && seen[key] {
			continue
		}
		result = append(result, l)
	}

	return normalize.NormalizeAll(result, kind)
}

// mergeRecord overlays the fields present in remote onto local. Both records
// are normalized; present lists the known fields the remote sent before
// normalization. Sequence fields keep the union of both sides.
func mergeRecord(kind model.Kind, local, remote model.Record, present map[string]bool) model.Record {
	out := local.Clone()

	known := make(map[string]bool)
	for _, f := range normalize.Fields(kind) {
		known[f.Display] = true
		known[f.Canonical] = true
		if !present[f.Display] {
			continue
		}
		v := remote[f.Display]
		out[f.Display] = v
		if f.Canonical != f.Display {
			out[f.Canonical] = v
		}
	}
	for k, v := range remote {
		if !known[k] {
			out[k] = v
		}
	}

	// Both spellings must carry the union or normalization would pick the
	// display one and drop the rest.
	for _, f := range normalize.SequenceFields(kind) {
		merged := union(local.Strings(f.Display), remote.Strings(f.Display))
		out[f.Display] = merged
		out[f.Canonical] = append([]string{}, merged...)
	}
	return normalize.Normalize(out, kind)
}

// union returns a followed by the items of b not already in a.
func union(a, b []string) []string {
	out := make([]string, 0, len(a)+len(b))
	seen := make(map[string]bool, len(a)+len(b))
	for _, list := range [][]string{a, b} {
		for _, s := range list {
			if !seen[s] {
				seen[s] = true
				out = append(out, s)
			}
		}
	}
	return out
}

// absorbAck folds a remote acknowledgement into the local record. The ack
// only fills fields that are empty locally, except for the id which the
// remote may assign.
func absorbAck(kind model.Kind, local, ack model.Record) model.Record {
	ack = normalize.Normalize(ack, kind)
	out := local.Clone()
	for k, v := range ack {
		if normalize.IsEmpty(out[k]) && !normalize.IsEmpty(v) {
			out[k] = v
		}
	}
	if id, ok := ack["id"]; ok && !normalize.IsEmpty(id) {
		out["id"] = id
	}
	return normalize.Normalize(out, kind)
}

// sequencePatch returns the sequence fields of merged that differ from
// remote, or nil when the remote already holds the union.
func sequencePatch(kind model.Kind, merged, remote model.Record) model.Record {
	var patch model.Record
	for _, f := range normalize.SequenceFields(kind) {
		m, r := merged.Strings(f.Display), remote.Strings(f.Display)
		if len(m) == len(r) && len(union(m, r)) == len(m) {
			continue
		}
		if patch == nil {
			patch = model.Record{}
		}
		patch[f.Display] = m
	}
	return patch
}

func indexOf(records []model.Record, id any) int {
	for i, r := range records {
		if normalize.IDsEqual(r["id"], id) {
			return i
		}
	}
	return -1
}
