package shade

import "github.com/elvishrender/core/node"

// Channel describes one framebuffer channel that a shader graph's
// root parameters may feed, per spec.md §4.3's output-channel
// binding step. DataOffset is the channel's byte offset within a
// sample-info record, owned by package bucket.
type Channel struct {
	Name       string
	Kind       node.Kind
	DataOffset int
}

// BindChannels populates sampleInfo with the root instance's final
// parameter values for every channel whose name matches one of
// root's parameters, casting through cast into the channel's element
// type. It must run after root's graph has been evaluated via Call
// against cache, since it reads from the graph cache rather than
// re-resolving parameters.
func BindChannels(cache *Cache, root node.InstanceID, channels []Channel, sampleInfo []byte) error {
	idx, ok := cache.table.IndexOf(root)
	if !ok {
		return ErrNotReachable
	}
	params, err := cache.reg.Params(root)
	if err != nil {
		return err
	}
	for _, ch := range channels {
		i := -1
		for j, p := range params {
			if p.Name == ch.Name {
				i = j
				break
			}
		}
		if i < 0 {
			continue
		}
		p := params[i]
		var src []byte
		if cache.flags[idx][i].graphCached {
			src = cache.graph[idx][p.Offset : p.Offset+p.Size]
		} else if cache.working[idx] != nil {
			src = cache.working[idx][p.Offset : p.Offset+p.Size]
		} else {
			continue
		}
		dst := sampleInfo[ch.DataOffset : ch.DataOffset+ch.Kind.Size()]
		cast(ch.Kind, p.Kind, dst, src)
	}
	return nil
}
