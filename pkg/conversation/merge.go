package conversation

// Merge reconciles a base message list with an incoming one (a store load,
// a streamed response catching up) into a single deduplicated list.
//
// Ids are emitted in the order they first appear while scanning base then
// incoming; for ids present in both, the incoming copy wins as the fresher
// value. Messages without an id are skipped defensively. Merge never
// mutates its inputs, Merge(x, x) reproduces x, and repeated incremental
// merges during streaming converge to the same result as one final merge.
func Merge(base Conversation, incoming Conversation) Conversation {
	order := make([]NodeID, 0, len(base)+len(incoming))
	latest := make(map[NodeID]*Message, len(base)+len(incoming))

	scan := func(messages Conversation) {
		for _, msg := range messages {
			if msg == nil || msg.ID == NullNode {
				continue
			}
			if _, seen := latest[msg.ID]; !seen {
				order = append(order, msg.ID)
			}
			latest[msg.ID] = msg
		}
	}
	scan(base)
	scan(incoming)

	ret := make(Conversation, 0, len(order))
	for _, id := range order {
		ret = append(ret, latest[id])
	}
	return ret
}
