package chat

// JobTable maps asynchronous job ids to the conversation that initiated
// them. Entries live for the whole session; job ids are unique per send
// so there is nothing to evict. Never persisted across restarts.
type JobTable struct {
	m map[string]string
}

func NewJobTable() *JobTable {
	return &JobTable{m: make(map[string]string)}
}

func (t *JobTable) Register(jobID, conversationID string) {
	if jobID == "" {
		return
	}
	t.m[jobID] = conversationID
}

func (t *JobTable) Resolve(jobID string) (string, bool) {
	id, ok := t.m[jobID]
	return id, ok
}
