package analyze

import (
	"fmt"
	"sync"

	"github.com/freeeve/pgn/v3"
)

// Job is one game waiting to be analyzed for a player.
type Job struct {
	Username string
	Game     *pgn.Game
	RunID    string
}

// key identifies a job for deduplication: the player plus the game URL,
// or a composite of the players and end time when the PGN has no URL.
func (j Job) key() string {
	meta := MetaFromTags(j.Game.Tags)
	url := meta.GameURL
	if url == "" {
		url = fmt.Sprintf("pgn:%s-%s-%d", meta.White, meta.Black, meta.EndTime)
	}
	return j.Username + "|" + url
}

// GameQueue holds games waiting for analysis, deduplicated by player
// and game. Unlike a channel it can answer Len and Contains for status
// reporting, and rejects rather than evicts when full; analysis jobs
// must not be dropped silently.
type GameQueue struct {
	mu      sync.Mutex
	queue   []Job
	seen    map[string]bool
	maxSize int
}

func NewGameQueue(maxSize int) *GameQueue {
	if maxSize <= 0 {
		maxSize = 1000
	}
	return &GameQueue{
		queue:   make([]Job, 0, maxSize),
		seen:    make(map[string]bool),
		maxSize: maxSize,
	}
}

// Enqueue adds a job. added is false when the job was not queued;
// dup distinguishes an already-queued game from a full queue.
func (q *GameQueue) Enqueue(job Job) (added, dup bool) {
	key := job.key()

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.seen[key] {
		return false, true
	}
	if len(q.queue) >= q.maxSize {
		return false, false
	}
	q.queue = append(q.queue, job)
	q.seen[key] = true
	return true, false
}

// Dequeue removes and returns the oldest job.
func (q *GameQueue) Dequeue() (Job, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.queue) == 0 {
		return Job{}, false
	}
	job := q.queue[0]
	q.queue = q.queue[1:]
	delete(q.seen, job.key())
	return job, true
}

func (q *GameQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.queue)
}

// Contains reports whether a game for this player is already queued.
func (q *GameQueue) Contains(job Job) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.seen[job.key()]
}
