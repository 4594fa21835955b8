package bot

import "sync"

// ChatQueue runs jobs of one chat one by one in the order they were pushed.
// Jobs of different chats run concurrently. Push must not be called
// concurrently with Wait.
type ChatQueue struct {
	mu      sync.Mutex
	pending map[int64][]func() // a chat is present while its worker runs
	wg      sync.WaitGroup
}

func NewChatQueue() *ChatQueue {
	return &ChatQueue{pending: make(map[int64][]func())}
}

func (q *ChatQueue) Push(chatID int64, job func()) {
	q.mu.Lock()
	jobs, busy := q.pending[chatID]
	q.pending[chatID] = append(jobs, job)
	q.mu.Unlock()

	if busy {
		return
	}

	q.wg.Add(1)
	go q.drain(chatID)
}

func (q *ChatQueue) drain(chatID int64) {
	defer q.wg.Done()

	for {
		q.mu.Lock()
		jobs := q.pending[chatID]
		if len(jobs) == 0 {
			delete(q.pending, chatID)
			q.mu.Unlock()
			return
		}
		job := jobs[0]
		q.pending[chatID] = jobs[1:]
		q.mu.Unlock()

		job()
	}
}

// Wait blocks until all pushed jobs are done.
func (q *ChatQueue) Wait() {
	q.wg.Wait()
}
