package reconcile

// dispatch runs write on a goroutine queued behind every earlier write for
// key. Callers hold mu.
func (b *Board) dispatch(op Op, key, label string, write func() error) {
	prev := b.tails[key]
	done := make(chan struct{})
	b.tails[key] = done
	b.inflight++
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		if prev != nil {
			<-prev
		}
		err := write()
		close(done)
		b.finish(op, key, label, done, err)
	}()
}

func (b *Board) finish(op Op, key, label string, done chan struct{}, err error) {
	b.mu.Lock()
	if b.tails[key] == done {
		delete(b.tails, key)
	}
	b.inflight--
	if err != nil {
		b.stale = true
	}
	b.mu.Unlock()

	if err != nil {
		f := Failure{Op: op, Entity: key, Label: label, Err: err}
		b.journal.Warn("%s", f.Summary())
		b.notify(Update{Failure: &f})
	}
	b.settle()
}

// settle performs the pending full reload once no write is in flight. A
// listing that raced with a new optimistic mutation is thrown away and
// retried.
func (b *Board) settle() {
	for {
		b.mu.Lock()
		if !b.stale || b.inflight > 0 {
			b.mu.Unlock()
			return
		}
		b.stale = false
		gen := b.gen
		b.mu.Unlock()

		tasks, projects, err := b.list()
		if err != nil {
			b.journal.Warn("reload failed: %v", err)
			b.notify(Update{Err: err})
			return
		}

		b.mu.Lock()
		if b.gen != gen || b.inflight > 0 {
			b.stale = true
			busy := b.inflight > 0
			b.mu.Unlock()
			if busy {
				return
			}
			continue
		}
		b.replace(tasks, projects)
		b.mu.Unlock()
		b.notify(Update{Reloaded: true})
		return
	}
}

func (b *Board) notify(u Update) {
	select {
	case b.updates <- u:
	default:
	}
}
