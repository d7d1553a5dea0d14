package ratelimit

import (
	"sync"
	"time"
)

// Clock abstrai o relógio para permitir testes determinísticos
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock retorna o relógio real
func SystemClock() Clock { return systemClock{} }

// Decision é o resultado de uma verificação de cota
type Decision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// SlidingWindow limita requisições por cliente numa janela deslizante.
// Cada cliente tem seu próprio lock; poda + append acontecem sob o mesmo lock.
type SlidingWindow struct {
	limit  int
	window time.Duration
	clock  Clock

	mu      sync.Mutex
	clients map[string]*clientLog

	stopChan chan struct{}
	stopOnce sync.Once
}

type clientLog struct {
	mu      sync.Mutex
	hits    []time.Time
	evicted bool
}

// NewSlidingWindow cria o limitador; clock nil usa o relógio do sistema
func NewSlidingWindow(limit int, window time.Duration, clock Clock) *SlidingWindow {
	if clock == nil {
		clock = SystemClock()
	}
	return &SlidingWindow{
		limit:    limit,
		window:   window,
		clock:    clock,
		clients:  make(map[string]*clientLog),
		stopChan: make(chan struct{}),
	}
}

// Limit retorna o máximo de requisições por janela
func (w *SlidingWindow) Limit() int { return w.limit }

// Window retorna a duração da janela
func (w *SlidingWindow) Window() time.Duration { return w.window }

// Check poda o histórico do cliente e admite a requisição se houver vaga
func (w *SlidingWindow) Check(clientID string) Decision {
	for {
		entry := w.entry(clientID)

		entry.mu.Lock()
		if entry.evicted {
			// removido pelo janitor entre o lookup e o lock
			entry.mu.Unlock()
			continue
		}

		now := w.clock.Now()
		entry.prune(now.Add(-w.window))

		if len(entry.hits) >= w.limit {
			retryAfter := entry.retryAfter(now, w.window)
			entry.mu.Unlock()
			return Decision{Allowed: false, RetryAfter: retryAfter}
		}

		entry.hits = append(entry.hits, now)
		remaining := w.limit - len(entry.hits)
		entry.mu.Unlock()
		return Decision{Allowed: true, Remaining: remaining}
	}
}

// Count retorna quantas requisições do cliente ainda estão na janela
func (w *SlidingWindow) Count(clientID string) int {
	w.mu.Lock()
	entry, ok := w.clients[clientID]
	w.mu.Unlock()
	if !ok {
		return 0
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	cutoff := w.clock.Now().Add(-w.window)
	n := 0
	for _, t := range entry.hits {
		if t.After(cutoff) {
			n++
		}
	}
	return n
}

func (w *SlidingWindow) entry(clientID string) *clientLog {
	w.mu.Lock()
	defer w.mu.Unlock()

	entry, ok := w.clients[clientID]
	if !ok {
		entry = &clientLog{}
		w.clients[clientID] = entry
	}
	return entry
}

// prune descarta timestamps fora da janela (mais antigos ou iguais ao corte)
func (l *clientLog) prune(cutoff time.Time) {
	kept := l.hits[:0]
	for _, t := range l.hits {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	l.hits = kept
}

// retryAfter calcula quando a requisição mais antiga sai da janela.
// Relógio que volta no tempo pode deixar hits fora de ordem ou no futuro,
// então o resultado fica sempre em (0, window].
func (l *clientLog) retryAfter(now time.Time, window time.Duration) time.Duration {
	oldest := l.hits[0]
	for _, t := range l.hits[1:] {
		if t.Before(oldest) {
			oldest = t
		}
	}
	d := window - now.Sub(oldest)
	if d > window {
		return window
	}
	if d < time.Millisecond {
		return time.Millisecond
	}
	return d
}

// Sweep remove clientes sem requisições na janela
func (w *SlidingWindow) Sweep() int {
	w.mu.Lock()
	defer w.mu.Unlock()

	cutoff := w.clock.Now().Add(-w.window)
	removed := 0
	for id, entry := range w.clients {
		entry.mu.Lock()
		entry.prune(cutoff)
		if len(entry.hits) == 0 {
			entry.evicted = true
			delete(w.clients, id)
			removed++
		}
		entry.mu.Unlock()
	}
	return removed
}

// Size retorna o número de clientes rastreados
func (w *SlidingWindow) Size() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.clients)
}

// StartJanitor poda periodicamente clientes inativos até Stop
func (w *SlidingWindow) StartJanitor(interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				w.Sweep()
			case <-w.stopChan:
				return
			}
		}
	}()
}

// Stop encerra o janitor
func (w *SlidingWindow) Stop() {
	w.stopOnce.Do(func() { close(w.stopChan) })
}
