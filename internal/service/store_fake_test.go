package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/cleberrangel/workscan-api/internal/model"
)

// memoryStore implementa WorkflowStore e AnalysisStore em memória
type memoryStore struct {
	mu        sync.Mutex
	nextID    int64
	workflows map[int64]*model.Workflow
	analyses  map[int64]*model.Analysis

	analysisReads int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		workflows: make(map[int64]*model.Workflow),
		analyses:  make(map[int64]*model.Analysis),
	}
}

func (s *memoryStore) Create(ctx context.Context, w *model.Workflow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	w.ID = s.nextID
	w.CreatedAt = time.Now()
	for i := range w.Tasks {
		w.Tasks[i].ID = s.nextID*100 + int64(i)
		w.Tasks[i].WorkflowID = w.ID
	}
	copied := *w
	s.workflows[w.ID] = &copied
	return nil
}

func (s *memoryStore) GetByID(ctx context.Context, id int64) (*model.Workflow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.workflows[id]
	if !ok {
		return nil, model.ErrWorkflowNotFound
	}
	copied := *w
	return &copied, nil
}

func (s *memoryStore) List(ctx context.Context, limit, offset int) ([]model.Workflow, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]int64, 0, len(s.workflows))
	for id := range s.workflows {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] > ids[j] })

	var out []model.Workflow
	for i := offset; i < len(ids) && len(out) < limit; i++ {
		out = append(out, *s.workflows[ids[i]])
	}
	return out, len(ids), nil
}

func (s *memoryStore) Delete(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.workflows[id]; !ok {
		return model.ErrWorkflowNotFound
	}
	delete(s.workflows, id)
	delete(s.analyses, id)
	return nil
}

func (s *memoryStore) Replace(ctx context.Context, a *model.Analysis) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	a.ID = s.nextID
	a.CreatedAt = time.Now()
	copied := *a
	s.analyses[a.WorkflowID] = &copied
	return nil
}

func (s *memoryStore) GetByWorkflow(ctx context.Context, workflowID int64) (*model.Analysis, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.analysisReads++
	a, ok := s.analyses[workflowID]
	if !ok {
		return nil, model.ErrAnalysisNotFound
	}
	copied := *a
	return &copied, nil
}
