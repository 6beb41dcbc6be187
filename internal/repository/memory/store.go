// Package memory implements the entity store in process memory.
//
// Each method takes the store lock for its whole body, which gives the same
// per-record atomicity the Postgres store gets from single statements. It
// backs tests and local runs without a database. Failures can be injected
// per operation with FailNext.
package memory

import (
	"fmt"
	"slices"
	"sort"
	"sync"

	"factorymanager.io/manager/internal/domain"
	"factorymanager.io/manager/internal/repository"
)

// Store holds all entities behind one lock.
type Store struct {
	mu          sync.Mutex
	principals  map[string]*domain.Principal
	employees   map[string]*domain.Employee
	departments map[string]*domain.Department
	shifts      map[string]*domain.Shift
	actionLogs  []*domain.ActionLogEntry
	faults      map[string][]error
}

// New returns an empty store.
func New() *Store {
	return &Store{
		principals:  make(map[string]*domain.Principal),
		employees:   make(map[string]*domain.Employee),
		departments: make(map[string]*domain.Department),
		shifts:      make(map[string]*domain.Shift),
		faults:      make(map[string][]error),
	}
}

// Repositories returns the store's repository bundle.
func (s *Store) Repositories() repository.Store {
	return repository.Store{
		Principals:  &principalRepo{s},
		Quota:       &quotaRepo{s},
		Employees:   &employeeRepo{s},
		Departments: &departmentRepo{s},
		Shifts:      &shiftRepo{s},
		ActionLogs:  &actionLogRepo{s},
		Sweeper:     &sweeper{s},
	}
}

// FailNext makes the next call of op return err. op is "<repo>.<Method>",
// e.g. "shifts.AddEmployee". Calls queue in order.
func (s *Store) FailNext(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults[op] = append(s.faults[op], err)
}

// fault pops the next injected error for op. Callers hold mu.
func (s *Store) fault(op string) error {
	queue := s.faults[op]
	if len(queue) == 0 {
		return nil
	}
	s.faults[op] = queue[1:]
	return queue[0]
}

func notFound(op, id string) error {
	return fmt.Errorf("%s %s: %w", op, id, repository.ErrNotFound)
}

func cloneIDs(ids []string) []string {
	out := make([]string, len(ids))
	copy(out, ids)
	return out
}

func cloneStringPtr(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func addID(ids []string, id string) []string {
	if slices.Contains(ids, id) {
		return ids
	}
	return append(ids, id)
}

func removeID(ids []string, id string) ([]string, bool) {
	idx := slices.Index(ids, id)
	if idx < 0 {
		return ids, false
	}
	return slices.Delete(ids, idx, idx+1), true
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
