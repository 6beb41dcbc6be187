package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"factorymanager.io/manager/internal/domain"
	"factorymanager.io/manager/internal/repository"
)

type principalRepo struct{ s *Store }

func clonePrincipal(p *domain.Principal) *domain.Principal {
	c := *p
	return &c
}

func (r *principalRepo) Create(_ context.Context, p *domain.Principal) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fault("principals.Create"); err != nil {
		return err
	}
	for _, existing := range r.s.principals {
		if existing.Username == p.Username {
			return fmt.Errorf("create principal: %w: username", repository.ErrDuplicate)
		}
	}
	if _, ok := r.s.principals[p.ID]; ok {
		return fmt.Errorf("create principal: %w: id", repository.ErrDuplicate)
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	r.s.principals[p.ID] = clonePrincipal(p)
	return nil
}

func (r *principalRepo) GetByID(_ context.Context, id string) (*domain.Principal, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fault("principals.GetByID"); err != nil {
		return nil, err
	}
	p, ok := r.s.principals[id]
	if !ok {
		return nil, notFound("get principal", id)
	}
	return clonePrincipal(p), nil
}

func (r *principalRepo) GetByUsername(_ context.Context, username string) (*domain.Principal, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fault("principals.GetByUsername"); err != nil {
		return nil, err
	}
	for _, p := range r.s.principals {
		if p.Username == username {
			return clonePrincipal(p), nil
		}
	}
	return nil, notFound("get principal by username", username)
}

func (r *principalRepo) List(_ context.Context) ([]*domain.Principal, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fault("principals.List"); err != nil {
		return nil, err
	}
	out := make([]*domain.Principal, 0, len(r.s.principals))
	for _, p := range r.s.principals {
		out = append(out, clonePrincipal(p))
	}
	sortPrincipals(out)
	return out, nil
}

func sortPrincipals(ps []*domain.Principal) {
	sort.Slice(ps, func(i, j int) bool { return ps[i].Username < ps[j].Username })
}

type quotaRepo struct{ s *Store }

func quotaOf(p *domain.Principal) domain.QuotaState {
	return domain.QuotaState{
		PrincipalID:      p.ID,
		MaxActionsPerDay: p.MaxActionsPerDay,
		NumOfActions:     p.NumOfActions,
		LastActionDate:   p.LastActionDate,
	}
}

func (r *quotaRepo) ResetIfStale(_ context.Context, principalID string, today domain.Date) (domain.QuotaState, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fault("quota.ResetIfStale"); err != nil {
		return domain.QuotaState{}, err
	}
	p, ok := r.s.principals[principalID]
	if !ok {
		return domain.QuotaState{}, notFound("reset quota", principalID)
	}
	if p.LastActionDate.Before(today) {
		p.NumOfActions = p.MaxActionsPerDay
		p.LastActionDate = today
	}
	return quotaOf(p), nil
}

func (r *quotaRepo) Consume(_ context.Context, principalID string) (domain.QuotaState, bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fault("quota.Consume"); err != nil {
		return domain.QuotaState{}, false, err
	}
	p, ok := r.s.principals[principalID]
	if !ok {
		return domain.QuotaState{PrincipalID: principalID}, false, nil
	}
	if p.NumOfActions <= 0 {
		return quotaOf(p), false, nil
	}
	p.NumOfActions--
	return quotaOf(p), true, nil
}
