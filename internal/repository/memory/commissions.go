package memory

import (
	"colorgame_backend/internal/model"
	"context"
	"sort"
	"time"
)

func (s *Store) InsertCommission(ctx context.Context, ev *model.CommissionEvent) (bool, error) {
	unlock := s.lock(ctx)
	defer unlock()

	key := commissionKey{source: ev.SourceEventID, beneficiary: ev.BeneficiaryUserID}
	if _, exists := s.st.commissions[key]; exists {
		return false, nil
	}
	s.st.commissions[key] = *ev
	return true, nil
}

// UpsertFailedCommission - уже начисленное событие не трогаем,
// у неудачного увеличиваем счетчик попыток
func (s *Store) UpsertFailedCommission(ctx context.Context, ev *model.CommissionEvent) error {
	unlock := s.lock(ctx)
	defer unlock()

	key := commissionKey{source: ev.SourceEventID, beneficiary: ev.BeneficiaryUserID}
	cur, exists := s.st.commissions[key]
	switch {
	case !exists:
		rec := *ev
		rec.Status = model.CommissionFailed
		rec.AppliedAt = nil
		if rec.Attempts == 0 {
			rec.Attempts = 1
		}
		s.st.commissions[key] = rec
	case cur.Status == model.CommissionFailed:
		cur.Attempts++
		cur.LastError = ev.LastError
		s.st.commissions[key] = cur
	}
	return nil
}

func (s *Store) ListFailedCommissions(ctx context.Context, limit int) ([]model.CommissionEvent, error) {
	unlock := s.lock(ctx)
	defer unlock()

	var res []model.CommissionEvent
	for _, ev := range s.st.commissions {
		if ev.Status == model.CommissionFailed {
			res = append(res, ev)
		}
	}
	sort.Slice(res, func(i, j int) bool {
		if res[i].SourceEventID != res[j].SourceEventID {
			return res[i].SourceEventID < res[j].SourceEventID
		}
		return res[i].Level < res[j].Level
	})
	if limit > 0 && len(res) > limit {
		res = res[:limit]
	}
	return res, nil
}

func (s *Store) MarkCommissionApplied(ctx context.Context, sourceEventID string, beneficiaryID int64, at time.Time) (bool, error) {
	unlock := s.lock(ctx)
	defer unlock()

	key := commissionKey{source: sourceEventID, beneficiary: beneficiaryID}
	ev, ok := s.st.commissions[key]
	if !ok || ev.Status != model.CommissionFailed {
		return false, nil
	}
	ev.Status = model.CommissionApplied
	ev.AppliedAt = &at
	ev.LastError = ""
	s.st.commissions[key] = ev
	return true, nil
}

func (s *Store) ListCommissionsBySource(ctx context.Context, sourceEventID string) ([]model.CommissionEvent, error) {
	unlock := s.lock(ctx)
	defer unlock()

	var res []model.CommissionEvent
	for _, ev := range s.st.commissions {
		if ev.SourceEventID == sourceEventID {
			res = append(res, ev)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Level < res[j].Level })
	return res, nil
}

func (s *Store) InsertPendingCascade(ctx context.Context, ev *model.ProfitEvent) error {
	unlock := s.lock(ctx)
	defer unlock()

	if _, exists := s.st.pending[ev.SourceEventID]; !exists {
		s.st.pending[ev.SourceEventID] = *ev
	}
	return nil
}

func (s *Store) ListPendingCascades(ctx context.Context, limit int) ([]model.ProfitEvent, error) {
	unlock := s.lock(ctx)
	defer unlock()

	res := make([]model.ProfitEvent, 0, len(s.st.pending))
	for _, ev := range s.st.pending {
		res = append(res, ev)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].SourceEventID < res[j].SourceEventID })
	if limit > 0 && len(res) > limit {
		res = res[:limit]
	}
	return res, nil
}

func (s *Store) DeletePendingCascade(ctx context.Context, sourceEventID string) error {
	unlock := s.lock(ctx)
	defer unlock()

	delete(s.st.pending, sourceEventID)
	return nil
}
