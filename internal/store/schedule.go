package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mediminder/mediminder-api/internal/model"
	"github.com/mediminder/mediminder-api/internal/repository"
	"github.com/mediminder/mediminder-api/pkg/logger"
)

// Collection keys in the key-value backend.
const (
	keyMeds  = "meds"
	keyDoses = "doses"
)

// ScheduleStore is the authoritative persisted state for medications and
// doses. Collections are stored whole as JSON strings; reads degrade to empty
// collections on any failure, writes propagate their errors since silent data
// loss is unacceptable.
type ScheduleStore struct {
	kv     repository.KVStore
	logger *logger.Logger
	now    func() time.Time
}

func NewScheduleStore(kv repository.KVStore, log *logger.Logger) *ScheduleStore {
	return &ScheduleStore{kv: kv, logger: log.WithComponent("schedule-store"), now: time.Now}
}

// NewScheduleStoreAt builds a store with a fixed clock for tests.
func NewScheduleStoreAt(kv repository.KVStore, log *logger.Logger, now func() time.Time) *ScheduleStore {
	s := NewScheduleStore(kv, log)
	s.now = now
	return s
}

// GetMeds returns the medication collection; empty on missing or corrupt
// state, never an error.
func (s *ScheduleStore) GetMeds(ctx context.Context) []model.Medication {
	raw, ok := s.safeGet(ctx, keyMeds)
	if !ok {
		return nil
	}
	var meds []model.Medication
	if err := json.Unmarshal([]byte(raw), &meds); err != nil {
		s.logger.Warn("corrupt collection, using empty", "key", keyMeds, "error", err.Error())
		return nil
	}
	return meds
}

// GetDoses returns the dose collection; empty on missing or corrupt state,
// never an error.
func (s *ScheduleStore) GetDoses(ctx context.Context) []model.Dose {
	raw, ok := s.safeGet(ctx, keyDoses)
	if !ok {
		return nil
	}
	var doses []model.Dose
	if err := json.Unmarshal([]byte(raw), &doses); err != nil {
		s.logger.Warn("corrupt collection, using empty", "key", keyDoses, "error", err.Error())
		return nil
	}
	return doses
}

// UpsertMedication looks a medication up by normalized name. When found, the
// pattern is overwritten in place and the existing record returned with its
// medId unchanged; otherwise a new record is created and appended.
func (s *ScheduleStore) UpsertMedication(ctx context.Context, name, pattern string) (*model.Medication, error) {
	meds := s.GetMeds(ctx)
	nameKey := model.NormalizeName(name)

	for i := range meds {
		if model.NormalizeName(meds[i].Name) == nameKey {
			meds[i].Pattern = pattern
			if err := s.setJSON(ctx, keyMeds, meds); err != nil {
				return nil, err
			}
			med := meds[i]
			s.logger.Debug("upserted existing medication", "med_id", med.MedID, "pattern", pattern)
			return &med, nil
		}
	}

	med := model.Medication{
		MedID:   "med-" + uuid.NewString(),
		Name:    name,
		Pattern: pattern,
	}
	meds = append(meds, med)
	if err := s.setJSON(ctx, keyMeds, meds); err != nil {
		return nil, err
	}
	s.logger.Debug("created medication", "med_id", med.MedID, "name", name)
	return &med, nil
}

// AppendDoses merges newDoses into the persisted collection by dose id. New
// entries win on collision with one exception: a dose already logged taken or
// missed keeps its record, so regenerating a schedule never resurrects or
// resets a terminal status.
func (s *ScheduleStore) AppendDoses(ctx context.Context, newDoses []model.Dose) error {
	existing := s.GetDoses(ctx)
	before := len(existing)

	index := make(map[string]int, len(existing))
	for i, d := range existing {
		index[d.DoseID] = i
	}

	merged := existing
	for _, d := range newDoses {
		if i, ok := index[d.DoseID]; ok {
			if merged[i].Status.IsTerminal() {
				continue
			}
			merged[i] = d
			continue
		}
		index[d.DoseID] = len(merged)
		merged = append(merged, d)
	}

	if err := s.setJSON(ctx, keyDoses, merged); err != nil {
		return err
	}
	s.logger.Debug("appended doses", "before", before, "added", len(newDoses), "after", len(merged))
	return nil
}

// UpdateDoseStatus sets the status and stamps loggedAt. A missing dose id is
// a logged no-op, not an error; the updated dose is returned when found.
func (s *ScheduleStore) UpdateDoseStatus(ctx context.Context, doseID string, status model.DoseStatus) (*model.Dose, error) {
	doses := s.GetDoses(ctx)
	for i := range doses {
		if doses[i].DoseID != doseID {
			continue
		}
		loggedAt := s.now()
		doses[i].Status = status
		doses[i].LoggedAt = &loggedAt
		if err := s.setJSON(ctx, keyDoses, doses); err != nil {
			return nil, err
		}
		dose := doses[i]
		return &dose, nil
	}
	s.logger.Warn("dose not found for status update", "dose_id", doseID, "status", string(status))
	return nil, nil
}

// ResetAll clears both collections. Destructive; development and testing
// only.
func (s *ScheduleStore) ResetAll(ctx context.Context) error {
	if err := s.kv.MultiRemove(ctx, keyMeds, keyDoses); err != nil {
		return fmt.Errorf("failed to reset collections: %w", err)
	}
	return nil
}

func (s *ScheduleStore) safeGet(ctx context.Context, key string) (string, bool) {
	raw, err := s.kv.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, repository.ErrKeyNotFound) {
			s.logger.Warn("read failed, using empty collection", "key", key, "error", err.Error())
		}
		return "", false
	}
	return raw, true
}

func (s *ScheduleStore) setJSON(ctx context.Context, key string, val interface{}) error {
	raw, err := json.Marshal(val)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}
	if err := s.kv.Set(ctx, key, string(raw)); err != nil {
		return fmt.Errorf("failed to persist %s: %w", key, err)
	}
	return nil
}
