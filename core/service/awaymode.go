package service

import (
	"errors"

	"github.com/hmctl/hmdispatch/core/audit"
	"github.com/hmctl/hmdispatch/core/model"
)

// errSkipEntity signals that the visited entity lacks the required capability
// and must be skipped silently.
var errSkipEntity = errors.New("entity skipped")

// forEachTargetEntity visits the targeted entities strictly in order. The
// "all" target enumerates every climate entity across all instances;
// otherwise each listed id is resolved individually and unknown ids are
// skipped. Each applied call is followed by the serializing pause to avoid
// flooding the backend. The first hard failure aborts the batch.
func (d *Dispatcher) forEachTargetEntity(target Target, apply func(model.Entity) error) (audit.Outcome, error) {
	var entities []model.Entity
	if target.All {
		entities = d.entitiesByPlatform(model.PlatformClimate)
	} else {
		for _, id := range target.IDs {
			if e := d.entityByID(id); e != nil {
				entities = append(entities, e)
			}
		}
	}

	d.mu.RLock()
	pause := d.pause
	sleep := d.sleep
	d.mu.RUnlock()

	applied := 0
	for _, e := range entities {
		err := apply(e)
		if errors.Is(err, errSkipEntity) {
			continue
		}
		if err != nil {
			return audit.OutcomeFailed, err
		}
		applied++
		if pause > 0 {
			sleep(pause)
		}
	}
	if applied == 0 {
		return audit.OutcomeDropped, nil
	}
	return audit.OutcomeDispatched, nil
}
