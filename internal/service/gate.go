package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"posdesk/internal/domain"
	"posdesk/internal/store"
)

// currencyTimezones maps a store currency to a reasonable home timezone
// when neither the store record nor DEFAULT_TIMEZONE names one.
var currencyTimezones = map[string]string{
	"IDR": "Asia/Jakarta",
	"MMK": "Asia/Yangon",
	"THB": "Asia/Bangkok",
	"PHP": "Asia/Manila",
	"MYR": "Asia/Kuala_Lumpur",
	"SGD": "Asia/Singapore",
	"INR": "Asia/Kolkata",
	"USD": "America/New_York",
	"EUR": "Europe/Paris",
}

// resolveLocation picks the store's business timezone: the store record
// first, then the configured default, then a currency-derived guess,
// then UTC.
func (s *Service) resolveLocation(st *domain.Store) *time.Location {
	candidates := []string{}
	if st != nil && st.Timezone != "" {
		candidates = append(candidates, st.Timezone)
	}
	if s.defaultTimezone != "" {
		candidates = append(candidates, s.defaultTimezone)
	}
	if st != nil {
		if tz, ok := currencyTimezones[st.Currency]; ok {
			candidates = append(candidates, tz)
		}
	}
	for _, name := range candidates {
		if loc, err := time.LoadLocation(name); err == nil {
			return loc
		}
	}
	return time.UTC
}

func (s *Service) businessDate(st *domain.Store) (string, *time.Location) {
	loc := s.resolveLocation(st)
	return s.now().In(loc).Format("2006-01-02"), loc
}

// ensureDayOpen gates sale-posting operations. The day record must exist,
// be open, and carry today's business date in the store's timezone.
func (s *Service) ensureDayOpen(ctx context.Context, storeID string) (*domain.DayOperation, error) {
	st, err := s.repo.GetStore(ctx, storeID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}
	today, loc := s.businessDate(st)

	day, err := s.repo.GetOpenDayOperation(ctx, storeID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, &domain.GateError{
				Code:         domain.GateDayNotOpen,
				Message:      "no day operation is open for this store",
				BusinessDate: today,
				Timezone:     loc.String(),
			}
		}
		return nil, err
	}
	if day.Date != today {
		return nil, &domain.GateError{
			Code:         domain.GateDateMismatch,
			Message:      fmt.Sprintf("open day is dated %s but the business date is %s", day.Date, today),
			BusinessDate: today,
			OpenDate:     day.Date,
			Timezone:     loc.String(),
		}
	}
	return day, nil
}

func (s *Service) OpenDay(ctx context.Context, req domain.DayOpenRequest) (domain.DayOperation, error) {
	actor, _ := ActorFromContext(ctx)
	if req.StoreID == "" {
		req.StoreID = s.defaultStoreID
	}
	if req.OpeningCash.IsNegative() {
		return domain.DayOperation{}, store.ErrInvalid
	}

	st, err := s.repo.GetStore(ctx, req.StoreID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return domain.DayOperation{}, err
	}
	// The date is always server-resolved; clients never pick it.
	today, _ := s.businessDate(st)

	day, err := s.repo.OpenDayOperation(ctx, domain.DayOperation{
		StoreID:     req.StoreID,
		Date:        today,
		OpeningCash: req.OpeningCash,
		OpenedBy:    actor.Username,
		OpenedAt:    s.now().UTC(),
	})
	if err != nil {
		return domain.DayOperation{}, err
	}

	s.logAudit(ctx, req.StoreID, "day_open", "day_operation", day.ID, "date="+day.Date)
	return *day, nil
}

func (s *Service) CloseDay(ctx context.Context, storeID string) (domain.DayOperation, error) {
	if storeID == "" {
		storeID = s.defaultStoreID
	}
	day, err := s.repo.CloseDayOperation(ctx, storeID, s.now().UTC())
	if err != nil {
		return domain.DayOperation{}, err
	}

	s.logAudit(ctx, storeID, "day_close", "day_operation", day.ID, "date="+day.Date)
	return *day, nil
}

func (s *Service) CurrentDay(ctx context.Context, storeID string) (domain.DayOperation, error) {
	if storeID == "" {
		storeID = s.defaultStoreID
	}
	day, err := s.repo.GetOpenDayOperation(ctx, storeID)
	if err != nil {
		return domain.DayOperation{}, err
	}
	return *day, nil
}
