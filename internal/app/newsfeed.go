package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Amund211/newsfeed/internal/domain"
	"github.com/Amund211/newsfeed/internal/reporting"
	"github.com/Amund211/newsfeed/internal/strutils"
)

// Returns the newsfeed and whether it was available within timeout
type RequestNewsfeed func(ctx context.Context, subjectID string, timeout time.Duration) (domain.Newsfeed, bool, error)

// Regenerate the newsfeed regardless of what is cached
type PrimeNewsfeed func(ctx context.Context, subjectID string) error

// Generate the newsfeed on login unless it is cached. Returns whether it was generated.
type HandleLogin func(ctx context.Context, subjectID string) (bool, error)

type contentRequester interface {
	RequestContent(ctx context.Context, subjectID string, timeout time.Duration) ([]byte, bool, error)
}

type contentPrimer interface {
	PrimeOnLogin(ctx context.Context, subjectID string) error
}

type loginTriggerHandler interface {
	HandleLoginTrigger(ctx context.Context, subjectID string) (bool, error)
}

func validateSubjectID(subjectID string) error {
	if err := strutils.ValidateSubjectID(subjectID); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrInvalidSubjectID, err)
	}
	return nil
}

// Store failures are reported here, generators report their own failures
func reportStoreFailure(ctx context.Context, err error) {
	if errors.Is(err, domain.ErrStoreUnavailable) {
		reporting.Report(ctx, err)
	}
}

func BuildRequestNewsfeed(coordinator contentRequester) RequestNewsfeed {
	return func(ctx context.Context, subjectID string, timeout time.Duration) (domain.Newsfeed, bool, error) {
		if err := validateSubjectID(subjectID); err != nil {
			return domain.Newsfeed{}, false, err
		}

		content, found, err := coordinator.RequestContent(ctx, subjectID, timeout)
		if err != nil {
			reportStoreFailure(ctx, err)
			return domain.Newsfeed{}, false, fmt.Errorf("could not get newsfeed: %w", err)
		}
		if !found {
			return domain.Newsfeed{}, false, nil
		}

		return domain.Newsfeed{SubjectID: subjectID, Content: content}, true, nil
	}
}

func BuildPrimeNewsfeed(coordinator contentPrimer) PrimeNewsfeed {
	return func(ctx context.Context, subjectID string) error {
		if err := validateSubjectID(subjectID); err != nil {
			return err
		}

		err := coordinator.PrimeOnLogin(ctx, subjectID)
		if err != nil {
			reportStoreFailure(ctx, err)
			return fmt.Errorf("could not prime newsfeed: %w", err)
		}
		return nil
	}
}

func BuildHandleLogin(coordinator loginTriggerHandler) HandleLogin {
	return func(ctx context.Context, subjectID string) (bool, error) {
		if err := validateSubjectID(subjectID); err != nil {
			return false, err
		}

		generated, err := coordinator.HandleLoginTrigger(ctx, subjectID)
		if err != nil {
			reportStoreFailure(ctx, err)
			return false, fmt.Errorf("could not handle login: %w", err)
		}
		return generated, nil
	}
}
