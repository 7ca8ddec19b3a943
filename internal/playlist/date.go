package playlist

import (
	"fmt"
	"time"

	"github.com/justestif/go-setlist-to-playlist/internal/apperrors"
	"github.com/justestif/go-setlist-to-playlist/internal/setlistfm"
)

func eventDate(setlist *setlistfm.Setlist) (time.Time, error) {
	if setlist.EventDate == "" {
		return time.Time{}, fmt.Errorf("%w: event date", apperrors.ErrMissingRequiredField)
	}

	date, err := setlist.Date()
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: event date %q: %w", apperrors.ErrMissingRequiredField, setlist.EventDate, err)
	}
	return date, nil
}
