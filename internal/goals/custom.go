package goals

import (
	"fmt"

	"github.com/shunskating/skate-server/internal/catalog"
)

// CustomSize bounds a hand-built line: Min tricks to complete it, Max to
// stop adding.
var (
	CustomWeeklySize  = Size{Min: 3, Max: 4}
	CustomMonthlySize = Size{Min: 5, Max: 7}
)

// customCategories are the catalog categories a custom line may draw from.
var customCategories = map[string]bool{
	catalog.Flatground: true,
	catalog.Slides:     true,
	catalog.Grinds:     true,
	catalog.Manuals:    true,
}

func customSize(k Kind) Size {
	if k == CustomMonthly {
		return CustomMonthlySize
	}
	return CustomWeeklySize
}

// addCustom appends a trick name to an open custom line.
func addCustom(rec *Record, name string) error {
	if rec.Completed {
		return ErrCompleted
	}
	if limit := customSize(rec.Kind).Max; len(rec.Tricks) >= limit {
		return fmt.Errorf("%d tricks: %w", limit, ErrLineFull)
	}
	rec.Tricks = append(rec.Tricks, name)
	return nil
}

// removeCustom drops the trick at index from an open custom line.
func removeCustom(rec *Record, index int) error {
	if rec.Completed {
		return ErrCompleted
	}
	if index < 0 || index >= len(rec.Tricks) {
		return fmt.Errorf("remove %d: %w", index, ErrStopIndex)
	}
	rec.Tricks = append(rec.Tricks[:index:index], rec.Tricks[index+1:]...)
	return nil
}

// complete marks a line done. Custom lines need their minimum length first.
func complete(rec *Record) error {
	if rec.Completed {
		return ErrCompleted
	}
	if rec.Kind.Custom() {
		if need := customSize(rec.Kind).Min; len(rec.Tricks) < need {
			return fmt.Errorf("%d of %d tricks: %w", len(rec.Tricks), need, ErrLineTooShort)
		}
	}
	rec.Completed = true
	return nil
}
