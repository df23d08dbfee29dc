package uploadform

import "errors"

// Validation failures shown to the user. The texts are displayed verbatim.
var (
	ErrDuplicateOrderPosition = errors.New("Order positions must be unique!")
	ErrNoDestinationSelected  = errors.New("You need to select at least one site")
)

// CheckOrders reports ErrDuplicateOrderPosition when any value repeats.
func CheckOrders(orders []int) error {
	seen := make(map[int]struct{}, len(orders))
	for _, o := range orders {
		if _, dup := seen[o]; dup {
			return ErrDuplicateOrderPosition
		}
		seen[o] = struct{}{}
	}
	return nil
}

// CheckDestinations reports ErrNoDestinationSelected when checked is zero.
func CheckDestinations(checked int) error {
	if checked == 0 {
		return ErrNoDestinationSelected
	}
	return nil
}

// Validate runs the submit checks in order. A duplicate order stops the
// check before destinations are looked at.
func Validate(orders []int, checkedDestinations int) error {
	if err := CheckOrders(orders); err != nil {
		return err
	}
	return CheckDestinations(checkedDestinations)
}

// Guard decides whether a form may be submitted.
type Guard struct{}

// Check validates the current rows and destination checkboxes. Orders only
// take part for the ordering variant. The hashtag opt-in is never counted
// as a destination.
func (Guard) Check(rows []*PreviewRow, variant Variant, destinations []*Checkbox) error {
	var orders []int
	if variant == Ordering {
		orders = make([]int, 0, len(rows))
		for _, row := range rows {
			orders = append(orders, row.Order)
		}
	}
	checked := 0
	for _, cb := range destinations {
		if cb.Checked && cb.Name != HashtagOptInField {
			checked++
		}
	}
	return Validate(orders, checked)
}
