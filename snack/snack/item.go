// Package snack defines the vocabulary shared by the dispenser components:
// the item slots, the 16-bit command word, and the actuator control codes.
package snack

import (
	"fmt"
	"strings"
)

// An Item identifies one of the five dispenser slots.
type Item int

// The five item slots. The numeric value of an item is also the index of its
// count field in the command word.
const (
	ItemBurger Item = iota
	ItemFries
	ItemSoda
	ItemIceCream
	ItemPizza
)

// NumItems is the number of dispenser slots.
const NumItems = 5

// VisitOrder is the fixed order in which the sequencer serves the slots. The
// order is a policy of the machine, declared once.
var VisitOrder = [NumItems]Item{
	ItemBurger,
	ItemFries,
	ItemSoda,
	ItemIceCream,
	ItemPizza,
}

// BitOffset returns the position of the item's 3-bit count field in the
// command word.
func (i Item) BitOffset() int {
	return int(i) * countBits
}

func (i Item) String() string {
	switch i {
	case ItemBurger:
		return "burger"
	case ItemFries:
		return "fries"
	case ItemSoda:
		return "soda"
	case ItemIceCream:
		return "ice-cream"
	case ItemPizza:
		return "pizza"
	}

	return fmt.Sprintf("item(%d)", int(i))
}

// ParseItem converts an item name to an Item. Hyphens and underscores in
// names are interchangeable.
func ParseItem(name string) (Item, error) {
	normalized := strings.ToLower(strings.TrimSpace(name))
	normalized = strings.ReplaceAll(normalized, "_", "")
	normalized = strings.ReplaceAll(normalized, "-", "")

	switch normalized {
	case "burger":
		return ItemBurger, nil
	case "fries":
		return ItemFries, nil
	case "soda":
		return ItemSoda, nil
	case "icecream":
		return ItemIceCream, nil
	case "pizza":
		return ItemPizza, nil
	}

	return 0, fmt.Errorf("unknown item %q", name)
}
