package snack

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	countBits = 3
	countMask = 0x7

	goBit = 15
)

// MaxCount is the largest count a single command can request per item.
const MaxCount = 7

// A Command is the 16-bit word latched by the packet assembler. Bit 15 is
// the GO flag; bits 14..0 hold five 3-bit item counts, burger in the lowest
// field and pizza in the highest.
type Command uint16

// CommandFromBytes assembles a command from the two wire bytes, low byte
// first.
func CommandFromBytes(low, high byte) Command {
	return Command(uint16(high)<<8 | uint16(low))
}

// Go reports whether the GO flag is set.
func (c Command) Go() bool {
	return c&(1<<goBit) != 0
}

// Count returns the requested count for one item.
func (c Command) Count(item Item) uint8 {
	return uint8((c >> item.BitOffset()) & countMask)
}

// Counts returns the requested counts for all items, indexed by Item.
func (c Command) Counts() [NumItems]uint8 {
	var counts [NumItems]uint8

	for i := range counts {
		counts[i] = c.Count(Item(i))
	}

	return counts
}

// WithGo returns a copy of the command with the GO flag set or cleared.
func (c Command) WithGo(on bool) Command {
	if on {
		return c | (1 << goBit)
	}

	return c &^ (1 << goBit)
}

// WithCount returns a copy of the command with one item's count replaced.
// Counts larger than MaxCount are truncated to the field width.
func (c Command) WithCount(item Item, count uint8) Command {
	offset := item.BitOffset()
	cleared := c &^ (countMask << offset)

	return cleared | Command(count&countMask)<<offset
}

// Bytes returns the two wire bytes of the command, low byte first.
func (c Command) Bytes() (low, high byte) {
	return byte(c & 0xFF), byte(c >> 8)
}

func (c Command) String() string {
	parts := make([]string, 0, NumItems+1)

	if c.Go() {
		parts = append(parts, "go")
	}

	for _, item := range VisitOrder {
		if count := c.Count(item); count > 0 {
			parts = append(parts, fmt.Sprintf("%s=%d", item, count))
		}
	}

	if len(parts) == 0 {
		return fmt.Sprintf("0x%04X (empty)", uint16(c))
	}

	return fmt.Sprintf("0x%04X (%s)", uint16(c), strings.Join(parts, " "))
}

// ParseOrder parses a comma-separated order list such as
// "burger=1,fries=2" into a command without the GO flag.
func ParseOrder(order string) (Command, error) {
	var cmd Command

	for _, field := range strings.Split(order, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}

		name, countStr, found := strings.Cut(field, "=")
		if !found {
			return 0, fmt.Errorf("order field %q is not name=count", field)
		}

		item, err := ParseItem(name)
		if err != nil {
			return 0, err
		}

		count, err := strconv.Atoi(strings.TrimSpace(countStr))
		if err != nil {
			return 0, fmt.Errorf("order field %q: %w", field, err)
		}

		if count < 0 || count > MaxCount {
			return 0, fmt.Errorf(
				"count for %s must be between 0 and %d, got %d",
				item, MaxCount, count)
		}

		cmd = cmd.WithCount(item, uint8(count))
	}

	return cmd, nil
}
