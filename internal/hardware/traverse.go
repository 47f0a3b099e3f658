package hardware

import (
	"context"
	"fmt"
)

// Traverse lists the computer's hardware and walks it depth-first, pre-order:
// each node is updated, then visited, before its sub-hardware. visit may be
// nil when the caller only needs the update pass. The top-level hardware is
// returned so callers can read the refreshed tree.
func Traverse(ctx context.Context, c Computer, visit func(Hardware) error) ([]Hardware, error) {
	hw, err := c.Hardware(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list hardware: %w", err)
	}

	for _, h := range hw {
		if err := walk(ctx, h, visit); err != nil {
			return nil, err
		}
	}
	return hw, nil
}

func walk(ctx context.Context, h Hardware, visit func(Hardware) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if err := h.Update(ctx); err != nil {
		return fmt.Errorf("failed to update %s: %w", h.Identifier(), err)
	}
	if visit != nil {
		if err := visit(h); err != nil {
			return err
		}
	}
	for _, sub := range h.SubHardware() {
		if err := walk(ctx, sub, visit); err != nil {
			return err
		}
	}
	return nil
}
