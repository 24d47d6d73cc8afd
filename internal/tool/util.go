package tool

import "github.com/Gahroot/the-tribunal-sub000/internal/calendar"

func toSlotViews(slots []calendar.Slot) []SlotView {
	out := make([]SlotView, 0, len(slots))
	for _, s := range slots {
		out = append(out, SlotView{ISO: s.ISO, DisplayTime: s.DisplayTime})
	}
	return out
}
