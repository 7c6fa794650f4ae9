package scheduling

import "time"

// SlotRequest describes one run of the slot generator.
type SlotRequest struct {
	WorkingHours []WorkingHour
	// DefaultDuration is the business appointment length in minutes.
	DefaultDuration int
	// ServiceDuration overrides DefaultDuration when positive.
	ServiceDuration int
	Existing        []Interval
	DaysAhead       int
	Buffer          time.Duration
	Now             time.Time
	Location        *time.Location
	// FirstDay moves the first generated day. Zero means the day of Now.
	FirstDay time.Time
}

func (r SlotRequest) step() time.Duration {
	if r.ServiceDuration > 0 {
		return time.Duration(r.ServiceDuration) * time.Minute
	}
	return time.Duration(r.DefaultDuration) * time.Minute
}

func (r SlotRequest) location() *time.Location {
	if r.Location == nil {
		return time.UTC
	}
	return r.Location
}

// GenerateSlots walks the working windows of the next DaysAhead days and
// returns at most MaxSlots free start times in chronological order. A
// candidate is dropped when it would end (plus buffer) after the window,
// starts within LeadTime of Now, or conflicts with an existing booking.
func GenerateSlots(req SlotRequest) []Slot {
	step := req.step()
	if step <= 0 || req.DaysAhead <= 0 {
		return nil
	}

	loc := req.location()
	first := req.FirstDay
	if first.IsZero() {
		first = req.Now
	}
	fy, fm, fd := first.In(loc).Date()
	earliest := req.Now.Add(LeadTime)

	var slots []Slot
	for i := 0; i < req.DaysAhead; i++ {
		day := time.Date(fy, fm, fd+i, 0, 0, 0, 0, loc)

		wh, ok := ActiveHourFor(req.WorkingHours, day.Weekday())
		if !ok {
			continue
		}

		windowStart, err := At(day, wh.StartTime, loc)
		if err != nil {
			continue
		}
		windowEnd, err := At(day, wh.EndTime, loc)
		if err != nil {
			continue
		}

		for cur := windowStart; cur.Before(windowEnd); cur = cur.Add(step) {
			end := cur.Add(step)
			if end.Add(req.Buffer).After(windowEnd) {
				break
			}
			if cur.Before(earliest) {
				continue
			}
			if Conflicts(Interval{Start: cur, End: end}, req.Existing, req.Buffer) {
				continue
			}

			slots = append(slots, Slot{Start: cur, Duration: step})
			if len(slots) == MaxSlots {
				return slots
			}
		}
	}

	return slots
}

// Conflicts reports whether candidate overlaps any existing booking once the
// buffer is appended to the end of that booking.
func Conflicts(candidate Interval, existing []Interval, buffer time.Duration) bool {
	for _, ex := range existing {
		blocked := Interval{Start: ex.Start, End: ex.End.Add(buffer)}
		if candidate.Overlaps(blocked) {
			return true
		}
	}
	return false
}

// SlotsOn keeps the slots that fall on the given YYYY-MM-DD date.
func SlotsOn(slots []Slot, date string) []Slot {
	var out []Slot
	for _, s := range slots {
		if s.Date() == date {
			out = append(out, s)
		}
	}
	return out
}
