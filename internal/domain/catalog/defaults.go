package catalog

// DefaultServices is the salon's opening price list. The SQL seed migration
// carries the same rows.
func DefaultServices() []*Service {
	rows := []struct {
		code     string
		name     string
		minutes  int
		cents    int64
		category Category
	}{
		{"full-groom", "Full Groom", 90, 8500, CategoryGrooming},
		{"puppy-groom", "Puppy's First Groom", 60, 4500, CategoryGrooming},
		{"bath-time-bliss", "Bath Time Bliss", 60, 4000, CategoryBath},
		{"express-bath", "Express Bath", 30, 2500, CategoryBath},
		{"nail-trim", "Nail Trim", 15, 1500, CategoryAddon},
		{"teeth-brushing", "Teeth Brushing", 15, 1200, CategoryAddon},
		{"de-shedding", "De-Shedding Treatment", 30, 2000, CategoryAddon},
		{"day-boarding", "Day Boarding", 240, 6000, CategoryBoarding},
	}
	out := make([]*Service, 0, len(rows))
	for _, r := range rows {
		s, err := NewService(r.code, r.name, r.minutes, r.cents, r.category)
		if err != nil {
			panic(err)
		}
		out = append(out, s)
	}
	return out
}
