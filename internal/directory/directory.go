// Package directory holds the static doctor reference table the chatbot
// books against: id, name, specialty, available days, and time slots.
package directory

import "strings"

// Doctor is one entry in the reference table. Loaded once, never mutated.
type Doctor struct {
	ID        int      `json:"id"`
	Name      string   `json:"name"`
	Specialty string   `json:"specialty"`
	Days      []string `json:"availableDays"`
	TimeSlots []string `json:"timeSlots"`
}

var doctors = []Doctor{
	{ID: 1, Name: "Dr. Smith", Specialty: "Cardiologist", Days: []string{"Monday", "Wednesday", "Friday"}, TimeSlots: []string{"9:00 AM", "11:00 AM", "1:00 PM", "3:00 PM"}},
	{ID: 2, Name: "Dr. Johnson", Specialty: "Dermatologist", Days: []string{"Tuesday", "Thursday", "Saturday"}, TimeSlots: []string{"10:00 AM", "12:00 PM", "2:00 PM", "4:00 PM"}},
	{ID: 3, Name: "Dr. Williams", Specialty: "Pediatrician", Days: []string{"Monday", "Wednesday", "Friday"}, TimeSlots: []string{"8:30 AM", "10:30 AM", "12:30 PM", "2:30 PM"}},
	{ID: 4, Name: "Dr. Brown", Specialty: "Orthopedic", Days: []string{"Tuesday", "Thursday", "Saturday"}, TimeSlots: []string{"9:30 AM", "11:30 AM", "1:30 PM", "3:30 PM"}},
	{ID: 5, Name: "Dr. Davis", Specialty: "Gastroenterologist", Days: []string{"Monday", "Wednesday", "Friday"}, TimeSlots: []string{"8:30 AM", "10:30 AM", "12:30 PM", "2:30 PM"}},
	{ID: 6, Name: "Dr. Miller", Specialty: "Neurologist", Days: []string{"Tuesday", "Thursday", "Saturday"}, TimeSlots: []string{"9:00 AM", "11:00 AM", "1:00 PM", "3:00 PM"}},
	{ID: 7, Name: "Dr. Wilson", Specialty: "Psychiatrist", Days: []string{"Monday", "Wednesday", "Friday"}, TimeSlots: []string{"10:00 AM", "12:00 PM", "2:00 PM", "4:00 PM"}},
	{ID: 8, Name: "Dr. Moore", Specialty: "Oncologist", Days: []string{"Tuesday", "Thursday", "Saturday"}, TimeSlots: []string{"8:30 AM", "10:30 AM", "12:30 PM", "2:30 PM"}},
	{ID: 9, Name: "Dr. Taylor", Specialty: "General Physician", Days: []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday"}, TimeSlots: []string{"9:00 AM", "11:00 AM", "1:00 PM", "3:00 PM"}},
}

// All returns every doctor in directory order.
func All() []Doctor {
	out := make([]Doctor, len(doctors))
	copy(out, doctors)
	return out
}

// ByID returns the doctor with the given id.
func ByID(id int) (*Doctor, bool) {
	for i := range doctors {
		if doctors[i].ID == id {
			d := doctors[i]
			return &d, true
		}
	}
	return nil, false
}

// ByName returns the doctor whose name matches exactly.
func ByName(name string) (*Doctor, bool) {
	for i := range doctors {
		if doctors[i].Name == name {
			d := doctors[i]
			return &d, true
		}
	}
	return nil, false
}

// BySpecialty returns all doctors whose specialty equals the given one,
// compared case-insensitively, in directory order.
func BySpecialty(specialty string) []Doctor {
	want := strings.ToLower(strings.TrimSpace(specialty))
	var out []Doctor
	for _, d := range doctors {
		if strings.ToLower(d.Specialty) == want {
			out = append(out, d)
		}
	}
	return out
}

// MatchName resolves a free-text fragment ("smith", "dr. johnson",
// "Dr. Brown (Orthopedic)") to a doctor. A trailing parenthesized specialty
// is ignored. The fragment matches when it contains the doctor's name or
// the name contains the fragment, case-insensitively. First match in
// directory order wins.
func MatchName(fragment string) (*Doctor, bool) {
	frag := strings.ToLower(strings.TrimSpace(fragment))
	if i := strings.Index(frag, "("); i > 0 {
		frag = strings.TrimSpace(frag[:i])
	}
	if frag == "" {
		return nil, false
	}
	for i := range doctors {
		name := strings.ToLower(doctors[i].Name)
		if strings.Contains(frag, name) || strings.Contains(name, frag) {
			d := doctors[i]
			return &d, true
		}
	}
	return nil, false
}

// HasDay reports whether the doctor is available on the given capitalized
// weekday.
func (d *Doctor) HasDay(day string) bool {
	for _, have := range d.Days {
		if have == day {
			return true
		}
	}
	return false
}

// HasSlot reports whether the given time string is one of the doctor's
// slots, compared exactly.
func (d *Doctor) HasSlot(slot string) bool {
	for _, have := range d.TimeSlots {
		if have == slot {
			return true
		}
	}
	return false
}

// SlotMatching returns the canonical slot string matching the input
// case-insensitively after trimming, if any.
func (d *Doctor) SlotMatching(input string) (string, bool) {
	want := strings.ToLower(strings.TrimSpace(input))
	for _, have := range d.TimeSlots {
		if strings.ToLower(have) == want {
			return have, true
		}
	}
	return "", false
}
