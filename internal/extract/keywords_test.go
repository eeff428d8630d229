package extract

import "testing"

func TestExtractTruckType(t *testing.T) {
	tests := []struct {
		text string
		want string
		ok   bool
	}{
		{"it was a semi truck", "Semi Truck", true},
		{"an 18-wheeler hit me", "18 Wheeler", true},
		{"some kind of eighteen wheeler", "18 Wheeler", true},
		{"a big rig ran the light", "Big Rig", true},
		{"a tractor trailer jackknifed", "Tractor Trailer", true},
		{"just a semi", "Semi", true},
		{"a tanker truck", "Tanker", true},
		{"it was a regular car", "", false},
	}
	for _, tc := range tests {
		t.Run(tc.text, func(t *testing.T) {
			got, ok := Extract(FieldTruckType, tc.text)
			if ok != tc.ok {
				t.Fatalf("Extract(truck, %q) ok = %v, want %v", tc.text, ok, tc.ok)
			}
			if got != tc.want {
				t.Errorf("Extract(truck, %q) = %q, want %q", tc.text, got, tc.want)
			}
		})
	}
}

func TestExtractInjuries(t *testing.T) {
	tests := []struct {
		text string
		want string
		ok   bool
	}{
		{"My back hurts", "Back", true},
		{"I injured my neck and shoulder", "Neck, Shoulder", true},
		{"I think I got whiplash and my head aches", "Head, Whiplash", true},
		{"broke a rib", "Rib", true},
		// Body parts without an injury indicator are not injuries.
		{"my back seat was full of boxes", "", false},
		{"I'm in a lot of pain", "", false},
	}
	for _, tc := range tests {
		t.Run(tc.text, func(t *testing.T) {
			got, ok := Extract(FieldInjuries, tc.text)
			if ok != tc.ok {
				t.Fatalf("Extract(injuries, %q) ok = %v, want %v (got %q)", tc.text, ok, tc.ok, got)
			}
			if got != tc.want {
				t.Errorf("Extract(injuries, %q) = %q, want %q", tc.text, got, tc.want)
			}
		})
	}
}

func TestMergeInjuries(t *testing.T) {
	tests := []struct {
		name      string
		existing  string
		extracted string
		want      string
	}{
		{"empty existing", "", "Back", "Back"},
		{"append new", "Back", "Neck", "Back, Neck"},
		{"skip duplicate", "Back, Neck", "Neck, Shoulder", "Back, Neck, Shoulder"},
		{"case insensitive duplicate", "Back", "back", "Back"},
		{"all duplicates", "Back, Neck", "Neck, Back", "Back, Neck"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := MergeInjuries(tc.existing, tc.extracted); got != tc.want {
				t.Errorf("MergeInjuries(%q, %q) = %q, want %q", tc.existing, tc.extracted, got, tc.want)
			}
		})
	}
}

func TestExtractPoliceReport(t *testing.T) {
	tests := []struct {
		text string
		want string
		ok   bool
	}{
		{"Yes, the officer filed a report", "Yes", true},
		{"the police came and took a report", "Yes", true},
		{"yes", "Yes", true},
		{"no, they never came", "No", true},
		{"No report was filed", "No", true},
		{"nope", "No", true},
		{"the cops didn't show up", "No", true},
		// Long answers without police context are ignored.
		{"I really don't remember much about the whole thing", "", false},
		{"we exchanged insurance information at the scene", "", false},
		// Short answers that merely contain a negation are not denials.
		{"no idea really", "", false},
		{"not really sure", "", false},
	}
	for _, tc := range tests {
		t.Run(tc.text, func(t *testing.T) {
			got, ok := Extract(FieldPoliceReport, tc.text)
			if ok != tc.ok {
				t.Fatalf("Extract(police, %q) ok = %v, want %v (got %q)", tc.text, ok, tc.ok, got)
			}
			if got != tc.want {
				t.Errorf("Extract(police, %q) = %q, want %q", tc.text, got, tc.want)
			}
		})
	}
}
