package extract

import "testing"

func TestExtractName(t *testing.T) {
	tests := []struct {
		text string
		want string
		ok   bool
	}{
		{"My name is John Smith", "John Smith", true},
		{"hi, this is mary jones calling", "Mary Jones", true},
		{"I'm Bob", "Bob", true},
		{"you can call me Angela", "Angela", true},
		{"I was in an accident", "", false},
		{"", "", false},
	}
	for _, tc := range tests {
		t.Run(tc.text, func(t *testing.T) {
			got, ok := Extract(FieldName, tc.text)
			if ok != tc.ok {
				t.Fatalf("Extract(name, %q) ok = %v, want %v", tc.text, ok, tc.ok)
			}
			if got != tc.want {
				t.Errorf("Extract(name, %q) = %q, want %q", tc.text, got, tc.want)
			}
		})
	}
}

func TestExtractPhone(t *testing.T) {
	tests := []struct {
		text string
		want string
		ok   bool
	}{
		{"You can reach me at 214-555-0123", "2145550123", true},
		{"my number is (214) 555 0199", "2145550199", true},
		{"+1 214 555 0142", "12145550142", true},
		{"call 911", "", false},
		{"the policy number is 12345678901234", "", false},
	}
	for _, tc := range tests {
		t.Run(tc.text, func(t *testing.T) {
			got, ok := Extract(FieldPhone, tc.text)
			if ok != tc.ok {
				t.Fatalf("Extract(phone, %q) ok = %v, want %v", tc.text, ok, tc.ok)
			}
			if got != tc.want {
				t.Errorf("Extract(phone, %q) = %q, want %q", tc.text, got, tc.want)
			}
		})
	}
}

func TestExtractUnknownField(t *testing.T) {
	if got, ok := Extract("favouriteColor", "blue"); ok {
		t.Errorf("unknown field extracted %q", got)
	}
}

func TestExtractWhitespaceOnly(t *testing.T) {
	for _, field := range Fields() {
		if got, ok := Extract(field, "   \t "); ok {
			t.Errorf("field %s extracted %q from whitespace", field, got)
		}
	}
}
