package transformer

import (
	"errors"
	"testing"
	"time"
)

func TestParseUSDate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		in      string
		want    time.Time
		wantErr bool
	}{
		{name: "single digits", in: "1/5/2015", want: time.Date(2015, 1, 5, 0, 0, 0, 0, time.UTC)},
		{name: "zero padded", in: "11/04/2014", want: time.Date(2014, 11, 4, 0, 0, 0, 0, time.UTC)},
		{name: "edge space", in: " 3/31/2016 ", want: time.Date(2016, 3, 31, 0, 0, 0, 0, time.UTC)},
		{name: "leap day", in: "2/29/2016", want: time.Date(2016, 2, 29, 0, 0, 0, 0, time.UTC)},
		{name: "iso rejected", in: "2015-01-05", wantErr: true},
		{name: "two digit year", in: "1/5/15", wantErr: true},
		{name: "impossible day", in: "2/30/2015", wantErr: true},
		{name: "month 13", in: "13/1/2015", wantErr: true},
		{name: "non numeric", in: "a/b/2015", wantErr: true},
		{name: "empty", in: "", wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := ParseUSDate(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidDateFormat) {
					t.Fatalf("ParseUSDate(%q) err=%v, want ErrInvalidDateFormat", tt.in, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseUSDate(%q) unexpected err=%v", tt.in, err)
			}
			if !got.Equal(tt.want) {
				t.Fatalf("ParseUSDate(%q)=%s, want %s", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseInt(t *testing.T) {
	t.Parallel()

	if n, err := ParseInt("1031200"); err != nil || n != 1031200 {
		t.Fatalf("ParseInt plain = %d, %v", n, err)
	}
	if n, err := ParseInt("1031200.0"); err != nil || n != 1031200 {
		t.Fatalf("ParseInt float form = %d, %v", n, err)
	}
	if _, err := ParseInt("10.5"); err == nil {
		t.Fatalf("ParseInt(10.5) expected error")
	}
	if _, err := ParseInt("x"); err == nil {
		t.Fatalf("ParseInt(x) expected error")
	}
}

func TestParseFloat(t *testing.T) {
	t.Parallel()

	tests := map[string]float64{
		"9.0":       9,
		"$12.50":    12.5,
		"1,234.5":   1234.5,
		" 750 ":     750,
		"$1,000.25": 1000.25,
	}
	for in, want := range tests {
		got, err := ParseFloat(in)
		if err != nil {
			t.Fatalf("ParseFloat(%q) err=%v", in, err)
		}
		if got != want {
			t.Fatalf("ParseFloat(%q)=%v, want %v", in, got, want)
		}
	}
	if _, err := ParseFloat("n/a"); err == nil {
		t.Fatalf("ParseFloat(n/a) expected error")
	}
}

func TestRowPoolClearsFields(t *testing.T) {
	r := GetRow(3)
	r.V[0], r.V[1], r.V[2] = "a", "b", "c"
	r.Line = 7
	r.Free()

	r2 := GetRow(2)
	if len(r2.V) != 2 {
		t.Fatalf("len(V)=%d, want 2", len(r2.V))
	}
	for i, v := range r2.V {
		if v != "" {
			t.Fatalf("V[%d]=%q, want empty", i, v)
		}
	}
	if r2.Line != 0 {
		t.Fatalf("Line=%d, want 0", r2.Line)
	}
	if got := r2.Field(5); got != "" {
		t.Fatalf("Field(out of range)=%q, want empty", got)
	}
}
