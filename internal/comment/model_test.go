package comment

import (
	"errors"
	"testing"
	"time"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		inName   string
		inText   string
		wantName string
		wantText string
		wantErr  error
	}{
		{"trims both", "  Taro ", "  Great show! ", "Taro", "Great show!", nil},
		{"anonymous", "", "hello", "", "hello", nil},
		{"blank name is anonymous", "   ", "hello", "", "hello", nil},
		{"empty text", "Taro", "", "", "", ErrValidation},
		{"whitespace text", "Taro", " \n\t ", "", "", ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			name, text, err := Normalize(tt.inName, tt.inText)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if name != tt.wantName {
				t.Errorf("name = %q, want %q", name, tt.wantName)
			}
			if text != tt.wantText {
				t.Errorf("text = %q, want %q", text, tt.wantText)
			}
		})
	}
}

func TestDisplay(t *testing.T) {
	tests := []struct {
		name    string
		c       Comment
		want    string
		wantLen int
	}{
		{"with name", Comment{Name: "Taro", Text: "Great show!"}, "Taro：Great show!", 16},
		{"anonymous", Comment{Text: "hi"}, "hi", 2},
		{"multibyte counted as characters", Comment{Text: "すごい"}, "すごい", 3},
		{"astral counted as surrogate pair", Comment{Text: "🎉ok"}, "🎉ok", 4},
		{"empty clamps to one", Comment{}, "", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.c.Display(); got != tt.want {
				t.Errorf("Display() = %q, want %q", got, tt.want)
			}
			if got := tt.c.DisplayLen(); got != tt.wantLen {
				t.Errorf("DisplayLen() = %d, want %d", got, tt.wantLen)
			}
		})
	}
}

func TestCreated(t *testing.T) {
	c := Comment{CreatedAt: 1_700_000_000_123}
	if got := c.Created(); !got.Equal(time.UnixMilli(1_700_000_000_123)) {
		t.Errorf("Created() = %v", got)
	}
}

func TestSortNewestFirst(t *testing.T) {
	items := []Comment{
		{ID: "a", CreatedAt: 100},
		{ID: "c", CreatedAt: 300},
		{ID: "b", CreatedAt: 300},
		{ID: "d", CreatedAt: 200},
	}

	SortNewestFirst(items)

	want := []string{"c", "b", "d", "a"}
	for i, id := range want {
		if items[i].ID != id {
			t.Errorf("items[%d].ID = %q, want %q", i, items[i].ID, id)
		}
	}
}

func TestCap(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{0, DefaultMax},
		{-3, DefaultMax},
		{10, 10},
	}
	for _, tt := range tests {
		if got := Cap(tt.in); got != tt.want {
			t.Errorf("Cap(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
