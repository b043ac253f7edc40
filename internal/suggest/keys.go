package suggest

import "fmt"

// Key is a keyboard key the suggestion list reacts to.
type Key string

const (
	KeyDown   Key = "ArrowDown"
	KeyUp     Key = "ArrowUp"
	KeyEnter  Key = "Enter"
	KeyEscape Key = "Escape"
)

// ParseKey maps a DOM key name to a Key.
func ParseKey(s string) (Key, error) {
	switch k := Key(s); k {
	case KeyDown, KeyUp, KeyEnter, KeyEscape:
		return k, nil
	default:
		return "", fmt.Errorf("unsupported key %q", s)
	}
}

// Navigate moves the active index over a list of length n. Down stops at the
// last item and Up stops at the first; -1 means nothing is active.
func Navigate(index int, key Key, n int) int {
	if n <= 0 {
		return -1
	}
	switch key {
	case KeyDown:
		return min(index+1, n-1)
	case KeyUp:
		return max(index-1, 0)
	default:
		return index
	}
}
