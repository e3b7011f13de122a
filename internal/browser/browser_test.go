package browser

import (
	"reflect"
	"testing"
)

func TestCommandPerPlatform(t *testing.T) {
	const url = "http://localhost:5002"
	cases := []struct {
		goos string
		name string
		args []string
	}{
		{"darwin", "open", []string{url}},
		{"windows", "cmd", []string{"/c", "start", "", url}},
		{"linux", "xdg-open", []string{url}},
		{"freebsd", "xdg-open", []string{url}},
	}
	for _, c := range cases {
		name, args := Command(c.goos, url)
		if name != c.name || !reflect.DeepEqual(args, c.args) {
			t.Fatalf("%s: got %s %v, want %s %v", c.goos, name, args, c.name, c.args)
		}
	}
}
