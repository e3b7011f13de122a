package lifecycle

import (
	"reflect"
	"testing"
)

func TestOverlayEnv(t *testing.T) {
	base := []string{"PATH=/bin", "PYTHONPATH=/old", "garbage", "=nokey", "HOME=/home/u"}
	got := overlayEnv(base, map[string]string{"PYTHONPATH": "/srv", "FLASK_ENV": "production"})
	want := []string{"PATH=/bin", "HOME=/home/u", "FLASK_ENV=production", "PYTHONPATH=/srv"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("overlayEnv=%v want %v", got, want)
	}
}

func TestOverlayEnvEmpty(t *testing.T) {
	got := overlayEnv([]string{"A=1"}, nil)
	if !reflect.DeepEqual(got, []string{"A=1"}) {
		t.Fatalf("overlayEnv=%v", got)
	}
}

func TestTailBufferKeepsEnd(t *testing.T) {
	b := &tailBuffer{max: 8}
	b.WriteLine("abcdef")
	b.WriteLine("ghij")
	if got := b.String(); got != "ef\nghij" {
		t.Fatalf("tail=%q", got)
	}
}
