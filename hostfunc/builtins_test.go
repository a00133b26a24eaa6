package hostfunc

import (
	"context"
	"testing"
	"time"
)

func TestServerTime(t *testing.T) {
	val, err := ServerTime(context.Background(), nil)
	if err != nil {
		t.Fatalf("ServerTime failed: %v", err)
	}

	now := float64(time.Now().Unix())
	ts := val.(float64)
	if ts < now-5 || ts > now+5 {
		t.Errorf("timestamp %f not near %f", ts, now)
	}
}

func TestServerEnv(t *testing.T) {
	fn := NewServerEnv("1.2.3")

	val, err := fn(context.Background(), nil)
	if err != nil {
		t.Fatalf("server_env failed: %v", err)
	}

	m := val.(map[string]any)
	if m["version"] != "1.2.3" {
		t.Errorf("expected version 1.2.3, got %v", m["version"])
	}
	if m["pid"].(int) <= 0 {
		t.Errorf("expected positive pid, got %v", m["pid"])
	}
}
