package redislock

import (
	"testing"
	"time"
)

func TestKeyPrefix(t *testing.T) {
	tests := []struct {
		name   string
		prefix string
		want   string
	}{
		{"default", "", "recur:lock:offering:7"},
		{"custom", "billing", "billing:offering:7"},
		{"trailing colon", "billing:", "billing:offering:7"},
		{"whitespace", "  billing  ", "billing:offering:7"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := New(nil, tt.prefix)
			if got := l.Key("offering:7"); got != tt.want {
				t.Errorf("Key: got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestOptions(t *testing.T) {
	l := New(nil, "", WithTTL(2*time.Minute), WithRetryInterval(time.Second), WithTTL(0))
	if l.ttl != 2*time.Minute {
		t.Errorf("ttl: got %v", l.ttl)
	}
	if l.retry != time.Second {
		t.Errorf("retry: got %v", l.retry)
	}
}

func TestTokensAreUnique(t *testing.T) {
	a, err := newToken()
	if err != nil {
		t.Fatal(err)
	}
	b, err := newToken()
	if err != nil {
		t.Fatal(err)
	}
	if a == b || len(a) != 32 {
		t.Errorf("unexpected tokens %q %q", a, b)
	}
}
