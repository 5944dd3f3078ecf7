package ratelimit

import (
	"net/http"
	"sync"
	"testing"
	"time"
)

// mockClock is a controllable clock for testing.
type mockClock struct {
	mu  sync.Mutex
	now time.Time
}

func newMockClock() *mockClock {
	return &mockClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *mockClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *mockClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestCheckLogin_Lockout(t *testing.T) {
	clock := newMockClock()
	limiter := New(&Config{
		LoginMaxAttempts:  3,
		LoginLockout:      5 * time.Minute,
		LoginMaxIPPerHour: 30,
		Clock:             clock,
	})
	defer limiter.Close()

	email := "client@example.com"
	ip := "192.168.1.4"

	for i := 0; i < 3; i++ {
		result := limiter.CheckLogin(email, ip)
		if !result.Allowed {
			t.Errorf("attempt %d should be allowed, got blocked: %s", i+1, result.Reason)
		}
		lockedOut := limiter.RecordLoginFailure(email, ip)
		if i < 2 && lockedOut {
			t.Errorf("attempt %d should not trigger lockout", i+1)
		}
		if i == 2 && !lockedOut {
			t.Error("3rd failure should trigger lockout")
		}
	}

	result := limiter.CheckLogin(email, ip)
	if result.Allowed {
		t.Error("attempt during lockout should be blocked")
	}
	if result.Reason != "lockout" {
		t.Errorf("expected reason 'lockout', got %q", result.Reason)
	}
	if result.RetryAfter != 5*time.Minute {
		t.Errorf("expected RetryAfter 5m, got %v", result.RetryAfter)
	}

	clock.Advance(5*time.Minute + time.Second)
	result = limiter.CheckLogin(email, ip)
	if !result.Allowed {
		t.Errorf("attempt after lockout should be allowed, got blocked: %s", result.Reason)
	}
}

func TestCheckLogin_ResetOnSuccess(t *testing.T) {
	clock := newMockClock()
	limiter := New(&Config{
		LoginMaxAttempts:  3,
		LoginLockout:      5 * time.Minute,
		LoginMaxIPPerHour: 30,
		Clock:             clock,
	})
	defer limiter.Close()

	email := "reset@example.com"
	ip := "192.168.1.5"

	for i := 0; i < 2; i++ {
		limiter.RecordLoginFailure(email, ip)
	}

	limiter.ResetLoginAttempts(email)

	for i := 0; i < 3; i++ {
		result := limiter.CheckLogin(email, ip)
		if !result.Allowed {
			t.Errorf("attempt %d after reset should be allowed, got blocked: %s", i+1, result.Reason)
		}
		limiter.RecordLoginFailure(email, ip)
	}

	if result := limiter.CheckLogin(email, ip); result.Allowed {
		t.Error("4th attempt after reset should be blocked")
	}
}

func TestCheckLogin_EmailNormalization(t *testing.T) {
	clock := newMockClock()
	limiter := New(&Config{
		LoginMaxAttempts:  1,
		LoginLockout:      5 * time.Minute,
		LoginMaxIPPerHour: 30,
		Clock:             clock,
	})
	defer limiter.Close()

	ip := "192.168.1.1"
	limiter.RecordLoginFailure("user@example.com", ip)

	if result := limiter.CheckLogin("USER@EXAMPLE.COM", ip); result.Allowed {
		t.Error("uppercase variant should share the lockout")
	}
	if result := limiter.CheckLogin("  User@Example.Com  ", ip); result.Allowed {
		t.Error("padded mixed-case variant should share the lockout")
	}
}

func TestCheckLogin_IPLimit(t *testing.T) {
	clock := newMockClock()
	limiter := New(&Config{
		LoginMaxAttempts:  100,
		LoginLockout:      5 * time.Minute,
		LoginMaxIPPerHour: 2,
		Clock:             clock,
	})
	defer limiter.Close()

	ip := "192.168.1.6"

	for i := 0; i < 2; i++ {
		email := "user" + string(rune('a'+i)) + "@example.com"
		result := limiter.CheckLogin(email, ip)
		if !result.Allowed {
			t.Errorf("attempt %d should be allowed, got blocked: %s", i+1, result.Reason)
		}
		limiter.RecordLoginFailure(email, ip)
	}

	result := limiter.CheckLogin("userc@example.com", ip)
	if result.Allowed {
		t.Error("3rd attempt from same IP should be blocked")
	}
	if result.Reason != "ip_hourly_limit" {
		t.Errorf("expected reason 'ip_hourly_limit', got %q", result.Reason)
	}
}

func TestCheckRegister_IPLimit(t *testing.T) {
	clock := newMockClock()
	limiter := New(&Config{
		LoginMaxAttempts:     5,
		LoginLockout:         5 * time.Minute,
		LoginMaxIPPerHour:    30,
		RegisterMaxIPPerHour: 2,
		Clock:                clock,
	})
	defer limiter.Close()

	ip := "192.168.1.7"

	for i := 0; i < 2; i++ {
		result := limiter.CheckRegister(ip)
		if !result.Allowed {
			t.Errorf("registration %d should be allowed, got blocked: %s", i+1, result.Reason)
		}
		limiter.RecordRegister(ip)
	}

	if result := limiter.CheckRegister(ip); result.Allowed {
		t.Error("3rd registration from same IP should be blocked")
	}

	clock.Advance(time.Hour + time.Second)
	if result := limiter.CheckRegister(ip); !result.Allowed {
		t.Errorf("registration after window should be allowed, got blocked: %s", result.Reason)
	}
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name       string
		headers    map[string]string
		remoteAddr string
		trustProxy bool
		expected   string
	}{
		{
			name:       "trustProxy, XFF rightmost public IP",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.50, 10.0.0.1"},
			remoteAddr: "10.0.0.1:12345",
			trustProxy: true,
			expected:   "203.0.113.50",
		},
		{
			name:       "trustProxy, XFF all private",
			headers:    map[string]string{"X-Forwarded-For": "192.168.1.1, 10.0.0.1"},
			remoteAddr: "10.0.0.1:12345",
			trustProxy: true,
			expected:   "10.0.0.1",
		},
		{
			name:       "trustProxy, X-Real-IP",
			headers:    map[string]string{"X-Real-IP": "203.0.113.51"},
			remoteAddr: "10.0.0.1:12345",
			trustProxy: true,
			expected:   "203.0.113.51",
		},
		{
			name:       "untrusted proxy ignores XFF",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.50"},
			remoteAddr: "192.168.1.100:54321",
			trustProxy: false,
			expected:   "192.168.1.100",
		},
		{
			name:       "no headers",
			headers:    map[string]string{},
			remoteAddr: "192.168.1.100:54321",
			trustProxy: true,
			expected:   "192.168.1.100",
		},
		{
			name:       "RemoteAddr without port",
			headers:    map[string]string{},
			remoteAddr: "192.168.1.100",
			trustProxy: false,
			expected:   "192.168.1.100",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _ := http.NewRequest("GET", "/", nil)
			r.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}

			if got := GetClientIP(r, tt.trustProxy); got != tt.expected {
				t.Errorf("GetClientIP() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestSanitizeEmail(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"john.doe@example.com", "jo***@example.com"},
		{"JOHN.DOE@EXAMPLE.COM", "jo***@example.com"},
		{"ab@example.com", "***@example.com"},
		{"not-an-email", "***"},
		{"", "***"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := SanitizeEmail(tt.input); got != tt.expected {
				t.Errorf("SanitizeEmail(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestLimiter_Close(t *testing.T) {
	limiter := New(nil)

	// Trigger cleanup goroutine
	limiter.CheckLogin("test@example.com", "1.2.3.4")

	done := make(chan struct{})
	go func() {
		limiter.Close()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(1 * time.Second):
		t.Error("Close() should not hang")
	}
}

func TestConcurrentAccess(t *testing.T) {
	clock := newMockClock()
	limiter := New(&Config{
		LoginMaxAttempts:     1000,
		LoginLockout:         5 * time.Minute,
		LoginMaxIPPerHour:    100000,
		RegisterMaxIPPerHour: 100000,
		Clock:                clock,
	})
	defer limiter.Close()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				if limiter.CheckLogin("user@example.com", "192.168.1.1").Allowed {
					limiter.RecordLoginFailure("user@example.com", "192.168.1.1")
				}
				limiter.ResetLoginAttempts("user@example.com")
				if limiter.CheckRegister("192.168.1.2").Allowed {
					limiter.RecordRegister("192.168.1.2")
				}
			}
		}()
	}
	wg.Wait()
}
