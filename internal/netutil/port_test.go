package netutil

import (
	"net"
	"sync"
	"testing"
)

func TestNewPortRegistry(t *testing.T) {
	t.Parallel()

	t.Run("nil logger uses default", func(t *testing.T) {
		r := NewPortRegistry(nil)
		if r == nil {
			t.Fatal("expected non-nil registry")
		}
		// A quick reserve/release proves the registry came up usable.
		if !r.reserve(8080) {
			t.Fatal("reserve on a fresh registry failed")
		}
		r.Release(8080)
	})
}

func TestPortRegistry_reserve(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		setup  func(r *PortRegistry)
		port   int
		wantOK bool
	}{
		"fresh port": {
			setup:  func(_ *PortRegistry) {},
			port:   8080,
			wantOK: true,
		},
		"already held port": {
			setup: func(r *PortRegistry) {
				r.reserve(9090)
			},
			port:   9090,
			wantOK: false,
		},
		"second distinct port": {
			setup: func(r *PortRegistry) {
				r.reserve(8080)
			},
			port:   9090,
			wantOK: true,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			r := NewPortRegistry(nil)
			tc.setup(r)

			got := r.reserve(tc.port)
			if got != tc.wantOK {
				t.Errorf("reserve(%d) = %v, want %v", tc.port, got, tc.wantOK)
			}
			// Whatever the outcome, the port must be held afterwards.
			if r.reserve(tc.port) {
				t.Errorf("port %d not held: a repeat reserve succeeded", tc.port)
			}
		})
	}
}

func TestPortRegistry_Release(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		setup         func(r *PortRegistry)
		port          int
		otherPort     int // another port that should remain reserved (0 means none)
		otherReserved bool
	}{
		"held port": {
			setup: func(r *PortRegistry) {
				r.reserve(8080)
			},
			port: 8080,
		},
		"never-held port": {
			setup: func(_ *PortRegistry) {},
			port:  8080,
		},
		"one of several held": {
			setup: func(r *PortRegistry) {
				r.reserve(8080)
				r.reserve(9090)
			},
			port:          8080,
			otherPort:     9090,
			otherReserved: true,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			r := NewPortRegistry(nil)
			tc.setup(r)

			r.Release(tc.port)

			// A successful re-reserve is the proof the release took.
			if !r.reserve(tc.port) {
				t.Errorf("port %d still held after release", tc.port)
			}
			r.Release(tc.port)

			if tc.otherPort != 0 && tc.otherReserved {
				if r.reserve(tc.otherPort) {
					t.Errorf("releasing %d also freed %d", tc.port, tc.otherPort)
				}
			}
		})
	}
}

func TestPortRegistry_ConcurrentDuplicateReserve(t *testing.T) {
	t.Parallel()

	r := NewPortRegistry(nil)
	const goroutines = 100
	const targetPort = 12345

	var wg sync.WaitGroup
	successes := make(chan bool, goroutines)

	for range goroutines {
		wg.Go(func() {
			successes <- r.reserve(targetPort)
		})
	}

	wg.Wait()
	close(successes)

	successCount := 0
	for ok := range successes {
		if ok {
			successCount++
		}
	}
	if successCount != 1 {
		t.Errorf("expected exactly 1 successful reserve, got %d", successCount)
	}
}

func TestPortRegistry_AllocateEphemeral(t *testing.T) {
	t.Parallel()

	r := NewPortRegistry(nil)

	p1, err := r.AllocateEphemeral("127.0.0.1")
	if err != nil {
		t.Fatalf("AllocateEphemeral() error: %v", err)
	}
	if p1 == 0 {
		t.Fatal("port should be non-zero")
	}

	p2, err := r.AllocateEphemeral("127.0.0.1")
	if err != nil {
		t.Fatalf("AllocateEphemeral() second call error: %v", err)
	}
	if p1 == p2 {
		t.Errorf("ports should be different: p1=%d, p2=%d", p1, p2)
	}

	// Allocation must leave both ports registered.
	if r.reserve(p1) {
		t.Errorf("allocated port %d was not registered", p1)
	}
	if r.reserve(p2) {
		t.Errorf("allocated port %d was not registered", p2)
	}

	r.Release(p1)
	r.Release(p2)
	if !r.reserve(p1) {
		t.Errorf("port %d still held after release", p1)
	}
	r.Release(p1)
}

func TestPortRegistry_AllocateEphemeralUnique(t *testing.T) {
	t.Parallel()

	r := NewPortRegistry(nil)

	seen := make(map[int]bool)
	const allocations = 10

	for i := range allocations {
		p, err := r.AllocateEphemeral("127.0.0.1")
		if err != nil {
			t.Fatalf("allocation %d: AllocateEphemeral() error: %v", i, err)
		}
		if seen[p] {
			t.Errorf("allocation %d: port %d already seen", i, p)
		}
		seen[p] = true
	}

	for port := range seen {
		r.Release(port)
	}
}

func TestPortRegistry_ClaimSpecific(t *testing.T) {
	t.Parallel()

	t.Run("claims free port", func(t *testing.T) {
		t.Parallel()
		r := NewPortRegistry(nil)

		p, err := r.AllocateEphemeral("127.0.0.1")
		if err != nil {
			t.Fatalf("AllocateEphemeral() error: %v", err)
		}
		r.Release(p)

		if err := r.ClaimSpecific("127.0.0.1", p); err != nil {
			t.Fatalf("ClaimSpecific(%d) error: %v", p, err)
		}
		defer r.Release(p)

		if r.reserve(p) {
			t.Errorf("claimed port %d was not registered", p)
		}
	})

	t.Run("rejects registry-reserved port", func(t *testing.T) {
		t.Parallel()
		r := NewPortRegistry(nil)
		r.reserve(23456)
		defer r.Release(23456)

		if err := r.ClaimSpecific("127.0.0.1", 23456); err == nil {
			t.Fatal("ClaimSpecific on reserved port should fail")
		}
	})

	t.Run("rejects bound port and keeps it unreserved", func(t *testing.T) {
		t.Parallel()
		r := NewPortRegistry(nil)

		l, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			t.Fatalf("listen: %v", err)
		}
		defer func() { _ = l.Close() }()
		port := l.Addr().(*net.TCPAddr).Port

		if err := r.ClaimSpecific("127.0.0.1", port); err == nil {
			t.Fatal("ClaimSpecific on bound port should fail")
		}

		// The failed claim must not leave a stale reservation behind.
		if !r.reserve(port) {
			t.Errorf("port %d should not stay reserved after failed claim", port)
		}
		r.Release(port)
	})
}

func TestPortRegistry_ClaimRange(t *testing.T) {
	t.Parallel()

	t.Run("skips occupied port in range", func(t *testing.T) {
		t.Parallel()
		r := NewPortRegistry(nil)

		l, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			t.Fatalf("listen: %v", err)
		}
		defer func() { _ = l.Close() }()
		bound := l.Addr().(*net.TCPAddr).Port

		got, err := r.ClaimRange("127.0.0.1", bound, bound+50)
		if err != nil {
			t.Fatalf("ClaimRange() error: %v", err)
		}
		defer r.Release(got)

		if got == bound {
			t.Errorf("ClaimRange returned occupied port %d", bound)
		}
		if got < bound || got > bound+50 {
			t.Errorf("ClaimRange returned %d outside range %d-%d", got, bound, bound+50)
		}
	})

	t.Run("fails when every port is reserved", func(t *testing.T) {
		t.Parallel()
		r := NewPortRegistry(nil)
		for p := 34000; p <= 34002; p++ {
			r.reserve(p)
		}

		if _, err := r.ClaimRange("127.0.0.1", 34000, 34002); err == nil {
			t.Fatal("ClaimRange on fully reserved range should fail")
		}
	})
}
