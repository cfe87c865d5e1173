package session

import (
	"strings"
	"testing"
	"time"
)

// ConformanceConfig configures the conformance test suite.
type ConformanceConfig struct {
	// StartupDelay is the time to wait after Create for the session to be ready.
	// Use 0 for test doubles, ~200ms for real screen.
	StartupDelay time.Duration
}

// RunConformanceTests runs the Sessions interface conformance test suite.
// Both the real screen implementation and the test double must pass these
// tests. This verifies the test double accurately models real screen behavior.
func RunConformanceTests(t *testing.T, factory func() Sessions, cleanup func()) {
	RunConformanceTestsWithConfig(t, factory, cleanup, ConformanceConfig{})
}

// RunConformanceTestsWithConfig runs conformance tests with custom configuration.
func RunConformanceTestsWithConfig(t *testing.T, factory func() Sessions, cleanup func(), cfg ConformanceConfig) {
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	t.Run("Create", func(t *testing.T) {
		runCreateTests(t, factory, cfg)
	})

	t.Run("Kill", func(t *testing.T) {
		runKillTests(t, factory, cfg)
	})

	t.Run("List", func(t *testing.T) {
		runListTests(t, factory, cfg)
	})

	t.Run("Exists", func(t *testing.T) {
		runExistsTests(t, factory, cfg)
	})

	t.Run("WipeDead", func(t *testing.T) {
		runWipeDeadTests(t, factory, cfg)
	})
}

func conformanceUniqueName(t *testing.T) string {
	// Screen socket names are pid.name, so avoid dots to keep -S matching
	// unambiguous. Underscore separates the milliseconds.
	return "test-" + strings.ReplaceAll(t.Name(), "/", "-") + "-" + time.Now().Format("150405_000")
}

// waitForStartup waits for the configured delay after session creation.
func waitForStartup(cfg ConformanceConfig) {
	if cfg.StartupDelay > 0 {
		time.Sleep(cfg.StartupDelay)
	}
}

// --- Create tests ---

func runCreateTests(t *testing.T, factory func() Sessions, cfg ConformanceConfig) {
	t.Run("creates session visible in List", func(t *testing.T) {
		sess := factory()
		name := conformanceUniqueName(t)
		t.Cleanup(func() { _ = sess.Kill(name) })

		if err := sess.Create(name, "", "sleep 60"); err != nil {
			t.Fatalf("Create failed: %v", err)
		}

		waitForStartup(cfg)

		exists, err := Exists(sess, name)
		if err != nil {
			t.Fatalf("Exists failed: %v", err)
		}
		if !exists {
			t.Error("session should exist after Create")
		}
	})

	t.Run("fails on duplicate session name", func(t *testing.T) {
		sess := factory()
		name := conformanceUniqueName(t)
		t.Cleanup(func() { _ = sess.Kill(name) })

		if err := sess.Create(name, "", "sleep 60"); err != nil {
			t.Fatalf("first Create failed: %v", err)
		}

		waitForStartup(cfg)

		if err := sess.Create(name, "", "sleep 60"); err == nil {
			t.Error("second Create should fail for duplicate name")
		}
	})

	t.Run("fails on empty name", func(t *testing.T) {
		sess := factory()

		if err := sess.Create("", "", "sleep 60"); err == nil {
			t.Error("Create with empty name should fail")
		}
	})

	t.Run("reports created session as detached", func(t *testing.T) {
		sess := factory()
		name := conformanceUniqueName(t)
		t.Cleanup(func() { _ = sess.Kill(name) })

		if err := sess.Create(name, "", "sleep 60"); err != nil {
			t.Fatalf("Create failed: %v", err)
		}

		waitForStartup(cfg)

		info, found, err := Find(sess, name)
		if err != nil {
			t.Fatalf("Find failed: %v", err)
		}
		if !found {
			t.Fatal("session should be listed after Create")
		}
		if info.State.Dead() {
			t.Errorf("freshly created session should not be dead, state %q", info.State)
		}
	})
}

// --- Kill tests ---

func runKillTests(t *testing.T, factory func() Sessions, cfg ConformanceConfig) {
	t.Run("removes existing session", func(t *testing.T) {
		sess := factory()
		name := conformanceUniqueName(t)

		_ = sess.Create(name, "", "sleep 60")
		waitForStartup(cfg)

		if err := sess.Kill(name); err != nil {
			t.Fatalf("Kill failed: %v", err)
		}

		exists, _ := Exists(sess, name)
		if exists {
			t.Error("session should not exist after Kill")
		}
	})

	t.Run("is idempotent for non-existent session", func(t *testing.T) {
		sess := factory()
		// Keep one live session so the screen server stays up.
		keepalive := conformanceUniqueName(t) + "-keepalive"
		_ = sess.Create(keepalive, "", "sleep 60")
		waitForStartup(cfg)
		t.Cleanup(func() { _ = sess.Kill(keepalive) })

		if err := sess.Kill("nonexistent-session-12345"); err != nil {
			t.Errorf("Kill on non-existent session should succeed: %v", err)
		}
	})
}

// --- List tests ---

func runListTests(t *testing.T, factory func() Sessions, cfg ConformanceConfig) {
	t.Run("returns created sessions", func(t *testing.T) {
		sess := factory()
		name1 := conformanceUniqueName(t) + "-1"
		name2 := conformanceUniqueName(t) + "-2"
		t.Cleanup(func() {
			_ = sess.Kill(name1)
			_ = sess.Kill(name2)
		})

		_ = sess.Create(name1, "", "sleep 60")
		_ = sess.Create(name2, "", "sleep 60")
		waitForStartup(cfg)

		sessions, err := sess.List()
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}

		found1, found2 := false, false
		for _, info := range sessions {
			if info.Name == name1 {
				found1 = true
			}
			if info.Name == name2 {
				found2 = true
			}
		}

		if !found1 || !found2 {
			t.Errorf("List should include both sessions, found1=%v, found2=%v", found1, found2)
		}
	})

	t.Run("excludes killed sessions", func(t *testing.T) {
		sess := factory()
		name := conformanceUniqueName(t)

		_ = sess.Create(name, "", "sleep 60")
		waitForStartup(cfg)
		_ = sess.Kill(name)

		sessions, _ := sess.List()
		for _, info := range sessions {
			if info.Name == name {
				t.Error("List should not include killed session")
			}
		}
	})
}

// --- Exists tests ---

func runExistsTests(t *testing.T, factory func() Sessions, cfg ConformanceConfig) {
	t.Run("returns false for non-existent session", func(t *testing.T) {
		sess := factory()

		exists, err := Exists(sess, "nonexistent-12345")
		if err != nil {
			t.Fatalf("Exists failed: %v", err)
		}
		if exists {
			t.Error("should return false for non-existent session")
		}
	})

	t.Run("returns true for existing session", func(t *testing.T) {
		sess := factory()
		name := conformanceUniqueName(t)
		t.Cleanup(func() { _ = sess.Kill(name) })

		_ = sess.Create(name, "", "sleep 60")
		waitForStartup(cfg)

		exists, err := Exists(sess, name)
		if err != nil {
			t.Fatalf("Exists failed: %v", err)
		}
		if !exists {
			t.Error("should return true for existing session")
		}
	})

	t.Run("uses exact match", func(t *testing.T) {
		sess := factory()
		name := conformanceUniqueName(t)
		t.Cleanup(func() { _ = sess.Kill(name) })

		_ = sess.Create(name, "", "sleep 60")
		waitForStartup(cfg)

		// Should not match prefix
		exists, _ := Exists(sess, name[:len(name)-3])
		if exists {
			t.Error("Exists should use exact match, not prefix")
		}
	})

	t.Run("Alive tracks the live session", func(t *testing.T) {
		sess := factory()
		name := conformanceUniqueName(t)
		t.Cleanup(func() { _ = sess.Kill(name) })

		alive, err := Alive(sess, name)
		if err != nil {
			t.Fatalf("Alive failed: %v", err)
		}
		if alive {
			t.Error("should report not alive before Create")
		}

		_ = sess.Create(name, "", "sleep 60")
		waitForStartup(cfg)

		alive, err = Alive(sess, name)
		if err != nil {
			t.Fatalf("Alive failed: %v", err)
		}
		if !alive {
			t.Error("should report alive after Create")
		}
	})
}

// --- WipeDead tests ---

func runWipeDeadTests(t *testing.T, factory func() Sessions, cfg ConformanceConfig) {
	t.Run("succeeds with no dead sessions", func(t *testing.T) {
		sess := factory()

		if err := sess.WipeDead(); err != nil {
			t.Errorf("WipeDead with nothing to reap should succeed: %v", err)
		}
	})

	t.Run("preserves live sessions", func(t *testing.T) {
		sess := factory()
		name := conformanceUniqueName(t)
		t.Cleanup(func() { _ = sess.Kill(name) })

		_ = sess.Create(name, "", "sleep 60")
		waitForStartup(cfg)

		if err := sess.WipeDead(); err != nil {
			t.Fatalf("WipeDead failed: %v", err)
		}

		exists, _ := Exists(sess, name)
		if !exists {
			t.Error("WipeDead should not remove live sessions")
		}
	})
}
