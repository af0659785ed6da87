package monitoring

import "testing"

func TestSetLogger(t *testing.T) {
	original := Logf
	defer func() { Logf = original }()

	called := false
	SetLogger(func(format string, v ...interface{}) {
		called = true
	})
	Logf("csi frame dropped: %d", 1)
	if !called {
		t.Error("custom logger was not called")
	}

	// nil installs a no-op, not a nil function
	SetLogger(nil)
	Logf("should not panic")

	called = false
	SetLogger(func(format string, v ...interface{}) { called = true })
	Logf("after reinstall")
	if !called {
		t.Error("reinstalled logger was not called")
	}
}

func TestLogfDefault(t *testing.T) {
	if Logf == nil {
		t.Fatal("Logf should not be nil by default")
	}
	Logf("default logger: %s", "ok")
}
