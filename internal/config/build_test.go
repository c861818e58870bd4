package config

import "testing"

func TestNewBuildInfo_Defaults(t *testing.T) {
	got := NewBuildInfo()
	want := BuildInfo{Version: "dev", Commit: "none", BuildTime: "unknown"}
	if got != want {
		t.Errorf("NewBuildInfo() = %+v, want %+v", got, want)
	}
}

func TestNewBuildInfo_ReadsLinkerVariables(t *testing.T) {
	saved := [3]string{version, commit, buildTime}
	t.Cleanup(func() { version, commit, buildTime = saved[0], saved[1], saved[2] })

	version, commit, buildTime = "1.4.0", "a1b2c3d", "2026-10-01T00:00:00Z"

	got := NewBuildInfo()
	if got.Version != "1.4.0" || got.Commit != "a1b2c3d" || got.BuildTime != "2026-10-01T00:00:00Z" {
		t.Errorf("NewBuildInfo() = %+v", got)
	}
}
