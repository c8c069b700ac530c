package build

import (
	"os"
	"testing"
)

var (
	origName    string
	origTime    string
	origCommit  string
	origVersion string
	origInfo    Info
)

func TestMain(m *testing.M) {
	origName = buildName
	origTime = buildTime
	origCommit = buildCommit
	origVersion = buildVersion
	origInfo = info

	exitCode := m.Run()

	buildName = origName
	buildTime = origTime
	buildCommit = origCommit
	buildVersion = origVersion
	info = origInfo

	os.Exit(exitCode)
}

func TestInitialize(t *testing.T) {
	tests := []struct {
		name        string
		buildName   string
		buildTime   string
		buildCommit string
		buildVer    string
		want        Info
	}{
		{
			"Dev Build Keeps Defaults",
			"", "", "", "",
			Info{Name: "chromatune", Time: "unknown", Commit: "unknown", Version: "dev"},
		},
		{
			"Full ldflags",
			"testapp", "2025-04-13", "abcdef123", "v1.0.0",
			Info{Name: "testapp", Time: "2025-04-13", Commit: "abcdef123", Version: "v1.0.0"},
		},
		{
			"Partial ldflags",
			"", "", "abcdef123", "v1.0.0",
			Info{Name: "chromatune", Time: "unknown", Commit: "abcdef123", Version: "v1.0.0"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info = Info{
				Name:    "chromatune",
				Time:    "unknown",
				Commit:  "unknown",
				Version: "dev",
			}
			buildName = tt.buildName
			buildTime = tt.buildTime
			buildCommit = tt.buildCommit
			buildVersion = tt.buildVer

			Initialize()

			if got := GetInfo(); got != tt.want {
				t.Errorf("GetInfo() = %+v, want %+v", got, tt.want)
			}
		})
	}
}
