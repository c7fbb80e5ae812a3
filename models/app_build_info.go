// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Kiosk App Authors

package models

import "fmt"

// AppBuildInfo carries build-time metadata injected with linker flags.
type AppBuildInfo struct {
	buildVersion string
	buildDate    string
	buildCommit  string
}

// NewAppBuildInfo constructs [AppBuildInfo]; empty values are reported as "N/A".
func NewAppBuildInfo(buildVersion, buildDate, buildCommit string) AppBuildInfo {
	return AppBuildInfo{
		buildVersion: orNA(buildVersion),
		buildDate:    orNA(buildDate),
		buildCommit:  orNA(buildCommit),
	}
}

func (a AppBuildInfo) BuildVersion() string { return a.buildVersion }

func (a AppBuildInfo) BuildDate() string { return a.buildDate }

func (a AppBuildInfo) BuildCommit() string { return a.buildCommit }

func (a AppBuildInfo) String() string {
	return fmt.Sprintf("version=%s date=%s commit=%s", a.buildVersion, a.buildDate, a.buildCommit)
}

func orNA(v string) string {
	if v == "" {
		return "N/A"
	}
	return v
}
