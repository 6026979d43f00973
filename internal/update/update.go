// Package update checks GitHub releases for a newer logvault build.
package update

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/mod/semver"
)

const githubAPIURL = "https://api.github.com/repos/mkessler/logvault/releases/latest"

// Release represents a GitHub release.
type Release struct {
	TagName string `json:"tag_name"`
	Body    string `json:"body"`
	HTMLURL string `json:"html_url"`
}

// Info describes an available update.
type Info struct {
	CurrentVersion string
	LatestVersion  string
	ReleaseURL     string
	IsDevBuild     bool
}

// Check queries the latest release and reports whether it is newer
// than currentVersion. Returns (nil, nil) when already up to date.
// Dev builds (non-semver versions such as "dev") always report the
// latest release so local builds can see what is current.
func Check(currentVersion string) (*Info, error) {
	release, err := fetchLatestRelease()
	if err != nil {
		return nil, fmt.Errorf("check for updates: %w", err)
	}

	isDev := !semver.IsValid(normalize(currentVersion))
	if !isDev && !isNewer(release.TagName, currentVersion) {
		return nil, nil
	}

	return &Info{
		CurrentVersion: currentVersion,
		LatestVersion:  release.TagName,
		ReleaseURL:     release.HTMLURL,
		IsDevBuild:     isDev,
	}, nil
}

// isNewer reports whether v1 is a strictly newer semver than v2.
// Invalid versions never compare as newer.
func isNewer(v1, v2 string) bool {
	sv1, sv2 := normalize(v1), normalize(v2)
	if !semver.IsValid(sv1) || !semver.IsValid(sv2) {
		return false
	}
	return semver.Compare(sv1, sv2) > 0
}

func normalize(v string) string {
	return "v" + strings.TrimPrefix(v, "v")
}

func fetchLatestRelease() (*Release, error) {
	req, err := http.NewRequest("GET", githubAPIURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	req.Header.Set("User-Agent", "logvault-update")

	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GitHub API returned %s", resp.Status)
	}

	var release Release
	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		return nil, err
	}
	return &release, nil
}
