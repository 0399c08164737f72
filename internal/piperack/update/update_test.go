package update

import "testing"

func TestNormalizeVersionStripsPrefixes(t *testing.T) {
	cases := map[string]string{
		"v1.2.3":        "1.2.3",
		"1.2.3-beta.1":  "1.2.3",
		"1.2.3+build":   "1.2.3",
	}
	for input, want := range cases {
		got, ok := normalizeVersion(input)
		if !ok || got != want {
			t.Errorf("normalizeVersion(%q) = (%q, %v), want (%q, true)", input, got, ok, want)
		}
	}
}

func TestVersionTupleParsesSemver(t *testing.T) {
	got, ok := versionTuple("0.2.3")
	if !ok || got != (semver{0, 2, 3}) {
		t.Errorf("versionTuple(0.2.3) = %+v, %v", got, ok)
	}

	got, ok = versionTuple("v10.4.1")
	if !ok || got != (semver{10, 4, 1}) {
		t.Errorf("versionTuple(v10.4.1) = %+v, %v", got, ok)
	}
}

func TestVersionTupleRejectsMalformed(t *testing.T) {
	if _, ok := versionTuple("not-a-version"); ok {
		t.Errorf("expected malformed version to fail")
	}
}

func TestSemverGreaterThan(t *testing.T) {
	if !(semver{1, 2, 4}).greaterThan(semver{1, 2, 3}) {
		t.Errorf("expected 1.2.4 > 1.2.3")
	}
	if (semver{1, 2, 3}).greaterThan(semver{1, 2, 3}) {
		t.Errorf("expected 1.2.3 not > 1.2.3")
	}
}

func TestCheckDisabledRespectsEnv(t *testing.T) {
	t.Setenv(noUpdateEnv, "true")
	if !checkDisabled() {
		t.Errorf("expected check to be disabled when env var is true")
	}
	t.Setenv(noUpdateEnv, "0")
	if checkDisabled() {
		t.Errorf("expected check to be enabled when env var is 0")
	}
}
